// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vectorstore manages the personal document index used to ground
// assistant answers: chunked ingest into Weaviate and nearText retrieval.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/vivalabs/viva/pkg/config"
)

// className is the Weaviate class holding document chunks.
const className = "PersonalDocument"

// Chunk is one retrieved document fragment.
type Chunk struct {
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Certainty  float64 `json:"certainty,omitempty"`
}

// Service wraps the Weaviate client plus the chunking policy.
type Service struct {
	client   *weaviate.Client
	splitter textsplitter.TextSplitter
	topK     int
}

// NewService connects to Weaviate per cfg and ensures the schema exists.
func NewService(ctx context.Context, cfg config.WeaviateConfig, chunking config.ChunkingConfig) (*Service, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse weaviate url %q: %w", cfg.URL, err)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "http"
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsed.Host,
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	svc := &Service{
		client: client,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunking.ChunkSize),
			textsplitter.WithChunkOverlap(chunking.ChunkOverlap),
		),
		topK: cfg.TopK,
	}
	if err := svc.ensureSchema(ctx); err != nil {
		return nil, err
	}

	slog.Info("Vector store connected", "host", parsed.Host, "class", className)
	return svc, nil
}

func (s *Service) ensureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", className, err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      className,
		Vectorizer: "text2vec-transformers",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "chunk_index", DataType: []string{"int"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", className, err)
	}
	slog.Info("Created vector store class", "class", className)
	return nil
}

// IngestDocument splits the document and batches the chunks into Weaviate.
// Returns the number of chunks written.
func (s *Service) IngestDocument(ctx context.Context, source, content string) (int, error) {
	chunks, err := s.splitter.SplitText(content)
	if err != nil {
		return 0, fmt.Errorf("split document %s: %w", source, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	batcher := s.client.Batch().ObjectsBatcher()
	for i, chunk := range chunks {
		batcher = batcher.WithObjects(&models.Object{
			Class: className,
			Properties: map[string]interface{}{
				"content":     chunk,
				"source":      source,
				"chunk_index": i,
			},
		})
	}
	if _, err := batcher.Do(ctx); err != nil {
		return 0, fmt.Errorf("batch ingest %s: %w", source, err)
	}

	slog.Info("Ingested document", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// searchResponse mirrors the GraphQL Get shape for PersonalDocument.
type searchResponse struct {
	Get struct {
		PersonalDocument []struct {
			Content    string `json:"content"`
			Source     string `json:"source"`
			ChunkIndex int    `json:"chunk_index"`
			Additional struct {
				Certainty float64 `json:"certainty"`
			} `json:"_additional"`
		} `json:"PersonalDocument"`
	} `json:"Get"`
}

// Search returns the chunks nearest to the query text. limit <= 0 uses the
// configured top-K.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = s.topK
	}

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "chunk_index"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	resp, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearText(nearText).
		WithFields(fields...).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	parsed, err := parseGraphQLResponse[searchResponse](resp)
	if err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	chunks := make([]Chunk, 0, len(parsed.Get.PersonalDocument))
	for _, doc := range parsed.Get.PersonalDocument {
		chunks = append(chunks, Chunk{
			Content:    doc.Content,
			Source:     doc.Source,
			ChunkIndex: doc.ChunkIndex,
			Certainty:  doc.Additional.Certainty,
		})
	}
	return chunks, nil
}

// DeleteBySource removes every chunk ingested under the given source name.
func (s *Service) DeleteBySource(ctx context.Context, source string) error {
	where := filters.Where().
		WithPath([]string{"source"}).
		WithOperator(filters.Equal).
		WithValueString(source)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete chunks for source %s: %w", source, err)
	}
	slog.Info("Deleted document chunks", "source", source)
	return nil
}

// Ping reports store liveness.
func (s *Service) Ping(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate readiness: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate not ready")
	}
	return nil
}

// parseGraphQLResponse parses a Weaviate GraphQL response into the target
// type via a marshal/unmarshal round trip.
func parseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL error: %s", resp.Errors[0].Message)
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return &result, nil
}
