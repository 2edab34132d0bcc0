// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the shared YAML configuration for all Viva services.
//
// Every service reads the same file (default: ./config.yaml, overridable via
// VIVA_CONFIG_PATH) and then applies environment-variable overrides for
// secrets and deployment-specific values. Missing fields fall back to
// defaults that match a local single-node deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the root configuration shared by all services.
type Config struct {
	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
	Cassandra  CassandraConfig  `yaml:"cassandra"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Weaviate   WeaviateConfig   `yaml:"weaviate"`
	Models     ModelsConfig     `yaml:"models"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	JWT        JWTConfig        `yaml:"jwt"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Assistant  AssistantConfig  `yaml:"assistant"`
}

// CacheConfig controls the hot-window threshold and trim behavior.
//
// # Fields
//
//   - MessageLimit: hot-window size that triggers a summarization cycle.
//   - TrimKeepLast: messages retained after a successful cycle. Configured
//     explicitly rather than derived from MessageLimit; the two knobs are
//     independent on purpose.
type CacheConfig struct {
	MessageLimit int `yaml:"message_limit"`
	TrimKeepLast int `yaml:"trim_keep_last"`
}

// RedisConfig holds hot-window store connection settings.
type RedisConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              int           `yaml:"db"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoffMin time.Duration `yaml:"retry_backoff_min"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`
}

// Addr returns the host:port address for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CassandraConfig holds durable transcript store connection settings.
type CassandraConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Keyspace          string `yaml:"keyspace"`
	ReplicationFactor int    `yaml:"replication_factor"`
}

// PostgresConfig holds user directory connection settings.
// Credentials come from the environment, never from the file.
type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MinConnections int    `yaml:"min_connections"`
	MaxConnections int    `yaml:"max_connections"`
}

// WeaviateConfig holds vector store settings.
type WeaviateConfig struct {
	URL  string `yaml:"url"`
	TopK int    `yaml:"top_k"`
}

// ModelConfig identifies one LLM capability by provider and model name.
// The provider string is opaque to callers; services/llm maps it to a client.
type ModelConfig struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
}

// ModelsConfig separates the conversational model from the (usually smaller)
// summarization model.
type ModelsConfig struct {
	Chat    ModelConfig `yaml:"chat"`
	Summary ModelConfig `yaml:"summary"`
}

// PromptsConfig carries the prompt templates. Placeholders use the
// {name} convention and are substituted verbatim, not via text/template.
type PromptsConfig struct {
	SystemTemplate        string `yaml:"system_template"`
	SummarizationTemplate string `yaml:"summarization_template"`
}

// JWTConfig controls token issuance. The signing key comes from
// JWT_SECRET_KEY in the environment.
type JWTConfig struct {
	Algorithm            string        `yaml:"algorithm"`
	AccessTokenLifetime  time.Duration `yaml:"access_token_lifetime"`
	RefreshTokenLifetime time.Duration `yaml:"refresh_token_lifetime"`
}

// ChunkingConfig controls document splitting during vector store ingest.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// AssistantConfig names the persona used in the system prompt.
type AssistantConfig struct {
	PersonName  string `yaml:"person_name"`
	ChatbotName string `yaml:"chatbot_name"`
}

// =============================================================================
// Loading
// =============================================================================

// DefaultSummarizationTemplate is used when the config file does not provide
// one. It folds the previous summary and the new batch into a fresh summary.
const DefaultSummarizationTemplate = `You maintain a running summary of a conversation between a user and an assistant.

Current summary:
{current_summary}

New conversation since the last summary:
{conversation}

Rewrite the summary so it covers everything above. Keep it concise, factual,
and in the third person. Output only the updated summary.`

// DefaultSystemTemplate is the fallback persona prompt.
const DefaultSystemTemplate = `You are a helpful and professional assistant named {chatbot_name} for {person_name}. Answer questions using the conversation so far and any provided context.`

// Load reads the YAML config at path and applies defaults and environment
// overrides.
//
// # Inputs
//
//   - path: config file path. Empty means VIVA_CONFIG_PATH, falling back to
//     "./config.yaml". A missing file is not an error; defaults apply.
//
// # Outputs
//
//   - *Config: fully defaulted configuration
//   - error: non-nil only when the file exists but cannot be parsed
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VIVA_CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Run on defaults; secrets still come from the environment.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.MessageLimit == 0 {
		c.Cache.MessageLimit = 10
	}
	if c.Cache.TrimKeepLast == 0 {
		// Same value as the trigger threshold. Keeping the full window after
		// a fold preserves the most context for the next prompt; operators
		// can lower it to shrink the cache harder.
		c.Cache.TrimKeepLast = c.Cache.MessageLimit
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.MaxConnections == 0 {
		c.Redis.MaxConnections = 10
	}
	if c.Redis.MaxRetries == 0 {
		c.Redis.MaxRetries = 3
	}
	if c.Redis.RetryBackoffMin == 0 {
		c.Redis.RetryBackoffMin = 100 * time.Millisecond
	}
	if c.Redis.RetryBackoffMax == 0 {
		c.Redis.RetryBackoffMax = 2 * time.Second
	}

	if c.Cassandra.Host == "" {
		c.Cassandra.Host = "localhost"
	}
	if c.Cassandra.Port == 0 {
		c.Cassandra.Port = 9042
	}
	if c.Cassandra.Keyspace == "" {
		c.Cassandra.Keyspace = "viva_chat"
	}
	if c.Cassandra.ReplicationFactor == 0 {
		c.Cassandra.ReplicationFactor = 1
	}

	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 1
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 20
	}

	if c.Weaviate.URL == "" {
		c.Weaviate.URL = "http://localhost:8080"
	}
	if c.Weaviate.TopK == 0 {
		c.Weaviate.TopK = 5
	}

	if c.Models.Chat.Provider == "" {
		c.Models.Chat = ModelConfig{Provider: "openai", Name: "gpt-4o-mini"}
	}
	if c.Models.Summary.Provider == "" {
		c.Models.Summary = ModelConfig{Provider: "openai", Name: "gpt-4o-mini"}
	}

	if c.Prompts.SummarizationTemplate == "" {
		c.Prompts.SummarizationTemplate = DefaultSummarizationTemplate
	}
	if c.Prompts.SystemTemplate == "" {
		c.Prompts.SystemTemplate = DefaultSystemTemplate
	}

	if c.JWT.Algorithm == "" {
		c.JWT.Algorithm = "HS256"
	}
	if c.JWT.AccessTokenLifetime == 0 {
		c.JWT.AccessTokenLifetime = 30 * time.Minute
	}
	if c.JWT.RefreshTokenLifetime == 0 {
		c.JWT.RefreshTokenLifetime = 7 * 24 * time.Hour
	}

	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 1000
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = 200
	}

	if c.Assistant.ChatbotName == "" {
		c.Assistant.ChatbotName = "Viva"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := envInt("REDIS_PORT"); v != 0 {
		c.Redis.Port = v
	}
	if v := os.Getenv("CASSANDRA_HOST"); v != "" {
		c.Cassandra.Host = v
	}
	if v := os.Getenv("CASSANDRA_KEYSPACE"); v != "" {
		c.Cassandra.Keyspace = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("WEAVIATE_SERVICE_URL"); v != "" {
		c.Weaviate.URL = v
	}
	if v := os.Getenv("CACHE_MESSAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MessageLimit = n
		}
	}
	if v := os.Getenv("CACHE_TRIM_KEEP_LAST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.TrimKeepLast = n
		}
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
