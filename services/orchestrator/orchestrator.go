// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator assembles the conversational backend: the durable
// transcript, the hot window, the summarization pipeline, the model
// clients, and the HTTP surface.
//
// # Usage
//
//	cfg, _ := config.Load("")
//	svc, err := orchestrator.New(orchestrator.Config{Port: 12210}, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vivalabs/viva/pkg/auth"
	"github.com/vivalabs/viva/pkg/config"
	"github.com/vivalabs/viva/services/cache"
	"github.com/vivalabs/viva/services/llm"
	"github.com/vivalabs/viva/services/orchestrator/coordinator"
	"github.com/vivalabs/viva/services/orchestrator/observability"
	"github.com/vivalabs/viva/services/orchestrator/routes"
	"github.com/vivalabs/viva/services/orchestrator/services"
	"github.com/vivalabs/viva/services/transcript"
	"github.com/vivalabs/viva/services/vectorstore"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator runtime options. Zero values use defaults; the
// shared application config carries the rest.
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "viva-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics registers the conversation pipeline's Prometheus
	// collectors. The /metrics endpoint is always served; with this off it
	// only carries the default process collectors.
	EnableMetrics bool

	// InMemoryTranscript swaps Cassandra for the in-process store. Meant
	// for single-node and development deployments.
	InMemoryTranscript bool

	// DisableRetrieval skips the Weaviate connection; chat runs without
	// document grounding.
	DisableRetrieval bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// Service is the assembled orchestrator.
type Service struct {
	config        Config
	appCfg        *config.Config
	router        *gin.Engine
	coord         *coordinator.Coordinator
	window        *cache.RedisStore
	transcripts   transcript.Store
	tracerCleanup func(context.Context)
}

// New wires every component per the application config.
//
// # Description
//
// Initialization order matters: tracing first so every later init is
// traced, then stores (durable before cache; the transcript store is the
// component we cannot run without), then model clients, then the router.
// The hot window store failing to connect is NOT fatal; the pipeline runs
// durable-only until Redis comes back.
//
// # Inputs
//
//   - cfg: runtime options; zero values use defaults.
//   - appCfg: loaded application config. Must not be nil.
//
// # Outputs
//
//   - *Service: ready to Run
//   - error: non-nil when a required component failed to initialize
func New(cfg Config, appCfg *config.Config) (*Service, error) {
	s := &Service{config: applyConfigDefaults(cfg), appCfg: appCfg}

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	var metrics *observability.ConversationMetrics
	if s.config.EnableMetrics {
		metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for the conversation pipeline")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.config.InMemoryTranscript {
		s.transcripts = transcript.NewMemoryStore()
		slog.Warn("Using in-memory transcript store, conversations will not survive a restart")
	} else {
		store, err := transcript.NewCassandraStore(appCfg.Cassandra)
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to initialize transcript store: %w", err)
		}
		s.transcripts = store
	}

	window, err := cache.NewRedisStore(ctx, appCfg.Redis)
	if err != nil {
		// Degraded from the start: durable-only until Redis comes back.
		slog.Warn("Hot window store unreachable at startup, running durable-only", "error", err)
		window = nil
	}
	s.window = window
	var hotWindow cache.HotWindowStore
	if window != nil {
		hotWindow = window
	} else {
		hotWindow = cache.Unavailable{}
	}

	summaryClient, err := llm.NewClient(appCfg.Models.Summary)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize summary model client: %w", err)
	}
	chatClient, err := llm.NewClient(appCfg.Models.Chat)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize chat model client: %w", err)
	}

	summarizer := coordinator.NewSummarizer(summaryClient, appCfg.Prompts.SummarizationTemplate)
	s.coord = coordinator.New(s.transcripts, hotWindow, summarizer, coordinator.Config{
		MessageLimit: appCfg.Cache.MessageLimit,
		TrimKeepLast: appCfg.Cache.TrimKeepLast,
	}, metrics)

	var retriever services.Retriever
	if !s.config.DisableRetrieval {
		vs, err := vectorstore.NewService(ctx, appCfg.Weaviate, appCfg.Chunking)
		if err != nil {
			slog.Warn("Vector store initialization failed, chat runs ungrounded", "error", err)
		} else {
			retriever = vs
		}
	}

	chat := services.NewChatService(s.coord, chatClient, retriever, appCfg.Prompts, appCfg.Assistant)

	issuer, err := auth.NewTokenIssuer(appCfg.JWT.AccessTokenLifetime, appCfg.JWT.RefreshTokenLifetime)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	s.initRouter(chat, issuer)
	return s, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then drains
// in-flight summarization cycles before returning.
func (s *Service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting orchestrator server", "port", s.config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}
	// Background cycles get the remainder of the shutdown budget.
	if err := s.coord.Close(shutdownCtx); err != nil {
		slog.Warn("Coordinator drain incomplete", "error", err)
	}
	return nil
}

// Router returns the underlying Gin engine for testing.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "viva-otel-collector:4317"
	}
	return cfg
}

// initTracer sets up the OTLP trace exporter against the configured
// collector. Uses an insecure gRPC connection, appropriate for internal
// networks.
func (s *Service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("orchestrator-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}
	return cleanup, nil
}

func (s *Service) initRouter(chat *services.ChatService, issuer *auth.TokenIssuer) {
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("orchestrator-service"))

	routes.SetupRoutes(s.router, routes.Deps{
		Coordinator: s.coord,
		Chat:        chat,
		Issuer:      issuer,
		Healthcheck: s.healthcheck,
	})
}

// healthcheck reports healthy while the durable store answers; a missing
// hot window only degrades.
func (s *Service) healthcheck(c *gin.Context) {
	if err := s.transcripts.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	degraded := s.window == nil || s.window.Ping(c.Request.Context()) != nil
	if degraded {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "cache": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Service) cleanup() {
	if s.window != nil {
		if err := s.window.Close(); err != nil {
			slog.Warn("Hot window store close error", "error", err)
		}
	}
	if closer, ok := s.transcripts.(interface{ Close() }); ok {
		closer.Close()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
