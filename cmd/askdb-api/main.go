package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/ingest"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/observability"
	duckdbengine "github.com/askdb/askdb/internal/query/duckdb"
	"github.com/askdb/askdb/internal/resolve"
	"github.com/askdb/askdb/internal/schema"
	s3store "github.com/askdb/askdb/internal/storage/s3"
	"github.com/askdb/askdb/internal/vector"
)

func main() {
	cfg, err := config.LoadFromEnv("askdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := duckdbengine.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	vectorStore, err := vector.Open(
		cfg.VectorStore.DSN,
		cfg.VectorStore.Collection,
		cfg.VectorStore.Dimensions,
		cfg.VectorStore.MaxOpenConns,
		cfg.VectorStore.MaxIdleConns,
	)
	if err != nil {
		logger.Error("failed to open vector store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = vectorStore.Close() }()
	if err := vectorStore.EnsureSchema(context.Background()); err != nil {
		logger.Error("failed to prepare vector store schema", slog.Any("error", err))
		os.Exit(1)
	}

	oracle, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		ChatModel:   cfg.AI.ChatModel,
		EmbedModel:  cfg.AI.EmbedModel,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize ai client", slog.Any("error", err))
		os.Exit(1)
	}

	introspector := schema.NewIntrospector(db, cfg.Chat.SchemaSampleRows)
	retriever := vector.NewRetriever(oracle, vectorStore, cfg.VectorStore.TopK)
	resolver := resolve.NewResolver(
		resolve.NewRouter(),
		introspector,
		resolve.NewGenerator(oracle),
		resolve.NewValidator(oracle),
		duckdbengine.NewEngine(db),
		retriever,
		oracle,
		resolve.Options{
			RowLimit:        cfg.Chat.RowLimit,
			AnalysisEnabled: cfg.Chat.AnalysisEnabled,
			ChartsEnabled:   cfg.Chat.ChartsEnabled,
		},
		logger,
	)

	deps := api.Dependencies{
		Logger:       logger,
		Resolver:     resolver,
		Schemas:      introspector,
		Tables:       ingest.NewTableLoader(db, logger),
		Documents:    ingest.NewDocumentIndexer(oracle, vectorStore, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger),
		HistoryTurns: cfg.Chat.HistoryTurns,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabasePath(cfg),
			api.CheckVectorStoreDSN(cfg),
		),
		DependencyTimeout: time.Second,
	}

	if cfg.ObjectStore.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Sync = ingest.NewObjectSync(objectStore, logger)
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
