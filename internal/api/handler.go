// Package api exposes the HTTP surface: health and readiness probes,
// metrics, the chat endpoint, schema inspection, and ingest triggers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/ingest"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/resolve"
)

type ReadinessCheck func(ctx context.Context) error

// QueryResolver is the chat endpoint's view of the pipeline.
type QueryResolver interface {
	Resolve(ctx context.Context, question string, history []resolve.Turn) resolve.PipelineResult
}

// TableIngestor loads tabular files from a directory.
type TableIngestor interface {
	LoadDirectory(ctx context.Context, dir string) (ingest.Report, error)
}

// DocumentIngestor indexes document files from a directory.
type DocumentIngestor interface {
	IndexDirectory(ctx context.Context, dir string) (ingest.Report, error)
}

// BucketSyncer mirrors bucket objects into a local directory before an
// ingest run. Nil when no object store is configured.
type BucketSyncer interface {
	Pull(ctx context.Context, prefix, dir string) (int, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Resolver          QueryResolver
	Schemas           resolve.SchemaSource
	Tables            TableIngestor
	Documents         DocumentIngestor
	Sync              BucketSyncer
	Sessions          *SessionStore
	HistoryTurns      int
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Sessions == nil {
		deps.Sessions = NewSessionStore(deps.HistoryTurns)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	protected.HandleFunc("POST /v1/ingest/tables", func(w http.ResponseWriter, r *http.Request) {
		handleIngestTables(deps, w, r)
	})
	protected.HandleFunc("POST /v1/ingest/documents", func(w http.ResponseWriter, r *http.Request) {
		handleIngestDocuments(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/chat", protectedHandler)
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/ingest/tables", protectedHandler)
	mux.Handle("POST /v1/ingest/documents", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDatabasePath(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Database.Path == "" {
			return errors.New("database path is not configured")
		}
		return nil
	}
}

func CheckVectorStoreDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.VectorStore.DSN == "" {
			return errors.New("vector store dsn is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
