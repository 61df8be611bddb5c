package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/vector"
	"github.com/askdb/askdb/internal/viz"
)

// SchemaSource is the slice of the introspector the pipeline needs.
type SchemaSource interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTables(ctx context.Context, names []string) ([]schema.TableHandle, error)
}

// ContextRetriever answers the unstructured route.
type ContextRetriever interface {
	Retrieve(ctx context.Context, question string) (vector.RetrievedContext, error)
}

// Options tune one resolver instance.
type Options struct {
	RowLimit        int
	AnalysisEnabled bool
	ChartsEnabled   bool
}

// Resolver drives one question through route, generation, validation,
// execution, and optional charting. Every failure surfaces as an error
// result; Resolve never returns a Go error.
type Resolver struct {
	router    *Router
	schemas   SchemaSource
	generator *Generator
	validator *Validator
	engine    query.Engine
	retriever ContextRetriever
	completer llm.Completer
	options   Options
	logger    *slog.Logger
}

func NewResolver(
	router *Router,
	schemas SchemaSource,
	generator *Generator,
	validator *Validator,
	engine query.Engine,
	retriever ContextRetriever,
	completer llm.Completer,
	options Options,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		router:    router,
		schemas:   schemas,
		generator: generator,
		validator: validator,
		engine:    engine,
		retriever: retriever,
		completer: completer,
		options:   options,
		logger:    logger,
	}
}

// Resolve answers one question given the retained conversation turns.
func (r *Resolver) Resolve(ctx context.Context, question string, history []Turn) PipelineResult {
	started := time.Now()
	route := r.router.Route(question)

	var result PipelineResult
	switch route {
	case RouteUnstructured:
		result = r.resolveUnstructured(ctx, question)
	default:
		result = r.resolveStructured(ctx, question, history)
	}

	outcome := string(result.Kind)
	observability.ObserveResolution(string(route), outcome, time.Since(started))
	r.logger.Info("question resolved",
		slog.String("route", string(route)),
		slog.String("kind", outcome),
		slog.Duration("elapsed", time.Since(started)),
	)
	return result
}

func (r *Resolver) resolveStructured(ctx context.Context, question string, history []Turn) PipelineResult {
	tables, err := r.schemas.ListTables(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("could not list tables: %v", err))
	}
	if len(tables) == 0 {
		return errorResult("no tables have been ingested yet")
	}
	handles, err := r.schemas.DescribeTables(ctx, tables)
	if err != nil {
		return errorResult(fmt.Sprintf("could not describe tables: %v", err))
	}

	validated, err := r.generateValidated(ctx, question, history, handles, tables)
	if err != nil {
		return errorResult(err.Error())
	}

	rs, err := r.engine.Execute(ctx, query.Request{SQL: validated, RowLimit: r.options.RowLimit})
	if err != nil {
		return errorResult(fmt.Sprintf("query failed: %v", err))
	}

	raw := ComposeQueryResults(validated, &rs)
	result := PipelineResult{Kind: KindTable, SQL: validated, Table: &rs, Raw: raw}

	analysis := ""
	if r.options.AnalysisEnabled {
		analysis = r.analyze(ctx, question, validated, &rs)
		if analysis != "" {
			result.Text = analysis
		}
	}

	if r.options.ChartsEnabled {
		r.attachChart(&result, question, validated, &rs, analysis)
	}
	return result
}

// attachChart tries to add a figure to a table result. Chart failures
// never fail the turn; the tabular result stands with a note about the
// omitted chart.
func (r *Resolver) attachChart(result *PipelineResult, question, sql string, rs *query.ResultSet, analysis string) {
	spec, err := viz.Select(rs, question)
	if err != nil {
		r.logger.Debug("no chart for result", slog.String("reason", err.Error()))
		if viz.ChartRequested(question) {
			result.Text = strings.TrimSpace(result.Text + "\n\nChart omitted: " + err.Error())
		}
		return
	}
	spec.SQL = sql
	figure, err := viz.Render(spec, rs)
	if err != nil {
		r.logger.Warn("chart rendering failed", slog.String("error", err.Error()))
		result.Text = strings.TrimSpace(result.Text + "\n\nChart omitted: " + err.Error())
		return
	}
	result.Kind = KindChart
	result.Chart = figure
	result.Raw = result.Raw + "\n" + ComposeAnalysis(analysis, spec)
}

// generateValidated produces a validator-accepted statement that passed
// the static read-only gate. One regeneration is attempted when the
// validator rejects; a second rejection surfaces to the user.
func (r *Resolver) generateValidated(ctx context.Context, question string, history []Turn, handles []schema.TableHandle, tables []string) (string, error) {
	feedback := ""
	for attempt := 0; attempt < 2; attempt++ {
		candidate, err := r.generator.Generate(ctx, question, history, handles, feedback)
		if err != nil {
			return "", fmt.Errorf("could not generate a query: %w", err)
		}

		accepted, err := r.validator.Validate(ctx, candidate, handles)
		if err != nil {
			var rejection *RejectionError
			if errors.As(err, &rejection) && attempt == 0 {
				observability.IncrementGenerationRetry()
				feedback = rejection.Reason
				r.logger.Info("regenerating after rejection", slog.String("reason", rejection.Reason))
				continue
			}
			return "", fmt.Errorf("query was rejected: %w", err)
		}

		if err := EnsureReadOnly(accepted, tables); err != nil {
			return "", err
		}
		return accepted, nil
	}
	return "", fmt.Errorf("query was rejected after retry")
}

const answerSystemPrompt = "You answer questions using only the provided context. " +
	"If the context does not contain the answer, say so plainly."

func (r *Resolver) resolveUnstructured(ctx context.Context, question string) PipelineResult {
	retrieved, err := r.retriever.Retrieve(ctx, question)
	if err != nil {
		return errorResult(fmt.Sprintf("could not search documents: %v", err))
	}
	if retrieved.Empty() {
		return plainText("No stored documents matched the question.")
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", retrieved.Joined(), question)
	answer, err := r.completer.Complete(ctx, answerSystemPrompt, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return errorResult(fmt.Sprintf("could not compose an answer: %v", err))
	}
	return plainText(strings.TrimSpace(answer))
}

const analysisSystemPrompt = "You summarize SQL query results for an analyst in two or three sentences. " +
	"Mention concrete values. No markdown."

// analyze asks the oracle for a short summary of the rows. Failures are
// non-fatal; the table result is returned without commentary.
func (r *Resolver) analyze(ctx context.Context, question, sql string, rs *query.ResultSet) string {
	prompt := fmt.Sprintf("Question:\n%s\n\nSQL:\n%s\n\n%s", question, sql, ComposeQueryResults(sql, rs))
	summary, err := r.completer.Complete(ctx, analysisSystemPrompt, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		r.logger.Warn("analysis failed", slog.String("error", err.Error()))
		return ""
	}
	return strings.TrimSpace(summary)
}
