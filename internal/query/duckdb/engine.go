package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
)

// Engine executes SQL against a persistent DuckDB database. The same handle
// is shared with the schema introspector and the tabular loader.
type Engine struct {
	DB *sql.DB
}

func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{DB: db}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.ResultSet, error) {
	if e.DB == nil {
		return query.ResultSet{}, fmt.Errorf("database handle is required")
	}
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.ResultSet{}, fmt.Errorf("sql is required")
	}
	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit)
	}

	start := time.Now()
	rows, err := e.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return query.ResultSet{}, &query.ExecutionError{SQL: request.SQL, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.ResultSet{}, &query.ExecutionError{SQL: request.SQL, Err: fmt.Errorf("query columns: %w", err)}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.ResultSet{}, &query.ExecutionError{SQL: request.SQL, Err: fmt.Errorf("scan row: %w", err)}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.ResultSet{}, &query.ExecutionError{SQL: request.SQL, Err: fmt.Errorf("iterate rows: %w", err)}
	}

	elapsed := time.Since(start)
	observability.ObserveSQLExecution(elapsed)
	return query.ResultSet{
		Columns:  columns,
		Rows:     resultRows,
		Duration: elapsed,
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
