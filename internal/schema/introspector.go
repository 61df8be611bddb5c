package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableHandle carries everything query generation needs to reference a table
// accurately: its exact column names and types plus a few sample rows.
// Handles are fetched fresh per resolution; ingestion can change the schema
// between turns.
type TableHandle struct {
	Name       string   `json:"table_name"`
	Columns    []Column `json:"columns"`
	SampleRows [][]any  `json:"sample_rows"`
}

func (h TableHandle) ColumnNames() []string {
	names := make([]string, 0, len(h.Columns))
	for _, column := range h.Columns {
		names = append(names, column.Name)
	}
	return names
}

type UnknownTableError struct {
	Name string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Name)
}

// Introspector reads table metadata from the relational engine. It is a
// leaf: no caching, no knowledge of the pipeline above it.
type Introspector struct {
	DB         *sql.DB
	SampleRows int
}

func NewIntrospector(db *sql.DB, sampleRows int) *Introspector {
	if sampleRows <= 0 {
		sampleRows = 3
	}
	return &Introspector{DB: db, SampleRows: sampleRows}
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.DB.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// DescribeTables resolves every requested name or fails entirely; a partial
// schema would let hallucinated column names slip through downstream.
func (i *Introspector) DescribeTables(ctx context.Context, names []string) ([]TableHandle, error) {
	handles := make([]TableHandle, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		handle, err := i.describeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func (i *Introspector) describeTable(ctx context.Context, name string) (TableHandle, error) {
	rows, err := i.DB.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`,
		name)
	if err != nil {
		return TableHandle{}, fmt.Errorf("describe table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	handle := TableHandle{Name: name}
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return TableHandle{}, fmt.Errorf("scan column of %q: %w", name, err)
		}
		handle.Columns = append(handle.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return TableHandle{}, fmt.Errorf("iterate columns of %q: %w", name, err)
	}
	if len(handle.Columns) == 0 {
		return TableHandle{}, &UnknownTableError{Name: name}
	}

	samples, err := i.sampleRows(ctx, name)
	if err != nil {
		return TableHandle{}, err
	}
	handle.SampleRows = samples
	return handle, nil
}

func (i *Introspector) sampleRows(ctx context.Context, name string) ([][]any, error) {
	rows, err := i.DB.QueryContext(ctx,
		"SELECT * FROM "+quoteIdent(name)+" LIMIT "+strconv.Itoa(i.SampleRows))
	if err != nil {
		return nil, fmt.Errorf("sample rows of %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sample columns of %q: %w", name, err)
	}

	samples := make([][]any, 0, i.SampleRows)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for idx := range values {
			scanTargets[idx] = &values[idx]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan sample row of %q: %w", name, err)
		}
		for idx, value := range values {
			if raw, ok := value.([]byte); ok {
				values[idx] = string(raw)
			}
		}
		samples = append(samples, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample rows of %q: %w", name, err)
	}
	return samples, nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
