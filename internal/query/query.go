package query

import (
	"context"
	"time"
)

type Request struct {
	SQL      string
	RowLimit int
}

// ResultSet is the canonical tabular form every downstream consumer sees:
// column names in order plus rows of scalars.
type ResultSet struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

func (r ResultSet) HasColumn(name string) bool {
	for _, column := range r.Columns {
		if column == name {
			return true
		}
	}
	return false
}

type Engine interface {
	Execute(ctx context.Context, request Request) (ResultSet, error)
}

// ExecutionError wraps the underlying engine's error text unmodified; the
// text is often the most useful diagnostic for the user's next attempt.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return "execute query: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
