package duckdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/askdb/askdb/internal/query"
)

func openTestDB(t *testing.T) *Engine {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.duckdb"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewEngine(db)
}

func TestExecuteReturnsColumnsAndRows(t *testing.T) {
	engine := openTestDB(t)
	if _, err := engine.DB.Exec(`CREATE TABLE orders (region VARCHAR, amount INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := engine.DB.Exec(`INSERT INTO orders VALUES ('north', 10), ('south', 20)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	result, err := engine.Execute(context.Background(), query.Request{
		SQL: "SELECT region, SUM(amount) AS total FROM orders GROUP BY region ORDER BY region",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "region" || result.Columns[1] != "total" {
		t.Fatalf("columns = %#v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[0][0] != "north" {
		t.Fatalf("first row = %#v", result.Rows[0])
	}
}

func TestExecuteSupportsTrailingSemicolonWithRowLimit(t *testing.T) {
	engine := openTestDB(t)
	if _, err := engine.DB.Exec(`CREATE TABLE events (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := engine.DB.Exec(`INSERT INTO events SELECT * FROM range(10)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	result, err := engine.Execute(context.Background(), query.Request{
		SQL:      "SELECT id FROM events ORDER BY id;",
		RowLimit: 3,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
}

func TestExecuteWrapsEngineErrors(t *testing.T) {
	engine := openTestDB(t)

	_, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT * FROM missing_table"})
	if err == nil {
		t.Fatal("expected execution error")
	}
	var execErr *query.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T", err)
	}
	if execErr.SQL != "SELECT * FROM missing_table" {
		t.Fatalf("ExecutionError.SQL = %q", execErr.SQL)
	}
}

func TestExecuteRejectsEmptySQL(t *testing.T) {
	engine := openTestDB(t)
	if _, err := engine.Execute(context.Background(), query.Request{SQL: " ; "}); err == nil {
		t.Fatal("expected error for empty sql")
	}
}

func TestStripTrailingSemicolons(t *testing.T) {
	if got := stripTrailingSemicolons("SELECT 1;; "); got != "SELECT 1" {
		t.Fatalf("stripTrailingSemicolons() = %q", got)
	}
}
