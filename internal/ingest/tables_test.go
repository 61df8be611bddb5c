package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/askdb/askdb/internal/query/duckdb"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileCreatesTableFromCSV(t *testing.T) {
	dir := t.TempDir()
	db, err := duckdb.Open(filepath.Join(dir, "askdb.duckdb"))
	if err != nil {
		t.Fatalf("duckdb.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	path := writeFile(t, dir, "orders.csv", "region,amount\nnorth,10\nsouth,20\n")
	loader := NewTableLoader(db, nil)

	table, err := loader.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if table != "orders" {
		t.Fatalf("table = %q", table)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d", count)
	}
}

func TestLoadFileReplacesExistingTable(t *testing.T) {
	dir := t.TempDir()
	db, err := duckdb.Open(filepath.Join(dir, "askdb.duckdb"))
	if err != nil {
		t.Fatalf("duckdb.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	path := writeFile(t, dir, "orders.csv", "region,amount\nnorth,10\n")
	loader := NewTableLoader(db, nil)
	if _, err := loader.LoadFile(context.Background(), path); err != nil {
		t.Fatalf("first LoadFile() error = %v", err)
	}

	path = writeFile(t, dir, "orders.csv", "region,amount\nnorth,10\nsouth,20\neast,5\n")
	if _, err := loader.LoadFile(context.Background(), path); err != nil {
		t.Fatalf("second LoadFile() error = %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d", count)
	}
}

func TestLoadFileXLSXConvertsFirstSheet(t *testing.T) {
	dir := t.TempDir()
	db, err := duckdb.Open(filepath.Join(dir, "askdb.duckdb"))
	if err != nil {
		t.Fatalf("duckdb.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	cells := [][]any{
		{"region", "amount"},
		{"north", 10},
		{"south", 20},
	}
	for r, row := range cells {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := book.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	workbookPath := filepath.Join(dir, "sales 2024.xlsx")
	if err := book.SaveAs(workbookPath); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	loader := NewTableLoader(db, nil)
	table, err := loader.LoadFile(context.Background(), workbookPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if table != "sales_2024" {
		t.Fatalf("table = %q", table)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sales_2024`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d", count)
	}
}

func TestLoadDirectorySkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.Mkdir(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	db, err := duckdb.Open(filepath.Join(dir, "askdb.duckdb"))
	if err != nil {
		t.Fatalf("duckdb.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	writeFile(t, dataDir, "orders.csv", "region,amount\nnorth,10\n")
	writeFile(t, dataDir, "readme.docx", "not tabular")

	loader := NewTableLoader(db, nil)
	report, err := loader.LoadDirectory(context.Background(), dataDir)
	if err != nil {
		t.Fatalf("LoadDirectory() error = %v", err)
	}
	if len(report.Loaded) != 1 || report.Loaded[0] != "orders" {
		t.Fatalf("Loaded = %#v", report.Loaded)
	}
	if _, ok := report.Skipped["readme.docx"]; !ok {
		t.Fatalf("Skipped = %#v", report.Skipped)
	}
}

func TestTableNameFor(t *testing.T) {
	cases := map[string]string{
		"/data/Orders.csv":        "orders",
		"/data/sales 2024.xlsx":   "sales_2024",
		"/data/2024-sales.csv":    "t_2024_sales",
		"/data/__weird--@@.csv":   "weird",
		"/data/....csv":           "table_unnamed",
		"/data/Region-Totals.csv": "region_totals",
	}
	for path, want := range cases {
		if got := tableNameFor(path); got != want {
			t.Fatalf("tableNameFor(%q) = %q, want %q", path, got, want)
		}
	}
}
