package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Report summarizes one tabular load: tables created or replaced and
// files that were skipped with the reason.
type Report struct {
	Loaded  []string          `json:"loaded"`
	Skipped map[string]string `json:"skipped,omitempty"`
}

// TableLoader turns data files into DuckDB tables, one table per file,
// named after the file stem. Loading a file whose table already exists
// replaces the table.
type TableLoader struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTableLoader(db *sql.DB, logger *slog.Logger) *TableLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableLoader{db: db, logger: logger}
}

var identPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// tableNameFor derives a table name from a file path: the stem,
// lowercased, with anything outside [a-z0-9_] collapsed to underscores.
func tableNameFor(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := identPattern.ReplaceAllString(strings.ToLower(stem), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "table_unnamed"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name
}

// LoadDirectory ingests every supported file (csv, xlsx, parquet) in
// dir. Unsupported or failing files are reported as skipped; one bad
// file does not abort the rest.
func (l *TableLoader) LoadDirectory(ctx context.Context, dir string) (Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{}, fmt.Errorf("read ingest directory: %w", err)
	}

	report := Report{Skipped: map[string]string{}}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		table, err := l.LoadFile(ctx, path)
		if err != nil {
			report.Skipped[name] = err.Error()
			l.logger.Warn("skipped tabular file", slog.String("file", name), slog.String("reason", err.Error()))
			continue
		}
		report.Loaded = append(report.Loaded, table)
	}
	if len(report.Skipped) == 0 {
		report.Skipped = nil
	}
	return report, nil
}

// LoadFile ingests a single file and returns the table name it fed.
func (l *TableLoader) LoadFile(ctx context.Context, path string) (string, error) {
	table := tableNameFor(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return table, l.replaceFromSource(ctx, table, "read_csv_auto", path)
	case ".parquet":
		return table, l.replaceFromSource(ctx, table, "read_parquet", path)
	case ".xlsx":
		csvPath, cleanup, err := convertWorkbook(path)
		if err != nil {
			return "", err
		}
		defer cleanup()
		return table, l.replaceFromSource(ctx, table, "read_csv_auto", csvPath)
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func (l *TableLoader) replaceFromSource(ctx context.Context, table, reader, path string) error {
	stmt := fmt.Sprintf(`CREATE OR REPLACE TABLE %q AS SELECT * FROM %s(%s)`, table, reader, quoteLiteral(path))
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("load %s into %q: %w", filepath.Base(path), table, err)
	}
	l.logger.Info("table loaded", slog.String("table", table), slog.String("file", filepath.Base(path)))
	return nil
}

// convertWorkbook writes the first sheet of an xlsx workbook to a
// temporary CSV file DuckDB can read. The caller removes the file.
func convertWorkbook(path string) (string, func(), error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = book.Close() }()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	tmp, err := os.CreateTemp("", "askdb-xlsx-*.csv")
	if err != nil {
		return "", nil, fmt.Errorf("create temp csv: %w", err)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				if _, err := tmp.WriteString(","); err != nil {
					_ = tmp.Close()
					_ = os.Remove(tmp.Name())
					return "", nil, fmt.Errorf("write temp csv: %w", err)
				}
			}
			if _, err := tmp.WriteString(csvField(cell)); err != nil {
				_ = tmp.Close()
				_ = os.Remove(tmp.Name())
				return "", nil, fmt.Errorf("write temp csv: %w", err)
			}
		}
		if _, err := tmp.WriteString("\n"); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return "", nil, fmt.Errorf("write temp csv: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("close temp csv: %w", err)
	}
	return tmp.Name(), func() { _ = os.Remove(tmp.Name()) }, nil
}

func csvField(value string) string {
	if strings.ContainsAny(value, ",\"\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
