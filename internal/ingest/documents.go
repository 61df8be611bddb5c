package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/vector"
)

// ChunkStore is the slice of the vector store the indexer writes to.
type ChunkStore interface {
	Replace(ctx context.Context, source string, chunks []vector.Chunk, embeddings [][]float32) error
}

// DocumentIndexer chunks and embeds txt and pdf files into the vector
// store. Re-indexing a file replaces its previous chunks.
type DocumentIndexer struct {
	embedder  llm.Embedder
	store     ChunkStore
	chunkSize int
	overlap   int
	batchSize int
	logger    *slog.Logger
}

func NewDocumentIndexer(embedder llm.Embedder, store ChunkStore, chunkSize, overlap int, logger *slog.Logger) *DocumentIndexer {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 200
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentIndexer{
		embedder:  embedder,
		store:     store,
		chunkSize: chunkSize,
		overlap:   overlap,
		batchSize: 64,
		logger:    logger,
	}
}

// IndexDirectory indexes every txt and pdf file in dir. Files that fail
// to parse are reported as skipped without aborting the rest.
func (d *DocumentIndexer) IndexDirectory(ctx context.Context, dir string) (Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{}, fmt.Errorf("read document directory: %w", err)
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
		if err := d.IndexFile(ctx, path); err != nil {
			report.Skipped[name] = err.Error()
			d.logger.Warn("skipped document", slog.String("file", name), slog.String("reason", err.Error()))
			continue
		}
		report.Loaded = append(report.Loaded, name)
	}
	if len(report.Skipped) == 0 {
		report.Skipped = nil
	}
	return report, nil
}

// IndexFile extracts text from one file, chunks it, embeds the chunks,
// and replaces the file's entries in the store.
func (d *DocumentIndexer) IndexFile(ctx context.Context, path string) error {
	text, err := extractText(path)
	if err != nil {
		return err
	}
	pieces := SplitText(text, d.chunkSize, d.overlap)
	if len(pieces) == 0 {
		return fmt.Errorf("no text content in %s", filepath.Base(path))
	}

	source := filepath.Base(path)
	chunks := make([]vector.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = vector.Chunk{Source: source, Ordinal: i, Content: piece}
	}

	embeddings := make([][]float32, 0, len(pieces))
	for start := 0; start < len(pieces); start += d.batchSize {
		end := start + d.batchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := d.embedder.Embed(ctx, pieces[start:end])
		if err != nil {
			return fmt.Errorf("embed %s: %w", source, err)
		}
		embeddings = append(embeddings, batch...)
	}

	if err := d.store.Replace(ctx, source, chunks, embeddings); err != nil {
		return err
	}
	d.logger.Info("document indexed", slog.String("file", source), slog.Int("chunks", len(chunks)))
	return nil
}

func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(path)
	default:
		return "", fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

func extractPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", filepath.Base(path), err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", filepath.Base(path), err)
	}
	return buf.String(), nil
}
