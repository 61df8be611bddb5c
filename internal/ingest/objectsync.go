package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/askdb/askdb/internal/storage"
)

// ObjectSync mirrors objects under a bucket prefix into a local
// directory so the table loader and document indexer can pick them up.
type ObjectSync struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func NewObjectSync(store storage.ObjectStore, logger *slog.Logger) *ObjectSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectSync{store: store, logger: logger}
}

// Pull downloads every object under prefix into dir, preserving the key
// path relative to the prefix. Existing local files are overwritten.
func (o *ObjectSync) Pull(ctx context.Context, prefix, dir string) (int, error) {
	infos, err := o.store.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("list bucket objects: %w", err)
	}

	pulled := 0
	for _, info := range infos {
		relative := strings.TrimPrefix(strings.TrimPrefix(info.Key, prefix), "/")
		if relative == "" || strings.HasSuffix(relative, "/") {
			continue
		}
		if err := o.pullObject(ctx, info.Key, filepath.Join(dir, filepath.FromSlash(relative))); err != nil {
			return pulled, err
		}
		pulled++
	}
	o.logger.Info("bucket synced", slog.String("prefix", prefix), slog.Int("objects", pulled))
	return pulled, nil
}

func (o *ObjectSync) pullObject(ctx context.Context, key, target string) error {
	reader, err := o.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %q: %w", target, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %q: %w", target, err)
	}
	return file.Close()
}
