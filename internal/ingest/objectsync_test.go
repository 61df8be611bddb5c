package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/storage"
)

type fakeObjectStore struct {
	objects map[string]string
}

func (f *fakeObjectStore) Put(_ context.Context, key string, _ io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key}, nil
}

func (f *fakeObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeObjectStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var infos []storage.ObjectInfo
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{Key: key, Size: int64(len(f.objects[key]))})
		}
	}
	return infos, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func TestPullMirrorsObjectsIntoDirectory(t *testing.T) {
	store := &fakeObjectStore{objects: map[string]string{
		"tables/orders.csv":   "region,amount\nnorth,10\n",
		"tables/regions.csv":  "code,name\nn,North\n",
		"docs/handbook.txt":   "refund policy",
		"unrelated/other.bin": "skip me",
	}}
	sync := NewObjectSync(store, nil)
	dir := t.TempDir()

	pulled, err := sync.Pull(context.Background(), "tables", dir)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if pulled != 2 {
		t.Fatalf("pulled = %d", pulled)
	}

	data, err := os.ReadFile(filepath.Join(dir, "orders.csv"))
	if err != nil {
		t.Fatalf("read mirrored file: %v", err)
	}
	if !strings.Contains(string(data), "north,10") {
		t.Fatalf("content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "handbook.txt")); !os.IsNotExist(err) {
		t.Fatal("object outside prefix was mirrored")
	}
}

func TestPullOverwritesExistingFiles(t *testing.T) {
	store := &fakeObjectStore{objects: map[string]string{
		"tables/orders.csv": "fresh",
	}}
	sync := NewObjectSync(store, nil)
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", "stale")

	if _, err := sync.Pull(context.Background(), "tables", dir); err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "orders.csv"))
	if err != nil {
		t.Fatalf("read mirrored file: %v", err)
	}
	if string(data) != "fresh" {
		t.Fatalf("content = %q", data)
	}
}
