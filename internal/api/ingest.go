package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/askdb/askdb/internal/ingest"
)

type ingestRequest struct {
	// Directory on the server holding the files to ingest.
	Directory string `json:"directory"`
	// BucketPrefix, when set, pulls objects under this prefix from the
	// configured object store into a temporary directory first.
	BucketPrefix string `json:"bucket_prefix"`
}

type ingestResponse struct {
	Report ingest.Report `json:"report"`
	Synced int           `json:"synced,omitempty"`
}

func handleIngestTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	runIngest(deps, w, r, func(ctx context.Context, dir string) (ingest.Report, error) {
		return deps.Tables.LoadDirectory(ctx, dir)
	})
}

func handleIngestDocuments(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	runIngest(deps, w, r, func(ctx context.Context, dir string) (ingest.Report, error) {
		return deps.Documents.IndexDirectory(ctx, dir)
	})
}

func runIngest(deps Dependencies, w http.ResponseWriter, r *http.Request, load func(context.Context, string) (ingest.Report, error)) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON", false, nil)
		return
	}

	synced := 0
	dir := req.Directory
	switch {
	case req.BucketPrefix != "":
		if deps.Sync == nil {
			writeError(r.Context(), w, http.StatusBadRequest, "OBJECT_STORE_DISABLED", "no object store is configured", false, nil)
			return
		}
		tmp, err := os.MkdirTemp("", "askdb-sync-*")
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "SYNC_FAILED", err.Error(), true, nil)
			return
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		n, err := deps.Sync.Pull(r.Context(), req.BucketPrefix, tmp)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "SYNC_FAILED", err.Error(), true, nil)
			return
		}
		synced = n
		dir = tmp
	case dir == "":
		writeError(r.Context(), w, http.StatusBadRequest, "DIRECTORY_REQUIRED", "directory or bucket_prefix is required", false, nil)
		return
	}

	report, err := load(r.Context(), dir)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INGEST_FAILED", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Report: report, Synced: synced})
}
