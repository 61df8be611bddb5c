package api

import (
	"net/http"

	"github.com/askdb/askdb/internal/schema"
)

type schemaResponse struct {
	Tables []schema.TableHandle `json:"tables"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	names, err := deps.Schemas.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_UNAVAILABLE", err.Error(), true, nil)
		return
	}
	if len(names) == 0 {
		writeJSON(w, http.StatusOK, schemaResponse{Tables: []schema.TableHandle{}})
		return
	}
	handles, err := deps.Schemas.DescribeTables(r.Context(), names)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_UNAVAILABLE", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Tables: handles})
}
