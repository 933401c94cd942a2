package api

import (
	"net/http"
	"strings"

	"github.com/dbchat/dbchat/internal/nl2sql"
)

type translateRequest struct {
	Prompt string `json:"prompt"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema source is not configured", false, nil)
		return
	}
	snapshot := deps.Schema.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"schema":        deps.Schema.SchemaName(),
		"dialect":       deps.Dialect,
		"tables":        snapshot.Tables,
		"columns":       snapshot.Columns,
		"relationships": snapshot.Relationships,
	})
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema source is not configured", false, nil)
		return
	}

	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translation request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required", false, nil)
		return
	}

	snapshot := deps.Schema.Snapshot(r.Context())
	result, err := deps.Translator.Translate(r.Context(), nl2sql.RequestFromSnapshot(req.Prompt, deps.Dialect, snapshot))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATE_FAILED", "failed to translate query", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sql":      result.SQL,
		"provider": result.Provider,
		"model":    result.Model,
	})
}
