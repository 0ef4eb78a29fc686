package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tavolo/tavolo/internal/database"
)

// editableSettings lists the config keys the API allows writing.
var editableSettings = map[string]bool{
	database.ConfigRestaurantName:    true,
	database.ConfigRestaurantAddress: true,
	database.ConfigRestaurantPhone:   true,
}

// handleGetSettings returns all system configuration entries.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sysConfig.GetAll(r.Context())
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpdateSettings writes a batch of key-value settings. Unknown
// keys are rejected so typos do not silently create dead entries.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	for key, value := range updates {
		if !editableSettings[key] {
			writeError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
		if msg := validateStringLen(key, value, maxConfigValueLen); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	for key, value := range updates {
		if err := s.sysConfig.Set(r.Context(), key, value); err != nil {
			slog.Error("failed to save setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": len(updates)})
}
