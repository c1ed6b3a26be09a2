package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

type PreferencesHandler struct {
	prefs  *store.PreferencesStore
	logger *slog.Logger
}

func NewPreferencesHandler(ps *store.PreferencesStore, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefs: ps, logger: logger}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.prefs.Get(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update applies a partial change. Only display_color and show_league_table
// may be set; any other key is rejected.
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.PreferencesPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, h.logger, apperr.Invalid("invalid_preferences", "unknown or malformed preference fields"))
		return
	}

	p, err := h.prefs.Apply(auth.UserID(r.Context()), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
