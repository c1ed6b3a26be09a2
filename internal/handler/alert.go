package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/famorg/internal/assistant"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

type AlertHandler struct {
	alerts   *store.AlertStore
	analyzer *assistant.Analyzer
	logger   *slog.Logger
}

func NewAlertHandler(as *store.AlertStore, analyzer *assistant.Analyzer, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{alerts: as, analyzer: analyzer, logger: logger}
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.ListActive(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// own loads the alert named in the path and checks it belongs to the caller.
func (h *AlertHandler) own(r *http.Request) (*model.Alert, error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		return nil, err
	}
	a, err := h.alerts.GetByID(id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.UserID != auth.UserID(r.Context()) {
		return nil, assistant.ErrAlertNotFound
	}
	return a, nil
}

type feedbackRequest struct {
	Feedback int `json:"feedback"`
}

func (h *AlertHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	a, err := h.own(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.analyzer.Feedback(a.ID, req.Feedback); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AlertHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	a, err := h.own(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.alerts.Dismiss(a.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
