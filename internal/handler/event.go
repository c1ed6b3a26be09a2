package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

const defaultEventWindow = 7 * 24 * time.Hour

type EventHandler struct {
	events *store.EventStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewEventHandler(es *store.EventStore, loc *time.Location, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: es, loc: loc, now: time.Now, logger: logger}
}

// List returns the caller's events in [from, to). Both are YYYY-MM-DD dates in
// the household zone; the default is the next seven days from today.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	to := from.Add(defaultEventWindow)

	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeError(w, h.logger, apperr.Invalid("invalid_from", "from must be YYYY-MM-DD"))
			return
		}
		from = t
		to = from.Add(defaultEventWindow)
	}
	if s := q.Get("to"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeError(w, h.logger, apperr.Invalid("invalid_to", "to must be YYYY-MM-DD"))
			return
		}
		to = t
	}
	if !to.After(from) {
		writeError(w, h.logger, apperr.Invalid("invalid_range", "to must be after from"))
		return
	}

	events, err := h.events.ListRange(auth.UserID(r.Context()), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
