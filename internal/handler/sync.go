package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/google"
	"github.com/dukerupert/famorg/internal/queue"
	"github.com/dukerupert/famorg/internal/secret"
	"github.com/dukerupert/famorg/internal/store"
	"github.com/dukerupert/famorg/internal/syncer"
)

var errGoogleNotLinked = apperr.Conflict("google_not_linked", "google account is not linked")

// TokenProvider yields a usable Google token. *syncer.Tokens satisfies it.
type TokenProvider interface {
	ForUser(ctx context.Context, userID int64) (google.Token, error)
}

type SyncHandler struct {
	users     *store.UserStore
	pub       queue.Publisher
	tokens    TokenProvider
	calendars google.CalendarSource
	box       *secret.Box
	logger    *slog.Logger
}

func NewSyncHandler(us *store.UserStore, pub queue.Publisher, tokens TokenProvider, calendars google.CalendarSource, box *secret.Box, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{users: us, pub: pub, tokens: tokens, calendars: calendars, box: box, logger: logger}
}

func (h *SyncHandler) enqueue(ctx context.Context, kinds []string, userID int64) error {
	for _, kind := range kinds {
		if err := syncer.Enqueue(ctx, h.pub, kind, userID); err != nil {
			return apperr.Unavailable("queue", err)
		}
	}
	return nil
}

type calendarEntry struct {
	google.CalendarInfo
	Selected bool `json:"selected"`
}

// ListCalendars returns the caller's Google calendars, marking the ones chosen for sync.
func (h *SyncHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	u, err := h.users.GetByID(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u == nil {
		writeError(w, h.logger, store.ErrUserNotFound)
		return
	}

	tok, err := h.tokens.ForUser(r.Context(), userID)
	if errors.Is(err, syncer.ErrNoToken) {
		writeError(w, h.logger, errGoogleNotLinked)
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	cals, err := h.calendars.ListCalendars(r.Context(), tok)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	selected := make(map[string]bool, len(u.SyncedCalendars))
	for _, id := range u.SyncedCalendars {
		selected[id] = true
	}
	out := make([]calendarEntry, 0, len(cals))
	for _, c := range cals {
		out = append(out, calendarEntry{CalendarInfo: c, Selected: selected[c.ID]})
	}
	writeJSON(w, http.StatusOK, out)
}

type calendarSelection struct {
	CalendarIDs []string `json:"calendar_ids"`
}

// SelectCalendars stores which calendars to sync and queues a calendar sync.
func (h *SyncHandler) SelectCalendars(w http.ResponseWriter, r *http.Request) {
	var req calendarSelection
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	ids := make([]string, 0, len(req.CalendarIDs))
	for _, id := range req.CalendarIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	userID := auth.UserID(r.Context())
	if err := h.users.SetSyncedCalendars(userID, ids); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.enqueue(r.Context(), []string{queue.KindCalendarSync}, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"calendar_ids": ids})
}

type go4schoolsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetGo4Schools stores encrypted portal credentials and queues a homework sync.
func (h *SyncHandler) SetGo4Schools(w http.ResponseWriter, r *http.Request) {
	var req go4schoolsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, h.logger, apperr.Invalid("credentials_required", "email and password are required"))
		return
	}

	sealed, err := h.box.Seal(req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID := auth.UserID(r.Context())
	if err := h.users.SaveGo4Schools(userID, req.Email, sealed); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.enqueue(r.Context(), []string{queue.KindGo4SchoolsSync}, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Trigger queues every sync the caller is set up for.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	creds, err := h.users.GetCredentials(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var kinds []string
	if creds.GoogleRefreshToken != "" || creds.GoogleAccessToken != "" {
		kinds = append(kinds, queue.KindCalendarSync, queue.KindTasksSync)
	}
	if creds.Go4SchoolsEmail != "" && len(creds.Go4SchoolsPassword) > 0 {
		kinds = append(kinds, queue.KindGo4SchoolsSync)
	}
	if len(kinds) == 0 {
		writeError(w, h.logger, apperr.Conflict("nothing_to_sync", "no linked accounts"))
		return
	}
	if err := h.enqueue(r.Context(), kinds, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string][]string{"queued": kinds})
}
