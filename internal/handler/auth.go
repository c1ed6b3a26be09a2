package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/google"
	"github.com/dukerupert/famorg/internal/middleware"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/queue"
	"github.com/dukerupert/famorg/internal/store"
	"github.com/dukerupert/famorg/internal/syncer"
)

const (
	stateCookieName = "famorg_oauth_state"
	stateTTL        = 10 * time.Minute
)

var errBadState = apperr.Forbidden("invalid_state", "login state mismatch")

// OAuthProvider runs the Google sign-in flow. *google.Authenticator satisfies it.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (google.Token, *google.Profile, error)
}

type AuthHandler struct {
	oauth       OAuthProvider
	users       *store.UserStore
	sessions    *middleware.Sessions
	pub         queue.Publisher
	frontendURL string
	secure      bool
	logger      *slog.Logger
}

func NewAuthHandler(oauth OAuthProvider, us *store.UserStore, sessions *middleware.Sessions, pub queue.Publisher, frontendURL string, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		oauth:       oauth,
		users:       us,
		sessions:    sessions,
		pub:         pub,
		frontendURL: frontendURL,
		secure:      secure,
		logger:      logger,
	}
}

// Login redirects to the Google consent screen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback completes sign-in: it exchanges the code, creates the user on first
// login, stores the Google tokens, starts a session and queues an initial sync.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, h.logger, errBadState)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, apperr.Invalid("code_required", "missing authorization code"))
		return
	}

	tok, profile, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if profile.Email == "" {
		writeError(w, h.logger, apperr.Invalid("email_required", "google account has no email"))
		return
	}

	u, created, err := h.users.UpsertGoogle(profile.ID, profile.Email, profile.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if created {
		if err := h.bootstrapParent(u); err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	}
	if err := h.users.SaveGoogleToken(u.ID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.sessions.SetCookie(w, u.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	for _, kind := range []string{queue.KindCalendarSync, queue.KindTasksSync} {
		if err := syncer.Enqueue(r.Context(), h.pub, kind, u.ID); err != nil {
			h.logger.Warn("initial sync not queued", "user_id", u.ID, "job", kind, "error", err)
		}
	}
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// bootstrapParent makes the first user of a fresh install a parent.
func (h *AuthHandler) bootstrapParent(u *model.User) error {
	users, err := h.users.List()
	if err != nil {
		return err
	}
	if len(users) != 1 {
		return nil
	}
	if err := h.users.SetRole(u.ID, model.RoleParent); err != nil {
		return err
	}
	u.Role = model.RoleParent
	return nil
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u == nil {
		writeError(w, h.logger, store.ErrUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
