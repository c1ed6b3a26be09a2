package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/famorg/internal/assistant"
	"github.com/dukerupert/famorg/internal/chore"
	"github.com/dukerupert/famorg/internal/config"
	"github.com/dukerupert/famorg/internal/google"
	"github.com/dukerupert/famorg/internal/handler"
	"github.com/dukerupert/famorg/internal/middleware"
	"github.com/dukerupert/famorg/internal/queue"
	"github.com/dukerupert/famorg/internal/secret"
	"github.com/dukerupert/famorg/internal/store"
	"github.com/dukerupert/famorg/internal/syncer"
	ws "github.com/dukerupert/famorg/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	originPatterns []string
	sessions       *middleware.Sessions
	users          *store.UserStore
	authH          *handler.AuthHandler
	choreH         *handler.ChoreHandler
	rosterH        *handler.RosterHandler
	eventH         *handler.EventHandler
	alertH         *handler.AlertHandler
	rewardH        *handler.RewardHandler
	prefsH         *handler.PreferencesHandler
	syncH          *handler.SyncHandler
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, q queue.Publisher, hub *ws.Hub, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	choreStore := store.NewChoreStore(db)
	rosterStore := store.NewRosterStore(db)
	eventStore := store.NewEventStore(db)
	alertStore := store.NewAlertStore(db)
	rewardStore := store.NewRewardStore(db)
	prefsStore := store.NewPreferencesStore(db)

	evaluator := chore.NewEvaluator(choreStore, rosterStore, cfg.Location)
	ledger := chore.NewLedger(choreStore, userStore, evaluator, hub, cfg.Location, logger.With("component", "ledger"))
	views := chore.NewViews(choreStore, rosterStore, userStore, prefsStore, evaluator, cfg.Location)

	gen := assistant.NewClient(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaTimeout)
	analyzer := assistant.NewAnalyzer(gen, userStore, eventStore, choreStore, alertStore, cfg.Location, logger.With("component", "analyzer"))

	oauthCfg := google.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	authn := google.NewAuthenticator(oauthCfg, cfg.CalendarTimeout)
	tokens := syncer.NewTokens(userStore, authn, logger.With("component", "tokens"))
	googleClient := google.NewClient(oauthCfg, cfg.CalendarTimeout, cfg.Location)

	secure := strings.HasPrefix(cfg.FrontendURL, "https://")
	sessions := middleware.NewSessions(cfg.SecretKey, cfg.SessionTTL, secure)

	return &Server{
		db:             db,
		hub:            hub,
		originPatterns: originPatterns(cfg.FrontendURL),
		sessions:       sessions,
		users:          userStore,
		authH:          handler.NewAuthHandler(authn, userStore, sessions, q, cfg.FrontendURL, secure, logger.With("component", "auth")),
		choreH:         handler.NewChoreHandler(choreStore, rosterStore, ledger, views, logger.With("component", "chore")),
		rosterH:        handler.NewRosterHandler(rosterStore, choreStore, userStore, logger.With("component", "roster")),
		eventH:         handler.NewEventHandler(eventStore, cfg.Location, logger.With("component", "event")),
		alertH:         handler.NewAlertHandler(alertStore, analyzer, logger.With("component", "alert")),
		rewardH:        handler.NewRewardHandler(rewardStore, hub, logger.With("component", "reward")),
		prefsH:         handler.NewPreferencesHandler(prefsStore, logger.With("component", "preferences")),
		syncH:          handler.NewSyncHandler(userStore, q, tokens, googleClient, secret.NewBox(cfg.SecretKey), logger.With("component", "sync")),
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// originPatterns allows WebSocket upgrades from the frontend host only.
func originPatterns(frontendURL string) []string {
	u, err := url.Parse(frontendURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /api/auth/callback", s.rateLimitedHandler(s.authH.Callback))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := s.sessions.RequireAuth(s.users)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	stats := s.hub.Stats()
	json.NewEncoder(w).Encode(map[string]any{"status": status, "clients": stats.Clients, "dropped": stats.Dropped})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func parent(h http.HandlerFunc) http.Handler {
	return middleware.RequireParent(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.Handle("POST /api/chores", parent(s.choreH.Create))
	mux.Handle("PUT /api/chores/{id}", parent(s.choreH.Update))
	mux.Handle("DELETE /api/chores/{id}", parent(s.choreH.Delete))
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.Handle("POST /api/chores/{id}/uncomplete", parent(s.choreH.Uncomplete))
	mux.HandleFunc("GET /api/my-chores", s.choreH.MyChores)
	mux.Handle("GET /api/family-overview", parent(s.choreH.FamilyOverview))
	mux.HandleFunc("GET /api/league", s.choreH.League)

	// Rosters
	mux.HandleFunc("GET /api/rosters", s.rosterH.List)
	mux.HandleFunc("GET /api/rosters/{id}", s.rosterH.Get)
	mux.Handle("POST /api/rosters", parent(s.rosterH.Create))
	mux.Handle("PUT /api/rosters/{id}", parent(s.rosterH.Rename))
	mux.Handle("DELETE /api/rosters/{id}", parent(s.rosterH.Delete))
	mux.Handle("POST /api/rosters/{id}/assignments", parent(s.rosterH.Assign))
	mux.Handle("DELETE /api/rosters/{id}/assignments/{user_id}", parent(s.rosterH.Unassign))
	mux.Handle("POST /api/rosters/{id}/chores", parent(s.rosterH.AddChore))
	mux.Handle("POST /api/rosters/{id}/chores/{chore_id}/copy", parent(s.rosterH.CopyChore))
	mux.Handle("DELETE /api/rosters/{id}/chores/{chore_id}", parent(s.rosterH.RemoveChore))

	// Calendar and alerts
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/alerts", s.alertH.List)
	mux.HandleFunc("POST /api/alerts/{id}/feedback", s.alertH.Feedback)
	mux.HandleFunc("POST /api/alerts/{id}/dismiss", s.alertH.Dismiss)

	// Rewards
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("POST /api/rewards", parent(s.rewardH.Create))
	mux.Handle("DELETE /api/rewards/{id}", parent(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)

	// Preferences and sync
	mux.HandleFunc("GET /api/preferences", s.prefsH.Get)
	mux.HandleFunc("PATCH /api/preferences", s.prefsH.Update)
	mux.HandleFunc("GET /api/calendars", s.syncH.ListCalendars)
	mux.HandleFunc("PUT /api/calendars", s.syncH.SelectCalendars)
	mux.HandleFunc("PUT /api/go4schools", s.syncH.SetGo4Schools)
	mux.HandleFunc("POST /api/sync", s.syncH.Trigger)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.originPatterns, s.logger.With("component", "websocket")))
}
