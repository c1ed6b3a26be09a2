package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/chore"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

type ChoreHandler struct {
	chores  *store.ChoreStore
	rosters *store.RosterStore
	ledger  *chore.Ledger
	views   *chore.Views
	now     func() time.Time
	logger  *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, rs *store.RosterStore, ledger *chore.Ledger, views *chore.Views, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: cs, rosters: rs, ledger: ledger, views: views, now: time.Now, logger: logger}
}

type choreRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Points      int         `json:"points"`
	RewardMoney model.Money `json:"reward_money"`
	IsBonus     bool        `json:"is_bonus"`
	Frequency   string      `json:"frequency"`
	DueDate     *time.Time  `json:"due_date"`
	RosterID    *int64      `json:"roster_id"`
	AssigneeID  *int64      `json:"assignee_id"`
	Personal    bool        `json:"personal"`
}

func (req *choreRequest) fields() (model.ChoreFields, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return model.ChoreFields{}, apperr.Invalid("title_required", "title is required")
	}
	if req.Points < 0 {
		return model.ChoreFields{}, apperr.Invalid("invalid_points", "points must be >= 0")
	}
	if req.RewardMoney < 0 {
		return model.ChoreFields{}, apperr.Invalid("invalid_reward", "reward_money must be >= 0")
	}
	if req.Frequency == "" {
		req.Frequency = model.FrequencyDaily
	}
	if !model.ValidFrequency(req.Frequency) {
		return model.ChoreFields{}, apperr.Invalid("invalid_frequency", "frequency must be daily, weekly, monthly or once")
	}
	return model.ChoreFields{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		RewardMoney: req.RewardMoney,
		IsBonus:     req.IsBonus,
		Frequency:   req.Frequency,
		Source:      model.SourceManual,
		DueDate:     req.DueDate,
		RosterID:    req.RosterID,
		AssigneeID:  req.AssigneeID,
		Personal:    req.Personal,
	}, nil
}

func (h *ChoreHandler) checkRoster(rosterID *int64) error {
	if rosterID == nil {
		return nil
	}
	ro, err := h.rosters.GetByID(*rosterID)
	if err != nil {
		return err
	}
	if ro == nil {
		return chore.ErrRosterNotFound
	}
	return nil
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	f, err := req.fields()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.checkRoster(f.RosterID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.chores.Create(f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List returns every chore to parents and the visible ones to everyone else.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var chores []model.Chore
	var err error
	if auth.IsParent(r.Context()) {
		chores, err = h.chores.List()
	} else {
		chores, err = h.chores.ListVisible(auth.UserID(r.Context()))
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) load(r *http.Request) (*model.Chore, error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		return nil, err
	}
	c, err := h.chores.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, chore.ErrChoreNotFound
	}
	return c, nil
}

// Update edits a manually created chore. Synced chores are owned by their source.
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing.Source != model.SourceManual || existing.GoogleTaskID != nil {
		writeError(w, h.logger, chore.ErrSyncedChore)
		return
	}

	var req choreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	f, err := req.fields()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.checkRoster(f.RosterID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.chores.Update(existing.ID, f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.chores.Delete(c.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.ledger.Complete(id, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ChoreHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.ledger.Uncomplete(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) MyChores(w http.ResponseWriter, r *http.Request) {
	mc, err := h.views.MyChores(auth.UserID(r.Context()), h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mc)
}

func (h *ChoreHandler) FamilyOverview(w http.ResponseWriter, r *http.Request) {
	members, err := h.views.FamilyOverview(h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if members == nil {
		members = []chore.MemberProgress{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *ChoreHandler) League(w http.ResponseWriter, r *http.Request) {
	league, err := h.views.LeagueTable()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, league)
}
