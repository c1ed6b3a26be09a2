package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/chore"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

type RosterHandler struct {
	rosters *store.RosterStore
	chores  *store.ChoreStore
	users   *store.UserStore
	logger  *slog.Logger
}

func NewRosterHandler(rs *store.RosterStore, cs *store.ChoreStore, us *store.UserStore, logger *slog.Logger) *RosterHandler {
	return &RosterHandler{rosters: rs, chores: cs, users: us, logger: logger}
}

type rosterRequest struct {
	Name string `json:"name"`
}

type rosterDetail struct {
	model.Roster
	Chores      []model.Chore            `json:"chores"`
	Assignments []model.RosterAssignment `json:"assignments"`
}

func (req *rosterRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apperr.Invalid("name_required", "name is required")
	}
	return nil
}

func (h *RosterHandler) load(r *http.Request) (*model.Roster, error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		return nil, err
	}
	ro, err := h.rosters.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ro == nil {
		return nil, chore.ErrRosterNotFound
	}
	return ro, nil
}

func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.rosters.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if rosters == nil {
		rosters = []model.Roster{}
	}
	writeJSON(w, http.StatusOK, rosters)
}

func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	chores, err := h.chores.ListByRoster(ro.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	assignments, err := h.rosters.ListAssignments(ro.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	if assignments == nil {
		assignments = []model.RosterAssignment{}
	}
	writeJSON(w, http.StatusOK, rosterDetail{Roster: *ro, Chores: chores, Assignments: assignments})
}

func (h *RosterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rosterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	creator := auth.UserID(r.Context())
	ro, err := h.rosters.Create(req.Name, &creator)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ro)
}

func (h *RosterHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req rosterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	updated, err := h.rosters.Rename(ro.ID, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RosterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.rosters.Delete(ro.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	UserIDs []int64 `json:"user_ids"`
}

func (h *RosterHandler) Assign(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.UserIDs) == 0 {
		writeError(w, h.logger, apperr.Invalid("user_ids_required", "user_ids is required"))
		return
	}
	for _, uid := range req.UserIDs {
		u, err := h.users.GetByID(uid)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if u == nil {
			writeError(w, h.logger, chore.ErrUserNotFound)
			return
		}
	}

	added, err := h.rosters.Assign(ro.ID, req.UserIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (h *RosterHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	ok, err := h.rosters.Unassign(ro.ID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !ok {
		writeError(w, h.logger, chore.ErrAssignmentMissing)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddChore creates a new chore inside the roster.
func (h *RosterHandler) AddChore(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
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
	f.RosterID = &ro.ID

	c, err := h.chores.Create(f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// CopyChore duplicates an existing chore into the roster. The source chore
// and its completion history are left alone.
func (h *RosterHandler) CopyChore(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	src, err := h.loadChore(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.chores.Create(model.ChoreFields{
		Title:       src.Title,
		Description: src.Description,
		Points:      src.Points,
		RewardMoney: src.RewardMoney,
		IsBonus:     src.IsBonus,
		Frequency:   src.Frequency,
		Source:      model.SourceManual,
		DueDate:     src.DueDate,
		RosterID:    &ro.ID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// RemoveChore takes the chore out of the roster without deleting it.
func (h *RosterHandler) RemoveChore(w http.ResponseWriter, r *http.Request) {
	ro, err := h.load(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.loadChore(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if c.RosterID == nil || *c.RosterID != ro.ID {
		writeError(w, h.logger, chore.ErrChoreNotFound)
		return
	}
	if err := h.chores.SetRoster(c.ID, nil); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RosterHandler) loadChore(r *http.Request) (*model.Chore, error) {
	id, err := parseIDParam(r, "chore_id")
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
