package chore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
	"github.com/dukerupert/famorg/internal/websocket"
)

// Broadcaster receives real-time notifications. *websocket.Hub satisfies it.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Result is what a completion credited.
type Result struct {
	PointsAdded int         `json:"points_added"`
	MoneyAdded  model.Money `json:"money_added"`
}

// Ledger records chore completions and keeps user points and balances in step.
type Ledger struct {
	chores *store.ChoreStore
	users  *store.UserStore
	bonus  *Evaluator
	hub    Broadcaster
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewLedger(chores *store.ChoreStore, users *store.UserStore, bonus *Evaluator, hub Broadcaster, loc *time.Location, logger *slog.Logger) *Ledger {
	return &Ledger{
		chores: chores,
		users:  users,
		bonus:  bonus,
		hub:    hub,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (l *Ledger) broadcast(msg websocket.Message) {
	if l.hub != nil {
		l.hub.Broadcast(msg)
	}
}

// Complete records that userID did choreID.
//
// Roster chores are tracked per user per calendar day: each user may complete
// each one once a day and earns its points. Other chores carry a single
// completed flag until the reset scheduler clears it; bonus chores among them
// pay money and require Evaluator.Unlocked.
func (l *Ledger) Complete(choreID, userID int64) (Result, error) {
	c, err := l.chores.GetByID(choreID)
	if err != nil {
		return Result{}, fmt.Errorf("complete chore: %w", err)
	}
	if c == nil {
		return Result{}, ErrChoreNotFound
	}
	u, err := l.users.GetByID(userID)
	if err != nil {
		return Result{}, fmt.Errorf("complete chore: %w", err)
	}
	if u == nil {
		return Result{}, ErrUserNotFound
	}

	now := l.now()
	if c.InRoster() {
		return l.completeRoster(c, userID, now)
	}
	return l.completeStandalone(c, userID, now)
}

func (l *Ledger) completeRoster(c *model.Chore, userID int64, now time.Time) (Result, error) {
	ok, err := l.chores.RecordRosterCompletion(c.ID, userID, c.Points, now, DayKey(now, l.loc))
	if err != nil {
		return Result{}, fmt.Errorf("complete roster chore: %w", err)
	}
	if !ok {
		return Result{}, ErrAlreadyCompleted
	}

	l.logger.Info("roster chore completed", "chore_id", c.ID, "user_id", userID, "points", c.Points)
	l.broadcast(websocket.ChoreCompleted(c.ID, userID, false, c.Points))
	return Result{PointsAdded: c.Points}, nil
}

func (l *Ledger) completeStandalone(c *model.Chore, userID int64, now time.Time) (Result, error) {
	if c.IsCompleted {
		return Result{}, ErrAlreadyCompleted
	}

	if c.IsBonus {
		unlocked, err := l.bonus.Unlocked(userID, now)
		if err != nil {
			return Result{}, fmt.Errorf("complete bonus chore: %w", err)
		}
		if !unlocked {
			return Result{}, ErrBonusLocked
		}
	}

	var res Result
	if c.IsBonus {
		res.MoneyAdded = c.RewardMoney
	} else {
		res.PointsAdded = c.Points
	}

	ok, err := l.chores.MarkCompleted(c.ID, userID, now, res.PointsAdded, res.MoneyAdded)
	if err != nil {
		return Result{}, fmt.Errorf("complete chore: %w", err)
	}
	if !ok {
		// Lost a race with another completion.
		return Result{}, ErrAlreadyCompleted
	}

	var reward any = res.PointsAdded
	if c.IsBonus {
		reward = res.MoneyAdded
	}
	l.logger.Info("chore completed", "chore_id", c.ID, "user_id", userID, "bonus", c.IsBonus, "reward", reward)
	l.broadcast(websocket.ChoreCompleted(c.ID, userID, c.IsBonus, reward))
	return res, nil
}

// Uncomplete reverses a standalone completion, debiting the assignee without
// going below zero. Roster completions cannot be reversed and report
// ErrNotCompleted. Callers restrict this to parents.
func (l *Ledger) Uncomplete(choreID int64) error {
	c, err := l.chores.GetByID(choreID)
	if err != nil {
		return fmt.Errorf("uncomplete chore: %w", err)
	}
	if c == nil {
		return ErrChoreNotFound
	}
	if !c.IsCompleted {
		return ErrNotCompleted
	}

	var points int
	var money model.Money
	if c.IsBonus {
		money = c.RewardMoney
	} else {
		points = c.Points
	}

	ok, err := l.chores.MarkUncompleted(c.ID, points, money)
	if err != nil {
		return fmt.Errorf("uncomplete chore: %w", err)
	}
	if !ok {
		return ErrNotCompleted
	}

	l.logger.Info("chore uncompleted", "chore_id", c.ID)
	l.broadcast(websocket.ChoreUncompleted(c.ID))
	return nil
}
