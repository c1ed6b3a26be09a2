package chore

import (
	"fmt"
	"time"

	"github.com/dukerupert/famorg/internal/store"
)

// Evaluator decides whether a user may complete bonus chores.
type Evaluator struct {
	chores  *store.ChoreStore
	rosters *store.RosterStore
	loc     *time.Location
}

func NewEvaluator(chores *store.ChoreStore, rosters *store.RosterStore, loc *time.Location) *Evaluator {
	return &Evaluator{chores: chores, rosters: rosters, loc: loc}
}

// Unlocked is true when the user belongs to at least one roster, has completed
// every chore of every assigned roster today, and no standalone standard chore
// in the household is still open.
func (e *Evaluator) Unlocked(userID int64, now time.Time) (bool, error) {
	assigned, err := e.rosters.CountAssignmentsForUser(userID)
	if err != nil {
		return false, fmt.Errorf("evaluate bonus: %w", err)
	}
	if assigned == 0 {
		return false, nil
	}

	pending, err := e.chores.CountPendingRosterChores(userID, DayKey(now, e.loc))
	if err != nil {
		return false, fmt.Errorf("evaluate bonus: %w", err)
	}
	if pending > 0 {
		return false, nil
	}

	open, err := e.chores.CountIncompleteStandard()
	if err != nil {
		return false, fmt.Errorf("evaluate bonus: %w", err)
	}
	return open == 0, nil
}
