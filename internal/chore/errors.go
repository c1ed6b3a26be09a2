package chore

import "github.com/dukerupert/famorg/internal/apperr"

var (
	ErrChoreNotFound     = apperr.NotFound("chore_not_found", "chore not found")
	ErrUserNotFound      = apperr.NotFound("user_not_found", "user not found")
	ErrAlreadyCompleted  = apperr.Conflict("already_completed", "chore already completed")
	ErrNotCompleted      = apperr.Conflict("not_completed", "chore is not completed")
	ErrBonusLocked       = apperr.Conflict("bonus_locked", "complete all your standard chores first")
	ErrSyncedChore       = apperr.Conflict("synced_chore", "cannot edit synced chores")
	ErrRosterNotFound    = apperr.NotFound("roster_not_found", "roster not found")
	ErrAssignmentMissing = apperr.NotFound("assignment_not_found", "user is not assigned to this roster")
)
