package model

import "time"

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyOnce    = "once"
)

const (
	SourceManual     = "manual"
	SourceAI         = "ai"
	SourceGo4Schools = "go4schools"
)

func ValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyOnce:
		return true
	}
	return false
}

type Chore struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Points          int        `json:"points"`
	RewardMoney     Money      `json:"reward_money"`
	IsBonus         bool       `json:"is_bonus"`
	IsCompleted     bool       `json:"is_completed"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
	Frequency       string     `json:"frequency"`
	Source          string     `json:"source"`
	SourceID        *string    `json:"source_id,omitempty"`
	GoogleTaskID    *string    `json:"google_task_id,omitempty"`
	DueDate         *time.Time `json:"due_date"`
	RosterID        *int64     `json:"roster_id"`
	AssigneeID      *int64     `json:"assignee_id"`
	Personal        bool       `json:"personal"`
	CreatedAt       time.Time  `json:"created_at"`
}

// InRoster reports whether completion is tracked per user per day.
func (c *Chore) InRoster() bool {
	return c.RosterID != nil
}

// ChoreFields is the mutable subset of a chore used for create and update.
type ChoreFields struct {
	Title        string
	Description  string
	Points       int
	RewardMoney  Money
	IsBonus      bool
	Frequency    string
	Source       string
	SourceID     *string
	GoogleTaskID *string
	DueDate      *time.Time
	RosterID     *int64
	AssigneeID   *int64
	Personal     bool
}

type ChoreCompletion struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	UserID      int64     `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
	CompletedOn string    `json:"completed_on"`
}
