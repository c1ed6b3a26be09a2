package model

import "time"

type Roster struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type RosterAssignment struct {
	ID       int64 `json:"id"`
	RosterID int64 `json:"roster_id"`
	UserID   int64 `json:"user_id"`
}
