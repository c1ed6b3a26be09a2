package model

import "time"

const (
	AlertWarning    = "warning"
	AlertSuggestion = "suggestion"
)

type Alert struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	IsDismissed bool      `json:"is_dismissed"`
	Feedback    *int      `json:"feedback"`
	CreatedAt   time.Time `json:"created_at"`
}
