package model

import "time"

type Event struct {
	ID            int64      `json:"id"`
	GoogleEventID string     `json:"google_event_id"`
	Summary       string     `json:"summary"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	AllDay        bool       `json:"all_day"`
	Location      string     `json:"location"`
	UserID        int64      `json:"user_id"`
}
