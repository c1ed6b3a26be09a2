package model

import "time"

type Preferences struct {
	UserID          int64      `json:"user_id"`
	DisplayColor    string     `json:"display_color"`
	ShowLeagueTable bool       `json:"show_league_table"`
	LastSyncError   string     `json:"last_sync_error"`
	LastSyncAt      *time.Time `json:"last_sync_at"`
}

// DefaultPreferences is what a user without a stored row sees.
func DefaultPreferences(userID int64) Preferences {
	return Preferences{UserID: userID, ShowLeagueTable: true}
}

// PreferencesPatch carries the client-editable fields. Nil means unchanged.
type PreferencesPatch struct {
	DisplayColor    *string `json:"display_color"`
	ShowLeagueTable *bool   `json:"show_league_table"`
}
