package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

type PreferencesStore struct {
	db *sql.DB
}

func NewPreferencesStore(db *sql.DB) *PreferencesStore {
	return &PreferencesStore{db: db}
}

// Get returns the user's preferences, or defaults when none are stored.
func (s *PreferencesStore) Get(userID int64) (model.Preferences, error) {
	p := model.DefaultPreferences(userID)
	var show int
	var lastSync sql.NullTime
	err := s.db.QueryRow(
		`SELECT display_color, show_league_table, last_sync_error, last_sync_at FROM user_preferences WHERE user_id = ?`,
		userID,
	).Scan(&p.DisplayColor, &show, &p.LastSyncError, &lastSync)
	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("get preferences: %w", err)
	}
	p.ShowLeagueTable = show != 0
	p.LastSyncAt = timePtr(lastSync)
	return p, nil
}

// Apply merges the client-editable fields of patch into the stored row.
func (s *PreferencesStore) Apply(userID int64, patch model.PreferencesPatch) (model.Preferences, error) {
	p, err := s.Get(userID)
	if err != nil {
		return p, err
	}
	if patch.DisplayColor != nil {
		p.DisplayColor = *patch.DisplayColor
	}
	if patch.ShowLeagueTable != nil {
		p.ShowLeagueTable = *patch.ShowLeagueTable
	}

	_, err = s.db.Exec(
		`INSERT INTO user_preferences (user_id, display_color, show_league_table, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   display_color = excluded.display_color,
		   show_league_table = excluded.show_league_table,
		   updated_at = excluded.updated_at`,
		userID, p.DisplayColor, btoi(p.ShowLeagueTable), time.Now().UTC(),
	)
	if err != nil {
		return p, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}

// RecordSync stamps the last sync time and sets or clears the sync error.
func (s *PreferencesStore) RecordSync(userID int64, at time.Time, syncErr string) error {
	_, err := s.db.Exec(
		`INSERT INTO user_preferences (user_id, last_sync_error, last_sync_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   last_sync_error = excluded.last_sync_error,
		   last_sync_at = excluded.last_sync_at,
		   updated_at = excluded.updated_at`,
		userID, syncErr, at.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	return nil
}

// LeagueHidden reports whether any parent has switched the league table off.
func (s *PreferencesStore) LeagueHidden() (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM user_preferences p JOIN users u ON u.id = p.user_id
		 WHERE u.role = ? AND p.show_league_table = 0`, model.RoleParent,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check league visibility: %w", err)
	}
	return n > 0, nil
}
