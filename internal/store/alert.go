package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

func scanAlert(scanner interface{ Scan(...any) error }) (*model.Alert, error) {
	var a model.Alert
	var dismissed int
	var feedback sql.NullInt64
	if err := scanner.Scan(&a.ID, &a.UserID, &a.Message, &a.Type, &dismissed, &feedback, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.IsDismissed = dismissed != 0
	if feedback.Valid {
		v := int(feedback.Int64)
		a.Feedback = &v
	}
	return &a, nil
}

const alertCols = `id, user_id, message, type, is_dismissed, feedback, created_at`

func (s *AlertStore) Create(userID int64, message, alertType string, at time.Time) (*model.Alert, error) {
	result, err := s.db.Exec(
		`INSERT INTO alerts (user_id, message, type, created_at) VALUES (?, ?, ?, ?)`,
		userID, message, alertType, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AlertStore) GetByID(id int64) (*model.Alert, error) {
	row := s.db.QueryRow(`SELECT `+alertCols+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// ListActive returns the user's undismissed alerts, newest first.
func (s *AlertStore) ListActive(userID int64) ([]model.Alert, error) {
	rows, err := s.db.Query(
		`SELECT `+alertCols+` FROM alerts WHERE user_id = ? AND is_dismissed = 0 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// ExistsSince reports whether the user has an alert created at or after t.
func (s *AlertStore) ExistsSince(userID int64, t time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE user_id = ? AND created_at >= ?`, userID, t.UTC()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count alerts: %w", err)
	}
	return n > 0, nil
}

func (s *AlertStore) Dismiss(id int64) error {
	if _, err := s.db.Exec(`UPDATE alerts SET is_dismissed = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("dismiss alert: %w", err)
	}
	return nil
}

// RecordFeedback stores the rating and dismisses the alert.
func (s *AlertStore) RecordFeedback(id int64, feedback int) error {
	if _, err := s.db.Exec(`UPDATE alerts SET feedback = ?, is_dismissed = 1 WHERE id = ?`, feedback, id); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}
