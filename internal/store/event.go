package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var end sql.NullTime
	var userID sql.NullInt64
	var allDay int
	if err := scanner.Scan(&e.ID, &e.GoogleEventID, &e.Summary, &e.StartTime, &end, &allDay, &e.Location, &userID); err != nil {
		return nil, err
	}
	e.EndTime = timePtr(end)
	e.AllDay = allDay != 0
	e.UserID = userID.Int64
	return &e, nil
}

const eventCols = `id, google_event_id, summary, start_time, end_time, all_day, location, user_id`

// Upsert inserts the event or updates the row with the same google_event_id.
func (s *EventStore) Upsert(e model.Event) error {
	_, err := s.db.Exec(
		`INSERT INTO events (google_event_id, summary, start_time, end_time, all_day, location, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(google_event_id) DO UPDATE SET
		   summary = excluded.summary,
		   start_time = excluded.start_time,
		   end_time = excluded.end_time,
		   all_day = excluded.all_day,
		   location = excluded.location,
		   user_id = excluded.user_id`,
		e.GoogleEventID, e.Summary, e.StartTime.UTC(), nullTime(e.EndTime), btoi(e.AllDay), e.Location, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

func (s *EventStore) GetByGoogleID(googleEventID string) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE google_event_id = ?`, googleEventID)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) list(where string, args ...any) ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT `+eventCols+` FROM events `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) List() ([]model.Event, error) {
	return s.list(`ORDER BY start_time ASC, id ASC`)
}

// ListRange returns the user's events starting in [from, to).
func (s *EventStore) ListRange(userID int64, from, to time.Time) ([]model.Event, error) {
	return s.list(`WHERE user_id = ? AND start_time >= ? AND start_time < ? ORDER BY start_time ASC, id ASC`, userID, from.UTC(), to.UTC())
}

// ListUpcoming returns up to limit events of any user starting at or after from.
func (s *EventStore) ListUpcoming(from time.Time, limit int) ([]model.Event, error) {
	return s.list(`WHERE start_time >= ? ORDER BY start_time ASC LIMIT ?`, from.UTC(), limit)
}
