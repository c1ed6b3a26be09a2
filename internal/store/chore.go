package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var lastCompleted, dueDate sql.NullTime
	var sourceID, taskID sql.NullString
	var rosterID, assigneeID sql.NullInt64
	var isBonus, isCompleted, personal int

	err := scanner.Scan(
		&c.ID, &c.Title, &c.Description, &c.Points, &c.RewardMoney,
		&isBonus, &isCompleted, &lastCompleted, &c.Frequency, &c.Source,
		&sourceID, &taskID, &dueDate, &rosterID, &assigneeID, &personal, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.IsBonus = isBonus != 0
	c.IsCompleted = isCompleted != 0
	c.Personal = personal != 0
	c.LastCompletedAt = timePtr(lastCompleted)
	c.DueDate = timePtr(dueDate)
	c.SourceID = stringPtr(sourceID)
	c.GoogleTaskID = stringPtr(taskID)
	c.RosterID = int64Ptr(rosterID)
	c.AssigneeID = int64Ptr(assigneeID)
	return &c, nil
}

const choreCols = `id, title, description, points, reward_pence, is_bonus, is_completed, last_completed_at, frequency, source, source_id, google_task_id, due_date, roster_id, assignee_id, personal, created_at`

func normalize(f *model.ChoreFields) {
	if f.Frequency == "" {
		f.Frequency = model.FrequencyDaily
	}
	if f.Source == "" {
		f.Source = model.SourceManual
	}
}

const insertChore = `INSERT INTO chores (title, description, points, reward_pence, is_bonus, frequency, source, source_id, google_task_id, due_date, roster_id, assignee_id, personal)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(f model.ChoreFields) []any {
	return []any{
		f.Title, f.Description, f.Points, f.RewardMoney, btoi(f.IsBonus), f.Frequency, f.Source,
		nullString(f.SourceID), nullString(f.GoogleTaskID), nullTime(f.DueDate),
		nullInt64(f.RosterID), nullInt64(f.AssigneeID), btoi(f.Personal),
	}
}

func (s *ChoreStore) Create(f model.ChoreFields) (*model.Chore, error) {
	normalize(&f)
	result, err := s.db.Exec(insertChore, insertArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// InsertIfAbsent creates the chore unless one with the same source_id or
// google_task_id already exists. The check and insert are one statement.
func (s *ChoreStore) InsertIfAbsent(f model.ChoreFields) (bool, error) {
	normalize(&f)
	result, err := s.db.Exec(insertChore+` ON CONFLICT DO NOTHING`, insertArgs(f)...)
	if err != nil {
		return false, fmt.Errorf("insert chore: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) Update(id int64, f model.ChoreFields) (*model.Chore, error) {
	normalize(&f)
	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, points = ?, reward_pence = ?, is_bonus = ?, frequency = ?,
		 due_date = ?, roster_id = ?, assignee_id = ?, personal = ? WHERE id = ?`,
		f.Title, f.Description, f.Points, f.RewardMoney, btoi(f.IsBonus), f.Frequency,
		nullTime(f.DueDate), nullInt64(f.RosterID), nullInt64(f.AssigneeID), btoi(f.Personal), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func (s *ChoreStore) list(where string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT `+choreCols+` FROM chores `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) List() ([]model.Chore, error) {
	return s.list("")
}

// ListVisible returns shared chores plus the user's own personal chores.
// A zero userID yields shared chores only.
func (s *ChoreStore) ListVisible(userID int64) ([]model.Chore, error) {
	return s.list(`WHERE personal = 0 OR assignee_id = ?`, userID)
}

func (s *ChoreStore) ListByRoster(rosterID int64) ([]model.Chore, error) {
	return s.list(`WHERE roster_id = ?`, rosterID)
}

// ListStandalone returns non-roster chores of one kind (bonus or standard).
func (s *ChoreStore) ListStandalone(bonus bool) ([]model.Chore, error) {
	return s.list(`WHERE roster_id IS NULL AND is_bonus = ?`, btoi(bonus))
}

// ListCompletedStandalone returns flagged non-roster chores with a completion time.
func (s *ChoreStore) ListCompletedStandalone() ([]model.Chore, error) {
	return s.list(`WHERE roster_id IS NULL AND is_completed = 1 AND last_completed_at IS NOT NULL`)
}

// ListOpenAssigned returns the user's incomplete non-roster chores.
func (s *ChoreStore) ListOpenAssigned(userID int64) ([]model.Chore, error) {
	return s.list(`WHERE assignee_id = ? AND is_completed = 0 AND roster_id IS NULL`, userID)
}

// ClearCompletion drops the completed flag, keeping last_completed_at. It only
// touches the completion made at completedAt and reports false when the chore
// has since been uncompleted or completed again.
func (s *ChoreStore) ClearCompletion(id int64, completedAt time.Time) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE chores SET is_completed = 0 WHERE id = ? AND is_completed = 1 AND last_completed_at = ?`,
		id, completedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("clear completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SetRoster moves a chore into a roster, or out of any roster when rosterID is nil.
func (s *ChoreStore) SetRoster(id int64, rosterID *int64) error {
	if _, err := s.db.Exec(`UPDATE chores SET roster_id = ? WHERE id = ?`, nullInt64(rosterID), id); err != nil {
		return fmt.Errorf("set roster: %w", err)
	}
	return nil
}

// --- Completion methods ---

// RecordRosterCompletion inserts a per-day completion and credits points in one
// transaction. It reports false when the user already completed the chore on day.
func (s *ChoreStore) RecordRosterCompletion(choreID, userID int64, points int, at time.Time, day string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO chore_completions (chore_id, user_id, completed_at, completed_on) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chore_id, user_id, completed_on) DO NOTHING`,
		choreID, userID, at.UTC(), day,
	)
	if err != nil {
		return false, fmt.Errorf("insert completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE users SET points = points + ? WHERE id = ?`, points, userID); err != nil {
		return false, fmt.Errorf("credit points: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// MarkCompleted flags a non-roster chore as done by userID and credits the
// user in one transaction. It reports false when the chore was already flagged.
func (s *ChoreStore) MarkCompleted(choreID, userID int64, at time.Time, points int, money model.Money) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE chores SET is_completed = 1, last_completed_at = ?, assignee_id = ? WHERE id = ? AND is_completed = 0`,
		at.UTC(), userID, choreID,
	)
	if err != nil {
		return false, fmt.Errorf("flag chore: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec(
		`UPDATE users SET points = points + ?, balance_pence = balance_pence + ? WHERE id = ?`,
		points, money, userID,
	); err != nil {
		return false, fmt.Errorf("credit user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// MarkUncompleted clears the flag and timestamp and debits the assignee,
// never below zero. It reports false when the chore was not flagged.
func (s *ChoreStore) MarkUncompleted(choreID int64, points int, money model.Money) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var assignee sql.NullInt64
	err = tx.QueryRow(`SELECT assignee_id FROM chores WHERE id = ? AND is_completed = 1`, choreID).Scan(&assignee)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get chore: %w", err)
	}

	if _, err := tx.Exec(`UPDATE chores SET is_completed = 0, last_completed_at = NULL WHERE id = ?`, choreID); err != nil {
		return false, fmt.Errorf("unflag chore: %w", err)
	}
	if assignee.Valid {
		if _, err := tx.Exec(
			`UPDATE users SET points = MAX(0, points - ?), balance_pence = MAX(0, balance_pence - ?) WHERE id = ?`,
			points, money, assignee.Int64,
		); err != nil {
			return false, fmt.Errorf("debit user: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// CompletedOn returns the ids of chores the user completed on day.
func (s *ChoreStore) CompletedOn(userID int64, day string) (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT chore_id FROM chore_completions WHERE user_id = ? AND completed_on = ?`, userID, day)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	done := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		done[id] = true
	}
	return done, rows.Err()
}

// CountPendingRosterChores counts chores in the user's rosters without a
// completion by that user on day.
func (s *ChoreStore) CountPendingRosterChores(userID int64, day string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chores c
		 JOIN roster_assignments a ON a.roster_id = c.roster_id
		 WHERE a.user_id = ?
		   AND NOT EXISTS (
		     SELECT 1 FROM chore_completions cc
		     WHERE cc.chore_id = c.id AND cc.user_id = a.user_id AND cc.completed_on = ?
		   )`,
		userID, day,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending roster chores: %w", err)
	}
	return n, nil
}

// CountIncompleteStandard counts non-roster, non-bonus chores not yet flagged.
func (s *ChoreStore) CountIncompleteStandard() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chores WHERE roster_id IS NULL AND is_bonus = 0 AND is_completed = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count incomplete standard chores: %w", err)
	}
	return n, nil
}

// CompletedCounts returns, per assignee, how many flagged standard and bonus chores they hold.
func (s *ChoreStore) CompletedCounts() (map[int64][2]int, error) {
	rows, err := s.db.Query(
		`SELECT assignee_id, is_bonus, COUNT(*) FROM chores
		 WHERE is_completed = 1 AND assignee_id IS NOT NULL
		 GROUP BY assignee_id, is_bonus`,
	)
	if err != nil {
		return nil, fmt.Errorf("count completed chores: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64][2]int)
	for rows.Next() {
		var userID int64
		var bonus, n int
		if err := rows.Scan(&userID, &bonus, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		c := counts[userID]
		c[bonus] = n
		counts[userID] = c
	}
	return counts, rows.Err()
}
