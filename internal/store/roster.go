package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/famorg/internal/model"
)

type RosterStore struct {
	db *sql.DB
}

func NewRosterStore(db *sql.DB) *RosterStore {
	return &RosterStore{db: db}
}

func scanRoster(scanner interface{ Scan(...any) error }) (*model.Roster, error) {
	var r model.Roster
	var createdBy sql.NullInt64
	if err := scanner.Scan(&r.ID, &r.Name, &createdBy, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.CreatedBy = int64Ptr(createdBy)
	return &r, nil
}

const rosterCols = `id, name, created_by, created_at`

func (s *RosterStore) Create(name string, createdBy *int64) (*model.Roster, error) {
	result, err := s.db.Exec(`INSERT INTO rosters (name, created_by) VALUES (?, ?)`, name, nullInt64(createdBy))
	if err != nil {
		return nil, fmt.Errorf("insert roster: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RosterStore) GetByID(id int64) (*model.Roster, error) {
	row := s.db.QueryRow(`SELECT `+rosterCols+` FROM rosters WHERE id = ?`, id)
	r, err := scanRoster(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	return r, nil
}

func (s *RosterStore) List() ([]model.Roster, error) {
	rows, err := s.db.Query(`SELECT ` + rosterCols + ` FROM rosters ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	defer rows.Close()

	var rosters []model.Roster
	for rows.Next() {
		r, err := scanRoster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		rosters = append(rosters, *r)
	}
	return rosters, rows.Err()
}

// ListForUser returns the rosters the user is assigned to.
func (s *RosterStore) ListForUser(userID int64) ([]model.Roster, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.name, r.created_by, r.created_at
		 FROM rosters r JOIN roster_assignments a ON a.roster_id = r.id
		 WHERE a.user_id = ? ORDER BY r.name ASC, r.id ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rosters for user: %w", err)
	}
	defer rows.Close()

	var rosters []model.Roster
	for rows.Next() {
		r, err := scanRoster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		rosters = append(rosters, *r)
	}
	return rosters, rows.Err()
}

func (s *RosterStore) Rename(id int64, name string) (*model.Roster, error) {
	if _, err := s.db.Exec(`UPDATE rosters SET name = ? WHERE id = ?`, name, id); err != nil {
		return nil, fmt.Errorf("rename roster: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the roster and its assignments. Its chores are kept with the
// roster reference cleared.
func (s *RosterStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE chores SET roster_id = NULL WHERE roster_id = ?`, id); err != nil {
		return fmt.Errorf("detach roster chores: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM roster_assignments WHERE roster_id = ?`, id); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rosters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete roster: %w", err)
	}
	return tx.Commit()
}

// --- Assignment methods ---

// Assign links users to the roster, skipping existing links. It returns the
// number of new assignments.
func (s *RosterStore) Assign(rosterID int64, userIDs []int64) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, uid := range userIDs {
		res, err := tx.Exec(
			`INSERT INTO roster_assignments (roster_id, user_id) VALUES (?, ?) ON CONFLICT(roster_id, user_id) DO NOTHING`,
			rosterID, uid,
		)
		if err != nil {
			return 0, fmt.Errorf("assign user %d: %w", uid, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += int(n)
	}
	return added, tx.Commit()
}

// Unassign removes one link. It reports false when the link did not exist.
func (s *RosterStore) Unassign(rosterID, userID int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM roster_assignments WHERE roster_id = ? AND user_id = ?`, rosterID, userID)
	if err != nil {
		return false, fmt.Errorf("unassign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *RosterStore) ListAssignments(rosterID int64) ([]model.RosterAssignment, error) {
	rows, err := s.db.Query(`SELECT id, roster_id, user_id FROM roster_assignments WHERE roster_id = ? ORDER BY id`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []model.RosterAssignment
	for rows.Next() {
		var a model.RosterAssignment
		if err := rows.Scan(&a.ID, &a.RosterID, &a.UserID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAssignmentsForUser returns how many rosters the user belongs to.
func (s *RosterStore) CountAssignmentsForUser(userID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM roster_assignments WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return n, nil
}
