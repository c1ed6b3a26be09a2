package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var googleID sql.NullString
	var calendars string
	err := scanner.Scan(
		&u.ID, &googleID, &u.Email, &u.Name, &u.Role, &u.Points, &u.Balance,
		&u.CompletionThreshold, &calendars, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GoogleID = googleID.String
	if err := json.Unmarshal([]byte(calendars), &u.SyncedCalendars); err != nil {
		return nil, fmt.Errorf("decode synced calendars: %w", err)
	}
	if u.SyncedCalendars == nil {
		u.SyncedCalendars = []string{}
	}
	return &u, nil
}

const userCols = `id, google_id, email, name, role, points, balance_pence, completion_threshold, synced_calendars, created_at, updated_at`

func (s *UserStore) Create(email, name, role string) (*model.User, error) {
	if role == "" {
		role = model.RoleMember
	}
	result, err := s.db.Exec(
		`INSERT INTO users (email, name, role) VALUES (?, ?, ?)`,
		email, name, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpsertGoogle finds a user by Google id (falling back to email) or creates one,
// refreshing name and Google id. created reports whether a row was inserted.
func (s *UserStore) UpsertGoogle(googleID, email, name string) (u *model.User, created bool, err error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE google_id = ? OR email = ? ORDER BY google_id = ? DESC LIMIT 1`, googleID, email, googleID)
	existing, err := scanUser(row)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	if existing != nil {
		_, err = s.db.Exec(
			`UPDATE users SET google_id = ?, name = ?, updated_at = ? WHERE id = ?`,
			googleID, name, time.Now().UTC(), existing.ID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("update user: %w", err)
		}
		u, err = s.GetByID(existing.ID)
		return u, false, err
	}

	result, err := s.db.Exec(
		`INSERT INTO users (google_id, email, name) VALUES (?, ?, ?)`,
		googleID, email, name,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	u, err = s.GetByID(id)
	return u, true, err
}

func (s *UserStore) list(where string, args ...any) ([]model.User, error) {
	rows, err := s.db.Query(`SELECT `+userCols+` FROM users `+where+` ORDER BY name ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) List() ([]model.User, error) {
	return s.list("")
}

// ListMembers returns every user who is not a parent.
func (s *UserStore) ListMembers() ([]model.User, error) {
	return s.list(`WHERE role != ?`, model.RoleParent)
}

func (s *UserStore) SetRole(id int64, role string) error {
	_, err := s.db.Exec(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func (s *UserStore) SetSyncedCalendars(id int64, calendarIDs []string) error {
	if calendarIDs == nil {
		calendarIDs = []string{}
	}
	data, err := json.Marshal(calendarIDs)
	if err != nil {
		return fmt.Errorf("encode calendars: %w", err)
	}
	_, err = s.db.Exec(`UPDATE users SET synced_calendars = ?, updated_at = ? WHERE id = ?`, string(data), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set synced calendars: %w", err)
	}
	return nil
}

func (s *UserStore) SetCompletionThreshold(id int64, threshold float64) error {
	_, err := s.db.Exec(`UPDATE users SET completion_threshold = ?, updated_at = ? WHERE id = ?`, threshold, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set threshold: %w", err)
	}
	return nil
}

// --- Credential methods ---

func (s *UserStore) GetCredentials(userID int64) (*model.Credentials, error) {
	var c model.Credentials
	var expiry sql.NullTime
	err := s.db.QueryRow(
		`SELECT user_id, google_access_token, google_refresh_token, google_token_expiry, go4schools_email, go4schools_password
		 FROM user_credentials WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.GoogleAccessToken, &c.GoogleRefreshToken, &expiry, &c.Go4SchoolsEmail, &c.Go4SchoolsPassword)
	if err == sql.ErrNoRows {
		return &model.Credentials{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	c.GoogleTokenExpiry = timePtr(expiry)
	return &c, nil
}

// SaveGoogleToken stores tokens. An empty refresh token keeps the stored one.
func (s *UserStore) SaveGoogleToken(userID int64, access, refresh string, expiry *time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO user_credentials (user_id, google_access_token, google_refresh_token, google_token_expiry)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   google_access_token = excluded.google_access_token,
		   google_refresh_token = CASE WHEN excluded.google_refresh_token != '' THEN excluded.google_refresh_token ELSE google_refresh_token END,
		   google_token_expiry = excluded.google_token_expiry`,
		userID, access, refresh, nullTime(expiry),
	)
	if err != nil {
		return fmt.Errorf("save google token: %w", err)
	}
	return nil
}

// SaveGo4Schools stores the login email and the already-encrypted password.
func (s *UserStore) SaveGo4Schools(userID int64, email string, encryptedPassword []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO user_credentials (user_id, go4schools_email, go4schools_password)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   go4schools_email = excluded.go4schools_email,
		   go4schools_password = excluded.go4schools_password`,
		userID, email, encryptedPassword,
	)
	if err != nil {
		return fmt.Errorf("save go4schools credentials: %w", err)
	}
	return nil
}

// ListGo4SchoolsUserIDs returns users that have homework-portal credentials stored.
func (s *UserStore) ListGo4SchoolsUserIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM user_credentials WHERE go4schools_email != '' ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list go4schools users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
