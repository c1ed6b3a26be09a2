package model

import "time"

const (
	RoleParent = "parent"
	RoleMember = "member"
)

const DefaultCompletionThreshold = 5.0

type User struct {
	ID                  int64     `json:"id"`
	GoogleID            string    `json:"-"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	Role                string    `json:"role"`
	Points              int       `json:"points"`
	Balance             Money     `json:"balance"`
	CompletionThreshold float64   `json:"completion_threshold"`
	SyncedCalendars     []string  `json:"synced_calendars"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (u *User) IsParent() bool {
	return u.Role == RoleParent
}

// Credentials are the third-party secrets held for a user. Never serialized to clients.
type Credentials struct {
	UserID             int64
	GoogleAccessToken  string
	GoogleRefreshToken string
	GoogleTokenExpiry  *time.Time
	Go4SchoolsEmail    string
	Go4SchoolsPassword []byte // encrypted
}

// Expired reports whether the Google access token needs a refresh at now.
func (c *Credentials) Expired(now time.Time) bool {
	if c.GoogleAccessToken == "" {
		return true
	}
	return c.GoogleTokenExpiry != nil && !now.Before(*c.GoogleTokenExpiry)
}
