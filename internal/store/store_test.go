package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/famorg/internal/database"
	"github.com/dukerupert/famorg/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, us *UserStore, email, role string) *model.User {
	t.Helper()
	u, err := us.Create(email, email, role)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}
