package store

import (
	"testing"
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

func TestPreferencesDefaultsAndPatch(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ps := NewPreferencesStore(db)
	u := createUser(t, us, "a@example.com", "")

	p, err := ps.Get(u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.ShowLeagueTable || p.DisplayColor != "" {
		t.Errorf("defaults = %+v", p)
	}

	color := "#6366f1"
	p, err = ps.Apply(u.ID, model.PreferencesPatch{DisplayColor: &color})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.DisplayColor != color || !p.ShowLeagueTable {
		t.Errorf("after patch = %+v", p)
	}

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := ps.RecordSync(u.ID, at, "login failed"); err != nil {
		t.Fatalf("record sync: %v", err)
	}
	p, _ = ps.Get(u.ID)
	if p.LastSyncError != "login failed" || p.LastSyncAt == nil || !p.LastSyncAt.Equal(at) {
		t.Errorf("sync fields = %q %v", p.LastSyncError, p.LastSyncAt)
	}
	if p.DisplayColor != color {
		t.Error("recording a sync must not clobber client fields")
	}
}

func TestPreferencesLeagueHidden(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ps := NewPreferencesStore(db)
	parent := createUser(t, us, "p@example.com", model.RoleParent)
	kid := createUser(t, us, "k@example.com", "")
	off := false

	ps.Apply(kid.ID, model.PreferencesPatch{ShowLeagueTable: &off})
	if hidden, _ := ps.LeagueHidden(); hidden {
		t.Error("a member's preference must not hide the league")
	}
	ps.Apply(parent.ID, model.PreferencesPatch{ShowLeagueTable: &off})
	if hidden, _ := ps.LeagueHidden(); !hidden {
		t.Error("expected league hidden by parent preference")
	}
}
