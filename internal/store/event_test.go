package store

import (
	"testing"
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

func TestEventUpsert(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	es := NewEventStore(db)
	u := createUser(t, us, "a@example.com", "")

	start := time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC)
	if err := es.Upsert(model.Event{GoogleEventID: "evt-1", Summary: "Dentist", StartTime: start, UserID: u.ID}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := es.Upsert(model.Event{GoogleEventID: "evt-1", Summary: "Dentist (moved)", StartTime: start.Add(time.Hour), Location: "High St", UserID: u.ID}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	all, err := es.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("events = %d, want 1", len(all))
	}
	if all[0].Summary != "Dentist (moved)" || all[0].Location != "High St" {
		t.Errorf("event = %+v", all[0])
	}
	if !all[0].StartTime.Equal(start.Add(time.Hour)) {
		t.Errorf("start = %v", all[0].StartTime)
	}
}

func TestEventListRange(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	es := NewEventStore(db)
	u := createUser(t, us, "a@example.com", "")
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, day := range []int{1, 7, 10, 14, 20} {
		es.Upsert(model.Event{
			GoogleEventID: string(rune('a' + i)),
			Summary:       "e",
			StartTime:     base.AddDate(0, 0, day),
			UserID:        u.ID,
		})
	}

	got, err := es.ListRange(u.ID, base.AddDate(0, 0, 7), base.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("events in range = %d, want 2", len(got))
	}

	upcoming, _ := es.ListUpcoming(base.AddDate(0, 0, 9), 2)
	if len(upcoming) != 2 || upcoming[0].GoogleEventID != "c" {
		t.Errorf("upcoming = %+v", upcoming)
	}
}
