package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/famorg/internal/database"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

func setupStores(t *testing.T) (*store.ChoreStore, *store.EventStore, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u, err := store.NewUserStore(db).Create("kid@example.com", "Kid", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store.NewChoreStore(db), store.NewEventStore(db), u
}

func TestFingerprint(t *testing.T) {
	if got := Fingerprint("Maths", "Algebra sheet", "05/06/2024"); got != "f290dce2dc483028" {
		t.Errorf("fingerprint = %q", got)
	}
	if got := Fingerprint(); got != "e3b0c44298fc1c14" {
		t.Errorf("empty fingerprint = %q", got)
	}
	if Fingerprint("a|b", "c") != Fingerprint("a", "b|c") {
		t.Error("fields are joined with a plain separator")
	}
}

func TestParseDue(t *testing.T) {
	want := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"05/06/2024", "5 Jun 2024", "2024-06-05", " 2024-06-05 "} {
		got := ParseDue(s, time.UTC)
		if got == nil || !got.Equal(want) {
			t.Errorf("ParseDue(%q) = %v, want %v", s, got, want)
		}
	}
	if got := ParseDue("next Tuesday", time.UTC); got != nil {
		t.Errorf("ParseDue(unknown) = %v, want nil", got)
	}
}

func TestHomeworkIngestIsIdempotent(t *testing.T) {
	chores, _, u := setupStores(t)
	h := NewHomework(chores, time.UTC, slog.Default())
	rows := []model.HomeworkItem{
		{Subject: "Maths", Title: "Algebra sheet", Due: "05/06/2024", Description: "Questions 1-10"},
		{Subject: "English", Title: "Essay", Due: "7 Jun 2024"},
	}

	n, err := h.Ingest(context.Background(), u.ID, rows)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 2 {
		t.Errorf("created = %d, want 2", n)
	}

	n, err = h.Ingest(context.Background(), u.ID, rows)
	if err != nil {
		t.Fatalf("ingest again: %v", err)
	}
	if n != 0 {
		t.Errorf("second run created = %d, want 0", n)
	}

	all, _ := chores.List()
	if len(all) != 2 {
		t.Fatalf("chores = %d, want 2", len(all))
	}
	var maths model.Chore
	for _, c := range all {
		if strings.HasPrefix(c.Title, "Maths") {
			maths = c
		}
	}
	if maths.Title != "Maths: Algebra sheet" || maths.Points != 5 || maths.Frequency != model.FrequencyOnce {
		t.Errorf("chore = %+v", maths)
	}
	if maths.Source != model.SourceGo4Schools || maths.AssigneeID == nil || *maths.AssigneeID != u.ID {
		t.Errorf("chore source/assignee = %q/%v", maths.Source, maths.AssigneeID)
	}
	if maths.DueDate == nil || maths.DueDate.Day() != 5 {
		t.Errorf("due = %v", maths.DueDate)
	}
}

func TestHomeworkConcurrentIngest(t *testing.T) {
	chores, _, u := setupStores(t)
	h := NewHomework(chores, time.UTC, slog.Default())
	rows := []model.HomeworkItem{{Subject: "Science", Title: "Lab report", Due: "2024-06-10"}}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.Ingest(context.Background(), u.ID, rows); err != nil {
				t.Errorf("ingest: %v", err)
			}
		}()
	}
	wg.Wait()

	all, _ := chores.List()
	if len(all) != 1 {
		t.Errorf("chores = %d, want 1", len(all))
	}
}

func TestHomeworkTruncates(t *testing.T) {
	chores, _, u := setupStores(t)
	h := NewHomework(chores, time.UTC, slog.Default())
	long := strings.Repeat("é", 300)

	h.Ingest(context.Background(), u.ID, []model.HomeworkItem{{Subject: "Art", Title: long, Description: long + long}})
	all, _ := chores.List()
	if len(all) != 1 {
		t.Fatalf("chores = %d, want 1", len(all))
	}
	if n := len([]rune(all[0].Title)); n != 200 {
		t.Errorf("title runes = %d, want 200", n)
	}
	if n := len([]rune(all[0].Description)); n != 500 {
		t.Errorf("description runes = %d, want 500", n)
	}
}

type stubSuggester map[string][]string

func (s stubSuggester) SuggestTasks(ctx context.Context, summary string) []string {
	return s[summary]
}

func TestPlannerGenerate(t *testing.T) {
	chores, events, u := setupStores(t)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	party := now.AddDate(0, 0, 10)

	events.Upsert(model.Event{GoogleEventID: "party", Summary: "Sarah's Birthday Party", StartTime: party, UserID: u.ID})
	events.Upsert(model.Event{GoogleEventID: "soon", Summary: "Dentist", StartTime: now.AddDate(0, 0, 2), UserID: u.ID})
	events.Upsert(model.Event{GoogleEventID: "far", Summary: "Dentist", StartTime: now.AddDate(0, 0, 20), UserID: u.ID})

	p := NewPlanner(events, chores, stubSuggester{
		"Sarah's Birthday Party": {"Buy card", "Buy present", "Wrap present", "Book venue"},
		"Dentist":                {"Find forms"},
	}, slog.Default())

	n, err := p.Generate(context.Background(), u.ID, now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n != 3 {
		t.Errorf("created = %d, want 3", n)
	}

	n, _ = p.Generate(context.Background(), u.ID, now)
	if n != 0 {
		t.Errorf("second run created = %d, want 0", n)
	}

	all, _ := chores.List()
	for _, c := range all {
		if !c.Personal || c.Points != 3 || c.Source != model.SourceAI {
			t.Errorf("chore %q = %+v", c.Title, c)
		}
		if c.DueDate == nil || !c.DueDate.Equal(party.AddDate(0, 0, -1)) {
			t.Errorf("due = %v, want day before event", c.DueDate)
		}
		if c.Title == "Book venue" {
			t.Error("more than three tasks created for one event")
		}
	}
}

func TestCalendarIngestSkipsHidden(t *testing.T) {
	_, events, u := setupStores(t)
	c := NewCalendar(events)
	start := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	n, err := c.Ingest(u.ID, []model.RemoteEvent{
		{ID: "a", Summary: "Football", Start: start},
		{ID: "b", Summary: "Therapy", Start: start, Visibility: "private"},
		{ID: "c", Summary: "Payroll", Start: start, Visibility: "confidential"},
		{ID: "d", Start: start, Visibility: "public"},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 2 {
		t.Errorf("stored = %d, want 2", n)
	}
	if e, _ := events.GetByGoogleID("b"); e != nil {
		t.Error("private event stored")
	}
	if e, _ := events.GetByGoogleID("d"); e == nil || e.Summary != "(No Title)" {
		t.Errorf("untitled event = %+v", e)
	}

	c.Ingest(u.ID, []model.RemoteEvent{{ID: "a", Summary: "Football (moved)", Start: start.Add(time.Hour)}})
	all, _ := events.List()
	if len(all) != 2 {
		t.Errorf("events = %d, want 2 after update", len(all))
	}
	if e, _ := events.GetByGoogleID("a"); e.Summary != "Football (moved)" {
		t.Errorf("summary = %q", e.Summary)
	}
}

func TestTasksIngest(t *testing.T) {
	chores, _, u := setupStores(t)
	tk := NewTasks(chores, slog.Default())
	tasks := []model.RemoteTask{
		{ID: "t1", Title: "Return library books", Notes: "Two of them"},
		{ID: "t2", Title: "Done already", Completed: true},
		{ID: "t3", Title: "   "},
	}

	n, err := tk.Ingest(context.Background(), u.ID, tasks)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 1 {
		t.Errorf("created = %d, want 1", n)
	}
	if n, _ := tk.Ingest(context.Background(), u.ID, tasks); n != 0 {
		t.Errorf("second run created = %d, want 0", n)
	}

	all, _ := chores.List()
	if len(all) != 1 || all[0].GoogleTaskID == nil || *all[0].GoogleTaskID != "t1" {
		t.Errorf("chores = %+v", all)
	}
}
