package chore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/famorg/internal/database"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
	"github.com/dukerupert/famorg/internal/websocket"
)

type recorder struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (r *recorder) Broadcast(msg websocket.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) last() websocket.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return websocket.Message{}
	}
	return r.msgs[len(r.msgs)-1]
}

type fixture struct {
	db      *sql.DB
	users   *store.UserStore
	chores  *store.ChoreStore
	rosters *store.RosterStore
	prefs   *store.PreferencesStore
	bonus   *Evaluator
	ledger  *Ledger
	views   *Views
	hub     *recorder
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, ":memory:")
}

// newFixtureAt opens the database at path. A file path allows several
// connections, so concurrent callers really race.
func newFixtureAt(t *testing.T, path string) *fixture {
	t.Helper()
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		users:   store.NewUserStore(db),
		chores:  store.NewChoreStore(db),
		rosters: store.NewRosterStore(db),
		prefs:   store.NewPreferencesStore(db),
		hub:     &recorder{},
		clock:   time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC),
	}
	f.bonus = NewEvaluator(f.chores, f.rosters, time.UTC)
	f.ledger = NewLedger(f.chores, f.users, f.bonus, f.hub, time.UTC, slog.Default())
	f.ledger.now = func() time.Time { return f.clock }
	f.views = NewViews(f.chores, f.rosters, f.users, f.prefs, f.bonus, time.UTC)
	return f
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.users.Create(email, email, "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) chore(t *testing.T, fields model.ChoreFields) *model.Chore {
	t.Helper()
	c, err := f.chores.Create(fields)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func (f *fixture) roster(t *testing.T, name string, members ...int64) *model.Roster {
	t.Helper()
	r, err := f.rosters.Create(name, nil)
	if err != nil {
		t.Fatalf("create roster: %v", err)
	}
	if len(members) > 0 {
		if _, err := f.rosters.Assign(r.ID, members); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	return r
}

func (f *fixture) reload(t *testing.T, id int64) *model.User {
	t.Helper()
	u, err := f.users.GetByID(id)
	if err != nil || u == nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return u
}

func TestStandardThenBonusCompletion(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	f.roster(t, "Weekdays", u.ID)
	room := f.chore(t, model.ChoreFields{Title: "Clean Room", Points: 10})
	car := f.chore(t, model.ChoreFields{Title: "Wash Car", IsBonus: true, RewardMoney: model.Pounds(5)})

	res, err := f.ledger.Complete(room.ID, u.ID)
	if err != nil {
		t.Fatalf("complete standard: %v", err)
	}
	if res.PointsAdded <= 0 || res.MoneyAdded != 0 {
		t.Errorf("standard result = %+v", res)
	}

	res, err = f.ledger.Complete(car.ID, u.ID)
	if err != nil {
		t.Fatalf("complete bonus: %v", err)
	}
	if res.MoneyAdded != model.Pounds(5) || res.PointsAdded != 0 {
		t.Errorf("bonus result = %+v", res)
	}

	got := f.reload(t, u.ID)
	if got.Points != 10 || got.Balance != model.Pounds(5) {
		t.Errorf("user points=%d balance=%v", got.Points, got.Balance)
	}

	msg := f.hub.last()
	if msg.Type != websocket.TypeChoreCompleted || msg.Fields["is_bonus"] != true || msg.Fields["reward"] != model.Pounds(5) {
		t.Errorf("last broadcast = %+v", msg)
	}
}

func TestCompleteStandaloneTwice(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	c := f.chore(t, model.ChoreFields{Title: "Bins", Points: 2})

	if _, err := f.ledger.Complete(c.ID, u.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.ledger.Complete(c.ID, u.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("second complete err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestCompleteUnknownIDs(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	c := f.chore(t, model.ChoreFields{Title: "Bins"})

	if _, err := f.ledger.Complete(999, u.ID); !errors.Is(err, ErrChoreNotFound) {
		t.Errorf("err = %v, want ErrChoreNotFound", err)
	}
	if _, err := f.ledger.Complete(c.ID, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if len(f.hub.msgs) != 0 {
		t.Error("failed completions must not broadcast")
	}
}

func TestRosterCompletionOncePerDay(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	r := f.roster(t, "Morning", u.ID)
	c := f.chore(t, model.ChoreFields{Title: "Teeth", Points: 1, RosterID: &r.ID})

	if _, err := f.ledger.Complete(c.ID, u.ID); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := f.ledger.Complete(c.ID, u.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("second same day err = %v, want ErrAlreadyCompleted", err)
	}

	f.clock = f.clock.Add(24 * time.Hour)
	if _, err := f.ledger.Complete(c.ID, u.ID); err != nil {
		t.Errorf("next day: %v", err)
	}
	if got := f.reload(t, u.ID); got.Points != 2 {
		t.Errorf("points = %d, want 2", got.Points)
	}

	// The roster chore never carries the standalone flag.
	stored, _ := f.chores.GetByID(c.ID)
	if stored.IsCompleted {
		t.Error("roster chore must not be flagged completed")
	}
}

// completeConcurrently calls Complete n times in parallel and returns how
// many succeeded. Any failure other than ErrAlreadyCompleted fails the test.
func completeConcurrently(t *testing.T, l *Ledger, choreID, userID int64, n int) int {
	t.Helper()
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Complete(choreID, userID)
			switch {
			case err == nil:
				mu.Lock()
				ok++
				mu.Unlock()
			case !errors.Is(err, ErrAlreadyCompleted):
				t.Errorf("complete: %v", err)
			}
		}()
	}
	wg.Wait()
	return ok
}

func TestConcurrentCompletionCreditsOnce(t *testing.T) {
	f := newFixtureAt(t, filepath.Join(t.TempDir(), "famorg.db"))
	u := f.user(t, "u@example.com")
	r := f.roster(t, "Weekdays", u.ID)
	dishes := f.chore(t, model.ChoreFields{Title: "Dishes", Points: 3, RosterID: &r.ID})
	room := f.chore(t, model.ChoreFields{Title: "Clean Room", Points: 10})

	if n := completeConcurrently(t, f.ledger, dishes.ID, u.ID, 20); n != 1 {
		t.Errorf("roster chore successes = %d, want 1", n)
	}
	if n := completeConcurrently(t, f.ledger, room.ID, u.ID, 20); n != 1 {
		t.Errorf("standalone chore successes = %d, want 1", n)
	}

	if got := f.reload(t, u.ID); got.Points != 13 {
		t.Errorf("points = %d, want 13", got.Points)
	}
}

func TestRosterCompletionIsPerUser(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	r := f.roster(t, "Morning", a.ID, b.ID)
	c := f.chore(t, model.ChoreFields{Title: "Teeth", Points: 1, RosterID: &r.ID})

	if _, err := f.ledger.Complete(c.ID, a.ID); err != nil {
		t.Fatalf("a: %v", err)
	}
	if _, err := f.ledger.Complete(c.ID, b.ID); err != nil {
		t.Errorf("b should complete independently: %v", err)
	}
}

func TestProgressRollsOverAtMidnight(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	r := f.roster(t, "Evening", u.ID)
	c := f.chore(t, model.ChoreFields{Title: "Pack bag", Points: 1, RosterID: &r.ID})

	f.clock = time.Date(2024, 5, 15, 23, 59, 0, 0, time.UTC)
	if _, err := f.ledger.Complete(c.ID, u.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	view, err := f.views.MyChores(u.ID, f.clock)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.Rosters[0].Chores[0].DoneToday {
		t.Error("expected done on day D")
	}

	next := time.Date(2024, 5, 16, 0, 1, 0, 0, time.UTC)
	view, err = f.views.MyChores(u.ID, next)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Rosters[0].Chores[0].DoneToday || view.Rosters[0].Completed != 0 {
		t.Error("expected not completed on day D+1")
	}
}

func TestBonusLockedByOpenStandardChore(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	f.roster(t, "Weekdays", u.ID)
	f.chore(t, model.ChoreFields{Title: "Hoover", Points: 3})
	car := f.chore(t, model.ChoreFields{Title: "Wash Car", IsBonus: true, RewardMoney: model.Pounds(5)})

	if _, err := f.ledger.Complete(car.ID, u.ID); !errors.Is(err, ErrBonusLocked) {
		t.Fatalf("err = %v, want ErrBonusLocked", err)
	}
	stored, _ := f.chores.GetByID(car.ID)
	if stored.IsCompleted {
		t.Error("locked bonus chore must stay open")
	}
	if got := f.reload(t, u.ID); got.Balance != 0 {
		t.Errorf("balance = %v, want 0", got.Balance)
	}
}

func TestBonusLockedWithoutRosterAssignments(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	car := f.chore(t, model.ChoreFields{Title: "Wash Car", IsBonus: true, RewardMoney: model.Pounds(5)})

	unlocked, err := f.bonus.Unlocked(u.ID, f.clock)
	if err != nil {
		t.Fatalf("unlocked: %v", err)
	}
	if unlocked {
		t.Error("user without rosters must not unlock bonus chores")
	}
	if _, err := f.ledger.Complete(car.ID, u.ID); !errors.Is(err, ErrBonusLocked) {
		t.Errorf("err = %v, want ErrBonusLocked", err)
	}
}

func TestBonusRequiresTodaysRosterCompletions(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	r := f.roster(t, "Morning", u.ID)
	teeth := f.chore(t, model.ChoreFields{Title: "Teeth", RosterID: &r.ID})

	if ok, _ := f.bonus.Unlocked(u.ID, f.clock); ok {
		t.Fatal("expected locked before roster is done")
	}
	f.ledger.Complete(teeth.ID, u.ID)
	if ok, _ := f.bonus.Unlocked(u.ID, f.clock); !ok {
		t.Fatal("expected unlocked after roster is done")
	}
	if ok, _ := f.bonus.Unlocked(u.ID, f.clock.Add(24*time.Hour)); ok {
		t.Error("yesterday's roster completions must not unlock today")
	}
}

func TestUncompleteReversesAndClamps(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	c := f.chore(t, model.ChoreFields{Title: "Lawn", Points: 8})

	f.ledger.Complete(c.ID, u.ID)
	if err := f.ledger.Uncomplete(c.ID); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if got := f.reload(t, u.ID); got.Points != 0 {
		t.Errorf("points = %d, want 0", got.Points)
	}
	if msg := f.hub.last(); msg.Type != websocket.TypeChoreUncompleted {
		t.Errorf("last broadcast = %s", msg.Type)
	}

	if err := f.ledger.Uncomplete(c.ID); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("err = %v, want ErrNotCompleted", err)
	}
	if err := f.ledger.Uncomplete(999); !errors.Is(err, ErrChoreNotFound) {
		t.Errorf("err = %v, want ErrChoreNotFound", err)
	}
}

func TestBalancesNeverNegative(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	f.roster(t, "Weekdays", u.ID)
	std := f.chore(t, model.ChoreFields{Title: "Dishes", Points: 5})
	bonus := f.chore(t, model.ChoreFields{Title: "Car", IsBonus: true, RewardMoney: model.Pounds(3)})

	steps := []func() error{
		func() error { _, err := f.ledger.Complete(std.ID, u.ID); return err },
		func() error { _, err := f.ledger.Complete(bonus.ID, u.ID); return err },
		func() error { return f.ledger.Uncomplete(std.ID) },
		func() error { return f.ledger.Uncomplete(bonus.ID) },
		func() error { return f.ledger.Uncomplete(bonus.ID) },
		func() error { _, err := f.ledger.Complete(std.ID, u.ID); return err },
		func() error { return f.ledger.Uncomplete(std.ID) },
	}
	for i, step := range steps {
		step()
		got := f.reload(t, u.ID)
		if got.Points < 0 || got.Balance < 0 {
			t.Fatalf("step %d: points=%d balance=%v", i, got.Points, got.Balance)
		}
	}
}

func TestResetterScan(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	r := f.roster(t, "Morning", u.ID)

	daily := f.chore(t, model.ChoreFields{Title: "Dishes", Points: 1, Frequency: model.FrequencyDaily})
	weekly := f.chore(t, model.ChoreFields{Title: "Bins", Points: 1, Frequency: model.FrequencyWeekly})
	once := f.chore(t, model.ChoreFields{Title: "Fix shelf", Points: 1, Frequency: model.FrequencyOnce})
	rosterChore := f.chore(t, model.ChoreFields{Title: "Teeth", Points: 1, RosterID: &r.ID})

	// Completed Tuesday 14 May; scan on Wednesday 15 May.
	f.clock = time.Date(2024, 5, 14, 18, 0, 0, 0, time.UTC)
	for _, c := range []*model.Chore{daily, weekly, once, rosterChore} {
		if _, err := f.ledger.Complete(c.ID, u.ID); err != nil {
			t.Fatalf("complete %s: %v", c.Title, err)
		}
	}
	before := f.reload(t, u.ID)

	resetter := NewResetter(f.chores, time.UTC, time.Hour, slog.Default())
	resetter.now = func() time.Time { return time.Date(2024, 5, 15, 1, 0, 0, 0, time.UTC) }

	n, err := resetter.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != 1 {
		t.Errorf("reset = %d, want 1", n)
	}

	check := func(c *model.Chore, want bool) {
		t.Helper()
		got, _ := f.chores.GetByID(c.ID)
		if got.IsCompleted != want {
			t.Errorf("%s completed = %v, want %v", c.Title, got.IsCompleted, want)
		}
	}
	check(daily, false)
	check(weekly, true)
	check(once, true)

	after := f.reload(t, u.ID)
	if after.Points != before.Points {
		t.Errorf("reset changed points: %d -> %d", before.Points, after.Points)
	}
	got, _ := f.chores.GetByID(daily.ID)
	if got.LastCompletedAt == nil {
		t.Error("reset must keep last_completed_at")
	}
}

func TestResetterScanContinuesPastFailure(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	stuck := f.chore(t, model.ChoreFields{Title: "Gutters", Points: 1, Frequency: model.FrequencyDaily})
	dishes := f.chore(t, model.ChoreFields{Title: "Dishes", Points: 1, Frequency: model.FrequencyDaily})
	plants := f.chore(t, model.ChoreFields{Title: "Plants", Points: 1, Frequency: model.FrequencyDaily})

	f.clock = time.Date(2024, 5, 14, 18, 0, 0, 0, time.UTC)
	for _, c := range []*model.Chore{stuck, dishes, plants} {
		if _, err := f.ledger.Complete(c.ID, u.ID); err != nil {
			t.Fatalf("complete %s: %v", c.Title, err)
		}
	}

	trigger := `CREATE TRIGGER reject_reset BEFORE UPDATE OF is_completed ON chores
		WHEN NEW.id = ` + strconv.FormatInt(stuck.ID, 10) + ` BEGIN SELECT RAISE(ABORT, 'rejected'); END`
	if _, err := f.db.Exec(trigger); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	resetter := NewResetter(f.chores, time.UTC, time.Hour, slog.Default())
	resetter.now = func() time.Time { return time.Date(2024, 5, 15, 1, 0, 0, 0, time.UTC) }

	n, err := resetter.Scan()
	if err == nil {
		t.Fatal("expected an error for the rejected chore")
	}
	if n != 2 {
		t.Errorf("reset = %d, want 2", n)
	}
	for _, c := range []*model.Chore{dishes, plants} {
		got, _ := f.chores.GetByID(c.ID)
		if got.IsCompleted {
			t.Errorf("%s still completed", c.Title)
		}
	}
	got, _ := f.chores.GetByID(stuck.ID)
	if !got.IsCompleted {
		t.Error("rejected chore was reset")
	}
}

func TestResetterRunsHookAndStops(t *testing.T) {
	f := newFixture(t)
	resetter := NewResetter(f.chores, time.UTC, time.Hour, slog.Default())

	called := make(chan struct{}, 1)
	resetter.AfterScan = func(_ context.Context, _ time.Time) {
		select {
		case called <- struct{}{}:
		default:
		}
	}

	resetter.Start(context.Background())
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("hook not called on start")
	}
	resetter.Stop()
}

func TestLeagueTable(t *testing.T) {
	f := newFixture(t)
	f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	c1 := f.chore(t, model.ChoreFields{Title: "One", Points: 1})
	c2 := f.chore(t, model.ChoreFields{Title: "Two", Points: 1})
	f.ledger.Complete(c1.ID, b.ID)
	f.ledger.Complete(c2.ID, b.ID)

	league, err := f.views.LeagueTable()
	if err != nil {
		t.Fatalf("league: %v", err)
	}
	if len(league) != 2 || league[0].UserID != b.ID || league[0].StandardCompleted != 2 {
		t.Errorf("league = %+v", league)
	}

	parent, _ := f.users.Create("p@example.com", "Parent", model.RoleParent)
	off := false
	f.prefs.Apply(parent.ID, model.PreferencesPatch{ShowLeagueTable: &off})
	league, _ = f.views.LeagueTable()
	if len(league) != 0 {
		t.Errorf("expected hidden league, got %d entries", len(league))
	}
}

func TestMyChoresHidesOthersPersonal(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	f.chore(t, model.ChoreFields{Title: "Shared"})
	f.chore(t, model.ChoreFields{Title: "B only", Personal: true, AssigneeID: &b.ID})
	f.chore(t, model.ChoreFields{Title: "Bonus", IsBonus: true})

	view, err := f.views.MyChores(a.ID, f.clock)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Standalone) != 1 || view.Standalone[0].Title != "Shared" {
		t.Errorf("standalone = %+v", view.Standalone)
	}
	if len(view.Bonus) != 1 || view.BonusUnlocked {
		t.Errorf("bonus = %d unlocked=%v", len(view.Bonus), view.BonusUnlocked)
	}
}

func TestFamilyOverview(t *testing.T) {
	f := newFixture(t)
	kid := f.user(t, "kid@example.com")
	f.users.Create("p@example.com", "Parent", model.RoleParent)
	r := f.roster(t, "Morning", kid.ID)
	c := f.chore(t, model.ChoreFields{Title: "Teeth", RosterID: &r.ID})
	f.chore(t, model.ChoreFields{Title: "Bed", RosterID: &r.ID})
	f.ledger.Complete(c.ID, kid.ID)

	overview, err := f.views.FamilyOverview(f.clock)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview) != 1 {
		t.Fatalf("members = %d, want 1 (parents excluded)", len(overview))
	}
	if overview[0].Completed != 1 || overview[0].Total != 2 {
		t.Errorf("progress = %d/%d", overview[0].Completed, overview[0].Total)
	}
}
