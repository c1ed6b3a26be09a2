// Package syncer runs background synchronisation jobs against external
// systems, one job at a time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dukerupert/famorg/internal/go4schools"
	"github.com/dukerupert/famorg/internal/google"
	"github.com/dukerupert/famorg/internal/ingest"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/queue"
	"github.com/dukerupert/famorg/internal/secret"
	"github.com/dukerupert/famorg/internal/store"
)

const (
	defaultCalendar = "primary"
	maxSyncErrorLen = 200
)

var (
	ErrUnknownJob  = errors.New("unknown job type")
	ErrUnknownUser = errors.New("unknown user")
	ErrNoToken     = errors.New("google token unavailable")
	ErrNoAccount   = errors.New("no go4schools account")
)

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Queue      queue.Queue
	Users      *store.UserStore
	Prefs      *store.PreferencesStore
	Refresher  google.TokenRefresher
	Calendars  google.CalendarSource
	Tasks      google.TaskSource
	Scraper    go4schools.Scraper
	Box        *secret.Box
	Calendar   *ingest.Calendar
	TaskIngest *ingest.Tasks
	Homework   *ingest.Homework
	Planner    *ingest.Planner
}

// Orchestrator consumes sync_queue and runs each job to completion before
// taking the next. A job that touched an external system always announces a
// dashboard_refresh for its user, whatever the outcome.
type Orchestrator struct {
	Deps
	tokens  *Tokens
	now     func() time.Time
	logger  *slog.Logger
	backoff time.Duration
}

func NewOrchestrator(d Deps, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{Deps: d, now: time.Now, logger: logger, backoff: time.Second}
	o.tokens = NewTokens(d.Users, d.Refresher, logger)
	o.tokens.now = func() time.Time { return o.now() }
	return o
}

// Run consumes until ctx is done or the queue is closed.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("sync orchestrator started")
	for {
		msg, err := o.Queue.Receive(ctx, queue.Sync)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, queue.ErrClosed):
			return nil
		case errors.Is(err, queue.ErrMalformed):
			o.logger.Warn("skipping malformed job", "error", err)
			continue
		case err != nil:
			o.logger.Error("receive job", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(o.backoff):
			}
			continue
		}

		o.runJob(ctx, msg)
	}
}

func (o *Orchestrator) runJob(ctx context.Context, msg queue.Message) {
	logger := o.logger.With("job_id", uuid.NewString(), "job", msg.Type, "user_id", msg.Data.UserID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("sync job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	start := time.Now()
	if err := o.Process(ctx, msg, logger); err != nil {
		logger.Warn("sync job failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("sync job finished", "duration", time.Since(start))
}

// Process runs a single job.
func (o *Orchestrator) Process(ctx context.Context, msg queue.Message, logger *slog.Logger) error {
	switch msg.Type {
	case queue.KindCalendarSync, queue.KindTasksSync, queue.KindGo4SchoolsSync:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.Type)
	}

	user, err := o.Users.GetByID(msg.Data.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return ErrUnknownUser
	}

	if msg.Type == queue.KindGo4SchoolsSync {
		return o.syncGo4Schools(ctx, user, logger)
	}

	tok, err := o.tokens.get(ctx, user.ID, logger)
	if err != nil {
		return err
	}
	if msg.Type == queue.KindCalendarSync {
		err = o.syncCalendars(ctx, user, tok, logger)
	} else {
		err = o.syncTasks(ctx, user, tok, logger)
	}
	o.notify(ctx, user.ID, logger)
	return err
}

func (o *Orchestrator) syncCalendars(ctx context.Context, user *model.User, tok google.Token, logger *slog.Logger) error {
	ids := user.SyncedCalendars
	if len(ids) == 0 {
		ids = []string{defaultCalendar}
	}
	now := o.now()

	var errs error
	stored := 0
	for _, id := range ids {
		events, err := o.Calendars.ListEvents(ctx, tok, id, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("calendar %s: %w", id, err))
			continue
		}
		n, err := o.Calendar.Ingest(user.ID, events)
		stored += n
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("calendar %s: %w", id, err))
		}
	}
	for _, err := range multierr.Errors(errs) {
		logger.Warn("calendar sync partial failure", "error", err)
	}
	logger.Info("calendars synced", "calendars", len(ids), "events", stored)

	if _, err := o.Planner.Generate(ctx, user.ID, now); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("plan preparation tasks: %w", err))
	}
	return errs
}

func (o *Orchestrator) syncTasks(ctx context.Context, user *model.User, tok google.Token, logger *slog.Logger) error {
	tasks, err := o.Tasks.ListTasks(ctx, tok)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	n, err := o.TaskIngest.Ingest(ctx, user.ID, tasks)
	if err != nil {
		return err
	}
	logger.Info("tasks synced", "tasks", len(tasks), "created", n)
	return nil
}

func (o *Orchestrator) syncGo4Schools(ctx context.Context, user *model.User, logger *slog.Logger) error {
	creds, err := o.Users.GetCredentials(user.ID)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if creds.Go4SchoolsEmail == "" || len(creds.Go4SchoolsPassword) == 0 {
		return ErrNoAccount
	}

	syncErr := o.scrapeHomework(ctx, user.ID, creds)
	msg := ""
	if syncErr != nil {
		msg = truncate(syncErr.Error(), maxSyncErrorLen)
	}
	if err := o.Prefs.RecordSync(user.ID, o.now(), msg); err != nil {
		syncErr = multierr.Append(syncErr, err)
	}
	o.notify(ctx, user.ID, logger)
	return syncErr
}

func (o *Orchestrator) scrapeHomework(ctx context.Context, userID int64, creds *model.Credentials) error {
	password, err := o.Box.Open(creds.Go4SchoolsPassword)
	if err != nil {
		return fmt.Errorf("could not read stored password: %w", err)
	}
	items, err := o.Scraper.Scrape(ctx, creds.Go4SchoolsEmail, password)
	if err != nil {
		return err
	}
	_, err = o.Homework.Ingest(ctx, userID, items)
	return err
}

func (o *Orchestrator) notify(ctx context.Context, userID int64, logger *slog.Logger) {
	msg := queue.NewMessage(queue.KindDashboardRefresh, userID)
	if err := o.Queue.Publish(ctx, queue.Broadcast, msg); err != nil {
		logger.Error("publish dashboard refresh", "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
