package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

const (
	minThreshold   = 2.0
	thresholdRaise = 0.5
	thresholdLower = 0.2
)

var ErrAlertNotFound = apperr.NotFound("alert_not_found", "alert not found")

const analyzePrompt = `You are a helpful family organization assistant.
User %s has a busy day with %d events and %d tasks.
Events: %s
Tasks: %s

Based on this, provide a VERY SHORT (max 20 words) proactive warning or suggestion.
Keep it encouraging but realistic. Don't use markdown.`

// Analyzer warns users about overloaded days and adapts to their feedback.
type Analyzer struct {
	gen    Generator
	users  *store.UserStore
	events *store.EventStore
	chores *store.ChoreStore
	alerts *store.AlertStore
	loc    *time.Location
	logger *slog.Logger
}

func NewAnalyzer(gen Generator, users *store.UserStore, events *store.EventStore, chores *store.ChoreStore, alerts *store.AlertStore, loc *time.Location, logger *slog.Logger) *Analyzer {
	return &Analyzer{gen: gen, users: users, events: events, chores: chores, alerts: alerts, loc: loc, logger: logger}
}

// Analyze counts the user's remaining events today and open assigned chores.
// Above the user's threshold it creates a warning, at most one per day.
// A nil alert means nothing was created.
func (a *Analyzer) Analyze(ctx context.Context, userID int64, now time.Time) (*model.Alert, error) {
	u, err := a.users.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("analyze schedule: %w", err)
	}
	if u == nil {
		return nil, nil
	}

	local := now.In(a.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := a.events.ListRange(userID, now, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("analyze schedule: %w", err)
	}
	chores, err := a.chores.ListOpenAssigned(userID)
	if err != nil {
		return nil, fmt.Errorf("analyze schedule: %w", err)
	}

	count := len(events) + len(chores)
	if float64(count) <= u.CompletionThreshold {
		return nil, nil
	}

	exists, err := a.alerts.ExistsSince(userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("analyze schedule: %w", err)
	}
	if exists {
		return nil, nil
	}

	msg := a.message(ctx, u, events, chores)
	alert, err := a.alerts.Create(userID, msg, model.AlertWarning, now)
	if err != nil {
		return nil, fmt.Errorf("analyze schedule: %w", err)
	}
	a.logger.Info("schedule alert created", "user_id", userID, "events", len(events), "chores", len(chores))
	return alert, nil
}

func (a *Analyzer) message(ctx context.Context, u *model.User, events []model.Event, chores []model.Chore) string {
	fallback := fmt.Sprintf("Busy day! %d events and %d tasks remaining.", len(events), len(chores))
	if a.gen == nil {
		return fallback
	}

	summaries := make([]string, len(events))
	for i, e := range events {
		summaries[i] = e.Summary
	}
	titles := make([]string, len(chores))
	for i, c := range chores {
		titles[i] = c.Title
	}

	prompt := fmt.Sprintf(analyzePrompt, u.Name, len(events), len(chores), strings.Join(summaries, ", "), strings.Join(titles, ", "))
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("schedule message generation failed", "user_id", u.ID, "error", err)
		return fallback
	}
	out = strings.TrimSpace(thinkBlock.ReplaceAllString(out, ""))
	if out == "" {
		return fallback
	}
	return out
}

// AnalyzeAll runs Analyze for every user. One user's failure does not stop the rest.
func (a *Analyzer) AnalyzeAll(ctx context.Context, now time.Time) error {
	users, err := a.users.List()
	if err != nil {
		return fmt.Errorf("analyze all: %w", err)
	}

	var errs error
	for _, u := range users {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if _, err := a.Analyze(ctx, u.ID, now); err != nil {
			a.logger.Error("schedule analysis failed", "user_id", u.ID, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("user %d: %w", u.ID, err))
		}
	}
	return errs
}

// Feedback records a rating on an alert and dismisses it. A negative rating
// makes future alerts less likely; a positive one more likely, down to a floor.
func (a *Analyzer) Feedback(alertID int64, feedback int) error {
	if feedback != -1 && feedback != 1 {
		return apperr.Invalid("invalid_feedback", "feedback must be 1 or -1")
	}

	alert, err := a.alerts.GetByID(alertID)
	if err != nil {
		return fmt.Errorf("alert feedback: %w", err)
	}
	if alert == nil {
		return ErrAlertNotFound
	}
	u, err := a.users.GetByID(alert.UserID)
	if err != nil {
		return fmt.Errorf("alert feedback: %w", err)
	}
	if u == nil {
		return ErrAlertNotFound
	}

	if err := a.alerts.RecordFeedback(alertID, feedback); err != nil {
		return err
	}

	threshold := u.CompletionThreshold
	if feedback < 0 {
		threshold += thresholdRaise
	} else {
		threshold = math.Max(minThreshold, threshold-thresholdLower)
	}
	if err := a.users.SetCompletionThreshold(u.ID, threshold); err != nil {
		return err
	}
	a.logger.Info("alert feedback recorded", "alert_id", alertID, "user_id", u.ID, "threshold", threshold)
	return nil
}
