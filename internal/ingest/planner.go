package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

const (
	prepPoints      = 3
	maxPrepPerEvent = 3
	prepWindowStart = 7 * 24 * time.Hour
	prepWindowEnd   = 14 * 24 * time.Hour
)

// Suggester proposes preparation tasks for an event summary.
type Suggester interface {
	SuggestTasks(ctx context.Context, summary string) []string
}

// Planner creates personal preparation chores for events one to two weeks out.
type Planner struct {
	events    *store.EventStore
	chores    *store.ChoreStore
	suggester Suggester
	logger    *slog.Logger
}

func NewPlanner(events *store.EventStore, chores *store.ChoreStore, suggester Suggester, logger *slog.Logger) *Planner {
	return &Planner{events: events, chores: chores, suggester: suggester, logger: logger}
}

// Generate plans tasks for the user's events starting between seven and
// fourteen days after now. Each task is due the day before its event and is
// created once per (event, title).
func (p *Planner) Generate(ctx context.Context, userID int64, now time.Time) (int, error) {
	events, err := p.events.ListRange(userID, now.Add(prepWindowStart), now.Add(prepWindowEnd))
	if err != nil {
		return 0, fmt.Errorf("plan preparation tasks: %w", err)
	}

	created := 0
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		tasks := p.suggester.SuggestTasks(ctx, e.Summary)
		if len(tasks) > maxPrepPerEvent {
			tasks = tasks[:maxPrepPerEvent]
		}
		due := e.StartTime.AddDate(0, 0, -1)

		for _, title := range tasks {
			sourceID := Fingerprint(e.GoogleEventID, title)
			assignee := userID
			ok, err := p.chores.InsertIfAbsent(model.ChoreFields{
				Title:      truncate(title, maxTitleLen),
				Points:     prepPoints,
				Frequency:  model.FrequencyOnce,
				Source:     model.SourceAI,
				SourceID:   &sourceID,
				DueDate:    &due,
				AssigneeID: &assignee,
				Personal:   true,
			})
			if err != nil {
				return created, fmt.Errorf("plan preparation tasks: %w", err)
			}
			if ok {
				created++
			}
		}
	}
	if created > 0 {
		p.logger.Info("preparation tasks created", "user_id", userID, "created", created)
	}
	return created, nil
}
