package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

const (
	homeworkPoints    = 5
	maxTitleLen       = 200
	maxDescriptionLen = 500
)

var dueLayouts = []string{"02/01/2006", "2 Jan 2006", "2006-01-02"}

// Homework creates one-off chores from scraped homework rows.
type Homework struct {
	chores *store.ChoreStore
	loc    *time.Location
	logger *slog.Logger
}

func NewHomework(chores *store.ChoreStore, loc *time.Location, logger *slog.Logger) *Homework {
	return &Homework{chores: chores, loc: loc, logger: logger}
}

// ParseDue reads a due date in any of the portal's formats. Unknown formats
// yield nil.
func ParseDue(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}

// Ingest creates a chore for every row not seen before and returns how many
// it created. Rows are keyed by subject, title and due text.
func (h *Homework) Ingest(ctx context.Context, userID int64, rows []model.HomeworkItem) (int, error) {
	created := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		sourceID := Fingerprint(row.Subject, row.Title, row.Due)
		assignee := userID
		ok, err := h.chores.InsertIfAbsent(model.ChoreFields{
			Title:       truncate(row.Subject+": "+row.Title, maxTitleLen),
			Description: truncate(row.Description, maxDescriptionLen),
			Points:      homeworkPoints,
			Frequency:   model.FrequencyOnce,
			Source:      model.SourceGo4Schools,
			SourceID:    &sourceID,
			DueDate:     ParseDue(row.Due, h.loc),
			AssigneeID:  &assignee,
		})
		if err != nil {
			return created, fmt.Errorf("ingest homework: %w", err)
		}
		if ok {
			created++
		}
	}
	h.logger.Info("homework ingested", "user_id", userID, "rows", len(rows), "created", created)
	return created, nil
}
