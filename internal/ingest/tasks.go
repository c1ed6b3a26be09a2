package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

const taskPoints = 1

// Tasks turns open items from the user's task lists into personal chores.
type Tasks struct {
	chores *store.ChoreStore
	logger *slog.Logger
}

func NewTasks(chores *store.ChoreStore, logger *slog.Logger) *Tasks {
	return &Tasks{chores: chores, logger: logger}
}

// Ingest creates a chore for each open task not seen before, keyed by the
// task's provider id.
func (t *Tasks) Ingest(ctx context.Context, userID int64, tasks []model.RemoteTask) (int, error) {
	created := 0
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		title := strings.TrimSpace(task.Title)
		if task.Completed || title == "" || task.ID == "" {
			continue
		}

		taskID := task.ID
		assignee := userID
		ok, err := t.chores.InsertIfAbsent(model.ChoreFields{
			Title:        truncate(title, maxTitleLen),
			Description:  truncate(task.Notes, maxDescriptionLen),
			Points:       taskPoints,
			Frequency:    model.FrequencyOnce,
			Source:       model.SourceManual,
			GoogleTaskID: &taskID,
			DueDate:      task.Due,
			AssigneeID:   &assignee,
			Personal:     true,
		})
		if err != nil {
			return created, fmt.Errorf("ingest task: %w", err)
		}
		if ok {
			created++
		}
	}
	t.logger.Info("tasks ingested", "user_id", userID, "tasks", len(tasks), "created", created)
	return created, nil
}
