package ingest

import (
	"fmt"

	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

const untitledEvent = "(No Title)"

// Hidden reports whether an event's visibility keeps it out of the household view.
func Hidden(visibility string) bool {
	return visibility == "private" || visibility == "confidential"
}

// Calendar stores remote events, keyed by their provider id.
type Calendar struct {
	events *store.EventStore
}

func NewCalendar(events *store.EventStore) *Calendar {
	return &Calendar{events: events}
}

// Ingest upserts the visible events for userID and returns how many it stored.
func (c *Calendar) Ingest(userID int64, events []model.RemoteEvent) (int, error) {
	stored := 0
	for _, re := range events {
		if Hidden(re.Visibility) {
			continue
		}
		summary := re.Summary
		if summary == "" {
			summary = untitledEvent
		}
		err := c.events.Upsert(model.Event{
			GoogleEventID: re.ID,
			Summary:       summary,
			StartTime:     re.Start,
			EndTime:       re.End,
			AllDay:        re.AllDay,
			Location:      re.Location,
			UserID:        userID,
		})
		if err != nil {
			return stored, fmt.Errorf("ingest event %s: %w", re.ID, err)
		}
		stored++
	}
	return stored, nil
}
