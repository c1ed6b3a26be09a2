// Package queue carries sync jobs and dashboard notifications between the
// API process and the worker.
package queue

import (
	"context"
	"errors"
)

// Queue names.
const (
	Sync      = "sync_queue"
	Broadcast = "broadcast_queue"
)

// Message kinds.
const (
	KindCalendarSync     = "calendar_sync"
	KindTasksSync        = "tasks_sync"
	KindGo4SchoolsSync   = "go4schools_sync"
	KindDashboardRefresh = "dashboard_refresh"
)

// ErrMalformed marks a message body that could not be decoded. Consumers skip it.
var ErrMalformed = errors.New("malformed queue message")

var ErrClosed = errors.New("queue closed")

// Message is the wire form: {"type": "...", "data": {"user_id": n}}.
type Message struct {
	Type string  `json:"type"`
	Data Payload `json:"data"`
}

type Payload struct {
	UserID int64 `json:"user_id"`
}

func NewMessage(kind string, userID int64) Message {
	return Message{Type: kind, Data: Payload{UserID: userID}}
}

type Publisher interface {
	Publish(ctx context.Context, queue string, msg Message) error
}

type Consumer interface {
	// Receive blocks until a message is available on queue or ctx is done.
	Receive(ctx context.Context, queue string) (Message, error)
}

type Queue interface {
	Publisher
	Consumer
	Close() error
}
