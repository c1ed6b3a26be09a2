package websocket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/famorg/internal/queue"
)

// Relay forwards dashboard_refresh notifications from the broadcast queue to
// every connected client.
type Relay struct {
	hub      *Hub
	consumer queue.Consumer
	logger   *slog.Logger
	backoff  time.Duration
}

func NewRelay(hub *Hub, consumer queue.Consumer, logger *slog.Logger) *Relay {
	return &Relay{hub: hub, consumer: consumer, logger: logger, backoff: time.Second}
}

// Run consumes until ctx is done or the queue is closed.
func (r *Relay) Run(ctx context.Context) error {
	for {
		msg, err := r.consumer.Receive(ctx, queue.Broadcast)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, queue.ErrClosed):
			return nil
		case errors.Is(err, queue.ErrMalformed):
			r.logger.Warn("skipping malformed broadcast", "error", err)
			continue
		case err != nil:
			r.logger.Error("receive broadcast", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.backoff):
			}
			continue
		}

		if msg.Type != queue.KindDashboardRefresh {
			r.logger.Warn("unknown broadcast kind", "type", msg.Type)
			continue
		}
		r.hub.Broadcast(DashboardRefresh(msg.Data.UserID))
	}
}
