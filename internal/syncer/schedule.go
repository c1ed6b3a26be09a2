package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/famorg/internal/queue"
	"github.com/dukerupert/famorg/internal/store"
)

// Enqueue publishes a sync job for userID.
func Enqueue(ctx context.Context, pub queue.Publisher, kind string, userID int64) error {
	if err := pub.Publish(ctx, queue.Sync, queue.NewMessage(kind, userID)); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

// Go4SchoolsTimer periodically enqueues a homework sync for every user with
// stored portal credentials.
type Go4SchoolsTimer struct {
	users        *store.UserStore
	pub          queue.Publisher
	initialDelay time.Duration
	interval     time.Duration
	logger       *slog.Logger
}

func NewGo4SchoolsTimer(users *store.UserStore, pub queue.Publisher, initialDelay, interval time.Duration, logger *slog.Logger) *Go4SchoolsTimer {
	return &Go4SchoolsTimer{users: users, pub: pub, initialDelay: initialDelay, interval: interval, logger: logger}
}

// Run waits initialDelay, enqueues, then repeats every interval until ctx is done.
func (t *Go4SchoolsTimer) Run(ctx context.Context) error {
	timer := time.NewTimer(t.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		n, err := t.EnqueueAll(ctx)
		if err != nil {
			t.logger.Error("enqueue go4schools syncs", "error", err)
		} else {
			t.logger.Info("go4schools syncs enqueued", "users", n)
		}
		timer.Reset(t.interval)
	}
}

// EnqueueAll enqueues one go4schools_sync per connected user.
func (t *Go4SchoolsTimer) EnqueueAll(ctx context.Context) (int, error) {
	ids, err := t.users.ListGo4SchoolsUserIDs()
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := Enqueue(ctx, t.pub, queue.KindGo4SchoolsSync, id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}
