package chore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/dukerupert/famorg/internal/store"
)

// Resetter clears the completed flag of standalone recurring chores once their
// period has rolled over. Roster chores need no reset: their completions are
// keyed by day.
type Resetter struct {
	mu       sync.RWMutex
	chores   *store.ChoreStore
	loc      *time.Location
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}

	// AfterScan, when set, runs after every scheduled scan.
	AfterScan func(ctx context.Context, now time.Time)
}

func NewResetter(chores *store.ChoreStore, loc *time.Location, interval time.Duration, logger *slog.Logger) *Resetter {
	return &Resetter{
		chores:   chores,
		loc:      loc,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Scan resets every chore whose period has ended and returns how many it reset.
// A chore that fails to reset does not stop the rest; the failures are joined.
func (r *Resetter) Scan() (int, error) {
	now := r.now()
	completed, err := r.chores.ListCompletedStandalone()
	if err != nil {
		return 0, fmt.Errorf("reset scan: %w", err)
	}

	n := 0
	var errs error
	for _, c := range completed {
		if c.LastCompletedAt == nil || !ShouldReset(c.Frequency, *c.LastCompletedAt, now, r.loc) {
			continue
		}
		ok, err := r.chores.ClearCompletion(c.ID, *c.LastCompletedAt)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reset chore %d: %w", c.ID, err))
			continue
		}
		if !ok {
			r.logger.Debug("chore changed during reset", "chore_id", c.ID)
			continue
		}
		r.logger.Debug("chore reset", "chore_id", c.ID, "frequency", c.Frequency)
		n++
	}
	return n, errs
}

// RunOnce performs one scan followed by the AfterScan hook. Failures are logged.
func (r *Resetter) RunOnce(ctx context.Context) {
	n, err := r.Scan()
	if err != nil {
		r.logger.Error("reset scan failed", "reset", n, "error", err)
	} else {
		r.logger.Info("reset scan complete", "reset", n)
	}
	if r.AfterScan != nil {
		r.AfterScan(ctx, r.now())
	}
}

// Start runs a scan immediately and then every interval until Stop.
func (r *Resetter) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		r.RunOnce(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the running scan to finish.
func (r *Resetter) Stop() {
	r.mu.RLock()
	cancel := r.cancel
	done := r.done
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
