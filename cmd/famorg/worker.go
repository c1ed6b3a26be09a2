package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/famorg/internal/assistant"
	"github.com/dukerupert/famorg/internal/chore"
	"github.com/dukerupert/famorg/internal/go4schools"
	"github.com/dukerupert/famorg/internal/google"
	"github.com/dukerupert/famorg/internal/ingest"
	"github.com/dukerupert/famorg/internal/queue"
	"github.com/dukerupert/famorg/internal/secret"
	"github.com/dukerupert/famorg/internal/store"
	"github.com/dukerupert/famorg/internal/syncer"
)

// worker bundles the background loops: the sync consumer, the recurring
// reset scan and the periodic go4schools enqueue.
type worker struct {
	orchestrator *syncer.Orchestrator
	resetter     *chore.Resetter
	timer        *syncer.Go4SchoolsTimer
}

func (a *app) newAnalyzer(db *sql.DB) *assistant.Analyzer {
	gen := assistant.NewClient(a.cfg.OllamaHost, a.cfg.OllamaModel, a.cfg.OllamaTimeout)
	return assistant.NewAnalyzer(gen, store.NewUserStore(db), store.NewEventStore(db), store.NewChoreStore(db), store.NewAlertStore(db), a.cfg.Location, a.logger)
}

func (a *app) newResetter(db *sql.DB) *chore.Resetter {
	r := chore.NewResetter(store.NewChoreStore(db), a.cfg.Location, a.cfg.ResetInterval, a.logger)
	analyzer := a.newAnalyzer(db)
	r.AfterScan = func(ctx context.Context, now time.Time) {
		if err := analyzer.AnalyzeAll(ctx, now); err != nil {
			a.logger.Error("schedule analysis failed", "error", err)
		}
	}
	return r
}

func (a *app) newWorker(db *sql.DB, q queue.Queue) *worker {
	users := store.NewUserStore(db)
	events := store.NewEventStore(db)
	chores := store.NewChoreStore(db)

	oauthCfg := google.NewOAuthConfig(a.cfg.GoogleClientID, a.cfg.GoogleClientSecret, a.cfg.GoogleRedirectURI)
	gc := google.NewClient(oauthCfg, a.cfg.CalendarTimeout, a.cfg.Location)
	gen := assistant.NewClient(a.cfg.OllamaHost, a.cfg.OllamaModel, a.cfg.OllamaTimeout)

	o := syncer.NewOrchestrator(syncer.Deps{
		Queue:      q,
		Users:      users,
		Prefs:      store.NewPreferencesStore(db),
		Refresher:  google.NewAuthenticator(oauthCfg, a.cfg.CalendarTimeout),
		Calendars:  gc,
		Tasks:      gc,
		Scraper:    go4schools.NewClient(a.cfg.ScraperURL, a.cfg.ScraperTimeout),
		Box:        secret.NewBox(a.cfg.SecretKey),
		Calendar:   ingest.NewCalendar(events),
		TaskIngest: ingest.NewTasks(chores, a.logger),
		Homework:   ingest.NewHomework(chores, a.cfg.Location, a.logger),
		Planner:    ingest.NewPlanner(events, chores, assistant.NewSuggester(gen, a.logger), a.logger),
	}, a.logger)

	return &worker{
		orchestrator: o,
		resetter:     a.newResetter(db),
		timer:        syncer.NewGo4SchoolsTimer(users, q, a.cfg.Go4SchoolsInitialDelay, a.cfg.Go4SchoolsInterval, a.logger),
	}
}

// start launches the loops on g. They all stop when ctx is done.
func (w *worker) start(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return w.orchestrator.Run(ctx) })
	g.Go(func() error { return w.timer.Run(ctx) })
	g.Go(func() error {
		w.resetter.Start(ctx)
		<-ctx.Done()
		w.resetter.Stop()
		return nil
	})
}

func newWorkerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume sync jobs and run the reset and go4schools timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.SecretKey == "" {
				return errNoSecretKey
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			q, inProcess, err := a.openQueue(ctx)
			if err != nil {
				return err
			}
			defer q.Close()
			if inProcess {
				a.logger.Warn("worker running without redis will only see jobs it enqueues itself")
			}

			g, ctx := errgroup.WithContext(ctx)
			a.newWorker(db, q).start(ctx, g)
			a.logger.Info("worker started")
			return g.Wait()
		},
	}
}

func newResetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Run one recurring reset scan and schedule analysis, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			a.newResetter(db).RunOnce(ctx)
			return nil
		},
	}
}
