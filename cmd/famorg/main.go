package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dukerupert/famorg/internal/config"
	"github.com/dukerupert/famorg/internal/database"
	"github.com/dukerupert/famorg/internal/logging"
	"github.com/dukerupert/famorg/internal/queue"
)

var errNoSecretKey = errors.New("FAMORG_SECRET_KEY must be set")

// app is the state shared by every subcommand, filled in before RunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "famorg:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "famorg",
		Short:         "Family chores, rewards and calendar sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newWorkerCommand(a))
	cmd.AddCommand(newResetCommand(a))
	cmd.AddCommand(newMigrateCommand(a))

	return cmd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.OpenWithRetry(ctx, a.cfg.DBPath, a.cfg.StartupAttempts, a.cfg.StartupBackoff, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("database ready", "path", a.cfg.DBPath)
	return db, nil
}

// openQueue connects to Redis when configured and falls back to an in-process
// queue otherwise. The bool reports whether the queue is in-process.
func (a *app) openQueue(ctx context.Context) (queue.Queue, bool, error) {
	if a.cfg.RedisAddr == "" {
		a.logger.Info("no redis configured, using in-process queue")
		return queue.NewMemory(), true, nil
	}
	q, err := queue.Connect(ctx, queue.RedisOptions{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
		Attempts: a.cfg.StartupAttempts,
		Backoff:  a.cfg.StartupBackoff,
	}, a.logger)
	if err != nil {
		return nil, false, err
	}
	return q, false, nil
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}
