package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/famorg/internal/server"
	"github.com/dukerupert/famorg/internal/websocket"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and WebSocket hub",
		Long: `Run the HTTP API, the WebSocket hub and the broadcast relay.

Without FAMORG_REDIS_ADDR the queue is in-process, so the sync worker
runs inside this process as well.`,
		Args: cobra.NoArgs,
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

			if !a.cfg.GoogleEnabled() {
				a.logger.Warn("google oauth not configured, sign-in will fail")
			}

			hub := websocket.NewHub(a.logger)
			srv := server.New(db, a.cfg, q, hub, a.logger)

			httpServer := &http.Server{
				Addr:         ":" + a.cfg.Port,
				Handler:      srv.Router(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return websocket.NewRelay(hub, q, a.logger).Run(ctx) })
			g.Go(func() error {
				srv.RateLimiter().Run(ctx, time.Minute)
				return nil
			})
			if inProcess {
				a.newWorker(db, q).start(ctx, g)
			}
			g.Go(func() error {
				a.logger.Info("famorg listening", "addr", httpServer.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
}
