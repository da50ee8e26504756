package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"parking-service/internal/auth"
	"parking-service/internal/events"
	httphandler "parking-service/internal/http"
	"parking-service/internal/http/middleware"
	"parking-service/internal/service"
	"parking-service/internal/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with background refresh",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		refresher := service.NewRefresher(a.sessions.GetEnhancedGroupedSessions, service.RefresherOptions{
			Interval:    a.cfg.Refresh.Interval,
			TriggerRate: a.cfg.Refresh.TriggerRate,
		}, a.log)
		a.sessions.OnFinalize(refresher.Trigger)

		tokenParser := auth.NewParser(a.cfg.Auth.AccessSecret)
		handler := httphandler.NewHandler(a.sessions, refresher, a.log)
		router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), a.cfg.Environment)

		addr := fmt.Sprintf("%s:%d", a.cfg.HTTP.Host, a.cfg.HTTP.Port)
		server := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		tree := supervisor.New("parking-service", supervisor.DefaultConfig(), a.log)
		tree.Add(refresher)
		tree.Add(supervisor.NewSweepService(a.cache, time.Minute, a.log))
		tree.Add(supervisor.NewHTTPService(server, 10*time.Second))
		if a.cfg.NATS.URL != "" {
			tree.Add(events.NewListener(a.cfg.NATS.URL, a.cfg.NATS.Subject, func() {
				a.source.Invalidate()
				refresher.Trigger()
			}, a.log))
		}

		a.log.Info().Str("addr", addr).Msg("starting parking service")
		if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("supervisor: %w", err)
		}
		a.log.Info().Msg("parking service stopped")
		return nil
	},
}
