package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// New returns the root supervisor. Restarts and panics are reported through log.
func New(name string, cfg Config, log zerolog.Logger) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook:        eventHook(log),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
}

func eventHook(log zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		switch ev := e.(type) {
		case suture.EventServicePanic:
			log.Error().
				Str("supervisor", ev.SupervisorName).
				Str("service", ev.ServiceName).
				Str("panic", ev.PanicMsg).
				Msg("service panicked")
		case suture.EventServiceTerminate:
			log.Warn().
				Str("supervisor", ev.SupervisorName).
				Str("service", ev.ServiceName).
				Interface("err", ev.Err).
				Bool("restarting", ev.Restarting).
				Msg("service terminated")
		case suture.EventBackoff:
			log.Warn().Str("supervisor", ev.SupervisorName).Msg("supervisor entering backoff")
		case suture.EventResume:
			log.Info().Str("supervisor", ev.SupervisorName).Msg("supervisor resumed")
		case suture.EventStopTimeout:
			log.Error().
				Str("supervisor", ev.SupervisorName).
				Str("service", ev.ServiceName).
				Msg("service did not stop in time")
		default:
			log.Debug().Str("event", e.String()).Msg("supervisor event")
		}
	}
}

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server until the supervisor context ends.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string {
	return "http-server"
}

type Sweeper interface {
	Sweep() int
}

// SweepService periodically drops expired cache entries.
type SweepService struct {
	cache    Sweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewSweepService(cache Sweeper, interval time.Duration, log zerolog.Logger) *SweepService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepService{cache: cache, interval: interval, log: log}
}

func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.cache.Sweep(); n > 0 {
				s.log.Debug().Int("removed", n).Msg("cache sweep")
			}
		}
	}
}

func (s *SweepService) String() string {
	return "cache-sweeper"
}
