package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"parking-service/internal/metrics"
	"parking-service/internal/model"
)

// Source is the gate backend surface guarded by the breaker.
type Source interface {
	ListEvents(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error)
	ListVerifiedSessions(ctx context.Context) ([]model.VerifiedSessionRecord, error)
	FinalizeExit(ctx context.Context, exitID string) (model.FinalizeResult, error)
}

type BreakerSettings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// MinRequests and FailureRatio decide when the circuit opens.
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "gate-api",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// BreakerClient stops calling the gate backend while it keeps failing.
// Rejected calls fail fast with model.ErrSourceUnavailable, so the verified
// path falls back and the naive path reports an empty set.
type BreakerClient struct {
	source Source
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
	log    zerolog.Logger
}

func NewBreakerClient(source Source, settings BreakerSettings, log zerolog.Logger) *BreakerClient {
	log = log.With().Str("component", "circuit_breaker").Str("name", settings.Name).Logger()

	metrics.CircuitBreakerState.WithLabelValues(settings.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// A refused finalize is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, model.ErrFinalizeRejected)
		},
	})

	return &BreakerClient{source: source, cb: cb, name: settings.Name, log: log}
}

func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return result, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

func (b *BreakerClient) ListEvents(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.source.ListEvents(ctx, gate, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.GateEvent), nil
}

func (b *BreakerClient) ListVerifiedSessions(ctx context.Context) ([]model.VerifiedSessionRecord, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.source.ListVerifiedSessions(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.VerifiedSessionRecord), nil
}

func (b *BreakerClient) FinalizeExit(ctx context.Context, exitID string) (model.FinalizeResult, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.source.FinalizeExit(ctx, exitID)
	})
	res, _ := result.(model.FinalizeResult)
	return res, err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
