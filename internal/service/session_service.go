package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"parking-service/internal/metrics"
	"parking-service/internal/model"
	"parking-service/internal/reconcile"
)

type SessionService struct {
	source     EventSource
	engine     *reconcile.Engine
	adapter    *reconcile.Adapter
	settings   SettingsStore
	eventLimit int
	log        zerolog.Logger

	// called after a successful finalize
	onFinalize func()
}

func NewSessionService(source EventSource, validator reconcile.Validator, settings SettingsStore, eventLimit int, log zerolog.Logger) *SessionService {
	return &SessionService{
		source:     source,
		engine:     reconcile.NewEngine(validator),
		adapter:    reconcile.NewAdapter(validator),
		settings:   settings,
		eventLimit: eventLimit,
		log:        log.With().Str("component", "session_service").Logger(),
		onFinalize: func() {},
	}
}

// OnFinalize registers a hook run after every successful finalize.
func (s *SessionService) OnFinalize(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	s.onFinalize = fn
}

// GetGroupedSessions runs the plate-only engine over the latest In and Out
// windows. When the source fails it returns an empty set with the error.
func (s *SessionService) GetGroupedSessions(ctx context.Context) ([]model.ParkingSession, error) {
	start := time.Now()
	sessions, err := s.naive(ctx)
	record(reconcile.PathNaive, start, err)
	return sessions, err
}

func (s *SessionService) naive(ctx context.Context) ([]model.ParkingSession, error) {
	var in, out []model.GateEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gate := model.GateIn
		events, err := s.source.ListEvents(gctx, &gate, s.eventLimit)
		if err != nil {
			return fmt.Errorf("list In events: %w", err)
		}
		in = events
		return nil
	})
	g.Go(func() error {
		gate := model.GateOut
		events, err := s.source.ListEvents(gctx, &gate, s.eventLimit)
		if err != nil {
			return fmt.Errorf("list Out events: %w", err)
		}
		out = events
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("failed to fetch gate events")
		return []model.ParkingSession{}, err
	}
	return s.engine.Run(in, out), nil
}

// GetEnhancedGroupedSessions prefers the verified feed and falls back to
// the naive engine.
func (s *SessionService) GetEnhancedGroupedSessions(ctx context.Context) reconcile.Outcome {
	start := time.Now()
	outcome := s.adapter.Resolve(ctx, s.source.ListVerifiedSessions, s.naive)
	if outcome.Path == reconcile.PathFallback && outcome.Cause != nil {
		s.log.Warn().Err(outcome.Cause).Int("sessions", len(outcome.Sessions)).Msg("verified feed unavailable, using naive pairing")
	}
	record(outcome.Path, start, outcome.Cause)
	return outcome
}

func (s *SessionService) Search(sessions []model.ParkingSession, filter reconcile.Filter) []model.ParkingSession {
	return reconcile.Search(sessions, filter)
}

// FinalizeExit promotes an unverified session through the source. Nothing
// is changed locally; the next refresh picks up the result.
func (s *SessionService) FinalizeExit(ctx context.Context, principal model.Principal, exitID string) (model.FinalizeResult, error) {
	if !principal.CanOperate() {
		return model.FinalizeResult{}, ErrPermissionDenied
	}
	exitID = strings.TrimSpace(exitID)
	if exitID == "" {
		return model.FinalizeResult{}, ErrInvalidInput
	}

	result, err := s.source.FinalizeExit(ctx, exitID)
	if err != nil {
		if errors.Is(err, model.ErrFinalizeRejected) {
			s.log.Info().Str("exit_session_id", exitID).Str("reason", result.Message).Msg("finalize rejected")
		} else {
			s.log.Error().Err(err).Str("exit_session_id", exitID).Msg("finalize failed")
		}
		return result, err
	}

	s.log.Info().
		Str("exit_session_id", exitID).
		Str("entry_session_id", result.EntrySessionID).
		Str("user_id", principal.UserID.String()).
		Msg("exit finalized")
	s.onFinalize()
	return result, nil
}

func (s *SessionService) Stats(ctx context.Context, sessions []model.ParkingSession) (model.DashboardStats, error) {
	slots, err := s.settings.TotalSlots(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	return reconcile.Summarize(sessions, slots), nil
}

func (s *SessionService) UpdateTotalSlots(ctx context.Context, principal model.Principal, slots int) error {
	if !principal.IsAdmin() {
		return ErrPermissionDenied
	}
	if slots < 0 {
		return ErrInvalidInput
	}
	if err := s.settings.SetTotalSlots(ctx, slots); err != nil {
		return err
	}
	s.log.Info().Int("total_slots", slots).Str("user_id", principal.UserID.String()).Msg("total slots updated")
	return nil
}

func record(path reconcile.Path, start time.Time, err error) {
	label := string(path)
	metrics.ReconcileRuns.WithLabelValues(label).Inc()
	metrics.ReconcileDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(label).Inc()
	}
}
