package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"parking-service/internal/metrics"
	"parking-service/internal/model"
	"parking-service/internal/reconcile"
)

// Snapshot is one published reconciliation result. Published snapshots are
// never modified.
type Snapshot struct {
	Sessions    []model.ParkingSession
	Path        reconcile.Path
	Err         error
	RefreshedAt time.Time
}

type ReconcileFunc func(ctx context.Context) reconcile.Outcome

type RefresherOptions struct {
	Interval    time.Duration
	TriggerRate float64
}

// Refresher is the single consumer of reconciliation passes. At most one
// pass runs at a time; requests arriving meanwhile are dropped.
type Refresher struct {
	reconcile ReconcileFunc
	interval  time.Duration
	limiter   *rate.Limiter
	trigger   chan struct{}
	inFlight  atomic.Bool
	current   atomic.Pointer[Snapshot]
	log       zerolog.Logger
}

func NewRefresher(fn ReconcileFunc, opts RefresherOptions, log zerolog.Logger) *Refresher {
	limit := rate.Inf
	if opts.TriggerRate > 0 {
		limit = rate.Limit(opts.TriggerRate)
	}
	r := &Refresher{
		reconcile: fn,
		interval:  opts.Interval,
		limiter:   rate.NewLimiter(limit, 1),
		trigger:   make(chan struct{}, 1),
		log:       log.With().Str("component", "refresher").Logger(),
	}
	r.current.Store(&Snapshot{Sessions: []model.ParkingSession{}})
	return r
}

// Snapshot returns the latest published result. Before the first pass it
// is empty with a zero RefreshedAt.
func (r *Refresher) Snapshot() *Snapshot {
	return r.current.Load()
}

// Refresh runs one pass unless another is in flight, in which case it
// returns false immediately.
func (r *Refresher) Refresh(ctx context.Context) bool {
	if !r.acquire() {
		return false
	}
	defer r.inFlight.Store(false)
	r.run(ctx)
	return true
}

// Start is Refresh in the background. The pass is detached from ctx
// cancellation so it outlives the request that started it.
func (r *Refresher) Start(ctx context.Context) bool {
	if !r.acquire() {
		return false
	}
	go func() {
		defer r.inFlight.Store(false)
		r.run(context.WithoutCancel(ctx))
	}()
	return true
}

func (r *Refresher) acquire() bool {
	if !r.inFlight.CompareAndSwap(false, true) {
		metrics.RefreshSkipped.Inc()
		return false
	}
	return true
}

func (r *Refresher) run(ctx context.Context) {
	outcome := r.reconcile(ctx)
	sessions := outcome.Sessions
	if sessions == nil {
		sessions = []model.ParkingSession{}
	}
	r.current.Store(&Snapshot{
		Sessions:    sessions,
		Path:        outcome.Path,
		Err:         outcome.Cause,
		RefreshedAt: time.Now(),
	})
	publishCounts(sessions)

	r.log.Debug().Str("path", string(outcome.Path)).Int("sessions", len(sessions)).Msg("snapshot refreshed")
}

// Trigger requests a refresh without blocking. Requests made while one is
// already pending are coalesced.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Serve refreshes once, then on every tick and on every trigger until ctx
// is done.
func (r *Refresher) Serve(ctx context.Context) error {
	r.Refresh(ctx)

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			metrics.RefreshTriggers.WithLabelValues("ticker").Inc()
			r.Refresh(ctx)
		case <-r.trigger:
			metrics.RefreshTriggers.WithLabelValues("trigger").Inc()
			if err := r.limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
			r.Refresh(ctx)
		}
	}
}

func (r *Refresher) String() string {
	return "refresher"
}

func publishCounts(sessions []model.ParkingSession) {
	counts := map[model.SessionStatus]int{
		model.SessionStatusActive:     0,
		model.SessionStatusCompleted:  0,
		model.SessionStatusFailed:     0,
		model.SessionStatusUnverified: 0,
	}
	for _, s := range sessions {
		counts[s.Status]++
	}
	for status, n := range counts {
		metrics.SessionsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}
