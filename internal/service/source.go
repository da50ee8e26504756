package service

import (
	"context"
	"time"

	"parking-service/internal/cache"
	"parking-service/internal/metrics"
	"parking-service/internal/model"
)

// EventSource supplies raw gate events and the verified feed. It is
// implemented by the gate backend client and by the store-backed
// PairingService.
type EventSource interface {
	ListEvents(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error)
	ListVerifiedSessions(ctx context.Context) ([]model.VerifiedSessionRecord, error)
	FinalizeExit(ctx context.Context, exitID string) (model.FinalizeResult, error)
}

const (
	cachePrefixEvents   = "sessions"
	cachePrefixVerified = "enhanced"
)

// CachedSource keeps source responses for a short TTL. A successful
// finalize clears the whole cache.
type CachedSource struct {
	source EventSource
	store  cache.Store
	ttl    time.Duration
}

func NewCachedSource(source EventSource, store cache.Store, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, store: store, ttl: ttl}
}

func (c *CachedSource) ListEvents(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error) {
	params := map[string]interface{}{"limit": limit}
	if gate != nil {
		params["gate"] = string(*gate)
	}
	key := cache.Key(cachePrefixEvents, params)

	if v, ok := c.store.Get(key); ok {
		if events, ok := v.([]model.GateEvent); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return append([]model.GateEvent(nil), events...), nil
		}
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	events, err := c.source.ListEvents(ctx, gate, limit)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, append([]model.GateEvent(nil), events...), c.ttl)
	return events, nil
}

func (c *CachedSource) ListVerifiedSessions(ctx context.Context) ([]model.VerifiedSessionRecord, error) {
	if v, ok := c.store.Get(cachePrefixVerified); ok {
		if records, ok := v.([]model.VerifiedSessionRecord); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return append([]model.VerifiedSessionRecord(nil), records...), nil
		}
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	records, err := c.source.ListVerifiedSessions(ctx)
	if err != nil {
		return nil, err
	}
	c.store.Set(cachePrefixVerified, append([]model.VerifiedSessionRecord(nil), records...), c.ttl)
	return records, nil
}

func (c *CachedSource) FinalizeExit(ctx context.Context, exitID string) (model.FinalizeResult, error) {
	result, err := c.source.FinalizeExit(ctx, exitID)
	if err == nil {
		c.store.Clear()
	}
	return result, err
}

// Invalidate drops cached responses so the next pass reads the source.
func (c *CachedSource) Invalidate() {
	c.store.Clear()
}
