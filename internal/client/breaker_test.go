package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"parking-service/internal/model"
)

type stubSource struct {
	err      error
	finalize error
	calls    int
}

func (s *stubSource) ListEvents(context.Context, *model.Gate, int) ([]model.GateEvent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []model.GateEvent{{SessionID: "e1"}}, nil
}

func (s *stubSource) ListVerifiedSessions(context.Context) ([]model.VerifiedSessionRecord, error) {
	s.calls++
	return nil, s.err
}

func (s *stubSource) FinalizeExit(_ context.Context, exitID string) (model.FinalizeResult, error) {
	s.calls++
	if s.finalize != nil {
		return model.FinalizeResult{ExitSessionID: exitID, Message: "already finalized"}, s.finalize
	}
	return model.FinalizeResult{Success: true, ExitSessionID: exitID}, nil
}

func testSettings() BreakerSettings {
	s := DefaultBreakerSettings()
	s.Name = "gate-api-test"
	s.MinRequests = 3
	s.Timeout = time.Hour
	return s
}

func TestBreakerClient_PassThrough(t *testing.T) {
	src := &stubSource{}
	b := NewBreakerClient(src, testSettings(), zerolog.Nop())

	events, err := b.ListEvents(context.Background(), nil, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("Expected one event, got %v %v", events, err)
	}
	res, err := b.FinalizeExit(context.Background(), "out-1")
	if err != nil || !res.Success {
		t.Errorf("Expected success, got %+v %v", res, err)
	}
}

func TestBreakerClient_OpensAfterFailures(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	b := NewBreakerClient(src, testSettings(), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = b.ListEvents(ctx, nil, 10)
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("Expected open circuit, got %v", b.State())
	}

	calls := src.calls
	_, err := b.ListVerifiedSessions(ctx)
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable while open, got %v", err)
	}
	if src.calls != calls {
		t.Error("Expected open circuit to skip the source")
	}
}

func TestBreakerClient_RejectionIsNotFailure(t *testing.T) {
	src := &stubSource{finalize: model.ErrFinalizeRejected}
	b := NewBreakerClient(src, testSettings(), zerolog.Nop())

	for i := 0; i < 5; i++ {
		res, err := b.FinalizeExit(context.Background(), "out-1")
		if !errors.Is(err, model.ErrFinalizeRejected) {
			t.Fatalf("Expected rejection passed through, got %v", err)
		}
		if res.Message != "already finalized" {
			t.Errorf("Expected message preserved, got %q", res.Message)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("Expected closed circuit, got %v", b.State())
	}
}
