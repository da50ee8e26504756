package supervisor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

type fakeServer struct {
	stop     chan struct{}
	failWith error
	shutdown atomic.Bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.failWith != nil {
		return f.failWith
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

func TestHTTPService_ShutdownOnCancel(t *testing.T) {
	server := newFakeServer()
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	if !server.shutdown.Load() {
		t.Fatal("expected Shutdown to be called")
	}
}

func TestHTTPService_ListenError(t *testing.T) {
	server := newFakeServer()
	server.failWith = errors.New("address in use")
	svc := NewHTTPService(server, 0)

	err := svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.String() != "http-server" {
		t.Fatalf("unexpected name %q", svc.String())
	}
}

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep() int {
	c.calls.Add(1)
	return 1
}

func TestSweepService(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewSweepService(sweeper, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
	if sweeper.calls.Load() == 0 {
		t.Fatal("expected at least one sweep")
	}
}

type flakyService struct {
	runs atomic.Int32
}

func (f *flakyService) Serve(ctx context.Context) error {
	if f.runs.Add(1) == 1 {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *flakyService) String() string { return "flaky" }

func TestSupervisor_RestartsAndLogs(t *testing.T) {
	var buf syncBuffer
	log := zerolog.New(&buf)

	cfg := DefaultConfig()
	cfg.FailureBackoff = 10 * time.Millisecond
	tree := New("test", cfg, log)
	svc := &flakyService{}
	tree.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for svc.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh

	if svc.runs.Load() < 2 {
		t.Fatalf("expected restart, runs = %d", svc.runs.Load())
	}
	if !strings.Contains(buf.String(), "service terminated") {
		t.Fatalf("expected termination to be logged, got %s", buf.String())
	}
}

var _ suture.Service = (*flakyService)(nil)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
