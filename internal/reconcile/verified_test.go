package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking-service/internal/model"
)

func ts(h, m int) *model.Timestamp {
	return &model.Timestamp{Time: time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)}
}

func boolPtr(v bool) *bool { return &v }

func verifiedFeed() []model.VerifiedSessionRecord {
	return []model.VerifiedSessionRecord{
		{
			FaceID: "f1", LicensePlate: "ABC123", Status: "completed",
			EntrySessionID: "in-1", EntryTime: ts(9, 0),
			ExitSessionID: "out-1", ExitTime: ts(9, 45),
			FaceMatchVerified: boolPtr(true), FaceMatchResult: boolPtr(true),
		},
		{
			FaceID: "f2", LicensePlate: "DEF456", Status: "active",
			EntrySessionID: "in-2", EntryTime: ts(10, 0),
		},
		{
			FaceID: "f3", LicensePlate: "GHI789", Status: "unverified",
			EntrySessionID: "in-3", EntryTime: ts(8, 0),
			ExitSessionID: "out-3", ExitTime: ts(10, 30),
		},
		{
			LicensePlate: "Detecting...", Status: "failed",
			ExitSessionID: "out-4", ExitTime: ts(11, 0),
		},
	}
}

func TestAdapter_Normalize(t *testing.T) {
	a := NewAdapter(NewValidator())
	sessions, err := a.Normalize(verifiedFeed())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions (sentinel skipped), got %d", len(sessions))
	}

	// out-3 at 10:30 is the latest activity.
	if sessions[0].Status != model.SessionStatusUnverified {
		t.Errorf("expected unverified session first, got %s", sessions[0].Status)
	}
	if *sessions[0].DurationMinutes != 150 {
		t.Errorf("expected derived duration 150, got %d", *sessions[0].DurationMinutes)
	}

	completed, ok := findByExit(sessions, "out-1")
	if !ok {
		t.Fatal("completed session missing")
	}
	if completed.FaceMatchVerified == nil || !*completed.FaceMatchVerified {
		t.Error("face match verification not carried over")
	}
	if *completed.DurationMinutes != 45 {
		t.Errorf("expected duration 45, got %d", *completed.DurationMinutes)
	}
	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			t.Errorf("session %s invalid: %v", s.EntrySessionID(), err)
		}
	}
}

func TestAdapter_NormalizeIgnoresSuppliedDuration(t *testing.T) {
	wrong := 999
	records := []model.VerifiedSessionRecord{{
		LicensePlate: "ABC123", Status: "completed", Duration: &wrong,
		EntrySessionID: "in-1", EntryTime: ts(9, 0),
		ExitSessionID: "out-1", ExitTime: ts(9, 10),
	}}
	sessions, err := NewAdapter(NewValidator()).Normalize(records)
	if err != nil {
		t.Fatal(err)
	}
	if *sessions[0].DurationMinutes != 10 {
		t.Errorf("expected 10, got %d", *sessions[0].DurationMinutes)
	}
}

func TestAdapter_NormalizeRejects(t *testing.T) {
	tests := []struct {
		name   string
		record model.VerifiedSessionRecord
	}{
		{"missing status", model.VerifiedSessionRecord{LicensePlate: "A", EntrySessionID: "x", EntryTime: ts(9, 0)}},
		{"unknown status", model.VerifiedSessionRecord{LicensePlate: "A", Status: "parked", EntrySessionID: "x", EntryTime: ts(9, 0)}},
		{"active with exit", model.VerifiedSessionRecord{LicensePlate: "A", Status: "active",
			EntrySessionID: "x", EntryTime: ts(9, 0), ExitSessionID: "y", ExitTime: ts(10, 0)}},
		{"completed without exit", model.VerifiedSessionRecord{LicensePlate: "A", Status: "completed",
			EntrySessionID: "x", EntryTime: ts(9, 0)}},
		{"failed with entry", model.VerifiedSessionRecord{LicensePlate: "A", Status: "failed",
			EntrySessionID: "x", EntryTime: ts(9, 0), ExitSessionID: "y", ExitTime: ts(10, 0)}},
		{"exit before entry", model.VerifiedSessionRecord{LicensePlate: "A", Status: "completed",
			EntrySessionID: "x", EntryTime: ts(10, 0), ExitSessionID: "y", ExitTime: ts(9, 0)}},
	}

	a := NewAdapter(NewValidator())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Normalize([]model.VerifiedSessionRecord{tt.record})
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestAdapter_NormalizeSkipsEmptyPlate(t *testing.T) {
	records := []model.VerifiedSessionRecord{
		{LicensePlate: "ABC123", Status: "active", EntrySessionID: "in-1", EntryTime: ts(9, 0)},
		{LicensePlate: "", Status: "active", EntrySessionID: "in-2", EntryTime: ts(9, 5)},
		{LicensePlate: "  ", Status: "failed", ExitSessionID: "out-3", ExitTime: ts(9, 10)},
	}
	out := NewAdapter(NewValidator()).Resolve(context.Background(),
		func(context.Context) ([]model.VerifiedSessionRecord, error) { return records, nil },
		func(context.Context) ([]model.ParkingSession, error) { return nil, errors.New("naive should not run") })
	if out.Path != PathVerified || out.Cause != nil {
		t.Fatalf("expected verified path, got %s (%v)", out.Path, out.Cause)
	}
	if len(out.Sessions) != 1 || out.Sessions[0].EntrySessionID() != "in-1" {
		t.Errorf("expected only in-1, got %+v", out.Sessions)
	}
}

func TestAdapter_NormalizeRejectsReusedEvent(t *testing.T) {
	records := []model.VerifiedSessionRecord{
		{LicensePlate: "A", Status: "completed", EntrySessionID: "in-1", EntryTime: ts(9, 0), ExitSessionID: "out-1", ExitTime: ts(10, 0)},
		{LicensePlate: "A", Status: "completed", EntrySessionID: "in-1", EntryTime: ts(9, 0), ExitSessionID: "out-2", ExitTime: ts(11, 0)},
	}
	if _, err := NewAdapter(NewValidator()).Normalize(records); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestAdapter_Resolve(t *testing.T) {
	naiveSessions := []model.ParkingSession{
		model.NewActiveSession("ABC123", "", model.SessionEndpoint{SessionID: "in-9", Time: time.Now()}),
	}
	naiveOK := func(context.Context) ([]model.ParkingSession, error) { return naiveSessions, nil }
	naiveErr := errors.New("gate backend down")
	naiveFail := func(context.Context) ([]model.ParkingSession, error) { return nil, naiveErr }
	feedErr := errors.New("enhanced endpoint 500")

	a := NewAdapter(NewValidator())
	ctx := context.Background()

	t.Run("verified", func(t *testing.T) {
		out := a.Resolve(ctx, func(context.Context) ([]model.VerifiedSessionRecord, error) {
			return verifiedFeed(), nil
		}, naiveFail)
		if out.Path != PathVerified || out.Cause != nil {
			t.Fatalf("expected verified path, got %s (%v)", out.Path, out.Cause)
		}
		if len(out.Sessions) != 3 {
			t.Errorf("expected 3 sessions, got %d", len(out.Sessions))
		}
	})

	t.Run("fetch failure falls back", func(t *testing.T) {
		out := a.Resolve(ctx, func(context.Context) ([]model.VerifiedSessionRecord, error) {
			return nil, feedErr
		}, naiveOK)
		if out.Path != PathFallback {
			t.Fatalf("expected fallback, got %s", out.Path)
		}
		if !errors.Is(out.Cause, feedErr) {
			t.Errorf("expected cause %v, got %v", feedErr, out.Cause)
		}
		if len(out.Sessions) != 1 || out.Sessions[0].EntrySessionID() != "in-9" {
			t.Errorf("expected naive sessions, got %+v", out.Sessions)
		}
	})

	t.Run("malformed feed falls back", func(t *testing.T) {
		out := a.Resolve(ctx, func(context.Context) ([]model.VerifiedSessionRecord, error) {
			return []model.VerifiedSessionRecord{{LicensePlate: "A", Status: "completed"}}, nil
		}, naiveOK)
		if out.Path != PathFallback || !errors.Is(out.Cause, ErrInvalidRecord) {
			t.Fatalf("expected fallback on invalid record, got %s (%v)", out.Path, out.Cause)
		}
	})

	t.Run("both fail", func(t *testing.T) {
		out := a.Resolve(ctx, func(context.Context) ([]model.VerifiedSessionRecord, error) {
			return nil, feedErr
		}, naiveFail)
		if out.Sessions == nil || len(out.Sessions) != 0 {
			t.Errorf("expected empty non-nil sessions, got %v", out.Sessions)
		}
		if !errors.Is(out.Cause, feedErr) || !errors.Is(out.Cause, naiveErr) {
			t.Errorf("expected both causes, got %v", out.Cause)
		}
	})
}
