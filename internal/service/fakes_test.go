package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"parking-service/internal/model"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func gateEvent(id string, gate model.Gate, plate, face string, minutes int) model.GateEvent {
	return model.GateEvent{SessionID: id, Gate: gate, Plate: plate, FaceID: face, Timestamp: at(minutes)}
}

// fakeSource is an in-memory EventSource.
type fakeSource struct {
	mu          sync.Mutex
	events      []model.GateEvent
	records     []model.VerifiedSessionRecord
	listErr     error
	verifiedErr error
	finalize    func(exitID string) (model.FinalizeResult, error)
	listCalls   int
	verifyCalls int
}

func (f *fakeSource) ListEvents(_ context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.GateEvent
	for _, e := range f.events {
		if gate == nil || e.Gate == *gate {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSource) ListVerifiedSessions(context.Context) ([]model.VerifiedSessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifiedErr != nil {
		return nil, f.verifiedErr
	}
	return f.records, nil
}

func (f *fakeSource) FinalizeExit(_ context.Context, exitID string) (model.FinalizeResult, error) {
	if f.finalize == nil {
		return model.FinalizeResult{Success: true, ExitSessionID: exitID}, nil
	}
	return f.finalize(exitID)
}

// fakeStore backs the store interfaces of PairingService.
type fakeStore struct {
	events        []model.GateEvent
	maps          []model.SessionMap
	verifications []model.MatchingVerification
}

func (s *fakeStore) ListRecent(_ context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error) {
	var out []model.GateEvent
	for _, e := range s.events {
		if gate == nil || e.Gate == *gate {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].SessionID < out[j].SessionID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*model.GateEvent, error) {
	for i := range s.events {
		if s.events[i].SessionID == id {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListByIDs(_ context.Context, ids []string) ([]model.GateEvent, error) {
	var out []model.GateEvent
	for _, id := range ids {
		if e, _ := s.GetByID(context.Background(), id); e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) FindOpenEntry(_ context.Context, plate, faceID string, before time.Time) (*model.GateEvent, error) {
	mapped := map[string]bool{}
	for _, m := range s.maps {
		mapped[m.EntrySessionID] = true
	}
	var best *model.GateEvent
	for i := range s.events {
		e := s.events[i]
		if e.Gate != model.GateIn || e.CheckedOut || mapped[e.SessionID] ||
			strings.TrimSpace(e.Plate) != plate || e.FaceID != faceID || e.Timestamp.After(before) {
			continue
		}
		if best == nil || e.Timestamp.After(best.Timestamp) ||
			(e.Timestamp.Equal(best.Timestamp) && e.SessionID < best.SessionID) {
			best = &e
		}
	}
	return best, nil
}

func (s *fakeStore) ListByEventIDs(_ context.Context, ids []string) ([]model.SessionMap, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.SessionMap
	for _, m := range s.maps {
		if want[m.EntrySessionID] || want[m.ExitSessionID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByExitID(_ context.Context, exitID string) (*model.SessionMap, error) {
	for i := range s.maps {
		if s.maps[i].ExitSessionID == exitID {
			m := s.maps[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Finalize(_ context.Context, entryID, exitID string) (*model.SessionMap, error) {
	m := model.SessionMap{EntrySessionID: entryID, ExitSessionID: exitID}
	s.maps = append(s.maps, m)
	for i := range s.events {
		if s.events[i].SessionID == entryID {
			s.events[i].CheckedOut = true
		}
	}
	return &m, nil
}

func (s *fakeStore) ListBySessionIDs(_ context.Context, ids []string) ([]model.MatchingVerification, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.MatchingVerification
	for _, v := range s.verifications {
		if want[v.SessionID] {
			out = append(out, v)
		}
	}
	return out, nil
}
