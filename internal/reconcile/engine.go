package reconcile

import (
	"sort"
	"strings"

	"parking-service/internal/model"
)

// Engine runs the plate-only reconciliation over a raw window.
type Engine struct {
	validator Validator
}

func NewEngine(validator Validator) *Engine {
	return &Engine{validator: validator}
}

// Run validates both windows and pairs them.
func (e *Engine) Run(in, out []model.GateEvent) []model.ParkingSession {
	return Pair(e.validator.Filter(in), e.validator.Filter(out))
}

// Pair builds one session per event from validated entry and exit windows.
//
// Exits are resolved most recent first. Each exit claims the latest unclaimed
// entry with the same trimmed plate that is not after it, producing a
// completed session. Unclaimed entries become active, unclaimed exits
// failed. An event is never used twice and the result does not depend on
// the order of the inputs.
func Pair(in, out []model.GateEvent) []model.ParkingSession {
	entries := canonical(in)
	exits := canonical(out)

	// Most recent exit first; canonical already orders equal timestamps by id.
	byRecency := make([]int, len(exits))
	for i := range byRecency {
		byRecency[i] = i
	}
	sort.SliceStable(byRecency, func(a, b int) bool {
		return exits[byRecency[a]].Timestamp.After(exits[byRecency[b]].Timestamp)
	})

	claimed := make([]bool, len(entries))
	matched := make([]bool, len(exits))
	sessions := make([]model.ParkingSession, 0, len(entries)+len(exits))

	for _, oi := range byRecency {
		exit := exits[oi]
		plate := strings.TrimSpace(exit.Plate)

		best := -1
		for i, entry := range entries {
			if claimed[i] || strings.TrimSpace(entry.Plate) != plate || entry.Timestamp.After(exit.Timestamp) {
				continue
			}
			// Strictly later wins, so equal timestamps keep the lower id.
			if best == -1 || entry.Timestamp.After(entries[best].Timestamp) {
				best = i
			}
		}
		if best == -1 {
			continue
		}

		entry := entries[best]
		session, err := model.NewCompletedSession(plate, firstNonEmpty(entry.FaceID, exit.FaceID), *entry.Endpoint(), *exit.Endpoint())
		if err != nil {
			continue
		}
		claimed[best] = true
		matched[oi] = true
		sessions = append(sessions, session)
	}

	for i, entry := range entries {
		if !claimed[i] {
			sessions = append(sessions, model.NewActiveSession(strings.TrimSpace(entry.Plate), entry.FaceID, *entry.Endpoint()))
		}
	}
	for i, exit := range exits {
		if !matched[i] {
			sessions = append(sessions, model.NewFailedSession(strings.TrimSpace(exit.Plate), exit.FaceID, *exit.Endpoint()))
		}
	}

	SortByRecency(sessions)
	return sessions
}

// canonical copies events ordered by timestamp then id, dropping repeated ids.
func canonical(events []model.GateEvent) []model.GateEvent {
	seen := make(map[string]struct{}, len(events))
	result := make([]model.GateEvent, 0, len(events))
	for _, e := range events {
		if _, dup := seen[e.SessionID]; dup {
			continue
		}
		seen[e.SessionID] = struct{}{}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].SessionID < result[j].SessionID
	})
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
