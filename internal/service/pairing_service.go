package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/model"
	"parking-service/internal/reconcile"
	"parking-service/internal/repository"
)

type GateEventStore interface {
	ListRecent(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error)
	GetByID(ctx context.Context, id string) (*model.GateEvent, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.GateEvent, error)
	FindOpenEntry(ctx context.Context, plate, faceID string, before time.Time) (*model.GateEvent, error)
}

type SessionMapStore interface {
	ListByEventIDs(ctx context.Context, ids []string) ([]model.SessionMap, error)
	GetByExitID(ctx context.Context, exitID string) (*model.SessionMap, error)
	Finalize(ctx context.Context, entryID, exitID string) (*model.SessionMap, error)
}

type VerificationStore interface {
	ListBySessionIDs(ctx context.Context, ids []string) ([]model.MatchingVerification, error)
}

// PairingService is the EventSource used when the gate database is read
// directly. It builds the verified feed from session maps and face match
// verifications and finalizes exits by writing session maps.
type PairingService struct {
	events        GateEventStore
	maps          SessionMapStore
	verifications VerificationStore
	plates        reconcile.Validator
	limit         int
	log           zerolog.Logger
}

func NewPairingService(events GateEventStore, maps SessionMapStore, verifications VerificationStore, plates reconcile.Validator, limit int, log zerolog.Logger) *PairingService {
	return &PairingService{
		events:        events,
		maps:          maps,
		verifications: verifications,
		plates:        plates,
		limit:         limit,
		log:           log.With().Str("component", "pairing_service").Logger(),
	}
}

func (s *PairingService) ListEvents(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error) {
	events, err := s.events.ListRecent(ctx, gate, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list gate events: %v", model.ErrSourceUnavailable, err)
	}
	return events, nil
}

// ListVerifiedSessions builds the verified feed over the latest In and Out
// windows:
//
//	completed   a session map whose exit has a successful face match and
//	            whose events form a valid pair
//	unverified  an exit with a successful face match but no map, paired
//	            with the latest unmapped entry of the same plate and face
//	active      any other entry
//	failed      any other exit
func (s *PairingService) ListVerifiedSessions(ctx context.Context) ([]model.VerifiedSessionRecord, error) {
	gateIn, gateOut := model.GateIn, model.GateOut
	ins, err := s.ListEvents(ctx, &gateIn, s.limit)
	if err != nil {
		return nil, err
	}
	outs, err := s.ListEvents(ctx, &gateOut, s.limit)
	if err != nil {
		return nil, err
	}

	known := make(map[string]model.GateEvent, len(ins)+len(outs))
	windowIDs := make([]string, 0, len(ins)+len(outs))
	for _, e := range append(append([]model.GateEvent(nil), ins...), outs...) {
		known[e.SessionID] = e
		windowIDs = append(windowIDs, e.SessionID)
	}

	maps, err := s.maps.ListByEventIDs(ctx, windowIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: list session maps: %v", model.ErrSourceUnavailable, err)
	}

	mapped := make(map[string]bool, len(maps)*2)
	var missing []string
	for _, m := range maps {
		mapped[m.EntrySessionID] = true
		mapped[m.ExitSessionID] = true
		for _, id := range []string{m.EntrySessionID, m.ExitSessionID} {
			if _, ok := known[id]; !ok {
				missing = append(missing, id)
			}
		}
	}
	if len(missing) > 0 {
		extra, err := s.events.ListByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("%w: load mapped events: %v", model.ErrSourceUnavailable, err)
		}
		for _, e := range extra {
			known[e.SessionID] = e
		}
	}

	exitIDs := make([]string, 0, len(outs)+len(maps))
	for _, e := range outs {
		exitIDs = append(exitIDs, e.SessionID)
	}
	for _, m := range maps {
		exitIDs = append(exitIDs, m.ExitSessionID)
	}
	verifications, err := s.verifications.ListBySessionIDs(ctx, exitIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: list verifications: %v", model.ErrSourceUnavailable, err)
	}
	latest := latestVerifications(verifications)

	used := make(map[string]bool, len(known))
	records := make([]model.VerifiedSessionRecord, 0, len(ins)+len(outs))

	for _, m := range maps {
		entry, okEntry := known[m.EntrySessionID]
		exit, okExit := known[m.ExitSessionID]
		if !okEntry || !okExit || used[entry.SessionID] || used[exit.SessionID] {
			continue
		}
		v, ok := latest[exit.SessionID]
		if !ok || !v.IsMatch || !s.validPair(entry, exit) {
			s.log.Debug().Str("entry_session_id", entry.SessionID).Str("exit_session_id", exit.SessionID).Msg("session map not grouped")
			continue
		}
		records = append(records, pairedRecord(model.SessionStatusCompleted, entry, exit))
		used[entry.SessionID], used[exit.SessionID] = true, true
	}

	// Outs are newest first, so the most recent exit claims an entry first.
	for _, exit := range outs {
		if used[exit.SessionID] || mapped[exit.SessionID] {
			continue
		}
		v, ok := latest[exit.SessionID]
		if !ok || !v.IsMatch || exit.FaceID == "" || !s.plates.Valid(exit.Plate) {
			continue
		}
		for _, entry := range ins {
			if used[entry.SessionID] || mapped[entry.SessionID] || entry.FaceID != exit.FaceID {
				continue
			}
			if !s.validPair(entry, exit) {
				continue
			}
			records = append(records, pairedRecord(model.SessionStatusUnverified, entry, exit))
			used[entry.SessionID], used[exit.SessionID] = true, true
			break
		}
	}

	for _, entry := range ins {
		if used[entry.SessionID] || !s.plates.Valid(entry.Plate) {
			continue
		}
		records = append(records, model.VerifiedSessionRecord{
			FaceID:         entry.FaceID,
			LicensePlate:   strings.TrimSpace(entry.Plate),
			Status:         string(model.SessionStatusActive),
			EntrySessionID: entry.SessionID,
			EntryTime:      &model.Timestamp{Time: entry.Timestamp},
			FaceURL:        entry.FaceImageURL,
			PlateURL:       entry.PlateImageURL,
		})
	}
	for _, exit := range outs {
		if used[exit.SessionID] || !s.plates.Valid(exit.Plate) {
			continue
		}
		r := model.VerifiedSessionRecord{
			FaceID:        exit.FaceID,
			LicensePlate:  strings.TrimSpace(exit.Plate),
			Status:        string(model.SessionStatusFailed),
			ExitSessionID: exit.SessionID,
			ExitTime:      &model.Timestamp{Time: exit.Timestamp},
			ExitFaceURL:   exit.FaceImageURL,
			ExitPlateURL:  exit.PlateImageURL,
		}
		if v, ok := latest[exit.SessionID]; ok {
			verified, match := true, v.IsMatch
			r.FaceMatchVerified, r.FaceMatchResult = &verified, &match
		}
		records = append(records, r)
	}

	return records, nil
}

// FinalizeExit maps the exit to the latest open entry with the same plate
// and face. A second call for the same exit is rejected as already
// finalized.
func (s *PairingService) FinalizeExit(ctx context.Context, exitID string) (model.FinalizeResult, error) {
	exit, err := s.events.GetByID(ctx, exitID)
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("%w: load exit session: %v", model.ErrSourceUnavailable, err)
	}
	if exit == nil {
		return reject(exitID, "Exit session not found")
	}
	if exit.Gate != model.GateOut {
		return reject(exitID, "Session is not an exit session")
	}
	if !s.plates.Valid(exit.Plate) || exit.FaceID == "" {
		return reject(exitID, "Exit session missing plateNumber or faceIndex")
	}

	existing, err := s.maps.GetByExitID(ctx, exitID)
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("%w: load session map: %v", model.ErrSourceUnavailable, err)
	}
	if existing != nil {
		return reject(exitID, "Session already finalized")
	}

	verifications, err := s.verifications.ListBySessionIDs(ctx, []string{exitID})
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("%w: list verifications: %v", model.ErrSourceUnavailable, err)
	}
	if v, ok := latestVerifications(verifications)[exitID]; !ok || !v.IsMatch {
		return reject(exitID, "No successful face verification for exit session")
	}

	entry, err := s.events.FindOpenEntry(ctx, strings.TrimSpace(exit.Plate), exit.FaceID, exit.Timestamp)
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("%w: find entry session: %v", model.ErrSourceUnavailable, err)
	}
	if entry == nil {
		return reject(exitID, "No matching entry session found")
	}

	if _, err := s.maps.Finalize(ctx, entry.SessionID, exitID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return reject(exitID, "Session already finalized")
		}
		return model.FinalizeResult{}, fmt.Errorf("%w: write session map: %v", model.ErrSourceUnavailable, err)
	}

	s.log.Info().Str("entry_session_id", entry.SessionID).Str("exit_session_id", exitID).Msg("session map created")
	return model.FinalizeResult{
		Success:        true,
		Message:        "Exit session finalized",
		EntrySessionID: entry.SessionID,
		ExitSessionID:  exitID,
	}, nil
}

func (s *PairingService) validPair(entry, exit model.GateEvent) bool {
	if entry.Timestamp.After(exit.Timestamp) {
		return false
	}
	plate := strings.TrimSpace(entry.Plate)
	if !s.plates.Valid(plate) || plate != strings.TrimSpace(exit.Plate) {
		return false
	}
	if entry.FaceID != "" && exit.FaceID != "" && entry.FaceID != exit.FaceID {
		return false
	}
	return true
}

// pairedRecord is only built for exits with a successful face match.
func pairedRecord(status model.SessionStatus, entry, exit model.GateEvent) model.VerifiedSessionRecord {
	faceID := entry.FaceID
	if faceID == "" {
		faceID = exit.FaceID
	}
	verified, match := true, true
	return model.VerifiedSessionRecord{
		FaceID:            faceID,
		LicensePlate:      strings.TrimSpace(entry.Plate),
		Status:            string(status),
		EntrySessionID:    entry.SessionID,
		EntryTime:         &model.Timestamp{Time: entry.Timestamp},
		FaceURL:           entry.FaceImageURL,
		PlateURL:          entry.PlateImageURL,
		ExitSessionID:     exit.SessionID,
		ExitTime:          &model.Timestamp{Time: exit.Timestamp},
		ExitFaceURL:       exit.FaceImageURL,
		ExitPlateURL:      exit.PlateImageURL,
		FaceMatchVerified: &verified,
		FaceMatchResult:   &match,
	}
}

// latestVerifications keeps the last verification per session; input is
// ordered oldest first.
func latestVerifications(verifications []model.MatchingVerification) map[string]model.MatchingVerification {
	latest := make(map[string]model.MatchingVerification, len(verifications))
	for _, v := range verifications {
		latest[v.SessionID] = v
	}
	return latest
}

func reject(exitID, message string) (model.FinalizeResult, error) {
	return model.FinalizeResult{Success: false, Message: message, ExitSessionID: exitID},
		fmt.Errorf("%w: %s", model.ErrFinalizeRejected, message)
}
