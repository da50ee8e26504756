package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"parking-service/internal/model"
)

type Path string

const (
	PathVerified Path = "verified"
	PathNaive    Path = "naive"
	PathFallback Path = "fallback"
)

// Outcome is the result of one reconciliation pass. Cause is set when the
// verified feed could not be used, or when no sessions could be produced at
// all; Sessions is never nil.
type Outcome struct {
	Sessions []model.ParkingSession
	Path     Path
	Cause    error
}

// VerifiedFetch loads the pre-paired feed.
type VerifiedFetch func(ctx context.Context) ([]model.VerifiedSessionRecord, error)

// NaiveFetch produces sessions with the plate-only engine.
type NaiveFetch func(ctx context.Context) ([]model.ParkingSession, error)

var ErrInvalidRecord = errors.New("invalid verified session record")

// Adapter turns verified feed records into parking sessions.
type Adapter struct {
	validate *validator.Validate
	plates   Validator
}

func NewAdapter(plates Validator) *Adapter {
	return &Adapter{
		validate: validator.New(),
		plates:   plates,
	}
}

// Resolve prefers the verified feed and falls back to the naive engine when
// the feed cannot be fetched or normalized. Both paths return sessions in
// the same order.
func (a *Adapter) Resolve(ctx context.Context, verified VerifiedFetch, naive NaiveFetch) Outcome {
	records, err := verified(ctx)
	if err == nil {
		sessions, normErr := a.Normalize(records)
		if normErr == nil {
			return Outcome{Sessions: sessions, Path: PathVerified}
		}
		err = normErr
	}

	sessions, naiveErr := naive(ctx)
	if naiveErr != nil {
		return Outcome{Sessions: []model.ParkingSession{}, Path: PathFallback, Cause: errors.Join(err, naiveErr)}
	}
	return Outcome{Sessions: sessions, Path: PathFallback, Cause: err}
}

// Normalize validates every record and converts it. Records with an empty or
// sentinel plate are skipped; any other malformed record, or an event id used by two
// records, rejects the whole feed.
func (a *Adapter) Normalize(records []model.VerifiedSessionRecord) ([]model.ParkingSession, error) {
	sessions := make([]model.ParkingSession, 0, len(records))
	used := make(map[string]int, len(records)*2)

	for i, r := range records {
		if err := a.validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidRecord, i, err)
		}
		plate := strings.TrimSpace(r.LicensePlate)
		if !a.plates.Valid(plate) {
			continue
		}

		session, err := recordToSession(plate, r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidRecord, i, err)
		}

		for _, id := range []string{session.EntrySessionID(), session.ExitSessionID()} {
			if id == "" {
				continue
			}
			if prev, dup := used[id]; dup {
				return nil, fmt.Errorf("%w: event %s used by records %d and %d", ErrInvalidRecord, id, prev, i)
			}
			used[id] = i
		}
		sessions = append(sessions, session)
	}

	SortByRecency(sessions)
	return sessions, nil
}

func recordToSession(plate string, r model.VerifiedSessionRecord) (model.ParkingSession, error) {
	var entry, exit *model.SessionEndpoint
	if r.EntrySessionID != "" && r.EntryTime != nil {
		entry = &model.SessionEndpoint{
			SessionID: r.EntrySessionID,
			Time:      r.EntryTime.Time,
			FaceURL:   r.FaceURL,
			PlateURL:  r.PlateURL,
		}
	}
	if r.ExitSessionID != "" && r.ExitTime != nil {
		exit = &model.SessionEndpoint{
			SessionID: r.ExitSessionID,
			Time:      r.ExitTime.Time,
			FaceURL:   r.ExitFaceURL,
			PlateURL:  r.ExitPlateURL,
		}
	}

	var (
		session model.ParkingSession
		err     error
	)
	switch model.SessionStatus(r.Status) {
	case model.SessionStatusActive:
		if entry == nil || exit != nil {
			return session, errors.New("active record needs an entry and no exit")
		}
		session = model.NewActiveSession(plate, r.FaceID, *entry)
	case model.SessionStatusFailed:
		if exit == nil || entry != nil {
			return session, errors.New("failed record needs an exit and no entry")
		}
		session = model.NewFailedSession(plate, r.FaceID, *exit)
	case model.SessionStatusCompleted:
		if entry == nil || exit == nil {
			return session, errors.New("completed record needs entry and exit")
		}
		session, err = model.NewCompletedSession(plate, r.FaceID, *entry, *exit)
	case model.SessionStatusUnverified:
		if entry == nil || exit == nil {
			return session, errors.New("unverified record needs entry and exit")
		}
		session, err = model.NewUnverifiedSession(plate, r.FaceID, *entry, *exit)
	default:
		return session, fmt.Errorf("unknown status %q", r.Status)
	}
	if err != nil {
		return session, err
	}

	if r.FaceMatchVerified != nil || r.FaceMatchResult != nil {
		verified := r.FaceMatchVerified != nil && *r.FaceMatchVerified
		session = session.WithFaceMatch(verified, r.FaceMatchResult)
	}
	return session, nil
}
