package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
	SessionStatusUnverified SessionStatus = "unverified"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusFailed, SessionStatusUnverified:
		return true
	}
	return false
}

var ErrInvalidSession = errors.New("invalid parking session")

// SessionEndpoint is the gate event contributing one side of a session.
type SessionEndpoint struct {
	SessionID string
	Time      time.Time
	FaceURL   string
	PlateURL  string
}

// ParkingSession is a reconstructed occupancy record. Which endpoints are set
// depends on Status:
//
//	active      Entry only
//	completed   Entry and Exit, Exit not before Entry
//	failed      Exit only
//	unverified  Entry and Exit, Exit not before Entry
//
// Values are built with the New*Session constructors, which enforce this.
// Fields stay exported for readers; a value assembled by hand is checked
// with Validate.
type ParkingSession struct {
	Status          SessionStatus
	FaceID          string
	LicensePlate    string
	Entry           *SessionEndpoint
	Exit            *SessionEndpoint
	DurationMinutes *int

	// Set only by the verified path.
	FaceMatchVerified *bool
	FaceMatchResult   *bool
}

func NewActiveSession(plate, faceID string, entry SessionEndpoint) ParkingSession {
	return ParkingSession{
		Status:       SessionStatusActive,
		FaceID:       faceID,
		LicensePlate: plate,
		Entry:        &entry,
	}
}

func NewFailedSession(plate, faceID string, exit SessionEndpoint) ParkingSession {
	return ParkingSession{
		Status:       SessionStatusFailed,
		FaceID:       faceID,
		LicensePlate: plate,
		Exit:         &exit,
	}
}

func NewCompletedSession(plate, faceID string, entry, exit SessionEndpoint) (ParkingSession, error) {
	return newPairedSession(SessionStatusCompleted, plate, faceID, entry, exit)
}

func NewUnverifiedSession(plate, faceID string, entry, exit SessionEndpoint) (ParkingSession, error) {
	return newPairedSession(SessionStatusUnverified, plate, faceID, entry, exit)
}

func newPairedSession(status SessionStatus, plate, faceID string, entry, exit SessionEndpoint) (ParkingSession, error) {
	if exit.Time.Before(entry.Time) {
		return ParkingSession{}, fmt.Errorf("%w: exit %s precedes entry %s", ErrInvalidSession, exit.SessionID, entry.SessionID)
	}
	duration := DurationMinutes(entry.Time, exit.Time)
	return ParkingSession{
		Status:          status,
		FaceID:          faceID,
		LicensePlate:    plate,
		Entry:           &entry,
		Exit:            &exit,
		DurationMinutes: &duration,
	}, nil
}

// WithFaceMatch attaches the identity verification outcome.
func (s ParkingSession) WithFaceMatch(verified bool, result *bool) ParkingSession {
	s.FaceMatchVerified = &verified
	if result != nil {
		r := *result
		s.FaceMatchResult = &r
	} else {
		s.FaceMatchResult = nil
	}
	return s
}

// DurationMinutes rounds the span between entry and exit to whole minutes.
func DurationMinutes(entry, exit time.Time) int {
	minutes := int(math.Round(exit.Sub(entry).Minutes()))
	if minutes < 0 {
		return 0
	}
	return minutes
}

func (s ParkingSession) Validate() error {
	switch s.Status {
	case SessionStatusActive:
		if s.Entry == nil || s.Exit != nil {
			return fmt.Errorf("%w: active session needs an entry and no exit", ErrInvalidSession)
		}
	case SessionStatusFailed:
		if s.Exit == nil || s.Entry != nil {
			return fmt.Errorf("%w: failed session needs an exit and no entry", ErrInvalidSession)
		}
	case SessionStatusCompleted, SessionStatusUnverified:
		if s.Entry == nil || s.Exit == nil {
			return fmt.Errorf("%w: %s session needs entry and exit", ErrInvalidSession, s.Status)
		}
		if s.Exit.Time.Before(s.Entry.Time) {
			return fmt.Errorf("%w: exit precedes entry", ErrInvalidSession)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSession, s.Status)
	}
	if s.LicensePlate == "" {
		return fmt.Errorf("%w: empty license plate", ErrInvalidSession)
	}
	return nil
}

func (s ParkingSession) EntrySessionID() string {
	if s.Entry == nil {
		return ""
	}
	return s.Entry.SessionID
}

func (s ParkingSession) ExitSessionID() string {
	if s.Exit == nil {
		return ""
	}
	return s.Exit.SessionID
}

func (s ParkingSession) EntryTime() *time.Time {
	if s.Entry == nil {
		return nil
	}
	t := s.Entry.Time
	return &t
}

func (s ParkingSession) ExitTime() *time.Time {
	if s.Exit == nil {
		return nil
	}
	t := s.Exit.Time
	return &t
}

// LastActivity is the later of entry and exit time.
func (s ParkingSession) LastActivity() time.Time {
	var last time.Time
	if s.Entry != nil {
		last = s.Entry.Time
	}
	if s.Exit != nil && s.Exit.Time.After(last) {
		last = s.Exit.Time
	}
	return last
}

// ReferenceTime is the time date filters apply to: entry time, or exit time
// for sessions without an entry.
func (s ParkingSession) ReferenceTime() time.Time {
	if s.Entry != nil {
		return s.Entry.Time
	}
	if s.Exit != nil {
		return s.Exit.Time
	}
	return time.Time{}
}

type sessionWire struct {
	FaceID            string        `json:"faceId"`
	LicensePlate      string        `json:"licensePlate"`
	EntryTime         *time.Time    `json:"entryTime"`
	ExitTime          *time.Time    `json:"exitTime"`
	Status            SessionStatus `json:"status"`
	Duration          *int          `json:"duration"`
	EntrySessionID    *string       `json:"entrySessionId"`
	FaceURL           *string       `json:"faceUrl"`
	PlateURL          *string       `json:"plateUrl"`
	ExitSessionID     *string       `json:"exitSessionId"`
	ExitFaceURL       *string       `json:"exitFaceUrl"`
	ExitPlateURL      *string       `json:"exitPlateUrl"`
	FaceMatchVerified *bool         `json:"faceMatchVerified,omitempty"`
	FaceMatchResult   *bool         `json:"faceMatchResult,omitempty"`
}

func (s ParkingSession) MarshalJSON() ([]byte, error) {
	w := sessionWire{
		FaceID:            s.FaceID,
		LicensePlate:      s.LicensePlate,
		EntryTime:         s.EntryTime(),
		ExitTime:          s.ExitTime(),
		Status:            s.Status,
		Duration:          s.DurationMinutes,
		FaceMatchVerified: s.FaceMatchVerified,
		FaceMatchResult:   s.FaceMatchResult,
	}
	if s.Entry != nil {
		w.EntrySessionID = &s.Entry.SessionID
		w.FaceURL = optional(s.Entry.FaceURL)
		w.PlateURL = optional(s.Entry.PlateURL)
	}
	if s.Exit != nil {
		w.ExitSessionID = &s.Exit.SessionID
		w.ExitFaceURL = optional(s.Exit.FaceURL)
		w.ExitPlateURL = optional(s.Exit.PlateURL)
	}
	return json.Marshal(w)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
