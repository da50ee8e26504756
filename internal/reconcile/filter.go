package reconcile

import (
	"strings"
	"time"

	"parking-service/internal/model"
)

// Filter narrows a session list for presentation. Zero fields match everything.
type Filter struct {
	Plate    string
	DateFrom *time.Time
	DateTo   *time.Time
}

func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Plate) == "" && f.DateFrom == nil && f.DateTo == nil
}

// Search returns the sessions matching f in their original order. The plate
// match is a case-insensitive substring match. Dates are whole days: DateFrom
// starts at 00:00:00.000 and DateTo ends at 23:59:59.999 in the location of
// the given time, both inclusive. The input slice is never modified.
func Search(sessions []model.ParkingSession, f Filter) []model.ParkingSession {
	plate := strings.ToLower(strings.TrimSpace(f.Plate))

	var from, to time.Time
	if f.DateFrom != nil {
		from = StartOfDay(*f.DateFrom)
	}
	if f.DateTo != nil {
		to = EndOfDay(*f.DateTo)
	}

	result := make([]model.ParkingSession, 0, len(sessions))
	for _, s := range sessions {
		if plate != "" && !strings.Contains(strings.ToLower(s.LicensePlate), plate) {
			continue
		}
		ref := s.ReferenceTime()
		if f.DateFrom != nil && ref.Before(from) {
			continue
		}
		if f.DateTo != nil && ref.After(to) {
			continue
		}
		result = append(result, s)
	}
	return result
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
