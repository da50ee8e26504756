package reconcile

import (
	"strings"

	"parking-service/internal/model"
)

// DefaultSentinels are the placeholder plates OCR reports before it has a result.
var DefaultSentinels = []string{"Detecting...", "N/A"}

// Validator drops events whose plate cannot be used for pairing.
type Validator struct {
	sentinels map[string]struct{}
}

func NewValidator(sentinels ...string) Validator {
	if len(sentinels) == 0 {
		sentinels = DefaultSentinels
	}
	set := make(map[string]struct{}, len(sentinels))
	for _, s := range sentinels {
		s = strings.TrimSpace(s)
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return Validator{sentinels: set}
}

// Valid reports whether plate is a recognized value rather than empty or a sentinel.
func (v Validator) Valid(plate string) bool {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return false
	}
	_, sentinel := v.sentinels[plate]
	return !sentinel
}

// Filter returns the events with a usable plate, in input order.
func (v Validator) Filter(events []model.GateEvent) []model.GateEvent {
	valid := make([]model.GateEvent, 0, len(events))
	for _, e := range events {
		if v.Valid(e.Plate) {
			valid = append(valid, e)
		}
	}
	return valid
}
