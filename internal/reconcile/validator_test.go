package reconcile

import (
	"testing"

	"parking-service/internal/model"
)

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		plate string
		want  bool
	}{
		{"ABC123", true},
		{" 51G-123.45 ", true},
		{"", false},
		{"   ", false},
		{"Detecting...", false},
		{"N/A", false},
		{" N/A ", false},
		{"n/a", true},
	}
	for _, tt := range tests {
		if got := v.Valid(tt.plate); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.plate, got, tt.want)
		}
	}
}

func TestValidator_CustomSentinels(t *testing.T) {
	v := NewValidator("UNKNOWN", " ")
	if v.Valid("UNKNOWN") {
		t.Error("custom sentinel accepted")
	}
	if !v.Valid("Detecting...") {
		t.Error("default sentinel must not apply when custom sentinels are given")
	}
}

func TestValidator_FilterPreservesOrder(t *testing.T) {
	events := []model.GateEvent{
		{SessionID: "1", Plate: "B"},
		{SessionID: "2", Plate: "Detecting..."},
		{SessionID: "3", Plate: "A"},
		{SessionID: "4", Plate: ""},
		{SessionID: "5", Plate: "C"},
	}
	got := NewValidator().Filter(events)
	want := []string{"1", "3", "5"}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].SessionID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].SessionID, id)
		}
	}
	if events[1].SessionID != "2" {
		t.Error("input slice was modified")
	}
}
