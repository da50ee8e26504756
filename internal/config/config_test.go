package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	// Run from an empty directory so no app.env is picked up.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"JWT_ACCESS_SECRET": "secret",
		"GATE_SERVICE_URL":  "http://gate:8000/",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SourceMode != SourceModeRemote {
		t.Errorf("Expected remote mode, got %s", cfg.SourceMode)
	}
	if cfg.Gate.ServiceURL != "http://gate:8000" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.Gate.ServiceURL)
	}
	if cfg.HTTP.Port != 8080 || cfg.Environment != "development" {
		t.Errorf("Unexpected HTTP defaults: %+v env=%s", cfg.HTTP, cfg.Environment)
	}
	if cfg.Reconcile.EventLimit != 100 || cfg.Parking.TotalSlots != 10 {
		t.Errorf("Unexpected reconcile defaults: limit=%d slots=%d", cfg.Reconcile.EventLimit, cfg.Parking.TotalSlots)
	}
	if cfg.Refresh.Interval != 5*time.Second || cfg.Cache.EventsTTL != 15*time.Second {
		t.Errorf("Unexpected timing defaults: %v %v", cfg.Refresh.Interval, cfg.Cache.EventsTTL)
	}
	if strings.Join(cfg.Reconcile.PlateSentinels, ",") != "Detecting...,N/A" {
		t.Errorf("Unexpected sentinels %v", cfg.Reconcile.PlateSentinels)
	}
	if cfg.NATS.Subject != "parking.gate.>" {
		t.Errorf("Unexpected NATS subject %s", cfg.NATS.Subject)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"JWT_ACCESS_SECRET":         "secret",
		"SOURCE_MODE":               "Store",
		"DB_DSN":                    "postgres://localhost/parking",
		"RECONCILE_PLATE_SENTINELS": "Detecting..., N/A ,No plate",
		"PARKING_TOTAL_SLOTS":       "0",
		"REFRESH_INTERVAL":          "2s",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SourceMode != SourceModeStore {
		t.Errorf("Expected store mode, got %s", cfg.SourceMode)
	}
	want := []string{"Detecting...", "N/A", "No plate"}
	if strings.Join(cfg.Reconcile.PlateSentinels, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %v, got %v", want, cfg.Reconcile.PlateSentinels)
	}
	if cfg.Parking.TotalSlots != 0 {
		t.Errorf("Expected explicit zero slots kept, got %d", cfg.Parking.TotalSlots)
	}
	if cfg.Refresh.Interval != 2*time.Second {
		t.Errorf("Expected 2s, got %v", cfg.Refresh.Interval)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"GATE_SERVICE_URL": "http://gate"}, "JWT_ACCESS_SECRET"},
		{"remote without url", map[string]string{"JWT_ACCESS_SECRET": "s"}, "GATE_SERVICE_URL"},
		{"store without dsn", map[string]string{"JWT_ACCESS_SECRET": "s", "SOURCE_MODE": "store"}, "DB_DSN"},
		{"unknown mode", map[string]string{"JWT_ACCESS_SECRET": "s", "SOURCE_MODE": "mqtt"}, "SOURCE_MODE"},
		{"negative slots", map[string]string{"JWT_ACCESS_SECRET": "s", "GATE_SERVICE_URL": "http://gate", "PARKING_TOTAL_SLOTS": "-1"}, "PARKING_TOTAL_SLOTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
