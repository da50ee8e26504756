package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS gate_events (
		session_id VARCHAR(64) PRIMARY KEY,
		gate VARCHAR(8) NOT NULL CHECK (gate IN ('In', 'Out')),
		detected_at TIMESTAMPTZ NOT NULL,
		plate_number VARCHAR(32) NOT NULL DEFAULT '',
		face_index VARCHAR(64) NOT NULL DEFAULT '',
		plate_url TEXT,
		face_url TEXT,
		is_out BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_gate_events_gate_detected_at ON gate_events (gate, detected_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_gate_events_plate_face ON gate_events (plate_number, face_index);`,
	`CREATE TABLE IF NOT EXISTS session_maps (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		entry_session_id VARCHAR(64) NOT NULL REFERENCES gate_events (session_id) ON DELETE CASCADE,
		exit_session_id VARCHAR(64) NOT NULL REFERENCES gate_events (session_id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_session_maps_entry ON session_maps (entry_session_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_session_maps_exit ON session_maps (exit_session_id);`,
	`CREATE TABLE IF NOT EXISTS matching_verifications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		session_id VARCHAR(64) NOT NULL REFERENCES gate_events (session_id) ON DELETE CASCADE,
		is_match BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_matching_verifications_session ON matching_verifications (session_id);`,
	`CREATE TABLE IF NOT EXISTS parking_settings (
		key VARCHAR(64) PRIMARY KEY,
		int_value INTEGER NOT NULL DEFAULT 0 CHECK (int_value >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_parking_settings_updated_at') THEN
			CREATE TRIGGER trg_parking_settings_updated_at
				BEFORE UPDATE ON parking_settings
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
