package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,

	// Registry of vehicles known to the patrol service, keyed by normalized VRN
	`CREATE TABLE IF NOT EXISTS patrol_vehicles (
		id               UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		vrn              TEXT NOT NULL,
		normalized       TEXT NOT NULL,
		make             TEXT,
		color            TEXT,
		owner            TEXT,
		license_expiry   DATE NOT NULL,
		insurance_status TEXT NOT NULL DEFAULT 'Valid',
		is_stolen        BOOLEAN NOT NULL DEFAULT false,
		is_wanted        BOOLEAN NOT NULL DEFAULT false,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_patrol_vehicles_normalized ON patrol_vehicles(normalized);`,

	`CREATE TABLE IF NOT EXISTS patrol_violations (
		id             UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		normalized_vrn TEXT NOT NULL,
		occurred_on    TIMESTAMPTZ NOT NULL,
		offense        TEXT NOT NULL,
		status         TEXT NOT NULL,
		ticket_id      UUID,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_patrol_violations_vrn_time ON patrol_violations(normalized_vrn, occurred_on);`,

	// Tickets keep officer, offender and line items as JSON snapshots
	`CREATE TABLE IF NOT EXISTS patrol_tickets (
		id             UUID PRIMARY KEY,
		vrn            TEXT NOT NULL,
		normalized_vrn TEXT NOT NULL,
		officer        JSONB NOT NULL,
		offender       JSONB NOT NULL,
		offenses       JSONB NOT NULL,
		total          BIGINT NOT NULL CHECK (total >= 0),
		created_at     TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_patrol_tickets_normalized_vrn ON patrol_tickets(normalized_vrn);`,

	// One row per settlement attempt, including failed and cancelled ones
	`CREATE TABLE IF NOT EXISTS patrol_settlements (
		id         UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		ticket_id  UUID NOT NULL REFERENCES patrol_tickets(id) ON DELETE CASCADE,
		status     TEXT NOT NULL,
		reference  TEXT,
		method     TEXT NOT NULL,
		message    TEXT,
		amount     BIGINT NOT NULL DEFAULT 0,
		due_date   TIMESTAMPTZ,
		station    TEXT,
		settled_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_patrol_settlements_ticket_id ON patrol_settlements(ticket_id);`,
	`CREATE INDEX IF NOT EXISTS idx_patrol_settlements_settled_at ON patrol_settlements(settled_at);`,

	// Same rule as utils.NormalizePlate, for ad-hoc queries and imports done in SQL
	`CREATE OR REPLACE FUNCTION normalize_plate_number(plate_text TEXT)
	RETURNS TEXT AS $$
	BEGIN
		RETURN REGEXP_REPLACE(UPPER(plate_text), '[^A-Z0-9]', '', 'g');
	END;
	$$ LANGUAGE plpgsql IMMUTABLE;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
