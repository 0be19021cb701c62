// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL is kept to types both PostgreSQL and SQLite accept.
func CreateSchema(ctx context.Context, conn *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	// Elections
	`CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    election_date TIMESTAMP NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('general', 'local', 'referendum')),
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'closed')),
    voter_count INTEGER NOT NULL DEFAULT 0,
    contests TEXT NOT NULL,
    threshold_percent DOUBLE PRECISION NOT NULL DEFAULT 7.0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,

	// Ballot boxes
	`CREATE TABLE IF NOT EXISTS ballot_box (
    id TEXT PRIMARY KEY,
    ballot_number TEXT NOT NULL UNIQUE,
    institution_name TEXT NOT NULL DEFAULT '',
    district TEXT NOT NULL,
    town TEXT NOT NULL DEFAULT '',
    neighborhood TEXT NOT NULL DEFAULT '',
    voter_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
)`,

	// Observers
	`CREATE TABLE IF NOT EXISTS observer (
    id TEXT PRIMARY KEY,
    ballot_box_id TEXT NOT NULL REFERENCES ballot_box(id) ON DELETE CASCADE,
    national_id TEXT NOT NULL,
    name TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    is_chief_observer BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_observer_identity ON observer(ballot_box_id, national_id)`,
	// At most one chief observer per ballot box
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_observer_chief ON observer(ballot_box_id) WHERE is_chief_observer`,

	// Alliances
	`CREATE TABLE IF NOT EXISTS alliance (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id),
    name TEXT NOT NULL,
    parties TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_alliance_election_id ON alliance(election_id)`,

	// Election results
	`CREATE TABLE IF NOT EXISTS election_result (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id),
    ballot_box_id TEXT NOT NULL REFERENCES ballot_box(id) ON DELETE CASCADE,
    total_voters INTEGER NOT NULL DEFAULT 0,
    used_votes INTEGER NOT NULL DEFAULT 0,
    invalid_votes INTEGER NOT NULL DEFAULT 0,
    valid_votes INTEGER NOT NULL DEFAULT 0,
    votes TEXT NOT NULL,
    has_objection BOOLEAN NOT NULL DEFAULT FALSE,
    objection_reason TEXT NOT NULL DEFAULT '',
    protocol_photos TEXT NOT NULL,
    filled_by_ai BOOLEAN NOT NULL DEFAULT FALSE,
    approval_status TEXT NOT NULL CHECK (approval_status IN ('auto_approved', 'pending', 'approved', 'rejected')),
    rejection_reason TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL,
    updated_by TEXT NOT NULL DEFAULT '',
    approved_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    approved_at TIMESTAMP,
    UNIQUE (election_id, ballot_box_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_election_result_status ON election_result(election_id, approval_status)`,

	// Audit trail
	`CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    actor_id TEXT NOT NULL,
    actor_type TEXT NOT NULL,
    action TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    old_snapshot TEXT,
    new_snapshot TEXT,
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id)`,

	// Provisioned chief observer logins
	`CREATE TABLE IF NOT EXISTS observer_account (
    national_id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
}
