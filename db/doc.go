// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens database connections and creates the schema.

# Connections

Open selects lib/pq or modernc.org/sqlite by type and pings before returning:

	conn, err := db.Open(ctx, db.DriverSQLite, "file:tally.db")

# Schema Creation

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - election: metadata, contests (JSON) and threshold
  - ballot_box: unique ballot number per box
  - observer: per box, unique national ID per box, at most one chief
  - alliance: named party groups per election
  - election_result: one protocol per (election, ballot box)
  - audit_log: append-only change history
  - observer_account: provisioned chief observer credentials

# Relationships

	election 1──* alliance
	election 1──* election_result
	ballot_box 1──* observer
	ballot_box 1──* election_result

The observer uniqueness rules are enforced by unique indexes so that
concurrent assignments cannot both succeed.
*/
package db
