// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

Each flag falls back to an environment variable. A .env file in the working
directory is loaded by main before parsing.

	-p                PORT             server port (default 3318)
	-d                DATABASE_URL     database URL (required)
	-t                DATABASE_TYPE    sqlite or postgres (default sqlite)
	-credential-salt  CREDENTIAL_SALT  observer password salt (required)
	-tz               ELECTION_TZ      timezone for election days (default UTC)
	-kafka-brokers    KAFKA_BROKERS    comma separated; empty disables the audit stream
	-kafka-topic      KAFKA_TOPIC      audit topic (default tally.audit)
	-log-level        LOG_LEVEL        debug, info, warn or error

CLI flags take precedence over environment variables.
*/
package cliparse
