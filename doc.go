// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the tally API server.

Tally collects ballot box protocols submitted by field observers, routes
AI-transcribed protocols through chief observer approval, and aggregates
certified results into vote totals and D'Hondt seat projections.

# Starting the Server

The server requires environment variables or CLI flags for configuration.
A .env file in the working directory is loaded when present:

	DATABASE_URL=file:tally.db CREDENTIAL_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -credential-salt ...

# Configuration

Required settings:

  - DATABASE_URL (-d): connection string for the selected driver
  - CREDENTIAL_SALT (-credential-salt): secret for observer password hashing

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - ELECTION_TZ (-tz): IANA zone for entry windows (default: UTC)
  - KAFKA_BROKERS (-kafka-brokers): comma separated; enables the Kafka audit sink
  - KAFKA_TOPIC (-kafka-topic): audit topic (default: tally.audit)
  - LOG_LEVEL (-log-level): debug, info, warn or error

# Architecture

  - election: use cases (registry, workflow, aggregation, alliances, seats)
  - dhondt: highest averages allocation
  - store: repository interfaces with sqlstore and memory implementations
  - audit: audit sinks (database, log, Kafka)
  - credentials: chief observer account provisioning
  - handlers, router, middleware: HTTP surface
  - models, errs: shared types and error classes
  - cliparse, db, metrics: configuration, connections, Prometheus metrics

See package documentation for each component.
*/
package main
