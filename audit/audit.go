// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package audit records who changed what. Sinks are best effort: callers log
// a failed Record and carry on.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Actions
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
)

// Entity types
const (
	EntityResult    = "election_result"
	EntityObserver  = "observer"
	EntityAlliance  = "alliance"
	EntityElection  = "election"
	EntityBallotBox = "ballot_box"
)

// Sink receives audit records.
type Sink interface {
	Record(ctx context.Context, rec *models.AuditRecord) error
}

// New builds a record with a fresh id stamped at at. Snapshots are JSON
// encoded; nil stays empty.
func New(at time.Time, actor models.Actor, action, entityType, entityID string, oldValue, newValue any) *models.AuditRecord {
	return &models.AuditRecord{
		ID:          uuid.New().String(),
		ActorID:     actor.ID,
		ActorType:   actor.Type,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		OldSnapshot: Snapshot(oldValue),
		NewSnapshot: Snapshot(newValue),
		CreatedAt:   at.UTC(),
	}
}

// Snapshot encodes v as JSON, returning nil for nil input or encoding errors.
func Snapshot(v any) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return b
}

// StoreSink appends records to the audit_log table.
type StoreSink struct {
	repo store.AuditRepository
}

func NewStoreSink(repo store.AuditRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Record(ctx context.Context, rec *models.AuditRecord) error {
	return s.repo.AppendAudit(ctx, rec)
}

// LogSink writes records to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, rec *models.AuditRecord) error {
	s.logger.InfoContext(ctx, "audit",
		"actor_id", rec.ActorID,
		"actor_type", rec.ActorType,
		"action", rec.Action,
		"entity_type", rec.EntityType,
		"entity_id", rec.EntityID)
	return nil
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, rec *models.AuditRecord) error {
	var errList []error
	for _, sink := range m {
		if err := sink.Record(ctx, rec); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Discard drops every record.
type Discard struct{}

func (Discard) Record(context.Context, *models.AuditRecord) error { return nil }
