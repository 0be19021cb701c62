// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"time"

	"github.com/danielhkuo/tally/models"
)

// ElectionRepository persists elections. DeleteElection also removes the
// election's alliances; callers must check that no results reference it.
type ElectionRepository interface {
	CreateElection(ctx context.Context, e *models.Election) error
	GetElection(ctx context.Context, id string) (*models.Election, error)
	UpdateElection(ctx context.Context, e *models.Election) error
	ListElections(ctx context.Context) ([]*models.Election, error)
	DeleteElection(ctx context.Context, id string) error
}

// BallotBoxRepository persists ballot boxes. DeleteBallotBox cascades to the
// box's observers and results.
type BallotBoxRepository interface {
	CreateBallotBox(ctx context.Context, b *models.BallotBox) error
	GetBallotBox(ctx context.Context, id string) (*models.BallotBox, error)
	ListBallotBoxes(ctx context.Context) ([]*models.BallotBox, error)
	DeleteBallotBox(ctx context.Context, id string) error
}

// ObserverRepository persists observers. CreateObserver and UpdateObserver must
// atomically reject a second chief observer for a box (errs.ErrChiefObserverConflict)
// and a repeated national id within a box (errs.ErrDuplicateIdentity).
type ObserverRepository interface {
	CreateObserver(ctx context.Context, o *models.Observer) error
	GetObserver(ctx context.Context, id string) (*models.Observer, error)
	UpdateObserver(ctx context.Context, o *models.Observer) error
	DeleteObserver(ctx context.Context, id string) error
	ListObservers(ctx context.Context, ballotBoxID string) ([]*models.Observer, error)
}

// AllianceRepository persists alliances.
type AllianceRepository interface {
	CreateAlliance(ctx context.Context, a *models.Alliance) error
	GetAlliance(ctx context.Context, id string) (*models.Alliance, error)
	UpdateAlliance(ctx context.Context, a *models.Alliance) error
	DeleteAlliance(ctx context.Context, id string) error
	ListAlliances(ctx context.Context, electionID string) ([]*models.Alliance, error)
}

// ResultRepository persists election results.
//
// CreateResult must enforce (election_id, ballot_box_id) uniqueness atomically and
// return errs.ErrDuplicateResult when it is violated. UpdateResult is a
// compare-and-swap: the row is written only if its stored approval_status still
// equals expectedStatus, otherwise ErrStale is returned and nothing changes.
type ResultRepository interface {
	CreateResult(ctx context.Context, r *models.ElectionResult) error
	GetResult(ctx context.Context, id string) (*models.ElectionResult, error)
	GetResultByBallotBox(ctx context.Context, electionID, ballotBoxID string) (*models.ElectionResult, error)
	UpdateResult(ctx context.Context, r *models.ElectionResult, expectedStatus string) error
	DeleteResult(ctx context.Context, id string) error
	// ListResults returns the election's results ordered by ballot box id.
	// An empty statuses list returns every result.
	ListResults(ctx context.Context, electionID string, statuses ...string) ([]*models.ElectionResult, error)
	CountResults(ctx context.Context, electionID string) (int, error)
}

// AuditRepository stores audit records.
type AuditRepository interface {
	AppendAudit(ctx context.Context, rec *models.AuditRecord) error
	ListAudit(ctx context.Context, entityType, entityID string) ([]*models.AuditRecord, error)
}

// AccountRepository stores provisioned observer logins.
type AccountRepository interface {
	UpsertAccount(ctx context.Context, acc *models.ObserverAccount) error
	GetAccount(ctx context.Context, nationalID string) (*models.ObserverAccount, error)
}

// Store is the full persistence surface the service is wired against.
type Store interface {
	ElectionRepository
	BallotBoxRepository
	ObserverRepository
	AllianceRepository
	ResultRepository
	AuditRepository
	AccountRepository
	Close() error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
