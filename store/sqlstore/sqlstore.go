// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sqlstore implements store.Store on PostgreSQL or SQLite through sqlx
// and go-sqlbuilder. The schema comes from db.CreateSchema.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/danielhkuo/tally/db"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

type Store struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor

	elections *sqlbuilder.Struct
	boxes     *sqlbuilder.Struct
	observers *sqlbuilder.Struct
	alliances *sqlbuilder.Struct
	results   *sqlbuilder.Struct
	audit     *sqlbuilder.Struct
	accounts  *sqlbuilder.Struct
}

// New wraps an open connection. The placeholder flavor follows the driver.
func New(conn *sqlx.DB) *Store {
	flavor := sqlbuilder.SQLite
	if conn.DriverName() == db.DriverPostgres {
		flavor = sqlbuilder.PostgreSQL
	}
	return &Store{
		db:        conn,
		flavor:    flavor,
		elections: sqlbuilder.NewStruct(new(electionRow)).For(flavor),
		boxes:     sqlbuilder.NewStruct(new(ballotBoxRow)).For(flavor),
		observers: sqlbuilder.NewStruct(new(observerRow)).For(flavor),
		alliances: sqlbuilder.NewStruct(new(allianceRow)).For(flavor),
		results:   sqlbuilder.NewStruct(new(resultRow)).For(flavor),
		audit:     sqlbuilder.NewStruct(new(auditRow)).For(flavor),
		accounts:  sqlbuilder.NewStruct(new(accountRow)).For(flavor),
	}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func now() time.Time { return time.Now().UTC() }

// uniqueViolation returns the violated constraint (PostgreSQL) or the driver
// message naming the columns (SQLite).
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint, pqErr.Code == "23505"
	}
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return err.Error(), true
	}
	return "", false
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) get(ctx context.Context, dest any, entity, id string, sb *sqlbuilder.SelectBuilder) error {
	query, args := sb.Build()
	if err := s.db.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound(entity, id)
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, entity, id string) error {
	del := s.flavor.NewDeleteBuilder()
	del.DeleteFrom(table)
	del.Where(del.Equal("id", id))
	query, args := del.Build()
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if n == 0 {
		return errs.NotFound(entity, id)
	}
	return nil
}

// Elections

func (s *Store) CreateElection(ctx context.Context, e *models.Election) error {
	e.ID = newID(e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	e.UpdatedAt = e.CreatedAt

	query, args := s.elections.InsertInto(electionTable, fromElection(e)).Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if _, dup := uniqueViolation(err); dup {
			return errs.Invalid("id", "already exists")
		}
		return fmt.Errorf("create election: %w", err)
	}
	return nil
}

func (s *Store) GetElection(ctx context.Context, id string) (*models.Election, error) {
	sb := s.elections.SelectFrom(electionTable)
	sb.Where(sb.Equal("id", id))

	var row electionRow
	if err := s.get(ctx, &row, "election", id, sb); err != nil {
		return nil, err
	}
	return row.toElection(), nil
}

func (s *Store) UpdateElection(ctx context.Context, e *models.Election) error {
	e.UpdatedAt = now()
	row := fromElection(e)

	ub := s.flavor.NewUpdateBuilder()
	ub.Update(electionTable)
	ub.Set(
		ub.Assign("name", row.Name),
		ub.Assign("election_date", row.Date),
		ub.Assign("type", row.Type),
		ub.Assign("status", row.Status),
		ub.Assign("voter_count", row.VoterCount),
		ub.Assign("contests", row.Contests),
		ub.Assign("threshold_percent", row.ThresholdPercent),
		ub.Assign("updated_at", row.UpdatedAt),
	)
	ub.Where(ub.Equal("id", e.ID))

	query, args := ub.Build()
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update election: %w", err)
	}
	if n == 0 {
		return errs.NotFound("election", e.ID)
	}
	return nil
}

func (s *Store) ListElections(ctx context.Context) ([]*models.Election, error) {
	sb := s.elections.SelectFrom(electionTable)
	sb.OrderBy("election_date").Asc()

	query, args := sb.Build()
	var rows []electionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	out := make([]*models.Election, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toElection())
	}
	return out, nil
}

// DeleteElection removes the election and its alliances in one transaction.
func (s *Store) DeleteElection(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	del := s.flavor.NewDeleteBuilder()
	del.DeleteFrom(allianceTable)
	del.Where(del.Equal("election_id", id))
	query, args := del.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete alliances: %w", err)
	}

	del = s.flavor.NewDeleteBuilder()
	del.DeleteFrom(electionTable)
	del.Where(del.Equal("id", id))
	query, args = del.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete election: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("election", id)
	}
	return tx.Commit()
}

// Ballot boxes

func (s *Store) CreateBallotBox(ctx context.Context, b *models.BallotBox) error {
	b.ID = newID(b.ID)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now()
	}

	query, args := s.boxes.InsertInto(ballotBoxTable, fromBallotBox(b)).Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if _, dup := uniqueViolation(err); dup {
			return errs.Invalid("ballot_number", "already exists")
		}
		return fmt.Errorf("create ballot box: %w", err)
	}
	return nil
}

func (s *Store) GetBallotBox(ctx context.Context, id string) (*models.BallotBox, error) {
	sb := s.boxes.SelectFrom(ballotBoxTable)
	sb.Where(sb.Equal("id", id))

	var row ballotBoxRow
	if err := s.get(ctx, &row, "ballot box", id, sb); err != nil {
		return nil, err
	}
	return row.toBallotBox(), nil
}

func (s *Store) ListBallotBoxes(ctx context.Context) ([]*models.BallotBox, error) {
	sb := s.boxes.SelectFrom(ballotBoxTable)
	sb.OrderBy("ballot_number").Asc()

	query, args := sb.Build()
	var rows []ballotBoxRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list ballot boxes: %w", err)
	}
	out := make([]*models.BallotBox, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toBallotBox())
	}
	return out, nil
}

// DeleteBallotBox removes the box with its observers and results in one transaction.
func (s *Store) DeleteBallotBox(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{observerTable, resultTable} {
		del := s.flavor.NewDeleteBuilder()
		del.DeleteFrom(table)
		del.Where(del.Equal("ballot_box_id", id))
		query, args := del.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}

	del := s.flavor.NewDeleteBuilder()
	del.DeleteFrom(ballotBoxTable)
	del.Where(del.Equal("id", id))
	query, args := del.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete ballot box: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("ballot box", id)
	}
	return tx.Commit()
}

// Observers

func observerConflict(err error) error {
	constraint, dup := uniqueViolation(err)
	if !dup {
		return nil
	}
	if strings.Contains(constraint, "identity") || strings.Contains(constraint, "national_id") {
		return errs.ErrDuplicateIdentity
	}
	return errs.ErrChiefObserverConflict
}

func (s *Store) CreateObserver(ctx context.Context, o *models.Observer) error {
	o.ID = newID(o.ID)
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt

	query, args := s.observers.InsertInto(observerTable, fromObserver(o)).Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if conflict := observerConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("create observer: %w", err)
	}
	return nil
}

func (s *Store) GetObserver(ctx context.Context, id string) (*models.Observer, error) {
	sb := s.observers.SelectFrom(observerTable)
	sb.Where(sb.Equal("id", id))

	var row observerRow
	if err := s.get(ctx, &row, "observer", id, sb); err != nil {
		return nil, err
	}
	return row.toObserver(), nil
}

func (s *Store) UpdateObserver(ctx context.Context, o *models.Observer) error {
	o.UpdatedAt = now()

	ub := s.flavor.NewUpdateBuilder()
	ub.Update(observerTable)
	ub.Set(
		ub.Assign("ballot_box_id", o.BallotBoxID),
		ub.Assign("national_id", o.NationalID),
		ub.Assign("name", o.Name),
		ub.Assign("phone", o.Phone),
		ub.Assign("is_chief_observer", o.IsChiefObserver),
		ub.Assign("updated_at", o.UpdatedAt),
	)
	ub.Where(ub.Equal("id", o.ID))

	query, args := ub.Build()
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		if conflict := observerConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("update observer: %w", err)
	}
	if n == 0 {
		return errs.NotFound("observer", o.ID)
	}
	return nil
}

func (s *Store) DeleteObserver(ctx context.Context, id string) error {
	return s.deleteByID(ctx, observerTable, "observer", id)
}

func (s *Store) ListObservers(ctx context.Context, ballotBoxID string) ([]*models.Observer, error) {
	sb := s.observers.SelectFrom(observerTable)
	sb.Where(sb.Equal("ballot_box_id", ballotBoxID))
	sb.OrderBy("created_at", "id").Asc()

	query, args := sb.Build()
	var rows []observerRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list observers: %w", err)
	}
	out := make([]*models.Observer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toObserver())
	}
	return out, nil
}

// Alliances

func (s *Store) CreateAlliance(ctx context.Context, a *models.Alliance) error {
	a.ID = newID(a.ID)
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt

	query, args := s.alliances.InsertInto(allianceTable, fromAlliance(a)).Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create alliance: %w", err)
	}
	return nil
}

func (s *Store) GetAlliance(ctx context.Context, id string) (*models.Alliance, error) {
	sb := s.alliances.SelectFrom(allianceTable)
	sb.Where(sb.Equal("id", id))

	var row allianceRow
	if err := s.get(ctx, &row, "alliance", id, sb); err != nil {
		return nil, err
	}
	return row.toAlliance(), nil
}

func (s *Store) UpdateAlliance(ctx context.Context, a *models.Alliance) error {
	a.UpdatedAt = now()

	ub := s.flavor.NewUpdateBuilder()
	ub.Update(allianceTable)
	ub.Set(
		ub.Assign("name", a.Name),
		ub.Assign("parties", JSON[[]string]{Data: a.Parties}),
		ub.Assign("updated_at", a.UpdatedAt),
	)
	ub.Where(ub.Equal("id", a.ID))

	query, args := ub.Build()
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update alliance: %w", err)
	}
	if n == 0 {
		return errs.NotFound("alliance", a.ID)
	}
	return nil
}

func (s *Store) DeleteAlliance(ctx context.Context, id string) error {
	return s.deleteByID(ctx, allianceTable, "alliance", id)
}

func (s *Store) ListAlliances(ctx context.Context, electionID string) ([]*models.Alliance, error) {
	sb := s.alliances.SelectFrom(allianceTable)
	sb.Where(sb.Equal("election_id", electionID))
	sb.OrderBy("name").Asc()

	query, args := sb.Build()
	var rows []allianceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list alliances: %w", err)
	}
	out := make([]*models.Alliance, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toAlliance())
	}
	return out, nil
}

// Results

func (s *Store) CreateResult(ctx context.Context, r *models.ElectionResult) error {
	r.ID = newID(r.ID)

	query, args := s.results.InsertInto(resultTable, fromResult(r)).Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if _, dup := uniqueViolation(err); dup {
			return errs.ErrDuplicateResult
		}
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, id string) (*models.ElectionResult, error) {
	sb := s.results.SelectFrom(resultTable)
	sb.Where(sb.Equal("id", id))

	var row resultRow
	if err := s.get(ctx, &row, "result", id, sb); err != nil {
		return nil, err
	}
	return row.toResult(), nil
}

func (s *Store) GetResultByBallotBox(ctx context.Context, electionID, ballotBoxID string) (*models.ElectionResult, error) {
	sb := s.results.SelectFrom(resultTable)
	sb.Where(
		sb.Equal("election_id", electionID),
		sb.Equal("ballot_box_id", ballotBoxID),
	)

	var row resultRow
	if err := s.get(ctx, &row, "result for ballot box", ballotBoxID, sb); err != nil {
		return nil, err
	}
	return row.toResult(), nil
}

// UpdateResult writes r only while the stored approval_status equals expectedStatus.
func (s *Store) UpdateResult(ctx context.Context, r *models.ElectionResult, expectedStatus string) error {
	row := fromResult(r)

	ub := s.flavor.NewUpdateBuilder()
	ub.Update(resultTable)
	ub.Set(
		ub.Assign("total_voters", row.TotalVoters),
		ub.Assign("used_votes", row.UsedVotes),
		ub.Assign("invalid_votes", row.InvalidVotes),
		ub.Assign("valid_votes", row.ValidVotes),
		ub.Assign("votes", row.Votes),
		ub.Assign("has_objection", row.HasObjection),
		ub.Assign("objection_reason", row.ObjectionReason),
		ub.Assign("protocol_photos", row.ProtocolPhotos),
		ub.Assign("filled_by_ai", row.FilledByAI),
		ub.Assign("approval_status", row.ApprovalStatus),
		ub.Assign("rejection_reason", row.RejectionReason),
		ub.Assign("updated_by", row.UpdatedBy),
		ub.Assign("approved_by", row.ApprovedBy),
		ub.Assign("updated_at", row.UpdatedAt),
		ub.Assign("approved_at", row.ApprovedAt),
	)
	ub.Where(
		ub.Equal("id", r.ID),
		ub.Equal("approval_status", expectedStatus),
	)

	query, args := ub.Build()
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	if n == 1 {
		return nil
	}
	// Distinguish a lost race from a missing row.
	if _, err := s.GetResult(ctx, r.ID); err != nil {
		return err
	}
	return store.ErrStale
}

func (s *Store) DeleteResult(ctx context.Context, id string) error {
	return s.deleteByID(ctx, resultTable, "result", id)
}

func (s *Store) ListResults(ctx context.Context, electionID string, statuses ...string) ([]*models.ElectionResult, error) {
	sb := s.results.SelectFrom(resultTable)
	where := []string{sb.Equal("election_id", electionID)}
	if len(statuses) > 0 {
		where = append(where, sb.In("approval_status", sqlbuilder.Flatten(statuses)...))
	}
	sb.Where(where...)
	sb.OrderBy("ballot_box_id").Asc()

	query, args := sb.Build()
	var rows []resultRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]*models.ElectionResult, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResult())
	}
	return out, nil
}

func (s *Store) CountResults(ctx context.Context, electionID string) (int, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(resultTable)
	sb.Where(sb.Equal("election_id", electionID))

	query, args := sb.Build()
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// Audit

func (s *Store) AppendAudit(ctx context.Context, rec *models.AuditRecord) error {
	rec.ID = newID(rec.ID)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}

	query, args := s.audit.InsertInto(auditTable, fromAudit(rec)).Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, entityType, entityID string) ([]*models.AuditRecord, error) {
	sb := s.audit.SelectFrom(auditTable)
	sb.Where(
		sb.Equal("entity_type", entityType),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("created_at").Asc()

	query, args := sb.Build()
	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	out := make([]*models.AuditRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toAudit())
	}
	return out, nil
}

// Accounts

func (s *Store) UpsertAccount(ctx context.Context, acc *models.ObserverAccount) error {
	acc.UpdatedAt = now()
	row := accountRow{
		NationalID:   acc.NationalID,
		Username:     acc.Username,
		PasswordHash: acc.PasswordHash,
		UpdatedAt:    acc.UpdatedAt,
	}

	query, args := s.accounts.InsertInto(accountTable, &row).Build()
	// Both dialects accept the same upsert clause.
	query += " ON CONFLICT (national_id) DO UPDATE SET username = EXCLUDED.username, password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, nationalID string) (*models.ObserverAccount, error) {
	sb := s.accounts.SelectFrom(accountTable)
	sb.Where(sb.Equal("national_id", nationalID))

	var row accountRow
	if err := s.get(ctx, &row, "account", nationalID, sb); err != nil {
		return nil, err
	}
	return &models.ObserverAccount{
		NationalID:   row.NationalID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		UpdatedAt:    row.UpdatedAt.UTC(),
	}, nil
}

var _ store.Store = (*Store)(nil)
