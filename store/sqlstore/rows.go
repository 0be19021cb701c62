// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielhkuo/tally/models"
)

const (
	electionTable  = "election"
	ballotBoxTable = "ballot_box"
	observerTable  = "observer"
	allianceTable  = "alliance"
	resultTable    = "election_result"
	auditTable     = "audit_log"
	accountTable   = "observer_account"
)

// JSON stores T as JSON text. Postgres returns []byte, SQLite returns string.
type JSON[T any] struct {
	Data T
}

func (j *JSON[T]) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	case nil:
		var zero T
		j.Data = zero
		return nil
	default:
		return fmt.Errorf("JSON.Scan: unsupported type %T", src)
	}
}

func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type electionRow struct {
	ID               string                 `db:"id"`
	Name             string                 `db:"name"`
	Date             time.Time              `db:"election_date"`
	Type             string                 `db:"type"`
	Status           string                 `db:"status"`
	VoterCount       int                    `db:"voter_count"`
	Contests         JSON[[]models.Contest] `db:"contests"`
	ThresholdPercent float64                `db:"threshold_percent"`
	CreatedAt        time.Time              `db:"created_at"`
	UpdatedAt        time.Time              `db:"updated_at"`
}

func fromElection(e *models.Election) *electionRow {
	return &electionRow{
		ID:               e.ID,
		Name:             e.Name,
		Date:             e.Date.UTC(),
		Type:             e.Type,
		Status:           e.Status,
		VoterCount:       e.VoterCount,
		Contests:         JSON[[]models.Contest]{Data: e.Contests},
		ThresholdPercent: e.ThresholdPercent,
		CreatedAt:        e.CreatedAt.UTC(),
		UpdatedAt:        e.UpdatedAt.UTC(),
	}
}

func (row *electionRow) toElection() *models.Election {
	return &models.Election{
		ID:               row.ID,
		Name:             row.Name,
		Date:             row.Date.UTC(),
		Type:             row.Type,
		Status:           row.Status,
		VoterCount:       row.VoterCount,
		Contests:         row.Contests.Data,
		ThresholdPercent: row.ThresholdPercent,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

type ballotBoxRow struct {
	ID              string    `db:"id"`
	BallotNumber    string    `db:"ballot_number"`
	InstitutionName string    `db:"institution_name"`
	District        string    `db:"district"`
	Town            string    `db:"town"`
	Neighborhood    string    `db:"neighborhood"`
	VoterCount      int       `db:"voter_count"`
	CreatedAt       time.Time `db:"created_at"`
}

func fromBallotBox(b *models.BallotBox) *ballotBoxRow {
	return &ballotBoxRow{
		ID:              b.ID,
		BallotNumber:    b.BallotNumber,
		InstitutionName: b.InstitutionName,
		District:        b.District,
		Town:            b.Town,
		Neighborhood:    b.Neighborhood,
		VoterCount:      b.VoterCount,
		CreatedAt:       b.CreatedAt.UTC(),
	}
}

func (row *ballotBoxRow) toBallotBox() *models.BallotBox {
	return &models.BallotBox{
		ID:              row.ID,
		BallotNumber:    row.BallotNumber,
		InstitutionName: row.InstitutionName,
		District:        row.District,
		Town:            row.Town,
		Neighborhood:    row.Neighborhood,
		VoterCount:      row.VoterCount,
		CreatedAt:       row.CreatedAt.UTC(),
	}
}

type observerRow struct {
	ID              string    `db:"id"`
	BallotBoxID     string    `db:"ballot_box_id"`
	NationalID      string    `db:"national_id"`
	Name            string    `db:"name"`
	Phone           string    `db:"phone"`
	IsChiefObserver bool      `db:"is_chief_observer"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func fromObserver(o *models.Observer) *observerRow {
	return &observerRow{
		ID:              o.ID,
		BallotBoxID:     o.BallotBoxID,
		NationalID:      o.NationalID,
		Name:            o.Name,
		Phone:           o.Phone,
		IsChiefObserver: o.IsChiefObserver,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
	}
}

func (row *observerRow) toObserver() *models.Observer {
	return &models.Observer{
		ID:              row.ID,
		BallotBoxID:     row.BallotBoxID,
		NationalID:      row.NationalID,
		Name:            row.Name,
		Phone:           row.Phone,
		IsChiefObserver: row.IsChiefObserver,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

type allianceRow struct {
	ID         string         `db:"id"`
	ElectionID string         `db:"election_id"`
	Name       string         `db:"name"`
	Parties    JSON[[]string] `db:"parties"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func fromAlliance(a *models.Alliance) *allianceRow {
	return &allianceRow{
		ID:         a.ID,
		ElectionID: a.ElectionID,
		Name:       a.Name,
		Parties:    JSON[[]string]{Data: a.Parties},
		CreatedAt:  a.CreatedAt.UTC(),
		UpdatedAt:  a.UpdatedAt.UTC(),
	}
}

func (row *allianceRow) toAlliance() *models.Alliance {
	return &models.Alliance{
		ID:         row.ID,
		ElectionID: row.ElectionID,
		Name:       row.Name,
		Parties:    row.Parties.Data,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type resultRow struct {
	ID              string               `db:"id"`
	ElectionID      string               `db:"election_id"`
	BallotBoxID     string               `db:"ballot_box_id"`
	TotalVoters     int                  `db:"total_voters"`
	UsedVotes       int                  `db:"used_votes"`
	InvalidVotes    int                  `db:"invalid_votes"`
	ValidVotes      int                  `db:"valid_votes"`
	Votes           JSON[models.VoteMap] `db:"votes"`
	HasObjection    bool                 `db:"has_objection"`
	ObjectionReason string               `db:"objection_reason"`
	ProtocolPhotos  JSON[[]string]       `db:"protocol_photos"`
	FilledByAI      bool                 `db:"filled_by_ai"`
	ApprovalStatus  string               `db:"approval_status"`
	RejectionReason string               `db:"rejection_reason"`
	CreatedBy       string               `db:"created_by"`
	UpdatedBy       string               `db:"updated_by"`
	ApprovedBy      string               `db:"approved_by"`
	CreatedAt       time.Time            `db:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at"`
	ApprovedAt      sql.NullTime         `db:"approved_at"`
}

func fromResult(r *models.ElectionResult) *resultRow {
	row := &resultRow{
		ID:              r.ID,
		ElectionID:      r.ElectionID,
		BallotBoxID:     r.BallotBoxID,
		TotalVoters:     r.TotalVoters,
		UsedVotes:       r.UsedVotes,
		InvalidVotes:    r.InvalidVotes,
		ValidVotes:      r.ValidVotes,
		Votes:           JSON[models.VoteMap]{Data: r.Votes},
		HasObjection:    r.HasObjection,
		ObjectionReason: r.ObjectionReason,
		ProtocolPhotos:  JSON[[]string]{Data: r.ProtocolPhotos},
		FilledByAI:      r.FilledByAI,
		ApprovalStatus:  r.ApprovalStatus,
		RejectionReason: r.RejectionReason,
		CreatedBy:       r.CreatedBy,
		UpdatedBy:       r.UpdatedBy,
		ApprovedBy:      r.ApprovedBy,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.ApprovedAt != nil {
		row.ApprovedAt = sql.NullTime{Time: r.ApprovedAt.UTC(), Valid: true}
	}
	return row
}

func (row *resultRow) toResult() *models.ElectionResult {
	r := &models.ElectionResult{
		ID:              row.ID,
		ElectionID:      row.ElectionID,
		BallotBoxID:     row.BallotBoxID,
		TotalVoters:     row.TotalVoters,
		UsedVotes:       row.UsedVotes,
		InvalidVotes:    row.InvalidVotes,
		ValidVotes:      row.ValidVotes,
		Votes:           row.Votes.Data,
		HasObjection:    row.HasObjection,
		ObjectionReason: row.ObjectionReason,
		ProtocolPhotos:  row.ProtocolPhotos.Data,
		FilledByAI:      row.FilledByAI,
		ApprovalStatus:  row.ApprovalStatus,
		RejectionReason: row.RejectionReason,
		CreatedBy:       row.CreatedBy,
		UpdatedBy:       row.UpdatedBy,
		ApprovedBy:      row.ApprovedBy,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.ApprovedAt.Valid {
		t := row.ApprovedAt.Time.UTC()
		r.ApprovedAt = &t
	}
	return r
}

type auditRow struct {
	ID          string         `db:"id"`
	ActorID     string         `db:"actor_id"`
	ActorType   string         `db:"actor_type"`
	Action      string         `db:"action"`
	EntityType  string         `db:"entity_type"`
	EntityID    string         `db:"entity_id"`
	OldSnapshot sql.NullString `db:"old_snapshot"`
	NewSnapshot sql.NullString `db:"new_snapshot"`
	CreatedAt   time.Time      `db:"created_at"`
}

func fromAudit(rec *models.AuditRecord) *auditRow {
	return &auditRow{
		ID:          rec.ID,
		ActorID:     rec.ActorID,
		ActorType:   rec.ActorType,
		Action:      rec.Action,
		EntityType:  rec.EntityType,
		EntityID:    rec.EntityID,
		OldSnapshot: sql.NullString{String: string(rec.OldSnapshot), Valid: len(rec.OldSnapshot) > 0},
		NewSnapshot: sql.NullString{String: string(rec.NewSnapshot), Valid: len(rec.NewSnapshot) > 0},
		CreatedAt:   rec.CreatedAt.UTC(),
	}
}

func (row *auditRow) toAudit() *models.AuditRecord {
	rec := &models.AuditRecord{
		ID:         row.ID,
		ActorID:    row.ActorID,
		ActorType:  row.ActorType,
		Action:     row.Action,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		CreatedAt:  row.CreatedAt.UTC(),
	}
	if row.OldSnapshot.Valid {
		rec.OldSnapshot = []byte(row.OldSnapshot.String)
	}
	if row.NewSnapshot.Valid {
		rec.NewSnapshot = []byte(row.NewSnapshot.String)
	}
	return rec
}

type accountRow struct {
	NationalID   string    `db:"national_id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	UpdatedAt    time.Time `db:"updated_at"`
}
