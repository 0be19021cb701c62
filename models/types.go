// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Election status constants
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

// Election type constants
const (
	TypeGeneral    = "general"
	TypeLocal      = "local"
	TypeReferendum = "referendum"
)

// Contest kinds
const (
	KindSingleSeat   = "single_seat"
	KindProportional = "proportional"
)

// Approval status constants
const (
	ApprovalAutoApproved = "auto_approved"
	ApprovalPending      = "pending"
	ApprovalApproved     = "approved"
	ApprovalRejected     = "rejected"
)

// Actor types
const (
	ActorAdmin         = "admin"
	ActorChiefObserver = "chief_observer"
	ActorObserver      = "observer"
)

// DefaultThresholdPercent is the exclusion threshold used when an election does not set one.
const DefaultThresholdPercent = 7.0

// CertifiedStatuses are the approval states that count toward an official tally.
var CertifiedStatuses = []string{ApprovalAutoApproved, ApprovalApproved}

// IsCertified reports whether a result in this state may be tallied.
func IsCertified(status string) bool {
	return status == ApprovalAutoApproved || status == ApprovalApproved
}

// Actor is the caller identity resolved outside the core.
type Actor struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"required,oneof=admin chief_observer observer"`
}

func (a Actor) IsAdmin() bool         { return a.Type == ActorAdmin }
func (a Actor) IsChiefObserver() bool { return a.Type == ActorChiefObserver }

// Domain types

type Contest struct {
	Category       string   `json:"category" validate:"required"`
	Kind           string   `json:"kind" validate:"required,oneof=single_seat proportional"`
	Seats          int      `json:"seats,omitempty" validate:"required_if=Kind proportional,gte=0,lte=1000"`
	Candidates     []string `json:"candidates" validate:"required,min=1,unique,dive,required"`
	UseAlliances   bool     `json:"use_alliances,omitempty"`
	ApplyThreshold bool     `json:"apply_threshold,omitempty"`
}

// HasCandidate reports whether key is one of the declared candidates or lists.
func (c Contest) HasCandidate(key string) bool {
	for _, candidate := range c.Candidates {
		if candidate == key {
			return true
		}
	}
	return false
}

type Election struct {
	ID               string    `json:"id"`
	Name             string    `json:"name" validate:"required"`
	Date             time.Time `json:"date" validate:"required"`
	Type             string    `json:"type" validate:"required,oneof=general local referendum"`
	Status           string    `json:"status"`
	VoterCount       int       `json:"voter_count" validate:"gte=0"`
	Contests         []Contest `json:"contests" validate:"required,min=1,dive"`
	ThresholdPercent float64   `json:"threshold_percent" validate:"gte=0,lte=100"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Contest returns the contest declared for category.
func (e *Election) Contest(category string) (Contest, bool) {
	for _, c := range e.Contests {
		if c.Category == category {
			return c, true
		}
	}
	return Contest{}, false
}

type BallotBox struct {
	ID              string    `json:"id"`
	BallotNumber    string    `json:"ballot_number" validate:"required"`
	InstitutionName string    `json:"institution_name"`
	District        string    `json:"district" validate:"required"`
	Town            string    `json:"town"`
	Neighborhood    string    `json:"neighborhood"`
	VoterCount      int       `json:"voter_count" validate:"gte=0"`
	CreatedAt       time.Time `json:"created_at"`
}

type Observer struct {
	ID              string    `json:"id"`
	BallotBoxID     string    `json:"ballot_box_id"`
	NationalID      string    `json:"national_id" validate:"required"`
	Name            string    `json:"name" validate:"required"`
	Phone           string    `json:"phone"`
	IsChiefObserver bool      `json:"is_chief_observer"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Alliance struct {
	ID         string    `json:"id"`
	ElectionID string    `json:"election_id"`
	Name       string    `json:"name"`
	Parties    []string  `json:"parties"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// VoteMap holds per-category counts: category -> candidate/list key -> votes.
type VoteMap map[string]map[string]int

type ElectionResult struct {
	ID              string     `json:"id"`
	ElectionID      string     `json:"election_id"`
	BallotBoxID     string     `json:"ballot_box_id"`
	TotalVoters     int        `json:"total_voters" validate:"gte=0"`
	UsedVotes       int        `json:"used_votes" validate:"gte=0"`
	InvalidVotes    int        `json:"invalid_votes" validate:"gte=0"`
	ValidVotes      int        `json:"valid_votes" validate:"gte=0"`
	Votes           VoteMap    `json:"votes"`
	HasObjection    bool       `json:"has_objection"`
	ObjectionReason string     `json:"objection_reason,omitempty" validate:"required_if=HasObjection true"`
	ProtocolPhotos  []string   `json:"protocol_photos,omitempty"`
	FilledByAI      bool       `json:"filled_by_ai"`
	ApprovalStatus  string     `json:"approval_status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedBy       string     `json:"created_by"`
	UpdatedBy       string     `json:"updated_by,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

// AuditRecord is one entry of the append-only audit trail.
type AuditRecord struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	ActorType   string    `json:"actor_type"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	OldSnapshot []byte    `json:"old_snapshot,omitempty"`
	NewSnapshot []byte    `json:"new_snapshot,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ObserverAccount is the login provisioned for a chief observer.
type ObserverAccount struct {
	NationalID   string    `json:"national_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	UpdatedAt    time.Time `json:"updated_at"`
}

// Tally types

type BucketTotal struct {
	Key   string  `json:"key"`
	Votes int64   `json:"votes"`
	Share float64 `json:"share"`
}

type CategoryTally struct {
	Category string        `json:"category"`
	Kind     string        `json:"kind"`
	Buckets  []BucketTotal `json:"buckets"`
	Winner   *BucketTotal  `json:"winner,omitempty"`
}

type Tally struct {
	ElectionID       string          `json:"election_id"`
	TotalVotes       int64           `json:"total_votes"`
	ValidVotes       int64           `json:"valid_votes"`
	InvalidVotes     int64           `json:"invalid_votes"`
	TotalBallotBoxes int             `json:"total_ballot_boxes"`
	Categories       []CategoryTally `json:"categories"`
	ComputedAt       time.Time       `json:"computed_at"`
}

// Category returns the tally for category if it was aggregated.
func (t *Tally) Category(category string) (CategoryTally, bool) {
	for _, c := range t.Categories {
		if c.Category == category {
			return c, true
		}
	}
	return CategoryTally{}, false
}

type SeatLine struct {
	Key      string  `json:"key"`
	Votes    int64   `json:"votes"`
	Share    float64 `json:"share"`
	Eligible bool    `json:"eligible"`
	Seats    int     `json:"seats"`
}

type SeatAllocation struct {
	ElectionID       string     `json:"election_id"`
	Category         string     `json:"category"`
	TotalSeats       int        `json:"total_seats"`
	ThresholdPercent float64    `json:"threshold_percent"`
	ValidVotes       int64      `json:"valid_votes"`
	Lines            []SeatLine `json:"lines"`
	ComputedAt       time.Time  `json:"computed_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Fields  any    `json:"fields,omitempty"`
}
