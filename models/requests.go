// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Request types

type CreateElectionRequest struct {
	Name             string    `json:"name" validate:"required"`
	Date             string    `json:"date" validate:"required,datetime=2006-01-02"`
	Type             string    `json:"type" validate:"required,oneof=general local referendum"`
	VoterCount       int       `json:"voter_count" validate:"gte=0"`
	Contests         []Contest `json:"contests" validate:"required,min=1,dive"`
	ThresholdPercent *float64  `json:"threshold_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// ToElection converts the request; the date has already been validated.
func (r CreateElectionRequest) ToElection() (*Election, error) {
	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return nil, err
	}
	threshold := DefaultThresholdPercent
	if r.ThresholdPercent != nil {
		threshold = *r.ThresholdPercent
	}
	return &Election{
		Name:             r.Name,
		Date:             date,
		Type:             r.Type,
		VoterCount:       r.VoterCount,
		Contests:         r.Contests,
		ThresholdPercent: threshold,
	}, nil
}

type UpdateElectionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft active closed"`
}

type CreateBallotBoxRequest struct {
	BallotNumber    string `json:"ballot_number" validate:"required"`
	InstitutionName string `json:"institution_name"`
	District        string `json:"district" validate:"required"`
	Town            string `json:"town"`
	Neighborhood    string `json:"neighborhood"`
	VoterCount      int    `json:"voter_count" validate:"gte=0"`
}

type ObserverRequest struct {
	BallotBoxID     string `json:"ballot_box_id,omitempty"`
	NationalID      string `json:"national_id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone"`
	IsChiefObserver bool   `json:"is_chief_observer"`
}

type AllianceRequest struct {
	Name    string   `json:"name"`
	Parties []string `json:"parties"`
}

// ResultRequest is the observer-submitted ballot box protocol.
type ResultRequest struct {
	BallotBoxID     string   `json:"ballot_box_id"`
	TotalVoters     int      `json:"total_voters"`
	UsedVotes       int      `json:"used_votes"`
	InvalidVotes    int      `json:"invalid_votes"`
	ValidVotes      int      `json:"valid_votes"`
	Votes           VoteMap  `json:"votes"`
	HasObjection    bool     `json:"has_objection"`
	ObjectionReason string   `json:"objection_reason"`
	ProtocolPhotos  []string `json:"protocol_photos"`
	FilledByAI      bool     `json:"filled_by_ai"`
}

// ToResult copies the submitted fields into a result for electionID.
func (r ResultRequest) ToResult(electionID string) *ElectionResult {
	return &ElectionResult{
		ElectionID:      electionID,
		BallotBoxID:     r.BallotBoxID,
		TotalVoters:     r.TotalVoters,
		UsedVotes:       r.UsedVotes,
		InvalidVotes:    r.InvalidVotes,
		ValidVotes:      r.ValidVotes,
		Votes:           r.Votes,
		HasObjection:    r.HasObjection,
		ObjectionReason: r.ObjectionReason,
		ProtocolPhotos:  r.ProtocolPhotos,
		FilledByAI:      r.FilledByAI,
	}
}

type RejectResultRequest struct {
	Reason string `json:"reason"`
}

// Response types

type CreatedResponse struct {
	ID string `json:"id"`
}

type ResultListResponse struct {
	Results []*ElectionResult `json:"results"`
	Count   int               `json:"count"`
}
