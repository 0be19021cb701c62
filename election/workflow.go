// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/metrics"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Workflow owns the result lifecycle:
//
//	create (AI-filled) -> pending -> approved | rejected
//	create (manual)    -> approved
//
// Approve and Reject are the only writers of approval_status, and both are
// compare-and-swap against the stored status.
type Workflow struct {
	elections store.ElectionRepository
	boxes     store.BallotBoxRepository
	results   store.ResultRepository
	clock     store.Clock
	loc       *time.Location
	fx        sideEffects
	logger    *slog.Logger
}

func (w *Workflow) today() time.Time {
	return civilDay(w.clock.Now(), w.loc)
}

// Create records a ballot box's protocol for an election.
func (w *Workflow) Create(ctx context.Context, actor models.Actor, electionID string, req models.ResultRequest) (res *models.ElectionResult, err error) {
	defer func() { metrics.RecordTransition(audit.ActionCreate, outcome(err)) }()

	if strings.TrimSpace(req.BallotBoxID) == "" {
		return nil, errs.Invalid("ballot_box_id", "is required")
	}
	e, err := w.elections.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if e.Status == models.StatusClosed && !actor.IsAdmin() {
		return nil, errs.ErrElectionClosed
	}
	if !entryOpen(w.today(), e.Date) {
		return nil, errs.ErrOutsideWindow
	}
	if _, err := w.boxes.GetBallotBox(ctx, req.BallotBoxID); err != nil {
		return nil, err
	}

	r := req.ToResult(e.ID)
	if err := validateResult(e, r); err != nil {
		return nil, err
	}

	now := w.clock.Now().UTC()
	r.CreatedBy = actor.ID
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.FilledByAI {
		r.ApprovalStatus = models.ApprovalPending
	} else {
		r.ApprovalStatus = models.ApprovalApproved
		r.ApprovedBy = actor.ID
		r.ApprovedAt = &now
	}

	if err := w.results.CreateResult(ctx, r); err != nil {
		return nil, err
	}
	w.logger.Info("result created",
		"result_id", r.ID,
		"election_id", e.ID,
		"ballot_box_id", r.BallotBoxID,
		"approval_status", r.ApprovalStatus,
		"actor_id", actor.ID)
	w.fx.record(ctx, actor, audit.ActionCreate, audit.EntityResult, r.ID, nil, r)
	return r, nil
}

// Update replaces a result's counts. The approval status is left untouched.
func (w *Workflow) Update(ctx context.Context, actor models.Actor, id string, req models.ResultRequest) (res *models.ElectionResult, err error) {
	defer func() { metrics.RecordTransition(audit.ActionUpdate, outcome(err)) }()

	existing, err := w.results.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.BallotBoxID != "" && req.BallotBoxID != existing.BallotBoxID {
		return nil, errs.Invalid("ballot_box_id", "cannot be changed")
	}
	e, err := w.elections.GetElection(ctx, existing.ElectionID)
	if err != nil {
		return nil, err
	}
	if e.Status == models.StatusClosed && !actor.IsAdmin() {
		return nil, errs.ErrElectionClosed
	}
	if !actor.IsAdmin() && !editOpen(w.today(), e.Date) {
		return nil, errs.ErrOutsideWindow
	}

	updated := *existing
	updated.TotalVoters = req.TotalVoters
	updated.UsedVotes = req.UsedVotes
	updated.InvalidVotes = req.InvalidVotes
	updated.ValidVotes = req.ValidVotes
	updated.Votes = req.Votes
	updated.HasObjection = req.HasObjection
	updated.ObjectionReason = req.ObjectionReason
	updated.ProtocolPhotos = req.ProtocolPhotos
	updated.FilledByAI = req.FilledByAI
	if err := validateResult(e, &updated); err != nil {
		return nil, err
	}
	updated.UpdatedBy = actor.ID
	updated.UpdatedAt = w.clock.Now().UTC()

	if err := w.results.UpdateResult(ctx, &updated, existing.ApprovalStatus); err != nil {
		return nil, err
	}
	w.logger.Info("result updated", "result_id", id, "actor_id", actor.ID)
	w.fx.record(ctx, actor, audit.ActionUpdate, audit.EntityResult, id, existing, &updated)
	return &updated, nil
}

// Approve moves a pending result to approved. Only a chief observer may approve.
func (w *Workflow) Approve(ctx context.Context, actor models.Actor, id string) (res *models.ElectionResult, err error) {
	defer func() { metrics.RecordTransition(audit.ActionApprove, outcome(err)) }()

	if !actor.IsChiefObserver() {
		return nil, errs.Forbidden("only a chief observer may approve results")
	}
	return w.transition(ctx, actor, id, audit.ActionApprove, func(r *models.ElectionResult, now time.Time) {
		r.ApprovalStatus = models.ApprovalApproved
		r.ApprovedBy = actor.ID
		r.ApprovedAt = &now
		r.RejectionReason = ""
	})
}

// Reject moves a pending result to rejected. An approved result cannot be rejected.
func (w *Workflow) Reject(ctx context.Context, actor models.Actor, id, reason string) (res *models.ElectionResult, err error) {
	defer func() { metrics.RecordTransition(audit.ActionReject, outcome(err)) }()

	if !actor.IsChiefObserver() {
		return nil, errs.Forbidden("only a chief observer may reject results")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errs.Invalid("reason", "is required")
	}
	return w.transition(ctx, actor, id, audit.ActionReject, func(r *models.ElectionResult, _ time.Time) {
		r.ApprovalStatus = models.ApprovalRejected
		r.RejectionReason = reason
		r.UpdatedBy = actor.ID
	})
}

// transition applies apply to a pending result and swaps it in only if the
// stored status is still pending.
func (w *Workflow) transition(ctx context.Context, actor models.Actor, id, action string, apply func(*models.ElectionResult, time.Time)) (*models.ElectionResult, error) {
	existing, err := w.results.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := pendingOnly(existing.ApprovalStatus); err != nil {
		return nil, err
	}

	now := w.clock.Now().UTC()
	next := *existing
	next.UpdatedAt = now
	apply(&next, now)

	if err := w.results.UpdateResult(ctx, &next, models.ApprovalPending); err != nil {
		if !errors.Is(err, store.ErrStale) {
			return nil, err
		}
		// Lost the race; report what the winner left behind.
		current, getErr := w.results.GetResult(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if err := pendingOnly(current.ApprovalStatus); err != nil {
			return nil, err
		}
		return nil, err
	}

	w.logger.Info("result transitioned",
		"action", action,
		"approval_status", next.ApprovalStatus,
		"result_id", id,
		"ballot_box_id", next.BallotBoxID,
		"actor_id", actor.ID)
	w.fx.record(ctx, actor, action, audit.EntityResult, id, existing, &next)
	return &next, nil
}

func pendingOnly(status string) error {
	switch status {
	case models.ApprovalPending:
		return nil
	case models.ApprovalApproved:
		return errs.ErrAlreadyApproved
	default:
		return fmt.Errorf("%w (status %s)", errs.ErrInvalidTransition, status)
	}
}

// Delete removes a result. Admin only, allowed at any time.
func (w *Workflow) Delete(ctx context.Context, actor models.Actor, id string) (err error) {
	defer func() { metrics.RecordTransition(audit.ActionDelete, outcome(err)) }()

	if err := requireAdmin(actor, "deleting results"); err != nil {
		return err
	}
	existing, err := w.results.GetResult(ctx, id)
	if err != nil {
		return err
	}
	if err := w.results.DeleteResult(ctx, id); err != nil {
		return err
	}
	w.logger.Info("result deleted", "result_id", id, "actor_id", actor.ID)
	w.fx.record(ctx, actor, audit.ActionDelete, audit.EntityResult, id, existing, nil)
	return nil
}

func (w *Workflow) Get(ctx context.Context, id string) (*models.ElectionResult, error) {
	return w.results.GetResult(ctx, id)
}

func (w *Workflow) GetByBallotBox(ctx context.Context, electionID, ballotBoxID string) (*models.ElectionResult, error) {
	return w.results.GetResultByBallotBox(ctx, electionID, ballotBoxID)
}

// List returns an election's results, optionally filtered by approval status.
func (w *Workflow) List(ctx context.Context, electionID string, statuses ...string) ([]*models.ElectionResult, error) {
	for _, s := range statuses {
		switch s {
		case models.ApprovalAutoApproved, models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected:
		default:
			return nil, errs.Invalid("status", "must be one of: auto_approved pending approved rejected")
		}
	}
	if _, err := w.elections.GetElection(ctx, electionID); err != nil {
		return nil, err
	}
	return w.results.ListResults(ctx, electionID, statuses...)
}

// validateResult checks counts and that every vote key is a declared contest
// category and candidate of e.
func validateResult(e *models.Election, r *models.ElectionResult) error {
	var problems errs.ValidationErrors
	if err := models.Validate(r); err != nil {
		var verrs errs.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		problems = append(problems, verrs...)
	}

	if r.TotalVoters > 0 && r.UsedVotes > r.TotalVoters {
		problems = append(problems, errs.ValidationError{Field: "used_votes", Message: "must not exceed total_voters"})
	}
	if r.UsedVotes > 0 && r.ValidVotes+r.InvalidVotes > r.UsedVotes {
		problems = append(problems, errs.ValidationError{Field: "used_votes", Message: "must be at least valid_votes + invalid_votes"})
	}

	if len(r.Votes) == 0 {
		problems = append(problems, errs.ValidationError{Field: "votes", Message: "is required"})
	}
	categories := make([]string, 0, len(r.Votes))
	for category := range r.Votes {
		categories = append(categories, category)
	}
	slices.Sort(categories)
	for _, category := range categories {
		contest, ok := e.Contest(category)
		if !ok {
			problems = append(problems, errs.ValidationError{Field: "votes." + category, Message: "is not a contest of this election"})
			continue
		}
		counts := r.Votes[category]
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, key := range keys {
			field := "votes." + category + "." + key
			if !contest.HasCandidate(key) {
				problems = append(problems, errs.ValidationError{Field: field, Message: "is not a declared candidate"})
				continue
			}
			if counts[key] < 0 {
				problems = append(problems, errs.ValidationError{Field: field, Message: "must be at least 0"})
			}
		}
	}
	return problems.Or()
}
