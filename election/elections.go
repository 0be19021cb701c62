// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

type electionStore interface {
	store.ElectionRepository
	store.BallotBoxRepository
	store.ResultRepository
}

// Elections manages elections and ballot boxes. Every mutation is admin only.
type Elections struct {
	repo   electionStore
	fx     sideEffects
	logger *slog.Logger
}

var statusRank = map[string]int{
	models.StatusDraft:  0,
	models.StatusActive: 1,
	models.StatusClosed: 2,
}

func (s *Elections) Create(ctx context.Context, actor models.Actor, req models.CreateElectionRequest) (*models.Election, error) {
	if err := requireAdmin(actor, "creating an election"); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	e, err := req.ToElection()
	if err != nil {
		return nil, errs.Invalid("date", "must be a date formatted 2006-01-02")
	}
	e.Status = models.StatusDraft
	if err := models.Validate(e); err != nil {
		return nil, err
	}

	if err := s.repo.CreateElection(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("election created", "election_id", e.ID, "name", e.Name, "contests", len(e.Contests))
	s.fx.record(ctx, actor, audit.ActionCreate, audit.EntityElection, e.ID, nil, e)
	return e, nil
}

func (s *Elections) Get(ctx context.Context, id string) (*models.Election, error) {
	return s.repo.GetElection(ctx, id)
}

func (s *Elections) List(ctx context.Context) ([]*models.Election, error) {
	return s.repo.ListElections(ctx)
}

// SetStatus moves an election along draft -> active -> closed. Reopening is refused.
func (s *Elections) SetStatus(ctx context.Context, actor models.Actor, id, status string) (*models.Election, error) {
	if err := requireAdmin(actor, "changing election status"); err != nil {
		return nil, err
	}
	if err := models.Validate(models.UpdateElectionStatusRequest{Status: status}); err != nil {
		return nil, err
	}

	e, err := s.repo.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == status {
		return e, nil
	}
	if statusRank[status] < statusRank[e.Status] {
		return nil, errs.ErrStatusRegression
	}

	old := *e
	e.Status = status
	if err := s.repo.UpdateElection(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("election status changed", "election_id", id, "from", old.Status, "to", status)
	s.fx.record(ctx, actor, audit.ActionUpdate, audit.EntityElection, id, &old, e)
	return e, nil
}

// Delete removes an election no result references.
func (s *Elections) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireAdmin(actor, "deleting an election"); err != nil {
		return err
	}
	e, err := s.repo.GetElection(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountResults(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errs.ErrElectionInUse
	}
	if err := s.repo.DeleteElection(ctx, id); err != nil {
		return err
	}
	s.logger.Info("election deleted", "election_id", id)
	s.fx.record(ctx, actor, audit.ActionDelete, audit.EntityElection, id, e, nil)
	return nil
}

func (s *Elections) CreateBallotBox(ctx context.Context, actor models.Actor, req models.CreateBallotBoxRequest) (*models.BallotBox, error) {
	if err := requireAdmin(actor, "creating a ballot box"); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	b := &models.BallotBox{
		BallotNumber:    req.BallotNumber,
		InstitutionName: req.InstitutionName,
		District:        req.District,
		Town:            req.Town,
		Neighborhood:    req.Neighborhood,
		VoterCount:      req.VoterCount,
	}
	if err := s.repo.CreateBallotBox(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("ballot box created", "ballot_box_id", b.ID, "ballot_number", b.BallotNumber)
	s.fx.record(ctx, actor, audit.ActionCreate, audit.EntityBallotBox, b.ID, nil, b)
	return b, nil
}

func (s *Elections) GetBallotBox(ctx context.Context, id string) (*models.BallotBox, error) {
	return s.repo.GetBallotBox(ctx, id)
}

func (s *Elections) ListBallotBoxes(ctx context.Context) ([]*models.BallotBox, error) {
	return s.repo.ListBallotBoxes(ctx)
}

// DeleteBallotBox removes the box with its observers and results.
func (s *Elections) DeleteBallotBox(ctx context.Context, actor models.Actor, id string) error {
	if err := requireAdmin(actor, "deleting a ballot box"); err != nil {
		return err
	}
	b, err := s.repo.GetBallotBox(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBallotBox(ctx, id); err != nil {
		return err
	}
	s.logger.Info("ballot box deleted", "ballot_box_id", id, "ballot_number", b.BallotNumber)
	s.fx.record(ctx, actor, audit.ActionDelete, audit.EntityBallotBox, id, b, nil)
	return nil
}
