// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/election"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store/memory"
)

var (
	admin    = models.Actor{ID: "admin-1", Type: models.ActorAdmin}
	chief    = models.Actor{ID: "chief-1", Type: models.ActorChiefObserver}
	observer = models.Actor{ID: "observer-1", Type: models.ActorObserver}

	electionDate = time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type provisionCall struct {
	Identity, Username, Password string
}

type fakeProvisioner struct {
	mu    sync.Mutex
	calls []provisionCall
	err   error
}

func (p *fakeProvisioner) ProvisionOrUpdate(_ context.Context, identity, username, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, provisionCall{identity, username, password})
	return nil
}

func (p *fakeProvisioner) Calls() []provisionCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provisionCall(nil), p.calls...)
}

type recordingSink struct {
	mu   sync.Mutex
	recs []*models.AuditRecord
	err  error
}

func (s *recordingSink) Record(_ context.Context, rec *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *recordingSink) Actions(entityID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.recs {
		if r.EntityID == entityID {
			out = append(out, r.Action)
		}
	}
	return out
}

func (s *recordingSink) Records(entityID string) []*models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditRecord
	for _, r := range s.recs {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out
}

type fixture struct {
	svc   *election.Services
	store *memory.Store
	clock *fixedClock
	prov  *fakeProvisioner
	sink  *recordingSink
	e     *models.Election
}

// newFixture seeds election "e-1" on electionDate; the clock starts at noon on election day.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureIn(t, nil)
}

func newFixtureIn(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		clock: &fixedClock{now: electionDate.Add(12 * time.Hour)},
		prov:  &fakeProvisioner{},
		sink:  &recordingSink{},
	}
	f.svc = election.New(election.Deps{
		Store:       f.store,
		Audit:       f.sink,
		Provisioner: f.prov,
		Clock:       f.clock,
		Location:    loc,
	})

	f.e = &models.Election{
		ID:     "e-1",
		Name:   "General 2026",
		Date:   electionDate,
		Type:   models.TypeGeneral,
		Status: models.StatusActive,
		Contests: []models.Contest{
			{Category: "parliament", Kind: models.KindProportional, Seats: 4, Candidates: []string{"A", "B", "C", "D"}},
			{Category: "president", Kind: models.KindSingleSeat, Candidates: []string{"X", "Y"}},
		},
		ThresholdPercent: models.DefaultThresholdPercent,
	}
	require.NoError(t, f.store.CreateElection(context.Background(), f.e))
	return f
}

func (f *fixture) box(t *testing.T, number string) *models.BallotBox {
	t.Helper()
	b, err := f.svc.Elections.CreateBallotBox(context.Background(), admin, models.CreateBallotBoxRequest{
		BallotNumber: number,
		District:     "Central",
		VoterCount:   400,
	})
	require.NoError(t, err)
	return b
}

func resultRequest(boxID string, parliament map[string]int, ai bool) models.ResultRequest {
	valid := 0
	for _, v := range parliament {
		valid += v
	}
	return models.ResultRequest{
		BallotBoxID:  boxID,
		TotalVoters:  valid + 100,
		UsedVotes:    valid + 10,
		InvalidVotes: 10,
		ValidVotes:   valid,
		Votes:        models.VoteMap{"parliament": parliament},
		FilledByAI:   ai,
	}
}

// submit creates a result for a fresh box and returns it.
func (f *fixture) submit(t *testing.T, number string, parliament map[string]int, ai bool) *models.ElectionResult {
	t.Helper()
	b := f.box(t, number)
	r, err := f.svc.Workflow.Create(context.Background(), observer, f.e.ID, resultRequest(b.ID, parliament, ai))
	require.NoError(t, err)
	return r
}
