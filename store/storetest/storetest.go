// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package storetest holds behavior checks every store.Store implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Run executes the suite. newStore must return an empty store per call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("ElectionRoundTrip", func(t *testing.T) { testElectionRoundTrip(t, newStore(t)) })
	t.Run("BallotBoxCascade", func(t *testing.T) { testBallotBoxCascade(t, newStore(t)) })
	t.Run("ObserverConstraints", func(t *testing.T) { testObserverConstraints(t, newStore(t)) })
	t.Run("ConcurrentChiefAssignment", func(t *testing.T) { testConcurrentChief(t, newStore(t)) })
	t.Run("AllianceCRUD", func(t *testing.T) { testAllianceCRUD(t, newStore(t)) })
	t.Run("ResultUniqueness", func(t *testing.T) { testResultUniqueness(t, newStore(t)) })
	t.Run("ResultCompareAndSwap", func(t *testing.T) { testResultCAS(t, newStore(t)) })
	t.Run("ListResultsByStatus", func(t *testing.T) { testListResults(t, newStore(t)) })
	t.Run("AuditAndAccounts", func(t *testing.T) { testAuditAndAccounts(t, newStore(t)) })
}

// SeedElection stores a minimal active election.
func SeedElection(t *testing.T, s store.Store, id string) *models.Election {
	t.Helper()
	e := &models.Election{
		ID:     id,
		Name:   "General " + id,
		Date:   time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		Type:   models.TypeGeneral,
		Status: models.StatusActive,
		Contests: []models.Contest{
			{Category: "parliament", Kind: models.KindProportional, Seats: 4, Candidates: []string{"A", "B", "C"}},
		},
		ThresholdPercent: models.DefaultThresholdPercent,
	}
	require.NoError(t, s.CreateElection(context.Background(), e))
	return e
}

// SeedBallotBox stores a ballot box with the given number.
func SeedBallotBox(t *testing.T, s store.Store, number string) *models.BallotBox {
	t.Helper()
	b := &models.BallotBox{BallotNumber: number, District: "Central", VoterCount: 350}
	require.NoError(t, s.CreateBallotBox(context.Background(), b))
	return b
}

func newResult(electionID, boxID, status string) *models.ElectionResult {
	ts := time.Now().UTC()
	return &models.ElectionResult{
		ElectionID:     electionID,
		BallotBoxID:    boxID,
		TotalVoters:    350,
		UsedVotes:      300,
		InvalidVotes:   10,
		ValidVotes:     290,
		Votes:          models.VoteMap{"parliament": {"A": 150, "B": 90, "C": 50}},
		ProtocolPhotos: []string{"photo-1.jpg"},
		ApprovalStatus: status,
		CreatedBy:      "observer-1",
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

func testElectionRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := SeedElection(t, s, "e-1")

	got, err := s.GetElection(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.True(t, e.Date.Equal(got.Date))
	require.Len(t, got.Contests, 1)
	assert.Equal(t, []string{"A", "B", "C"}, got.Contests[0].Candidates)

	got.Status = models.StatusClosed
	require.NoError(t, s.UpdateElection(ctx, got))
	again, err := s.GetElection(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, again.Status)

	_, err = s.GetElection(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	list, err := s.ListElections(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.CreateAlliance(ctx, &models.Alliance{ElectionID: "e-1", Name: "People", Parties: []string{"A", "B"}}))
	require.NoError(t, s.DeleteElection(ctx, "e-1"))
	_, err = s.GetElection(ctx, "e-1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	alliances, err := s.ListAlliances(ctx, "e-1")
	require.NoError(t, err)
	assert.Empty(t, alliances)
	assert.ErrorIs(t, s.DeleteElection(ctx, "e-1"), errs.ErrNotFound)
}

func testBallotBoxCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := SeedElection(t, s, "e-1")
	box := SeedBallotBox(t, s, "1001")

	err := s.CreateBallotBox(ctx, &models.BallotBox{BallotNumber: "1001", District: "Central"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, s.CreateObserver(ctx, &models.Observer{BallotBoxID: box.ID, NationalID: "N1", Name: "Ayla"}))
	require.NoError(t, s.CreateResult(ctx, newResult(e.ID, box.ID, models.ApprovalAutoApproved)))

	require.NoError(t, s.DeleteBallotBox(ctx, box.ID))

	observers, err := s.ListObservers(ctx, box.ID)
	require.NoError(t, err)
	assert.Empty(t, observers)
	_, err = s.GetResultByBallotBox(ctx, e.ID, box.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.ErrorIs(t, s.DeleteBallotBox(ctx, box.ID), errs.ErrNotFound)
}

func testObserverConstraints(t *testing.T, s store.Store) {
	ctx := context.Background()
	box := SeedBallotBox(t, s, "2001")
	other := SeedBallotBox(t, s, "2002")

	chief := &models.Observer{BallotBoxID: box.ID, NationalID: "N1", Name: "Ayla", IsChiefObserver: true}
	require.NoError(t, s.CreateObserver(ctx, chief))

	err := s.CreateObserver(ctx, &models.Observer{BallotBoxID: box.ID, NationalID: "N2", Name: "Baran", IsChiefObserver: true})
	assert.ErrorIs(t, err, errs.ErrChiefObserverConflict)

	err = s.CreateObserver(ctx, &models.Observer{BallotBoxID: box.ID, NationalID: "N1", Name: "Ayla again"})
	assert.ErrorIs(t, err, errs.ErrDuplicateIdentity)

	// The same person may observe another box.
	require.NoError(t, s.CreateObserver(ctx, &models.Observer{BallotBoxID: other.ID, NationalID: "N1", Name: "Ayla", IsChiefObserver: true}))

	plain := &models.Observer{BallotBoxID: box.ID, NationalID: "N3", Name: "Cem"}
	require.NoError(t, s.CreateObserver(ctx, plain))
	plain.IsChiefObserver = true
	assert.ErrorIs(t, s.UpdateObserver(ctx, plain), errs.ErrChiefObserverConflict)

	chief.IsChiefObserver = false
	require.NoError(t, s.UpdateObserver(ctx, chief))
	require.NoError(t, s.UpdateObserver(ctx, plain))

	list, err := s.ListObservers(ctx, box.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	chiefs := 0
	for _, o := range list {
		if o.IsChiefObserver {
			chiefs++
			assert.Equal(t, "N3", o.NationalID)
		}
	}
	assert.Equal(t, 1, chiefs)

	require.NoError(t, s.DeleteObserver(ctx, plain.ID))
	assert.ErrorIs(t, s.DeleteObserver(ctx, plain.ID), errs.ErrNotFound)
}

func testConcurrentChief(t *testing.T, s store.Store) {
	ctx := context.Background()
	box := SeedBallotBox(t, s, "3001")

	const workers = 8
	var wg sync.WaitGroup
	var created, conflicts atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateObserver(ctx, &models.Observer{
				BallotBoxID:     box.ID,
				NationalID:      fmt.Sprintf("N%d", i),
				Name:            fmt.Sprintf("Observer %d", i),
				IsChiefObserver: true,
			})
			switch {
			case err == nil:
				created.Add(1)
			case assert.ErrorIs(t, err, errs.ErrChiefObserverConflict):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
}

func testAllianceCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := SeedElection(t, s, "e-1")

	a := &models.Alliance{ElectionID: e.ID, Name: "People", Parties: []string{"A", "B"}}
	require.NoError(t, s.CreateAlliance(ctx, a))
	require.NotEmpty(t, a.ID)

	a.Parties = []string{"A", "C"}
	require.NoError(t, s.UpdateAlliance(ctx, a))
	got, err := s.GetAlliance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, got.Parties)

	list, err := s.ListAlliances(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteAlliance(ctx, a.ID))
	_, err = s.GetAlliance(ctx, a.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testResultUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := SeedElection(t, s, "e-1")
	box := SeedBallotBox(t, s, "4001")

	first := newResult(e.ID, box.ID, models.ApprovalAutoApproved)
	require.NoError(t, s.CreateResult(ctx, first))

	err := s.CreateResult(ctx, newResult(e.ID, box.ID, models.ApprovalAutoApproved))
	assert.ErrorIs(t, err, errs.ErrDuplicateResult)
	assert.ErrorIs(t, err, errs.ErrConflict)

	got, err := s.GetResultByBallotBox(ctx, e.ID, box.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 150, got.Votes["parliament"]["A"])
	assert.Equal(t, []string{"photo-1.jpg"}, got.ProtocolPhotos)
	assert.Nil(t, got.ApprovedAt)

	n, err := s.CountResults(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testResultCAS(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := SeedElection(t, s, "e-1")
	box := SeedBallotBox(t, s, "5001")

	r := newResult(e.ID, box.ID, models.ApprovalPending)
	r.FilledByAI = true
	require.NoError(t, s.CreateResult(ctx, r))

	const workers = 6
	var wg sync.WaitGroup
	var won, stale atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := s.GetResult(ctx, r.ID)
			if !assert.NoError(t, err) {
				return
			}
			approvedAt := time.Now().UTC()
			c.ApprovalStatus = models.ApprovalApproved
			c.ApprovedBy = fmt.Sprintf("chief-%d", i)
			c.ApprovedAt = &approvedAt
			err = s.UpdateResult(ctx, c, models.ApprovalPending)
			switch {
			case err == nil:
				won.Add(1)
			case assert.ErrorIs(t, err, store.ErrStale):
				stale.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(workers-1), stale.Load())

	got, err := s.GetResult(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, got.ApprovalStatus)
	require.NotNil(t, got.ApprovedAt)

	missing := newResult(e.ID, box.ID, models.ApprovalApproved)
	missing.ID = "nope"
	assert.ErrorIs(t, s.UpdateResult(ctx, missing, models.ApprovalApproved), errs.ErrNotFound)
}

func testListResults(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := SeedElection(t, s, "e-1")
	statuses := []string{models.ApprovalAutoApproved, models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected}
	for i, status := range statuses {
		box := SeedBallotBox(t, s, fmt.Sprintf("600%d", i))
		require.NoError(t, s.CreateResult(ctx, newResult(e.ID, box.ID, status)))
	}

	all, err := s.ListResults(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].BallotBoxID, all[i].BallotBoxID)
	}

	certified, err := s.ListResults(ctx, e.ID, models.CertifiedStatuses...)
	require.NoError(t, err)
	assert.Len(t, certified, 2)
	for _, r := range certified {
		assert.True(t, models.IsCertified(r.ApprovalStatus))
	}

	none, err := s.ListResults(ctx, "other-election")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testAuditAndAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()

	rec := &models.AuditRecord{
		ActorID:     "admin-1",
		ActorType:   models.ActorAdmin,
		Action:      "update",
		EntityType:  "election_result",
		EntityID:    "r-1",
		OldSnapshot: []byte(`{"valid_votes":1}`),
		NewSnapshot: []byte(`{"valid_votes":2}`),
	}
	require.NoError(t, s.AppendAudit(ctx, rec))
	require.NoError(t, s.AppendAudit(ctx, &models.AuditRecord{ActorID: "x", ActorType: models.ActorAdmin, Action: "delete", EntityType: "election_result", EntityID: "r-2"}))

	trail, err := s.ListAudit(ctx, "election_result", "r-1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.JSONEq(t, `{"valid_votes":1}`, string(trail[0].OldSnapshot))
	assert.JSONEq(t, `{"valid_votes":2}`, string(trail[0].NewSnapshot))

	require.NoError(t, s.UpsertAccount(ctx, &models.ObserverAccount{NationalID: "N1", Username: "1001", PasswordHash: "h1"}))
	require.NoError(t, s.UpsertAccount(ctx, &models.ObserverAccount{NationalID: "N1", Username: "1002", PasswordHash: "h2"}))
	acc, err := s.GetAccount(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, "1002", acc.Username)
	assert.Equal(t, "h2", acc.PasswordHash)

	_, err = s.GetAccount(ctx, "N9")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
