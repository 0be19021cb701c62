// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/models"
)

func TestWorkflow_AIFilledNeedsApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.submit(t, "1001", map[string]int{"A": 120, "B": 80}, true)
	assert.Equal(t, models.ApprovalPending, r.ApprovalStatus)
	assert.Nil(t, r.ApprovedAt)
	assert.Equal(t, observer.ID, r.CreatedBy)

	approved, err := f.svc.Workflow.Approve(ctx, chief, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, approved.ApprovalStatus)
	assert.Equal(t, chief.ID, approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	_, err = f.svc.Workflow.Approve(ctx, chief, r.ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyApproved)
	assert.ErrorIs(t, err, errs.ErrConflict)

	assert.Equal(t, []string{audit.ActionCreate, audit.ActionApprove}, f.sink.Actions(r.ID))
}

func TestWorkflow_AuditUsesServiceClock(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, "1001", map[string]int{"A": 1}, true)

	later := electionDate.Add(20*time.Hour + 15*time.Minute)
	f.clock.Set(later)
	approved, err := f.svc.Workflow.Approve(context.Background(), chief, r.ID)
	require.NoError(t, err)

	recs := f.sink.Records(r.ID)
	require.Len(t, recs, 2)
	assert.Equal(t, r.CreatedAt, recs[0].CreatedAt)
	assert.Equal(t, later, recs[1].CreatedAt)
	assert.Equal(t, *approved.ApprovedAt, recs[1].CreatedAt)
}

func TestWorkflow_RejectedIsTerminalUntilDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, "1001", map[string]int{"A": 10}, true)

	_, err := f.svc.Workflow.Reject(ctx, chief, r.ID, "photo unreadable")
	require.NoError(t, err)

	_, err = f.svc.Workflow.Create(ctx, observer, f.e.ID, resultRequest(r.BallotBoxID, map[string]int{"A": 12}, true))
	assert.ErrorIs(t, err, errs.ErrDuplicateResult)

	updated, err := f.svc.Workflow.Update(ctx, observer, r.ID, resultRequest(r.BallotBoxID, map[string]int{"A": 12}, true))
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, updated.ApprovalStatus)

	_, err = f.svc.Workflow.Approve(ctx, chief, r.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	require.NoError(t, f.svc.Workflow.Delete(ctx, admin, r.ID))
	again, err := f.svc.Workflow.Create(ctx, observer, f.e.ID, resultRequest(r.BallotBoxID, map[string]int{"A": 12}, true))
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, again.ApprovalStatus)
}

func TestWorkflow_ApprovalChecksActorTypeOnly(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, "1001", map[string]int{"A": 10}, true)

	// Box binding belongs to the role resolver; any chief observer identity passes.
	otherChief := models.Actor{ID: "chief-of-1002", Type: models.ActorChiefObserver}
	approved, err := f.svc.Workflow.Approve(context.Background(), otherChief, r.ID)
	require.NoError(t, err)
	assert.Equal(t, otherChief.ID, approved.ApprovedBy)
}

func TestWorkflow_ManualEntryIsApproved(t *testing.T) {
	f := newFixture(t)

	r := f.submit(t, "1001", map[string]int{"A": 120}, false)
	assert.Equal(t, models.ApprovalApproved, r.ApprovalStatus)
	assert.Equal(t, observer.ID, r.ApprovedBy)
	assert.True(t, models.IsCertified(r.ApprovalStatus))
}

func TestWorkflow_OnlyChiefObserverTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, "1001", map[string]int{"A": 1}, true)

	for _, actor := range []models.Actor{admin, observer} {
		_, err := f.svc.Workflow.Approve(ctx, actor, r.ID)
		assert.ErrorIs(t, err, errs.ErrForbidden, actor.Type)
		_, err = f.svc.Workflow.Reject(ctx, actor, r.ID, "blurry photo")
		assert.ErrorIs(t, err, errs.ErrForbidden, actor.Type)
	}

	stored, err := f.svc.Workflow.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, stored.ApprovalStatus)
}

func TestWorkflow_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, "1001", map[string]int{"A": 1}, true)

	_, err := f.svc.Workflow.Reject(ctx, chief, r.ID, "  ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	rejected, err := f.svc.Workflow.Reject(ctx, chief, r.ID, "counts do not match photo")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, rejected.ApprovalStatus)
	assert.Equal(t, "counts do not match photo", rejected.RejectionReason)

	_, err = f.svc.Workflow.Approve(ctx, chief, r.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	_, err = f.svc.Workflow.Reject(ctx, chief, r.ID, "again")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestWorkflow_RejectApprovedFails(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, "1001", map[string]int{"A": 1}, false)

	_, err := f.svc.Workflow.Reject(context.Background(), chief, r.ID, "changed my mind")
	assert.ErrorIs(t, err, errs.ErrAlreadyApproved)
}

func TestWorkflow_DuplicateResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, "1001", map[string]int{"A": 1}, false)

	_, err := f.svc.Workflow.Create(ctx, observer, f.e.ID, resultRequest(r.BallotBoxID, map[string]int{"B": 2}, false))
	assert.ErrorIs(t, err, errs.ErrDuplicateResult)
}

func TestWorkflow_ConcurrentCreateOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	const workers = 10
	var wg sync.WaitGroup
	var created, duplicates atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Workflow.Create(ctx, observer, f.e.ID, resultRequest(b.ID, map[string]int{"A": 5}, false))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, errs.ErrDuplicateResult):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(workers-1), duplicates.Load())
}

func TestWorkflow_ConcurrentApproveOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, "1001", map[string]int{"A": 1}, true)

	const workers = 10
	var wg sync.WaitGroup
	var approved, already atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Workflow.Approve(ctx, chief, r.ID)
			switch {
			case err == nil:
				approved.Add(1)
			case errors.Is(err, errs.ErrAlreadyApproved):
				already.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), approved.Load())
	assert.Equal(t, int32(workers-1), already.Load())
	assert.Equal(t, []string{audit.ActionCreate, audit.ActionApprove}, f.sink.Actions(r.ID))
}

func TestWorkflow_ClosedElection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	_, err := f.svc.Elections.SetStatus(ctx, admin, f.e.ID, models.StatusClosed)
	require.NoError(t, err)

	_, err = f.svc.Workflow.Create(ctx, observer, f.e.ID, resultRequest(b.ID, map[string]int{"A": 1}, false))
	assert.ErrorIs(t, err, errs.ErrElectionClosed)
	assert.ErrorIs(t, err, errs.ErrState)

	r, err := f.svc.Workflow.Create(ctx, admin, f.e.ID, resultRequest(b.ID, map[string]int{"A": 1}, false))
	require.NoError(t, err)

	_, err = f.svc.Workflow.Update(ctx, chief, r.ID, resultRequest(b.ID, map[string]int{"A": 2}, false))
	assert.ErrorIs(t, err, errs.ErrElectionClosed)
	_, err = f.svc.Workflow.Update(ctx, admin, r.ID, resultRequest(b.ID, map[string]int{"A": 2}, false))
	assert.NoError(t, err)
}

func TestWorkflow_CreateWindow(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{"two days before", electionDate.AddDate(0, 0, -2).Add(23 * time.Hour), true},
		{"day before", electionDate.AddDate(0, 0, -1), false},
		{"election day", electionDate.Add(8 * time.Hour), false},
		{"weeks after", electionDate.AddDate(0, 0, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, actor := range []models.Actor{observer, chief, admin} {
				f := newFixture(t)
				f.clock.Set(tt.now)
				b := f.box(t, "1001")

				_, err := f.svc.Workflow.Create(context.Background(), actor, f.e.ID, resultRequest(b.ID, map[string]int{"A": 1}, false))
				if tt.wantErr {
					assert.ErrorIs(t, err, errs.ErrOutsideWindow, actor.Type)
					assert.ErrorIs(t, err, errs.ErrWindow, actor.Type)
				} else {
					assert.NoError(t, err, actor.Type)
				}
			}
		})
	}
}

func TestWorkflow_UpdateWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, "1001", map[string]int{"A": 1}, true)

	f.clock.Set(electionDate.AddDate(0, 0, 7).Add(20 * time.Hour))
	updated, err := f.svc.Workflow.Update(ctx, observer, r.ID, resultRequest(r.BallotBoxID, map[string]int{"A": 2}, true))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Votes["parliament"]["A"])
	assert.Equal(t, models.ApprovalPending, updated.ApprovalStatus, "update leaves the status alone")
	assert.Equal(t, observer.ID, updated.UpdatedBy)

	f.clock.Set(electionDate.AddDate(0, 0, 8))
	_, err = f.svc.Workflow.Update(ctx, observer, r.ID, resultRequest(r.BallotBoxID, map[string]int{"A": 3}, true))
	assert.ErrorIs(t, err, errs.ErrOutsideWindow)

	_, err = f.svc.Workflow.Update(ctx, admin, r.ID, resultRequest(r.BallotBoxID, map[string]int{"A": 3}, true))
	assert.NoError(t, err)
}

func TestWorkflow_WindowUsesElectionTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	f := newFixtureIn(t, loc)
	b := f.box(t, "1001")

	// 22:00 UTC two days before is already the day before in UTC+3.
	f.clock.Set(electionDate.AddDate(0, 0, -2).Add(22 * time.Hour))
	_, err := f.svc.Workflow.Create(context.Background(), observer, f.e.ID, resultRequest(b.ID, map[string]int{"A": 1}, false))
	assert.NoError(t, err)
}

func TestWorkflow_ValidatesVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	tests := []struct {
		name  string
		req   models.ResultRequest
		field string
	}{
		{"unknown candidate", resultRequest(b.ID, map[string]int{"Z": 5}, false), "votes.parliament.Z"},
		{"negative count", resultRequest(b.ID, map[string]int{"A": -1}, false), "votes.parliament.A"},
		{"unknown category", models.ResultRequest{BallotBoxID: b.ID, Votes: models.VoteMap{"senate": {"A": 1}}}, "votes.senate"},
		{"no votes", models.ResultRequest{BallotBoxID: b.ID}, "votes"},
		{"objection without reason", func() models.ResultRequest {
			r := resultRequest(b.ID, map[string]int{"A": 1}, false)
			r.HasObjection = true
			return r
		}(), "objection_reason"},
		{"counts exceed used", func() models.ResultRequest {
			r := resultRequest(b.ID, map[string]int{"A": 100}, false)
			r.UsedVotes = 50
			return r
		}(), "used_votes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Workflow.Create(ctx, observer, f.e.ID, tt.req)
			require.ErrorIs(t, err, errs.ErrValidation)

			var verrs errs.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			fields := make([]string, 0, len(verrs))
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	_, err := f.svc.Workflow.Create(ctx, observer, f.e.ID, models.ResultRequest{})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.svc.Workflow.Create(ctx, observer, "missing", resultRequest(b.ID, map[string]int{"A": 1}, false))
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = f.svc.Workflow.Create(ctx, observer, f.e.ID, resultRequest("no-such-box", map[string]int{"A": 1}, false))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestWorkflow_UpdateCannotMoveBox(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, "1001", map[string]int{"A": 1}, false)
	other := f.box(t, "1002")

	_, err := f.svc.Workflow.Update(context.Background(), observer, r.ID, resultRequest(other.ID, map[string]int{"A": 1}, false))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestWorkflow_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, "1001", map[string]int{"A": 1}, false)

	assert.ErrorIs(t, f.svc.Workflow.Delete(ctx, chief, r.ID), errs.ErrForbidden)

	// Admin deletes are allowed long after the edit window.
	f.clock.Set(electionDate.AddDate(1, 0, 0))
	require.NoError(t, f.svc.Workflow.Delete(ctx, admin, r.ID))
	_, err := f.svc.Workflow.Get(ctx, r.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, f.svc.Workflow.Delete(ctx, admin, r.ID), errs.ErrNotFound)

	assert.Equal(t, []string{audit.ActionCreate, audit.ActionDelete}, f.sink.Actions(r.ID))
}

func TestWorkflow_AuditFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("audit store unavailable")
	ctx := context.Background()

	r := f.submit(t, "1001", map[string]int{"A": 1}, true)
	_, err := f.svc.Workflow.Approve(ctx, chief, r.ID)
	require.NoError(t, err)

	stored, err := f.svc.Workflow.GetByBallotBox(ctx, f.e.ID, r.BallotBoxID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, stored.ApprovalStatus)
}

func TestWorkflow_ListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t, "1001", map[string]int{"A": 1}, false)
	pending := f.submit(t, "1002", map[string]int{"A": 1}, true)

	all, err := f.svc.Workflow.List(ctx, f.e.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPending, err := f.svc.Workflow.List(ctx, f.e.ID, models.ApprovalPending)
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, pending.ID, onlyPending[0].ID)

	_, err = f.svc.Workflow.List(ctx, f.e.ID, "bogus")
	assert.ErrorIs(t, err, errs.ErrValidation)
}
