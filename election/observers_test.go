// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/models"
)

func TestRegistry_AssignChiefProvisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	o, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{
		NationalID:      "12345678901",
		Name:            "Ayşe Demir",
		IsChiefObserver: true,
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, o.BallotBoxID)
	assert.True(t, o.IsChiefObserver)

	assert.Equal(t, []provisionCall{{"12345678901", "1001", "12345678901"}}, f.prov.Calls())
	assert.Equal(t, []string{audit.ActionCreate}, f.sink.Actions(o.ID))
}

func TestRegistry_PlainObserverNotProvisioned(t *testing.T) {
	f := newFixture(t)
	b := f.box(t, "1001")

	_, err := f.svc.Observers.Assign(context.Background(), admin, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali"})
	require.NoError(t, err)
	assert.Empty(t, f.prov.Calls())
}

func TestRegistry_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")
	other := f.box(t, "1002")

	_, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali", IsChiefObserver: true})
	require.NoError(t, err)

	_, err = f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "2", Name: "Veli", IsChiefObserver: true})
	assert.ErrorIs(t, err, errs.ErrChiefObserverConflict)

	_, err = f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali again"})
	assert.ErrorIs(t, err, errs.ErrDuplicateIdentity)

	// Identity uniqueness is per box.
	_, err = f.svc.Observers.Assign(ctx, admin, other.ID, models.ObserverRequest{NationalID: "1", Name: "Ali"})
	assert.NoError(t, err)

	assert.Len(t, f.prov.Calls(), 1)
}

func TestRegistry_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	for _, actor := range []models.Actor{chief, observer} {
		_, err := f.svc.Observers.Assign(ctx, actor, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali"})
		assert.ErrorIs(t, err, errs.ErrForbidden)
	}
}

func TestRegistry_AssignValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Observers.Assign(ctx, admin, "missing", models.ObserverRequest{NationalID: "1", Name: "Ali"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	b := f.box(t, "1001")
	_, err = f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{Name: "Ali"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestRegistry_Reassign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")
	other := f.box(t, "1002")

	o, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali"})
	require.NoError(t, err)

	// Promotion provisions.
	o, err = f.svc.Observers.Reassign(ctx, admin, o.ID, models.ObserverRequest{NationalID: "1", Name: "Ali", IsChiefObserver: true})
	require.NoError(t, err)
	assert.True(t, o.IsChiefObserver)
	require.Len(t, f.prov.Calls(), 1)

	// A name change keeps the same login.
	_, err = f.svc.Observers.Reassign(ctx, admin, o.ID, models.ObserverRequest{NationalID: "1", Name: "Ali Kaya", IsChiefObserver: true})
	require.NoError(t, err)
	assert.Len(t, f.prov.Calls(), 1)

	// Moving boxes changes the username.
	moved, err := f.svc.Observers.Reassign(ctx, admin, o.ID, models.ObserverRequest{
		BallotBoxID:     other.ID,
		NationalID:      "1",
		Name:            "Ali Kaya",
		IsChiefObserver: true,
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, moved.BallotBoxID)
	calls := f.prov.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "1002", calls[1].Username)

	left, err := f.svc.Observers.List(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.Equal(t, []string{audit.ActionCreate, audit.ActionUpdate, audit.ActionUpdate, audit.ActionUpdate}, f.sink.Actions(o.ID))
}

func TestRegistry_ReassignExcludesSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	o, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali", IsChiefObserver: true})
	require.NoError(t, err)
	_, err = f.svc.Observers.Reassign(ctx, admin, o.ID, models.ObserverRequest{NationalID: "1", Name: "Ali", Phone: "555", IsChiefObserver: true})
	assert.NoError(t, err)

	second, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "2", Name: "Veli"})
	require.NoError(t, err)
	_, err = f.svc.Observers.Reassign(ctx, admin, second.ID, models.ObserverRequest{NationalID: "2", Name: "Veli", IsChiefObserver: true})
	assert.ErrorIs(t, err, errs.ErrChiefObserverConflict)
}

func TestRegistry_ProvisioningFailureTolerated(t *testing.T) {
	f := newFixture(t)
	f.prov.err = errors.New("directory offline")
	ctx := context.Background()
	b := f.box(t, "1001")

	o, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali", IsChiefObserver: true})
	require.NoError(t, err)

	stored, err := f.svc.Observers.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsChiefObserver)
}

func TestRegistry_Remove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	o, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "1", Name: "Ali", IsChiefObserver: true})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Observers.Remove(ctx, chief, o.ID), errs.ErrForbidden)
	require.NoError(t, f.svc.Observers.Remove(ctx, admin, o.ID))
	assert.ErrorIs(t, f.svc.Observers.Remove(ctx, admin, o.ID), errs.ErrNotFound)

	// The chief slot is free again.
	_, err = f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{NationalID: "2", Name: "Veli", IsChiefObserver: true})
	assert.NoError(t, err)
}

func TestRegistry_ConcurrentChiefAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.box(t, "1001")

	const workers = 8
	var wg sync.WaitGroup
	var assigned, conflicts atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Observers.Assign(ctx, admin, b.ID, models.ObserverRequest{
				NationalID:      string(rune('a' + i)),
				Name:            "Observer",
				IsChiefObserver: true,
			})
			switch {
			case err == nil:
				assigned.Add(1)
			case errors.Is(err, errs.ErrChiefObserverConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), assigned.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
	assert.Len(t, f.prov.Calls(), 1)
}
