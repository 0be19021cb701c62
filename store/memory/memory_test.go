// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
	"github.com/danielhkuo/tally/store/memory"
	"github.com/danielhkuo/tally/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memory.NewStore() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	e := storetest.SeedElection(t, s, "e-1")

	e.Contests[0].Candidates[0] = "mutated"
	got, err := s.GetElection(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Contests[0].Candidates[0])

	got.Contests[0].Candidates[1] = "mutated"
	again, err := s.GetElection(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, "B", again.Contests[0].Candidates[1])

	box := storetest.SeedBallotBox(t, s, "1")
	r := &models.ElectionResult{ElectionID: "e-1", BallotBoxID: box.ID, Votes: models.VoteMap{"parliament": {"A": 1}}, ApprovalStatus: models.ApprovalAutoApproved}
	require.NoError(t, s.CreateResult(ctx, r))
	r.Votes["parliament"]["A"] = 99
	stored, err := s.GetResult(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Votes["parliament"]["A"])
}
