// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dhondt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/errs"
)

func TestAllocateWorkedExample(t *testing.T) {
	// A: 480 240 160 120 / B: 320 160 106.67 80 / C: 200 100 66.67 50
	// top 4 = 480(A) 320(B) 240(A) 200(C)
	seats, err := Allocate([]List{{"A", 480}, {"B", 320}, {"C", 200}}, 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2, "B": 1, "C": 1}, seats)
}

func TestAllocateInvalidSeatCount(t *testing.T) {
	for _, n := range []int{0, -1, -50} {
		seats, err := Allocate([]List{{"A", 10}}, n)
		assert.ErrorIs(t, err, ErrInvalidSeatCount)
		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Nil(t, seats)
	}
}

func TestAllocateRefusesOversizedPool(t *testing.T) {
	for _, n := range []int{MaxSeats + 1, 1 << 40} {
		seats, err := Allocate([]List{{"A", 10}, {"B", 5}}, n)
		assert.ErrorIs(t, err, ErrInvalidSeatCount)
		assert.Nil(t, seats)
	}

	seats, err := Allocate([]List{{"A", 10}, {"B", 5}}, MaxSeats)
	require.NoError(t, err)
	assert.Equal(t, MaxSeats, seats["A"]+seats["B"])
}

func TestAllocateNegativeVotes(t *testing.T) {
	_, err := Allocate([]List{{"A", 10}, {"B", -1}}, 3)
	assert.ErrorIs(t, err, ErrInvalidVotes)
}

func TestAllocateZeroVoteListsNeverWin(t *testing.T) {
	seats, err := Allocate([]List{{"A", 0}, {"B", 5}, {"C", 0}}, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 0, "B": 3, "C": 0}, seats)
}

func TestAllocateNoVotesAtAll(t *testing.T) {
	seats, err := Allocate([]List{{"A", 0}, {"B", 0}}, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 0, "B": 0}, seats)
}

func TestAllocateMoreSeatsThanLists(t *testing.T) {
	seats, err := Allocate([]List{{"A", 100}, {"B", 50}}, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, seats["A"]+seats["B"])
	assert.Equal(t, 6, seats["A"])
	assert.Equal(t, 3, seats["B"])
}

func TestAllocateTieGoesToFirstEnumerated(t *testing.T) {
	// A/2 = 160 ties with B/1 = 160 for the second seat.
	seats, err := Allocate([]List{{"A", 320}, {"B", 160}}, 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2, "B": 0}, seats)

	seats, err = Allocate([]List{{"B", 160}, {"A", 320}}, 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, seats)
}

func TestAllocateExactRationalTie(t *testing.T) {
	// 300/3 == 200/2 == 100 exactly; floating point must not split the tie.
	seats, err := Allocate([]List{{"X", 200}, {"Y", 300}}, 4)
	require.NoError(t, err)
	// pool: Y300 X200 Y150 X100 Y100 ...; fourth seat tie X100 vs Y100 -> X listed first.
	assert.Equal(t, map[string]int{"X": 2, "Y": 2}, seats)
}

func TestAllocateSeatSumAndIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		lists := randomLists(rng)
		n := rng.Intn(30) + 1

		first, err := Allocate(lists, n)
		require.NoError(t, err)
		second, err := Allocate(lists, n)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		total := 0
		for _, s := range first {
			total += s
		}
		assert.Equal(t, n, total, "lists=%v seats=%d", lists, n)
	}
}

func TestAllocateMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		lists := randomLists(rng)
		n := rng.Intn(20) + 1
		target := rng.Intn(len(lists))

		before, err := Allocate(lists, n)
		require.NoError(t, err)

		bumped := make([]List, len(lists))
		copy(bumped, lists)
		bumped[target].Votes += int64(rng.Intn(5000) + 1)

		after, err := Allocate(bumped, n)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, after[lists[target].Key], before[lists[target].Key])
	}
}

func TestSortByKey(t *testing.T) {
	in := []List{{"C", 1}, {"A", 2}, {"B", 3}}
	out := SortByKey(in)
	assert.Equal(t, []List{{"A", 2}, {"B", 3}, {"C", 1}}, out)
	assert.Equal(t, "C", in[0].Key, "input must not be reordered")
}

func TestFilterThreshold(t *testing.T) {
	lists := []List{{"A", 700}, {"B", 69}, {"C", 70}, {"D", 161}}
	eligible := FilterThreshold(lists, 1000, 7.0)
	assert.Equal(t, []List{{"A", 700}, {"C", 70}, {"D", 161}}, eligible)

	assert.Equal(t, lists, FilterThreshold(lists, 1000, 0))
	assert.Empty(t, FilterThreshold(lists, 0, 7.0))
}

func randomLists(rng *rand.Rand) []List {
	keys := []string{"A", "B", "C", "D", "E", "F"}
	count := rng.Intn(len(keys)) + 1
	lists := make([]List, count)
	lists[0] = List{Key: keys[0], Votes: int64(rng.Intn(100000) + 1)}
	for i := 1; i < count; i++ {
		lists[i] = List{Key: keys[i], Votes: int64(rng.Intn(100000))}
	}
	return lists
}
