// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dhondt

import (
	"fmt"
	"sort"

	"github.com/danielhkuo/tally/errs"
)

// MaxSeats bounds a single allocation. The quotient pool grows with
// lists x seats, so larger counts are refused before anything is allocated.
const MaxSeats = 1000

var (
	ErrInvalidSeatCount = fmt.Errorf("%w: seat count must be between 1 and %d", errs.ErrValidation, MaxSeats)
	ErrInvalidVotes     = fmt.Errorf("%w: vote counts must not be negative", errs.ErrValidation)
)

// List is one competing list (party, alliance, candidate) and its vote total.
// The position of a List in the input slice is its enumeration order.
type List struct {
	Key   string `json:"key"`
	Votes int64  `json:"votes"`
}

// quotient is votes/divisor kept as a fraction so equal quotients compare equal.
type quotient struct {
	index   int
	votes   int64
	divisor int64
}

func (q quotient) greater(o quotient) bool {
	return q.votes*o.divisor > o.votes*q.divisor
}

// Allocate distributes totalSeats among lists with the D'Hondt divisor method.
//
// Every list with positive votes contributes the quotients votes/1 … votes/totalSeats
// to a single pool, which is stable-sorted in descending order; each list receives one
// seat per entry it holds among the first totalSeats. Ties between lists go to the list
// that appears first in the input, so certified results must pass lists in an agreed
// order (see SortByKey). Every input key is present in the returned map.
func Allocate(lists []List, totalSeats int) (map[string]int, error) {
	if totalSeats <= 0 || totalSeats > MaxSeats {
		return nil, ErrInvalidSeatCount
	}

	seats := make(map[string]int, len(lists))
	pool := make([]quotient, 0, len(lists)*totalSeats)
	for i, l := range lists {
		if l.Votes < 0 {
			return nil, fmt.Errorf("%w: list %q has %d", ErrInvalidVotes, l.Key, l.Votes)
		}
		if _, ok := seats[l.Key]; !ok {
			seats[l.Key] = 0
		}
		if l.Votes == 0 {
			continue
		}
		for d := 1; d <= totalSeats; d++ {
			pool = append(pool, quotient{index: i, votes: l.Votes, divisor: int64(d)})
		}
	}

	sort.SliceStable(pool, func(a, b int) bool {
		return pool[a].greater(pool[b])
	})

	n := min(totalSeats, len(pool))
	for _, q := range pool[:n] {
		seats[lists[q.index].Key]++
	}
	return seats, nil
}

// SortByKey returns a copy of lists ordered lexicographically by key.
func SortByKey(lists []List) []List {
	sorted := make([]List, len(lists))
	copy(sorted, lists)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}

// FilterThreshold keeps the lists whose share of validVotes reaches percent.
// A non-positive percent keeps every list. With validVotes == 0 nothing clears
// a positive threshold.
func FilterThreshold(lists []List, validVotes int64, percent float64) []List {
	if percent <= 0 {
		return lists
	}
	eligible := make([]List, 0, len(lists))
	for _, l := range lists {
		if Share(l.Votes, validVotes) >= percent {
			eligible = append(eligible, l)
		}
	}
	return eligible
}

// Share returns votes as a percentage of total, 0 when total is 0.
func Share(votes, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(votes) * 100 / float64(total)
}
