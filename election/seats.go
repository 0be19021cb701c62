// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/tally/dhondt"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/metrics"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Tabulator projects seats for proportional contests.
type Tabulator struct {
	elections  store.ElectionRepository
	aggregator *Aggregator
	alliances  *AllianceRegistry
	clock      store.Clock
	logger     *slog.Logger
}

// Seats runs aggregate, alliance pooling, threshold and D'Hondt for one
// category. Lists are allocated in key order so ties resolve the same way on
// every run.
func (t *Tabulator) Seats(ctx context.Context, electionID, category string) (alloc *models.SeatAllocation, err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = outcome(err)
		}
		metrics.SeatComputations.WithLabelValues(status).Inc()
	}()

	e, err := t.elections.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	contest, ok := e.Contest(category)
	if !ok {
		return nil, errs.NotFound("contest", category)
	}
	if contest.Kind != models.KindProportional {
		return nil, errs.Invalid("category", "is not a proportional contest")
	}

	tally, err := t.aggregator.Aggregate(ctx, electionID, category)
	if err != nil {
		return nil, err
	}
	ct, _ := tally.Category(category)

	lists := make([]dhondt.List, 0, len(ct.Buckets))
	for _, b := range ct.Buckets {
		lists = append(lists, dhondt.List{Key: b.Key, Votes: b.Votes})
	}
	if contest.UseAlliances {
		if lists, err = t.alliances.ResolveBuckets(ctx, electionID, lists); err != nil {
			return nil, err
		}
	}
	lists = dhondt.SortByKey(lists)

	threshold := 0.0
	eligible := lists
	if contest.ApplyThreshold {
		threshold = e.ThresholdPercent
		eligible = dhondt.FilterThreshold(lists, tally.ValidVotes, threshold)
	}

	seats, err := dhondt.Allocate(eligible, contest.Seats)
	if err != nil {
		return nil, err
	}

	alloc = &models.SeatAllocation{
		ElectionID:       electionID,
		Category:         category,
		TotalSeats:       contest.Seats,
		ThresholdPercent: threshold,
		ValidVotes:       tally.ValidVotes,
		Lines:            make([]models.SeatLine, 0, len(lists)),
		ComputedAt:       t.clock.Now().UTC(),
	}
	for _, l := range lists {
		n, isEligible := seats[l.Key]
		alloc.Lines = append(alloc.Lines, models.SeatLine{
			Key:      l.Key,
			Votes:    l.Votes,
			Share:    dhondt.Share(l.Votes, tally.ValidVotes),
			Eligible: isEligible,
			Seats:    n,
		})
	}

	t.logger.Info("seats allocated",
		"election_id", electionID,
		"category", category,
		"seats", contest.Seats,
		"lists", len(lists),
		"eligible", len(eligible))
	return alloc, nil
}
