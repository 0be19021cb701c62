// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/danielhkuo/tally/dhondt"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/metrics"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Aggregator sums certified results into election totals.
type Aggregator struct {
	elections store.ElectionRepository
	results   store.ResultRepository
	clock     store.Clock
	logger    *slog.Logger
}

// Aggregate tallies the election's certified results. With no categories every
// contest is tallied; an unknown category is a validation error.
func (a *Aggregator) Aggregate(ctx context.Context, electionID string, categories ...string) (*models.Tally, error) {
	start := time.Now()
	defer func() { metrics.AggregationDuration.Observe(time.Since(start).Seconds()) }()

	e, err := a.elections.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	contests, err := selectContests(e, categories)
	if err != nil {
		return nil, err
	}

	results, err := a.results.ListResults(ctx, electionID, models.CertifiedStatuses...)
	if err != nil {
		return nil, err
	}

	t := Tally(e, contests, results)
	t.ComputedAt = a.clock.Now().UTC()
	a.logger.Debug("election aggregated",
		"election_id", electionID,
		"ballot_boxes", t.TotalBallotBoxes,
		"categories", len(t.Categories))
	return t, nil
}

func selectContests(e *models.Election, categories []string) ([]models.Contest, error) {
	if len(categories) == 0 {
		return e.Contests, nil
	}
	var problems errs.ValidationErrors
	out := make([]models.Contest, 0, len(categories))
	for _, category := range categories {
		c, ok := e.Contest(category)
		if !ok {
			problems = append(problems, errs.ValidationError{Field: "category", Message: category + " is not a contest of this election"})
			continue
		}
		if !slices.ContainsFunc(out, func(x models.Contest) bool { return x.Category == category }) {
			out = append(out, c)
		}
	}
	if err := problems.Or(); err != nil {
		return nil, err
	}
	return out, nil
}

// Tally sums results for contests. Uncertified rows are skipped so callers may
// pass an unfiltered list. Buckets follow the contest's declared candidate
// order; keys outside it are appended in first-seen order.
func Tally(e *models.Election, contests []models.Contest, results []*models.ElectionResult) *models.Tally {
	t := &models.Tally{ElectionID: e.ID}

	certified := make([]*models.ElectionResult, 0, len(results))
	for _, r := range results {
		if !models.IsCertified(r.ApprovalStatus) {
			continue
		}
		certified = append(certified, r)
		t.TotalVotes += int64(r.UsedVotes)
		t.ValidVotes += int64(r.ValidVotes)
		t.InvalidVotes += int64(r.InvalidVotes)
	}
	t.TotalBallotBoxes = len(certified)

	for _, contest := range contests {
		order := slices.Clone(contest.Candidates)
		totals := make(map[string]int64, len(order))
		for _, key := range order {
			totals[key] = 0
		}
		for _, r := range certified {
			counts := r.Votes[contest.Category]
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				if _, known := totals[k]; !known {
					order = append(order, k)
				}
				totals[k] += int64(counts[k])
			}
		}

		ct := models.CategoryTally{
			Category: contest.Category,
			Kind:     contest.Kind,
			Buckets:  make([]models.BucketTotal, 0, len(order)),
		}
		for _, key := range order {
			ct.Buckets = append(ct.Buckets, models.BucketTotal{
				Key:   key,
				Votes: totals[key],
				Share: dhondt.Share(totals[key], t.ValidVotes),
			})
		}
		if contest.Kind == models.KindSingleSeat {
			ct.Winner = winner(ct.Buckets)
		}
		t.Categories = append(t.Categories, ct)
	}
	return t
}

// winner returns the bucket with the most votes, the earliest on ties, or nil
// when nobody received a vote.
func winner(buckets []models.BucketTotal) *models.BucketTotal {
	var best *models.BucketTotal
	for i := range buckets {
		if buckets[i].Votes == 0 {
			continue
		}
		if best == nil || buckets[i].Votes > best.Votes {
			b := buckets[i]
			best = &b
		}
	}
	return best
}
