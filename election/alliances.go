// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/dhondt"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

const minAllianceParties = 2

// AllianceRegistry keeps an election's alliances disjoint and pools member
// votes for seat allocation.
type AllianceRegistry struct {
	elections store.ElectionRepository
	alliances store.AllianceRepository
	fx        sideEffects
	logger    *slog.Logger
}

// Validate lists every problem with draft. draft.ID is excluded from the
// disjointness check so an alliance can be saved over itself.
func (a *AllianceRegistry) Validate(ctx context.Context, electionID string, draft *models.Alliance) ([]errs.ValidationError, error) {
	e, err := a.elections.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	existing, err := a.alliances.ListAlliances(ctx, electionID)
	if err != nil {
		return nil, err
	}
	return validateAlliance(e, existing, draft), nil
}

func validateAlliance(e *models.Election, existing []*models.Alliance, draft *models.Alliance) []errs.ValidationError {
	var problems []errs.ValidationError

	name := strings.TrimSpace(draft.Name)
	if name == "" {
		problems = append(problems, errs.ValidationError{Field: "name", Message: "is required"})
	} else if declaredCandidate(e, name) {
		problems = append(problems, errs.ValidationError{Field: "name", Message: "must not match a candidate or party"})
	}

	if len(draft.Parties) < minAllianceParties {
		problems = append(problems, errs.ValidationError{
			Field:   "parties",
			Message: fmt.Sprintf("must have at least %d entries", minAllianceParties),
		})
	}

	owner := make(map[string]string)
	for _, other := range existing {
		if other.ID == draft.ID {
			continue
		}
		if strings.EqualFold(other.Name, name) && name != "" {
			problems = append(problems, errs.ValidationError{Field: "name", Message: "is already used by another alliance"})
		}
		for _, p := range other.Parties {
			owner[p] = other.Name
		}
	}

	seen := make(map[string]bool, len(draft.Parties))
	for i, p := range draft.Parties {
		field := fmt.Sprintf("parties[%d]", i)
		switch {
		case strings.TrimSpace(p) == "":
			problems = append(problems, errs.ValidationError{Field: field, Message: "is required"})
		case seen[p]:
			problems = append(problems, errs.ValidationError{Field: field, Message: "is listed twice"})
		case owner[p] != "":
			problems = append(problems, errs.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("party %s already belongs to alliance %s", p, owner[p]),
			})
		case !declaredCandidate(e, p):
			problems = append(problems, errs.ValidationError{Field: field, Message: "is not a party of this election"})
		}
		seen[p] = true
	}
	return problems
}

func declaredCandidate(e *models.Election, key string) bool {
	for _, c := range e.Contests {
		if c.HasCandidate(key) {
			return true
		}
	}
	return false
}

func (a *AllianceRegistry) Create(ctx context.Context, actor models.Actor, electionID string, req models.AllianceRequest) (*models.Alliance, error) {
	if err := requireAdmin(actor, "creating alliances"); err != nil {
		return nil, err
	}
	draft := &models.Alliance{
		ElectionID: electionID,
		Name:       strings.TrimSpace(req.Name),
		Parties:    req.Parties,
	}
	problems, err := a.Validate(ctx, electionID, draft)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, errs.ValidationErrors(problems)
	}

	if err := a.alliances.CreateAlliance(ctx, draft); err != nil {
		return nil, err
	}
	a.logger.Info("alliance created", "alliance_id", draft.ID, "election_id", electionID, "parties", len(draft.Parties))
	a.fx.record(ctx, actor, audit.ActionCreate, audit.EntityAlliance, draft.ID, nil, draft)
	return draft, nil
}

func (a *AllianceRegistry) Update(ctx context.Context, actor models.Actor, id string, req models.AllianceRequest) (*models.Alliance, error) {
	if err := requireAdmin(actor, "updating alliances"); err != nil {
		return nil, err
	}
	existing, err := a.alliances.GetAlliance(ctx, id)
	if err != nil {
		return nil, err
	}

	draft := *existing
	draft.Name = strings.TrimSpace(req.Name)
	draft.Parties = req.Parties
	problems, err := a.Validate(ctx, existing.ElectionID, &draft)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, errs.ValidationErrors(problems)
	}

	if err := a.alliances.UpdateAlliance(ctx, &draft); err != nil {
		return nil, err
	}
	a.logger.Info("alliance updated", "alliance_id", id)
	a.fx.record(ctx, actor, audit.ActionUpdate, audit.EntityAlliance, id, existing, &draft)
	return &draft, nil
}

func (a *AllianceRegistry) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireAdmin(actor, "deleting alliances"); err != nil {
		return err
	}
	existing, err := a.alliances.GetAlliance(ctx, id)
	if err != nil {
		return err
	}
	if err := a.alliances.DeleteAlliance(ctx, id); err != nil {
		return err
	}
	a.logger.Info("alliance deleted", "alliance_id", id)
	a.fx.record(ctx, actor, audit.ActionDelete, audit.EntityAlliance, id, existing, nil)
	return nil
}

func (a *AllianceRegistry) Get(ctx context.Context, id string) (*models.Alliance, error) {
	return a.alliances.GetAlliance(ctx, id)
}

func (a *AllianceRegistry) List(ctx context.Context, electionID string) ([]*models.Alliance, error) {
	if _, err := a.elections.GetElection(ctx, electionID); err != nil {
		return nil, err
	}
	return a.alliances.ListAlliances(ctx, electionID)
}

// ResolveBuckets pools each alliance's member totals under the alliance name.
func (a *AllianceRegistry) ResolveBuckets(ctx context.Context, electionID string, partyTotals []dhondt.List) ([]dhondt.List, error) {
	alliances, err := a.alliances.ListAlliances(ctx, electionID)
	if err != nil {
		return nil, err
	}
	return PoolAlliances(alliances, partyTotals), nil
}

// PoolAlliances merges member parties into one bucket per alliance, placed
// where its first member appears. Other parties pass through unchanged.
func PoolAlliances(alliances []*models.Alliance, partyTotals []dhondt.List) []dhondt.List {
	memberOf := make(map[string]string)
	for _, al := range alliances {
		for _, p := range al.Parties {
			memberOf[p] = al.Name
		}
	}

	out := make([]dhondt.List, 0, len(partyTotals))
	slot := make(map[string]int)
	for _, l := range partyTotals {
		name, ok := memberOf[l.Key]
		if !ok {
			out = append(out, l)
			continue
		}
		if i, placed := slot[name]; placed {
			out[i].Votes += l.Votes
			continue
		}
		slot[name] = len(out)
		out = append(out, dhondt.List{Key: name, Votes: l.Votes})
	}
	return out
}
