// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Store keeps every entity in process memory. All reads and writes copy, so
// callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	elections map[string]*models.Election
	boxes     map[string]*models.BallotBox
	observers map[string]*models.Observer
	alliances map[string]*models.Alliance
	results   map[string]*models.ElectionResult
	audit     []*models.AuditRecord
	accounts  map[string]*models.ObserverAccount
}

func NewStore() *Store {
	return &Store{
		elections: make(map[string]*models.Election),
		boxes:     make(map[string]*models.BallotBox),
		observers: make(map[string]*models.Observer),
		alliances: make(map[string]*models.Alliance),
		results:   make(map[string]*models.ElectionResult),
		accounts:  make(map[string]*models.ObserverAccount),
	}
}

func (s *Store) Close() error { return nil }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func now() time.Time { return time.Now().UTC() }

// Elections

func (s *Store) CreateElection(_ context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = newID(e.ID)
	if _, exists := s.elections[e.ID]; exists {
		return errs.Invalid("id", "already exists")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	e.UpdatedAt = e.CreatedAt
	s.elections[e.ID] = cloneElection(e)
	return nil
}

func (s *Store) GetElection(_ context.Context, id string) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.elections[id]
	if !ok {
		return nil, errs.NotFound("election", id)
	}
	return cloneElection(e), nil
}

func (s *Store) UpdateElection(_ context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[e.ID]; !ok {
		return errs.NotFound("election", e.ID)
	}
	e.UpdatedAt = now()
	s.elections[e.ID] = cloneElection(e)
	return nil
}

func (s *Store) ListElections(_ context.Context) ([]*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Election, 0, len(s.elections))
	for _, e := range s.elections {
		out = append(out, cloneElection(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) DeleteElection(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[id]; !ok {
		return errs.NotFound("election", id)
	}
	delete(s.elections, id)
	for aid, a := range s.alliances {
		if a.ElectionID == id {
			delete(s.alliances, aid)
		}
	}
	return nil
}

// Ballot boxes

func (s *Store) CreateBallotBox(_ context.Context, b *models.BallotBox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.boxes {
		if existing.BallotNumber == b.BallotNumber {
			return errs.Invalid("ballot_number", "already exists")
		}
	}
	b.ID = newID(b.ID)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now()
	}
	c := *b
	s.boxes[b.ID] = &c
	return nil
}

func (s *Store) GetBallotBox(_ context.Context, id string) (*models.BallotBox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boxes[id]
	if !ok {
		return nil, errs.NotFound("ballot box", id)
	}
	c := *b
	return &c, nil
}

func (s *Store) ListBallotBoxes(_ context.Context) ([]*models.BallotBox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.BallotBox, 0, len(s.boxes))
	for _, b := range s.boxes {
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BallotNumber < out[j].BallotNumber })
	return out, nil
}

func (s *Store) DeleteBallotBox(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boxes[id]; !ok {
		return errs.NotFound("ballot box", id)
	}
	delete(s.boxes, id)
	for oid, o := range s.observers {
		if o.BallotBoxID == id {
			delete(s.observers, oid)
		}
	}
	for rid, r := range s.results {
		if r.BallotBoxID == id {
			delete(s.results, rid)
		}
	}
	return nil
}

// Observers

// checkObserverLocked enforces the per-box identity and single-chief rules.
func (s *Store) checkObserverLocked(o *models.Observer) error {
	for _, existing := range s.observers {
		if existing.ID == o.ID || existing.BallotBoxID != o.BallotBoxID {
			continue
		}
		if existing.NationalID == o.NationalID {
			return errs.ErrDuplicateIdentity
		}
		if o.IsChiefObserver && existing.IsChiefObserver {
			return errs.ErrChiefObserverConflict
		}
	}
	return nil
}

func (s *Store) CreateObserver(_ context.Context, o *models.Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = newID(o.ID)
	if err := s.checkObserverLocked(o); err != nil {
		return err
	}
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	c := *o
	s.observers[o.ID] = &c
	return nil
}

func (s *Store) GetObserver(_ context.Context, id string) (*models.Observer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.observers[id]
	if !ok {
		return nil, errs.NotFound("observer", id)
	}
	c := *o
	return &c, nil
}

func (s *Store) UpdateObserver(_ context.Context, o *models.Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.observers[o.ID]
	if !ok {
		return errs.NotFound("observer", o.ID)
	}
	if err := s.checkObserverLocked(o); err != nil {
		return err
	}
	o.CreatedAt = existing.CreatedAt
	o.UpdatedAt = now()
	c := *o
	s.observers[o.ID] = &c
	return nil
}

func (s *Store) DeleteObserver(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.observers[id]; !ok {
		return errs.NotFound("observer", id)
	}
	delete(s.observers, id)
	return nil
}

func (s *Store) ListObservers(_ context.Context, ballotBoxID string) ([]*models.Observer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Observer
	for _, o := range s.observers {
		if o.BallotBoxID == ballotBoxID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Alliances

func (s *Store) CreateAlliance(_ context.Context, a *models.Alliance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = newID(a.ID)
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	s.alliances[a.ID] = cloneAlliance(a)
	return nil
}

func (s *Store) GetAlliance(_ context.Context, id string) (*models.Alliance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alliances[id]
	if !ok {
		return nil, errs.NotFound("alliance", id)
	}
	return cloneAlliance(a), nil
}

func (s *Store) UpdateAlliance(_ context.Context, a *models.Alliance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.alliances[a.ID]
	if !ok {
		return errs.NotFound("alliance", a.ID)
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = now()
	s.alliances[a.ID] = cloneAlliance(a)
	return nil
}

func (s *Store) DeleteAlliance(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alliances[id]; !ok {
		return errs.NotFound("alliance", id)
	}
	delete(s.alliances, id)
	return nil
}

func (s *Store) ListAlliances(_ context.Context, electionID string) ([]*models.Alliance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Alliance
	for _, a := range s.alliances {
		if a.ElectionID == electionID {
			out = append(out, cloneAlliance(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Results

func (s *Store) CreateResult(_ context.Context, r *models.ElectionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.results {
		if existing.ElectionID == r.ElectionID && existing.BallotBoxID == r.BallotBoxID {
			return errs.ErrDuplicateResult
		}
	}
	r.ID = newID(r.ID)
	s.results[r.ID] = cloneResult(r)
	return nil
}

func (s *Store) GetResult(_ context.Context, id string) (*models.ElectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return nil, errs.NotFound("result", id)
	}
	return cloneResult(r), nil
}

func (s *Store) GetResultByBallotBox(_ context.Context, electionID, ballotBoxID string) (*models.ElectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.results {
		if r.ElectionID == electionID && r.BallotBoxID == ballotBoxID {
			return cloneResult(r), nil
		}
	}
	return nil, errs.NotFound("result for ballot box", ballotBoxID)
}

func (s *Store) UpdateResult(_ context.Context, r *models.ElectionResult, expectedStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.results[r.ID]
	if !ok {
		return errs.NotFound("result", r.ID)
	}
	if existing.ApprovalStatus != expectedStatus {
		return store.ErrStale
	}
	s.results[r.ID] = cloneResult(r)
	return nil
}

func (s *Store) DeleteResult(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[id]; !ok {
		return errs.NotFound("result", id)
	}
	delete(s.results, id)
	return nil
}

func (s *Store) ListResults(_ context.Context, electionID string, statuses ...string) ([]*models.ElectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ElectionResult
	for _, r := range s.results {
		if r.ElectionID != electionID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, r.ApprovalStatus) {
			continue
		}
		out = append(out, cloneResult(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BallotBoxID < out[j].BallotBoxID })
	return out, nil
}

func (s *Store) CountResults(_ context.Context, electionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.results {
		if r.ElectionID == electionID {
			n++
		}
	}
	return n, nil
}

// Audit

func (s *Store) AppendAudit(_ context.Context, rec *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = newID(rec.ID)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}
	c := *rec
	s.audit = append(s.audit, &c)
	return nil
}

func (s *Store) ListAudit(_ context.Context, entityType, entityID string) ([]*models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AuditRecord
	for _, rec := range s.audit {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			c := *rec
			out = append(out, &c)
		}
	}
	return out, nil
}

// Accounts

func (s *Store) UpsertAccount(_ context.Context, acc *models.ObserverAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc.UpdatedAt = now()
	c := *acc
	s.accounts[acc.NationalID] = &c
	return nil
}

func (s *Store) GetAccount(_ context.Context, nationalID string) (*models.ObserverAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[nationalID]
	if !ok {
		return nil, errs.NotFound("account", nationalID)
	}
	c := *acc
	return &c, nil
}

func cloneElection(e *models.Election) *models.Election {
	c := *e
	c.Contests = make([]models.Contest, len(e.Contests))
	for i, contest := range e.Contests {
		contest.Candidates = slices.Clone(contest.Candidates)
		c.Contests[i] = contest
	}
	return &c
}

func cloneAlliance(a *models.Alliance) *models.Alliance {
	c := *a
	c.Parties = slices.Clone(a.Parties)
	return &c
}

func cloneResult(r *models.ElectionResult) *models.ElectionResult {
	c := *r
	c.ProtocolPhotos = slices.Clone(r.ProtocolPhotos)
	if r.Votes != nil {
		c.Votes = make(models.VoteMap, len(r.Votes))
		for category, counts := range r.Votes {
			m := make(map[string]int, len(counts))
			for k, v := range counts {
				m[k] = v
			}
			c.Votes[category] = m
		}
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

var _ store.Store = (*Store)(nil)
