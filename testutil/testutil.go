// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/auth"
	"github.com/danielhkuo/tally/cliparse"
	"github.com/danielhkuo/tally/credentials"
	"github.com/danielhkuo/tally/db"
	"github.com/danielhkuo/tally/election"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
	"github.com/danielhkuo/tally/store/sqlstore"
)

// ElectionDate is the date of the election CreateTestElection seeds.
var ElectionDate = time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

var (
	Admin    = models.Actor{ID: "admin-1", Type: models.ActorAdmin}
	Chief    = models.Actor{ID: "chief-1", Type: models.ActorChiefObserver}
	Observer = models.Actor{ID: "observer-1", Type: models.ActorObserver}
)

// Clock is a settable store.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetupTestStore opens a fresh in-memory SQLite database with the full schema
func SetupTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	s := sqlstore.New(conn)
	t.Cleanup(func() { s.Close() })
	return s
}

// SetupTestServices wires the services over a SQLite store the way main does.
// The clock starts at noon on ElectionDate.
func SetupTestServices(t *testing.T) (*election.Services, *sqlstore.Store, *Clock) {
	t.Helper()

	s := SetupTestStore(t)
	clock := NewClock(ElectionDate.Add(12 * time.Hour))
	cfg := GetTestConfig()
	svc := election.New(election.Deps{
		Store:       s,
		Audit:       audit.NewStoreSink(s),
		Provisioner: credentials.NewAccountProvisioner(s, cfg.CredentialSalt).WithCost(bcrypt.MinCost),
		Clock:       clock,
		Location:    cfg.Location,
	})
	return svc, s, clock
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    ":memory:",
		DatabaseType:   db.DriverSQLite,
		CredentialSalt: "test-credential-salt",
		Timezone:       "UTC",
		Location:       time.UTC,
		KafkaTopic:     "tally.audit",
	}
}

// CreateTestElection stores an active election on ElectionDate with a
// four-seat proportional "parliament" contest (A-D) and a single-seat
// "president" contest (X, Y).
func CreateTestElection(t *testing.T, s store.ElectionRepository) *models.Election {
	t.Helper()

	e := &models.Election{
		Name:   "Test Election",
		Date:   ElectionDate,
		Type:   models.TypeGeneral,
		Status: models.StatusActive,
		Contests: []models.Contest{
			{Category: "parliament", Kind: models.KindProportional, Seats: 4, Candidates: []string{"A", "B", "C", "D"}},
			{Category: "president", Kind: models.KindSingleSeat, Candidates: []string{"X", "Y"}},
		},
		ThresholdPercent: models.DefaultThresholdPercent,
	}
	if err := s.CreateElection(context.Background(), e); err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}
	return e
}

// CreateTestBallotBox stores a ballot box and returns it
func CreateTestBallotBox(t *testing.T, s store.BallotBoxRepository, number string) *models.BallotBox {
	t.Helper()

	b := &models.BallotBox{BallotNumber: number, District: "Central", VoterCount: 400}
	if err := s.CreateBallotBox(context.Background(), b); err != nil {
		t.Fatalf("Failed to create test ballot box: %v", err)
	}
	return b
}

// ResultRequest builds a consistent protocol for the parliament contest.
func ResultRequest(boxID string, parliament map[string]int, filledByAI bool) models.ResultRequest {
	valid := 0
	for _, v := range parliament {
		valid += v
	}
	return models.ResultRequest{
		BallotBoxID:  boxID,
		TotalVoters:  valid + 100,
		UsedVotes:    valid + 10,
		InvalidVotes: 10,
		ValidVotes:   valid,
		Votes:        models.VoteMap{"parliament": parliament},
		FilledByAI:   filledByAI,
	}
}

// ActorHeaders returns the headers that identify actor
func ActorHeaders(actor models.Actor) map[string]string {
	return map[string]string{
		auth.HeaderActorID:   actor.ID,
		auth.HeaderActorType: actor.Type,
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
