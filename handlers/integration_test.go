// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/credentials"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/testutil"
)

// TestFullTabulationWorkflow walks an election from setup to seat projection:
// 1. Create and activate an election
// 2. Create ballot boxes and assign a chief observer
// 3. Submit one manual and one AI-filled protocol
// 4. Check the tally ignores the pending protocol
// 5. Approve it, then project seats
func TestFullTabulationWorkflow(t *testing.T) {
	svc, s, _ := testutil.SetupTestServices(t)
	ctx := context.Background()

	electionHandler := NewElectionHandler(svc)
	observerHandler := NewObserverHandler(svc)
	resultsHandler := NewResultsHandler(svc)
	admin := testutil.ActorHeaders(testutil.Admin)

	// Step 1: Create and activate an election
	createReq := models.CreateElectionRequest{
		Name: "General 2026",
		Date: "2026-05-10",
		Type: models.TypeGeneral,
		Contests: []models.Contest{
			{Category: "parliament", Kind: models.KindProportional, Seats: 4, Candidates: []string{"A", "B", "C"}},
		},
	}
	w := httptest.NewRecorder()
	electionHandler.CreateElection(w, testutil.MakeRequest("POST", "/elections", createReq, admin))
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 1 - Create election failed: %d - %s", w.Code, w.Body.String())
	}
	var e models.Election
	testutil.AssertJSON(t, w, &e)
	if e.Status != models.StatusDraft || e.ThresholdPercent != models.DefaultThresholdPercent {
		t.Fatalf("Step 1 - Unexpected election %+v", e)
	}

	req := testutil.MakeRequest("POST", "/elections/"+e.ID+"/status", models.UpdateElectionStatusRequest{Status: models.StatusActive}, admin)
	req.SetPathValue("id", e.ID)
	w = httptest.NewRecorder()
	electionHandler.SetStatus(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	// Step 2: Ballot boxes and a chief observer
	boxIDs := make([]string, 0, 2)
	for _, number := range []string{"1001", "1002"} {
		w = httptest.NewRecorder()
		electionHandler.CreateBallotBox(w, testutil.MakeRequest("POST", "/ballot-boxes",
			models.CreateBallotBoxRequest{BallotNumber: number, District: "Central"}, admin))
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 2 - Create box %s failed: %d - %s", number, w.Code, w.Body.String())
		}
		var b models.BallotBox
		testutil.AssertJSON(t, w, &b)
		boxIDs = append(boxIDs, b.ID)
	}

	req = testutil.MakeRequest("POST", "/ballot-boxes/"+boxIDs[0]+"/observers",
		models.ObserverRequest{NationalID: "12345678901", Name: "Ayşe Demir", IsChiefObserver: true}, admin)
	req.SetPathValue("id", boxIDs[0])
	w = httptest.NewRecorder()
	observerHandler.Assign(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	acc, err := s.GetAccount(ctx, "12345678901")
	if err != nil {
		t.Fatalf("Step 2 - Chief observer account missing: %v", err)
	}
	if acc.Username != "1001" {
		t.Errorf("Step 2 - Expected username 1001, got %s", acc.Username)
	}
	prov := credentials.NewAccountProvisioner(s, testutil.GetTestConfig().CredentialSalt).WithCost(bcrypt.MinCost)
	if err := prov.Verify(ctx, "12345678901", "1001", "12345678901"); err != nil {
		t.Errorf("Step 2 - Provisioned password does not verify: %v", err)
	}

	// Step 3: Submit protocols
	submit := func(boxID string, votes map[string]int, ai bool) models.ElectionResult {
		t.Helper()
		req := testutil.MakeRequest("POST", "/elections/"+e.ID+"/results",
			testutil.ResultRequest(boxID, votes, ai), testutil.ActorHeaders(testutil.Observer))
		req.SetPathValue("id", e.ID)
		w := httptest.NewRecorder()
		resultsHandler.CreateResult(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 3 - Submit for %s failed: %d - %s", boxID, w.Code, w.Body.String())
		}
		var res models.ElectionResult
		testutil.AssertJSON(t, w, &res)
		return res
	}
	manual := submit(boxIDs[0], map[string]int{"A": 300, "B": 200, "C": 100}, false)
	pending := submit(boxIDs[1], map[string]int{"A": 180, "B": 120, "C": 100}, true)
	if manual.ApprovalStatus != models.ApprovalApproved || pending.ApprovalStatus != models.ApprovalPending {
		t.Fatalf("Step 3 - Unexpected statuses %s / %s", manual.ApprovalStatus, pending.ApprovalStatus)
	}

	// Step 4: Only the certified protocol counts
	tally := getTally(t, resultsHandler, e.ID)
	if tally.TotalBallotBoxes != 1 || tally.ValidVotes != 600 {
		t.Errorf("Step 4 - Expected 1 box / 600 votes, got %d / %d", tally.TotalBallotBoxes, tally.ValidVotes)
	}

	// Step 5: Approve and project seats
	req = testutil.MakeRequest("POST", "/results/"+pending.ID+"/approve", nil, testutil.ActorHeaders(testutil.Chief))
	req.SetPathValue("id", pending.ID)
	w = httptest.NewRecorder()
	resultsHandler.ApproveResult(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	tally = getTally(t, resultsHandler, e.ID)
	if tally.TotalBallotBoxes != 2 || tally.ValidVotes != 1000 {
		t.Errorf("Step 5 - Expected 2 boxes / 1000 votes, got %d / %d", tally.TotalBallotBoxes, tally.ValidVotes)
	}

	req = testutil.MakeRequest("GET", "/elections/"+e.ID+"/seats/parliament", nil, nil)
	req.SetPathValue("id", e.ID)
	req.SetPathValue("category", "parliament")
	w = httptest.NewRecorder()
	resultsHandler.GetSeats(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var alloc models.SeatAllocation
	testutil.AssertJSON(t, w, &alloc)
	got := map[string]int{}
	for _, l := range alloc.Lines {
		got[l.Key] = l.Seats
	}
	want := map[string]int{"A": 2, "B": 1, "C": 1}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Step 5 - Expected %s to win %d seats, got %d", k, v, got[k])
		}
	}

	// The approval is on the audit trail.
	trail, err := s.ListAudit(ctx, audit.EntityResult, pending.ID)
	if err != nil {
		t.Fatalf("Failed to list audit trail: %v", err)
	}
	if len(trail) != 2 || trail[1].Action != audit.ActionApprove || trail[1].ActorID != testutil.Chief.ID {
		t.Errorf("Unexpected audit trail %+v", trail)
	}
}

func getTally(t *testing.T, h *ResultsHandler, electionID string) models.Tally {
	t.Helper()
	req := testutil.MakeRequest("GET", "/elections/"+electionID+"/tally?category=parliament", nil, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	h.GetTally(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Tally failed: %d - %s", w.Code, w.Body.String())
	}
	var tally models.Tally
	testutil.AssertJSON(t, w, &tally)
	return tally
}
