// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the tally API.

# Handler Types

Each handler is a thin struct over the election services:

  - ElectionHandler: elections and ballot boxes
  - ObserverHandler: observer assignment per ballot box
  - AllianceHandler: alliances within an election
  - ResultsHandler: protocol submission, approval, tally and seats

	resultsHandler := handlers.NewResultsHandler(svc)

# Actors

Every state-changing request needs X-Actor-ID and X-Actor-Type
(admin, chief_observer or observer). Reads are open.

# Result Lifecycle

	POST /elections/{id}/results   → CreateResult (AI-filled: pending, manual: approved)
	POST /results/{id}/approve     → ApproveResult (chief observer)
	POST /results/{id}/reject      → RejectResult (chief observer, reason required)

Only approved results count toward GET /elections/{id}/tally and
GET /elections/{id}/seats/{category}.
*/
package handlers
