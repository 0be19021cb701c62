// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the tally API.

# Route Registration

NewRouter creates a configured http.ServeMux over the election services:

	mux := router.NewRouter(svc)

# Endpoints

Operational:

	GET /health  - Liveness check
	GET /metrics - Prometheus exposition

Elections and ballot boxes (writes are admin only):

	POST   /elections             - Create election
	GET    /elections/{id}        - Get election
	POST   /elections/{id}/status - Move draft -> active -> closed
	POST   /ballot-boxes          - Register ballot box

Observers (admin only):

	POST /ballot-boxes/{id}/observers - Assign observer
	PUT  /observers/{id}              - Reassign observer

Alliances (admin only):

	POST /elections/{id}/alliances - Create alliance
	PUT  /alliances/{id}           - Replace name and parties

Results:

	POST /elections/{id}/results - Submit protocol
	POST /results/{id}/approve   - Chief observer approval
	POST /results/{id}/reject    - Chief observer rejection

Tabulation:

	GET /elections/{id}/tally             - Certified vote totals
	GET /elections/{id}/seats/{category}  - D'Hondt seat projection

Every route except the operational ones goes through middleware.WithLogging.
*/
package router
