// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/tally/election"
	"github.com/danielhkuo/tally/handlers"
	"github.com/danielhkuo/tally/middleware"
)

func NewRouter(svc *election.Services) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(svc)
	observerHandler := handlers.NewObserverHandler(svc)
	allianceHandler := handlers.NewAllianceHandler(svc)
	resultsHandler := handlers.NewResultsHandler(svc)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Elections and ballot boxes (admin writes)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections", middleware.WithLogging(electionHandler.ListElections))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("DELETE /elections/{id}", middleware.WithLogging(electionHandler.DeleteElection))
	mux.HandleFunc("POST /elections/{id}/status", middleware.WithLogging(electionHandler.SetStatus))
	mux.HandleFunc("POST /ballot-boxes", middleware.WithLogging(electionHandler.CreateBallotBox))
	mux.HandleFunc("GET /ballot-boxes", middleware.WithLogging(electionHandler.ListBallotBoxes))
	mux.HandleFunc("GET /ballot-boxes/{id}", middleware.WithLogging(electionHandler.GetBallotBox))
	mux.HandleFunc("DELETE /ballot-boxes/{id}", middleware.WithLogging(electionHandler.DeleteBallotBox))

	// Observers
	mux.HandleFunc("POST /ballot-boxes/{id}/observers", middleware.WithLogging(observerHandler.Assign))
	mux.HandleFunc("GET /ballot-boxes/{id}/observers", middleware.WithLogging(observerHandler.List))
	mux.HandleFunc("GET /observers/{id}", middleware.WithLogging(observerHandler.Get))
	mux.HandleFunc("PUT /observers/{id}", middleware.WithLogging(observerHandler.Reassign))
	mux.HandleFunc("DELETE /observers/{id}", middleware.WithLogging(observerHandler.Remove))

	// Alliances
	mux.HandleFunc("POST /elections/{id}/alliances", middleware.WithLogging(allianceHandler.Create))
	mux.HandleFunc("GET /elections/{id}/alliances", middleware.WithLogging(allianceHandler.List))
	mux.HandleFunc("GET /alliances/{id}", middleware.WithLogging(allianceHandler.Get))
	mux.HandleFunc("PUT /alliances/{id}", middleware.WithLogging(allianceHandler.Update))
	mux.HandleFunc("DELETE /alliances/{id}", middleware.WithLogging(allianceHandler.Delete))

	// Results and approval workflow
	mux.HandleFunc("POST /elections/{id}/results", middleware.WithLogging(resultsHandler.CreateResult))
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.ListResults))
	mux.HandleFunc("GET /results/{id}", middleware.WithLogging(resultsHandler.GetResult))
	mux.HandleFunc("PUT /results/{id}", middleware.WithLogging(resultsHandler.UpdateResult))
	mux.HandleFunc("DELETE /results/{id}", middleware.WithLogging(resultsHandler.DeleteResult))
	mux.HandleFunc("POST /results/{id}/approve", middleware.WithLogging(resultsHandler.ApproveResult))
	mux.HandleFunc("POST /results/{id}/reject", middleware.WithLogging(resultsHandler.RejectResult))

	// Tabulation (certified results only)
	mux.HandleFunc("GET /elections/{id}/tally", middleware.WithLogging(resultsHandler.GetTally))
	mux.HandleFunc("GET /elections/{id}/seats/{category}", middleware.WithLogging(resultsHandler.GetSeats))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tally API v1"))
	})

	return mux
}
