// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/tally/election"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/models"
)

type ResultsHandler struct {
	svc *election.Services
}

func NewResultsHandler(svc *election.Services) *ResultsHandler {
	return &ResultsHandler{svc: svc}
}

// CreateResult handles POST /elections/{id}/results
// AI-filled protocols start pending; manual entries are approved on creation.
func (h *ResultsHandler) CreateResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.ResultRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Workflow.Create(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, res)
}

// ListResults handles GET /elections/{id}/results?status=pending
func (h *ResultsHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	statuses := r.URL.Query()["status"]
	results, err := h.svc.Workflow.List(r.Context(), r.PathValue("id"), statuses...)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if results == nil {
		results = []*models.ElectionResult{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.ResultListResponse{
		Results: results,
		Count:   len(results),
	})
}

// GetResult handles GET /results/{id}
func (h *ResultsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Workflow.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}

// UpdateResult handles PUT /results/{id}
func (h *ResultsHandler) UpdateResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.ResultRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Workflow.Update(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}

// ApproveResult handles POST /results/{id}/approve
func (h *ResultsHandler) ApproveResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Workflow.Approve(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}

// RejectResult handles POST /results/{id}/reject
func (h *ResultsHandler) RejectResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.RejectResultRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Workflow.Reject(r.Context(), actor, r.PathValue("id"), req.Reason)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}

// DeleteResult handles DELETE /results/{id}
func (h *ResultsHandler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Workflow.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTally handles GET /elections/{id}/tally?category=parliament
// Only certified results are counted.
func (h *ResultsHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	categories := r.URL.Query()["category"]
	tally, err := h.svc.Aggregator.Aggregate(r.Context(), r.PathValue("id"), categories...)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, tally)
}

// GetSeats handles GET /elections/{id}/seats/{category}
func (h *ResultsHandler) GetSeats(w http.ResponseWriter, r *http.Request) {
	alloc, err := h.svc.Tabulator.Seats(r.Context(), r.PathValue("id"), r.PathValue("category"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, alloc)
}
