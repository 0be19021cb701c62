// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/tally/election"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/models"
)

type ElectionHandler struct {
	svc *election.Services
}

func NewElectionHandler(svc *election.Services) *ElectionHandler {
	return &ElectionHandler{svc: svc}
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.CreateElectionRequest
	if !decode(w, r, &req) {
		return
	}

	e, err := h.svc.Elections.Create(r.Context(), actor, req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, e)
}

// ListElections handles GET /elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Elections.List(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// GetElection handles GET /elections/{id}
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Elections.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, e)
}

// SetStatus handles POST /elections/{id}/status
func (h *ElectionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.UpdateElectionStatusRequest
	if !decode(w, r, &req) {
		return
	}

	e, err := h.svc.Elections.SetStatus(r.Context(), actor, r.PathValue("id"), req.Status)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, e)
}

// DeleteElection handles DELETE /elections/{id}
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Elections.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateBallotBox handles POST /ballot-boxes
func (h *ElectionHandler) CreateBallotBox(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.CreateBallotBoxRequest
	if !decode(w, r, &req) {
		return
	}

	b, err := h.svc.Elections.CreateBallotBox(r.Context(), actor, req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, b)
}

// ListBallotBoxes handles GET /ballot-boxes
func (h *ElectionHandler) ListBallotBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := h.svc.Elections.ListBallotBoxes(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, boxes)
}

// GetBallotBox handles GET /ballot-boxes/{id}
func (h *ElectionHandler) GetBallotBox(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Elections.GetBallotBox(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, b)
}

// DeleteBallotBox handles DELETE /ballot-boxes/{id}
// Observers and results for the box go with it.
func (h *ElectionHandler) DeleteBallotBox(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Elections.DeleteBallotBox(r.Context(), actor, r.PathValue("id")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode parses the JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := middleware.ParseJSONBody(r, v); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
