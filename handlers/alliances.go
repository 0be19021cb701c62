// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/tally/election"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/models"
)

type AllianceHandler struct {
	svc *election.Services
}

func NewAllianceHandler(svc *election.Services) *AllianceHandler {
	return &AllianceHandler{svc: svc}
}

// Create handles POST /elections/{id}/alliances
func (h *AllianceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.AllianceRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.svc.Alliances.Create(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, a)
}

// List handles GET /elections/{id}/alliances
func (h *AllianceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Alliances.List(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// Get handles GET /alliances/{id}
func (h *AllianceHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Alliances.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// Update handles PUT /alliances/{id}
func (h *AllianceHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.AllianceRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.svc.Alliances.Update(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// Delete handles DELETE /alliances/{id}
func (h *AllianceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Alliances.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
