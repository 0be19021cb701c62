// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/tally/election"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/models"
)

type ObserverHandler struct {
	svc *election.Services
}

func NewObserverHandler(svc *election.Services) *ObserverHandler {
	return &ObserverHandler{svc: svc}
}

// Assign handles POST /ballot-boxes/{id}/observers
func (h *ObserverHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.ObserverRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := h.svc.Observers.Assign(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, o)
}

// List handles GET /ballot-boxes/{id}/observers
func (h *ObserverHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Observers.List(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// Get handles GET /observers/{id}
func (h *ObserverHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Observers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, o)
}

// Reassign handles PUT /observers/{id}
func (h *ObserverHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var req models.ObserverRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := h.svc.Observers.Reassign(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, o)
}

// Remove handles DELETE /observers/{id}
func (h *ObserverHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Observers.Remove(r.Context(), actor, r.PathValue("id")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
