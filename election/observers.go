// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/credentials"
	"github.com/danielhkuo/tally/metrics"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Registry assigns observers to ballot boxes. The store enforces one chief per
// box and unique national ids within a box; the registry turns a chief
// assignment into a credential provisioning call.
type Registry struct {
	boxes       store.BallotBoxRepository
	observers   store.ObserverRepository
	provisioner credentials.Provisioner
	fx          sideEffects
	logger      *slog.Logger
}

// Assign adds an observer to a ballot box.
func (r *Registry) Assign(ctx context.Context, actor models.Actor, ballotBoxID string, req models.ObserverRequest) (*models.Observer, error) {
	if err := requireAdmin(actor, "assigning observers"); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	box, err := r.boxes.GetBallotBox(ctx, ballotBoxID)
	if err != nil {
		return nil, err
	}

	o := &models.Observer{
		BallotBoxID:     box.ID,
		NationalID:      req.NationalID,
		Name:            req.Name,
		Phone:           req.Phone,
		IsChiefObserver: req.IsChiefObserver,
	}
	if err := r.observers.CreateObserver(ctx, o); err != nil {
		r.logger.Warn("observer assignment refused",
			"ballot_box_id", box.ID,
			"chief", o.IsChiefObserver,
			"error", err)
		return nil, err
	}

	r.logger.Info("observer assigned",
		"observer_id", o.ID,
		"ballot_box_id", box.ID,
		"chief", o.IsChiefObserver)
	if o.IsChiefObserver {
		r.provision(ctx, o, box)
	}
	r.fx.record(ctx, actor, audit.ActionCreate, audit.EntityObserver, o.ID, nil, o)
	return o, nil
}

// Reassign updates an observer, optionally moving them to another box when
// req.BallotBoxID is set. Conflict checks exclude the observer's own record.
func (r *Registry) Reassign(ctx context.Context, actor models.Actor, observerID string, req models.ObserverRequest) (*models.Observer, error) {
	if err := requireAdmin(actor, "reassigning observers"); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	existing, err := r.observers.GetObserver(ctx, observerID)
	if err != nil {
		return nil, err
	}
	oldBox, err := r.boxes.GetBallotBox(ctx, existing.BallotBoxID)
	if err != nil {
		return nil, err
	}
	newBox := oldBox
	if req.BallotBoxID != "" && req.BallotBoxID != existing.BallotBoxID {
		if newBox, err = r.boxes.GetBallotBox(ctx, req.BallotBoxID); err != nil {
			return nil, err
		}
	}

	updated := *existing
	updated.BallotBoxID = newBox.ID
	updated.NationalID = req.NationalID
	updated.Name = req.Name
	updated.Phone = req.Phone
	updated.IsChiefObserver = req.IsChiefObserver
	if err := r.observers.UpdateObserver(ctx, &updated); err != nil {
		r.logger.Warn("observer reassignment refused",
			"observer_id", observerID,
			"ballot_box_id", newBox.ID,
			"error", err)
		return nil, err
	}

	oldUsername := credentials.DeriveUsername(oldBox.BallotNumber, existing.NationalID)
	newUsername := credentials.DeriveUsername(newBox.BallotNumber, updated.NationalID)
	if updated.IsChiefObserver && (!existing.IsChiefObserver || oldUsername != newUsername) {
		r.provision(ctx, &updated, newBox)
	}

	r.logger.Info("observer reassigned",
		"observer_id", updated.ID,
		"ballot_box_id", updated.BallotBoxID,
		"chief", updated.IsChiefObserver)
	r.fx.record(ctx, actor, audit.ActionUpdate, audit.EntityObserver, updated.ID, existing, &updated)
	return &updated, nil
}

// Remove deletes an observer. Provisioned credentials are left in place.
func (r *Registry) Remove(ctx context.Context, actor models.Actor, observerID string) error {
	if err := requireAdmin(actor, "removing observers"); err != nil {
		return err
	}
	existing, err := r.observers.GetObserver(ctx, observerID)
	if err != nil {
		return err
	}
	if err := r.observers.DeleteObserver(ctx, observerID); err != nil {
		return err
	}
	r.logger.Info("observer removed", "observer_id", observerID, "ballot_box_id", existing.BallotBoxID)
	r.fx.record(ctx, actor, audit.ActionDelete, audit.EntityObserver, observerID, existing, nil)
	return nil
}

func (r *Registry) Get(ctx context.Context, observerID string) (*models.Observer, error) {
	return r.observers.GetObserver(ctx, observerID)
}

// List returns a box's observers in assignment order.
func (r *Registry) List(ctx context.Context, ballotBoxID string) ([]*models.Observer, error) {
	if _, err := r.boxes.GetBallotBox(ctx, ballotBoxID); err != nil {
		return nil, err
	}
	return r.observers.ListObservers(ctx, ballotBoxID)
}

func (r *Registry) provision(ctx context.Context, o *models.Observer, box *models.BallotBox) {
	username := credentials.DeriveUsername(box.BallotNumber, o.NationalID)
	err := r.provisioner.ProvisionOrUpdate(ctx, o.NationalID, username, credentials.DerivePassword(o.NationalID))
	if err != nil {
		metrics.RecordSideEffectFailure(metrics.SideEffectProvisioning)
		r.logger.Warn("credential provisioning failed",
			"observer_id", o.ID,
			"ballot_box_id", box.ID,
			"error", err)
		return
	}
	r.logger.Info("credentials provisioned", "observer_id", o.ID, "username", username)
}
