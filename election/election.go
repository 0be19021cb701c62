// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/tally/audit"
	"github.com/danielhkuo/tally/credentials"
	"github.com/danielhkuo/tally/errs"
	"github.com/danielhkuo/tally/metrics"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Deps wires the services to their collaborators. Only Store is required.
type Deps struct {
	Store       store.Store
	Audit       audit.Sink
	Provisioner credentials.Provisioner
	Clock       store.Clock
	Location    *time.Location
	Logger      *slog.Logger
}

// Services bundles every use case the HTTP layer calls.
type Services struct {
	Elections  *Elections
	Observers  *Registry
	Workflow   *Workflow
	Alliances  *AllianceRegistry
	Aggregator *Aggregator
	Tabulator  *Tabulator
}

// New builds the services over one store.
func New(d Deps) *Services {
	d = d.withDefaults()
	fx := sideEffects{audit: d.Audit, clock: d.Clock, logger: d.Logger}

	aggregator := &Aggregator{elections: d.Store, results: d.Store, clock: d.Clock, logger: d.Logger}
	alliances := &AllianceRegistry{elections: d.Store, alliances: d.Store, fx: fx, logger: d.Logger}

	return &Services{
		Elections: &Elections{repo: d.Store, fx: fx, logger: d.Logger},
		Observers: &Registry{
			boxes:       d.Store,
			observers:   d.Store,
			provisioner: d.Provisioner,
			fx:          fx,
			logger:      d.Logger,
		},
		Workflow: &Workflow{
			elections: d.Store,
			boxes:     d.Store,
			results:   d.Store,
			clock:     d.Clock,
			loc:       d.Location,
			fx:        fx,
			logger:    d.Logger,
		},
		Alliances:  alliances,
		Aggregator: aggregator,
		Tabulator: &Tabulator{
			elections:  d.Store,
			aggregator: aggregator,
			alliances:  alliances,
			clock:      d.Clock,
			logger:     d.Logger,
		},
	}
}

func (d Deps) withDefaults() Deps {
	if d.Audit == nil {
		d.Audit = audit.Discard{}
	}
	if d.Provisioner == nil {
		d.Provisioner = noProvisioner{}
	}
	if d.Clock == nil {
		d.Clock = store.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	d.Logger = ResolveLogger(d.Logger)
	return d
}

// ResolveLogger returns logger, or slog.Default() when nil.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

type noProvisioner struct{}

func (noProvisioner) ProvisionOrUpdate(context.Context, string, string, string) error { return nil }

// sideEffects runs best-effort work that must never undo a committed change.
type sideEffects struct {
	audit  audit.Sink
	clock  store.Clock
	logger *slog.Logger
}

func (fx sideEffects) record(ctx context.Context, actor models.Actor, action, entityType, entityID string, oldValue, newValue any) {
	rec := audit.New(fx.clock.Now(), actor, action, entityType, entityID, oldValue, newValue)
	if err := fx.audit.Record(ctx, rec); err != nil {
		metrics.RecordSideEffectFailure(metrics.SideEffectAudit)
		fx.logger.Warn("audit record failed",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err)
	}
}

func requireAdmin(actor models.Actor, action string) error {
	if !actor.IsAdmin() {
		return errs.Forbidden(action + " requires an admin")
	}
	return nil
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrValidation):
		return "validation"
	case errors.Is(err, errs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrWindow):
		return "window"
	case errors.Is(err, errs.ErrState):
		return "state"
	default:
		return "error"
	}
}
