package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/internal/revisions"
	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
)

// Reconciliation is what PreSave decided for one save: the state the entity
// is leaving, the state it lands in, and whether the new revision becomes
// the default one.
type Reconciliation struct {
	StateBefore   string
	State         *workflow.ModerationState
	UpdateDefault bool
}

// Reconciler aligns an entity's revision, default-revision, and publish
// fields with its target moderation state. PreSave mutates the entity before
// the host store persists it; PostSave records the bookkeeping that makes
// the new revision's state resolvable afterwards.
type Reconciler struct {
	info     *Information
	states   workflow.StateRepository
	links    moderation.StateLinkRepository
	tracker  revisions.Tracker
	handlers *HandlerRegistry
	store    interfaces.EntityStore
	logger   interfaces.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

func WithReconcilerLogger(logger interfaces.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewReconciler(
	info *Information,
	states workflow.StateRepository,
	links moderation.StateLinkRepository,
	tracker revisions.Tracker,
	handlers *HandlerRegistry,
	store interfaces.EntityStore,
	opts ...ReconcilerOption,
) *Reconciler {
	rec := &Reconciler{
		info:     info,
		states:   states,
		links:    links,
		tracker:  tracker,
		handlers: handlers,
		store:    store,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// PreSave resolves the target state, computes the default-revision decision,
// and lets the entity type's handler apply it. The entity leaves PreSave
// carrying the state name it will be recorded under.
func (r *Reconciler) PreSave(ctx context.Context, entity interfaces.RevisionableEntity) (*Reconciliation, error) {
	if entity == nil {
		return nil, moderation.ErrEntityRequired
	}

	target := entity.ModerationState()
	if target == "" {
		resolved, err := r.info.DefaultStateFor(ctx, entity.EntityTypeID(), entity.Bundle())
		if err != nil {
			return nil, err
		}
		target = resolved
	}

	state, err := r.states.GetByName(ctx, target)
	if err != nil {
		if errors.Is(err, workflow.ErrStateNotFound) {
			return nil, fmt.Errorf("%w: %q", moderation.ErrUnknownState, target)
		}
		return nil, err
	}

	stateBefore, err := r.stateBefore(ctx, entity)
	if err != nil {
		return nil, err
	}

	// The new revision becomes the default when the entity is brand new,
	// when it lands in a default-revision state, or when the current default
	// is itself unpublished and therefore safe to replace.
	updateDefault := entity.IsNew() || state.DefaultRevision
	if !updateDefault {
		published, err := r.defaultRevisionPublished(ctx, entity)
		if err != nil {
			return nil, err
		}
		updateDefault = !published
	}

	handler := r.handlers.HandlerFor(entity.EntityTypeID())
	handler.OnPreSave(entity, updateDefault, state.Published)
	entity.SetModerationState(state.Name)

	r.logger.Debug("moderation pre-save reconciled",
		"entity_type", entity.EntityTypeID(),
		"entity_id", entity.ID().String(),
		"state_before", stateBefore,
		"state_after", state.Name,
		"update_default", updateDefault,
	)

	return &Reconciliation{
		StateBefore:   stateBefore,
		State:         state,
		UpdateDefault: updateDefault,
	}, nil
}

// PostSave records the state link for the revision the save produced and
// advances the latest-revision tracker.
func (r *Reconciler) PostSave(ctx context.Context, entity interfaces.RevisionableEntity, state *workflow.ModerationState) error {
	if entity == nil {
		return moderation.ErrEntityRequired
	}

	link := &moderation.StateLink{
		EntityType: entity.EntityTypeID(),
		EntityID:   entity.ID(),
		RevisionID: entity.RevisionID(),
		Langcode:   entity.Langcode(),
		State:      state.Name,
		OwnerID:    entity.OwnerID(),
	}
	if _, err := r.links.RecordState(ctx, link); err != nil {
		return err
	}

	return r.tracker.SetLatestRevision(ctx, entity.EntityTypeID(), entity.ID(), entity.Langcode(), entity.RevisionID())
}

// stateBefore resolves the state of the newest revision prior to this save.
// The lookup goes through the tracker, not the default revision: a pending
// draft ahead of the published default is the revision being edited.
func (r *Reconciler) stateBefore(ctx context.Context, entity interfaces.RevisionableEntity) (string, error) {
	if entity.IsNew() {
		return "", nil
	}

	latest, err := r.info.LatestRevisionID(ctx, entity.EntityTypeID(), entity.ID(), entity.Langcode())
	if err != nil {
		if errors.Is(err, moderation.ErrNoTrackedRevision) {
			return "", nil
		}
		return "", err
	}

	state, err := r.links.ResolveStateFor(ctx, entity.EntityTypeID(), entity.ID(), latest, entity.Langcode())
	if err != nil {
		if errors.Is(err, moderation.ErrStateLinkNotFound) {
			return "", nil
		}
		return "", err
	}
	return state, nil
}

// defaultRevisionPublished reports whether the current default revision sits
// in a published state. Missing defaults or missing links count as not
// published, which biases toward promoting the new revision.
func (r *Reconciler) defaultRevisionPublished(ctx context.Context, entity interfaces.RevisionableEntity) (bool, error) {
	current, err := r.store.Load(ctx, entity.EntityTypeID(), entity.ID(), entity.Langcode())
	if err != nil {
		return false, nil
	}

	stateName, err := r.links.ResolveStateFor(ctx, entity.EntityTypeID(), entity.ID(), current.RevisionID(), entity.Langcode())
	if err != nil {
		if errors.Is(err, moderation.ErrStateLinkNotFound) {
			return false, nil
		}
		return false, err
	}

	state, err := r.states.GetByName(ctx, stateName)
	if err != nil {
		if errors.Is(err, workflow.ErrStateNotFound) {
			return false, nil
		}
		return false, err
	}
	return state.Published, nil
}
