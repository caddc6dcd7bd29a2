package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
)

type service struct {
	info         *Information
	reconciler   *Reconciler
	validator    *TransitionValidator
	graph        workflow.Graph
	links        moderation.StateLinkRepository
	store        interfaces.EntityStore
	destinations *DestinationResolver
	subscribers  []moderation.Subscriber
	logger       interfaces.Logger
}

var _ moderation.Service = (*service)(nil)

// ServiceOption configures the moderation service.
type ServiceOption func(*service)

func WithServiceLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithDestinationResolver(resolver *DestinationResolver) ServiceOption {
	return func(s *service) {
		s.destinations = resolver
	}
}

func WithSubscribers(subscribers ...moderation.Subscriber) ServiceOption {
	return func(s *service) {
		for _, sub := range subscribers {
			if sub != nil {
				s.subscribers = append(s.subscribers, sub)
			}
		}
	}
}

func NewService(
	info *Information,
	reconciler *Reconciler,
	validator *TransitionValidator,
	graph workflow.Graph,
	links moderation.StateLinkRepository,
	store interfaces.EntityStore,
	opts ...ServiceOption,
) moderation.Service {
	svc := &service{
		info:       info,
		reconciler: reconciler,
		validator:  validator,
		graph:      graph,
		links:      links,
		store:      store,
		logger:     logging.NoOp(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Save is the moderated save path. Unmoderated entities pass straight
// through to the host store; moderated ones get transition validation,
// revision reconciliation, and state bookkeeping around the persist call.
func (s *service) Save(ctx context.Context, req moderation.SaveRequest) (*moderation.SaveResult, error) {
	entity := req.Entity
	if entity == nil {
		return nil, moderation.ErrEntityRequired
	}

	if !s.info.IsModeratedEntity(ctx, entity) {
		outcome, err := s.store.Save(ctx, entity)
		if err != nil {
			return nil, err
		}
		return &moderation.SaveResult{Outcome: outcome}, nil
	}

	wasNew := entity.IsNew()
	rec, err := s.reconciler.PreSave(ctx, entity)
	if err != nil {
		return nil, err
	}

	violation, err := s.validator.Validate(ctx, rec.StateBefore, rec.State.Name, wasNew)
	if err != nil {
		return nil, err
	}
	if violation != nil {
		return nil, &moderation.TransitionViolationError{Violation: violation}
	}

	if req.Actor != uuid.Nil && !wasNew && rec.StateBefore != "" && rec.StateBefore != rec.State.Name {
		allowed, err := s.graph.IsAllowedForActor(ctx, rec.StateBefore, rec.State.Name, req.Actor)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s -> %s", moderation.ErrTransitionForbidden, rec.StateBefore, rec.State.Name)
		}
	}

	s.dispatch(ctx, moderation.TransitionEvent{
		Entity:      entity,
		StateBefore: rec.StateBefore,
		StateAfter:  rec.State.Name,
	})

	outcome, err := s.store.Save(ctx, entity)
	if err != nil {
		return nil, err
	}

	if err := s.reconciler.PostSave(ctx, entity, rec.State); err != nil {
		return nil, err
	}

	destination := ""
	if s.destinations != nil {
		destination, err = s.destinations.DestinationFor(entity, rec.State)
		if err != nil {
			// The save already happened; a broken redirect route is not worth
			// failing it for.
			s.logger.Warn("destination resolution failed",
				"entity_type", entity.EntityTypeID(),
				"entity_id", entity.ID().String(),
				"error", err,
			)
			destination = ""
		}
	}

	s.logger.Info("moderated save completed",
		"entity_type", entity.EntityTypeID(),
		"entity_id", entity.ID().String(),
		"revision_id", entity.RevisionID(),
		"state_before", rec.StateBefore,
		"state_after", rec.State.Name,
		"outcome", string(outcome),
	)

	return &moderation.SaveResult{
		Outcome:     outcome,
		StateBefore: rec.StateBefore,
		StateAfter:  rec.State.Name,
		Destination: destination,
	}, nil
}

func (s *service) ValidTargets(ctx context.Context, entity interfaces.RevisionableEntity, actor uuid.UUID) ([]*workflow.ModerationState, error) {
	if entity == nil {
		return nil, moderation.ErrEntityRequired
	}

	current, err := s.currentState(ctx, entity)
	if err != nil {
		return nil, err
	}

	cfg, err := s.info.BundleConfig(ctx, entity.EntityTypeID(), entity.Bundle())
	if err != nil {
		return nil, err
	}
	var allowed []string
	if cfg != nil {
		allowed = cfg.AllowedStates
	}

	var actorRef *uuid.UUID
	if actor != uuid.Nil {
		actorRef = &actor
	}
	return s.graph.ValidTargets(ctx, current, allowed, actorRef)
}

func (s *service) IsModerated(ctx context.Context, entity interfaces.RevisionableEntity) bool {
	return s.info.IsModeratedEntity(ctx, entity)
}

func (s *service) IsLatestRevision(ctx context.Context, entity interfaces.RevisionableEntity) (bool, error) {
	return s.info.IsLatestRevision(ctx, entity)
}

func (s *service) LatestRevision(ctx context.Context, entityType string, id uuid.UUID, langcode string) (interfaces.RevisionableEntity, error) {
	return s.info.LatestRevision(ctx, entityType, id, langcode)
}

func (s *service) HasForwardRevision(ctx context.Context, entity interfaces.RevisionableEntity) (bool, error) {
	return s.info.HasForwardRevision(ctx, entity)
}

func (s *service) ResolveState(ctx context.Context, entityType string, id uuid.UUID, revisionID int64, langcode string) (string, error) {
	return s.links.ResolveStateFor(ctx, entityType, id, revisionID, langcode)
}

// currentState resolves the state the entity sits in right now: the state of
// its newest recorded revision, then the state carried on the entity, then
// the bundle default.
func (s *service) currentState(ctx context.Context, entity interfaces.RevisionableEntity) (string, error) {
	if !entity.IsNew() {
		latest, err := s.info.LatestRevisionID(ctx, entity.EntityTypeID(), entity.ID(), entity.Langcode())
		if err == nil {
			state, err := s.links.ResolveStateFor(ctx, entity.EntityTypeID(), entity.ID(), latest, entity.Langcode())
			if err == nil {
				return state, nil
			}
			if !errors.Is(err, moderation.ErrStateLinkNotFound) {
				return "", err
			}
		} else if !errors.Is(err, moderation.ErrNoTrackedRevision) {
			return "", err
		}
	}

	if state := entity.ModerationState(); state != "" {
		return state, nil
	}
	return s.info.DefaultStateFor(ctx, entity.EntityTypeID(), entity.Bundle())
}

// dispatch notifies subscribers synchronously. Subscriber panics are
// contained so an observer can never abort a save.
func (s *service) dispatch(ctx context.Context, event moderation.TransitionEvent) {
	for _, sub := range s.subscribers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Error("transition subscriber panicked", "panic", rec)
				}
			}()
			sub.OnTransition(ctx, event)
		}()
	}
}
