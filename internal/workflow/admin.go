package workflow

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"
	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
)

type adminService struct {
	states      workflow.StateRepository
	transitions workflow.TransitionRepository
	graph       *TransitionGraph
	logger      interfaces.Logger
	now         func() time.Time
	id          workflow.IDGenerator
}

var _ workflow.AdminService = (*adminService)(nil)

// AdminOption configures the admin service.
type AdminOption func(*adminService)

func WithAdminClock(now func() time.Time) AdminOption {
	return func(s *adminService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithAdminIDGenerator(gen workflow.IDGenerator) AdminOption {
	return func(s *adminService) {
		if gen != nil {
			s.id = gen
		}
	}
}

func WithAdminLogger(logger interfaces.Logger) AdminOption {
	return func(s *adminService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAdminService wires the workflow admin API. The graph is invalidated on
// every successful mutation so reconciliation sees fresh topology.
func NewAdminService(states workflow.StateRepository, transitions workflow.TransitionRepository, graph *TransitionGraph, opts ...AdminOption) workflow.AdminService {
	svc := &adminService{
		states:      states,
		transitions: transitions,
		graph:       graph,
		logger:      logging.NoOp(),
		now:         time.Now,
		id:          uuid.New,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *adminService) CreateState(ctx context.Context, req workflow.CreateStateRequest) (*workflow.ModerationState, error) {
	name := req.Name
	if name == "" {
		if derived, err := slug.Normalize(req.Label); err == nil {
			name = derived
		}
	}
	if err := validateStateInput(name, req.Label); err != nil {
		return nil, err
	}

	if existing, err := s.states.GetByName(ctx, name); err == nil && existing != nil {
		return nil, workflow.ErrStateExists
	} else if err != nil && !errors.Is(err, workflow.ErrStateNotFound) {
		return nil, err
	}

	nowTime := s.now()
	state := &workflow.ModerationState{
		ID:              s.id(),
		Name:            name,
		Label:           req.Label,
		Published:       req.Published,
		DefaultRevision: req.DefaultRevision,
		Weight:          req.Weight,
		CreatedAt:       nowTime,
		UpdatedAt:       nowTime,
	}

	created, err := s.states.Create(ctx, state)
	if err != nil {
		return nil, err
	}
	s.graph.Invalidate()
	s.logger.Info("moderation state created", "name", created.Name, "published", created.Published)
	return created, nil
}

func (s *adminService) UpdateState(ctx context.Context, name string, req workflow.UpdateStateRequest) (*workflow.ModerationState, error) {
	state, err := s.states.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		if *req.Label == "" {
			return nil, workflow.ErrStateLabelRequired
		}
		state.Label = *req.Label
	}
	if req.Published != nil {
		state.Published = *req.Published
	}
	if req.DefaultRevision != nil {
		state.DefaultRevision = *req.DefaultRevision
	}
	if req.Weight != nil {
		state.Weight = *req.Weight
	}
	state.UpdatedAt = s.now()

	updated, err := s.states.Update(ctx, state)
	if err != nil {
		return nil, err
	}
	s.graph.Invalidate()
	s.logger.Info("moderation state updated", "name", updated.Name)
	return updated, nil
}

// DeleteState refuses to remove a state that still participates in any
// transition. Stranded content pointing at a vanished state is worse than
// making the operator clean up edges first.
func (s *adminService) DeleteState(ctx context.Context, name string) error {
	state, err := s.states.GetByName(ctx, name)
	if err != nil {
		return err
	}

	transitions, err := s.transitions.List(ctx)
	if err != nil {
		return err
	}
	for _, transition := range transitions {
		if transition.FromState == name || transition.ToState == name {
			return workflow.ErrStateInUse
		}
	}

	if err := s.states.Delete(ctx, state.ID); err != nil {
		return err
	}
	s.graph.Invalidate()
	s.logger.Info("moderation state deleted", "name", name)
	return nil
}

func (s *adminService) GetState(ctx context.Context, name string) (*workflow.ModerationState, error) {
	return s.states.GetByName(ctx, name)
}

func (s *adminService) ListStates(ctx context.Context) ([]*workflow.ModerationState, error) {
	return s.states.List(ctx)
}

func (s *adminService) CreateTransition(ctx context.Context, req workflow.CreateTransitionRequest) (*workflow.StateTransition, error) {
	name := req.Name
	if name == "" {
		if derived, err := slug.Normalize(req.Label); err == nil {
			name = derived
		}
	}
	if err := validateTransitionInput(name, req.Label, req.FromState, req.ToState); err != nil {
		return nil, err
	}
	if req.FromState == req.ToState {
		return nil, workflow.ErrTransitionSelfLoop
	}

	if existing, err := s.transitions.GetByName(ctx, name); err == nil && existing != nil {
		return nil, workflow.ErrTransitionExists
	} else if err != nil && !errors.Is(err, workflow.ErrTransitionNotFound) {
		return nil, err
	}

	if _, err := s.states.GetByName(ctx, req.FromState); err != nil {
		return nil, workflow.ErrTransitionEndpoints
	}
	if _, err := s.states.GetByName(ctx, req.ToState); err != nil {
		return nil, workflow.ErrTransitionEndpoints
	}

	nowTime := s.now()
	transition := &workflow.StateTransition{
		ID:        s.id(),
		Name:      name,
		Label:     req.Label,
		FromState: req.FromState,
		ToState:   req.ToState,
		Weight:    req.Weight,
		CreatedAt: nowTime,
		UpdatedAt: nowTime,
	}

	created, err := s.transitions.Create(ctx, transition)
	if err != nil {
		return nil, err
	}
	s.graph.Invalidate()
	s.logger.Info("state transition created", "name", created.Name, "from", created.FromState, "to", created.ToState)
	return created, nil
}

func (s *adminService) UpdateTransition(ctx context.Context, name string, req workflow.UpdateTransitionRequest) (*workflow.StateTransition, error) {
	transition, err := s.transitions.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		transition.Label = *req.Label
	}
	if req.Weight != nil {
		transition.Weight = *req.Weight
	}
	transition.UpdatedAt = s.now()

	updated, err := s.transitions.Update(ctx, transition)
	if err != nil {
		return nil, err
	}
	s.graph.Invalidate()
	s.logger.Info("state transition updated", "name", updated.Name)
	return updated, nil
}

func (s *adminService) DeleteTransition(ctx context.Context, name string) error {
	transition, err := s.transitions.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if err := s.transitions.Delete(ctx, transition.ID); err != nil {
		return err
	}
	s.graph.Invalidate()
	s.logger.Info("state transition deleted", "name", name)
	return nil
}

func (s *adminService) ListTransitions(ctx context.Context) ([]*workflow.StateTransition, error) {
	return s.transitions.List(ctx)
}

func validateStateInput(name, label string) error {
	errs := validation.Errors{}
	if name == "" {
		errs["name"] = workflow.ErrStateNameRequired
	}
	if label == "" {
		errs["label"] = workflow.ErrStateLabelRequired
	}
	if len(errs) > 0 {
		return errs.Filter()
	}
	return nil
}

func validateTransitionInput(name, label, fromState, toState string) error {
	errs := validation.Errors{}
	if name == "" {
		errs["name"] = workflow.ErrTransitionNameRequired
	}
	if label == "" {
		errs["label"] = validation.NewError("workflow_transition_label", "transition label is required")
	}
	if fromState == "" || toState == "" {
		errs["states"] = workflow.ErrTransitionEndpoints
	}
	if len(errs) > 0 {
		return errs.Filter()
	}
	return nil
}
