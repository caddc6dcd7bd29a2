package workflow

import (
	"context"

	"github.com/google/uuid"
)

// AdminService manages the moderation state and transition configuration.
// It is the write-side counterpart of Graph; mutations invalidate the graph
// cache so subsequent queries observe the change.
type AdminService interface {
	CreateState(ctx context.Context, req CreateStateRequest) (*ModerationState, error)
	UpdateState(ctx context.Context, name string, req UpdateStateRequest) (*ModerationState, error)
	// DeleteState refuses to remove a state that is still referenced by a
	// transition, returning ErrStateInUse.
	DeleteState(ctx context.Context, name string) error
	GetState(ctx context.Context, name string) (*ModerationState, error)
	ListStates(ctx context.Context) ([]*ModerationState, error)

	CreateTransition(ctx context.Context, req CreateTransitionRequest) (*StateTransition, error)
	UpdateTransition(ctx context.Context, name string, req UpdateTransitionRequest) (*StateTransition, error)
	DeleteTransition(ctx context.Context, name string) error
	ListTransitions(ctx context.Context) ([]*StateTransition, error)
}

// CreateStateRequest captures the fields required to define a state. When
// Name is empty it is derived from the label.
type CreateStateRequest struct {
	Name            string
	Label           string
	Published       bool
	DefaultRevision bool
	Weight          int
}

// UpdateStateRequest captures mutable state fields. Nil pointers leave the
// stored value untouched.
type UpdateStateRequest struct {
	Label           *string
	Published       *bool
	DefaultRevision *bool
	Weight          *int
}

// CreateTransitionRequest captures the fields required to define an edge.
// Self-loop edges are rejected at this surface; seed documents may still
// install explicit "stay" edges.
type CreateTransitionRequest struct {
	Name      string
	Label     string
	FromState string
	ToState   string
	Weight    int
}

// UpdateTransitionRequest captures mutable transition fields. Endpoints are
// immutable; replace the edge instead of rewiring it.
type UpdateTransitionRequest struct {
	Label  *string
	Weight *int
}

// IDGenerator produces primary keys for new configuration records.
type IDGenerator func() uuid.UUID
