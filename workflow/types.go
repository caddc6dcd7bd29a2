package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ModerationState is a named workflow stage. The machine name is the stable
// identifier referenced by transitions and content revisions; the two policy
// flags drive the publish and default-revision behaviour of the reconciler.
type ModerationState struct {
	bun.BaseModel `bun:"table:moderation_states,alias:ms"`

	ID    uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Name  string    `bun:"name,notnull,unique" json:"name"`
	Label string    `bun:"label,notnull" json:"label"`

	// Published marks content in this state as publicly visible.
	Published bool `bun:"published,notnull,default:false" json:"published"`
	// DefaultRevision marks revisions entering this state as the canonical
	// revision even when unpublished (archived content stays canonical).
	DefaultRevision bool `bun:"default_revision,notnull,default:false" json:"default_revision"`

	Weight    int       `bun:"weight,notnull,default:0" json:"weight"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// StateTransition is a directed edge between two moderation states,
// referenced by machine name. Referential integrity is by convention, the
// admin service validates both endpoints exist before persisting.
type StateTransition struct {
	bun.BaseModel `bun:"table:moderation_state_transitions,alias:mst"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	Label     string    `bun:"label,notnull" json:"label"`
	FromState string    `bun:"from_state,notnull" json:"from_state"`
	ToState   string    `bun:"to_state,notnull" json:"to_state"`
	Weight    int       `bun:"weight,notnull,default:0" json:"weight"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	From *ModerationState `bun:"rel:belongs-to,join:from_state=name" json:"from,omitempty"`
	To   *ModerationState `bun:"rel:belongs-to,join:to_state=name" json:"to,omitempty"`
}

// SelfTransition reports whether the edge keeps the content in its current
// state. Seed workflows define these "stay" edges so a no-op save validates.
func (t *StateTransition) SelfTransition() bool {
	return t != nil && t.FromState == t.ToState
}

// StateRepository persists moderation states.
type StateRepository interface {
	Create(ctx context.Context, state *ModerationState) (*ModerationState, error)
	Update(ctx context.Context, state *ModerationState) (*ModerationState, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByName(ctx context.Context, name string) (*ModerationState, error)
	List(ctx context.Context) ([]*ModerationState, error)
}

// TransitionRepository persists state transitions.
type TransitionRepository interface {
	Create(ctx context.Context, transition *StateTransition) (*StateTransition, error)
	Update(ctx context.Context, transition *StateTransition) (*StateTransition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByName(ctx context.Context, name string) (*StateTransition, error)
	List(ctx context.Context) ([]*StateTransition, error)
	ListFrom(ctx context.Context, fromState string) ([]*StateTransition, error)
}

// Graph answers reachability questions over the configured transitions.
type Graph interface {
	// IsAllowed reports whether an edge from -> to exists. Missing edges
	// return false, never an error.
	IsAllowed(ctx context.Context, from, to string) (bool, error)
	// IsAllowedForActor additionally requires the actor to hold the
	// per-transition permission.
	IsAllowedForActor(ctx context.Context, from, to string, actor uuid.UUID) (bool, error)
	// ValidTargets returns the states reachable from current, filtered by the
	// bundle allow-list (nil means all) and, when actor is non-nil, by the
	// actor's transition permissions. The current state is always included.
	ValidTargets(ctx context.Context, current string, allowed []string, actor *uuid.UUID) ([]*ModerationState, error)
	// TransitionFor resolves the transition record covering from -> to.
	TransitionFor(ctx context.Context, from, to string) (*StateTransition, error)
	// Invalidate drops the cached adjacency so the next query rebuilds it.
	Invalidate()
}
