package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-workbench/internal/permissions"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
)

type edgeKey struct {
	from string
	to   string
}

// TransitionGraph answers reachability questions over the configured
// transitions. The adjacency index is built lazily on first use and rebuilt
// after Invalidate, so admin writes are visible without restarting.
type TransitionGraph struct {
	states      workflow.StateRepository
	transitions workflow.TransitionRepository
	authorizer  interfaces.Authorizer

	mu        sync.RWMutex
	adjacency map[string][]string
	edges     map[edgeKey]*workflow.StateTransition
	loaded    bool
}

var _ workflow.Graph = (*TransitionGraph)(nil)

func NewTransitionGraph(states workflow.StateRepository, transitions workflow.TransitionRepository, authorizer interfaces.Authorizer) *TransitionGraph {
	return &TransitionGraph{
		states:      states,
		transitions: transitions,
		authorizer:  authorizer,
	}
}

func (g *TransitionGraph) IsAllowed(ctx context.Context, fromState, toState string) (bool, error) {
	if err := g.ensureLoaded(ctx); err != nil {
		return false, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edges[edgeKey{from: fromState, to: toState}]
	return ok, nil
}

func (g *TransitionGraph) IsAllowedForActor(ctx context.Context, fromState, toState string, actor uuid.UUID) (bool, error) {
	if err := g.ensureLoaded(ctx); err != nil {
		return false, err
	}
	g.mu.RLock()
	transition, ok := g.edges[edgeKey{from: fromState, to: toState}]
	g.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if g.authorizer == nil {
		return true, nil
	}
	return g.authorizer.Can(ctx, actor, permissions.TransitionPermission(transition.Name))
}

// ValidTargets returns the states reachable from current, filtered by the
// bundle allow list and, when an actor is given, by transition permissions.
// The current state is always part of the result so a caller can render it
// as the selected option even when the actor holds no transition grants.
func (g *TransitionGraph) ValidTargets(ctx context.Context, current string, allowed []string, actor *uuid.UUID) ([]*workflow.ModerationState, error) {
	if err := g.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	var allowSet map[string]struct{}
	if allowed != nil {
		allowSet = make(map[string]struct{}, len(allowed))
		for _, name := range allowed {
			allowSet[name] = struct{}{}
		}
	}

	g.mu.RLock()
	reachable := make([]*workflow.StateTransition, 0, len(g.adjacency[current]))
	for _, to := range g.adjacency[current] {
		reachable = append(reachable, g.edges[edgeKey{from: current, to: to}])
	}
	g.mu.RUnlock()

	targets := map[string]struct{}{current: {}}
	for _, transition := range reachable {
		if transition.SelfTransition() {
			continue
		}
		if allowSet != nil {
			if _, ok := allowSet[transition.ToState]; !ok {
				continue
			}
		}
		if actor != nil && g.authorizer != nil {
			ok, err := g.authorizer.Can(ctx, *actor, permissions.TransitionPermission(transition.Name))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		targets[transition.ToState] = struct{}{}
	}

	states := make([]*workflow.ModerationState, 0, len(targets))
	for name := range targets {
		state, err := g.states.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].Weight != states[j].Weight {
			return states[i].Weight < states[j].Weight
		}
		return states[i].Name < states[j].Name
	})
	return states, nil
}

func (g *TransitionGraph) TransitionFor(ctx context.Context, fromState, toState string) (*workflow.StateTransition, error) {
	if err := g.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	transition, ok := g.edges[edgeKey{from: fromState, to: toState}]
	if !ok {
		return nil, &workflow.NotFoundError{Resource: "transition", Key: fromState + " -> " + toState}
	}
	return transition, nil
}

// Invalidate drops the cached adjacency so the next lookup reloads from the
// repositories. Admin writes call this after every mutation.
func (g *TransitionGraph) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loaded = false
	g.adjacency = nil
	g.edges = nil
}

func (g *TransitionGraph) ensureLoaded(ctx context.Context) error {
	g.mu.RLock()
	loaded := g.loaded
	g.mu.RUnlock()
	if loaded {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded {
		return nil
	}

	transitions, err := g.transitions.List(ctx)
	if err != nil {
		return err
	}
	adjacency := make(map[string][]string)
	edges := make(map[edgeKey]*workflow.StateTransition, len(transitions))
	for _, transition := range transitions {
		key := edgeKey{from: transition.FromState, to: transition.ToState}
		if _, exists := edges[key]; exists {
			continue
		}
		edges[key] = transition
		adjacency[transition.FromState] = append(adjacency[transition.FromState], transition.ToState)
	}

	g.adjacency = adjacency
	g.edges = edges
	g.loaded = true
	return nil
}
