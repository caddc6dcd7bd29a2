package moderation

import (
	"context"

	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/workflow"
)

// TransitionValidator checks whether a state move is legal under the
// configured transition graph. It reports violations as data rather than
// failing outright so callers can collect and present them to editors.
type TransitionValidator struct {
	graph  workflow.Graph
	states workflow.StateRepository
}

func NewTransitionValidator(graph workflow.Graph, states workflow.StateRepository) *TransitionValidator {
	return &TransitionValidator{
		graph:  graph,
		states: states,
	}
}

// Validate returns nil when the move from stateBefore to stateAfter is
// permitted. New entities have no prior state, so every target is legal for
// them, and staying in the current state is always a legal no-op.
func (v *TransitionValidator) Validate(ctx context.Context, stateBefore, stateAfter string, isNew bool) (*moderation.TransitionViolation, error) {
	if isNew || stateBefore == "" || stateBefore == stateAfter {
		return nil, nil
	}

	allowed, err := v.graph.IsAllowed(ctx, stateBefore, stateAfter)
	if err != nil {
		return nil, err
	}
	if allowed {
		return nil, nil
	}

	violation := &moderation.TransitionViolation{
		FromState: stateBefore,
		ToState:   stateAfter,
	}
	if label, err := v.stateLabel(ctx, stateBefore); err == nil {
		violation.FromLabel = label
	}
	if label, err := v.stateLabel(ctx, stateAfter); err == nil {
		violation.ToLabel = label
	}
	return violation, nil
}

func (v *TransitionValidator) stateLabel(ctx context.Context, name string) (string, error) {
	state, err := v.states.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	return state.Label, nil
}
