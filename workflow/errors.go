package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStateNameRequired      = errors.New("workflow: state name is required")
	ErrStateLabelRequired     = errors.New("workflow: state label is required")
	ErrStateExists            = errors.New("workflow: state already exists")
	ErrStateNotFound          = errors.New("workflow: state not found")
	ErrStateInUse             = errors.New("workflow: state is referenced by transitions")
	ErrTransitionNameRequired = errors.New("workflow: transition name is required")
	ErrTransitionExists       = errors.New("workflow: transition already exists")
	ErrTransitionNotFound     = errors.New("workflow: transition not found")
	ErrTransitionSelfLoop     = errors.New("workflow: transition endpoints must differ")
	ErrTransitionEndpoints    = errors.New("workflow: transition references unknown state")
	ErrSeedDocumentInvalid    = errors.New("workflow: seed document failed validation")
)

// NotFoundError carries the resource kind and lookup key of a failed read.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "workflow: not found"
	}
	key := strings.TrimSpace(e.Key)
	if key == "" {
		return fmt.Sprintf("workflow: %s not found", e.Resource)
	}
	return fmt.Sprintf("workflow: %s %q not found", e.Resource, key)
}

func (e *NotFoundError) Unwrap() error {
	switch e.Resource {
	case "transition":
		return ErrTransitionNotFound
	default:
		return ErrStateNotFound
	}
}
