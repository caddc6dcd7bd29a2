package moderation

import (
	"errors"
	"fmt"
)

var (
	ErrEntityRequired = errors.New("moderation: entity is required")
	// ErrNoDefaultState is a configuration error: moderation is enabled for
	// the bundle but no target state could be resolved. The save must abort,
	// continuing would corrupt the publish and default-revision invariants.
	ErrNoDefaultState = errors.New("moderation: no moderation state resolvable for bundle")
	// ErrUnknownState means the save names a state that does not exist.
	ErrUnknownState        = errors.New("moderation: unknown moderation state")
	ErrStateLinkNotFound   = errors.New("moderation: no state recorded for revision")
	ErrNoTrackedRevision   = errors.New("moderation: no tracked revision")
	ErrTransitionForbidden = errors.New("moderation: transition not permitted for actor")
)

// TransitionViolation describes a disallowed state move. It is collected and
// surfaced to the editor rather than thrown; both labels are included so the
// message can name the states the way the editor sees them.
type TransitionViolation struct {
	FromState string
	ToState   string
	FromLabel string
	ToLabel   string
}

func (v *TransitionViolation) Message() string {
	if v == nil {
		return ""
	}
	from := v.FromLabel
	if from == "" {
		from = v.FromState
	}
	to := v.ToLabel
	if to == "" {
		to = v.ToState
	}
	return fmt.Sprintf("invalid state transition from %s to %s", from, to)
}

// TransitionViolationError adapts a violation to the error contract for the
// save path, which cannot return silently.
type TransitionViolationError struct {
	Violation *TransitionViolation
}

func (e *TransitionViolationError) Error() string {
	if e == nil || e.Violation == nil {
		return "moderation: invalid state transition"
	}
	return "moderation: " + e.Violation.Message()
}
