package moderation

import (
	"context"

	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/google/uuid"
)

// TransitionEvent is dispatched synchronously on pre-save for every moderated
// save, including same-state saves. Dispatch is fire-and-forget: subscribers
// cannot cancel the save.
type TransitionEvent struct {
	Entity      interfaces.RevisionableEntity
	StateBefore string
	StateAfter  string
}

// Subscriber receives transition events. Implementations must not assume the
// entity has been persisted yet.
type Subscriber interface {
	OnTransition(ctx context.Context, event TransitionEvent)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, event TransitionEvent)

func (f SubscriberFunc) OnTransition(ctx context.Context, event TransitionEvent) {
	f(ctx, event)
}

const transitionMessageType = "moderation.state.transition"

// TransitionMessage is the go-command message form of a transition event, for
// hosts that bridge moderation events onto a command/event bus.
type TransitionMessage struct {
	EntityType  string    `json:"entity_type"`
	EntityID    uuid.UUID `json:"entity_id"`
	RevisionID  int64     `json:"revision_id"`
	Langcode    string    `json:"langcode"`
	StateBefore string    `json:"state_before"`
	StateAfter  string    `json:"state_after"`
}

// Type implements command.Message.
func (TransitionMessage) Type() string { return transitionMessageType }

// NewTransitionMessage flattens an event into its bus message form.
func NewTransitionMessage(event TransitionEvent) TransitionMessage {
	msg := TransitionMessage{
		StateBefore: event.StateBefore,
		StateAfter:  event.StateAfter,
	}
	if event.Entity != nil {
		msg.EntityType = event.Entity.EntityTypeID()
		msg.EntityID = event.Entity.ID()
		msg.RevisionID = event.Entity.RevisionID()
		msg.Langcode = event.Entity.Langcode()
	}
	return msg
}
