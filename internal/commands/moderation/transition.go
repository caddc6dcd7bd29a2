package moderationcmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-workbench/internal/commands"
	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/google/uuid"
)

const applyTransitionMessageType = "moderation.transition.apply"

// ApplyTransitionCommand moves an entity's latest revision into the target
// state through the moderated save path.
type ApplyTransitionCommand struct {
	EntityType  string     `json:"entity_type"`
	EntityID    uuid.UUID  `json:"entity_id"`
	Langcode    string     `json:"langcode"`
	TargetState string     `json:"target_state"`
	Actor       *uuid.UUID `json:"actor,omitempty"`
}

// Type implements command.Message.
func (ApplyTransitionCommand) Type() string { return applyTransitionMessageType }

// Validate ensures the message carries the required fields before reaching
// handlers.
func (m ApplyTransitionCommand) Validate() error {
	errs := validation.Errors{}
	if m.EntityType == "" {
		errs["entity_type"] = validation.NewError("moderation.transition.entity_type_required", "entity_type is required")
	}
	if m.EntityID == uuid.Nil {
		errs["entity_id"] = validation.NewError("moderation.transition.entity_id_required", "entity_id is required")
	}
	if m.Langcode == "" {
		errs["langcode"] = validation.NewError("moderation.transition.langcode_required", "langcode is required")
	}
	if m.TargetState == "" {
		errs["target_state"] = validation.NewError("moderation.transition.target_state_required", "target_state is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ApplyTransitionHandler executes transitions via the moderation service
// using the shared command handler foundation.
type ApplyTransitionHandler struct {
	inner *commands.Handler[ApplyTransitionCommand]
}

// NewApplyTransitionHandler constructs a handler wired to the provided
// moderation service.
func NewApplyTransitionHandler(service moderation.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ApplyTransitionCommand]) *ApplyTransitionHandler {
	exec := func(ctx context.Context, msg ApplyTransitionCommand) error {
		entity, err := service.LatestRevision(ctx, msg.EntityType, msg.EntityID, msg.Langcode)
		if err != nil {
			return err
		}
		entity.SetModerationState(msg.TargetState)

		req := moderation.SaveRequest{Entity: entity}
		if msg.Actor != nil {
			req.Actor = *msg.Actor
		}
		_, err = service.Save(ctx, req)
		return err
	}

	handlerOpts := []commands.HandlerOption[ApplyTransitionCommand]{
		commands.WithLogger[ApplyTransitionCommand](logger),
		commands.WithOperation[ApplyTransitionCommand]("moderation.transition"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ApplyTransitionHandler{
		inner: commands.NewHandler[ApplyTransitionCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ApplyTransitionCommand].Execute.
func (h *ApplyTransitionHandler) Execute(ctx context.Context, msg ApplyTransitionCommand) error {
	return h.inner.Execute(ctx, msg)
}
