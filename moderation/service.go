package moderation

import (
	"context"

	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
)

// Service is the save-path entry point for moderated content. Save wraps the
// host store's persist call with transition validation, revision/default/
// publish reconciliation, and post-save bookkeeping. Entities whose bundle
// has moderation disabled pass through untouched.
type Service interface {
	Save(ctx context.Context, req SaveRequest) (*SaveResult, error)

	// ValidTargets lists the states the actor may move the entity into,
	// intersected with the bundle allow-list. The current state is always
	// included.
	ValidTargets(ctx context.Context, entity interfaces.RevisionableEntity, actor uuid.UUID) ([]*workflow.ModerationState, error)

	IsModerated(ctx context.Context, entity interfaces.RevisionableEntity) bool
	IsLatestRevision(ctx context.Context, entity interfaces.RevisionableEntity) (bool, error)
	LatestRevision(ctx context.Context, entityType string, id uuid.UUID, langcode string) (interfaces.RevisionableEntity, error)
	// HasForwardRevision reports whether a draft newer than the default
	// revision exists for the entity's language.
	HasForwardRevision(ctx context.Context, entity interfaces.RevisionableEntity) (bool, error)

	// ResolveState returns the moderation state recorded for a revision.
	ResolveState(ctx context.Context, entityType string, id uuid.UUID, revisionID int64, langcode string) (string, error)
}

// SaveRequest carries the entity being saved and the acting user. A nil actor
// id skips per-transition permission checks (trusted system saves).
type SaveRequest struct {
	Entity interfaces.RevisionableEntity
	Actor  uuid.UUID
}

// SaveResult reports what the save did and where the editor should land:
// the canonical route when the new state is a default-revision state, the
// latest-version route otherwise.
type SaveResult struct {
	Outcome     interfaces.SaveOutcome
	StateBefore string
	StateAfter  string
	Destination string
}
