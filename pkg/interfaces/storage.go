package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// SaveOutcome reports whether a store save created a new entity or updated an
// existing one.
type SaveOutcome string

const (
	SaveOutcomeCreated SaveOutcome = "created"
	SaveOutcomeUpdated SaveOutcome = "updated"
)

// RevisionableEntity is the moderation-relevant view of a revisioned content
// entity. The underlying storage is host-owned; the moderation layer only
// manipulates the revision, default-revision, and state fields exposed here.
type RevisionableEntity interface {
	EntityTypeID() string
	ID() uuid.UUID
	Bundle() string
	Langcode() string
	RevisionID() int64
	IsNew() bool

	IsDefaultRevision() bool
	SetDefaultRevision(def bool)
	SetNewRevision(renew bool)

	// ModerationState returns the machine name of the target state carried by
	// this save, or "" when the editor supplied none.
	ModerationState() string
	SetModerationState(name string)

	OwnerID() uuid.UUID
}

// PublishableEntity is implemented by entity types that carry a publish flag.
// Not every content type has a concept of published, so the reconciler only
// sets the flag when the entity opts in through this interface.
type PublishableEntity interface {
	RevisionableEntity
	IsPublished() bool
	SetPublished(published bool)
}

// EntityStore is the generic revisioned entity storage the moderation layer
// sits on. Load returns the default revision; forward revisions are reachable
// only through LoadRevision or AllRevisionIDs.
type EntityStore interface {
	Load(ctx context.Context, entityType string, id uuid.UUID, langcode string) (RevisionableEntity, error)
	LoadRevision(ctx context.Context, entityType string, revisionID int64, langcode string) (RevisionableEntity, error)
	// AllRevisionIDs returns every revision id recorded for the entity and
	// language, in ascending order.
	AllRevisionIDs(ctx context.Context, entityType string, id uuid.UUID, langcode string) ([]int64, error)
	Save(ctx context.Context, entity RevisionableEntity) (SaveOutcome, error)
	// Revisionable reports whether the entity type supports revisions at all.
	Revisionable(entityType string) bool
}

// BundleConfig captures the per content-type moderation settings.
type BundleConfig struct {
	EntityType    string
	Bundle        string
	Enabled       bool
	AllowedStates []string
	DefaultState  string
}

// BundleConfigStore resolves moderation settings for a bundle. A nil config
// with a nil error means the bundle is not configured; callers treat that as
// moderation disabled.
type BundleConfigStore interface {
	BundleConfig(ctx context.Context, entityType, bundle string) (*BundleConfig, error)
	ListBundles(ctx context.Context) ([]*BundleConfig, error)
}

// Authorizer answers permission checks for moderation actors. Transition
// permissions are scoped per transition, see the permissions package for the
// token format.
type Authorizer interface {
	Can(ctx context.Context, actor uuid.UUID, permission string) (bool, error)
}
