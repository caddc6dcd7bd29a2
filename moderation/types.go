package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StateLink records the moderation state of one content revision. The
// underlying content model has no native state column; this side table is
// joined by (entity type, entity id, revision id, langcode) instead.
type StateLink struct {
	bun.BaseModel `bun:"table:content_moderation_states,alias:cmsl"`

	ID         uuid.UUID `bun:",pk,type:uuid" json:"id"`
	EntityType string    `bun:"content_entity_type_id,notnull" json:"content_entity_type_id"`
	EntityID   uuid.UUID `bun:"content_entity_id,notnull,type:uuid" json:"content_entity_id"`
	RevisionID int64     `bun:"content_entity_revision_id,notnull" json:"content_entity_revision_id"`
	Langcode   string    `bun:"langcode,notnull" json:"langcode"`
	State      string    `bun:"moderation_state,notnull" json:"moderation_state"`
	OwnerID    uuid.UUID `bun:"uid,type:uuid,nullzero" json:"uid,omitempty"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// StateLinkRepository is the explicit join surface for revision states. The
// indirection is deliberate: resolving a state is a repository lookup, not a
// field read on the content entity.
type StateLinkRepository interface {
	// RecordState upserts the link for the exact revision the link names.
	RecordState(ctx context.Context, link *StateLink) (*StateLink, error)
	// ResolveStateFor returns the state machine name recorded for a revision,
	// or ErrStateLinkNotFound.
	ResolveStateFor(ctx context.Context, entityType string, entityID uuid.UUID, revisionID int64, langcode string) (string, error)
	ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*StateLink, error)
}
