package moderation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-workbench/moderation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStateLinkRepository stores revision state links through bun. Links are
// keyed logically by (entity_type, entity_id, revision_id, langcode);
// RecordState merges into the existing row when one exists so re-saving a
// revision never duplicates its link.
type BunStateLinkRepository struct {
	db  *bun.DB
	now func() time.Time
	id  func() uuid.UUID
}

var _ moderation.StateLinkRepository = (*BunStateLinkRepository)(nil)

// StateLinkOption configures a BunStateLinkRepository.
type StateLinkOption func(*BunStateLinkRepository)

func WithStateLinkClock(now func() time.Time) StateLinkOption {
	return func(r *BunStateLinkRepository) {
		if now != nil {
			r.now = now
		}
	}
}

func WithStateLinkIDGenerator(gen func() uuid.UUID) StateLinkOption {
	return func(r *BunStateLinkRepository) {
		if gen != nil {
			r.id = gen
		}
	}
}

func NewBunStateLinkRepository(db *bun.DB, opts ...StateLinkOption) *BunStateLinkRepository {
	repo := &BunStateLinkRepository{
		db:  db,
		now: time.Now,
		id:  uuid.New,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

func (r *BunStateLinkRepository) RecordState(ctx context.Context, link *moderation.StateLink) (*moderation.StateLink, error) {
	existing := new(moderation.StateLink)
	err := r.db.NewSelect().
		Model(existing).
		Where("content_entity_type_id = ?", link.EntityType).
		Where("content_entity_id = ?", link.EntityID).
		Where("content_entity_revision_id = ?", link.RevisionID).
		Where("langcode = ?", link.Langcode).
		Scan(ctx)
	switch {
	case err == nil:
		existing.State = link.State
		existing.OwnerID = link.OwnerID
		existing.UpdatedAt = r.now()
		if _, err := r.db.NewUpdate().
			Model(existing).
			WherePK().
			Exec(ctx); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, sql.ErrNoRows):
		record := *link
		if record.ID == uuid.Nil {
			record.ID = r.id()
		}
		record.CreatedAt = r.now()
		record.UpdatedAt = record.CreatedAt
		if _, err := r.db.NewInsert().
			Model(&record).
			Exec(ctx); err != nil {
			return nil, err
		}
		return &record, nil
	default:
		return nil, err
	}
}

func (r *BunStateLinkRepository) ResolveStateFor(ctx context.Context, entityType string, entityID uuid.UUID, revisionID int64, langcode string) (string, error) {
	link := new(moderation.StateLink)
	err := r.db.NewSelect().
		Model(link).
		Where("content_entity_type_id = ?", entityType).
		Where("content_entity_id = ?", entityID).
		Where("content_entity_revision_id = ?", revisionID).
		Where("langcode = ?", langcode).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", moderation.ErrStateLinkNotFound
		}
		return "", err
	}
	return link.State, nil
}

func (r *BunStateLinkRepository) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*moderation.StateLink, error) {
	var links []*moderation.StateLink
	err := r.db.NewSelect().
		Model(&links).
		Where("content_entity_type_id = ?", entityType).
		Where("content_entity_id = ?", entityID).
		OrderExpr("content_entity_revision_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return links, nil
}
