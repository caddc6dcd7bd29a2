package revisions

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNoTrackedRevision indicates no latest revision has been recorded for
// the entity translation yet.
var ErrNoTrackedRevision = errors.New("revisions: no tracked revision")

// TrackedRevision records the newest revision id seen for one entity
// translation. One row per (entity_type, entity_id, langcode).
type TrackedRevision struct {
	bun.BaseModel `bun:"table:moderation_revision_tracker,alias:mrt"`

	EntityType string    `bun:"entity_type,pk" json:"entity_type"`
	EntityID   uuid.UUID `bun:"entity_id,pk,type:uuid" json:"entity_id"`
	Langcode   string    `bun:"langcode,pk" json:"langcode"`
	RevisionID int64     `bun:"revision_id,notnull" json:"revision_id"`
	UpdatedAt  time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Tracker maintains the latest-revision bookkeeping that lets the moderation
// layer find forward revisions without scanning revision tables.
type Tracker interface {
	SetLatestRevision(ctx context.Context, entityType string, entityID uuid.UUID, langcode string, revisionID int64) error
	LatestRevisionID(ctx context.Context, entityType string, entityID uuid.UUID, langcode string) (int64, error)
}

// BunTracker persists tracked revisions through bun. The backing table is
// created lazily on first write, so hosts that never enable moderation pay
// no schema cost.
type BunTracker struct {
	db     *bun.DB
	logger interfaces.Logger
	now    func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
}

var _ Tracker = (*BunTracker)(nil)

// TrackerOption configures a BunTracker.
type TrackerOption func(*BunTracker)

func WithTrackerLogger(logger interfaces.Logger) TrackerOption {
	return func(t *BunTracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *BunTracker) {
		if now != nil {
			t.now = now
		}
	}
}

func NewBunTracker(db *bun.DB, opts ...TrackerOption) *BunTracker {
	tracker := &BunTracker{
		db:     db,
		logger: logging.NoOp(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tracker)
	}
	return tracker
}

// SetLatestRevision upserts the tracked row. A concurrent writer may have
// created the table between the existence check and the write, so the write
// is retried once after re-ensuring the schema.
func (t *BunTracker) SetLatestRevision(ctx context.Context, entityType string, entityID uuid.UUID, langcode string, revisionID int64) error {
	record := &TrackedRevision{
		EntityType: entityType,
		EntityID:   entityID,
		Langcode:   langcode,
		RevisionID: revisionID,
		UpdatedAt:  t.now(),
	}

	err := t.upsert(ctx, record)
	if err == nil {
		return nil
	}

	t.schemaMu.Lock()
	t.schemaReady = false
	t.schemaMu.Unlock()
	if ensureErr := t.ensureSchema(ctx); ensureErr != nil {
		return ensureErr
	}
	if retryErr := t.upsert(ctx, record); retryErr != nil {
		return retryErr
	}
	t.logger.Debug("tracker write succeeded on retry",
		"entity_type", entityType,
		"entity_id", entityID.String(),
	)
	return nil
}

// LatestRevisionID returns the newest tracked revision for the entity
// translation, or ErrNoTrackedRevision when nothing has been recorded.
func (t *BunTracker) LatestRevisionID(ctx context.Context, entityType string, entityID uuid.UUID, langcode string) (int64, error) {
	if err := t.ensureSchema(ctx); err != nil {
		return 0, err
	}

	record := new(TrackedRevision)
	err := t.db.NewSelect().
		Model(record).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		Where("langcode = ?", langcode).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoTrackedRevision
		}
		return 0, err
	}
	return record.RevisionID, nil
}

func (t *BunTracker) upsert(ctx context.Context, record *TrackedRevision) error {
	if err := t.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := t.db.NewInsert().
		Model(record).
		On("CONFLICT (entity_type, entity_id, langcode) DO UPDATE").
		Set("revision_id = EXCLUDED.revision_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (t *BunTracker) ensureSchema(ctx context.Context) error {
	t.schemaMu.Lock()
	defer t.schemaMu.Unlock()
	if t.schemaReady {
		return nil
	}
	if _, err := t.db.NewCreateTable().
		Model((*TrackedRevision)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	t.schemaReady = true
	return nil
}
