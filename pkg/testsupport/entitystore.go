package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/google/uuid"
)

// ErrEntityNotFound is returned by the memory store for unknown entities or
// revisions.
var ErrEntityNotFound = errors.New("testsupport: entity not found")

// Entity is a minimal publishable content entity used to exercise the
// moderation layer in tests and examples.
type Entity struct {
	entityType string
	bundle     string
	langcode   string
	id         uuid.UUID
	revisionID int64
	isNew      bool

	defaultRevision bool
	newRevision     bool
	state           string
	published       bool
	owner           uuid.UUID

	Title string
}

var _ interfaces.PublishableEntity = (*Entity)(nil)

// NewEntity creates an unsaved entity for the given type, bundle, and language.
func NewEntity(entityType, bundle, langcode string) *Entity {
	return &Entity{
		entityType:      entityType,
		bundle:          bundle,
		langcode:        langcode,
		id:              uuid.New(),
		isNew:           true,
		defaultRevision: true,
	}
}

// Translation returns an unsaved sibling of the entity in another language.
// Translations share the entity id but carry their own revisions and state.
func (e *Entity) Translation(langcode string) *Entity {
	return &Entity{
		entityType:      e.entityType,
		bundle:          e.bundle,
		langcode:        langcode,
		id:              e.id,
		isNew:           true,
		defaultRevision: true,
	}
}

func (e *Entity) EntityTypeID() string { return e.entityType }

func (e *Entity) ID() uuid.UUID { return e.id }

func (e *Entity) Bundle() string { return e.bundle }

func (e *Entity) Langcode() string { return e.langcode }

func (e *Entity) RevisionID() int64 { return e.revisionID }

func (e *Entity) IsNew() bool { return e.isNew }

func (e *Entity) IsDefaultRevision() bool { return e.defaultRevision }

func (e *Entity) SetDefaultRevision(def bool) { e.defaultRevision = def }

func (e *Entity) SetNewRevision(renew bool) { e.newRevision = renew }

func (e *Entity) ModerationState() string { return e.state }

func (e *Entity) SetModerationState(name string) { e.state = name }

func (e *Entity) OwnerID() uuid.UUID { return e.owner }

func (e *Entity) SetOwnerID(owner uuid.UUID) { e.owner = owner }

func (e *Entity) IsPublished() bool { return e.published }

func (e *Entity) SetPublished(published bool) { e.published = published }

type revisionRecord struct {
	entityID        uuid.UUID
	bundle          string
	langcode        string
	revisionID      int64
	state           string
	published       bool
	defaultRevision bool
	owner           uuid.UUID
	title           string
}

// MemoryEntityStore is an in-memory revisioned entity store. Revision ids are
// globally autoincremented; the default-revision pointer is tracked per
// (entity id, langcode) pair, matching the storage contract the moderation
// layer expects.
type MemoryEntityStore struct {
	mu           sync.Mutex
	nextRevision int64
	revisions    map[string][]*revisionRecord
}

var _ interfaces.EntityStore = (*MemoryEntityStore)(nil)

func NewMemoryEntityStore() *MemoryEntityStore {
	return &MemoryEntityStore{revisions: make(map[string][]*revisionRecord)}
}

func (s *MemoryEntityStore) Save(ctx context.Context, entity interfaces.RevisionableEntity) (interfaces.SaveOutcome, error) {
	e, ok := entity.(*Entity)
	if !ok {
		return "", fmt.Errorf("testsupport: unsupported entity %T", entity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := interfaces.SaveOutcomeUpdated
	if e.isNew {
		outcome = interfaces.SaveOutcomeCreated
	}

	if e.isNew || e.newRevision {
		s.nextRevision++
		e.revisionID = s.nextRevision
	}

	record := &revisionRecord{
		entityID:        e.id,
		bundle:          e.bundle,
		langcode:        e.langcode,
		revisionID:      e.revisionID,
		state:           e.state,
		published:       e.published,
		defaultRevision: e.defaultRevision,
		owner:           e.owner,
		title:           e.Title,
	}

	if record.defaultRevision {
		for _, existing := range s.revisions[e.entityType] {
			if existing.entityID == e.id && existing.langcode == e.langcode {
				existing.defaultRevision = false
			}
		}
	}

	replaced := false
	for i, existing := range s.revisions[e.entityType] {
		if existing.revisionID == record.revisionID && existing.langcode == record.langcode {
			s.revisions[e.entityType][i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		s.revisions[e.entityType] = append(s.revisions[e.entityType], record)
	}

	e.isNew = false
	e.newRevision = false
	return outcome, nil
}

func (s *MemoryEntityStore) Load(ctx context.Context, entityType string, id uuid.UUID, langcode string) (interfaces.RevisionableEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.revisions[entityType] {
		if record.entityID == id && record.langcode == langcode && record.defaultRevision {
			return s.materialize(entityType, record), nil
		}
	}
	return nil, ErrEntityNotFound
}

func (s *MemoryEntityStore) LoadRevision(ctx context.Context, entityType string, revisionID int64, langcode string) (interfaces.RevisionableEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.revisions[entityType] {
		if record.revisionID == revisionID && record.langcode == langcode {
			return s.materialize(entityType, record), nil
		}
	}
	return nil, ErrEntityNotFound
}

func (s *MemoryEntityStore) AllRevisionIDs(ctx context.Context, entityType string, id uuid.UUID, langcode string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, record := range s.revisions[entityType] {
		if record.entityID == id && record.langcode == langcode {
			ids = append(ids, record.revisionID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryEntityStore) Revisionable(entityType string) bool { return true }

func (s *MemoryEntityStore) materialize(entityType string, record *revisionRecord) *Entity {
	return &Entity{
		entityType:      entityType,
		bundle:          record.bundle,
		langcode:        record.langcode,
		id:              record.entityID,
		revisionID:      record.revisionID,
		defaultRevision: record.defaultRevision,
		state:           record.state,
		published:       record.published,
		owner:           record.owner,
		Title:           record.title,
	}
}

// MemoryBundleConfigStore keeps bundle moderation settings in a map.
type MemoryBundleConfigStore struct {
	mu      sync.RWMutex
	bundles map[string]*interfaces.BundleConfig
}

var _ interfaces.BundleConfigStore = (*MemoryBundleConfigStore)(nil)

func NewMemoryBundleConfigStore() *MemoryBundleConfigStore {
	return &MemoryBundleConfigStore{bundles: make(map[string]*interfaces.BundleConfig)}
}

func (s *MemoryBundleConfigStore) Put(cfg interfaces.BundleConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := cfg
	s.bundles[cfg.EntityType+"/"+cfg.Bundle] = &copied
}

func (s *MemoryBundleConfigStore) BundleConfig(ctx context.Context, entityType, bundle string) (*interfaces.BundleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.bundles[entityType+"/"+bundle]
	if !ok {
		return nil, nil
	}
	copied := *cfg
	return &copied, nil
}

func (s *MemoryBundleConfigStore) ListBundles(ctx context.Context) ([]*interfaces.BundleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*interfaces.BundleConfig, 0, len(s.bundles))
	for _, cfg := range s.bundles {
		copied := *cfg
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntityType+"/"+out[i].Bundle < out[j].EntityType+"/"+out[j].Bundle
	})
	return out, nil
}

// StaticAuthorizer grants the configured permission tokens per actor. When
// AllowAll is set every check passes.
type StaticAuthorizer struct {
	AllowAll bool
	Grants   map[uuid.UUID][]string
}

var _ interfaces.Authorizer = (*StaticAuthorizer)(nil)

func (a *StaticAuthorizer) Can(ctx context.Context, actor uuid.UUID, permission string) (bool, error) {
	if a == nil || a.AllowAll {
		return true, nil
	}
	for _, granted := range a.Grants[actor] {
		if granted == permission {
			return true, nil
		}
	}
	return false, nil
}
