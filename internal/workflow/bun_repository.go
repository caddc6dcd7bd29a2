package workflow

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func newStateRepository(db *bun.DB) repository.Repository[*workflow.ModerationState] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*workflow.ModerationState]{
		NewRecord: func() *workflow.ModerationState { return &workflow.ModerationState{} },
		GetID: func(s *workflow.ModerationState) uuid.UUID {
			return s.ID
		},
		SetID: func(s *workflow.ModerationState, id uuid.UUID) {
			s.ID = id
		},
		GetIdentifier: func() string {
			return "name"
		},
		GetIdentifierValue: func(s *workflow.ModerationState) string {
			return s.Name
		},
	})
}

func newTransitionRepository(db *bun.DB) repository.Repository[*workflow.StateTransition] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*workflow.StateTransition]{
		NewRecord: func() *workflow.StateTransition { return &workflow.StateTransition{} },
		GetID: func(t *workflow.StateTransition) uuid.UUID {
			return t.ID
		},
		SetID: func(t *workflow.StateTransition, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "name"
		},
		GetIdentifierValue: func(t *workflow.StateTransition) string {
			return t.Name
		},
	})
}

// BunStateRepository persists moderation states through go-repository-bun.
type BunStateRepository struct {
	repo repository.Repository[*workflow.ModerationState]
}

var _ workflow.StateRepository = (*BunStateRepository)(nil)

func NewBunStateRepository(db *bun.DB) *BunStateRepository {
	return NewBunStateRepositoryWithCache(db, nil, nil)
}

// NewBunStateRepositoryWithCache constructs a StateRepository with optional
// caching. States are read on every moderated save, so the cache layer pays
// for itself quickly.
func NewBunStateRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunStateRepository {
	base := newStateRepository(db)
	return &BunStateRepository{repo: wrapWithCache(base, cacheService, keySerializer)}
}

func (r *BunStateRepository) Create(ctx context.Context, state *workflow.ModerationState) (*workflow.ModerationState, error) {
	created, err := r.repo.Create(ctx, state)
	if err != nil {
		return nil, mapRepositoryError(err, "state", state.Name)
	}
	return created, nil
}

func (r *BunStateRepository) Update(ctx context.Context, state *workflow.ModerationState) (*workflow.ModerationState, error) {
	updated, err := r.repo.Update(ctx, state)
	if err != nil {
		return nil, mapRepositoryError(err, "state", state.Name)
	}
	return updated, nil
}

func (r *BunStateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.repo.Delete(ctx, &workflow.ModerationState{ID: id})
}

func (r *BunStateRepository) GetByName(ctx context.Context, name string) (*workflow.ModerationState, error) {
	state, err := r.repo.GetByIdentifier(ctx, name)
	if err != nil {
		return nil, mapRepositoryError(err, "state", name)
	}
	return state, nil
}

func (r *BunStateRepository) List(ctx context.Context) ([]*workflow.ModerationState, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.weight ASC, ?TableAlias.name ASC")
		}),
	)
	return records, err
}

// BunTransitionRepository persists transitions through go-repository-bun.
type BunTransitionRepository struct {
	repo repository.Repository[*workflow.StateTransition]
}

var _ workflow.TransitionRepository = (*BunTransitionRepository)(nil)

func NewBunTransitionRepository(db *bun.DB) *BunTransitionRepository {
	return NewBunTransitionRepositoryWithCache(db, nil, nil)
}

func NewBunTransitionRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunTransitionRepository {
	base := newTransitionRepository(db)
	return &BunTransitionRepository{repo: wrapWithCache(base, cacheService, keySerializer)}
}

func (r *BunTransitionRepository) Create(ctx context.Context, transition *workflow.StateTransition) (*workflow.StateTransition, error) {
	created, err := r.repo.Create(ctx, transition)
	if err != nil {
		return nil, mapRepositoryError(err, "transition", transition.Name)
	}
	return created, nil
}

func (r *BunTransitionRepository) Update(ctx context.Context, transition *workflow.StateTransition) (*workflow.StateTransition, error) {
	updated, err := r.repo.Update(ctx, transition)
	if err != nil {
		return nil, mapRepositoryError(err, "transition", transition.Name)
	}
	return updated, nil
}

func (r *BunTransitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.repo.Delete(ctx, &workflow.StateTransition{ID: id})
}

func (r *BunTransitionRepository) GetByName(ctx context.Context, name string) (*workflow.StateTransition, error) {
	transition, err := r.repo.GetByIdentifier(ctx, name)
	if err != nil {
		return nil, mapRepositoryError(err, "transition", name)
	}
	return transition, nil
}

func (r *BunTransitionRepository) List(ctx context.Context) ([]*workflow.StateTransition, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.weight ASC, ?TableAlias.name ASC")
		}),
	)
	return records, err
}

func (r *BunTransitionRepository) ListFrom(ctx context.Context, fromState string) ([]*workflow.StateTransition, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.from_state = ?", fromState).
				OrderExpr("?TableAlias.weight ASC, ?TableAlias.name ASC")
		}),
	)
	return records, err
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &workflow.NotFoundError{
			Resource: resource,
			Key:      key,
		}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}
