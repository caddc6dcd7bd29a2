package moderation

import (
	"context"
	"errors"

	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/internal/revisions"
	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/google/uuid"
)

// Information answers "is this thing moderated" and revision-topology
// questions. Bundle lookups fail closed: a missing or unreadable config means
// moderation is off for that bundle.
type Information struct {
	store   interfaces.EntityStore
	bundles interfaces.BundleConfigStore
	tracker revisions.Tracker
	logger  interfaces.Logger
}

// InformationOption configures an Information service.
type InformationOption func(*Information)

func WithInformationLogger(logger interfaces.Logger) InformationOption {
	return func(i *Information) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func NewInformation(store interfaces.EntityStore, bundles interfaces.BundleConfigStore, tracker revisions.Tracker, opts ...InformationOption) *Information {
	info := &Information{
		store:   store,
		bundles: bundles,
		tracker: tracker,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(info)
	}
	return info
}

// IsModeratedEntity reports whether the entity participates in moderation:
// its type must be revisionable and its bundle must be enabled.
func (i *Information) IsModeratedEntity(ctx context.Context, entity interfaces.RevisionableEntity) bool {
	if entity == nil {
		return false
	}
	if !i.store.Revisionable(entity.EntityTypeID()) {
		return false
	}
	return i.IsModeratedBundle(ctx, entity.EntityTypeID(), entity.Bundle())
}

func (i *Information) IsModeratedBundle(ctx context.Context, entityType, bundle string) bool {
	cfg, err := i.bundles.BundleConfig(ctx, entityType, bundle)
	if err != nil {
		i.logger.Warn("bundle config lookup failed, treating bundle as unmoderated",
			"entity_type", entityType,
			"bundle", bundle,
			"error", err,
		)
		return false
	}
	return cfg != nil && cfg.Enabled
}

// BundleConfig returns the moderation settings for a bundle, or nil when the
// bundle is not configured.
func (i *Information) BundleConfig(ctx context.Context, entityType, bundle string) (*interfaces.BundleConfig, error) {
	return i.bundles.BundleConfig(ctx, entityType, bundle)
}

// DefaultStateFor resolves the state a save lands in when the editor named
// none. A moderated bundle without a default state is a configuration error.
func (i *Information) DefaultStateFor(ctx context.Context, entityType, bundle string) (string, error) {
	cfg, err := i.bundles.BundleConfig(ctx, entityType, bundle)
	if err != nil {
		return "", err
	}
	if cfg == nil || cfg.DefaultState == "" {
		return "", moderation.ErrNoDefaultState
	}
	return cfg.DefaultState, nil
}

// SelectModeratedBundles lists every bundle with moderation enabled.
func (i *Information) SelectModeratedBundles(ctx context.Context) ([]*interfaces.BundleConfig, error) {
	all, err := i.bundles.ListBundles(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]*interfaces.BundleConfig, 0, len(all))
	for _, cfg := range all {
		if cfg != nil && cfg.Enabled {
			enabled = append(enabled, cfg)
		}
	}
	return enabled, nil
}

// IsLatestRevision reports whether the entity carries the newest revision
// recorded for its language.
func (i *Information) IsLatestRevision(ctx context.Context, entity interfaces.RevisionableEntity) (bool, error) {
	if entity == nil {
		return false, moderation.ErrEntityRequired
	}
	latest, err := i.latestRevisionID(ctx, entity.EntityTypeID(), entity.ID(), entity.Langcode())
	if err != nil {
		if errors.Is(err, moderation.ErrNoTrackedRevision) {
			// Nothing recorded yet; the revision in hand is as new as it gets.
			return true, nil
		}
		return false, err
	}
	return entity.RevisionID() == latest, nil
}

// LatestRevision loads the newest revision for the entity translation.
func (i *Information) LatestRevision(ctx context.Context, entityType string, id uuid.UUID, langcode string) (interfaces.RevisionableEntity, error) {
	latest, err := i.latestRevisionID(ctx, entityType, id, langcode)
	if err != nil {
		return nil, err
	}
	return i.store.LoadRevision(ctx, entityType, latest, langcode)
}

// HasForwardRevision reports whether a revision newer than the default one
// exists, i.e. there is unpublished work ahead of the live copy.
func (i *Information) HasForwardRevision(ctx context.Context, entity interfaces.RevisionableEntity) (bool, error) {
	if entity == nil {
		return false, moderation.ErrEntityRequired
	}
	defaultRev, err := i.store.Load(ctx, entity.EntityTypeID(), entity.ID(), entity.Langcode())
	if err != nil {
		return false, err
	}
	latest, err := i.latestRevisionID(ctx, entity.EntityTypeID(), entity.ID(), entity.Langcode())
	if err != nil {
		if errors.Is(err, moderation.ErrNoTrackedRevision) {
			return false, nil
		}
		return false, err
	}
	return latest > defaultRev.RevisionID(), nil
}

// LatestRevisionID returns the newest revision id recorded for the entity
// translation, or ErrNoTrackedRevision.
func (i *Information) LatestRevisionID(ctx context.Context, entityType string, id uuid.UUID, langcode string) (int64, error) {
	return i.latestRevisionID(ctx, entityType, id, langcode)
}

// latestRevisionID prefers the tracker and falls back to scanning the store's
// revision ids when the tracker has no row, healing the tracker gap over time
// as entities are re-saved.
func (i *Information) latestRevisionID(ctx context.Context, entityType string, id uuid.UUID, langcode string) (int64, error) {
	latest, err := i.tracker.LatestRevisionID(ctx, entityType, id, langcode)
	if err == nil {
		return latest, nil
	}
	if !errors.Is(err, revisions.ErrNoTrackedRevision) {
		return 0, err
	}

	ids, err := i.store.AllRevisionIDs(ctx, entityType, id, langcode)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, moderation.ErrNoTrackedRevision
	}
	return ids[len(ids)-1], nil
}
