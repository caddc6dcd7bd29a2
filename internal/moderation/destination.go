package moderation

import (
	"fmt"

	urlkit "github.com/goliatone/go-urlkit"
	"github.com/goliatone/go-workbench/internal/runtimeconfig"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
)

// DestinationResolver decides where an editor lands after a moderated save:
// the canonical route when the landed-in state makes the revision the default
// one, the latest-version route otherwise. A resolver without a route manager
// resolves every destination to the empty string.
type DestinationResolver struct {
	manager   *urlkit.RouteManager
	group     string
	canonical string
	latest    string
}

func NewDestinationResolver(manager *urlkit.RouteManager, cfg runtimeconfig.RoutesConfig) *DestinationResolver {
	return &DestinationResolver{
		manager:   manager,
		group:     cfg.Group,
		canonical: cfg.CanonicalRoute,
		latest:    cfg.LatestRoute,
	}
}

func (r *DestinationResolver) DestinationFor(entity interfaces.RevisionableEntity, state *workflow.ModerationState) (string, error) {
	if r == nil || r.manager == nil || entity == nil || state == nil {
		return "", nil
	}

	route := r.latest
	if state.DefaultRevision {
		route = r.canonical
	}
	if route == "" {
		return "", nil
	}

	group, err := r.lookupGroup()
	if err != nil {
		return "", err
	}
	builder, err := r.safeBuilder(group, route)
	if err != nil {
		return "", err
	}

	builder.WithParam("entity_type", entity.EntityTypeID())
	builder.WithParam("id", entity.ID().String())
	if langcode := entity.Langcode(); langcode != "" {
		builder.WithParam("langcode", langcode)
	}

	return builder.Build()
}

// lookupGroup recovers from urlkit's panic on unknown groups so a route
// misconfiguration surfaces as an error on the save result instead of
// crashing the save.
func (r *DestinationResolver) lookupGroup() (group *urlkit.Group, err error) {
	if r.group == "" {
		return nil, fmt.Errorf("moderation: destination route group not configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("moderation: route group %q not found", r.group)
		}
	}()
	group = r.manager.Group(r.group)
	return group, err
}

func (r *DestinationResolver) safeBuilder(group *urlkit.Group, route string) (builder *urlkit.Builder, err error) {
	if group == nil {
		return nil, fmt.Errorf("moderation: urlkit group is nil")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("moderation: urlkit builder panic: %v", rec)
		}
	}()
	builder = group.Builder(route)
	return builder, err
}
