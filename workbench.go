package workbench

import (
	"context"

	"github.com/goliatone/go-workbench/internal/di"
	internalmoderation "github.com/goliatone/go-workbench/internal/moderation"
	internalworkflow "github.com/goliatone/go-workbench/internal/workflow"
	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/workflow"
)

// ModerationService exports the moderated save contract for consumers of the
// workbench package.
type ModerationService = moderation.Service

// WorkflowAdminService exports the workflow administration contract.
type WorkflowAdminService = workflow.AdminService

// TransitionGraph exports the transition reachability contract.
type TransitionGraph = workflow.Graph

// SaveRequest exports the moderated save request.
type SaveRequest = moderation.SaveRequest

// SaveResult exports the moderated save result.
type SaveResult = moderation.SaveResult

// TransitionEvent exports the pre-save transition notification.
type TransitionEvent = moderation.TransitionEvent

// Subscriber exports the transition event observer contract.
type Subscriber = moderation.Subscriber

// ModerationHandler exports the per entity-type save handler contract so
// hosts can register custom handlers through WithModerationHandler.
type ModerationHandler = internalmoderation.Handler

// SeedDocument exports the declarative workflow topology format.
type SeedDocument = internalworkflow.SeedDocument

// Module is the top level moderation runtime facade.
type Module struct {
	container *di.Container
}

// New constructs a workbench module using the provided configuration and
// optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Moderation returns the moderated save service.
func (m *Module) Moderation() ModerationService {
	return m.container.Moderation()
}

// WorkflowAdmin returns the workflow administration service.
func (m *Module) WorkflowAdmin() WorkflowAdminService {
	return m.container.WorkflowAdmin()
}

// Graph returns the transition graph.
func (m *Module) Graph() TransitionGraph {
	return m.container.Graph()
}

// SeedWorkflow installs the configured workflow topology. With no explicit
// document it seeds the states and transitions from the module configuration;
// existing records are left untouched.
func (m *Module) SeedWorkflow(ctx context.Context, docs ...SeedDocument) error {
	seeder := m.container.Seeder()
	if len(docs) == 0 {
		return seeder.Seed(ctx, internalworkflow.DefaultDocument(m.container.Config.Workflow))
	}
	for _, doc := range docs {
		if err := seeder.Seed(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}
