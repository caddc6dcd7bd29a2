package di

import (
	"errors"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	urlkit "github.com/goliatone/go-urlkit"
	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/internal/logging/gologger"
	internalmoderation "github.com/goliatone/go-workbench/internal/moderation"
	"github.com/goliatone/go-workbench/internal/revisions"
	"github.com/goliatone/go-workbench/internal/runtimeconfig"
	internalworkflow "github.com/goliatone/go-workbench/internal/workflow"
	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrBunDBRequired             = errors.New("workbench: bun database is required")
	ErrEntityStoreRequired       = errors.New("workbench: entity store is required")
	ErrBundleConfigStoreRequired = errors.New("workbench: bundle config store is required")
)

// Container wires the module's services from configuration plus host-owned
// adapters. The host supplies storage; everything downstream of it is built
// here exactly once.
type Container struct {
	Config runtimeconfig.Config

	bunDB         *bun.DB
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer
	cacheTTL      time.Duration

	loggerProvider interfaces.LoggerProvider
	entityStore    interfaces.EntityStore
	bundleStore    interfaces.BundleConfigStore
	authorizer     interfaces.Authorizer
	routeManager   *urlkit.RouteManager
	subscribers    []moderation.Subscriber
	handlers       map[string]internalmoderation.Handler
	clock          func() time.Time
	idGen          func() uuid.UUID

	stateRepo      workflow.StateRepository
	transitionRepo workflow.TransitionRepository
	graph          *internalworkflow.TransitionGraph
	adminSvc       workflow.AdminService
	seeder         *internalworkflow.Seeder

	tracker       revisions.Tracker
	links         moderation.StateLinkRepository
	info          *internalmoderation.Information
	registry      *internalmoderation.HandlerRegistry
	reconciler    *internalmoderation.Reconciler
	validator     *internalmoderation.TransitionValidator
	destinations  *internalmoderation.DestinationResolver
	moderationSvc moderation.Service
}

// Option mutates the container before it is finalised.
type Option func(*Container)

func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache enables the repository cache layer around the workflow
// repositories.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

func WithEntityStore(store interfaces.EntityStore) Option {
	return func(c *Container) {
		c.entityStore = store
	}
}

func WithBundleConfigStore(store interfaces.BundleConfigStore) Option {
	return func(c *Container) {
		c.bundleStore = store
	}
}

func WithAuthorizer(authorizer interfaces.Authorizer) Option {
	return func(c *Container) {
		c.authorizer = authorizer
	}
}

func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

func WithRouteManager(manager *urlkit.RouteManager) Option {
	return func(c *Container) {
		c.routeManager = manager
	}
}

func WithSubscriber(subscriber moderation.Subscriber) Option {
	return func(c *Container) {
		if subscriber != nil {
			c.subscribers = append(c.subscribers, subscriber)
		}
	}
}

// WithModerationHandler registers a per entity-type save handler.
func WithModerationHandler(entityType string, handler internalmoderation.Handler) Option {
	return func(c *Container) {
		if entityType != "" && handler != nil {
			c.handlers[entityType] = handler
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.clock = now
		}
	}
}

func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(c *Container) {
		if gen != nil {
			c.idGen = gen
		}
	}
}

// NewContainer validates the configuration and builds the full service
// graph.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		handlers: make(map[string]internalmoderation.Handler),
		clock:    time.Now,
		idGen:    uuid.New,
		cacheTTL: cfg.Cache.DefaultTTL,
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = time.Minute
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.bunDB == nil {
		return nil, ErrBunDBRequired
	}
	if c.entityStore == nil {
		return nil, ErrEntityStoreRequired
	}
	if c.bundleStore == nil {
		return nil, ErrBundleConfigStoreRequired
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.configureRouteManager()
	c.configureWorkflow()
	c.configureModeration()
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "noop":
		// Leave the provider nil; services fall back to no-op loggers.
		return nil
	case "gologger", "go-logger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
		return nil
	default:
		return runtimeconfig.ErrLoggingProviderUnknown
	}
}

// configureCacheDefaults builds a cache service from configuration when the
// cache feature is on and the host did not inject one.
func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.cacheTTL > 0 {
			cfg.TTL = c.cacheTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRouteManager() {
	if c.routeManager != nil {
		return
	}
	if c.Config.Routes.RouteConfig == nil {
		return
	}
	c.routeManager = urlkit.NewRouteManager(c.Config.Routes.RouteConfig)
}

func (c *Container) configureWorkflow() {
	if c.cacheService != nil && c.keySerializer != nil {
		c.stateRepo = internalworkflow.NewBunStateRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		c.transitionRepo = internalworkflow.NewBunTransitionRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	} else {
		c.stateRepo = internalworkflow.NewBunStateRepository(c.bunDB)
		c.transitionRepo = internalworkflow.NewBunTransitionRepository(c.bunDB)
	}

	c.graph = internalworkflow.NewTransitionGraph(c.stateRepo, c.transitionRepo, c.authorizer)

	workflowLogger := logging.WorkflowLogger(c.loggerProvider)
	c.adminSvc = internalworkflow.NewAdminService(c.stateRepo, c.transitionRepo, c.graph,
		internalworkflow.WithAdminLogger(workflowLogger),
		internalworkflow.WithAdminClock(c.clock),
		internalworkflow.WithAdminIDGenerator(c.idGen),
	)
	c.seeder = internalworkflow.NewSeeder(c.stateRepo, c.transitionRepo, c.graph,
		internalworkflow.WithSeederLogger(workflowLogger),
		internalworkflow.WithSeederClock(c.clock),
		internalworkflow.WithSeederIDGenerator(c.idGen),
	)
}

func (c *Container) configureModeration() {
	moderationLogger := logging.ModerationLogger(c.loggerProvider)

	c.tracker = revisions.NewBunTracker(c.bunDB,
		revisions.WithTrackerLogger(logging.RevisionsLogger(c.loggerProvider)),
		revisions.WithTrackerClock(c.clock),
	)
	c.links = internalmoderation.NewBunStateLinkRepository(c.bunDB,
		internalmoderation.WithStateLinkClock(c.clock),
		internalmoderation.WithStateLinkIDGenerator(c.idGen),
	)
	c.info = internalmoderation.NewInformation(c.entityStore, c.bundleStore, c.tracker,
		internalmoderation.WithInformationLogger(moderationLogger),
	)

	c.registry = internalmoderation.NewHandlerRegistry()
	for entityType, handler := range c.handlers {
		c.registry.Register(entityType, handler)
	}

	c.reconciler = internalmoderation.NewReconciler(
		c.info,
		c.stateRepo,
		c.links,
		c.tracker,
		c.registry,
		c.entityStore,
		internalmoderation.WithReconcilerLogger(moderationLogger),
	)
	c.validator = internalmoderation.NewTransitionValidator(c.graph, c.stateRepo)

	serviceOpts := []internalmoderation.ServiceOption{
		internalmoderation.WithServiceLogger(moderationLogger),
		internalmoderation.WithSubscribers(c.subscribers...),
	}
	if c.Config.Features.Destinations && c.routeManager != nil {
		c.destinations = internalmoderation.NewDestinationResolver(c.routeManager, c.Config.Routes)
		serviceOpts = append(serviceOpts, internalmoderation.WithDestinationResolver(c.destinations))
	}

	c.moderationSvc = internalmoderation.NewService(
		c.info,
		c.reconciler,
		c.validator,
		c.graph,
		c.links,
		c.entityStore,
		serviceOpts...,
	)
}

// WorkflowAdmin returns the workflow administration service.
func (c *Container) WorkflowAdmin() workflow.AdminService { return c.adminSvc }

// Moderation returns the moderated save service.
func (c *Container) Moderation() moderation.Service { return c.moderationSvc }

// Graph returns the transition graph.
func (c *Container) Graph() workflow.Graph { return c.graph }

// Seeder returns the workflow seeder.
func (c *Container) Seeder() *internalworkflow.Seeder { return c.seeder }

// Information returns the moderation information service.
func (c *Container) Information() *internalmoderation.Information { return c.info }

// Tracker returns the latest-revision tracker.
func (c *Container) Tracker() revisions.Tracker { return c.tracker }

// StateLinks returns the revision state link repository.
func (c *Container) StateLinks() moderation.StateLinkRepository { return c.links }

// RouteManager returns the urlkit route manager, if configured.
func (c *Container) RouteManager() *urlkit.RouteManager { return c.routeManager }

// LoggerProvider returns the configured logger provider, possibly nil.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// DB returns the bun handle the module was wired with.
func (c *Container) DB() *bun.DB { return c.bunDB }
