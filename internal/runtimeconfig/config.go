package runtimeconfig

import (
	"errors"
	"strings"
	"time"

	urlkit "github.com/goliatone/go-urlkit"
)

var ErrLoggingProviderRequired = errors.New("workbench config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("workbench config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("workbench config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("workbench config: logging format is invalid")
var ErrStorageDriverUnknown = errors.New("workbench config: storage driver is invalid")
var ErrSeedStateInvalid = errors.New("workbench config: seed state requires a name")
var ErrSeedTransitionInvalid = errors.New("workbench config: seed transition requires name, from, and to")
var ErrRoutesRequireManager = errors.New("workbench config: destination routes require route configuration")

// Config aggregates feature flags and adapter bindings for the moderation
// module. Fields use simple types so host applications can extend them later.
type Config struct {
	Enabled         bool
	DefaultLangcode string
	Storage         StorageConfig
	Cache           CacheConfig
	Workflow        WorkflowConfig
	Routes          RoutesConfig
	Features        Features
	Logging         LoggingConfig
}

// StorageConfig selects the database driver backing the configuration and
// tracking tables.
type StorageConfig struct {
	Driver string
	DSN    string
}

// CacheConfig captures cache behaviour for the read-mostly state and
// transition repositories.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// WorkflowConfig declares the seed workflow installed on first run.
type WorkflowConfig struct {
	Seed        bool
	States      []WorkflowStateConfig
	Transitions []WorkflowTransitionConfig
}

// WorkflowStateConfig declares one seeded moderation state.
type WorkflowStateConfig struct {
	Name            string
	Label           string
	Published       bool
	DefaultRevision bool
	Weight          int
}

// WorkflowTransitionConfig declares one seeded transition edge. Seeds may
// install same-state "stay" edges that the admin surface would reject.
type WorkflowTransitionConfig struct {
	Name   string
	Label  string
	From   string
	To     string
	Weight int
}

// RoutesConfig wires go-urlkit destination resolution for post-save
// redirects.
type RoutesConfig struct {
	RouteConfig    *urlkit.Config
	Group          string
	CanonicalRoute string
	LatestRoute    string
}

// Features toggles module functionality.
type Features struct {
	Destinations bool
	Logger       bool
}

// LoggingConfig selects and tunes the logger provider.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns the module defaults: moderation enabled, the
// workbench seed workflow, and logging disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultLangcode: "en",
		Storage:         StorageConfig{Driver: "sqlite"},
		Workflow: WorkflowConfig{
			Seed: true,
			States: []WorkflowStateConfig{
				{Name: "draft", Label: "Draft", Weight: 0},
				{Name: "needs_review", Label: "Needs Review", Weight: 10},
				{Name: "published", Label: "Published", Published: true, DefaultRevision: true, Weight: 20},
				{Name: "archived", Label: "Archived", DefaultRevision: true, Weight: 30},
			},
			Transitions: []WorkflowTransitionConfig{
				{Name: "create_new_draft", Label: "Create New Draft", From: "draft", To: "draft"},
				{Name: "review", Label: "Send To Review", From: "draft", To: "needs_review"},
				{Name: "keep_in_review", Label: "Keep In Review", From: "needs_review", To: "needs_review"},
				{Name: "back_to_draft", Label: "Send Back To Draft", From: "needs_review", To: "draft"},
				{Name: "publish", Label: "Publish", From: "needs_review", To: "published"},
				{Name: "republish", Label: "Keep Published", From: "published", To: "published"},
				{Name: "new_draft_of_published", Label: "Create Draft Of Published", From: "published", To: "draft"},
				{Name: "archive", Label: "Archive", From: "published", To: "archived"},
				{Name: "restore", Label: "Restore To Draft", From: "archived", To: "draft"},
			},
		},
		Logging: LoggingConfig{Provider: "noop"},
	}
}

// Validate checks cross-field consistency and returns the first sentinel
// error encountered.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "sqlite", "postgres":
	default:
		return ErrStorageDriverUnknown
	}

	if c.Features.Logger {
		switch strings.ToLower(strings.TrimSpace(c.Logging.Provider)) {
		case "":
			return ErrLoggingProviderRequired
		case "noop", "gologger", "go-logger":
		default:
			return ErrLoggingProviderUnknown
		}
		switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
		case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
		default:
			return ErrLoggingLevelInvalid
		}
		switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
		case "", "json", "console", "pretty":
		default:
			return ErrLoggingFormatInvalid
		}
	}

	if c.Features.Destinations && c.Routes.RouteConfig == nil {
		return ErrRoutesRequireManager
	}

	for _, state := range c.Workflow.States {
		if strings.TrimSpace(state.Name) == "" {
			return ErrSeedStateInvalid
		}
	}
	for _, transition := range c.Workflow.Transitions {
		if strings.TrimSpace(transition.Name) == "" ||
			strings.TrimSpace(transition.From) == "" ||
			strings.TrimSpace(transition.To) == "" {
			return ErrSeedTransitionInvalid
		}
	}

	return nil
}
