package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/internal/runtimeconfig"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// SeedState describes one state in a seed document.
type SeedState struct {
	Name            string `json:"name"`
	Label           string `json:"label"`
	Published       bool   `json:"published"`
	DefaultRevision bool   `json:"default_revision"`
	Weight          int    `json:"weight"`
}

// SeedTransition describes one transition in a seed document. Unlike the
// admin API, seed documents may declare self loops so editors can re-save
// content without leaving its current state.
type SeedTransition struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// SeedDocument is the declarative form of a workflow topology.
type SeedDocument struct {
	States      []SeedState      `json:"states"`
	Transitions []SeedTransition `json:"transitions"`
}

const seedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["states", "transitions"],
  "properties": {
    "states": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "label"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "label": {"type": "string", "minLength": 1},
          "published": {"type": "boolean"},
          "default_revision": {"type": "boolean"},
          "weight": {"type": "integer"}
        }
      }
    },
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "label", "from", "to"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "label": {"type": "string", "minLength": 1},
          "from": {"type": "string", "minLength": 1},
          "to": {"type": "string", "minLength": 1},
          "weight": {"type": "integer"}
        }
      }
    }
  }
}`

// DefaultDocument builds a seed document from the runtime configuration's
// workflow section.
func DefaultDocument(cfg runtimeconfig.WorkflowConfig) SeedDocument {
	doc := SeedDocument{
		States:      make([]SeedState, 0, len(cfg.States)),
		Transitions: make([]SeedTransition, 0, len(cfg.Transitions)),
	}
	for _, state := range cfg.States {
		doc.States = append(doc.States, SeedState{
			Name:            state.Name,
			Label:           state.Label,
			Published:       state.Published,
			DefaultRevision: state.DefaultRevision,
			Weight:          state.Weight,
		})
	}
	for _, transition := range cfg.Transitions {
		doc.Transitions = append(doc.Transitions, SeedTransition{
			Name:   transition.Name,
			Label:  transition.Label,
			From:   transition.From,
			To:     transition.To,
			Weight: transition.Weight,
		})
	}
	return doc
}

// ValidateDocument checks a seed document against the embedded JSON schema
// plus the referential rules the schema cannot express.
func ValidateDocument(doc SeedDocument) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrSeedDocumentInvalid, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("workflow_seed.json", bytes.NewReader([]byte(seedSchema))); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrSeedDocumentInvalid, err)
	}
	schema, err := compiler.Compile("workflow_seed.json")
	if err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrSeedDocumentInvalid, err)
	}

	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrSeedDocumentInvalid, err)
	}
	if err := schema.Validate(payload); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("%w: %s", workflow.ErrSeedDocumentInvalid, validationErr.Message)
		}
		return fmt.Errorf("%w: %v", workflow.ErrSeedDocumentInvalid, err)
	}

	known := make(map[string]struct{}, len(doc.States))
	for _, state := range doc.States {
		if _, dup := known[state.Name]; dup {
			return fmt.Errorf("%w: duplicate state %q", workflow.ErrSeedDocumentInvalid, state.Name)
		}
		known[state.Name] = struct{}{}
	}
	names := make(map[string]struct{}, len(doc.Transitions))
	for _, transition := range doc.Transitions {
		if _, dup := names[transition.Name]; dup {
			return fmt.Errorf("%w: duplicate transition %q", workflow.ErrSeedDocumentInvalid, transition.Name)
		}
		names[transition.Name] = struct{}{}
		if _, ok := known[transition.From]; !ok {
			return fmt.Errorf("%w: transition %q references unknown state %q", workflow.ErrSeedDocumentInvalid, transition.Name, transition.From)
		}
		if _, ok := known[transition.To]; !ok {
			return fmt.Errorf("%w: transition %q references unknown state %q", workflow.ErrSeedDocumentInvalid, transition.Name, transition.To)
		}
	}
	return nil
}

// Seeder installs a workflow topology, skipping records that already exist
// so repeated startups are idempotent.
type Seeder struct {
	states      workflow.StateRepository
	transitions workflow.TransitionRepository
	graph       *TransitionGraph
	logger      interfaces.Logger
	now         func() time.Time
	id          workflow.IDGenerator
}

// SeederOption configures a Seeder.
type SeederOption func(*Seeder)

func WithSeederLogger(logger interfaces.Logger) SeederOption {
	return func(s *Seeder) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSeederClock(now func() time.Time) SeederOption {
	return func(s *Seeder) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSeederIDGenerator(gen workflow.IDGenerator) SeederOption {
	return func(s *Seeder) {
		if gen != nil {
			s.id = gen
		}
	}
}

func NewSeeder(states workflow.StateRepository, transitions workflow.TransitionRepository, graph *TransitionGraph, opts ...SeederOption) *Seeder {
	seeder := &Seeder{
		states:      states,
		transitions: transitions,
		graph:       graph,
		logger:      logging.NoOp(),
		now:         time.Now,
		id:          uuid.New,
	}
	for _, opt := range opts {
		opt(seeder)
	}
	return seeder
}

// Seed validates and installs the document. Existing states and transitions
// are left untouched, so operator edits survive restarts.
func (s *Seeder) Seed(ctx context.Context, doc SeedDocument) error {
	if err := ValidateDocument(doc); err != nil {
		return err
	}

	for _, seed := range doc.States {
		if _, err := s.states.GetByName(ctx, seed.Name); err == nil {
			continue
		} else if !errors.Is(err, workflow.ErrStateNotFound) {
			return err
		}
		nowTime := s.now()
		state := &workflow.ModerationState{
			ID:              s.id(),
			Name:            seed.Name,
			Label:           seed.Label,
			Published:       seed.Published,
			DefaultRevision: seed.DefaultRevision,
			Weight:          seed.Weight,
			CreatedAt:       nowTime,
			UpdatedAt:       nowTime,
		}
		if _, err := s.states.Create(ctx, state); err != nil {
			return err
		}
		s.logger.Debug("seeded moderation state", "name", seed.Name)
	}

	for _, seed := range doc.Transitions {
		if _, err := s.transitions.GetByName(ctx, seed.Name); err == nil {
			continue
		} else if !errors.Is(err, workflow.ErrTransitionNotFound) {
			return err
		}
		nowTime := s.now()
		transition := &workflow.StateTransition{
			ID:        s.id(),
			Name:      seed.Name,
			Label:     seed.Label,
			FromState: seed.From,
			ToState:   seed.To,
			Weight:    seed.Weight,
			CreatedAt: nowTime,
			UpdatedAt: nowTime,
		}
		if _, err := s.transitions.Create(ctx, transition); err != nil {
			return err
		}
		s.logger.Debug("seeded state transition", "name", seed.Name, "from", seed.From, "to", seed.To)
	}

	s.graph.Invalidate()
	s.logger.Info("workflow seed applied", "states", len(doc.States), "transitions", len(doc.Transitions))
	return nil
}
