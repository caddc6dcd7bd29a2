package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-workbench/internal/runtimeconfig"
	internalworkflow "github.com/goliatone/go-workbench/internal/workflow"
	"github.com/goliatone/go-workbench/pkg/testsupport"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
)

func TestTransitionGraph_ReachabilityAndTargets(t *testing.T) {
	ctx := context.Background()

	bunDB := newWorkflowDB(t)
	states := internalworkflow.NewBunStateRepository(bunDB)
	transitions := internalworkflow.NewBunTransitionRepository(bunDB)

	editor := uuid.MustParse("00000000-0000-0000-0000-0000000000e1")
	publisher := uuid.MustParse("00000000-0000-0000-0000-0000000000e2")
	authorizer := &testsupport.StaticAuthorizer{
		Grants: map[uuid.UUID][]string{
			editor: {
				"moderation:transition:create_new_draft",
				"moderation:transition:review",
			},
			publisher: {
				"moderation:transition:review",
				"moderation:transition:publish",
				"moderation:transition:republish",
				"moderation:transition:back_to_draft",
			},
		},
	}
	graph := internalworkflow.NewTransitionGraph(states, transitions, authorizer)

	seeder := internalworkflow.NewSeeder(states, transitions, graph)
	if err := seeder.Seed(ctx, internalworkflow.DefaultDocument(runtimeconfig.DefaultConfig().Workflow)); err != nil {
		t.Fatalf("seed workflow: %v", err)
	}

	for _, tc := range []struct {
		from string
		to   string
		want bool
	}{
		{"draft", "needs_review", true},
		{"needs_review", "published", true},
		{"published", "archived", true},
		{"draft", "published", false},
		{"archived", "published", false},
		// Self-edges are pure edge membership: draft and needs_review carry
		// explicit "stay" edges in the seed workflow, archived does not.
		{"draft", "draft", true},
		{"needs_review", "needs_review", true},
		{"archived", "archived", false},
	} {
		got, err := graph.IsAllowed(ctx, tc.from, tc.to)
		if err != nil {
			t.Fatalf("is allowed %s -> %s: %v", tc.from, tc.to, err)
		}
		if got != tc.want {
			t.Fatalf("is allowed %s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}

	ok, err := graph.IsAllowedForActor(ctx, "needs_review", "published", editor)
	if err != nil {
		t.Fatalf("actor check: %v", err)
	}
	if ok {
		t.Fatal("editor must not be allowed to publish")
	}
	ok, err = graph.IsAllowedForActor(ctx, "needs_review", "published", publisher)
	if err != nil {
		t.Fatalf("actor check: %v", err)
	}
	if !ok {
		t.Fatal("publisher must be allowed to publish")
	}

	// Self-edges gate on their transition permission like any other edge.
	ok, err = graph.IsAllowedForActor(ctx, "published", "published", editor)
	if err != nil {
		t.Fatalf("actor check: %v", err)
	}
	if ok {
		t.Fatal("editor must not hold the republish grant")
	}
	ok, err = graph.IsAllowedForActor(ctx, "published", "published", publisher)
	if err != nil {
		t.Fatalf("actor check: %v", err)
	}
	if !ok {
		t.Fatal("publisher must be allowed to republish")
	}
	ok, err = graph.IsAllowedForActor(ctx, "archived", "archived", publisher)
	if err != nil {
		t.Fatalf("actor check: %v", err)
	}
	if ok {
		t.Fatal("archived has no stay edge, so staying put is not a transition")
	}

	targets, err := graph.ValidTargets(ctx, "needs_review", nil, &publisher)
	if err != nil {
		t.Fatalf("valid targets: %v", err)
	}
	names := stateNames(targets)
	if len(names) != 3 || names[0] != "draft" || names[1] != "needs_review" || names[2] != "published" {
		t.Fatalf("unexpected publisher targets %v", names)
	}

	// The current state stays listed even when the actor holds no grants.
	nobody := uuid.MustParse("00000000-0000-0000-0000-0000000000e9")
	targets, err = graph.ValidTargets(ctx, "needs_review", nil, &nobody)
	if err != nil {
		t.Fatalf("valid targets: %v", err)
	}
	names = stateNames(targets)
	if len(names) != 1 || names[0] != "needs_review" {
		t.Fatalf("expected only current state, got %v", names)
	}

	// Bundle allow lists cut targets before permissions do.
	targets, err = graph.ValidTargets(ctx, "needs_review", []string{"draft", "needs_review"}, &publisher)
	if err != nil {
		t.Fatalf("valid targets: %v", err)
	}
	names = stateNames(targets)
	if len(names) != 2 || names[0] != "draft" || names[1] != "needs_review" {
		t.Fatalf("expected allow-listed targets, got %v", names)
	}

	transition, err := graph.TransitionFor(ctx, "needs_review", "published")
	if err != nil {
		t.Fatalf("transition for: %v", err)
	}
	if transition.Name != "publish" {
		t.Fatalf("expected publish transition, got %q", transition.Name)
	}
	if _, err := graph.TransitionFor(ctx, "archived", "published"); !errors.Is(err, workflow.ErrTransitionNotFound) {
		t.Fatalf("expected ErrTransitionNotFound, got %v", err)
	}
}

func TestTransitionGraph_InvalidateSeesAdminWrites(t *testing.T) {
	ctx := context.Background()

	bunDB := newWorkflowDB(t)
	states := internalworkflow.NewBunStateRepository(bunDB)
	transitions := internalworkflow.NewBunTransitionRepository(bunDB)
	graph := internalworkflow.NewTransitionGraph(states, transitions, nil)
	admin := internalworkflow.NewAdminService(states, transitions, graph)

	for _, seed := range []workflow.CreateStateRequest{
		{Name: "draft", Label: "Draft"},
		{Name: "published", Label: "Published", Published: true, DefaultRevision: true, Weight: 20},
	} {
		if _, err := admin.CreateState(ctx, seed); err != nil {
			t.Fatalf("create %s: %v", seed.Name, err)
		}
	}

	ok, err := graph.IsAllowed(ctx, "draft", "published")
	if err != nil {
		t.Fatalf("is allowed: %v", err)
	}
	if ok {
		t.Fatal("edge must not exist before the transition is created")
	}

	if _, err := admin.CreateTransition(ctx, workflow.CreateTransitionRequest{
		Name:      "publish",
		Label:     "Publish",
		FromState: "draft",
		ToState:   "published",
	}); err != nil {
		t.Fatalf("create transition: %v", err)
	}

	ok, err = graph.IsAllowed(ctx, "draft", "published")
	if err != nil {
		t.Fatalf("is allowed after create: %v", err)
	}
	if !ok {
		t.Fatal("admin write must be visible after invalidation")
	}
}

func stateNames(states []*workflow.ModerationState) []string {
	names := make([]string, 0, len(states))
	for _, state := range states {
		names = append(names, state.Name)
	}
	return names
}
