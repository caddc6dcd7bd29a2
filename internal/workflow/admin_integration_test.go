package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	internalworkflow "github.com/goliatone/go-workbench/internal/workflow"
	"github.com/goliatone/go-workbench/pkg/testsupport"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func TestAdminService_StateAndTransitionLifecycle(t *testing.T) {
	ctx := context.Background()

	bunDB := newWorkflowDB(t)

	cacheCfg := repocache.DefaultConfig()
	cacheCfg.TTL = time.Minute
	cacheSvc, err := repocache.NewCacheService(cacheCfg)
	if err != nil {
		t.Fatalf("cache service: %v", err)
	}
	keySerializer := repocache.NewDefaultKeySerializer()

	states := internalworkflow.NewBunStateRepositoryWithCache(bunDB, cacheSvc, keySerializer)
	transitions := internalworkflow.NewBunTransitionRepositoryWithCache(bunDB, cacheSvc, keySerializer)
	graph := internalworkflow.NewTransitionGraph(states, transitions, nil)

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	admin := internalworkflow.NewAdminService(states, transitions, graph,
		internalworkflow.WithAdminClock(func() time.Time { return now }),
		internalworkflow.WithAdminIDGenerator(sequentialUUIDs(
			"00000000-0000-0000-0000-000000000a01",
			"00000000-0000-0000-0000-000000000a02",
			"00000000-0000-0000-0000-000000000a03",
			"00000000-0000-0000-0000-000000000b01",
			"00000000-0000-0000-0000-000000000b02",
		)),
	)

	draft, err := admin.CreateState(ctx, workflow.CreateStateRequest{
		Label:  "Draft",
		Weight: 0,
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if draft.Name != "draft" {
		t.Fatalf("expected machine name derived from label, got %q", draft.Name)
	}

	published, err := admin.CreateState(ctx, workflow.CreateStateRequest{
		Name:            "published",
		Label:           "Published",
		Published:       true,
		DefaultRevision: true,
		Weight:          20,
	})
	if err != nil {
		t.Fatalf("create published: %v", err)
	}
	if !published.Published || !published.DefaultRevision {
		t.Fatalf("published flags not persisted: %#v", published)
	}

	if _, err := admin.CreateState(ctx, workflow.CreateStateRequest{Name: "draft", Label: "Other Draft"}); !errors.Is(err, workflow.ErrStateExists) {
		t.Fatalf("expected ErrStateExists, got %v", err)
	}
	if _, err := admin.CreateState(ctx, workflow.CreateStateRequest{Name: "nameless"}); err == nil {
		t.Fatal("expected validation error for missing label")
	}

	publish, err := admin.CreateTransition(ctx, workflow.CreateTransitionRequest{
		Label:     "Publish",
		FromState: "draft",
		ToState:   "published",
		Weight:    10,
	})
	if err != nil {
		t.Fatalf("create publish transition: %v", err)
	}
	if publish.Name != "publish" {
		t.Fatalf("expected derived transition name, got %q", publish.Name)
	}

	if _, err := admin.CreateTransition(ctx, workflow.CreateTransitionRequest{
		Label:     "Stay",
		FromState: "draft",
		ToState:   "draft",
	}); !errors.Is(err, workflow.ErrTransitionSelfLoop) {
		t.Fatalf("expected ErrTransitionSelfLoop, got %v", err)
	}

	if _, err := admin.CreateTransition(ctx, workflow.CreateTransitionRequest{
		Label:     "To Nowhere",
		FromState: "draft",
		ToState:   "missing",
	}); !errors.Is(err, workflow.ErrTransitionEndpoints) {
		t.Fatalf("expected ErrTransitionEndpoints, got %v", err)
	}

	if err := admin.DeleteState(ctx, "published"); !errors.Is(err, workflow.ErrStateInUse) {
		t.Fatalf("expected ErrStateInUse, got %v", err)
	}

	newLabel := "Go Live"
	newWeight := 5
	updated, err := admin.UpdateTransition(ctx, "publish", workflow.UpdateTransitionRequest{
		Label:  &newLabel,
		Weight: &newWeight,
	})
	if err != nil {
		t.Fatalf("update transition: %v", err)
	}
	if updated.Label != newLabel || updated.Weight != newWeight {
		t.Fatalf("transition update not applied: %#v", updated)
	}

	if err := admin.DeleteTransition(ctx, "publish"); err != nil {
		t.Fatalf("delete transition: %v", err)
	}
	if err := admin.DeleteState(ctx, "published"); err != nil {
		t.Fatalf("delete published after edge removal: %v", err)
	}
	if _, err := admin.GetState(ctx, "published"); !errors.Is(err, workflow.ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound after delete, got %v", err)
	}

	remaining, err := admin.ListStates(ctx)
	if err != nil {
		t.Fatalf("list states: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Name != "draft" {
		t.Fatalf("unexpected remaining states %#v", remaining)
	}
}

func TestAdminService_ListStatesOrderedByWeight(t *testing.T) {
	ctx := context.Background()

	bunDB := newWorkflowDB(t)
	states := internalworkflow.NewBunStateRepository(bunDB)
	transitions := internalworkflow.NewBunTransitionRepository(bunDB)
	graph := internalworkflow.NewTransitionGraph(states, transitions, nil)
	admin := internalworkflow.NewAdminService(states, transitions, graph)

	for _, seed := range []workflow.CreateStateRequest{
		{Name: "archived", Label: "Archived", Weight: 30},
		{Name: "draft", Label: "Draft", Weight: 0},
		{Name: "needs_review", Label: "Needs Review", Weight: 10},
	} {
		if _, err := admin.CreateState(ctx, seed); err != nil {
			t.Fatalf("create %s: %v", seed.Name, err)
		}
	}

	listed, err := admin.ListStates(ctx)
	if err != nil {
		t.Fatalf("list states: %v", err)
	}
	got := make([]string, 0, len(listed))
	for _, state := range listed {
		got = append(got, state.Name)
	}
	want := []string{"draft", "needs_review", "archived"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func newWorkflowDB(t *testing.T) *bun.DB {
	t.Helper()

	bunDB, err := testsupport.NewBunSQLiteDB()
	if err != nil {
		t.Fatalf("new bun sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = bunDB.Close() })

	registerWorkflowModels(t, bunDB)
	return bunDB
}

func registerWorkflowModels(t *testing.T, db *bun.DB) {
	t.Helper()

	ctx := context.Background()
	models := []any{
		(*workflow.ModerationState)(nil),
		(*workflow.StateTransition)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table %T: %v", model, err)
		}
	}
}

func sequentialUUIDs(values ...string) workflow.IDGenerator {
	ids := make([]uuid.UUID, len(values))
	for i, value := range values {
		ids[i] = uuid.MustParse(value)
	}
	var idx int
	return func() uuid.UUID {
		if idx >= len(ids) {
			return uuid.New()
		}
		id := ids[idx]
		idx++
		return id
	}
}
