package moderation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	urlkit "github.com/goliatone/go-urlkit"
	internalmoderation "github.com/goliatone/go-workbench/internal/moderation"
	"github.com/goliatone/go-workbench/internal/revisions"
	"github.com/goliatone/go-workbench/internal/runtimeconfig"
	internalworkflow "github.com/goliatone/go-workbench/internal/workflow"
	"github.com/goliatone/go-workbench/moderation"
	"github.com/goliatone/go-workbench/pkg/interfaces"
	"github.com/goliatone/go-workbench/pkg/testsupport"
	"github.com/goliatone/go-workbench/workflow"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type moderationFixture struct {
	service    moderation.Service
	store      *testsupport.MemoryEntityStore
	bundles    *testsupport.MemoryBundleConfigStore
	links      moderation.StateLinkRepository
	tracker    revisions.Tracker
	graph      *internalworkflow.TransitionGraph
	info       *internalmoderation.Information
	authorizer *testsupport.StaticAuthorizer
	events     *[]moderation.TransitionEvent
}

func newModerationFixture(t *testing.T, opts ...internalmoderation.ServiceOption) *moderationFixture {
	t.Helper()
	ctx := context.Background()

	bunDB, err := testsupport.NewBunSQLiteDB()
	if err != nil {
		t.Fatalf("new bun sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = bunDB.Close() })
	registerModerationModels(t, bunDB)

	states := internalworkflow.NewBunStateRepository(bunDB)
	transitions := internalworkflow.NewBunTransitionRepository(bunDB)

	authorizer := &testsupport.StaticAuthorizer{AllowAll: true}
	graph := internalworkflow.NewTransitionGraph(states, transitions, authorizer)

	seeder := internalworkflow.NewSeeder(states, transitions, graph)
	if err := seeder.Seed(ctx, internalworkflow.DefaultDocument(runtimeconfig.DefaultConfig().Workflow)); err != nil {
		t.Fatalf("seed workflow: %v", err)
	}

	store := testsupport.NewMemoryEntityStore()
	bundles := testsupport.NewMemoryBundleConfigStore()
	bundles.Put(interfaces.BundleConfig{
		EntityType:   "node",
		Bundle:       "article",
		Enabled:      true,
		DefaultState: "draft",
	})

	tracker := revisions.NewBunTracker(bunDB)
	links := internalmoderation.NewBunStateLinkRepository(bunDB)
	info := internalmoderation.NewInformation(store, bundles, tracker)
	handlers := internalmoderation.NewHandlerRegistry()
	reconciler := internalmoderation.NewReconciler(info, states, links, tracker, handlers, store)
	validator := internalmoderation.NewTransitionValidator(graph, states)

	var events []moderation.TransitionEvent
	base := []internalmoderation.ServiceOption{
		internalmoderation.WithSubscribers(moderation.SubscriberFunc(func(ctx context.Context, event moderation.TransitionEvent) {
			events = append(events, event)
		})),
	}
	svc := internalmoderation.NewService(info, reconciler, validator, graph, links, store, append(base, opts...)...)

	return &moderationFixture{
		service:    svc,
		store:      store,
		bundles:    bundles,
		links:      links,
		tracker:    tracker,
		graph:      graph,
		info:       info,
		authorizer: authorizer,
		events:     &events,
	}
}

func registerModerationModels(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()
	models := []any{
		(*workflow.ModerationState)(nil),
		(*workflow.StateTransition)(nil),
		(*moderation.StateLink)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table %T: %v", model, err)
		}
	}
}

func TestService_ModeratedLifecycle(t *testing.T) {
	ctx := context.Background()
	fx := newModerationFixture(t)

	entity := testsupport.NewEntity("node", "article", "en")
	entity.Title = "Launch Announcement"

	// First save without an explicit state lands in the bundle default.
	result, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity})
	if err != nil {
		t.Fatalf("initial save: %v", err)
	}
	if result.Outcome != interfaces.SaveOutcomeCreated {
		t.Fatalf("expected created outcome, got %q", result.Outcome)
	}
	if result.StateBefore != "" || result.StateAfter != "draft" {
		t.Fatalf("expected \"\" -> draft, got %q -> %q", result.StateBefore, result.StateAfter)
	}
	if entity.IsPublished() {
		t.Fatal("draft save must not publish")
	}
	if !entity.IsDefaultRevision() {
		t.Fatal("first revision must be the default one")
	}

	state, err := fx.service.ResolveState(ctx, "node", entity.ID(), entity.RevisionID(), "en")
	if err != nil {
		t.Fatalf("resolve state: %v", err)
	}
	if state != "draft" {
		t.Fatalf("expected recorded draft state, got %q", state)
	}

	// Jumping draft -> published is not an edge in the seeded workflow.
	entity.SetModerationState("published")
	_, err = fx.service.Save(ctx, moderation.SaveRequest{Entity: entity})
	var violationErr *moderation.TransitionViolationError
	if !errors.As(err, &violationErr) {
		t.Fatalf("expected TransitionViolationError, got %v", err)
	}
	if !strings.Contains(violationErr.Violation.Message(), "Draft") {
		t.Fatalf("violation message should use state labels, got %q", violationErr.Violation.Message())
	}

	// draft -> needs_review -> published is the legal path.
	entity.SetModerationState("needs_review")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity}); err != nil {
		t.Fatalf("review save: %v", err)
	}
	entity.SetModerationState("published")
	result, err = fx.service.Save(ctx, moderation.SaveRequest{Entity: entity})
	if err != nil {
		t.Fatalf("publish save: %v", err)
	}
	if result.StateBefore != "needs_review" || result.StateAfter != "published" {
		t.Fatalf("expected needs_review -> published, got %q -> %q", result.StateBefore, result.StateAfter)
	}
	if !entity.IsPublished() || !entity.IsDefaultRevision() {
		t.Fatal("publish must set the publish flag and promote the revision")
	}

	publishedRevision := entity.RevisionID()

	// A new draft of published content must not displace the live copy.
	entity.SetModerationState("draft")
	result, err = fx.service.Save(ctx, moderation.SaveRequest{Entity: entity})
	if err != nil {
		t.Fatalf("forward draft save: %v", err)
	}
	if result.StateBefore != "published" || result.StateAfter != "draft" {
		t.Fatalf("expected published -> draft, got %q -> %q", result.StateBefore, result.StateAfter)
	}
	if entity.IsDefaultRevision() {
		t.Fatal("forward draft must not become the default revision")
	}
	if entity.RevisionID() <= publishedRevision {
		t.Fatalf("forward draft must get a newer revision, got %d <= %d", entity.RevisionID(), publishedRevision)
	}

	defaultRev, err := fx.store.Load(ctx, "node", entity.ID(), "en")
	if err != nil {
		t.Fatalf("load default revision: %v", err)
	}
	if defaultRev.RevisionID() != publishedRevision {
		t.Fatalf("live copy must still be revision %d, got %d", publishedRevision, defaultRev.RevisionID())
	}

	forward, err := fx.service.HasForwardRevision(ctx, entity)
	if err != nil {
		t.Fatalf("has forward revision: %v", err)
	}
	if !forward {
		t.Fatal("expected a forward revision ahead of the published default")
	}

	latest, err := fx.service.LatestRevision(ctx, "node", entity.ID(), "en")
	if err != nil {
		t.Fatalf("latest revision: %v", err)
	}
	if latest.RevisionID() != entity.RevisionID() {
		t.Fatalf("latest revision should be the draft, got %d", latest.RevisionID())
	}
	isLatest, err := fx.service.IsLatestRevision(ctx, defaultRev)
	if err != nil {
		t.Fatalf("is latest revision: %v", err)
	}
	if isLatest {
		t.Fatal("published default must not be the latest revision anymore")
	}

	// Every moderated save dispatched exactly one event, including the
	// same-state ones.
	wantEvents := []struct{ before, after string }{
		{"", "draft"},
		{"draft", "needs_review"},
		{"needs_review", "published"},
		{"published", "draft"},
	}
	if len(*fx.events) != len(wantEvents) {
		t.Fatalf("expected %d events, got %d", len(wantEvents), len(*fx.events))
	}
	for i, want := range wantEvents {
		got := (*fx.events)[i]
		if got.StateBefore != want.before || got.StateAfter != want.after {
			t.Fatalf("event %d: expected %q -> %q, got %q -> %q", i, want.before, want.after, got.StateBefore, got.StateAfter)
		}
	}
}

func TestService_TranslationsModerateIndependently(t *testing.T) {
	ctx := context.Background()
	fx := newModerationFixture(t)

	// Publish the English translation first.
	en := testsupport.NewEntity("node", "article", "en")
	en.Title = "Release Notes"
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: en}); err != nil {
		t.Fatalf("en draft save: %v", err)
	}
	en.SetModerationState("needs_review")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: en}); err != nil {
		t.Fatalf("en review save: %v", err)
	}
	en.SetModerationState("published")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: en}); err != nil {
		t.Fatalf("en publish save: %v", err)
	}
	enPublished := en.RevisionID()

	// The French translation starts its own lifecycle in draft.
	fr := en.Translation("fr")
	fr.Title = "Notes de version"
	result, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: fr})
	if err != nil {
		t.Fatalf("fr draft save: %v", err)
	}
	if result.StateBefore != "" || result.StateAfter != "draft" {
		t.Fatalf("expected \"\" -> draft for fr, got %q -> %q", result.StateBefore, result.StateAfter)
	}
	if fr.IsPublished() {
		t.Fatal("fr draft must not be published")
	}

	// The English live copy is untouched by the French save.
	enLive, err := fx.store.Load(ctx, "node", en.ID(), "en")
	if err != nil {
		t.Fatalf("load en live copy: %v", err)
	}
	if enLive.RevisionID() != enPublished {
		t.Fatalf("en live copy moved: expected revision %d, got %d", enPublished, enLive.RevisionID())
	}
	if state, err := fx.service.ResolveState(ctx, "node", en.ID(), enPublished, "en"); err != nil || state != "published" {
		t.Fatalf("en state link: expected published, got %q (%v)", state, err)
	}
	if state, err := fx.service.ResolveState(ctx, "node", fr.ID(), fr.RevisionID(), "fr"); err != nil || state != "draft" {
		t.Fatalf("fr state link: expected draft, got %q (%v)", state, err)
	}

	// Latest-revision tracking is per language.
	latestEN, err := fx.service.LatestRevision(ctx, "node", en.ID(), "en")
	if err != nil {
		t.Fatalf("latest en revision: %v", err)
	}
	if latestEN.RevisionID() != enPublished {
		t.Fatalf("latest en revision should be %d, got %d", enPublished, latestEN.RevisionID())
	}
	latestFR, err := fx.service.LatestRevision(ctx, "node", fr.ID(), "fr")
	if err != nil {
		t.Fatalf("latest fr revision: %v", err)
	}
	if latestFR.RevisionID() != fr.RevisionID() {
		t.Fatalf("latest fr revision should be %d, got %d", fr.RevisionID(), latestFR.RevisionID())
	}

	// Forward revisions are tracked per language too: a new English draft
	// leaves the French translation without one.
	en.SetModerationState("draft")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: en}); err != nil {
		t.Fatalf("en forward draft save: %v", err)
	}
	forwardEN, err := fx.service.HasForwardRevision(ctx, enLive)
	if err != nil {
		t.Fatalf("has forward en revision: %v", err)
	}
	if !forwardEN {
		t.Fatal("en must have a forward revision")
	}
	forwardFR, err := fx.service.HasForwardRevision(ctx, fr)
	if err != nil {
		t.Fatalf("has forward fr revision: %v", err)
	}
	if forwardFR {
		t.Fatal("fr must not inherit the en forward revision")
	}

	// And the French translation publishes on its own clock.
	fr.SetModerationState("needs_review")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: fr}); err != nil {
		t.Fatalf("fr review save: %v", err)
	}
	fr.SetModerationState("published")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: fr}); err != nil {
		t.Fatalf("fr publish save: %v", err)
	}
	if !fr.IsPublished() || !fr.IsDefaultRevision() {
		t.Fatal("fr publish must set the publish flag and promote the revision")
	}
	enLive, err = fx.store.Load(ctx, "node", en.ID(), "en")
	if err != nil {
		t.Fatalf("reload en live copy: %v", err)
	}
	if enLive.RevisionID() != enPublished {
		t.Fatalf("fr publish displaced the en live copy: expected %d, got %d", enPublished, enLive.RevisionID())
	}
}

func TestService_UnmoderatedBundlePassesThrough(t *testing.T) {
	ctx := context.Background()
	fx := newModerationFixture(t)

	entity := testsupport.NewEntity("node", "landing_page", "en")
	entity.Title = "Untracked"

	if fx.service.IsModerated(ctx, entity) {
		t.Fatal("unconfigured bundle must not be moderated")
	}

	result, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity})
	if err != nil {
		t.Fatalf("passthrough save: %v", err)
	}
	if result.Outcome != interfaces.SaveOutcomeCreated {
		t.Fatalf("expected created outcome, got %q", result.Outcome)
	}
	if result.StateAfter != "" {
		t.Fatalf("passthrough save must not assign a state, got %q", result.StateAfter)
	}
	if _, err := fx.service.ResolveState(ctx, "node", entity.ID(), entity.RevisionID(), "en"); !errors.Is(err, moderation.ErrStateLinkNotFound) {
		t.Fatalf("expected ErrStateLinkNotFound, got %v", err)
	}
	if len(*fx.events) != 0 {
		t.Fatalf("passthrough saves must not dispatch events, got %d", len(*fx.events))
	}
}

func TestService_ActorPermissionsGateTransitions(t *testing.T) {
	ctx := context.Background()
	fx := newModerationFixture(t)

	editor := uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	fx.authorizer.AllowAll = false
	fx.authorizer.Grants = map[uuid.UUID][]string{
		editor: {"moderation:transition:review"},
	}

	entity := testsupport.NewEntity("node", "article", "en")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity, Actor: editor}); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	entity.SetModerationState("needs_review")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity, Actor: editor}); err != nil {
		t.Fatalf("granted transition: %v", err)
	}

	entity.SetModerationState("published")
	_, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity, Actor: editor})
	if !errors.Is(err, moderation.ErrTransitionForbidden) {
		t.Fatalf("expected ErrTransitionForbidden, got %v", err)
	}

	// The same move succeeds as a trusted system save.
	entity.SetModerationState("published")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity}); err != nil {
		t.Fatalf("trusted save: %v", err)
	}
}

func TestService_ValidTargetsRespectBundleAllowList(t *testing.T) {
	ctx := context.Background()
	fx := newModerationFixture(t)

	fx.bundles.Put(interfaces.BundleConfig{
		EntityType:    "node",
		Bundle:        "article",
		Enabled:       true,
		DefaultState:  "draft",
		AllowedStates: []string{"draft", "needs_review"},
	})
	fx.graph.Invalidate()

	entity := testsupport.NewEntity("node", "article", "en")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity}); err != nil {
		t.Fatalf("initial save: %v", err)
	}
	entity.SetModerationState("needs_review")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity}); err != nil {
		t.Fatalf("review save: %v", err)
	}

	targets, err := fx.service.ValidTargets(ctx, entity, uuid.Nil)
	if err != nil {
		t.Fatalf("valid targets: %v", err)
	}
	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, target.Name)
	}
	// published is reachable in the graph but excluded by the allow list.
	if len(names) != 2 || names[0] != "draft" || names[1] != "needs_review" {
		t.Fatalf("unexpected targets %v", names)
	}
}

func TestService_SaveDestinations(t *testing.T) {
	ctx := context.Background()

	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    "content",
				BaseURL: "https://example.com",
				Paths: map[string]string{
					"canonical": "/:langcode/:entity_type/:id",
					"latest":    "/:langcode/:entity_type/:id/latest",
				},
			},
		},
	})
	resolver := internalmoderation.NewDestinationResolver(manager, runtimeconfig.RoutesConfig{
		Group:          "content",
		CanonicalRoute: "canonical",
		LatestRoute:    "latest",
	})

	fx := newModerationFixture(t, internalmoderation.WithDestinationResolver(resolver))

	entity := testsupport.NewEntity("node", "article", "en")
	result, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity})
	if err != nil {
		t.Fatalf("draft save: %v", err)
	}
	// Draft is not a default-revision state; the editor stays on the latest
	// version route.
	wantLatest := "https://example.com/en/node/" + entity.ID().String() + "/latest"
	if result.Destination != wantLatest {
		t.Fatalf("expected %q, got %q", wantLatest, result.Destination)
	}

	entity.SetModerationState("needs_review")
	if _, err := fx.service.Save(ctx, moderation.SaveRequest{Entity: entity}); err != nil {
		t.Fatalf("review save: %v", err)
	}
	entity.SetModerationState("published")
	result, err = fx.service.Save(ctx, moderation.SaveRequest{Entity: entity})
	if err != nil {
		t.Fatalf("publish save: %v", err)
	}
	wantCanonical := "https://example.com/en/node/" + entity.ID().String()
	if result.Destination != wantCanonical {
		t.Fatalf("expected %q, got %q", wantCanonical, result.Destination)
	}
}
