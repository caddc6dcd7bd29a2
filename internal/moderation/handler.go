package moderation

import (
	"sync"

	"github.com/goliatone/go-workbench/pkg/interfaces"
)

// Handler applies the per entity-type side effects of a moderated save.
// The reconciler decides updateDefault and published; the handler decides
// which of those decisions the entity type can express.
type Handler interface {
	OnPreSave(entity interfaces.RevisionableEntity, updateDefault, published bool)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(entity interfaces.RevisionableEntity, updateDefault, published bool)

func (f HandlerFunc) OnPreSave(entity interfaces.RevisionableEntity, updateDefault, published bool) {
	f(entity, updateDefault, published)
}

// GenericHandler forces a new revision on every moderated save and toggles
// the default-revision flag. It also forwards the publish decision when the
// entity type carries a publish flag, which covers node-like content.
type GenericHandler struct{}

func (GenericHandler) OnPreSave(entity interfaces.RevisionableEntity, updateDefault, published bool) {
	entity.SetNewRevision(true)
	entity.SetDefaultRevision(updateDefault)
	if publishable, ok := entity.(interfaces.PublishableEntity); ok {
		publishable.SetPublished(published)
	}
}

// RevisionOnlyHandler is for entity types that revision but have no publish
// concept, such as reusable blocks. The publish decision is ignored.
type RevisionOnlyHandler struct{}

func (RevisionOnlyHandler) OnPreSave(entity interfaces.RevisionableEntity, updateDefault, published bool) {
	entity.SetNewRevision(true)
	entity.SetDefaultRevision(updateDefault)
}

// HandlerRegistry dispatches to a per entity-type handler, defaulting to
// GenericHandler for unregistered types.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string]Handler),
		fallback: GenericHandler{},
	}
}

func (r *HandlerRegistry) Register(entityType string, handler Handler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[entityType] = handler
}

func (r *HandlerRegistry) HandlerFor(entityType string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if handler, ok := r.handlers[entityType]; ok {
		return handler
	}
	return r.fallback
}
