package route

import "github.com/google/uuid"

// ScopeID identifies a navigation scope (a host-framework navigator stack).
// It is an opaque handle; the core never dereferences it. The zero value
// means "no explicit scope".
type ScopeID string

// NewScopeID returns a fresh unique scope identifier.
func NewScopeID() ScopeID {
	return ScopeID(uuid.NewString())
}

// ScopeIDFrom wraps a caller-chosen identifier, e.g. a debug label.
func ScopeIDFrom(s string) ScopeID {
	return ScopeID(s)
}

// ScopeHandle is a live host navigator addressed by a ScopeID.
// CanPop reports whether the scope's own page stack can pop; Pop performs
// the pop and reports whether it did.
type ScopeHandle interface {
	CanPop() bool
	Pop() bool
}

// ScopeRegistry maps scope identifiers to live host navigators.
// It is passed explicitly through the navigation call chain; route
// definitions never hold live handles.
type ScopeRegistry struct {
	handles map[ScopeID]ScopeHandle
}

// NewScopeRegistry creates an empty registry.
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{handles: make(map[ScopeID]ScopeHandle)}
}

// Register binds a live handle to a scope id, replacing any previous one.
func (r *ScopeRegistry) Register(id ScopeID, h ScopeHandle) {
	r.handles[id] = h
}

// Unregister removes the binding for a scope id.
func (r *ScopeRegistry) Unregister(id ScopeID) {
	delete(r.handles, id)
}

// Lookup returns the live handle for a scope id, nil if unbound.
func (r *ScopeRegistry) Lookup(id ScopeID) ScopeHandle {
	if r == nil || id == "" {
		return nil
	}
	return r.handles[id]
}
