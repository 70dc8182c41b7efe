// Package retain implements the object arena backing reference tokens: an
// explicit id → value table that keeps host values alive and addressable
// for later inspection, with an explicit release point. Ids are the only
// currency crossing the serialization boundary.
package retain

import (
	"sync"

	"github.com/hazyhaar/treescope/idgen"
)

// Arena holds retained values by id. Safe for concurrent use.
type Arena struct {
	mu      sync.Mutex
	objects map[string]any
	newID   idgen.Generator
}

// Option configures an Arena.
type Option func(*Arena)

// WithIDGenerator overrides the token generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(a *Arena) { a.newID = gen }
}

// NewArena creates an empty arena. Default tokens: "obj_" + short id.
func NewArena(opts ...Option) *Arena {
	a := &Arena{
		objects: make(map[string]any),
		newID:   idgen.Prefixed("obj_", idgen.Short(12)),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Retain stores v and returns its fresh token. Every call retains a new
// entry, even for a value already held under another token.
func (a *Arena) Retain(v any) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.newID()
	a.objects[id] = v
	return id
}

// Release frees one token. Unknown tokens are ignored.
func (a *Arena) Release(id string) {
	a.mu.Lock()
	delete(a.objects, id)
	a.mu.Unlock()
}

// Get returns the value held under id.
func (a *Arena) Get(id string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.objects[id]
	return v, ok
}

// Len reports the number of live entries.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objects)
}
