// Package dispatch routes parsed commands to registered handlers and
// sequences multi-step workflows with fail-fast semantics.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// HandlerFunc implements one action. It must always return a Result;
// panics are recovered by the Dispatcher but are still a bug.
type HandlerFunc func(ctx context.Context, p domain.Params) domain.Result

// Entry is one registered action.
type Entry struct {
	Name        string
	Description string   // shown to the intent model
	Params      []string // parameter keys; a trailing "?" marks optional
	Fn          HandlerFunc
}

// Registry maps action names to handlers. It is written during start-up
// and frozen before the first dispatch.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	frozen  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry. Names are normalised to lower case. An empty
// name, a nil handler, the reserved "error" action, or a name already
// present is a setup error.
func (r *Registry) Register(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("dispatch: register %q: %w", e.Name, domain.ErrRegistryFrozen)
	}

	name := strings.ToLower(strings.TrimSpace(e.Name))
	switch {
	case name == "":
		return fmt.Errorf("dispatch: action name cannot be empty")
	case name == domain.ActionError:
		return fmt.Errorf("dispatch: %q is reserved", domain.ActionError)
	case e.Fn == nil:
		return fmt.Errorf("dispatch: action %s has no handler", name)
	}

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("dispatch: action %s: %w", name, domain.ErrDuplicateAction)
	}

	e.Name = name
	r.entries[name] = e
	return nil
}

// MustRegister is Register for wiring code, where a failure is a
// programming error.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Catalog returns every entry sorted by name. The order is stable so
// prompts built from it are deterministic.
func (r *Registry) Catalog() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted action names.
func (r *Registry) Names() []string {
	cat := r.Catalog()
	names := make([]string, len(cat))
	for i, e := range cat {
		names[i] = e.Name
	}
	return names
}
