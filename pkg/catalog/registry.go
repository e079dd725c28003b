package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/buildplan/buildplan/pkg/descriptor"
)

// Registry maps plugin identifiers to their default records. It is filled
// once at process start and read concurrently afterwards.
type Registry struct {
	// mu protects the registry state.
	mu sync.RWMutex

	// plugins maps canonical plugin id to its record.
	plugins map[string]PluginDefault

	// aliases maps alias to canonical plugin id.
	aliases map[string]string

	// toolchain holds the implicit defaults.
	toolchain map[string]descriptor.Value
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:   make(map[string]PluginDefault),
		aliases:   make(map[string]string),
		toolchain: make(map[string]descriptor.Value),
	}
}

// Register adds a plugin record. Identifiers and aliases must be unique
// across the registry.
func (r *Registry) Register(p PluginDefault) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		return fmt.Errorf("plugin id must not be empty")
	}
	if r.known(p.ID) {
		return fmt.Errorf("plugin %s already registered", p.ID)
	}
	for _, alias := range p.Aliases {
		if alias == p.ID || r.known(alias) {
			return fmt.Errorf("plugin %s: alias %s already registered", p.ID, alias)
		}
	}

	p = p.clone()
	r.plugins[p.ID] = p
	for _, alias := range p.Aliases {
		r.aliases[alias] = p.ID
	}
	return nil
}

func (r *Registry) known(id string) bool {
	if _, ok := r.plugins[id]; ok {
		return true
	}
	_, ok := r.aliases[id]
	return ok
}

// SetToolchain replaces the implicit toolchain defaults.
func (r *Registry) SetToolchain(defaults map[string]descriptor.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.toolchain = make(map[string]descriptor.Value, len(defaults))
	for k, v := range defaults {
		r.toolchain[descriptor.CanonicalKey(k)] = v
	}
}

// Lookup returns the record for a plugin identifier or alias.
func (r *Registry) Lookup(id string) (PluginDefault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if canonical, ok := r.aliases[id]; ok {
		id = canonical
	}
	p, ok := r.plugins[id]
	if !ok {
		return PluginDefault{}, &NotFoundError{ID: id}
	}
	return p.clone(), nil
}

// IDs returns the canonical plugin identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Toolchain returns a copy of the implicit toolchain defaults.
func (r *Registry) Toolchain() map[string]descriptor.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]descriptor.Value, len(r.toolchain))
	for k, v := range r.toolchain {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]descriptor.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
