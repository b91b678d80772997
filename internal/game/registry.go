package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds all registered rule variants.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Rules
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{variants: make(map[string]Rules)}
}

// DefaultRegistry returns a registry with the built-in variants.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Classic())
	r.Register(ClassicStrict())
	r.Register(AlternateTurns())
	return r
}

// Register adds a variant. Panics on duplicate names or unplayable rules.
func (r *Registry) Register(rules Rules) {
	if err := rules.Validate(); err != nil {
		panic(fmt.Sprintf("invalid rules %q: %v", rules.Name, err))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.variants[rules.Name]; exists {
		panic(fmt.Sprintf("rules %q already registered", rules.Name))
	}
	rules.Fleet = append([]int(nil), rules.Fleet...)
	r.variants[rules.Name] = rules
}

// Get returns a variant by name.
func (r *Registry) Get(name string) (Rules, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules, ok := r.variants[name]
	if ok {
		rules.Fleet = append([]int(nil), rules.Fleet...)
	}
	return rules, ok
}

// List returns all registered variants sorted by name.
func (r *Registry) List() []Rules {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Rules, 0, len(r.variants))
	for _, rules := range r.variants {
		rules.Fleet = append([]int(nil), rules.Fleet...)
		list = append(list, rules)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
