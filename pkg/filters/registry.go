package filters

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/chicogong/ffgraph/pkg/dag"
)

// ErrFilterNotFound is returned when a filter name is not registered.
var ErrFilterNotFound = errors.New("filter not found")

// Registry stores filter descriptors by name.
type Registry struct {
	filters map[string]*Descriptor
	mu      sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]*Descriptor)}
}

// globalRegistry holds the builtin catalog.
var globalRegistry = NewRegistry()

// GlobalRegistry returns the global filter registry
func GlobalRegistry() *Registry {
	return globalRegistry
}

// Register registers a descriptor globally
func Register(d *Descriptor) {
	globalRegistry.Register(d)
}

// Get retrieves a descriptor by name from the global registry
func Get(name string) (*Descriptor, error) {
	return globalRegistry.Get(name)
}

// List returns all registered descriptors sorted by name
func List() []*Descriptor {
	return globalRegistry.List()
}

// New builds a filter node from the global registry.
func New(name string, inputs []dag.Stream, params Params) (*dag.FilterNode, error) {
	return globalRegistry.New(name, inputs, params)
}

// Register adds d, replacing any descriptor with the same name.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[d.Name] = d
}

// Reset clears all registered descriptors (for testing)
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = make(map[string]*Descriptor)
}

// Get retrieves a descriptor by name
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.filters[name]
	if !ok {
		if guess := r.suggest(name); guess != "" {
			return nil, fmt.Errorf("filter '%s': %w (did you mean '%s'?)", name, ErrFilterNotFound, guess)
		}
		return nil, fmt.Errorf("filter '%s': %w", name, ErrFilterNotFound)
	}
	return d, nil
}

// suggest returns the registered name closest to name, or "". Callers hold
// r.mu.
func (r *Registry) suggest(name string) string {
	if name == "" || len(r.filters) == 0 {
		return ""
	}
	names := make([]string, 0, len(r.filters))
	for n := range r.filters {
		names = append(names, n)
	}
	sort.Strings(names)

	// Abbreviations first: "scl" finds "scale".
	if ranks := fuzzy.RankFindFold(name, names); len(ranks) > 0 {
		sort.Stable(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", maxSuggestDistance+1
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(name), n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// maxSuggestDistance bounds edit-distance suggestions for typos.
const maxSuggestDistance = 2

// List returns all registered descriptors sorted by name
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Descriptor, 0, len(r.filters))
	for _, d := range r.filters {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ListByCategory returns descriptors in a specific category
func (r *Registry) ListByCategory(category Category) []*Descriptor {
	result := []*Descriptor{}
	for _, d := range r.List() {
		if d.Category == category {
			result = append(result, d)
		}
	}
	return result
}

// New looks up name and applies its descriptor to inputs and params.
func (r *Registry) New(name string, inputs []dag.Stream, params Params) (*dag.FilterNode, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return Apply(d, inputs, params)
}
