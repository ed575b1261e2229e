// Package report renders an engine result for humans or machines.
//
// Formatters are looked up by name from a registry:
//
//	f, err := report.Get("json")
//	if err != nil {
//	    return err
//	}
//	return f.Format(os.Stdout, result)
//
// Every formatter emits its whole document once, after the run finishes.
package report

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ivoronin/dupes/internal/types"
)

// Formatter writes a complete result to w.
type Formatter interface {
	Format(w io.Writer, r types.Result) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry maps output mode names to formatters.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds or replaces a formatter.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(name string, factory FormatterFactory) { DefaultRegistry.Register(name, factory) }

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) { return DefaultRegistry.Get(name) }

// Available returns the default registry's formatter names.
func Available() []string { return DefaultRegistry.Available() }

// Structured reports whether a format is meant for machines. Structured
// output keeps stderr decorations such as progress out of the way.
func Structured(name string) bool { return name != "text" }
