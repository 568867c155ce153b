package userstore

import (
	"fmt"
	"sort"
	"sync"
)

// IndexConfig holds the PathIndex configuration.
type IndexConfig struct {
	// Type is the driver name: "memory", "badger", etc.
	Type string `json:"type" yaml:"type" mapstructure:"type"`

	// Options holds driver-specific configuration.
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
}

// IndexFactory is a function that creates a [PathIndex] from an [IndexConfig].
type IndexFactory func(cfg *IndexConfig) (PathIndex, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]IndexFactory)
)

// RegisterIndex makes a PathIndex driver available by the provided name.
// This is typically called from the driver package's init() function.
// It panics if called twice with the same name.
func RegisterIndex(name string, factory IndexFactory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("userstore: index driver %q already registered", name))
	}
	factories[name] = factory
}

// IndexDrivers returns a sorted list of all registered driver names.
func IndexDrivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenIndex creates a new [PathIndex] using the registered driver specified in cfg.Type.
func OpenIndex(cfg *IndexConfig) (PathIndex, error) {
	if cfg == nil {
		return nil, fmt.Errorf("userstore: index config must not be nil")
	}

	mu.RLock()
	factory, ok := factories[cfg.Type]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("userstore: unknown index driver %q (forgotten import?)", cfg.Type)
	}

	return factory(cfg)
}

// MustOpenIndex is like [OpenIndex] but panics on error.
func MustOpenIndex(cfg *IndexConfig) PathIndex {
	index, err := OpenIndex(cfg)
	if err != nil {
		panic(err)
	}
	return index
}
