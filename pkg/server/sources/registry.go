package sources

import (
	"fmt"
	"sync"
)

var (
	registry = make(map[string]AdapterFactory)
	mu       sync.RWMutex
)

// Register adds an adapter factory to the registry.
func Register(name string, factory AdapterFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Create creates a new adapter instance by its registered reference. The
// reference is the opaque handle stored in source configuration and resolved
// here at wiring time.
func Create(name string, config map[string]interface{}) (Adapter, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, name)
	}

	return factory(config)
}

// List returns all registered adapter references.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
