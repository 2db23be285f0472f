package storage

import (
	"fmt"
	"sort"

	"github.com/c360studio/rorio/config"
)

// FactoryFunc creates a backend from the publish configuration.
type FactoryFunc func(*config.PublishConfig) (Storage, error)

var factories = make(map[string]FactoryFunc)

// Register registers a storage backend factory
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the backend selected by cfg.Backend.
func New(cfg *config.PublishConfig) (Storage, error) {
	factory, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, cfg.Backend, Backends())
	}
	return factory(cfg)
}
