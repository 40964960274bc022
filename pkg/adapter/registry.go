package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/freshpress/laundrypos/pkg/core"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[core.Kind]func(*slog.Logger) Adapter)
)

// Register adds an adapter factory to the registry.
// Called by adapter implementations in their init() functions.
func Register(kind core.Kind, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// Get retrieves an adapter factory by kind.
func Get(kind core.Kind) (func(*slog.Logger) Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[kind]
	return f, ok
}

// NewAdapter creates a new, unconnected adapter instance for cfg.Kind.
// The logger parameter is passed to the adapter constructor (nil uses discard logger).
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Kind == core.KindUnknown {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Kind)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Kind.String(),
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for kind := range registry {
		names = append(names, kind.String())
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter kind is registered.
func IsRegistered(kind core.Kind) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check db.type in laundrypos.yaml or the DB_TYPE environment variable", e.Type, e.Available)
}
