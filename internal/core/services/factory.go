package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
)

// Ensure ConnectorFactory implements the interface.
var _ driven.ConnectorFactory = (*ConnectorFactory)(nil)

// ConnectorFactory creates connectors from source configuration.
// Builders for the built-in connector types are registered at startup.
type ConnectorFactory struct {
	mu       sync.RWMutex
	builders map[string]driven.ConnectorBuilder
}

// NewConnectorFactory creates an empty connector factory.
func NewConnectorFactory() *ConnectorFactory {
	return &ConnectorFactory{
		builders: make(map[string]driven.ConnectorBuilder),
	}
}

// Register adds a connector builder for the given type.
func (f *ConnectorFactory) Register(connectorType string, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[connectorType] = builder
}

// Create returns a Connector for the given source.
func (f *ConnectorFactory) Create(_ context.Context, source domain.Source) (driven.Connector, error) {
	f.mu.RLock()
	builder, ok := f.builders[source.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, source.Type)
	}
	return builder(source)
}

// SupportedTypes returns all registered connector types, sorted.
func (f *ConnectorFactory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
