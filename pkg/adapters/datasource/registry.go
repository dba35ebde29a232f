package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/sqleval/pkg/config"
)

// DiscovererFactory opens a schema discoverer for the configured datasource.
type DiscovererFactory func(ctx context.Context, cfg config.DatasourceConfig, logger *zap.Logger) (SchemaDiscoverer, error)

// Registration describes a datasource type and how to connect to it.
type Registration struct {
	Type          string // "postgres", "mssql"
	DisplayName   string // "PostgreSQL", "Microsoft SQL Server"
	NewDiscoverer DiscovererFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Type] = reg
}

// RegisteredTypes returns the registered datasource types, sorted.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]string, 0, len(registry))
	for t := range registry {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// NewDiscoverer opens a discoverer for the given datasource type.
func NewDiscoverer(ctx context.Context, dsType string, cfg config.DatasourceConfig, logger *zap.Logger) (SchemaDiscoverer, error) {
	registryMu.RLock()
	reg, ok := registry[dsType]
	registryMu.RUnlock()

	if !ok || reg.NewDiscoverer == nil {
		return nil, fmt.Errorf("unsupported datasource type %q (registered: %v)", dsType, RegisteredTypes())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return reg.NewDiscoverer(ctx, cfg, logger)
}
