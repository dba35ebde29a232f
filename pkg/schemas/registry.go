// Package schemas keeps the database schemas an evaluation run can resolve
// queries against and loads them from Spider and YAML files.
package schemas

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
	"github.com/ekaya-inc/sqleval/pkg/sql"
)

// Registry maps db ids to their schema and canonicalizer.
// Safe for concurrent use; registration normally happens once at startup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	schema        *models.DatabaseSchema
	canonicalizer *sql.Canonicalizer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// NewRegistryFrom builds a registry holding every schema in list.
func NewRegistryFrom(list []*models.DatabaseSchema) (*Registry, error) {
	r := NewRegistry()
	for _, s := range list {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds schema, replacing any schema with the same db id.
func (r *Registry) Register(schema *models.DatabaseSchema) error {
	if schema == nil || schema.DBID == "" {
		return fmt.Errorf("%w: schema without db_id", apperrors.ErrInvalidSchema)
	}
	resolver, err := sql.NewSchemaResolver(schema)
	if err != nil {
		return fmt.Errorf("%w: db %q: %v", apperrors.ErrInvalidSchema, schema.DBID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[schema.DBID] = entry{schema: schema, canonicalizer: sql.NewCanonicalizer(resolver)}
	return nil
}

// Canonicalizer returns the canonicalizer for dbID.
func (r *Registry) Canonicalizer(dbID string) (*sql.Canonicalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[dbID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDatabase, dbID)
	}
	return e.canonicalizer, nil
}

// Schema returns the schema registered for dbID.
func (r *Registry) Schema(dbID string) (*models.DatabaseSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[dbID]
	return e.schema, ok
}

// DBIDs returns the registered db ids in sorted order.
func (r *Registry) DBIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered databases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
