package sql

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

// SchemaResolver assigns stable integer ids to the tables and columns of one
// database schema. Table ids follow table order; column ids number the
// columns table by table. Lookups are case-insensitive.
//
// A SchemaResolver is read-only after construction and safe for concurrent use.
type SchemaResolver struct {
	dbID       string
	tableNames []string
	tables     map[string]int
	columns    []map[string]int
}

// NewSchemaResolver builds the id maps for schema.
func NewSchemaResolver(schema *models.DatabaseSchema) (*SchemaResolver, error) {
	r := &SchemaResolver{
		dbID:       schema.DBID,
		tableNames: make([]string, 0, len(schema.Tables)),
		tables:     make(map[string]int, len(schema.Tables)),
		columns:    make([]map[string]int, 0, len(schema.Tables)),
	}

	nextColumn := 0
	for tableID, table := range schema.Tables {
		key := strings.ToLower(strings.TrimSpace(table.Name))
		if key == "" {
			return nil, fmt.Errorf("%w: table %d of %q has no name", apperrors.ErrSchemaResolution, tableID, schema.DBID)
		}
		if _, exists := r.tables[key]; exists {
			return nil, fmt.Errorf("%w: duplicate table %q in %q", apperrors.ErrSchemaResolution, table.Name, schema.DBID)
		}
		r.tables[key] = tableID
		r.tableNames = append(r.tableNames, table.Name)

		cols := make(map[string]int, len(table.Columns))
		for _, col := range table.Columns {
			colKey := strings.ToLower(strings.TrimSpace(col.Name))
			// Keep the first id if a column name repeats; ids still advance.
			if _, exists := cols[colKey]; !exists {
				cols[colKey] = nextColumn
			}
			nextColumn++
		}
		r.columns = append(r.columns, cols)
	}

	return r, nil
}

// DBID returns the database id of the schema.
func (r *SchemaResolver) DBID() string {
	return r.dbID
}

// TableCount returns the number of tables.
func (r *SchemaResolver) TableCount() int {
	return len(r.tableNames)
}

// TableName returns the declared name of a table id.
func (r *SchemaResolver) TableName(tableID int) string {
	if tableID < 0 || tableID >= len(r.tableNames) {
		return ""
	}
	return r.tableNames[tableID]
}

// ResolveTable returns the id of the named table.
func (r *SchemaResolver) ResolveTable(name string) (int, error) {
	if id, ok := r.lookupTable(name); ok {
		return id, nil
	}
	if suggestion, ok := r.suggest(name, r.tables); ok {
		return 0, fmt.Errorf("%w: unknown table %q (did you mean %q?)", apperrors.ErrSchemaResolution, name, suggestion)
	}
	return 0, fmt.Errorf("%w: unknown table %q", apperrors.ErrSchemaResolution, name)
}

// ResolveColumn returns the id of a column of the given table. "*" resolves
// to models.StarColumnID.
func (r *SchemaResolver) ResolveColumn(tableID int, column string) (int, error) {
	if column == "*" {
		return models.StarColumnID, nil
	}
	if tableID < 0 || tableID >= len(r.columns) {
		return 0, fmt.Errorf("%w: unknown table id %d", apperrors.ErrSchemaResolution, tableID)
	}
	if id, ok := r.lookupColumn(tableID, column); ok {
		return id, nil
	}
	if suggestion, ok := r.suggest(column, r.columns[tableID]); ok {
		return 0, fmt.Errorf("%w: unknown column %q in table %q (did you mean %q?)",
			apperrors.ErrSchemaResolution, column, r.tableNames[tableID], suggestion)
	}
	return 0, fmt.Errorf("%w: unknown column %q in table %q", apperrors.ErrSchemaResolution, column, r.tableNames[tableID])
}

func (r *SchemaResolver) lookupTable(name string) (int, bool) {
	id, ok := r.tables[strings.ToLower(name)]
	return id, ok
}

func (r *SchemaResolver) lookupColumn(tableID int, column string) (int, bool) {
	id, ok := r.columns[tableID][strings.ToLower(column)]
	return id, ok
}

// tableColumns returns the column names of a table keyed to their ids.
func (r *SchemaResolver) tableColumns(tableID int) map[string]int {
	return r.columns[tableID]
}

// suggest looks for the singular or plural form of name among the keys.
func (r *SchemaResolver) suggest(name string, known map[string]int) (string, bool) {
	lower := strings.ToLower(name)
	for _, candidate := range []string{inflection.Singular(lower), inflection.Plural(lower)} {
		if candidate == lower {
			continue
		}
		if _, ok := known[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}
