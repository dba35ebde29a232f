package datasource

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

// BuildSchema discovers every user table of a database and returns it as a
// schema registered under dbID. Queries reference tables by unqualified
// name, so when two schemas hold a table of the same name only the first
// one discovered is kept.
func BuildSchema(ctx context.Context, d SchemaDiscoverer, dbID string, logger *zap.Logger) (*models.DatabaseSchema, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tables, err := d.DiscoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: database %q has no user tables", apperrors.ErrInvalidSchema, dbID)
	}

	schema := &models.DatabaseSchema{DBID: dbID}
	kept := make(map[string]string, len(tables)) // lower table name -> schema name
	for _, t := range tables {
		key := strings.ToLower(t.TableName)
		if owner, dup := kept[key]; dup {
			logger.Warn("Skipping table shadowed by another schema",
				zap.String("table", t.TableName),
				zap.String("schema", t.SchemaName),
				zap.String("kept_schema", owner))
			continue
		}

		columns, err := d.DiscoverColumns(ctx, t.SchemaName, t.TableName)
		if err != nil {
			return nil, fmt.Errorf("discover columns of %s.%s: %w", t.SchemaName, t.TableName, err)
		}

		table := models.SchemaTable{Name: t.TableName}
		for _, c := range columns {
			table.Columns = append(table.Columns, models.SchemaColumn{Name: c.ColumnName, DataType: c.DataType})
			if c.IsPrimaryKey {
				table.PrimaryKey = append(table.PrimaryKey, c.ColumnName)
			}
		}
		schema.Tables = append(schema.Tables, table)
		kept[key] = t.SchemaName
	}

	if d.SupportsForeignKeys() {
		fks, err := d.DiscoverForeignKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover foreign keys: %w", err)
		}
		for _, fk := range fks {
			if kept[strings.ToLower(fk.SourceTable)] != fk.SourceSchema ||
				kept[strings.ToLower(fk.TargetTable)] != fk.TargetSchema {
				continue
			}
			schema.ForeignKeys = append(schema.ForeignKeys, models.ForeignKey{
				Table:            fk.SourceTable,
				Column:           fk.SourceColumn,
				ReferencedTable:  fk.TargetTable,
				ReferencedColumn: fk.TargetColumn,
			})
		}
	}

	logger.Info("Discovered schema",
		zap.String("db_id", dbID),
		zap.Int("tables", len(schema.Tables)),
		zap.Int("columns", schema.ColumnCount()),
		zap.Int("foreign_keys", len(schema.ForeignKeys)))

	return schema, nil
}
