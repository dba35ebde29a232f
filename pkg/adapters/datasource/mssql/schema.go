package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqleval/pkg/adapters/datasource"
	"github.com/ekaya-inc/sqleval/pkg/config"
	"github.com/ekaya-inc/sqleval/pkg/logging"
	"github.com/ekaya-inc/sqleval/pkg/retry"
)

const defaultPort = 1433

// SchemaDiscoverer implements datasource.SchemaDiscoverer for SQL Server.
type SchemaDiscoverer struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)

// buildConnectionString creates a sqlserver:// URL using SQL Server authentication.
// ssl_mode "disable" turns encryption off; anything else requires it.
func buildConnectionString(cfg config.DatasourceConfig) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.SSLMode == "" || cfg.SSLMode == "disable" {
		query.Add("encrypt", "false")
	} else {
		query.Add("encrypt", "true")
		query.Add("TrustServerCertificate", "true")
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.ResolvedHost() + ":" + strconv.Itoa(port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// NewSchemaDiscoverer connects to SQL Server, retrying while the server is
// still starting. If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(ctx context.Context, cfg config.DatasourceConfig, logger *zap.Logger) (*SchemaDiscoverer, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("datasource.user is required for SQL authentication")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mssql")
	connStr := buildConnectionString(cfg)

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %s", logging.SanitizeError(err))
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("SQL Server not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}
	if err := retry.Do(ctx, retryCfg, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to sql server %s: %s", logging.SanitizeDSN(connStr), logging.SanitizeError(err))
	}

	logger.Debug("Connected", zap.String("dsn", logging.SanitizeDSN(connStr)))
	return &SchemaDiscoverer{db: db, logger: logger}, nil
}

// Close closes the connection pool.
func (s *SchemaDiscoverer) Close() error {
	return s.db.Close()
}

// DiscoverTables returns all user tables (excludes system schemas).
func (s *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name,
	    SUM(p.rows) AS row_count
	FROM sys.tables t
	INNER JOIN sys.partitions p ON t.object_id = p.object_id
	WHERE p.index_id IN (0, 1)  -- Heap or clustered index
	  AND t.is_ms_shipped = 0   -- Exclude system tables
	GROUP BY t.schema_id, t.name
	ORDER BY CASE WHEN SCHEMA_NAME(t.schema_id) = 'dbo' THEN 0 ELSE 1 END, table_schema, table_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableMetadata
	for rows.Next() {
		var table datasource.TableMetadata
		if err := rows.Scan(&table.SchemaName, &table.TableName, &table.RowCount); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	return tables, nil
}

// DiscoverColumns returns columns for a specific table.
func (s *SchemaDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnMetadata, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    c.column_id AS ordinal_position,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

	rows, err := s.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var col datasource.ColumnMetadata
		var isNullable, isPrimary int

		err := rows.Scan(
			&col.ColumnName,
			&col.DataType,
			&isNullable,
			&col.OrdinalPosition,
			&isPrimary,
		)
		if err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}

		col.IsNullable = isNullable == 1
		col.IsPrimaryKey = isPrimary == 1
		col.DataType = mapSQLServerType(col.DataType)

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	return columns, nil
}

// DiscoverForeignKeys returns all foreign key relationships.
func (s *SchemaDiscoverer) DiscoverForeignKeys(ctx context.Context) ([]datasource.ForeignKeyMetadata, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    fk.name AS constraint_name,
	    SCHEMA_NAME(fk.schema_id) AS source_schema,
	    OBJECT_NAME(fk.parent_object_id) AS source_table,
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS source_column,
	    SCHEMA_NAME(rt.schema_id) AS target_schema,
	    OBJECT_NAME(fk.referenced_object_id) AS target_table,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS target_column
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	INNER JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
	WHERE fk.is_ms_shipped = 0
	ORDER BY source_schema, source_table, fk.name, fkc.constraint_column_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKeyMetadata
	for rows.Next() {
		var fk datasource.ForeignKeyMetadata
		err := rows.Scan(
			&fk.ConstraintName,
			&fk.SourceSchema,
			&fk.SourceTable,
			&fk.SourceColumn,
			&fk.TargetSchema,
			&fk.TargetTable,
			&fk.TargetColumn,
		)
		if err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign key rows: %w", err)
	}

	return fks, nil
}

// SupportsForeignKeys returns true since SQL Server supports foreign keys.
func (s *SchemaDiscoverer) SupportsForeignKeys() bool {
	return true
}
