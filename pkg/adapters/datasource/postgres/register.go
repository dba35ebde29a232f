package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/sqleval/pkg/adapters/datasource"
	"github.com/ekaya-inc/sqleval/pkg/config"
)

func init() {
	datasource.Register(datasource.Registration{
		Type:        config.SchemaSourcePostgres,
		DisplayName: "PostgreSQL",
		NewDiscoverer: func(ctx context.Context, cfg config.DatasourceConfig, logger *zap.Logger) (datasource.SchemaDiscoverer, error) {
			return NewSchemaDiscoverer(ctx, cfg, logger)
		},
	})
}
