package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqleval/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/sqleval/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/sqleval/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/sqleval/pkg/config"
	"github.com/ekaya-inc/sqleval/pkg/datasets"
	"github.com/ekaya-inc/sqleval/pkg/logging"
	"github.com/ekaya-inc/sqleval/pkg/mcp"
	"github.com/ekaya-inc/sqleval/pkg/models"
	"github.com/ekaya-inc/sqleval/pkg/schemas"
	"github.com/ekaya-inc/sqleval/pkg/scoring"
	"github.com/ekaya-inc/sqleval/pkg/services"
	"github.com/ekaya-inc/sqleval/pkg/services/workqueue"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sqleval:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "sqleval",
		Usage:   "score predicted SQL against gold SQL clause by clause",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file; a missing file falls back to the environment",
				Value:   "config.yaml",
				Sources: cli.EnvVars("SQLEVAL_CONFIG"),
			},
			&cli.StringFlag{Name: "schema", Usage: "schema file (Spider tables.json or YAML)"},
			&cli.StringFlag{Name: "schema-source", Usage: "spider, yaml, postgres or mssql"},
			&cli.StringFlag{Name: "matching", Usage: "greedy or maximum"},
		},
		Commands: []*cli.Command{
			evaluateCommand(),
			compareCommand(),
			mcpCommand(),
		},
	}
}

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "score every sample of a dataset and write a JSON report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Usage: "samples file (.json, .jsonl or .csv)", Required: true},
			&cli.StringFlag{Name: "out", Usage: "report path, - for stdout", Value: "-"},
			&cli.IntFlag{Name: "workers", Usage: "concurrent pairs; 0 uses every CPU"},
			&cli.StringFlag{Name: "metrics-out", Usage: "write Prometheus metrics in text format to this path"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newDeps(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			samples, err := datasets.Load(cmd.String("dataset"))
			if err != nil {
				return err
			}

			report, runErr := rt.service.EvaluateDataset(ctx, samples)
			if report != nil {
				if err := writeOutput(cmd, cmd.String("out"), func(w io.Writer) error {
					return services.WriteReport(w, report)
				}); err != nil {
					return err
				}
			}
			if path := cmd.String("metrics-out"); path != "" {
				if err := prometheus.WriteToTextfile(path, rt.metricsRegistry); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return runErr
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "score one predicted query against one gold query",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-id", Usage: "database id of both queries", Required: true},
			&cli.StringFlag{Name: "gold", Usage: "gold SQL", Required: true},
			&cli.StringFlag{Name: "pred", Usage: "predicted SQL", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newDeps(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			result := rt.service.ScorePair(ctx, models.Sample{
				DBID:      cmd.String("db-id"),
				Gold:      cmd.String("gold"),
				Predicted: cmd.String("pred"),
			})

			enc := json.NewEncoder(cmd.Root().Writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Failed() {
				return cli.Exit(fmt.Sprintf("%s query not scored: %s", result.Side, result.Error), 2)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "serve compare_sql and canonicalize_sql as MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newDeps(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			server := mcp.NewServer("sqleval", Version, rt.service, rt.logger)
			return server.Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}

// deps is what every command builds before it runs.
type deps struct {
	cfg             *config.Config
	logger          *zap.Logger
	service         *services.EvaluationService
	metricsRegistry *prometheus.Registry
}

func newDeps(ctx context.Context, cmd *cli.Command) (*deps, error) {
	cfg, err := config.Load(cmd.String("config"), Version)
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("schema") {
		cfg.Schema.Path = cmd.String("schema")
	}
	if cmd.IsSet("schema-source") {
		cfg.Schema.Source = cmd.String("schema-source")
	}
	if cmd.IsSet("matching") {
		cfg.Evaluation.Matching = cmd.String("matching")
	}
	if cmd.IsSet("workers") {
		cfg.Evaluation.Workers = int(cmd.Int("workers"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, err
	}

	registry, err := loadSchemas(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logger.Info("Schemas loaded",
		zap.String("source", cfg.Schema.Source),
		zap.Int("databases", registry.Len()),
		zap.String("version", cfg.Version))

	metricsRegistry := prometheus.NewRegistry()
	service := services.NewEvaluationService(
		registry,
		scoring.NewEngine(cfg.Evaluation.Strategy()),
		workqueue.NewPool(cfg.Evaluation.WorkerCount(), logger),
		services.NewMetrics(metricsRegistry),
		logger,
	)

	return &deps{
		cfg:             cfg,
		logger:          logger,
		service:         service,
		metricsRegistry: metricsRegistry,
	}, nil
}

func (rt *deps) close() {
	_ = rt.logger.Sync()
}

// loadSchemas reads schema files, or discovers one schema from a live
// database for the postgres and mssql sources.
func loadSchemas(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*schemas.Registry, error) {
	switch cfg.Schema.Source {
	case config.SchemaSourcePostgres, config.SchemaSourceMSSQL:
		d, err := datasource.NewDiscoverer(ctx, cfg.Schema.Source, cfg.Datasource, logger)
		if err != nil {
			return nil, err
		}
		defer d.Close()

		schema, err := datasource.BuildSchema(ctx, d, cfg.Datasource.DBID, logger)
		if err != nil {
			return nil, err
		}
		return schemas.NewRegistryFrom([]*models.DatabaseSchema{schema})
	default:
		list, err := schemas.Load(cfg.Schema.Source, cfg.Schema.Path)
		if err != nil {
			return nil, err
		}
		return schemas.NewRegistryFrom(list)
	}
}

// writeOutput writes to path, or to the command's writer when path is "-".
func writeOutput(cmd *cli.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.Root().Writer)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
