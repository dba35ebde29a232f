package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

// Schema sources.
const (
	SchemaSourceSpider   = "spider"
	SchemaSourceYAML     = "yaml"
	SchemaSourcePostgres = "postgres"
	SchemaSourceMSSQL    = "mssql"
)

// Config holds all configuration for sqleval.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Evaluation EvaluationConfig `yaml:"evaluation"`
	Schema     SchemaConfig     `yaml:"schema"`

	// Datasource is only used when Schema.Source is postgres or mssql.
	Datasource DatasourceConfig `yaml:"datasource"`
}

// EvaluationConfig controls batch scoring.
type EvaluationConfig struct {
	// Workers is the number of pairs scored concurrently. 0 means runtime.NumCPU().
	Workers int `yaml:"workers" env:"EVALUATION_WORKERS" env-default:"0"`

	// Matching selects how unordered clause items are paired: "greedy" or "maximum".
	// Maximum matching can raise scores and is not comparable with greedy results.
	Matching string `yaml:"matching" env:"EVALUATION_MATCHING" env-default:"greedy"`
}

// SchemaConfig says where database schemas come from.
type SchemaConfig struct {
	Source string `yaml:"source" env:"SCHEMA_SOURCE" env-default:"spider"`
	// Path is the tables.json or YAML file for file-based sources.
	Path string `yaml:"path" env:"SCHEMA_PATH" env-default:""`
}

// DatasourceConfig holds the connection used for live schema discovery.
type DatasourceConfig struct {
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"0"` // 0 selects the driver default
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:""`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"DATASOURCE_SSL_MODE" env-default:"disable"`
	// DBID is the db id samples use to refer to the discovered schema.
	// Defaults to Database.
	DBID string `yaml:"db_id" env:"DATASOURCE_DB_ID" env-default:""`
}

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error: defaults and the environment are used.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if cfg.Datasource.DBID == "" {
		cfg.Datasource.DBID = cfg.Datasource.Database
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks values cleanenv cannot check on its own.
func (c *Config) Validate() error {
	if c.Evaluation.Workers < 0 {
		return fmt.Errorf("evaluation.workers must be >= 0, got %d", c.Evaluation.Workers)
	}
	if !models.MatchingStrategy(c.Evaluation.Matching).Valid() {
		return fmt.Errorf("evaluation.matching must be %q or %q, got %q",
			models.MatchingGreedy, models.MatchingMaximum, c.Evaluation.Matching)
	}

	switch c.Schema.Source {
	case SchemaSourceSpider, SchemaSourceYAML:
		// Path may still come from a command-line flag.
	case SchemaSourcePostgres, SchemaSourceMSSQL:
		if c.Datasource.Database == "" {
			return fmt.Errorf("datasource.database is required for schema source %q", c.Schema.Source)
		}
	default:
		return fmt.Errorf("unknown schema.source %q", c.Schema.Source)
	}
	return nil
}

// WorkerCount returns the effective number of evaluation workers.
func (c *EvaluationConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Strategy returns the configured matching strategy.
func (c *EvaluationConfig) Strategy() models.MatchingStrategy {
	return models.MatchingStrategy(c.Matching)
}
