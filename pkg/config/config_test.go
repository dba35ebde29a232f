package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0, cfg.Evaluation.Workers)
	assert.Equal(t, runtime.NumCPU(), cfg.Evaluation.WorkerCount())
	assert.Equal(t, models.MatchingGreedy, cfg.Evaluation.Strategy())
	assert.Equal(t, SchemaSourceSpider, cfg.Schema.Source)
	assert.Equal(t, "disable", cfg.Datasource.SSLMode)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
env: "test"
log_level: "debug"
evaluation:
  workers: 4
  matching: "greedy"
schema:
  source: "postgres"
datasource:
  host: "db.example.com"
  port: 5432
  user: "eval"
  database: "concert_singer"
`)
	t.Setenv("EVALUATION_MATCHING", "maximum")
	t.Setenv("DATASOURCE_PASSWORD", "s3cret")

	cfg, err := Load(path, "v1")
	require.NoError(t, err)

	// YAML values
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Evaluation.WorkerCount())
	assert.Equal(t, "db.example.com", cfg.Datasource.Host)
	assert.Equal(t, 5432, cfg.Datasource.Port)

	// Environment overrides and secrets
	assert.Equal(t, models.MatchingMaximum, cfg.Evaluation.Strategy())
	assert.Equal(t, "s3cret", cfg.Datasource.Password)

	// Derived
	assert.Equal(t, "concert_singer", cfg.Datasource.DBID)
}

func TestLoad_PasswordNotReadFromYAML(t *testing.T) {
	path := writeConfig(t, `
datasource:
  password: "from-yaml"
`)
	os.Unsetenv("DATASOURCE_PASSWORD")

	cfg, err := Load(path, "v1")
	require.NoError(t, err)
	assert.Empty(t, cfg.Datasource.Password)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown matching", "evaluation:\n  matching: optimal\n"},
		{"negative workers", "evaluation:\n  workers: -1\n"},
		{"unknown source", "schema:\n  source: sqlite\n"},
		{"discovery without database", "schema:\n  source: mssql\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml), "v1")
			assert.Error(t, err)
		})
	}
}

func TestDatasourceConfig_ResolvedHost(t *testing.T) {
	orig := inContainer
	t.Cleanup(func() { inContainer = orig })

	tests := []struct {
		host      string
		container bool
		want      string
	}{
		{"localhost", false, "localhost"},
		{"localhost", true, "host.docker.internal"},
		{"127.0.0.1", true, "host.docker.internal"},
		{"db.example.com", true, "db.example.com"},
	}
	for _, tt := range tests {
		inContainer = func() bool { return tt.container }
		d := DatasourceConfig{Host: tt.host}
		assert.Equal(t, tt.want, d.ResolvedHost(), "host=%s container=%v", tt.host, tt.container)
	}
}
