package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/sqleval/pkg/config"
)

// PostgresImage is the PostgreSQL image used for discovery tests.
const PostgresImage = "postgres:16-alpine"

// FixtureSchema is loaded into the test database: a small Spider-style
// concert schema plus a shadowing table in a second schema.
const FixtureSchema = `
CREATE TABLE stadium (
	stadium_id integer PRIMARY KEY,
	location text,
	name text,
	capacity integer
);
CREATE TABLE singer (
	singer_id integer PRIMARY KEY,
	name text,
	country text,
	age integer
);
CREATE TABLE concert (
	concert_id integer PRIMARY KEY,
	concert_name text,
	stadium_id integer REFERENCES stadium (stadium_id),
	year text
);
CREATE TABLE singer_in_concert (
	concert_id integer REFERENCES concert (concert_id),
	singer_id integer REFERENCES singer (singer_id),
	PRIMARY KEY (concert_id, singer_id)
);
CREATE SCHEMA archive;
CREATE TABLE archive.singer (
	singer_id integer PRIMARY KEY,
	retired_at date
);
`

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	// Datasource connects to the container the way the CLI does.
	Datasource config.DatasourceConfig
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "concert_singer",
			"POSTGRES_USER":     "sqleval",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The server logs readiness twice: once for the init run, once for real.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	ds := config.DatasourceConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "sqleval",
		Password: "test_password",
		Database: "concert_singer",
		SSLMode:  "disable",
		DBID:     "concert_singer",
	}

	connStr := fmt.Sprintf("postgres://sqleval:test_password@%s:%s/concert_singer?sslmode=disable",
		host, port.Port())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := pool.Exec(ctx, FixtureSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to load fixture schema: %w", err)
	}

	return &TestDB{
		Container:  container,
		Pool:       pool,
		Datasource: ds,
	}, nil
}
