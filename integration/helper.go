package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	reposql "github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository/sql"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

const (
	postgresImage   = "postgres"
	postgresTag     = "16"
	postgresUser    = "importer"
	postgresPass    = "secret"
	postgresDB      = "catalog"
	containerTTL    = 180 // seconds
	migrationsDir   = "../migrations"
	dockerMaxWait   = 2 * time.Minute
	truncateTimeout = 5 * time.Second
)

// truncatedTables lists every table the migrations create.
var truncatedTables = []string{"products", "webhooks", "ingestion_jobs"}

// TestDB is a migrated PostgreSQL container owned by one test.
type TestDB struct {
	DB       *sql.DB
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// SetupTestDB starts PostgreSQL with dockertest and applies the catalog migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "docker is not reachable")
	pool.MaxWait = dockerMaxWait

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: postgresImage,
		Tag:        postgresTag,
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPass,
			"POSTGRES_DB=" + postgresDB,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "postgres container did not start")
	// the container removes itself even if the test binary is killed
	require.NoError(t, resource.Expire(containerTTL))

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		postgresUser, postgresPass, resource.GetHostPort("5432/tcp"), postgresDB)
	slog.Info("waiting for test database", slog.String("dsn", dsn))

	var db *sql.DB
	err = pool.Retry(func() error {
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return err
		}
		db = conn
		return nil
	})
	require.NoError(t, err, "postgres never accepted connections")

	_, err = os.Stat(migrationsDir)
	require.NoError(t, err, "migrations directory not found")
	require.NoError(t, reposql.RunMigrations(db, "file://"+migrationsDir))

	return &TestDB{DB: db, Pool: pool, Resource: resource}
}

// Cleanup closes the connection and removes the container.
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	if tdb.DB != nil {
		if err := tdb.DB.Close(); err != nil {
			t.Errorf("closing test database: %s", err)
		}
	}
	if tdb.Pool != nil && tdb.Resource != nil {
		if err := tdb.Pool.Purge(tdb.Resource); err != nil {
			t.Errorf("purging postgres container: %s", err)
		}
	}
}

// TruncateTables empties the catalog, webhook and job tables.
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), truncateTimeout)
	defer cancel()
	for _, table := range truncatedTables {
		_, err := tdb.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err, "truncating %s", table)
	}
}

// CountProducts returns the number of rows in the products table.
func (tdb *TestDB) CountProducts(t *testing.T) int {
	t.Helper()

	var count int
	err := tdb.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM products").Scan(&count)
	require.NoError(t, err)
	return count
}

// WriteCSV writes content to products.csv in a fresh temp directory and returns its path.
func WriteCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
