// Containerized postgres helper for integration tests. Callers are expected
// to guard with testing.Short(); starting a container takes seconds.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/platewise/v2/internal/infrastructure/persistence/migrations"
)

// TestDatabase is a disposable postgres instance with both access paths the
// engine uses in production: a gorm handle and a pgx pool.
type TestDatabase struct {
	Container testcontainers.Container
	DB        *sql.DB
	GormDB    *gorm.DB
	PgxPool   *pgxpool.Pool
	DSN       string
}

// DatabaseConfig holds test database configuration.
type DatabaseConfig struct {
	Image    string
	Database string
	Username string
	Password string
}

// DefaultDatabaseConfig returns the default test database configuration.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Image:    "postgres:15-alpine",
		Database: "platewise_test",
		Username: "test_user",
		Password: "test_password",
	}
}

// SetupTestDatabase starts a postgres container, connects all three handles,
// and registers cleanup on the test. The schema is empty; call RunMigrations.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	return SetupTestDatabaseWithConfig(t, DefaultDatabaseConfig())
}

// SetupTestDatabaseWithConfig starts a postgres container with custom settings.
func SetupTestDatabaseWithConfig(t *testing.T, cfg DatabaseConfig) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.Image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       cfg.Database,
				"POSTGRES_USER":     cfg.Username,
				"POSTGRES_PASSWORD": cfg.Password,
			},
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw,noexec,nosuid,size=512m",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForSQL(nat.Port("5432/tcp"), "pgx", func(host string, port nat.Port) string {
					return buildDSN(cfg, host, port.Port())
				}),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err)

	dsn := buildDSN(cfg, host, mapped.Port())

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	gormDB, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	td := &TestDatabase{
		Container: container,
		DB:        db,
		GormDB:    gormDB,
		PgxPool:   pool,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		td.PgxPool.Close()
		if sqlDB, err := td.GormDB.DB(); err == nil {
			sqlDB.Close()
		}
		td.DB.Close()
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	return td
}

func buildDSN(cfg DatabaseConfig, host, port string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username, cfg.Password, host, port, cfg.Database)
}

// RunMigrations applies every embedded migration to the container.
func (td *TestDatabase) RunMigrations(t *testing.T) {
	t.Helper()
	migrator, err := migrations.New(td.DB, zap.NewNop())
	require.NoError(t, err, "failed to build migrator")
	require.NoError(t, migrator.Up(), "failed to run migrations")
}

// TruncateTables clears the named tables between test cases.
func (td *TestDatabase) TruncateTables(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		_, err := td.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "failed to truncate %s", table)
	}
}
