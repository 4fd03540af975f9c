// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/platewise/v2/internal/infrastructure/config"
)

// ConnectionManager manages the PostgreSQL connections: a GORM handle for
// the read-side providers (with replica routing when configured) and a
// pgx pool for the history repository's raw queries.
type ConnectionManager struct {
	config  *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	sqlDB   *sql.DB
	pgxPool *pgxpool.Pool
}

// NewConnectionManager opens and verifies the database connections.
func NewConnectionManager(cfg *config.Config, log *zap.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		config: cfg,
		logger: log.Named("postgres"),
	}

	if err := cm.initializePrimaryConnection(); err != nil {
		return nil, fmt.Errorf("failed to initialize primary connection: %w", err)
	}

	if err := cm.initializeReadReplicas(); err != nil {
		cm.logger.Warn("Failed to initialize read replicas", zap.Error(err))
	}

	if err := cm.initializePgxPool(); err != nil {
		return nil, fmt.Errorf("failed to initialize pgx pool: %w", err)
	}

	cm.logger.Info("Database connection manager initialized",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.Database.ConnMaxLifetime),
		zap.Int("replica_count", len(cfg.Database.ReplicaHosts)),
	)

	return cm, nil
}

// initializePrimaryConnection sets up the primary database connection
func (cm *ConnectionManager) initializePrimaryConnection() error {
	dsn := cm.config.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 cm.createGORMLogger(),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cm.config.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cm.config.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cm.config.Database.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cm.config.Database.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db
	cm.sqlDB = sqlDB
	return nil
}

// initializeReadReplicas routes read queries to replicas via dbresolver.
func (cm *ConnectionManager) initializeReadReplicas() error {
	hosts := cm.config.Database.ReplicaHosts
	if len(hosts) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(hosts))
	for i, host := range hosts {
		replicas[i] = postgres.Open(cm.config.GetReplicaDSN(host))
	}

	err := cm.db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RoundRobinPolicy(),
	}))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	cm.logger.Info("Read replicas configured", zap.Int("replica_count", len(hosts)))
	return nil
}

// initializePgxPool opens the pgx pool used for raw history queries.
func (cm *ConnectionManager) initializePgxPool() error {
	poolCfg, err := pgxpool.ParseConfig(cm.pgxDSN())
	if err != nil {
		return fmt.Errorf("failed to parse pgx config: %w", err)
	}
	poolCfg.MaxConns = int32(cm.config.Database.MaxOpenConns)
	poolCfg.MaxConnLifetime = cm.config.Database.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cm.config.Database.ConnMaxIdleTime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping via pgx pool: %w", err)
	}

	cm.pgxPool = pool
	return nil
}

func (cm *ConnectionManager) pgxDSN() string {
	db := cm.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}

// createGORMLogger routes GORM logs through zap with the configured slow
// query threshold.
func (cm *ConnectionManager) createGORMLogger() logger.Interface {
	logLevel := logger.Warn
	switch cm.config.Database.LogLevel {
	case "debug":
		logLevel = logger.Info
	case "error":
		logLevel = logger.Error
	case "silent":
		logLevel = logger.Silent
	}

	return logger.New(
		&gormLogWriter{logger: cm.logger},
		logger.Config{
			SlowThreshold:             cm.config.Database.SlowQueryThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// gormLogWriter adapts GORM's printf-style logging to zap.
type gormLogWriter struct {
	logger *zap.Logger
}

func (w *gormLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Sugar().Debugf(format, args...)
}

// GetDB returns the GORM database handle
func (cm *ConnectionManager) GetDB() *gorm.DB {
	return cm.db
}

// GetPgxPool returns the pgx connection pool
func (cm *ConnectionManager) GetPgxPool() *pgxpool.Pool {
	return cm.pgxPool
}

// HealthCheck performs a health check on the database connections
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("primary database ping failed: %w", err)
	}
	if err := cm.pgxPool.Ping(ctx); err != nil {
		return fmt.Errorf("pgx pool ping failed: %w", err)
	}
	return nil
}

// Close closes all database connections
func (cm *ConnectionManager) Close() error {
	if cm.pgxPool != nil {
		cm.pgxPool.Close()
	}
	if cm.sqlDB != nil {
		if err := cm.sqlDB.Close(); err != nil {
			cm.logger.Error("Failed to close primary database", zap.Error(err))
			return err
		}
	}
	return nil
}
