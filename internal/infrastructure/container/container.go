// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	appsuggestion "github.com/platewise/v2/internal/application/suggestion"
	"github.com/platewise/v2/internal/infrastructure/cache"
	"github.com/platewise/v2/internal/infrastructure/config"
	"github.com/platewise/v2/internal/infrastructure/http/server"
	"github.com/platewise/v2/internal/infrastructure/monitoring"
	gormRepo "github.com/platewise/v2/internal/infrastructure/persistence/gorm"
	"github.com/platewise/v2/internal/infrastructure/persistence/migrations"
	"github.com/platewise/v2/internal/infrastructure/persistence/postgres"
	"github.com/platewise/v2/internal/infrastructure/persistence/sqlite"
	"github.com/platewise/v2/internal/ports/inbound"
	"github.com/platewise/v2/internal/ports/outbound"
	"github.com/platewise/v2/pkg/healthcheck"
	"github.com/platewise/v2/pkg/logger"
)

// How often the in-process cache sweeps expired entries. Expiry is also
// checked on read, so the sweep only bounds memory held by idle keys.
const cacheJanitorInterval = 5 * time.Minute

// ConfigPath locates the YAML config file. Supplied by the binary; empty
// means defaults plus environment variables, which also disables
// algorithm hot reload.
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	ProviderModule,
	ServiceModule,
	MonitoringModule,
	HTTPModule,
	HealthModule,
	LifecycleModule,
)

// ConfigModule provides configuration: the static config, the versioned
// algorithm snapshot provider, and the hot-reload watcher.
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
	func(cfg *config.Config, log *zap.Logger) (*config.Provider, error) {
		return config.NewProvider(cfg.Engine, log)
	},
	func(p *config.Provider) outbound.AlgorithmConfigProvider {
		return p
	},
	func(path ConfigPath, p *config.Provider, log *zap.Logger) (*config.Watcher, error) {
		if path == "" {
			log.Info("No config file path given, algorithm hot reload disabled")
			return nil, nil
		}
		return config.NewWatcher(string(path), p, log)
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			ServiceName: cfg.App.Name,
		})
	},
)

// Datastore carries the storage handles for the active driver. PgxPool is
// nil under SQLite; the history provider and health checks adapt.
type Datastore struct {
	GormDB  *gorm.DB
	PgxPool *pgxpool.Pool

	manager *postgres.ConnectionManager
}

// Close releases the active driver's connections.
func (d *Datastore) Close() error {
	if d.manager != nil {
		return d.manager.Close()
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(newDatastore)

func newDatastore(cfg *config.Config, log *zap.Logger) (*Datastore, error) {
	switch cfg.Database.Driver {
	case "postgres":
		manager, err := postgres.NewConnectionManager(cfg, log)
		if err != nil {
			return nil, err
		}

		if cfg.Database.AutoMigrate {
			if err := runMigrations(manager, log); err != nil {
				manager.Close()
				return nil, err
			}
		}

		return &Datastore{
			GormDB:  manager.GetDB(),
			PgxPool: manager.GetPgxPool(),
			manager: manager,
		}, nil

	case "sqlite":
		dbPath := ":memory:"
		if cfg.Database.Database != "" {
			dbPath = cfg.Database.Database + ".db"
		}

		logLevel := gormLogger.Silent
		if cfg.App.Debug {
			logLevel = gormLogger.Info
		}

		db, err := sqlite.SetupDatabase(dbPath, logLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}

		if cfg.IsDevelopment() {
			if err := sqlite.SeedDatabase(db); err != nil {
				log.Warn("Failed to seed database", zap.Error(err))
			}
		}

		log.Info("Connected to SQLite database",
			zap.String("path", dbPath),
			zap.Bool("in_memory", dbPath == ":memory:"),
		)

		return &Datastore{GormDB: db}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func runMigrations(manager *postgres.ConnectionManager, log *zap.Logger) error {
	sqlDB, err := manager.GetDB().DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for migrations: %w", err)
	}

	migrator, err := migrations.New(sqlDB, log)
	if err != nil {
		return err
	}

	if err := migrator.Up(); err != nil {
		return err
	}

	// Close releases the connection the migrate driver holds; the pool
	// itself stays open.
	return migrator.Close()
}

// CacheModule provides the suggestion cache stack: in-process LRU, the
// optional Redis tier, and the memoization layer on top of them.
var CacheModule = fx.Provide(
	func(cfg *config.Config) *cache.LocalCache {
		return cache.NewLocalCache(cfg.Cache.MaxEntries)
	},
	func(cfg *config.Config, log *zap.Logger) (*cache.RedisCache, error) {
		if !cfg.Cache.UseRedis {
			return nil, nil
		}
		// Config asked for Redis; an unreachable server fails startup
		// rather than silently serving single-instance cache behavior.
		return cache.NewRedisCache(&cfg.Redis, log)
	},
	func(local *cache.LocalCache, redisCache *cache.RedisCache, log *zap.Logger) outbound.CacheRepository {
		if redisCache != nil {
			return cache.NewTieredCache(local, redisCache, time.Minute, log)
		}
		return local
	},
	func(cfg *config.Config) *cache.KeyBuilder {
		return cache.NewKeyBuilder(cfg.Cache.KeyPrefix)
	},
	func(cfg *config.Config, store outbound.CacheRepository, keys *cache.KeyBuilder, log *zap.Logger) outbound.SuggestionCache {
		if !cfg.Cache.Enabled {
			log.Info("Suggestion cache disabled, every request recomputes")
			return nil
		}
		return cache.NewSuggestionCache(store, keys, cfg.Cache.TTL, log)
	},
)

// ProviderModule provides the data provider implementations
var ProviderModule = fx.Provide(
	func(ds *Datastore) outbound.CatalogProvider {
		return gormRepo.NewCatalogRepository(ds.GormDB)
	},
	func(ds *Datastore) outbound.PantryProvider {
		return gormRepo.NewPantryRepository(ds.GormDB)
	},
	func(ds *Datastore) outbound.FavoritesProvider {
		return gormRepo.NewFavoritesRepository(ds.GormDB)
	},
	func(ds *Datastore) outbound.HistoryProvider {
		// History is append-heavy and window-scanned; postgres reads it
		// through pgx directly. SQLite mode falls back to GORM.
		if ds.PgxPool != nil {
			return postgres.NewHistoryRepository(ds.PgxPool)
		}
		return gormRepo.NewHistoryRepository(ds.GormDB)
	},
)

// ServiceModule provides the suggestion service wrapped in its
// observability decorator, bound to the inbound port.
var ServiceModule = fx.Provide(
	func(
		pantryProvider outbound.PantryProvider,
		catalogProvider outbound.CatalogProvider,
		favoritesProvider outbound.FavoritesProvider,
		historyProvider outbound.HistoryProvider,
		configProvider outbound.AlgorithmConfigProvider,
		suggestionCache outbound.SuggestionCache,
		cfg *config.Config,
		log *zap.Logger,
	) *appsuggestion.Service {
		return appsuggestion.NewService(
			pantryProvider,
			catalogProvider,
			favoritesProvider,
			historyProvider,
			configProvider,
			suggestionCache,
			appsuggestion.Config{
				RequestTimeout: cfg.Engine.RequestTimeout,
				RetryBackoff:   cfg.Engine.RetryBackoff,
			},
			log,
		)
	},
	fx.Annotate(
		func(svc *appsuggestion.Service, metrics *monitoring.EngineMetrics) *monitoring.InstrumentedService {
			return monitoring.NewInstrumentedService(svc, metrics)
		},
		fx.As(new(inbound.SuggestionService)),
	),
)

// MonitoringModule provides metrics, telemetry, and the ops server
var MonitoringModule = fx.Options(
	fx.Provide(
		monitoring.NewEngineMetrics,
		monitoring.NewTelemetryProvider,
		monitoring.NewOpsServer,
	),
	fx.Invoke(registerPoolMetrics),
)

// registerPoolMetrics publishes pgx pool statistics on the metrics
// endpoint. SQLite mode has no pool to report on.
func registerPoolMetrics(ds *Datastore) {
	if ds.PgxPool != nil {
		prometheus.MustRegister(postgres.NewPoolStatsCollector(ds.PgxPool))
	}
}

// HTTPModule provides the public API server
var HTTPModule = fx.Provide(
	server.NewServer,
)

// HealthModule provides the health check registry with the checkers the
// active configuration supports.
var HealthModule = fx.Provide(newHealthCheck)

func newHealthCheck(
	cfg *config.Config,
	log *zap.Logger,
	ds *Datastore,
	redisCache *cache.RedisCache,
	local *cache.LocalCache,
	provider *config.Provider,
) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)

	if ds.PgxPool != nil {
		hc.Register("database", healthcheck.NewDatabaseChecker(ds.PgxPool))
	}
	if redisCache != nil {
		hc.Register("redis", healthcheck.NewRedisChecker(redisCache.Client()))
	}

	hc.Register("algorithm_config", healthcheck.NewCustomChecker("algorithm_config",
		func(ctx context.Context) (healthcheck.Status, string, interface{}) {
			snapshot := provider.GetAlgorithmConfig()
			if err := snapshot.Validate(); err != nil {
				return healthcheck.StatusUnhealthy, fmt.Sprintf("active snapshot invalid: %v", err), nil
			}
			return healthcheck.StatusHealthy,
				fmt.Sprintf("snapshot version %d active", snapshot.Version),
				map[string]interface{}{"version": snapshot.Version}
		},
	))

	hc.Register("suggestion_cache", healthcheck.NewCustomChecker("suggestion_cache",
		func(ctx context.Context) (healthcheck.Status, string, interface{}) {
			return healthcheck.StatusHealthy, "local cache operational", local.GetStats()
		},
	))

	return hc
}

// LifecycleModule registers application lifecycle hooks
var LifecycleModule = fx.Invoke(registerLifecycleHooks)

type lifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.Logger
	API       *server.Server
	Ops       *monitoring.OpsServer
	Telemetry *monitoring.TelemetryProvider
	Watcher   *config.Watcher
	Local     *cache.LocalCache
	Redis     *cache.RedisCache
	Datastore *Datastore
}

func registerLifecycleHooks(p lifecycleParams) {
	var janitorStop chan struct{}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("Starting Platewise suggestion engine",
				zap.String("version", p.Config.App.Version),
				zap.String("environment", p.Config.App.Environment),
			)

			if p.Watcher != nil {
				if err := p.Watcher.Start(); err != nil {
					return fmt.Errorf("failed to start config watcher: %w", err)
				}
			}

			janitorStop = p.Local.AutoCleanup(cacheJanitorInterval)

			go func() {
				if err := p.API.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Fatal("API server failed", zap.Error(err))
				}
			}()

			go func() {
				if err := p.Ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Fatal("Ops server failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("Shutting down Platewise suggestion engine")

			if err := p.API.Shutdown(ctx); err != nil {
				p.Logger.Error("Failed to shutdown API server", zap.Error(err))
			}
			if err := p.Ops.Shutdown(ctx); err != nil {
				p.Logger.Error("Failed to shutdown ops server", zap.Error(err))
			}

			if p.Watcher != nil {
				if err := p.Watcher.Stop(); err != nil {
					p.Logger.Error("Failed to stop config watcher", zap.Error(err))
				}
			}
			if janitorStop != nil {
				close(janitorStop)
			}

			if err := p.Telemetry.Shutdown(ctx); err != nil {
				p.Logger.Error("Failed to shutdown telemetry", zap.Error(err))
			}

			if p.Redis != nil {
				if err := p.Redis.Close(); err != nil {
					p.Logger.Error("Failed to close Redis client", zap.Error(err))
				}
			}
			if err := p.Datastore.Close(); err != nil {
				p.Logger.Error("Failed to close database", zap.Error(err))
			}

			_ = p.Logger.Sync()
			return nil
		},
	})
}
