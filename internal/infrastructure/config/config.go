// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/platewise/v2/internal/domain/suggestion"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Ops        OpsConfig        `mapstructure:"ops"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains the suggestion API server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnableHTTP2       bool          `mapstructure:"enable_http2"`
}

// OpsConfig contains the operational server configuration (metrics,
// health probes, config introspection)
type OpsConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port" validate:"min=1,max=65535"`
	EnableDebugConfig bool   `mapstructure:"enable_debug_config"`
}

// EngineConfig contains the suggestion algorithm tuning. It mirrors the
// domain AlgorithmConfig so every knob can be set from file or
// environment; ToAlgorithmConfig materializes the domain snapshot.
type EngineConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`

	Weights    EngineWeights    `mapstructure:"weights"`
	Thresholds EngineThresholds `mapstructure:"thresholds"`
	Limits     EngineLimits     `mapstructure:"limits"`
	Scoring    EngineScoring    `mapstructure:"scoring"`
}

// EngineWeights contains the ranking weights
type EngineWeights struct {
	AvailabilityScore float64 `mapstructure:"availability_score" validate:"min=0"`
	FavoriteBoost     float64 `mapstructure:"favorite_boost" validate:"min=0"`
	KitchenPreference float64 `mapstructure:"kitchen_preference" validate:"min=0"`
	MealTypeMatch     float64 `mapstructure:"meal_type_match" validate:"min=0"`
	RecencyPenalty    float64 `mapstructure:"recency_penalty" validate:"min=0"`
}

// EngineThresholds contains the match classification cutoffs
type EngineThresholds struct {
	PerfectMatch  float64 `mapstructure:"perfect_match" validate:"min=0,max=100"`
	GoodMatch     float64 `mapstructure:"good_match" validate:"min=0,max=100"`
	MinimumViable float64 `mapstructure:"minimum_viable" validate:"min=0,max=100"`
}

// EngineLimits contains the pipeline limits
type EngineLimits struct {
	MaxSuggestions            int `mapstructure:"max_suggestions" validate:"min=1"`
	MaxMissingIngredients     int `mapstructure:"max_missing_ingredients" validate:"min=1"`
	RecentExclusionDays       int `mapstructure:"recent_exclusion_days" validate:"min=1"`
	MaxConsecutiveSuggestions int `mapstructure:"max_consecutive_suggestions" validate:"min=1"`
}

// EngineScoring contains the availability scorer sub-weights
type EngineScoring struct {
	Mandatory   float64 `mapstructure:"mandatory" validate:"min=0"`
	Recommended float64 `mapstructure:"recommended" validate:"min=0"`
	Optional    float64 `mapstructure:"optional" validate:"min=0"`
}

// CacheConfig contains suggestion cache configuration
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries" validate:"min=1"`
	UseRedis   bool          `mapstructure:"use_redis"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	Database      int           `mapstructure:"database"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MinIdleConns  int           `mapstructure:"min_idle_conns"`
	PoolSize      int           `mapstructure:"pool_size"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableCluster bool          `mapstructure:"enable_cluster"`
	ClusterNodes  []string      `mapstructure:"cluster_nodes"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	ReplicaHosts       []string      `mapstructure:"replica_hosts"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min" validate:"min=1"`
	BurstSize       int           `mapstructure:"burst_size" validate:"min=1"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics  bool    `mapstructure:"enable_metrics"`
	EnableTracing  bool    `mapstructure:"enable_tracing"`
	TraceExporter  string  `mapstructure:"trace_exporter" validate:"oneof=jaeger otlp none"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	SamplingRate   float64 `mapstructure:"sampling_rate" validate:"min=0,max=1"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/platewise")
	}

	// Enable environment variable override
	v.SetEnvPrefix("PLATEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Platewise")
	v.SetDefault("app.version", "2.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.enable_http2", true)

	// Ops server defaults
	v.SetDefault("ops.host", "0.0.0.0")
	v.SetDefault("ops.port", 9090)
	v.SetDefault("ops.enable_debug_config", false)

	// Engine defaults
	v.SetDefault("engine.request_timeout", "5s")
	v.SetDefault("engine.retry_backoff", "100ms")
	v.SetDefault("engine.weights.availability_score", 0.4)
	v.SetDefault("engine.weights.favorite_boost", 0.2)
	v.SetDefault("engine.weights.kitchen_preference", 0.15)
	v.SetDefault("engine.weights.meal_type_match", 0.15)
	v.SetDefault("engine.weights.recency_penalty", 0.1)
	v.SetDefault("engine.thresholds.perfect_match", 95.0)
	v.SetDefault("engine.thresholds.good_match", 75.0)
	v.SetDefault("engine.thresholds.minimum_viable", 50.0)
	v.SetDefault("engine.limits.max_suggestions", 10)
	v.SetDefault("engine.limits.max_missing_ingredients", 5)
	v.SetDefault("engine.limits.recent_exclusion_days", 7)
	v.SetDefault("engine.limits.max_consecutive_suggestions", 3)
	v.SetDefault("engine.scoring.mandatory", 0.7)
	v.SetDefault("engine.scoring.recommended", 0.2)
	v.SetDefault("engine.scoring.optional", 0.1)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.use_redis", false)
	v.SetDefault("cache.key_prefix", "platewise:suggestions")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "platewise")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.slow_query_threshold", "100ms")

	// Rate limit defaults
	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 120)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.trace_exporter", "otlp")
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("monitoring.sampling_rate", 0.1)
}

// Validate validates the configuration. Struct tags catch field-level
// problems; the engine snapshot check catches cross-field ones.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	algo := c.Engine.ToAlgorithmConfig()
	if err := algo.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	return nil
}

// ToAlgorithmConfig materializes the domain algorithm snapshot from the
// engine section. Version is assigned by the provider on publish.
func (e EngineConfig) ToAlgorithmConfig() suggestion.AlgorithmConfig {
	return suggestion.AlgorithmConfig{
		Weights: suggestion.Weights{
			AvailabilityScore: e.Weights.AvailabilityScore,
			FavoriteBoost:     e.Weights.FavoriteBoost,
			KitchenPreference: e.Weights.KitchenPreference,
			MealTypeMatch:     e.Weights.MealTypeMatch,
			RecencyPenalty:    e.Weights.RecencyPenalty,
		},
		Thresholds: suggestion.Thresholds{
			PerfectMatch:  e.Thresholds.PerfectMatch,
			GoodMatch:     e.Thresholds.GoodMatch,
			MinimumViable: e.Thresholds.MinimumViable,
		},
		Limits: suggestion.Limits{
			MaxSuggestions:            e.Limits.MaxSuggestions,
			MaxMissingIngredients:     e.Limits.MaxMissingIngredients,
			RecentExclusionDays:       e.Limits.RecentExclusionDays,
			MaxConsecutiveSuggestions: e.Limits.MaxConsecutiveSuggestions,
		},
		Scoring: suggestion.ScoringWeights{
			Mandatory:   e.Scoring.Mandatory,
			Recommended: e.Scoring.Recommended,
			Optional:    e.Scoring.Optional,
		},
	}
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Database
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetReplicaDSN returns the connection string for one read replica host.
func (c *Config) GetReplicaDSN(host string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
