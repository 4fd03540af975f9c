package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/platewise/v2/internal/infrastructure/config"
	"github.com/platewise/v2/internal/ports/outbound"
)

// RedisCache provides the Redis tier of the suggestion cache with cluster
// support, a circuit breaker, and connection health monitoring.
type RedisCache struct {
	client         redis.UniversalClient
	config         *config.RedisConfig
	logger         *zap.Logger
	metrics        *RedisMetrics
	healthCheck    *HealthCheck
	circuitBreaker *CircuitBreaker
}

// RedisMetrics tracks Redis performance and health
type RedisMetrics struct {
	TotalCommands    int64         `json:"total_commands"`
	SuccessfulOps    int64         `json:"successful_ops"`
	FailedOps        int64         `json:"failed_ops"`
	AvgResponseTime  time.Duration `json:"avg_response_time"`
	ConnectionErrors int64         `json:"connection_errors"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	LastUpdate       time.Time     `json:"last_update"`
	mu               sync.RWMutex
}

// HealthCheck monitors Redis connection health
type HealthCheck struct {
	IsHealthy     bool      `json:"is_healthy"`
	LastCheck     time.Time `json:"last_check"`
	LastError     string    `json:"last_error,omitempty"`
	CheckInterval time.Duration
	timeout       time.Duration
	checkTicker   *time.Ticker
	stopChan      chan struct{}
	mu            sync.RWMutex
}

// CircuitBreaker implements circuit breaker pattern for Redis
type CircuitBreaker struct {
	maxFailures     int
	timeout         time.Duration
	failures        int
	lastFailureTime time.Time
	state           CircuitState
	mu              sync.Mutex
}

// CircuitState represents circuit breaker states
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

var errCircuitOpen = fmt.Errorf("redis circuit breaker is open")

// NewRedisCache creates a Redis-backed cache repository and verifies the
// connection before returning.
func NewRedisCache(cfg *config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	opts := &redis.UniversalOptions{
		Addrs:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// Connection timeouts
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,

		// Connection lifecycle
		ConnMaxIdleTime: time.Minute * 5,
		PoolTimeout:     time.Second * 10,
	}

	if cfg.EnableCluster && len(cfg.ClusterNodes) > 0 {
		opts.Addrs = cfg.ClusterNodes
		logger.Info("Redis cluster mode enabled", zap.Strings("nodes", cfg.ClusterNodes))
	}

	client := redis.NewUniversalClient(opts)

	rc := &RedisCache{
		client:  client,
		config:  cfg,
		logger:  logger.Named("redis-cache"),
		metrics: &RedisMetrics{LastUpdate: time.Now()},
		healthCheck: &HealthCheck{
			CheckInterval: time.Second * 30,
			timeout:       time.Second * 5,
			stopChan:      make(chan struct{}),
		},
		circuitBreaker: &CircuitBreaker{
			maxFailures: 5,
			timeout:     time.Second * 30,
			state:       CircuitClosed,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := rc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	rc.startHealthCheck()

	logger.Info("Redis cache initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.Database),
		zap.Bool("cluster_enabled", cfg.EnableCluster))

	return rc, nil
}

// Ping tests Redis connection
func (r *RedisCache) Ping(ctx context.Context) error {
	if !r.circuitBreaker.AllowRequest() {
		return errCircuitOpen
	}

	start := time.Now()
	err := r.client.Ping(ctx).Err()
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis ping failed", zap.Error(err))
		return err
	}

	r.circuitBreaker.RecordSuccess()
	return nil
}

// Get retrieves a value from Redis with circuit breaker protection
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if !r.circuitBreaker.AllowRequest() {
		r.metrics.incrementCacheMiss()
		return nil, errCircuitOpen
	}

	start := time.Now()
	result, err := r.client.Get(ctx, key).Bytes()
	r.updateMetrics(err, time.Since(start))

	if err == redis.Nil {
		r.metrics.incrementCacheMiss()
		return nil, outbound.ErrCacheMiss
	}
	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.metrics.incrementCacheMiss()
		r.logger.Error("Redis GET failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	r.circuitBreaker.RecordSuccess()
	r.metrics.incrementCacheHit()
	return result, nil
}

// Set stores a value in Redis with TTL
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !r.circuitBreaker.AllowRequest() {
		return errCircuitOpen
	}

	start := time.Now()
	err := r.client.Set(ctx, key, value, ttl).Err()
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis SET failed", zap.String("key", key), zap.Error(err))
		return err
	}

	r.circuitBreaker.RecordSuccess()
	return nil
}

// Delete removes a key from Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if !r.circuitBreaker.AllowRequest() {
		return errCircuitOpen
	}

	start := time.Now()
	err := r.client.Del(ctx, key).Err()
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis DEL failed", zap.String("key", key), zap.Error(err))
		return err
	}

	r.circuitBreaker.RecordSuccess()
	return nil
}

// Exists checks if a key exists in Redis
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	if !r.circuitBreaker.AllowRequest() {
		return false, errCircuitOpen
	}

	start := time.Now()
	result, err := r.client.Exists(ctx, key).Result()
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis EXISTS failed", zap.String("key", key), zap.Error(err))
		return false, err
	}

	r.circuitBreaker.RecordSuccess()
	return result > 0, nil
}

// DeletePattern removes all keys matching a pattern using SCAN, so large
// keyspaces are walked incrementally instead of blocking the server.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	if !r.circuitBreaker.AllowRequest() {
		return errCircuitOpen
	}

	start := time.Now()

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	err := iter.Err()

	if err == nil && len(keys) > 0 {
		err = r.client.Del(ctx, keys...).Err()
	}
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}

	r.circuitBreaker.RecordSuccess()
	return nil
}

// GetMetrics returns current Redis metrics
func (r *RedisCache) GetMetrics() *RedisMetrics {
	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()

	// Create a copy to avoid race conditions
	return &RedisMetrics{
		TotalCommands:    r.metrics.TotalCommands,
		SuccessfulOps:    r.metrics.SuccessfulOps,
		FailedOps:        r.metrics.FailedOps,
		AvgResponseTime:  r.metrics.AvgResponseTime,
		ConnectionErrors: r.metrics.ConnectionErrors,
		CacheHits:        r.metrics.CacheHits,
		CacheMisses:      r.metrics.CacheMisses,
		LastUpdate:       r.metrics.LastUpdate,
	}
}

// Client exposes the underlying client for readiness checks.
func (r *RedisCache) Client() redis.UniversalClient {
	return r.client
}

// GetHealthStatus returns health check status
func (r *RedisCache) GetHealthStatus() *HealthCheck {
	r.healthCheck.mu.RLock()
	defer r.healthCheck.mu.RUnlock()

	return &HealthCheck{
		IsHealthy: r.healthCheck.IsHealthy,
		LastCheck: r.healthCheck.LastCheck,
		LastError: r.healthCheck.LastError,
	}
}

// Close closes the Redis client connection
func (r *RedisCache) Close() error {
	close(r.healthCheck.stopChan)
	if r.healthCheck.checkTicker != nil {
		r.healthCheck.checkTicker.Stop()
	}
	return r.client.Close()
}

// Internal helper methods

func (r *RedisCache) updateMetrics(err error, duration time.Duration) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()

	r.metrics.TotalCommands++
	if err != nil {
		r.metrics.FailedOps++
		if err != redis.Nil {
			r.metrics.ConnectionErrors++
		}
	} else {
		r.metrics.SuccessfulOps++
	}

	// Exponential moving average, alpha = 0.1
	if r.metrics.TotalCommands == 1 {
		r.metrics.AvgResponseTime = duration
	} else {
		alpha := 0.1
		r.metrics.AvgResponseTime = time.Duration(float64(r.metrics.AvgResponseTime)*(1-alpha) + float64(duration)*alpha)
	}

	r.metrics.LastUpdate = time.Now()
}

func (r *RedisCache) startHealthCheck() {
	r.healthCheck.checkTicker = time.NewTicker(r.healthCheck.CheckInterval)

	go func() {
		for {
			select {
			case <-r.healthCheck.checkTicker.C:
				r.performHealthCheck()
			case <-r.healthCheck.stopChan:
				return
			}
		}
	}()
}

func (r *RedisCache) performHealthCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), r.healthCheck.timeout)
	defer cancel()

	err := r.Ping(ctx)

	r.healthCheck.mu.Lock()
	r.healthCheck.LastCheck = time.Now()
	r.healthCheck.IsHealthy = err == nil
	if err != nil {
		r.healthCheck.LastError = err.Error()
	} else {
		r.healthCheck.LastError = ""
	}
	r.healthCheck.mu.Unlock()
}

// Circuit breaker methods

// AllowRequest checks if requests are allowed based on circuit state
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// Metrics helper methods

func (m *RedisMetrics) incrementCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *RedisMetrics) incrementCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

// GetCacheHitRatio calculates cache hit ratio
func (m *RedisMetrics) GetCacheHitRatio() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.CacheHits + m.CacheMisses
	if total == 0 {
		return 0.0
	}
	return float64(m.CacheHits) / float64(total)
}
