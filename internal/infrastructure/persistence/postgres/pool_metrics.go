package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exposes pgx connection pool statistics as prometheus
// metrics. It snapshots pgxpool.Stat on every scrape instead of keeping
// counters of its own, so it can never drift from the pool's accounting.
type PoolStatsCollector struct {
	pool *pgxpool.Pool

	acquiredConns      *prometheus.Desc
	idleConns          *prometheus.Desc
	totalConns         *prometheus.Desc
	maxConns           *prometheus.Desc
	constructingConns  *prometheus.Desc
	acquires           *prometheus.Desc
	acquireWaitSeconds *prometheus.Desc
	emptyAcquires      *prometheus.Desc
	canceledAcquires   *prometheus.Desc
	lifetimeDestroys   *prometheus.Desc
	idleDestroys       *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for the given pool. Register it
// once per process; prometheus rejects duplicate descriptors.
func NewPoolStatsCollector(pool *pgxpool.Pool) *PoolStatsCollector {
	fqName := func(name string) string {
		return prometheus.BuildFQName("platewise", "db_pool", name)
	}

	return &PoolStatsCollector{
		pool: pool,
		acquiredConns: prometheus.NewDesc(fqName("acquired_connections"),
			"Connections currently checked out of the pool", nil, nil),
		idleConns: prometheus.NewDesc(fqName("idle_connections"),
			"Connections sitting idle in the pool", nil, nil),
		totalConns: prometheus.NewDesc(fqName("total_connections"),
			"Total connections the pool currently holds", nil, nil),
		maxConns: prometheus.NewDesc(fqName("max_connections"),
			"Configured upper bound on pool connections", nil, nil),
		constructingConns: prometheus.NewDesc(fqName("constructing_connections"),
			"Connections currently being established", nil, nil),
		acquires: prometheus.NewDesc(fqName("acquires_total"),
			"Successful connection acquires since process start", nil, nil),
		acquireWaitSeconds: prometheus.NewDesc(fqName("acquire_wait_seconds_total"),
			"Cumulative time callers spent waiting for a connection", nil, nil),
		emptyAcquires: prometheus.NewDesc(fqName("empty_acquires_total"),
			"Acquires that had to wait because the pool was empty", nil, nil),
		canceledAcquires: prometheus.NewDesc(fqName("canceled_acquires_total"),
			"Acquires canceled by the caller's context", nil, nil),
		lifetimeDestroys: prometheus.NewDesc(fqName("destroyed_max_lifetime_total"),
			"Connections closed for exceeding their maximum lifetime", nil, nil),
		idleDestroys: prometheus.NewDesc(fqName("destroyed_max_idle_total"),
			"Connections closed for exceeding their idle timeout", nil, nil),
	}
}

var _ prometheus.Collector = (*PoolStatsCollector)(nil)

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.constructingConns
	ch <- c.acquires
	ch <- c.acquireWaitSeconds
	ch <- c.emptyAcquires
	ch <- c.canceledAcquires
	ch <- c.lifetimeDestroys
	ch <- c.idleDestroys
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()

	gauge := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}
	counter := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, v)
	}

	gauge(c.acquiredConns, float64(stat.AcquiredConns()))
	gauge(c.idleConns, float64(stat.IdleConns()))
	gauge(c.totalConns, float64(stat.TotalConns()))
	gauge(c.maxConns, float64(stat.MaxConns()))
	gauge(c.constructingConns, float64(stat.ConstructingConns()))
	counter(c.acquires, float64(stat.AcquireCount()))
	counter(c.acquireWaitSeconds, stat.AcquireDuration().Seconds())
	counter(c.emptyAcquires, float64(stat.EmptyAcquireCount()))
	counter(c.canceledAcquires, float64(stat.CanceledAcquireCount()))
	counter(c.lifetimeDestroys, float64(stat.MaxLifetimeDestroyCount()))
	counter(c.idleDestroys, float64(stat.MaxIdleDestroyCount()))
}
