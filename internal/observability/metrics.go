package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/domain/attestation"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

const namespace = "ballot"

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	resolverRuns     *prometheus.CounterVec
	resolverDuration prometheus.Histogram
	resolverTables   *prometheus.CounterVec
	resolverLastRun  prometheus.Gauge

	ingestResults *prometheus.CounterVec

	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	casesByStatus *prometheus.GaugeVec

	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

// NewMetrics registers every collector on a private registry. A nil *Metrics is valid
// and records nothing.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.apiRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	m.apiLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	m.apiInflight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_inflight_requests",
		Help:      "HTTP requests currently being served.",
	})

	m.resolverRuns = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolver_runs_total",
		Help:      "Resolver passes by outcome.",
	}, []string{"outcome"})
	m.resolverDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resolver_run_duration_seconds",
		Help:      "Wall time of resolver passes that evaluated tables.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	})
	m.resolverTables = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolver_tables_total",
		Help:      "Per-table resolver results by case status or failure kind.",
	}, []string{"result"})
	m.resolverLastRun = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "resolver_last_run_timestamp_seconds",
		Help:      "Unix time of the last resolver pass that evaluated tables.",
	})

	m.ingestResults = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attestation_ingest_total",
		Help:      "Submitted attestation items by result.",
	}, []string{"result"})

	m.aggregateLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregate_operation_duration_seconds",
		Help:      "Aggregate write latency by operation and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "status"})
	m.aggregateConflicts = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregate_conflicts_total",
		Help:      "Aggregate writes that failed with a conflict.",
	}, []string{"op"})
	m.aggregateRetries = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregate_retryable_total",
		Help:      "Aggregate writes that failed with a retryable error.",
	}, []string{"op"})

	m.casesByStatus = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cases",
		Help:      "Attestation cases by status.",
	}, []string{"status"})

	m.redisUp = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "redis_up",
		Help:      "1 when the lock redis answered the last ping.",
	})
	m.redisPing = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "redis_ping_seconds",
		Help:      "Latency of the last redis ping.",
	})
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncResolverRun(outcome string) {
	if m == nil {
		return
	}
	m.resolverRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveResolverRun(dur time.Duration) {
	if m == nil {
		return
	}
	m.resolverDuration.Observe(dur.Seconds())
	m.resolverLastRun.SetToCurrentTime()
}

func (m *Metrics) IncResolverTable(result string) {
	if m == nil {
		return
	}
	m.resolverTables.WithLabelValues(result).Inc()
}

func (m *Metrics) IncIngest(result string) {
	if m == nil {
		return
	}
	m.ingestResults.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateLatency.WithLabelValues(op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) SetCaseCounts(counts map[types.CaseStatus]int64) {
	if m == nil {
		return
	}
	for _, s := range attestation.AllCaseStatuses {
		m.casesByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// RegisterPostgres exports database/sql pool stats for db.
func (m *Metrics) RegisterPostgres(db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return m.registry.Register(collectors.NewDBStatsCollector(sqlDB, namespace))
}

// StartCaseCollector refreshes the cases gauge from count every interval until ctx ends.
func (m *Metrics) StartCaseCollector(ctx context.Context, log *logger.Logger, interval time.Duration, count func(context.Context) (map[types.CaseStatus]int64, error)) {
	if m == nil || count == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			counts, err := count(ctx)
			if err != nil {
				if log != nil && ctx.Err() == nil {
					log.Warn("case collector query failed", "error", err)
				}
			} else {
				m.SetCaseCounts(counts)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// StartRedisCollector pings client every interval and records availability.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, client redis.UniversalClient, interval time.Duration) {
	if m == nil || client == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			start := time.Now()
			err := client.Ping(pctx).Err()
			cancel()
			if err != nil {
				m.redisUp.Set(0)
				if log != nil && ctx.Err() == nil {
					log.Warn("redis ping failed", "error", err)
				}
			} else {
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
