package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/types"
)

const namespace = "mediavault"

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	uploadRequestBytes *prometheus.HistogramVec

	uploads        *prometheus.CounterVec
	uploadLatency  *prometheus.HistogramVec
	uploadBytes    prometheus.Counter
	probes         *prometheus.CounterVec
	probeLatency   *prometheus.HistogramVec
	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec
	batchFiles     *prometheus.CounterVec

	pgStats *prometheus.GaugeVec
}

// NewMetrics builds the collectors on a private registry so tests and
// multiple servers in one process never collide on the global one.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds by method/route/status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		uploadRequestBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_request_bytes",
			Help:      "Declared multipart body size of upload requests by route.",
			Buckets:   prometheus.ExponentialBuckets(64<<10, 4, 9),
		}, []string{"route"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Single-file pipeline runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		uploadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "End-to-end single-file pipeline latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"kind", "outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative payload size of successful uploads.",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_probe_total",
			Help:      "Media probe steps by outcome.",
		}, []string{"step", "outcome"}),
		probeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "media_probe_duration_seconds",
			Help:      "Latency of external media tool invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "object_store_operation_duration_seconds",
			Help:      "Latency for object store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_store_operation_errors_total",
			Help:      "Count of object store failures.",
		}, []string{"operation"}),
		batchFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_files_total",
			Help:      "Files received through batch uploads by outcome.",
		}, []string{"outcome"}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "postgres_pool",
			Help:      "database/sql pool statistics.",
		}, []string{"stat"}),
	}

	cs := []prometheus.Collector{
		m.apiRequests, m.apiLatency, m.apiInflight, m.uploadRequestBytes,
		m.uploads, m.uploadLatency, m.uploadBytes,
		m.probes, m.probeLatency,
		m.storageLatency, m.storageErrors,
		m.batchFiles, m.pgStats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

// ObserveUploadRequest records the Content-Length of an upload request.
// Unknown lengths are skipped.
func (m *Metrics) ObserveUploadRequest(route string, bytes int64) {
	if m == nil || bytes < 0 {
		return
	}
	m.uploadRequestBytes.WithLabelValues(route).Observe(float64(bytes))
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

func (m *Metrics) ObserveUpload(kind types.AssetKind, outcome string, d time.Duration, bytes int64) {
	if m == nil {
		return
	}
	k := string(kind)
	if k == "" {
		k = string(types.AssetKindOther)
	}
	m.uploads.WithLabelValues(k, outcome).Inc()
	m.uploadLatency.WithLabelValues(k, outcome).Observe(d.Seconds())
	if outcome == "success" && bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) ObserveProbe(step string, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(step, outcome).Inc()
	if d > 0 {
		m.probeLatency.WithLabelValues(step).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveStorageOp(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.storageLatency.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.storageErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) ObserveBatch(total int, failed int) {
	if m == nil {
		return
	}
	m.batchFiles.WithLabelValues("success").Add(float64(total - failed))
	m.batchFiles.WithLabelValues("failure").Add(float64(failed))
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}
