package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels applied to every metric.
type Config struct {
	ServiceName string
	Environment string
}

// SnapshotMetrics instruments the snapshot sync/publish pipeline. All
// methods are nil-receiver safe so callers can run without metrics wired.
type SnapshotMetrics struct {
	syncLag        prometheus.Histogram
	upserts        *prometheus.CounterVec
	publishes      *prometheus.CounterVec
	reconciles     *prometheus.CounterVec
	retention      *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	sweepSkipped   *prometheus.CounterVec
	backlogByState *prometheus.GaugeVec
}

var (
	snapshotMetricsOnce sync.Once
	snapshotMetrics     *SnapshotMetrics
)

// Snapshot returns the process-wide snapshot metrics, registering them on
// first use.
func Snapshot(cfg Config) *SnapshotMetrics {
	snapshotMetricsOnce.Do(func() {
		snapshotMetrics = newSnapshotMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return snapshotMetrics
}

func ResetSnapshotMetricsForTest() {
	snapshotMetricsOnce = sync.Once{}
	snapshotMetrics = nil
}

func newSnapshotMetrics(registerer prometheus.Registerer, cfg Config) *SnapshotMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "storageguard"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	syncLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "storageguard_snapshot_sync_lag_seconds",
		Help:        "Lag between booking creation and first snapshot creation.",
		Buckets:     []float64{1, 5, 15, 60, 300, 900, 3600},
		ConstLabels: constLabels,
	})

	upserts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "storageguard_snapshot_upserts_total",
			Help:        "Snapshot upsert operations by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"}, // created | updated
	)

	publishes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "storageguard_snapshot_publishes_total",
			Help:        "Publish attempts against the market listing store.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed | noop
	)

	reconciles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "storageguard_snapshot_reconciles_total",
			Help:        "Reconcile attempts for published snapshots.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed | skipped
	)

	retention := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "storageguard_snapshot_retention_total",
			Help:        "Snapshots removed or archived by the retention sweep.",
			ConstLabels: constLabels,
		},
		[]string{"action"}, // deleted | archived
	)

	sweepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "storageguard_sweep_duration_seconds",
			Help:        "Wall time of one scheduler sweep.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"sweep"},
	)

	sweepSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "storageguard_sweep_skipped_total",
			Help:        "Sweep ticks skipped because the prior run was still in progress.",
			ConstLabels: constLabels,
		},
		[]string{"sweep"},
	)

	backlogByState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "storageguard_snapshot_backlog_total",
			Help:        "Snapshots per lifecycle status at last sweep.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)

	registerer.MustRegister(
		syncLag,
		upserts,
		publishes,
		reconciles,
		retention,
		sweepDuration,
		sweepSkipped,
		backlogByState,
	)

	return &SnapshotMetrics{
		syncLag:        syncLag,
		upserts:        upserts,
		publishes:      publishes,
		reconciles:     reconciles,
		retention:      retention,
		sweepDuration:  sweepDuration,
		sweepSkipped:   sweepSkipped,
		backlogByState: backlogByState,
	}
}

func (m *SnapshotMetrics) ObserveSyncLag(lag time.Duration) {
	if m == nil {
		return
	}
	seconds := lag.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.syncLag.Observe(seconds)
}

func (m *SnapshotMetrics) IncUpsert(outcome string) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(outcome).Inc()
}

func (m *SnapshotMetrics) IncPublish(result string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(result).Inc()
}

func (m *SnapshotMetrics) IncReconcile(result string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(result).Inc()
}

func (m *SnapshotMetrics) AddRetention(action string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.retention.WithLabelValues(action).Add(float64(count))
}

func (m *SnapshotMetrics) ObserveSweepDuration(sweep string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(sweep).Observe(elapsed.Seconds())
}

func (m *SnapshotMetrics) IncSweepSkipped(sweep string) {
	if m == nil {
		return
	}
	m.sweepSkipped.WithLabelValues(sweep).Inc()
}

func (m *SnapshotMetrics) SetBacklog(status string, value int) {
	if m == nil {
		return
	}
	m.backlogByState.WithLabelValues(status).Set(float64(value))
}
