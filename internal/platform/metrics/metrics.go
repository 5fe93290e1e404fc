package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the issuance pipeline.
type Metrics struct {
	IssuanceStarted   prometheus.Counter
	IssuanceDeduped   prometheus.Counter
	IssuanceCompleted prometheus.Counter
	IssuanceDiscarded prometheus.Counter
	IssuanceDropped   prometheus.Counter
	IssuanceFailed    *prometheus.CounterVec
	QueueDepth        prometheus.Gauge
	UploadDuration    prometheus.Histogram
	NotifyFailures    prometheus.Counter
}

// New creates and registers all Prometheus metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IssuanceStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_issuance_started_total",
			Help: "Issuance pipelines scheduled for first-time members",
		}),
		IssuanceDeduped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_issuance_deduped_total",
			Help: "Join events ignored because the member already holds an artifact",
		}),
		IssuanceCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_issuance_completed_total",
			Help: "Pipelines that published, recorded and finished",
		}),
		IssuanceDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_issuance_discarded_total",
			Help: "Pipelines that lost the ledger race after publishing",
		}),
		IssuanceDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_issuance_dropped_total",
			Help: "Join events dropped because the worker queue was full",
		}),
		IssuanceFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_issuance_failed_total",
			Help: "Pipelines aborted by stage",
		}, []string{"stage"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mintgate_issuance_queue_depth",
			Help: "Issuance tasks waiting for a worker",
		}),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mintgate_upload_duration_seconds",
			Help:    "Wall time of content gateway uploads",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_notification_failures_total",
			Help: "DM deliveries that failed after a successful issuance",
		}),
	}
}

// ObserveUpload records the duration of one gateway upload.
func (m *Metrics) ObserveUpload(d time.Duration) {
	m.UploadDuration.Observe(d.Seconds())
}

// FailStage counts an aborted pipeline against the stage that failed.
func (m *Metrics) FailStage(stage string) {
	m.IssuanceFailed.WithLabelValues(stage).Inc()
}
