// Package metrics implements ports.Metrics with Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/queueship/internal/domain"
)

// Metrics holds all Prometheus metrics for the queue.
type Metrics struct {
	QueuedPackets      prometheus.Gauge
	QueuedBytes        prometheus.Gauge
	QueueFull          prometheus.Gauge
	EnqueuedTotal      prometheus.Counter
	RejectedTotal      prometheus.Counter
	EvictedTotal       *prometheus.CounterVec
	SentTotal          prometheus.Counter
	SentBytesTotal     prometheus.Counter
	FailedBatchesTotal *prometheus.CounterVec
	SendDuration       prometheus.Histogram
}

// NewMetrics creates and registers all queue metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueuedPackets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queueship_queued_packets",
			Help: "Packets currently held in the queue",
		}),
		QueuedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queueship_queued_bytes",
			Help: "Payload bytes currently held in the queue",
		}),
		QueueFull: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queueship_queue_full",
			Help: "1 when the queue is at a count or size limit",
		}),
		EnqueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queueship_packets_enqueued_total",
			Help: "Total packets admitted",
		}),
		RejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queueship_packets_rejected_total",
			Help: "Total packets rejected at admission",
		}),
		EvictedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queueship_packets_evicted_total",
			Help: "Total packets evicted by reason",
		}, []string{"reason"}),
		SentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queueship_packets_sent_total",
			Help: "Total packets delivered",
		}),
		SentBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queueship_bytes_sent_total",
			Help: "Total payload bytes delivered",
		}),
		FailedBatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queueship_batches_failed_total",
			Help: "Total failed batch sends by error kind",
		}, []string{"kind"}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queueship_send_duration_seconds",
			Help:    "Duration of batch send attempts",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.QueuedPackets,
		m.QueuedBytes,
		m.QueueFull,
		m.EnqueuedTotal,
		m.RejectedTotal,
		m.EvictedTotal,
		m.SentTotal,
		m.SentBytesTotal,
		m.FailedBatchesTotal,
		m.SendDuration,
	)
	return m
}

func (m *Metrics) SetQueueStatus(s domain.QueueStatus) {
	m.QueuedPackets.Set(float64(s.QueuedPacketCount))
	m.QueuedBytes.Set(float64(s.QueuedPacketSizeBytes))
	if s.IsFull {
		m.QueueFull.Set(1)
	} else {
		m.QueueFull.Set(0)
	}
}

func (m *Metrics) PacketsEnqueued(n int) { m.EnqueuedTotal.Add(float64(n)) }

func (m *Metrics) PacketsRejected(n int) { m.RejectedTotal.Add(float64(n)) }

func (m *Metrics) PacketsEvicted(reason string, n int) {
	m.EvictedTotal.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) PacketsSent(n int, bytes int64) {
	m.SentTotal.Add(float64(n))
	m.SentBytesTotal.Add(float64(bytes))
}

func (m *Metrics) BatchFailed(kind domain.ErrorKind) {
	m.FailedBatchesTotal.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) ObserveSend(d time.Duration) { m.SendDuration.Observe(d.Seconds()) }
