package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	TurnsTotal      *prometheus.CounterVec
	GateRejections  prometheus.Counter
	UpstreamLatency *prometheus.HistogramVec
	UpstreamRetries prometheus.Counter
	LiveSessions    prometheus.Gauge
	SweptSessions   prometheus.Counter
}

// NewMetrics registers the instruments on reg, or on the default registerer
// when reg is nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by outcome.",
		}, []string{"outcome"}),
		GateRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Questions rejected by the topic gate.",
		}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Latency of upstream completion attempts by outcome.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		UpstreamRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Upstream attempts re-entered after a transport failure.",
		}),
		LiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Sessions currently held in conversation memory.",
		}),
		SweptSessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_sessions_total",
			Help:      "Sessions removed by the retention sweep.",
		}),
	}
}

// ObserveUpstreamLatency implements the upstream client's observer.
func (m *Metrics) ObserveUpstreamLatency(d time.Duration, outcome string) {
	m.UpstreamLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncUpstreamRetry implements the upstream client's observer.
func (m *Metrics) IncUpstreamRetry() {
	m.UpstreamRetries.Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
