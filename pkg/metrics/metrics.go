package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service counters. HTTP metrics come from the gin
// middleware; the SOS counters are incremented by the services directly.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	SOSTriggered  prometheus.Counter
	SOSResolved   prometheus.Counter
	SOSCancelled  prometheus.Counter
	AudioChunks   prometheus.Counter
	FanoutSent    prometheus.Counter
	FanoutRetries prometheus.Counter
	FanoutFailed  prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on the given registerer; tests pass a fresh registry so
// repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		SOSTriggered: factory.NewCounter(prometheus.CounterOpts{
			Name: "sos_alerts_triggered_total",
			Help: "SOS alerts created",
		}),
		SOSResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "sos_alerts_resolved_total",
			Help: "SOS alerts resolved",
		}),
		SOSCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "sos_alerts_cancelled_total",
			Help: "SOS alerts cancelled",
		}),
		AudioChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "sos_audio_chunks_total",
			Help: "Audio chunks ingested",
		}),
		FanoutSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "sos_fanout_messages_total",
			Help: "Contact notifications delivered",
		}),
		FanoutRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "sos_fanout_retries_total",
			Help: "Contact notification retries",
		}),
		FanoutFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sos_fanout_failures_total",
			Help: "Contact notifications dropped after retries",
		}),
	}
}
