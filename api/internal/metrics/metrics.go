package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors of the relay.
type Metrics struct {
	Turns             *prometheus.CounterVec
	DegradedReplies   prometheus.Counter
	CollaboratorCalls *prometheus.HistogramVec
	ArtifactsLive     prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_relay_turns_total",
			Help: "Turns handled, by path and outcome kind",
		}, []string{"path", "kind"}),
		DegradedReplies: f.NewCounter(prometheus.CounterOpts{
			Name: "agri_relay_degraded_replies_total",
			Help: "Chat turns answered with the apology text",
		}),
		CollaboratorCalls: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agri_relay_collaborator_seconds",
			Help:    "Latency of chat, stt and tts calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"collaborator", "outcome"}),
		ArtifactsLive: f.NewGauge(prometheus.GaugeOpts{
			Name: "agri_relay_artifacts_live",
			Help: "Temporary audio files currently on disk",
		}),
	}
}

func (m *Metrics) RecordTurn(path, kind string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(path, kind).Inc()
}

func (m *Metrics) RecordDegraded() {
	if m == nil {
		return
	}
	m.DegradedReplies.Inc()
}

func (m *Metrics) ObserveCall(collaborator string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CollaboratorCalls.WithLabelValues(collaborator, outcome).Observe(time.Since(started).Seconds())
}
