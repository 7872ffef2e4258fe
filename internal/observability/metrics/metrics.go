package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the webhook pipeline.
type PipelineMetrics struct {
	inboundTotal    *prometheus.CounterVec
	repliesTotal    *prometheus.CounterVec
	escalationTotal prometheus.Counter
	webhookLatency  *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boneheal",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound WhatsApp webhooks",
		}, []string{"provider", "status"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boneheal",
			Subsystem: "webhook",
			Name:      "replies_total",
			Help:      "Total automated replies by decision source",
		}, []string{"source", "delivered"}),
		escalationTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boneheal",
			Subsystem: "webhook",
			Name:      "escalations_total",
			Help:      "Total leads flagged for human handling",
		}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "boneheal",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.repliesTotal, m.escalationTotal, m.webhookLatency)
	return m
}

func (m *PipelineMetrics) ObserveInbound(provider, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(provider, status).Inc()
}

func (m *PipelineMetrics) ObserveReply(source string, delivered bool) {
	if m == nil {
		return
	}
	label := "false"
	if delivered {
		label = "true"
	}
	m.repliesTotal.WithLabelValues(source, label).Inc()
}

func (m *PipelineMetrics) ObserveEscalation() {
	if m == nil {
		return
	}
	m.escalationTotal.Inc()
}

func (m *PipelineMetrics) ObserveLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(provider).Observe(seconds)
}
