package metrics

import "github.com/prometheus/client_golang/prometheus"

// TelephonyMetrics exposes counters/histograms for the webhook pipeline.
type TelephonyMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outreachTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewTelephonyMetrics(reg prometheus.Registerer) *TelephonyMetrics {
	m := &TelephonyMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaydesk",
			Subsystem: "telephony",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound provider webhooks",
		}, []string{"event_type", "status"}),
		outreachTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaydesk",
			Subsystem: "telephony",
			Name:      "outreach_attempt_total",
			Help:      "Total outreach send attempts",
		}, []string{"channel", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relaydesk",
			Subsystem: "telephony",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outreachTotal, m.webhookLatency)
	return m
}

func (m *TelephonyMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *TelephonyMetrics) ObserveOutreach(channel, status string) {
	if m == nil {
		return
	}
	m.outreachTotal.WithLabelValues(channel, status).Inc()
}

func (m *TelephonyMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
