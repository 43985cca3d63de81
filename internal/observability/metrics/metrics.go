package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrchestratorMetrics exposes counters/histograms for the booking conversation flow.
type OrchestratorMetrics struct {
	inboundTotal    *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	bookingAttempts *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
}

func NewOrchestratorMetrics(reg prometheus.Registerer) *OrchestratorMetrics {
	m := &OrchestratorMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patientflow",
			Subsystem: "conversation",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound channel webhooks by outcome",
		}, []string{"outcome"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patientflow",
			Subsystem: "conversation",
			Name:      "outbound_total",
			Help:      "Total outbound channel sends",
		}, []string{"status"}),
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patientflow",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking transaction attempts by result",
		}, []string{"result"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "patientflow",
			Subsystem: "conversation",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.bookingAttempts, m.webhookLatency)
	return m
}

func (m *OrchestratorMetrics) ObserveInbound(outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(outcome).Inc()
}

func (m *OrchestratorMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *OrchestratorMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(result).Inc()
}

func (m *OrchestratorMetrics) ObserveWebhookLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}
