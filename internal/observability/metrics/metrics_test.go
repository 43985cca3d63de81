package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrchestratorMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrchestratorMetrics(reg)
	m.ObserveInbound("processed")
	m.ObserveOutbound("sent")
	m.ObserveBooking("conflict")
	m.ObserveWebhookLatency("processed", 0.5)
}

func TestOrchestratorMetricsNilSafe(t *testing.T) {
	var m *OrchestratorMetrics
	m.ObserveInbound("processed")
	m.ObserveOutbound("sent")
	m.ObserveBooking("booked")
	m.ObserveWebhookLatency("processed", 0.1)
}
