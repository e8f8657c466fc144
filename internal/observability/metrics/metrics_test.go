package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveCycle("consultations", "ok", 0.05)
	m.ObserveCycle("consultations", "ok", 0.10)
	m.ObserveCycle("consultations", "error", 0.02)
	m.SetConsecutiveFailures("consultations", 3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var cycleTotal, failures *dto.MetricFamily
	for _, mf := range families {
		switch {
		case strings.HasSuffix(mf.GetName(), "cycle_total"):
			cycleTotal = mf
		case strings.HasSuffix(mf.GetName(), "consecutive_failures"):
			failures = mf
		}
	}
	if cycleTotal == nil || failures == nil {
		t.Fatalf("expected metric families, got %v", families)
	}

	total := 0.0
	for _, metric := range cycleTotal.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total != 3 {
		t.Fatalf("expected 3 cycles counted, got %v", total)
	}
	if got := failures.GetMetric()[0].GetGauge().GetValue(); got != 3 {
		t.Fatalf("expected failure gauge 3, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *SyncMetrics
	m.ObserveCycle("x", "ok", 0)
	m.SetConsecutiveFailures("x", 1)
}
