package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegistry_RecordOpinion(t *testing.T) {
	reg := NewRegistry()

	reg.RecordOpinion("gpt4", "BUY")
	reg.RecordOpinion("gpt4", "BUY")
	reg.RecordOpinion("ml", "HOLD")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "signalforge_opinions_total" {
			found = true
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				if labels["source"] == "gpt4" && labels["signal"] == "BUY" {
					if m.GetCounter().GetValue() != 2 {
						t.Errorf("gpt4/BUY count = %v, want 2", m.GetCounter().GetValue())
					}
				}
			}
		}
	}
	if !found {
		t.Error("expected signalforge_opinions_total metric")
	}
}

func TestRegistry_RecordFusedSignal(t *testing.T) {
	reg := NewRegistry()

	reg.RecordFusedSignal("BUY", "MEDIUM", 0.123)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	var sawCounter, sawHist bool
	for _, mf := range mfs {
		switch mf.GetName() {
		case "signalforge_fused_signals_total":
			sawCounter = true
		case "signalforge_fusion_duration_seconds":
			sawHist = true
			for _, m := range mf.GetMetric() {
				hist := m.GetHistogram()
				if hist.GetSampleCount() != 1 {
					t.Errorf("sample count = %d, want 1", hist.GetSampleCount())
				}
				if hist.GetSampleSum() < 0.12 || hist.GetSampleSum() > 0.13 {
					t.Errorf("sample sum = %v, want ~0.123", hist.GetSampleSum())
				}
			}
		}
	}
	if !sawCounter || !sawHist {
		t.Error("expected fused signal counter and fusion duration histogram")
	}
}

func TestRegistry_RecordCacheLookup(t *testing.T) {
	reg := NewRegistry()

	reg.RecordCacheLookup(true)
	reg.RecordCacheLookup(false)
	reg.RecordCacheLookup(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() == "signalforge_snapshot_cache_total" {
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "outcome" {
						counts[l.GetValue()] = m.GetCounter().GetValue()
					}
				}
			}
		}
	}
	if counts["hit"] != 1 || counts["miss"] != 2 {
		t.Errorf("cache counts = %v, want hit:1 miss:2", counts)
	}
}

func TestRegistry_RecordBacktest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBacktest("success", 250, 12.5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "signalforge_backtest_days_total" {
			found = true
			for _, m := range mf.GetMetric() {
				if m.GetCounter().GetValue() != 250 {
					t.Errorf("days = %v, want 250", m.GetCounter().GetValue())
				}
			}
		}
	}
	if !found {
		t.Error("expected signalforge_backtest_days_total metric")
	}
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}
