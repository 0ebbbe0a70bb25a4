package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPipeline_NilIsNoop(t *testing.T) {
	t.Parallel()

	var p *Pipeline
	p.MapRecord(OutcomeEmitted)
	p.MapEmitted(2)
	p.ReduceGroup(OutcomeUnpaired)
	p.ObserveFeature(0.1)
	p.SinkWrote("file", 3)
}

func TestPipeline_CountsByOutcome(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	p := New(reg)

	p.MapRecord(OutcomeEmitted)
	p.MapRecord(OutcomeEmitted)
	p.MapRecord(OutcomeFiltered)
	p.MapEmitted(3)
	p.MapEmitted(0)
	p.ReduceGroup(OutcomeIncomplete)
	p.ObserveFeature(0.002)
	p.SinkWrote("pg", 5)

	cases := []struct {
		name string
		kv   []string
		want float64
	}{
		{"wvd_map_records_total", []string{"outcome", "emitted"}, 2},
		{"wvd_map_records_total", []string{"outcome", "filtered"}, 1},
		{"wvd_map_records_total", nil, 3},
		{"wvd_map_emissions_total", nil, 3},
		{"wvd_reduce_groups_total", []string{"outcome", "incomplete"}, 1},
		{"wvd_feature_seconds", nil, 1},
		{"wvd_sink_rows_total", []string{"sink", "pg"}, 5},
		{"wvd_sink_rows_total", []string{"sink", "ch"}, 0},
	}
	for _, c := range cases {
		if got := CounterValue(reg, c.name, c.kv...); got != c.want {
			t.Fatalf("%s %v = %v, want %v", c.name, c.kv, got, c.want)
		}
	}
}

func TestNew_NilRegistererDoesNotPanic(t *testing.T) {
	t.Parallel()

	p := New(nil)
	p.ReduceGroup(OutcomeInvariant)
	p.ReduceGroup(OutcomeInvariant)
}

func TestNewRegistry_HasRuntimeCollectors(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "go_goroutines" {
			found = true
		}
	}
	if !found {
		t.Fatalf("go collector not registered")
	}
}
