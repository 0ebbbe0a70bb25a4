// Package metrics owns the prometheus collectors of the extraction pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Map record outcomes
const (
	OutcomeEmitted   = "emitted"
	OutcomeFiltered  = "filtered"
	OutcomeMalformed = "malformed"
)

// Reduce group outcomes
const (
	OutcomeIncomplete       = "incomplete"
	OutcomeUnpaired         = "unpaired"
	OutcomePayloadDropped   = "payload_dropped"
	OutcomeCalculatorFailed = "calculator_failed"
	OutcomeNoFeatures       = "no_features"
	OutcomeInvariant        = "invariant"
)

// Pipeline bundles every collector the map and reduce stages touch
// a nil *Pipeline is valid and records nothing
type Pipeline struct {
	MapRecords     *prometheus.CounterVec
	MapEmissions   prometheus.Counter
	ReduceGroups   *prometheus.CounterVec
	FeatureSeconds prometheus.Histogram
	SinkRows       *prometheus.CounterVec
}

// NewRegistry returns a registry preloaded with the go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New builds the collectors and registers them on reg
// a nil reg leaves them unregistered, which keeps tests free of global state
func New(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		MapRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wvd",
			Name:      "map_records_total",
			Help:      "Raw revision records seen by the map stage by outcome",
		}, []string{"outcome"}),
		MapEmissions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wvd",
			Name:      "map_emissions_total",
			Help:      "Routed key value pairs emitted by the map stage",
		}),
		ReduceGroups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wvd",
			Name:      "reduce_groups_total",
			Help:      "Reduce groups by outcome",
		}, []string{"outcome"}),
		FeatureSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wvd",
			Name:      "feature_seconds",
			Help:      "Feature calculator latency per edit",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		SinkRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wvd",
			Name:      "sink_rows_total",
			Help:      "Output records written per sink",
		}, []string{"sink"}),
	}
}

// MapRecord counts one map input record
func (p *Pipeline) MapRecord(outcome string) {
	if p == nil {
		return
	}
	p.MapRecords.WithLabelValues(outcome).Inc()
}

// MapEmitted counts n routed emissions
func (p *Pipeline) MapEmitted(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.MapEmissions.Add(float64(n))
}

// ReduceGroup counts one reduce outcome
func (p *Pipeline) ReduceGroup(outcome string) {
	if p == nil {
		return
	}
	p.ReduceGroups.WithLabelValues(outcome).Inc()
}

// ObserveFeature records calculator latency in seconds
func (p *Pipeline) ObserveFeature(seconds float64) {
	if p == nil {
		return
	}
	p.FeatureSeconds.Observe(seconds)
}

// SinkWrote counts rows persisted by a sink
func (p *Pipeline) SinkWrote(sink string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.SinkRows.WithLabelValues(sink).Add(float64(n))
}

// CounterValue sums the counter samples named name whose labels include every
// key value pair in kv; histograms contribute their sample count
func CounterValue(g prometheus.Gatherer, name string, kv ...string) float64 {
	mfs, err := g.Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for i := 0; i+1 < len(kv); i += 2 {
				if labels[kv[i]] != kv[i+1] {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}
