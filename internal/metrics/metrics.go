// Package metrics counts what the tagging engine writes.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tagtical"

// Recorder holds the engine counters on a private registry. A nil Recorder
// records nothing.
type Recorder struct {
	reg *prometheus.Registry

	tagsCreated        prometheus.Counter
	tagRaces           prometheus.Counter
	taggingsCreated    *prometheus.CounterVec
	taggingsDeleted    *prometheus.CounterVec
	taggingsPromoted   *prometheus.CounterVec
	taggingsReweighted *prometheus.CounterVec
	saves              *prometheus.CounterVec
	saveDuration       prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		tagsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tags_created_total",
			Help: "Tags inserted.",
		}),
		tagRaces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tag_create_races_total",
			Help: "Tag inserts that lost a uniqueness race and were re-read.",
		}),
		taggingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "taggings_created_total",
			Help: "Taggings inserted.",
		}, []string{"taggable_type"}),
		taggingsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "taggings_deleted_total",
			Help: "Taggings deleted during reconciliation.",
		}, []string{"taggable_type"}),
		taggingsPromoted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "taggings_promoted_total",
			Help: "Taggings re-pointed from a parent level tag to a narrower one.",
		}, []string{"taggable_type"}),
		taggingsReweighted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "taggings_reweighted_total",
			Help: "Taggings whose relevance was updated in place.",
		}, []string{"taggable_type"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "saves_total",
			Help: "Taggable saves by result.",
		}, []string{"result"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "save_duration_seconds",
			Help:    "Time spent reconciling one taggable save.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	r.reg.MustRegister(
		r.tagsCreated, r.tagRaces,
		r.taggingsCreated, r.taggingsDeleted, r.taggingsPromoted, r.taggingsReweighted,
		r.saves, r.saveDuration,
	)
	return r
}

// Registry exposes the registry for scraping or inspection.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) TagCreated() {
	if r != nil {
		r.tagsCreated.Inc()
	}
}

func (r *Recorder) TagRace() {
	if r != nil {
		r.tagRaces.Inc()
	}
}

func (r *Recorder) TaggingsCreated(taggableType string, n int) {
	if r != nil && n > 0 {
		r.taggingsCreated.WithLabelValues(taggableType).Add(float64(n))
	}
}

func (r *Recorder) TaggingsDeleted(taggableType string, n int) {
	if r != nil && n > 0 {
		r.taggingsDeleted.WithLabelValues(taggableType).Add(float64(n))
	}
}

func (r *Recorder) TaggingsPromoted(taggableType string, n int) {
	if r != nil && n > 0 {
		r.taggingsPromoted.WithLabelValues(taggableType).Add(float64(n))
	}
}

func (r *Recorder) TaggingsReweighted(taggableType string, n int) {
	if r != nil && n > 0 {
		r.taggingsReweighted.WithLabelValues(taggableType).Add(float64(n))
	}
}

// Saved records one save outcome and its duration in seconds.
func (r *Recorder) Saved(err error, seconds float64) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.saves.WithLabelValues(result).Inc()
	r.saveDuration.Observe(seconds)
}

// Sample is one counter value summed over its labels.
type Sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Snapshot returns every counter summed across labels, sorted by name.
func (r *Recorder) Snapshot() ([]Sample, error) {
	if r == nil {
		return nil, nil
	}
	families, err := r.reg.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, mf := range families {
		var sum float64
		counter := false
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				sum += c.GetValue()
				counter = true
			}
		}
		if counter {
			out = append(out, Sample{Name: mf.GetName(), Value: sum})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
