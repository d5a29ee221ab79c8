package model

import (
	"encoding/json"
	"sort"

	"github.com/okian/fairway/internal/domain/metric"
)

// Bundle is the consolidated per-competitor view the scorer consumes.
// A metric without contributing rows has no entry; it is never zero.
// Bundles are immutable once built.
type Bundle struct {
	CompetitorID int64
	Name         string

	values       map[metric.ID]float64
	observations map[metric.ID]int
	samples      map[metric.Bucket]int
}

// NewBundle copies the given maps into a new bundle. observations may be nil,
// in which case every value counts as one observation.
func NewBundle(id int64, name string, values map[metric.ID]float64, observations map[metric.ID]int, samples map[metric.Bucket]int) Bundle {
	b := Bundle{
		CompetitorID: id,
		Name:         name,
		values:       make(map[metric.ID]float64, len(values)),
		observations: make(map[metric.ID]int, len(values)),
		samples:      make(map[metric.Bucket]int, len(samples)),
	}
	for k, v := range values {
		b.values[k] = v
		n := 1
		if observations != nil {
			n = observations[k]
		}
		b.observations[k] = n
	}
	for k, v := range samples {
		b.samples[k] = v
	}
	return b
}

// Value returns the aggregated value of id and whether any data exists.
func (b Bundle) Value(id metric.ID) (float64, bool) {
	v, ok := b.values[id]
	return v, ok
}

// Observations returns how many rows contributed to id.
func (b Bundle) Observations(id metric.ID) int {
	return b.observations[id]
}

// Samples returns the sample count of bucket: rounds observed for Rounds,
// shots for approach buckets.
func (b Bundle) Samples(bucket metric.Bucket) int {
	return b.samples[bucket]
}

// Metrics returns the metrics with data, in ID order.
func (b Bundle) Metrics() []metric.ID {
	out := make([]metric.ID, 0, len(b.values))
	for id := range b.values {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasData reports whether any metric has data.
func (b Bundle) HasData() bool {
	return len(b.values) > 0
}

type bundleJSON struct {
	CompetitorID int64                 `json:"competitor_id"`
	Name         string                `json:"name,omitempty"`
	Metrics      map[metric.ID]float64 `json:"metrics"`
	Samples      map[metric.Bucket]int `json:"samples,omitempty"`
}

func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(bundleJSON{
		CompetitorID: b.CompetitorID,
		Name:         b.Name,
		Metrics:      b.values,
		Samples:      b.samples,
	})
}
