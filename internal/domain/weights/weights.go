// Package weights defines the two-level weight configuration used to score
// competitors: named groups with a group weight, each holding metrics with a
// within-group weight.
package weights

import (
	"strconv"

	"github.com/okian/fairway/internal/domain/course"
	"github.com/okian/fairway/internal/domain/metric"
)

// Kind tells whether a configuration targets an archetype or a venue.
type Kind string

const (
	KindArchetype Kind = "archetype"
	KindVenue     Kind = "venue"
	KindCustom    Kind = "custom"
)

// MetricWeight is one metric inside a group.
type MetricWeight struct {
	Metric metric.ID `json:"metric"`
	Weight float64   `json:"weight"`
}

// Group is a named set of related metrics. Group weights are scaling
// factors and need not sum to 1 across groups; metric weights inside a
// group sum to 1.
type Group struct {
	Name    string         `json:"name"`
	Weight  float64        `json:"weight"`
	Metrics []MetricWeight `json:"metrics"`
}

// Config is a named, versioned weight configuration.
type Config struct {
	ID          string           `json:"id"`
	Version     int              `json:"version"`
	Kind        Kind             `json:"kind"`
	Archetype   course.Archetype `json:"archetype"`
	Venue       string           `json:"venue,omitempty"`
	Description string           `json:"description,omitempty"`
	Groups      []Group          `json:"groups"`
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Groups = make([]Group, len(c.Groups))
	for i, g := range c.Groups {
		out.Groups[i] = g
		out.Groups[i].Metrics = append([]MetricWeight(nil), g.Metrics...)
	}
	return out
}

// ExpectedMetrics returns the distinct metrics with a positive weight in a
// group with a positive weight, in first-appearance order. It is the
// denominator of coverage.
func (c Config) ExpectedMetrics() []metric.ID {
	seen := make(map[metric.ID]bool)
	var out []metric.ID
	for _, g := range c.Groups {
		if g.Weight <= 0 {
			continue
		}
		for _, m := range g.Metrics {
			if m.Weight <= 0 || seen[m.Metric] {
				continue
			}
			seen[m.Metric] = true
			out = append(out, m.Metric)
		}
	}
	return out
}

// TotalGroupWeight is the sum of group weights.
func (c Config) TotalGroupWeight() float64 {
	total := 0.0
	for _, g := range c.Groups {
		total += g.Weight
	}
	return total
}

// Key is "id@version".
func (c Config) Key() string {
	return c.ID + "@" + strconv.Itoa(c.Version)
}
