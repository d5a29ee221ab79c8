package weights

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MaxWeight bounds both group and metric weights.
	MaxWeight = 1.0
	// SumTolerance is how far the metric weights of a group may drift from 1.
	SumTolerance = 0.01
)

// Validate checks a configuration and returns the first problem found,
// naming the config, group and metric involved.
func Validate(c Config) error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingID
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("%w: %s", ErrNoGroups, c.Key())
	}
	if !c.Archetype.Valid() {
		return fmt.Errorf("%w: %s archetype %d", ErrInvalidConfig, c.Key(), int(c.Archetype))
	}

	names := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("%w: %s has a group without a name", ErrInvalidConfig, c.Key())
		}
		if names[g.Name] {
			return fmt.Errorf("%w: %s group %q is declared twice", ErrInvalidConfig, c.Key(), g.Name)
		}
		names[g.Name] = true

		if !inRange(g.Weight) {
			return fmt.Errorf("%w: %s group %q weight %v", ErrWeightOutOfRange, c.Key(), g.Name, g.Weight)
		}
		if err := validateGroup(c, g); err != nil {
			return err
		}
	}
	if c.TotalGroupWeight() == 0 {
		return fmt.Errorf("%w: %s has no group with a positive weight", ErrNoGroups, c.Key())
	}
	return nil
}

func validateGroup(c Config, g Group) error {
	sum := 0.0
	positive := 0
	seen := make(map[int]bool, len(g.Metrics))
	for _, m := range g.Metrics {
		if !m.Metric.Valid() {
			return fmt.Errorf("%w: %s group %q metric %d", ErrUnknownMetric, c.Key(), g.Name, int(m.Metric))
		}
		if seen[int(m.Metric)] {
			return fmt.Errorf("%w: %s group %q metric %s", ErrDuplicateMetric, c.Key(), g.Name, m.Metric)
		}
		seen[int(m.Metric)] = true
		if !inRange(m.Weight) {
			return fmt.Errorf("%w: %s group %q metric %s weight %v", ErrWeightOutOfRange, c.Key(), g.Name, m.Metric, m.Weight)
		}
		if m.Weight > 0 {
			positive++
			sum += m.Weight
		}
	}
	if positive == 0 {
		return fmt.Errorf("%w: %s group %q", ErrEmptyGroup, c.Key(), g.Name)
	}
	if math.Abs(sum-1) > SumTolerance {
		return fmt.Errorf("%w: %s group %q sums to %.4f", ErrGroupWeightSum, c.Key(), g.Name, sum)
	}
	return nil
}

func inRange(w float64) bool {
	return !math.IsNaN(w) && w >= 0 && w <= MaxWeight
}

// Normalize validates c and returns a copy with zero-weight metric
// placeholders removed and every group's metric weights scaled to sum to
// exactly 1.
func Normalize(c Config) (Config, error) {
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	out := c.Clone()
	for i := range out.Groups {
		out.Groups[i] = RenormalizeGroup(out.Groups[i])
	}
	return out, nil
}

// RenormalizeGroup drops zero-weight metrics and rescales the rest to sum
// to 1. A group without positive weights is returned unchanged.
func RenormalizeGroup(g Group) Group {
	sum := 0.0
	kept := make([]MetricWeight, 0, len(g.Metrics))
	for _, m := range g.Metrics {
		if m.Weight > 0 {
			kept = append(kept, m)
			sum += m.Weight
		}
	}
	if sum == 0 {
		return g
	}
	for i := range kept {
		kept[i].Weight /= sum
	}
	g.Metrics = kept
	return g
}
