package optimizer

import (
	"math/rand"

	"github.com/okian/fairway/internal/domain/weights"
)

// splitmix64 derives an independent PRNG seed for one iteration of one run.
func splitmix64(seed int64, iteration int) int64 {
	z := uint64(seed) + uint64(iteration+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// perturb scales every positive group and metric weight by a factor drawn
// from [1-jitter, 1+jitter], clamps it to [minWeight, 1] and renormalizes
// each group. Disabled groups and metrics stay at zero.
func perturb(c weights.Config, rng *rand.Rand, groupJitter, metricJitter, minWeight float64) weights.Config {
	out := c.Clone()
	for i := range out.Groups {
		g := &out.Groups[i]
		if g.Weight > 0 {
			g.Weight = scale(g.Weight, rng, groupJitter, minWeight)
		}
		for j := range g.Metrics {
			if g.Metrics[j].Weight > 0 {
				g.Metrics[j].Weight = scale(g.Metrics[j].Weight, rng, metricJitter, minWeight)
			}
		}
		*g = weights.RenormalizeGroup(*g)
	}
	return out
}

func scale(w float64, rng *rand.Rand, jitter, minWeight float64) float64 {
	u := (rng.Float64()*2 - 1) * jitter
	return clamp(w*(1+u), minWeight, weights.MaxWeight)
}
