package scoring

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
)

// madScale makes the MAD a consistent estimator of the standard deviation.
const madScale = 1.4826

type fieldStats struct {
	center float64
	scale  float64
	n      int
}

// normalizer standardizes metric values against the field. Lower-is-better
// metrics come out sign-inverted so that higher is always better.
type normalizer struct {
	method Normalization
	stats  map[metric.ID]fieldStats
}

func newNormalizer(method Normalization, metrics []metric.ID, field []model.Bundle, value func(model.Bundle, metric.ID) (float64, bool)) *normalizer {
	n := &normalizer{method: method, stats: make(map[metric.ID]fieldStats, len(metrics))}
	xs := make([]float64, 0, len(field))
	for _, id := range metrics {
		xs = xs[:0]
		for _, b := range field {
			if v, ok := value(b, id); ok {
				xs = append(xs, v)
			}
		}
		n.stats[id] = summarize(method, xs)
	}
	return n
}

func summarize(method Normalization, xs []float64) fieldStats {
	st := fieldStats{n: len(xs)}
	if len(xs) < 2 {
		return st
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if method == Robust {
		med, mad := medianMAD(xs)
		if mad > 0 {
			st.center, st.scale = med, madScale*mad
			return st
		}
		// MAD collapses when over half the field shares a value
		st.center = med
		st.scale = std
		return st
	}
	st.center, st.scale = mean, std
	return st
}

func medianMAD(xs []float64) (float64, float64) {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	med := median(sorted)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - med)
	}
	sort.Float64s(dev)
	return med, median(dev)
}

func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}

// z returns the standardized, direction-corrected value of v. Metrics
// without spread in the field contribute the field average, 0.
func (n *normalizer) z(id metric.ID, v float64) float64 {
	st, ok := n.stats[id]
	if !ok || st.n < 2 || st.scale == 0 || math.IsNaN(st.scale) {
		return 0
	}
	z := (v - st.center) / st.scale
	if n.method == Robust {
		z = math.Asinh(z)
	}
	z = clip(z, -zClip, zClip)
	if id.LowerIsBetter() {
		z = -z
	}
	return z
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
