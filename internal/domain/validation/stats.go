package validation

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stat is a statistic that may be undefined, e.g. a correlation over fewer
// than two points. Undefined stats encode as JSON null.
type Stat struct {
	Value   float64
	Defined bool
}

func defined(v float64) Stat { return Stat{Value: v, Defined: true} }

func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Stat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Stat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = defined(v)
	return nil
}

// pearson returns the correlation of x and y, undefined with fewer than two
// points or zero variance on either side.
func pearson(x, y []float64) Stat {
	if len(x) < 2 {
		return Stat{}
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Stat{}
	}
	return defined(math.Max(-1, math.Min(1, r)))
}

// spearman is the Pearson correlation of tie-averaged ranks.
func spearman(x, y []float64) Stat {
	if len(x) < 2 {
		return Stat{}
	}
	return pearson(averageRanks(x), averageRanks(y))
}

// averageRanks assigns 1-based ranks; tied values share the mean of the
// ranks they span.
func averageRanks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && xs[idx[j]] == xs[idx[i]] {
			j++
		}
		// positions i..j-1 hold ranks i+1..j
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}

func rmseMAE(x, y []float64) (Stat, Stat) {
	if len(x) == 0 {
		return Stat{}, Stat{}
	}
	var sq, abs float64
	for i := range x {
		d := x[i] - y[i]
		sq += d * d
		abs += math.Abs(d)
	}
	n := float64(len(x))
	return defined(math.Sqrt(sq / n)), defined(abs / n)
}
