package montecarlo

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

// DefaultExceedance are the exceedance probabilities reported when none
// are configured.
var DefaultExceedance = []float64{0.5, 0.1, 0.01}

// Exceedance is the per-year coastline position exceeded landward with
// each probability, plus the ensemble mean.
type Exceedance struct {
	Years         []int
	Probabilities []float64
	// Levels[j][k] is the position in Years[k] that the annual minimum
	// falls below with probability Probabilities[j].
	Levels [][]float64
	Mean   []float64
}

// Summarize reduces the annual-minima matrix to exceedance levels.
func Summarize(res *Result, probs []float64) (*Exceedance, error) {
	if len(res.Minima) == 0 {
		return nil, simerr.Configf("no realizations to summarize")
	}
	if len(probs) == 0 {
		probs = DefaultExceedance
	}
	for _, p := range probs {
		if !(p > 0 && p < 1) {
			return nil, simerr.Configf("exceedance probability %v outside (0,1)", p)
		}
	}

	ex := &Exceedance{
		Years:         append([]int(nil), res.Years...),
		Probabilities: append([]float64(nil), probs...),
		Levels:        make([][]float64, len(probs)),
		Mean:          make([]float64, len(res.Years)),
	}
	for j := range probs {
		ex.Levels[j] = make([]float64, len(res.Years))
	}

	for k := range res.Years {
		col := res.Column(k)
		sort.Float64s(col)
		ex.Mean[k] = stat.Mean(col, nil)
		for j, p := range probs {
			ex.Levels[j][k] = stat.Quantile(p, stat.Empirical, col, nil)
		}
	}
	return ex, nil
}
