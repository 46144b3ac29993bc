package storm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

// ECDF is an empirical distribution: sorted values with probabilities i/n.
type ECDF struct {
	Values []float64 `json:"values" msgpack:"values"`
	Probs  []float64 `json:"probs" msgpack:"probs"`
}

// NewECDF builds an ECDF from unsorted samples.
func NewECDF(samples []float64) ECDF {
	values := make([]float64, len(samples))
	copy(values, samples)
	sort.Float64s(values)

	n := float64(len(values))
	probs := make([]float64, len(values))
	for i := range values {
		probs[i] = float64(i+1) / n
	}
	return ECDF{Values: values, Probs: probs}
}

// Len returns the number of samples.
func (e ECDF) Len() int {
	return len(e.Values)
}

// CDF returns the fraction of samples less than or equal to x.
func (e ECDF) CDF(x float64) float64 {
	if len(e.Values) == 0 {
		return 0
	}
	return stat.CDF(x, stat.Empirical, e.Values, nil)
}

// Quantile returns the smallest sample whose cumulative probability is at
// least p. p must lie in [0,1]; anything else is outside the empirical
// support and fails with ErrSampling.
func (e ECDF) Quantile(p float64) (float64, error) {
	if len(e.Values) == 0 {
		return 0, fmt.Errorf("%w: empty empirical distribution", simerr.ErrSampling)
	}
	if !(p >= 0 && p <= 1) {
		return 0, fmt.Errorf("%w: probability %v outside [0,1]", simerr.ErrSampling, p)
	}
	return stat.Quantile(p, stat.Empirical, e.Values, nil), nil
}

// FitGapECDF builds the ECDF of within-season gaps, those strictly below
// seasonBreak days. The first event has no gap and is ignored.
func FitGapECDF(events []Event, seasonBreak float64) (ECDF, error) {
	if len(events) < 2 {
		return ECDF{}, fmt.Errorf("%w: %d detected", simerr.ErrInsufficientStorms, len(events))
	}
	var gaps []float64
	for _, e := range events {
		if e.HasGap() && e.GapBeforeDays < seasonBreak {
			gaps = append(gaps, e.GapBeforeDays)
		}
	}
	if len(gaps) == 0 {
		return ECDF{}, simerr.NewFitError(StageGapECDF, fmt.Errorf("no within-season gaps below %v days", seasonBreak))
	}
	return NewECDF(gaps), nil
}
