package montecarlo

import (
	"errors"
	"testing"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

func TestSummarize(t *testing.T) {
	res := &Result{Years: []int{2000, 2001}}
	for i := 1; i <= 100; i++ {
		res.Minima = append(res.Minima, []float64{-float64(i), -2 * float64(i)})
	}

	ex, err := Summarize(res, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(ex.Levels) != len(DefaultExceedance) {
		t.Fatalf("%d levels, expected %d", len(ex.Levels), len(DefaultExceedance))
	}
	if ex.Mean[0] != -50.5 || ex.Mean[1] != -101 {
		t.Errorf("Mean = %v, expected [-50.5 -101]", ex.Mean)
	}

	for k := range ex.Years {
		// rarer exceedance means a more landward position
		if !(ex.Levels[2][k] < ex.Levels[1][k] && ex.Levels[1][k] < ex.Levels[0][k]) {
			t.Errorf("year %d levels not ordered: %v %v %v", ex.Years[k], ex.Levels[0][k], ex.Levels[1][k], ex.Levels[2][k])
		}
		if ex.Levels[2][k] < -100*float64(k+1) || ex.Levels[0][k] > -float64(k+1) {
			t.Errorf("year %d levels outside the sample range", ex.Years[k])
		}
	}
}

func TestSummarizeErrors(t *testing.T) {
	res := &Result{Years: []int{2000}, Minima: [][]float64{{-1}}}
	for _, probs := range [][]float64{{0}, {1}, {-0.1}, {0.5, 1.5}} {
		if _, err := Summarize(res, probs); !errors.Is(err, simerr.ErrConfiguration) {
			t.Errorf("probabilities %v: expected ErrConfiguration, got %v", probs, err)
		}
	}
	if _, err := Summarize(&Result{}, nil); !errors.Is(err, simerr.ErrConfiguration) {
		t.Errorf("empty result: expected ErrConfiguration, got %v", err)
	}
}
