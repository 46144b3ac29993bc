package storm

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func nan() float64 { return math.NaN() }

func TestGEVQuantileInvertsCDF(t *testing.T) {
	dists := []GEV{
		{Shape: 0, Location: 2, Scale: 0.5},
		{Shape: 0.2, Location: 3, Scale: 1},
		{Shape: -0.3, Location: 1, Scale: 0.2},
	}
	for _, g := range dists {
		for _, p := range []float64{0.01, 0.1, 0.5, 0.9, 0.99} {
			x := g.Quantile(p)
			if got := g.CDF(x); math.Abs(got-p) > 1e-9 {
				t.Errorf("%+v: CDF(Quantile(%v)) = %v", g, p, got)
			}
		}
	}
}

func TestGEVSupport(t *testing.T) {
	frechet := GEV{Shape: 0.5, Location: 0, Scale: 1}
	if got := frechet.CDF(-3); got != 0 {
		t.Errorf("below lower bound: CDF = %v, expected 0", got)
	}
	if !math.IsInf(frechet.LogProb(-3), -1) {
		t.Errorf("below lower bound: LogProb should be -Inf")
	}

	weibull := GEV{Shape: -0.5, Location: 0, Scale: 1}
	if got := weibull.CDF(3); got != 1 {
		t.Errorf("above upper bound: CDF = %v, expected 1", got)
	}
}

func TestFitGEVRecoversParameters(t *testing.T) {
	truth := GEV{Shape: 0.1, Location: 3, Scale: 0.5}
	rng := rand.New(rand.NewPCG(1, 2))
	x := make([]float64, 3000)
	for i := range x {
		x[i] = truth.Quantile(1 - rng.Float64())
	}

	got, err := FitGEV(x)
	if err != nil {
		t.Fatalf("FitGEV: %v", err)
	}
	if math.Abs(got.Shape-truth.Shape) > 0.06 {
		t.Errorf("Shape = %v, expected %v", got.Shape, truth.Shape)
	}
	if math.Abs(got.Location-truth.Location) > 0.05 {
		t.Errorf("Location = %v, expected %v", got.Location, truth.Location)
	}
	if math.Abs(got.Scale-truth.Scale) > 0.05 {
		t.Errorf("Scale = %v, expected %v", got.Scale, truth.Scale)
	}
}

func TestFitGEVDegenerate(t *testing.T) {
	_, err := FitGEV([]float64{2, 2, 2, 2, 2})
	if !errors.Is(err, errDegenerate) {
		t.Errorf("expected errDegenerate, got %v", err)
	}
	if _, err := FitGEV([]float64{1, 2}); err == nil {
		t.Error("expected error for two samples")
	}
}
