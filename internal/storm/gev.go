package storm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// gumbelLimit is the |shape| below which the Gumbel limit is used.
const gumbelLimit = 1e-8

// maxShape bounds |Shape| during fitting. Below -1 the likelihood is
// unbounded at the upper endpoint and has no maximum.
const maxShape = 1.0

// GEV is a generalized extreme value distribution. Shape follows the
// climatological sign convention: positive Shape is the heavy-tailed
// Fréchet type, negative Shape the bounded Weibull type (scipy's
// genextreme uses c = -Shape).
type GEV struct {
	Shape    float64 `json:"shape" msgpack:"shape"`
	Location float64 `json:"location" msgpack:"location"`
	Scale    float64 `json:"scale" msgpack:"scale"`
}

// CDF returns P(X <= x).
func (g GEV) CDF(x float64) float64 {
	z := (x - g.Location) / g.Scale
	if math.Abs(g.Shape) < gumbelLimit {
		return math.Exp(-math.Exp(-z))
	}
	t := 1 + g.Shape*z
	if t <= 0 {
		if g.Shape > 0 {
			return 0
		}
		return 1
	}
	return math.Exp(-math.Pow(t, -1/g.Shape))
}

// Quantile is the inverse CDF for p in (0,1).
func (g GEV) Quantile(p float64) float64 {
	y := -math.Log(p)
	if math.Abs(g.Shape) < gumbelLimit {
		return g.Location - g.Scale*math.Log(y)
	}
	return g.Location + g.Scale/g.Shape*(math.Pow(y, -g.Shape)-1)
}

// LogProb returns the log density at x, -Inf outside the support.
func (g GEV) LogProb(x float64) float64 {
	if !(g.Scale > 0) {
		return math.Inf(-1)
	}
	z := (x - g.Location) / g.Scale
	if math.Abs(g.Shape) < gumbelLimit {
		return -math.Log(g.Scale) - z - math.Exp(-z)
	}
	t := 1 + g.Shape*z
	if t <= 0 {
		return math.Inf(-1)
	}
	logT := math.Log(t)
	return -math.Log(g.Scale) - (1+1/g.Shape)*logT - math.Exp(-logT/g.Shape)
}

func gevNegLogLikelihood(x []float64) func(params []float64) float64 {
	return func(params []float64) float64 {
		if math.Abs(params[0]) >= maxShape {
			return math.Inf(1)
		}
		g := GEV{Shape: params[0], Location: params[1], Scale: math.Exp(params[2])}
		var nll float64
		for _, v := range x {
			lp := g.LogProb(v)
			if math.IsInf(lp, -1) || math.IsNaN(lp) {
				return math.Inf(1)
			}
			nll -= lp
		}
		return nll
	}
}

var errDegenerate = errors.New("degenerate sample: zero variance")

// FitGEV estimates GEV parameters by maximum likelihood with Nelder-Mead.
// The optimizer starts from the Gumbel moment estimate with the sample mean
// as location.
func FitGEV(x []float64) (GEV, error) {
	if len(x) < 3 {
		return GEV{}, fmt.Errorf("need at least 3 samples, got %d", len(x))
	}
	mean, variance := stat.MeanVariance(x, nil)
	if !(variance > 0) {
		return GEV{}, errDegenerate
	}
	scale0 := math.Sqrt(6*variance) / math.Pi

	result, err := minimize(gevNegLogLikelihood(x), []float64{0, mean, math.Log(scale0)})
	if err != nil {
		return GEV{}, err
	}
	g := GEV{Shape: result[0], Location: result[1], Scale: math.Exp(result[2])}
	if math.IsNaN(g.Shape) || math.IsNaN(g.Location) || !(g.Scale > 0) {
		return GEV{}, fmt.Errorf("optimizer returned invalid parameters %+v", g)
	}
	return g, nil
}

// minimize runs Nelder-Mead and rejects any non-converged termination.
func minimize(f func([]float64) float64, x0 []float64) ([]float64, error) {
	problem := optimize.Problem{Func: f}
	settings := &optimize.Settings{
		MajorIterations: 20000,
		FuncEvaluations: 100000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-12,
			Iterations: 200,
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("optimizer did not converge: %w", err)
	}
	switch result.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge,
		optimize.StepConvergence, optimize.FunctionThreshold:
	default:
		return nil, fmt.Errorf("optimizer did not converge: %v", result.Status)
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, fmt.Errorf("optimizer ended at non-finite objective %v", result.F)
	}
	return result.X, nil
}
