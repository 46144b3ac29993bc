package storm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// pseudoObsEps keeps pseudo-observations away from 0 and 1, where the
// copula density is singular.
const pseudoObsEps = 1e-10

// Clayton is a single-parameter Archimedean copula. Positive theta gives
// lower-tail dependence; theta in (-1,0) gives weak negative dependence
// with a support bounded by u^-θ + v^-θ > 1.
type Clayton struct {
	Theta float64 `json:"theta" msgpack:"theta"`
	Tau   float64 `json:"tau" msgpack:"tau"` // Kendall's tau of the fitted sample
}

// CDF returns C(u,v).
func (c Clayton) CDF(u, v float64) float64 {
	s := math.Max(math.Pow(u, -c.Theta)+math.Pow(v, -c.Theta)-1, 0)
	return math.Pow(s, -1/c.Theta)
}

// LogDensity returns log c(u,v), -Inf outside the support.
func (c Clayton) LogDensity(u, v float64) float64 {
	th := c.Theta
	s := math.Pow(u, -th) + math.Pow(v, -th) - 1
	if !(s > 0) {
		return math.Inf(-1)
	}
	return math.Log1p(th) - (1+th)*(math.Log(u)+math.Log(v)) - (2+1/th)*math.Log(s)
}

// Conditional returns v such that P(V <= v | U = u) = w, the inverse of the
// conditional distribution used to draw a dependent pair from (u, w).
func (c Clayton) Conditional(u, w float64) float64 {
	th := c.Theta
	s := math.Max((math.Pow(w, -th/(1+th))-1)*math.Pow(u, -th)+1, 0)
	return math.Pow(s, -1/th)
}

// TauFromTheta returns the Kendall's tau implied by theta.
func TauFromTheta(theta float64) float64 {
	return theta / (theta + 2)
}

// ThetaFromTau inverts TauFromTheta.
func ThetaFromTau(tau float64) float64 {
	return 2 * tau / (1 - tau)
}

// minNegativeTau is the Kendall's tau of theta = -1, the countermonotonic
// limit of the family.
const minNegativeTau = -1.0 / 3

// Valid reports whether theta lies in (-1,0) or (0,+Inf).
func (c Clayton) Valid() bool {
	return c.Theta > -1 && c.Theta != 0 && !math.IsInf(c.Theta, 0)
}

// FitClayton estimates theta from u and v, which are marginal CDF values.
// Positive dependence is fitted by maximum pseudo-likelihood starting from
// the Kendall's tau inversion. Negative dependence keeps the inversion
// itself, since the bounded support makes the likelihood infinite at the
// starting point for many samples. Zero tau and tau at or below -1/3 have
// no Clayton representation.
func FitClayton(u, v []float64) (Clayton, error) {
	if len(u) != len(v) {
		return Clayton{}, fmt.Errorf("pseudo-observation length mismatch (%d vs %d)", len(u), len(v))
	}
	if len(u) < 3 {
		return Clayton{}, fmt.Errorf("need at least 3 pairs, got %d", len(u))
	}

	uc := clampUnit(u)
	vc := clampUnit(v)

	tau := stat.Kendall(uc, vc, nil)
	switch {
	case math.IsNaN(tau):
		return Clayton{}, fmt.Errorf("kendall tau is undefined")
	case tau >= 1:
		return Clayton{}, fmt.Errorf("perfect dependence (kendall tau %.4f)", tau)
	case tau == 0:
		return Clayton{}, fmt.Errorf("no dependence (kendall tau 0)")
	case tau <= minNegativeTau:
		return Clayton{}, fmt.Errorf("negative dependence beyond the clayton range (kendall tau %.4f)", tau)
	case tau < 0:
		return Clayton{Theta: ThetaFromTau(tau), Tau: tau}, nil
	}

	nll := func(params []float64) float64 {
		c := Clayton{Theta: math.Exp(params[0])}
		var sum float64
		for i := range uc {
			ld := c.LogDensity(uc[i], vc[i])
			if math.IsNaN(ld) || math.IsInf(ld, 0) {
				return math.Inf(1)
			}
			sum -= ld
		}
		return sum
	}

	x, err := minimize(nll, []float64{math.Log(ThetaFromTau(tau))})
	if err != nil {
		return Clayton{}, err
	}
	theta := math.Exp(x[0])
	if !(theta > 0) || math.IsInf(theta, 0) {
		return Clayton{}, fmt.Errorf("optimizer returned invalid theta %v", theta)
	}
	return Clayton{Theta: theta, Tau: tau}, nil
}

func clampUnit(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Min(math.Max(v, pseudoObsEps), 1-pseudoObsEps)
	}
	return out
}
