// Package shoreline holds the closed-form laws that move a single
// cross-shore coastline position: storm erosion, sea-level driven retreat
// and post-storm recovery.
//
// Positions are in meters relative to the initial coastline; negative
// values are landward (retreat).
package shoreline

import (
	"math"

	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/simerr"
)

// Law converts forcing into shoreline change. Implementations must be
// safe for concurrent use by many realizations.
type Law interface {
	// StormRetreat is the landward retreat, in meters, caused by a single
	// storm of the given significant wave height (m) and duration (h).
	StormRetreat(height, durationHours float64) float64
	// SLRRetreat is the equilibrium retreat for a water-level rise in
	// meters. A fall gives a negative value.
	SLRRetreat(deltaWaterLevel float64) float64
	// Recovery is how far an eroded profile rebuilds in the given number
	// of days.
	Recovery(days float64) float64
}

// Params are the calibration and sediment constants of EnergyBruun.
type Params struct {
	C1               float64 `yaml:"c1"`
	C2               float64 `yaml:"c2"`
	SettlingVelocity float64 `yaml:"settling_velocity"`        // m/s
	DepthOfErosion   float64 `yaml:"depth_of_erosion"`         // m
	ClosureDepth     float64 `yaml:"closure_depth"`            // dune height + depth of closure, m
	RecoveryRate     float64 `yaml:"recovery_rate_m_per_year"` // m/yr
}

// DefaultParams returns the calibration for a medium sand beach.
func DefaultParams() Params {
	return Params{
		C1:               2.069,
		C2:               0.830,
		SettlingVelocity: 0.04,
		DepthOfErosion:   2.5,
		ClosureDepth:     2 + 1,
		RecoveryRate:     29,
	}
}

// Validate requires every constant to be strictly positive.
func (p Params) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"c1", p.C1},
		{"c2", p.C2},
		{"settling_velocity", p.SettlingVelocity},
		{"depth_of_erosion", p.DepthOfErosion},
		{"closure_depth", p.ClosureDepth},
		{"recovery_rate_m_per_year", p.RecoveryRate},
	}
	for _, c := range checks {
		if !(c.v > 0) || math.IsInf(c.v, 0) {
			return simerr.Configf("shoreline %s must be positive, got %v", c.name, c.v)
		}
	}
	return nil
}

// EnergyBruun erodes by a storm-energy volume law and retreats under
// sea-level rise by the Bruun rule over a Dean equilibrium profile.
//
// Storm volume is V = C1 * (Hs^2 * D/24)^C2 in m3/m, spread over the depth
// of erosion. The Dean profile scale is A = 0.51 * ws^0.44 and the active
// profile width out to the closure depth h is W = (h/A)^1.5.
type EnergyBruun struct {
	p         Params
	bruun     float64 // W/h
	recPerDay float64
}

// NewEnergyBruun validates p and precomputes the profile geometry.
func NewEnergyBruun(p Params) (*EnergyBruun, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	a := 0.51 * math.Pow(p.SettlingVelocity, 0.44)
	width := math.Pow(p.ClosureDepth/a, 1.5)
	return &EnergyBruun{
		p:         p,
		bruun:     width / p.ClosureDepth,
		recPerDay: p.RecoveryRate / constants.DaysPerYear,
	}, nil
}

// StormRetreat implements Law.
func (m *EnergyBruun) StormRetreat(height, durationHours float64) float64 {
	if height <= 0 || durationHours <= 0 {
		return 0
	}
	dose := height * height * durationHours / constants.HoursPerDay
	return m.p.C1 * math.Pow(dose, m.p.C2) / m.p.DepthOfErosion
}

// SLRRetreat implements Law.
func (m *EnergyBruun) SLRRetreat(deltaWaterLevel float64) float64 {
	return m.bruun * deltaWaterLevel
}

// Recovery implements Law.
func (m *EnergyBruun) Recovery(days float64) float64 {
	if days <= 0 {
		return 0
	}
	return m.recPerDay * days
}

// BruunFactor is the retreat per meter of water-level rise.
func (m *EnergyBruun) BruunFactor() float64 {
	return m.bruun
}

// Position splits the coastline into the sea-level equilibrium baseline
// and the storm deficit below it. Recovery only ever closes the deficit,
// so the coastline never advances past the baseline.
type Position struct {
	Baseline float64
	Deficit  float64 // <= 0
}

// Value is the coastline position.
func (p Position) Value() float64 {
	return p.Baseline + p.Deficit
}

// Erode moves the coastline landward by retreat meters.
func (p *Position) Erode(retreat float64) {
	p.Deficit -= retreat
}

// Shift moves the equilibrium baseline landward by retreat meters.
func (p *Position) Shift(retreat float64) {
	p.Baseline -= retreat
}

// Recover closes up to amount meters of the deficit.
func (p *Position) Recover(amount float64) {
	p.Deficit = math.Min(p.Deficit+amount, 0)
}
