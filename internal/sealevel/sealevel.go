// Package sealevel evaluates deterministic sea-level rise curves of the form
// a·days² + b·days, where days are counted from constants.SeaLevelEpoch.
package sealevel

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/simerr"
)

// Scenario identifies a sea-level rise curve.
type Scenario string

const (
	ScenarioNone    Scenario = "none"
	ScenarioLow     Scenario = "low"
	ScenarioMidLow  Scenario = "mid-low"
	ScenarioMidHigh Scenario = "mid-high"
	ScenarioHigh    Scenario = "high"

	// IPCC AR5 projections, days since 2018-01-01
	ScenarioRCP26 Scenario = "RCP26"
	ScenarioRCP45 Scenario = "RCP45"
	ScenarioRCP60 Scenario = "RCP60"
	ScenarioRCP85 Scenario = "RCP85"
	ScenarioZero  Scenario = "0"
)

// Curve holds the polynomial coefficients of a scenario, in meters.
type Curve struct {
	A float64 // m/day²
	B float64 // m/day
}

// Elevation returns the sea-level rise in meters at days since the epoch.
func (c Curve) Elevation(days float64) float64 {
	return c.A*days*days + c.B*days
}

// Elevations evaluates the curve over a slice of day offsets.
func (c Curve) Elevations(days []float64) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = c.Elevation(d)
	}
	return out
}

var ar5 = map[Scenario]Curve{
	ScenarioRCP85: {A: 3.955e-10, B: 9.999e-06},
	ScenarioRCP60: {A: 1.708e-10, B: 1.035e-05},
	ScenarioRCP45: {A: 1.429e-10, B: 1.086e-05},
	ScenarioRCP26: {A: 2.188e-12, B: 1.173e-05},
	ScenarioZero:  {A: 0, B: 0},
}

// tierReference is where each tier matches its AR5 counterpart.
var tierReference = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

var tierSource = map[Scenario]Scenario{
	ScenarioNone:    ScenarioZero,
	ScenarioLow:     ScenarioRCP26,
	ScenarioMidLow:  ScenarioRCP45,
	ScenarioMidHigh: ScenarioRCP60,
	ScenarioHigh:    ScenarioRCP85,
}

var tiers = deriveTiers()

// deriveTiers builds curves that share the smallest AR5 linear rate and
// reach the 2100 level of their AR5 counterpart. Both coefficients are then
// ordered none ≤ low ≤ mid-low ≤ mid-high ≤ high.
func deriveTiers() map[Scenario]Curve {
	rate := ar5[ScenarioRCP85].B
	for s, c := range ar5 {
		if s != ScenarioZero && c.B < rate {
			rate = c.B
		}
	}

	ref := tierReference.Sub(constants.SeaLevelEpoch).Hours() / constants.HoursPerDay
	out := make(map[Scenario]Curve, len(tierSource))
	for tier, src := range tierSource {
		if src == ScenarioZero {
			out[tier] = Curve{}
			continue
		}
		target := ar5[src].Elevation(ref)
		out[tier] = Curve{A: (target - rate*ref) / (ref * ref), B: rate}
	}
	return out
}

// Scenarios returns the enumerated tiers in increasing order.
func Scenarios() []Scenario {
	return []Scenario{ScenarioNone, ScenarioLow, ScenarioMidLow, ScenarioMidHigh, ScenarioHigh}
}

// ParseScenario validates a scenario tag. Tier names are case-insensitive.
func ParseScenario(tag string) (Scenario, error) {
	s := Scenario(strings.ToLower(strings.TrimSpace(tag)))
	if _, ok := tiers[s]; ok {
		return s, nil
	}
	s = Scenario(strings.ToUpper(strings.TrimSpace(tag)))
	if _, ok := ar5[s]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", simerr.ErrInvalidScenario, tag)
}

// CurveFor returns the coefficients of scenario.
func CurveFor(scenario Scenario) (Curve, error) {
	if c, ok := tiers[scenario]; ok {
		return c, nil
	}
	if c, ok := ar5[scenario]; ok {
		return c, nil
	}
	return Curve{}, fmt.Errorf("%w: %q", simerr.ErrInvalidScenario, string(scenario))
}

// Elevation returns the sea-level rise in meters for a scenario.
func Elevation(days float64, scenario Scenario) (float64, error) {
	c, err := CurveFor(scenario)
	if err != nil {
		return 0, err
	}
	return c.Elevation(days), nil
}

// DaysSinceEpoch converts a date to the curve's day axis.
func DaysSinceEpoch(t time.Time) float64 {
	return t.Sub(constants.SeaLevelEpoch).Hours() / constants.HoursPerDay
}
