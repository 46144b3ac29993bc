package sealevel

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

func TestAR5Coefficients(t *testing.T) {
	expected := map[Scenario]Curve{
		"RCP85": {3.955e-10, 9.999e-06},
		"RCP60": {1.708e-10, 1.035e-05},
		"RCP45": {1.429e-10, 1.086e-05},
		"RCP26": {2.188e-12, 1.173e-05},
		"0":     {0, 0},
	}
	for s, want := range expected {
		got, err := CurveFor(s)
		if err != nil {
			t.Fatalf("CurveFor(%s): %v", s, err)
		}
		if got != want {
			t.Errorf("CurveFor(%s) = %+v, expected %+v", s, got, want)
		}
	}
}

func TestElevationScalar(t *testing.T) {
	days := 1000.0
	got, err := Elevation(days, ScenarioRCP85)
	if err != nil {
		t.Fatal(err)
	}
	want := 3.955e-10*days*days + 9.999e-06*days
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("Elevation = %g, expected %g", got, want)
	}
}

func TestElevationsVector(t *testing.T) {
	c, _ := CurveFor(ScenarioRCP45)
	days := []float64{0, 100, 200}
	got := c.Elevations(days)
	for i, d := range days {
		if got[i] != c.Elevation(d) {
			t.Errorf("Elevations[%d] = %g, expected %g", i, got[i], c.Elevation(d))
		}
	}
}

func TestNoneIsZero(t *testing.T) {
	for _, s := range []Scenario{ScenarioNone, ScenarioZero} {
		for d := 0.0; d < 1000; d += 100 {
			got, err := Elevation(d, s)
			if err != nil {
				t.Fatal(err)
			}
			if got != 0 {
				t.Errorf("Elevation(%v, %s) = %g, expected 0", d, s, got)
			}
		}
	}
}

func TestInvalidScenario(t *testing.T) {
	if _, err := Elevation(10, "INVALID"); !errors.Is(err, simerr.ErrInvalidScenario) {
		t.Errorf("Elevation: expected ErrInvalidScenario, got %v", err)
	}
	if _, err := ParseScenario("rcp99"); !errors.Is(err, simerr.ErrInvalidScenario) {
		t.Errorf("ParseScenario: expected ErrInvalidScenario, got %v", err)
	}
}

func TestParseScenario(t *testing.T) {
	tests := []struct {
		tag  string
		want Scenario
	}{
		{"high", ScenarioHigh},
		{"Mid-Low", ScenarioMidLow},
		{" none ", ScenarioNone},
		{"rcp85", ScenarioRCP85},
		{"0", ScenarioZero},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseScenario(tt.tag)
			if err != nil {
				t.Fatalf("ParseScenario(%q): %v", tt.tag, err)
			}
			if got != tt.want {
				t.Errorf("ParseScenario(%q) = %q, expected %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestTiersMonotonicInDays(t *testing.T) {
	for _, s := range Scenarios() {
		prev := math.Inf(-1)
		for d := 0.0; d <= 40000; d += 50 {
			e, _ := Elevation(d, s)
			if e < prev {
				t.Fatalf("%s: elevation decreased at day %v (%g < %g)", s, d, e, prev)
			}
			prev = e
		}
	}
}

func TestTiersOrdered(t *testing.T) {
	order := Scenarios()
	for _, d := range []float64{1, 10, 365, 3650, 6000, 20000, 30316, 40000} {
		for i := 1; i < len(order); i++ {
			lo, _ := Elevation(d, order[i-1])
			hi, _ := Elevation(d, order[i])
			if hi < lo {
				t.Errorf("day %v: %s (%g) < %s (%g)", d, order[i], hi, order[i-1], lo)
			}
		}
	}
}

func TestTiersMatchAR5In2100(t *testing.T) {
	ref := DaysSinceEpoch(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	for tier, src := range tierSource {
		got, _ := Elevation(ref, tier)
		want, _ := Elevation(ref, src)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s at 2100 = %g, expected %s level %g", tier, got, src, want)
		}
	}
}

func TestDaysSinceEpoch(t *testing.T) {
	if got := DaysSinceEpoch(time.Date(2018, 1, 11, 0, 0, 0, 0, time.UTC)); got != 10 {
		t.Errorf("DaysSinceEpoch = %v, expected 10", got)
	}
	if got := DaysSinceEpoch(time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC)); got != -1 {
		t.Errorf("DaysSinceEpoch = %v, expected -1", got)
	}
}
