package shoreline

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

func TestStormRetreatIncreasesWithSeverity(t *testing.T) {
	law, err := NewEnergyBruun(DefaultParams())
	if err != nil {
		t.Fatalf("NewEnergyBruun: %v", err)
	}

	for _, dur := range []float64{12, 36, 96} {
		prev := law.StormRetreat(0.5, dur)
		for h := 0.75; h <= 8; h += 0.25 {
			got := law.StormRetreat(h, dur)
			if !(got > prev) {
				t.Fatalf("duration %v: retreat at Hs=%v (%v) not above Hs=%v (%v)", dur, h, got, h-0.25, prev)
			}
			prev = got
		}
	}
}

func TestStormRetreatValue(t *testing.T) {
	p := DefaultParams()
	law, _ := NewEnergyBruun(p)

	// 3 m for 24 h is a dose of 9
	expected := p.C1 * math.Pow(9, p.C2) / p.DepthOfErosion
	if got := law.StormRetreat(3, 24); math.Abs(got-expected) > 1e-12 {
		t.Errorf("StormRetreat(3, 24) = %v, expected %v", got, expected)
	}
	if got := law.StormRetreat(0, 24); got != 0 {
		t.Errorf("StormRetreat(0, 24) = %v, expected 0", got)
	}
}

func TestSLRRetreat(t *testing.T) {
	law, _ := NewEnergyBruun(DefaultParams())

	a := 0.51 * math.Pow(0.04, 0.44)
	factor := math.Pow(3/a, 1.5) / 3
	if math.Abs(law.BruunFactor()-factor) > 1e-9 {
		t.Errorf("BruunFactor = %v, expected %v", law.BruunFactor(), factor)
	}
	if got := law.SLRRetreat(0.1); math.Abs(got-0.1*factor) > 1e-9 {
		t.Errorf("SLRRetreat(0.1) = %v, expected %v", got, 0.1*factor)
	}
	if law.SLRRetreat(-0.1) >= 0 {
		t.Error("a falling water level should advance the coastline")
	}
}

func TestRecovery(t *testing.T) {
	law, _ := NewEnergyBruun(DefaultParams())
	if got := law.Recovery(365); math.Abs(got-29) > 1e-9 {
		t.Errorf("Recovery(365) = %v, expected 29", got)
	}
	if got := law.Recovery(-1); got != 0 {
		t.Errorf("Recovery(-1) = %v, expected 0", got)
	}
}

func TestPosition(t *testing.T) {
	var p Position
	p.Erode(10)
	p.Shift(2)
	if got := p.Value(); got != -12 {
		t.Fatalf("Value = %v, expected -12", got)
	}

	p.Recover(4)
	if got := p.Value(); got != -8 {
		t.Errorf("after partial recovery Value = %v, expected -8", got)
	}

	p.Recover(100)
	if p.Deficit != 0 || p.Value() != -2 {
		t.Errorf("recovery overshot the baseline: %+v", p)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero c1", func(p *Params) { p.C1 = 0 }},
		{"negative c2", func(p *Params) { p.C2 = -1 }},
		{"zero settling velocity", func(p *Params) { p.SettlingVelocity = 0 }},
		{"NaN depth of erosion", func(p *Params) { p.DepthOfErosion = math.NaN() }},
		{"zero closure depth", func(p *Params) { p.ClosureDepth = 0 }},
		{"infinite recovery", func(p *Params) { p.RecoveryRate = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			if _, err := NewEnergyBruun(p); !errors.Is(err, simerr.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
