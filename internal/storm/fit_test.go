package storm

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

// syntheticStorms lays out six monsoon seasons of ten storms each. Peak
// heights are Gumbel distributed and durations grow with height.
func syntheticStorms(seed uint64) []Event {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	heights := GEV{Shape: 0, Location: 2.5, Scale: 0.4}

	var events []Event
	prevEnd := math.NaN()
	for season := 0; season < 6; season++ {
		t := float64(season) * 365
		for k := 0; k < 10; k++ {
			h := heights.Quantile(1 - rng.Float64())
			dur := 12 + 8*math.Max(h-2, 0) + 6*rng.Float64()
			ev := Event{
				StartTime:     t,
				EndTime:       t + dur/24,
				DurationHours: dur,
				PeakHeight:    h,
				MeanDirection: 200,
				MeanPeriod:    9,
				GapBeforeDays: math.NaN(),
			}
			if !math.IsNaN(prevEnd) {
				ev.GapBeforeDays = ev.StartTime - prevEnd
				ev.SeasonStart = ev.GapBeforeDays > 150
			}
			events = append(events, ev)
			prevEnd = ev.EndTime
			t = ev.EndTime + 3 + 12*rng.Float64()
		}
	}
	return events
}

func TestFit(t *testing.T) {
	events := syntheticStorms(42)
	det := &Detection{Threshold: 1.8, MinDurationHours: 12, Events: events}

	fitted, err := NewFitter(nil, FitOptions{}).Fit(det)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	maxGap := 0.0
	for _, e := range events {
		if e.HasGap() && e.GapBeforeDays < 150 && e.GapBeforeDays > maxGap {
			maxGap = e.GapBeforeDays
		}
	}
	g := fitted.GapECDF
	if g.Values[g.Len()-1] != maxGap {
		t.Errorf("largest ECDF value = %v, expected max within-season gap %v", g.Values[g.Len()-1], maxGap)
	}
	prev := 0.0
	for i, p := range g.Probs {
		if !(p > prev && p <= 1) {
			t.Fatalf("Probs[%d] = %v not increasing in (0,1]", i, p)
		}
		prev = p
	}
	if g.Len() != 54 {
		t.Errorf("ECDF has %d gaps, expected 54", g.Len())
	}

	// five breaks, four complete storm seasons
	if fitted.SeasonCount != 4 {
		t.Errorf("SeasonCount = %d, expected 4", fitted.SeasonCount)
	}
	if fitted.SeasonsTruncated != 1 {
		t.Errorf("SeasonsTruncated = %d, expected 1", fitted.SeasonsTruncated)
	}
	if math.Abs(fitted.MeanYearLength-365) > 15 {
		t.Errorf("MeanYearLength = %v, expected about 365", fitted.MeanYearLength)
	}
	if !(fitted.MeanStormSeasonLength > 0 && fitted.MeanStormSeasonLength < fitted.MeanYearLength) {
		t.Errorf("MeanStormSeasonLength = %v out of range", fitted.MeanStormSeasonLength)
	}

	if _, ok := fitted.Marginals[VariablePeakHeight]; !ok {
		t.Error("missing peak height marginal")
	}
	if _, ok := fitted.Marginals[VariableDuration]; !ok {
		t.Error("missing duration marginal")
	}
	if fitted.Severity() != fitted.Marginals[VariablePeakHeight] {
		t.Error("Severity should be the peak height marginal")
	}
	if !(fitted.Copula.Theta > 0) {
		t.Errorf("Theta = %v, expected positive dependence", fitted.Copula.Theta)
	}
	if fitted.StormCount != len(events) || fitted.HeightThreshold != 1.8 {
		t.Errorf("metadata not recorded: %+v", fitted)
	}
}

func TestFitInsufficientStorms(t *testing.T) {
	for _, n := range []int{0, 1} {
		det := &Detection{Events: syntheticStorms(1)[:n]}
		_, err := NewFitter(nil, FitOptions{}).Fit(det)
		if !errors.Is(err, simerr.ErrInsufficientStorms) {
			t.Errorf("%d storms: expected ErrInsufficientStorms, got %v", n, err)
		}
	}
}

func TestFitDegenerateMarginal(t *testing.T) {
	events := syntheticStorms(9)
	for i := range events {
		events[i].MeanPeriod = 10
	}
	fitter := NewFitter(nil, FitOptions{Variables: []string{VariablePeakHeight, VariableMeanPeriod}})
	_, err := fitter.Fit(&Detection{Events: events})

	var fe *simerr.FitError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FitError, got %v", err)
	}
	if fe.Stage != StageGEV+":"+VariableMeanPeriod {
		t.Errorf("Stage = %q, expected %q", fe.Stage, StageGEV+":"+VariableMeanPeriod)
	}
}
