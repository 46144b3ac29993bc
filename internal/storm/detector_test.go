package storm

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chrissnell/coastretreat/internal/simerr"
	"github.com/chrissnell/coastretreat/internal/waves"
)

// flatSeries returns n samples at the given day spacing with a constant height.
func flatSeries(n int, stepDays, height float64) *waves.Series {
	s := &waves.Series{}
	for i := 0; i < n; i++ {
		s.Append(waves.Sample{
			Time:              float64(i) * stepDays,
			SignificantHeight: height,
			Direction:         200,
			PeakPeriod:        8,
		})
	}
	return s
}

func TestDetectSingleSpike(t *testing.T) {
	s := flatSeries(100, 1.0/24, 1.0)
	for i := 40; i < 60; i++ {
		s.Heights[i] = 3.0
		s.Directions[i] = 220
		s.Periods[i] = 12
	}

	det, err := DetectSeries(s, DetectOptions{HeightPercentile: 95, MinDurationHours: 12})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if det.Threshold != 3.0 {
		t.Errorf("Threshold = %v, expected 3.0", det.Threshold)
	}
	if math.Abs(det.SpacingHours-1) > 1e-9 {
		t.Errorf("SpacingHours = %v, expected 1", det.SpacingHours)
	}
	if len(det.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(det.Events))
	}

	ev := det.Events[0]
	if ev.StartIndex != 39 || ev.EndIndex != 59 {
		t.Errorf("span = [%d,%d], expected [39,59]", ev.StartIndex, ev.EndIndex)
	}
	if math.Abs(ev.DurationHours-20) > 1e-9 {
		t.Errorf("DurationHours = %v, expected 20", ev.DurationHours)
	}
	if ev.PeakHeight != 3.0 {
		t.Errorf("PeakHeight = %v, expected 3.0", ev.PeakHeight)
	}
	if ev.StartTime != s.Times[39] || ev.EndTime != s.Times[59] {
		t.Errorf("times = [%v,%v], expected [%v,%v]", ev.StartTime, ev.EndTime, s.Times[39], s.Times[59])
	}
	if ev.HasGap() {
		t.Errorf("first event should have no gap, got %v", ev.GapBeforeDays)
	}
	if ev.SeasonStart {
		t.Error("first event must not start a season")
	}
}

func TestDetectionSufficient(t *testing.T) {
	tests := []struct {
		name   string
		events int
		ok     bool
	}{
		{"none", 0, false},
		{"one", 1, false},
		{"two", 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &Detection{Events: make([]Event, tt.events)}
			err := det.Sufficient()
			if tt.ok && err != nil {
				t.Errorf("Sufficient: %v", err)
			}
			if !tt.ok && !errors.Is(err, simerr.ErrInsufficientStorms) {
				t.Errorf("expected ErrInsufficientStorms, got %v", err)
			}
		})
	}

	// a single isolated spike is detected but cannot be fitted
	s := flatSeries(100, 1.0/24, 1.0)
	for i := 40; i < 60; i++ {
		s.Heights[i] = 3.0
	}
	det, err := DetectSeries(s, DetectOptions{HeightPercentile: 95, MinDurationHours: 12})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if err := det.Sufficient(); !errors.Is(err, simerr.ErrInsufficientStorms) {
		t.Errorf("expected ErrInsufficientStorms for a single storm, got %v", err)
	}
}

func TestDetectShortSpikeIgnored(t *testing.T) {
	s := flatSeries(100, 1.0/24, 1.0)
	// 12 exceeding hours is not strictly above a 12 hour threshold
	for i := 40; i < 52; i++ {
		s.Heights[i] = 3.0
	}
	det, err := DetectSeries(s, DetectOptions{HeightPercentile: 95, MinDurationHours: 12})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(det.Events) != 0 {
		t.Errorf("expected no events, got %d", len(det.Events))
	}
}

func TestDetectSeasonClassification(t *testing.T) {
	tests := []struct {
		name        string
		gapDays     int
		seasonStart bool
	}{
		{"151 days opens a season", 151, true},
		{"150 days stays in season", 150, false},
		{"149 days stays in season", 149, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := flatSeries(400, 1, 1.0)
			first := 20
			// the second span starts one sample before its exceedance
			second := first + tt.gapDays + 1
			s.Heights[first] = 5
			s.Heights[second] = 5

			det, err := DetectSeries(s, DetectOptions{HeightPercentile: 100, MinDurationHours: 12})
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if len(det.Events) != 2 {
				t.Fatalf("expected 2 events, got %d", len(det.Events))
			}
			ev := det.Events[1]
			if ev.GapBeforeDays != float64(tt.gapDays) {
				t.Errorf("GapBeforeDays = %v, expected %d", ev.GapBeforeDays, tt.gapDays)
			}
			if ev.SeasonStart != tt.seasonStart {
				t.Errorf("SeasonStart = %v, expected %v", ev.SeasonStart, tt.seasonStart)
			}
		})
	}
}

func TestDetectStormBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	s := flatSeries(24*365*2, 1.0/24, 0)
	level := 1.0
	for i := range s.Heights {
		level += 0.1 * (rng.Float64() - 0.5)
		level = math.Max(0.2, math.Min(level, 4))
		s.Heights[i] = level + 0.2*rng.Float64()
		s.Directions[i] = 360 * rng.Float64()
		s.Periods[i] = 6 + 6*rng.Float64()
	}

	opts := DetectOptions{HeightPercentile: 90, MinDurationHours: 6}
	det, err := DetectSeries(s, opts)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(det.Events) == 0 {
		t.Fatal("expected storms in a wandering series")
	}

	prevEnd := -1
	for i, ev := range det.Events {
		if ev.DurationHours <= opts.MinDurationHours {
			t.Errorf("event %d: duration %v not above %v", i, ev.DurationHours, opts.MinDurationHours)
		}
		if ev.PeakHeight < det.Threshold {
			t.Errorf("event %d: peak %v below threshold %v", i, ev.PeakHeight, det.Threshold)
		}
		if ev.StartIndex <= prevEnd {
			t.Errorf("event %d overlaps its predecessor (%d <= %d)", i, ev.StartIndex, prevEnd)
		}
		if i > 0 && !(ev.GapBeforeDays > 0) {
			t.Errorf("event %d: gap %v not positive", i, ev.GapBeforeDays)
		}
		prevEnd = ev.EndIndex
	}

	again, err := DetectSeries(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Events) != len(det.Events) {
		t.Fatalf("detection is not deterministic: %d vs %d events", len(again.Events), len(det.Events))
	}
	for i := range det.Events {
		a, b := det.Events[i], again.Events[i]
		if a.StartIndex != b.StartIndex || a.EndIndex != b.EndIndex || a.PeakHeight != b.PeakHeight {
			t.Errorf("event %d differs between runs", i)
		}
	}
}

func TestDetectConfigurationErrors(t *testing.T) {
	s := flatSeries(10, 1, 1)
	tests := []struct {
		name string
		run  func() error
	}{
		{"percentile above 100", func() error {
			_, err := DetectSeries(s, DetectOptions{HeightPercentile: 101})
			return err
		}},
		{"negative percentile", func() error {
			_, err := DetectSeries(s, DetectOptions{HeightPercentile: -1})
			return err
		}},
		{"misaligned columns", func() error {
			_, err := Detect(s.Heights, s.Directions[:5], s.Periods, s.Times, DetectOptions{HeightPercentile: 95})
			return err
		}},
		{"non-monotonic time", func() error {
			times := append([]float64(nil), s.Times...)
			times[5] = times[4]
			_, err := Detect(s.Heights, s.Directions, s.Periods, times, DetectOptions{HeightPercentile: 95})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, simerr.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}
