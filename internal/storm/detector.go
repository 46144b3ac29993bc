package storm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/simerr"
	"github.com/chrissnell/coastretreat/internal/waves"
)

// DetectOptions controls storm extraction.
type DetectOptions struct {
	HeightPercentile float64 // 0-100
	MinDurationHours float64
	SeasonBreakDays  float64 // defaults to constants.SeasonBreakDays
}

// DetectSeries runs Detect on a wave series.
func DetectSeries(s *waves.Series, opts DetectOptions) (*Detection, error) {
	return Detect(s.Heights, s.Directions, s.Periods, s.Times, opts)
}

// Detect extracts storms with a peak-over-threshold method.
//
// Samples at or above the height percentile accumulate an exceedance
// duration that resets on the first calm sample. Every local maximum of
// that signal strictly above MinDurationHours ends a storm whose length in
// samples is the accumulated duration divided by the sample spacing.
// The first sample never accumulates, so spans always start at a valid index.
func Detect(heights, directions, periods, times []float64, opts DetectOptions) (*Detection, error) {
	n := len(heights)
	if len(directions) != n || len(periods) != n || len(times) != n {
		return nil, simerr.Configf("wave columns are not aligned (hs=%d dir=%d tp=%d time=%d)",
			n, len(directions), len(periods), len(times))
	}
	if n < 2 {
		return nil, simerr.Configf("need at least 2 wave samples, got %d", n)
	}
	if !(opts.HeightPercentile >= 0 && opts.HeightPercentile <= 100) {
		return nil, simerr.Configf("height percentile %v outside [0,100]", opts.HeightPercentile)
	}
	if opts.MinDurationHours < 0 {
		return nil, simerr.Configf("minimum storm duration must not be negative, got %v", opts.MinDurationHours)
	}
	for i := 1; i < n; i++ {
		if !(times[i] > times[i-1]) {
			return nil, simerr.Configf("wave time is not increasing at sample %d", i)
		}
	}
	seasonBreak := opts.SeasonBreakDays
	if seasonBreak <= 0 {
		seasonBreak = constants.SeasonBreakDays
	}

	sorted := make([]float64, n)
	copy(sorted, heights)
	sort.Float64s(sorted)
	threshold := stat.Quantile(opts.HeightPercentile/100, stat.LinInterp, sorted, nil)

	dtHours := (times[1] - times[0]) * constants.HoursPerDay

	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		if heights[i] >= threshold {
			cum[i] = cum[i-1] + dtHours
		}
	}

	det := &Detection{
		Threshold:        threshold,
		Percentile:       opts.HeightPercentile,
		SpacingHours:     dtHours,
		MinDurationHours: opts.MinDurationHours,
	}

	prevEnd := -1
	for p := 1; p < n-1; p++ {
		if !(cum[p] > cum[p-1] && cum[p] > cum[p+1] && cum[p] > opts.MinDurationHours) {
			continue
		}
		length := int(math.Round(cum[p] / dtHours))
		start := p - length

		ev := Event{
			StartTime:     times[start],
			EndTime:       times[p],
			StartIndex:    start,
			EndIndex:      p,
			DurationHours: float64(length) * dtHours,
			PeakHeight:    floats.Max(heights[start : p+1]),
			MeanDirection: stat.Mean(directions[start:p+1], nil),
			MeanPeriod:    stat.Mean(periods[start:p+1], nil),
			GapBeforeDays: math.NaN(),
		}
		if prevEnd >= 0 {
			ev.GapBeforeDays = times[start] - times[prevEnd]
			ev.SeasonStart = ev.GapBeforeDays > seasonBreak
		}
		det.Events = append(det.Events, ev)
		prevEnd = p
	}

	return det, nil
}
