package storm

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

// SeasonSegments holds the calm and storm season durations, in days,
// reconstructed from the season-start flags.
//
// Calm[k] runs from the end of the storm before break k to the first storm
// of break k. Storm[k] runs from that first storm to the last storm before
// break k+1. The storm season before the first break and after the last
// one are partial and never counted, so the trailing calm segment has no
// partner. Calm is truncated to len(Storm) before the rates are averaged;
// Truncated records that this approximation was applied.
type SeasonSegments struct {
	Calm      []float64
	Storm     []float64
	Truncated int // number of calm segments dropped
}

// Years returns the paired calm+storm durations.
func (s SeasonSegments) Years() []float64 {
	years := make([]float64, len(s.Storm))
	for i := range s.Storm {
		years[i] = s.Calm[i] + s.Storm[i]
	}
	return years
}

// PartitionSeasons splits a time-ordered storm sequence at season starts.
func PartitionSeasons(events []Event) (SeasonSegments, error) {
	if len(events) < 2 {
		return SeasonSegments{}, fmt.Errorf("%w: %d detected", simerr.ErrInsufficientStorms, len(events))
	}

	var breaks []int
	for i, e := range events {
		if e.SeasonStart && i > 0 {
			breaks = append(breaks, i)
		}
	}

	var seg SeasonSegments
	for k, b := range breaks {
		seg.Calm = append(seg.Calm, events[b].StartTime-events[b-1].EndTime)
		if k+1 < len(breaks) {
			last := breaks[k+1] - 1
			seg.Storm = append(seg.Storm, events[last].EndTime-events[b].StartTime)
		}
	}

	if len(seg.Calm) != len(seg.Storm) {
		seg.Truncated = len(seg.Calm) - len(seg.Storm)
		seg.Calm = seg.Calm[:len(seg.Storm)]
	}
	return seg, nil
}

// SeasonRates is the result of the season-length sub-fit.
type SeasonRates struct {
	MeanYearLength        float64 // days
	MeanStormSeasonLength float64 // days
	Seasons               int
	Truncated             int
}

// FitSeasonRates averages the paired season durations. The means are used
// as Poisson rates when sampling season lengths.
func FitSeasonRates(events []Event) (SeasonRates, error) {
	seg, err := PartitionSeasons(events)
	if err != nil {
		return SeasonRates{}, err
	}
	if len(seg.Storm) == 0 {
		return SeasonRates{}, simerr.NewFitError(StageSeasonRates,
			fmt.Errorf("no complete storm season between two season breaks"))
	}

	years := seg.Years()
	return SeasonRates{
		MeanYearLength:        stat.Mean(years, nil),
		MeanStormSeasonLength: stat.Mean(seg.Storm, nil),
		Seasons:               len(seg.Storm),
		Truncated:             seg.Truncated,
	}, nil
}
