package storm

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

// seasonalEvents builds a storm table with season breaks at events 2, 4 and 6.
func seasonalEvents() []Event {
	spans := [][2]float64{
		{0, 1}, {10, 11},
		{200, 201}, {220, 222},
		{400, 401}, {420, 421},
		{600, 601},
	}
	events := make([]Event, len(spans))
	for i, sp := range spans {
		events[i] = Event{StartTime: sp[0], EndTime: sp[1], GapBeforeDays: math.NaN()}
		if i > 0 {
			events[i].GapBeforeDays = sp[0] - spans[i-1][1]
			events[i].SeasonStart = events[i].GapBeforeDays > 150
		}
	}
	return events
}

func TestPartitionSeasons(t *testing.T) {
	seg, err := PartitionSeasons(seasonalEvents())
	if err != nil {
		t.Fatalf("PartitionSeasons: %v", err)
	}

	wantCalm := []float64{189, 178}
	wantStorm := []float64{22, 21}
	if len(seg.Calm) != len(wantCalm) || len(seg.Storm) != len(wantStorm) {
		t.Fatalf("got %d calm / %d storm segments, expected %d / %d",
			len(seg.Calm), len(seg.Storm), len(wantCalm), len(wantStorm))
	}
	for i := range wantCalm {
		if seg.Calm[i] != wantCalm[i] {
			t.Errorf("Calm[%d] = %v, expected %v", i, seg.Calm[i], wantCalm[i])
		}
		if seg.Storm[i] != wantStorm[i] {
			t.Errorf("Storm[%d] = %v, expected %v", i, seg.Storm[i], wantStorm[i])
		}
	}
	// the calm segment before the last storm has no complete storm season after it
	if seg.Truncated != 1 {
		t.Errorf("Truncated = %d, expected 1", seg.Truncated)
	}
}

func TestFitSeasonRates(t *testing.T) {
	rates, err := FitSeasonRates(seasonalEvents())
	if err != nil {
		t.Fatalf("FitSeasonRates: %v", err)
	}
	if rates.MeanYearLength != 205 {
		t.Errorf("MeanYearLength = %v, expected 205", rates.MeanYearLength)
	}
	if rates.MeanStormSeasonLength != 21.5 {
		t.Errorf("MeanStormSeasonLength = %v, expected 21.5", rates.MeanStormSeasonLength)
	}
	if rates.Seasons != 2 {
		t.Errorf("Seasons = %d, expected 2", rates.Seasons)
	}
}

func TestFitSeasonRatesSingleBreak(t *testing.T) {
	events := seasonalEvents()[:4]
	_, err := FitSeasonRates(events)
	var fe *simerr.FitError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FitError, got %v", err)
	}
	if fe.Stage != StageSeasonRates {
		t.Errorf("Stage = %q, expected %q", fe.Stage, StageSeasonRates)
	}
}

func TestPartitionSeasonsInsufficient(t *testing.T) {
	_, err := PartitionSeasons(seasonalEvents()[:1])
	if !errors.Is(err, simerr.ErrInsufficientStorms) {
		t.Errorf("expected ErrInsufficientStorms, got %v", err)
	}
}
