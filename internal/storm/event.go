// Package storm extracts storm events from wave time series with a
// peak-over-threshold method and fits the statistics the shoreline
// simulation samples from: within-season gap ECDF, season-length rates,
// GEV marginals and a Clayton copula.
package storm

import (
	"fmt"
	"math"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

// Storm variables available for marginal and joint fitting.
const (
	VariablePeakHeight    = "peak_height"
	VariableDuration      = "duration"
	VariableMeanPeriod    = "mean_period"
	VariableMeanDirection = "mean_direction"
)

// Event is a single detected storm. StartIndex is the sample preceding the
// first exceedance; EndIndex is the last exceeding sample.
type Event struct {
	StartTime     float64 `json:"start_time" msgpack:"start_time"` // days
	EndTime       float64 `json:"end_time" msgpack:"end_time"`     // days
	StartIndex    int     `json:"start_index" msgpack:"start_index"`
	EndIndex      int     `json:"end_index" msgpack:"end_index"`
	DurationHours float64 `json:"duration_hours" msgpack:"duration_hours"`
	PeakHeight    float64 `json:"peak_height" msgpack:"peak_height"`       // m
	MeanDirection float64 `json:"mean_direction" msgpack:"mean_direction"` // degrees
	MeanPeriod    float64 `json:"mean_period" msgpack:"mean_period"`       // s

	// GapBeforeDays is NaN for the first event.
	GapBeforeDays float64 `json:"gap_before_days" msgpack:"gap_before_days"`
	SeasonStart   bool    `json:"season_start" msgpack:"season_start"`
}

// HasGap reports whether the event has a predecessor.
func (e Event) HasGap() bool {
	return !math.IsNaN(e.GapBeforeDays)
}

// Variable returns the named storm variable.
func (e Event) Variable(name string) (float64, error) {
	switch name {
	case VariablePeakHeight:
		return e.PeakHeight, nil
	case VariableDuration:
		return e.DurationHours, nil
	case VariableMeanPeriod:
		return e.MeanPeriod, nil
	case VariableMeanDirection:
		return e.MeanDirection, nil
	default:
		return 0, fmt.Errorf("unknown storm variable %q", name)
	}
}

// Detection is the output of Detect.
type Detection struct {
	Threshold        float64 // m, height percentile used for exceedance
	Percentile       float64
	SpacingHours     float64
	MinDurationHours float64
	Events           []Event
}

// MinStorms is the fewest storms from which gaps and seasons can be
// estimated.
const MinStorms = 2

// Sufficient returns ErrInsufficientStorms when fewer than MinStorms events
// were detected.
func (d *Detection) Sufficient() error {
	if len(d.Events) < MinStorms {
		return fmt.Errorf("%w: %d detected, need at least %d", simerr.ErrInsufficientStorms, len(d.Events), MinStorms)
	}
	return nil
}

// Column extracts a variable from every event.
func Column(events []Event, name string) ([]float64, error) {
	out := make([]float64, len(events))
	for i, e := range events {
		v, err := e.Variable(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
