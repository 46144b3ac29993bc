package storm

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/simerr"
)

// Sub-fit names reported in simerr.FitError.
const (
	StageGapECDF     = "gap_ecdf"
	StageSeasonRates = "season_rates"
	StageGEV         = "gev"
	StageCopula      = "copula"
)

// FittedDistributions is everything the Monte-Carlo engine samples from.
// It is immutable once returned by Fit.
type FittedDistributions struct {
	GapECDF               ECDF           `json:"gap_ecdf" msgpack:"gap_ecdf"`
	MeanYearLength        float64        `json:"mean_year_length" msgpack:"mean_year_length"`                 // days
	MeanStormSeasonLength float64        `json:"mean_storm_season_length" msgpack:"mean_storm_season_length"` // days
	Marginals             map[string]GEV `json:"marginals" msgpack:"marginals"`
	Copula                Clayton        `json:"copula" msgpack:"copula"`
	CopulaVariables       [2]string      `json:"copula_variables" msgpack:"copula_variables"`

	HeightThreshold  float64 `json:"height_threshold" msgpack:"height_threshold"`
	MinDurationHours float64 `json:"min_duration_hours" msgpack:"min_duration_hours"`
	SeasonBreakDays  float64 `json:"season_break_days" msgpack:"season_break_days"`
	StormCount       int     `json:"storm_count" msgpack:"storm_count"`
	SeasonCount      int     `json:"season_count" msgpack:"season_count"`
	SeasonsTruncated int     `json:"seasons_truncated" msgpack:"seasons_truncated"`
}

// Severity returns the GEV of the first copula variable.
func (f *FittedDistributions) Severity() GEV {
	return f.Marginals[f.CopulaVariables[0]]
}

// Duration returns the GEV of the second copula variable.
func (f *FittedDistributions) Duration() GEV {
	return f.Marginals[f.CopulaVariables[1]]
}

// FitOptions controls the statistics fit.
type FitOptions struct {
	SeasonBreakDays float64
	// Variables are fitted with GEV marginals; the first two are coupled by
	// the copula as (severity, duration).
	Variables []string
}

// Fitter builds FittedDistributions from detected storms.
type Fitter struct {
	logger *zap.SugaredLogger
	opts   FitOptions
}

// NewFitter creates a Fitter. Zero options select a 150 day season break
// and (peak_height, duration) variables.
func NewFitter(logger *zap.SugaredLogger, opts FitOptions) *Fitter {
	if opts.SeasonBreakDays <= 0 {
		opts.SeasonBreakDays = constants.SeasonBreakDays
	}
	if len(opts.Variables) < 2 {
		opts.Variables = []string{VariablePeakHeight, VariableDuration}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Fitter{logger: logger, opts: opts}
}

// Fit runs the gap, season-rate and extreme-value sub-fits. Any failing
// sub-fit fails the whole fit with a *simerr.FitError naming it.
func (f *Fitter) Fit(det *Detection) (*FittedDistributions, error) {
	if err := det.Sufficient(); err != nil {
		return nil, err
	}
	events := det.Events
	start := time.Now()

	gaps, err := FitGapECDF(events, f.opts.SeasonBreakDays)
	if err != nil {
		return nil, asFitError(StageGapECDF, err)
	}

	rates, err := FitSeasonRates(events)
	if err != nil {
		return nil, asFitError(StageSeasonRates, err)
	}
	if rates.Truncated > 0 {
		f.logger.Warnw("calm/storm season counts differ, trailing calm segments dropped",
			"calm_dropped", rates.Truncated, "seasons", rates.Seasons)
	}

	marginals := make(map[string]GEV, len(f.opts.Variables))
	pseudo := make([][]float64, 2)
	for i, name := range f.opts.Variables {
		x, err := Column(events, name)
		if err != nil {
			return nil, simerr.NewFitError(StageGEV+":"+name, err)
		}
		g, err := FitGEV(x)
		if err != nil {
			return nil, simerr.NewFitError(StageGEV+":"+name, err)
		}
		marginals[name] = g
		f.logger.Debugw("GEV fitted", "variable", name,
			"shape", g.Shape, "location", g.Location, "scale", g.Scale)

		if i < 2 {
			pseudo[i] = make([]float64, len(x))
			for j, v := range x {
				pseudo[i][j] = g.CDF(v)
			}
		}
	}

	copula, err := FitClayton(pseudo[0], pseudo[1])
	if err != nil {
		return nil, simerr.NewFitError(StageCopula, err)
	}

	fitted := &FittedDistributions{
		GapECDF:               gaps,
		MeanYearLength:        rates.MeanYearLength,
		MeanStormSeasonLength: rates.MeanStormSeasonLength,
		Marginals:             marginals,
		Copula:                copula,
		CopulaVariables:       [2]string{f.opts.Variables[0], f.opts.Variables[1]},
		HeightThreshold:       det.Threshold,
		MinDurationHours:      det.MinDurationHours,
		SeasonBreakDays:       f.opts.SeasonBreakDays,
		StormCount:            len(events),
		SeasonCount:           rates.Seasons,
		SeasonsTruncated:      rates.Truncated,
	}

	f.logger.Infow("storm statistics fitted",
		"storms", fitted.StormCount,
		"within_season_gaps", gaps.Len(),
		"seasons", rates.Seasons,
		"mean_year_days", rates.MeanYearLength,
		"mean_storm_season_days", rates.MeanStormSeasonLength,
		"clayton_theta", copula.Theta,
		"elapsed", time.Since(start))

	return fitted, nil
}

// asFitError keeps ErrInsufficientStorms and existing FitErrors intact and
// labels anything else with the stage.
func asFitError(stage string, err error) error {
	var fe *simerr.FitError
	if errors.As(err, &fe) || errors.Is(err, simerr.ErrInsufficientStorms) {
		return err
	}
	return simerr.NewFitError(stage, err)
}
