// Package montecarlo runs independent stochastic coastline realizations
// over the fitted storm climate and collects the annual minimum position
// of each one.
package montecarlo

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/coastretreat/internal/sealevel"
	"github.com/chrissnell/coastretreat/internal/shoreline"
	"github.com/chrissnell/coastretreat/internal/simerr"
	"github.com/chrissnell/coastretreat/internal/storm"
)

// Config is the immutable batch configuration.
type Config struct {
	Start        time.Time
	End          time.Time
	Realizations int
	Seed         uint64
	// Workers bounds concurrent realizations; zero uses GOMAXPROCS.
	Workers int

	Scenario          sealevel.Scenario
	InitialWaterLevel float64 // m, before the sea-level offset at Start

	// MaxStormAttempts bounds storm redraws; zero uses DefaultMaxStormAttempts.
	MaxStormAttempts int
}

// Validate checks the batch settings.
func (c Config) Validate() error {
	if c.Realizations <= 0 {
		return simerr.Configf("realizations must be positive, got %d", c.Realizations)
	}
	if !c.End.After(c.Start) {
		return simerr.Configf("end date %s is not after start date %s",
			c.End.Format(time.DateOnly), c.Start.Format(time.DateOnly))
	}
	if c.Workers < 0 {
		return simerr.Configf("workers must not be negative, got %d", c.Workers)
	}
	if c.MaxStormAttempts < 0 {
		return simerr.Configf("max storm attempts must not be negative, got %d", c.MaxStormAttempts)
	}
	return nil
}

// Observer is notified as realizations finish. It is called concurrently.
type Observer interface {
	RealizationDone(elapsed time.Duration, storms int, err error)
}

// Result is the annual-minima matrix of a batch.
type Result struct {
	Years []int
	// Minima[i][k] is the lowest coastline position of realization i in
	// Years[k], in meters. Negative is retreat.
	Minima   [][]float64
	Storms   int
	Seasons  int
	Rejected int // storm draws below the detection thresholds
	Elapsed  time.Duration
}

// Column returns the minima of every realization for year index k.
func (r *Result) Column(k int) []float64 {
	col := make([]float64, len(r.Minima))
	for i, row := range r.Minima {
		col[i] = row[k]
	}
	return col
}

// Engine runs realizations against one fitted storm climate. The fitted
// distributions, the sea-level curve and the shoreline law are shared
// read-only by every realization.
type Engine struct {
	cfg       Config
	dist      *storm.FittedDistributions
	law       shoreline.Law
	curve     sealevel.Curve
	cal       calendar
	startDays float64

	logger   *zap.SugaredLogger
	observer Observer
}

// NewEngine validates the configuration and the fitted bundle.
func NewEngine(logger *zap.SugaredLogger, cfg Config, dist *storm.FittedDistributions, law shoreline.Law) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	curve, err := sealevel.CurveFor(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	if err := checkDistributions(dist); err != nil {
		return nil, err
	}
	if law == nil {
		return nil, simerr.Configf("no shoreline law")
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.MaxStormAttempts == 0 {
		cfg.MaxStormAttempts = DefaultMaxStormAttempts
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Engine{
		cfg:       cfg,
		dist:      dist,
		law:       law,
		curve:     curve,
		cal:       newCalendar(cfg.Start, cfg.End),
		startDays: sealevel.DaysSinceEpoch(cfg.Start),
		logger:    logger,
	}, nil
}

func checkDistributions(dist *storm.FittedDistributions) error {
	if dist == nil {
		return simerr.Configf("no fitted distributions")
	}
	if dist.CopulaVariables != [2]string{storm.VariablePeakHeight, storm.VariableDuration} {
		return simerr.Configf("copula must couple %s and %s, got %v",
			storm.VariablePeakHeight, storm.VariableDuration, dist.CopulaVariables)
	}
	for _, name := range dist.CopulaVariables {
		if _, ok := dist.Marginals[name]; !ok {
			return simerr.Configf("no marginal fitted for %s", name)
		}
	}
	if !(dist.MeanYearLength > 0) {
		return simerr.Configf("mean year length must be positive, got %v", dist.MeanYearLength)
	}
	if dist.MeanStormSeasonLength < 0 {
		return simerr.Configf("mean storm season length must not be negative, got %v", dist.MeanStormSeasonLength)
	}
	if !dist.Copula.Valid() {
		return simerr.Configf("copula theta must lie in (-1,0) or (0,+Inf), got %v", dist.Copula.Theta)
	}
	return nil
}

// SetObserver registers o for realization completion events.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Years returns the calendar years of the output columns.
func (e *Engine) Years() []int {
	return append([]int(nil), e.cal.years...)
}

func (e *Engine) waterLevel(t float64) float64 {
	return e.cfg.InitialWaterLevel + e.curve.Elevation(e.startDays+t)
}

// Realize runs realization id and returns its annual minima. The row
// depends only on the master seed and id.
func (e *Engine) Realize(ctx context.Context, id int) ([]float64, error) {
	row, _, err := e.realize(ctx, id)
	return row, err
}

func (e *Engine) realize(ctx context.Context, id int) ([]float64, realizationStats, error) {
	start := time.Now()
	r := e.newRealization(id)
	row, err := r.run(ctx)
	st := r.stats()
	if e.observer != nil {
		e.observer.RealizationDone(time.Since(start), st.storms, err)
	}
	if err != nil {
		return nil, st, fmt.Errorf("realization %d: %w", id, err)
	}
	return row, st, nil
}

// Run executes every realization on a bounded worker pool. The first
// failure cancels the batch and no partial matrix is returned. Rows are
// indexed by realization id regardless of completion order.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	n := e.cfg.Realizations
	e.logger.Infow("starting monte carlo batch",
		"realizations", n,
		"years", len(e.cal.years),
		"workers", e.cfg.Workers,
		"scenario", e.cfg.Scenario,
		"seed", e.cfg.Seed)

	res := &Result{Years: e.Years(), Minima: make([][]float64, n)}
	var storms, seasons, rejected atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for id := 0; id < n; id++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			row, st, err := e.realize(gctx, id)
			if err != nil {
				return err
			}
			res.Minima[id] = row
			storms.Add(int64(st.storms))
			seasons.Add(int64(st.seasons))
			rejected.Add(int64(st.rejected))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Storms = int(storms.Load())
	res.Seasons = int(seasons.Load())
	res.Rejected = int(rejected.Load())
	res.Elapsed = time.Since(start)

	if res.Rejected > 0 {
		e.logger.Warnw("sampled storms below the detection thresholds were redrawn",
			"redrawn", res.Rejected, "storms", res.Storms)
	}
	e.logger.Infow("monte carlo batch complete",
		"realizations", n,
		"storms", res.Storms,
		"seasons", res.Seasons,
		"elapsed", res.Elapsed)
	return res, nil
}
