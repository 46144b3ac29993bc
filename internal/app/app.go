// Package app runs the coastline retreat pipeline: load waves, detect and
// fit storms, simulate, then persist and summarize the results.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/coastretreat/internal/fitcache"
	"github.com/chrissnell/coastretreat/internal/metrics"
	"github.com/chrissnell/coastretreat/internal/montecarlo"
	"github.com/chrissnell/coastretreat/internal/sealevel"
	"github.com/chrissnell/coastretreat/internal/shoreline"
	"github.com/chrissnell/coastretreat/internal/storage/sqlite"
	"github.com/chrissnell/coastretreat/internal/storm"
	"github.com/chrissnell/coastretreat/internal/waves"
	"github.com/chrissnell/coastretreat/pkg/config"
)

// Pipeline stage names used in logs and metrics.
const (
	StageLoad     = "load_waves"
	StageDetect   = "detect"
	StageFit      = "fit"
	StageSimulate = "simulate"
	StagePersist  = "persist"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// Report is what a completed run produced.
type Report struct {
	RunID      uuid.UUID
	Storms     []storm.Event
	Fit        *storm.FittedDistributions
	Result     *montecarlo.Result
	Exceedance *montecarlo.Exceedance
	FromCache  bool
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{cfg: cfg, logger: logger}
}

// Run executes the pipeline once. SIGINT and SIGTERM cancel the batch at
// the next seasonal year boundary.
func (a *App) Run(ctx context.Context) (*Report, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		srvCtx, cancel := context.WithCancel(context.Background())
		srv := metrics.NewServer(addr, a.logger)
		if _, err := srv.Start(srvCtx); err != nil {
			cancel()
			return nil, fmt.Errorf("error starting metrics server: %w", err)
		}
		defer func() {
			cancel()
			srv.Wait()
		}()
	}

	var store *sqlite.Store
	report := &Report{}
	if path := a.cfg.Output.SQLite; path != "" {
		var err error
		if store, err = sqlite.Open(path, a.logger); err != nil {
			return nil, err
		}
		defer store.Close()

		run, err := store.CreateRun(ctx, sqlite.Run{
			Scenario:     a.cfg.SeaLevel.Scenario,
			Seed:         a.cfg.Simulation.Seed,
			Realizations: a.cfg.Simulation.Realizations,
			DateStart:    a.cfg.Simulation.DateStart,
			DateEnd:      a.cfg.Simulation.DateEnd,
			WaveFile:     a.cfg.Waves.File,
		})
		if err != nil {
			return nil, err
		}
		report.RunID = run.ID
		a.logger = a.logger.With("run", run.ID)
	}

	err := a.run(ctx, store, report)
	if store != nil {
		// the run row must record a cancellation too
		if ferr := store.FinishRun(context.Background(), report.RunID, err); ferr != nil {
			a.logger.Errorf("error recording run status: %v", ferr)
		}
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (a *App) run(ctx context.Context, store *sqlite.Store, report *Report) error {
	var err error
	report.Storms, report.Fit, report.FromCache, err = a.fit()
	if err != nil {
		return err
	}
	metrics.SetStormsDetected(len(report.Storms))

	if err := a.stage(StageSimulate, func() error {
		report.Result, err = a.simulate(ctx, report.Fit)
		return err
	}); err != nil {
		return err
	}

	report.Exceedance, err = montecarlo.Summarize(report.Result, a.cfg.Output.Exceedance)
	if err != nil {
		return err
	}
	a.logSummary(report.Exceedance)

	return a.stage(StagePersist, func() error {
		return a.persist(ctx, store, report)
	})
}

// stage times fn and reports it to the metrics collectors.
func (a *App) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveStage(name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	a.logger.Debugw("stage complete", "stage", name, "elapsed", time.Since(start))
	return nil
}

func (a *App) detectOptions() storm.DetectOptions {
	return storm.DetectOptions{
		HeightPercentile: a.cfg.Detection.HeightPercentile,
		MinDurationHours: a.cfg.Detection.MinDurationHours,
		SeasonBreakDays:  a.cfg.Detection.SeasonBreakDays,
	}
}

// fit returns the storm table and fitted distributions, from the cache
// when it was written for the same wave file and thresholds.
func (a *App) fit() ([]storm.Event, *storm.FittedDistributions, bool, error) {
	opts := a.detectOptions()

	var fingerprint string
	if path := a.cfg.Output.FitCache; path != "" {
		fp, err := fitcache.Fingerprint(a.cfg.Waves.File, opts)
		if err != nil {
			return nil, nil, false, fmt.Errorf("%s: %w", StageLoad, err)
		}
		fingerprint = fp

		storms, fit, err := fitcache.Load(path, fingerprint)
		switch {
		case err == nil:
			a.logger.Infow("using cached storm fit", "cache", path, "storms", len(storms))
			return storms, fit, true, nil
		case errors.Is(err, fitcache.ErrMiss):
			a.logger.Debugw("fit cache miss", "cache", path, "reason", err)
		default:
			return nil, nil, false, err
		}
	}

	var series *waves.Series
	if err := a.stage(StageLoad, func() (err error) {
		series, err = waves.LoadCSV(a.cfg.Waves.File, a.cfg.Waves.Header)
		return err
	}); err != nil {
		return nil, nil, false, err
	}

	var det *storm.Detection
	if err := a.stage(StageDetect, func() (err error) {
		det, err = storm.DetectSeries(series, opts)
		return err
	}); err != nil {
		return nil, nil, false, err
	}
	a.logger.Infow("storms detected",
		"storms", len(det.Events),
		"threshold_m", det.Threshold,
		"percentile", det.Percentile,
		"spacing_hours", det.SpacingHours)

	var fit *storm.FittedDistributions
	if err := a.stage(StageFit, func() (err error) {
		fitter := storm.NewFitter(a.logger, storm.FitOptions{SeasonBreakDays: opts.SeasonBreakDays})
		fit, err = fitter.Fit(det)
		return err
	}); err != nil {
		return nil, nil, false, err
	}

	if path := a.cfg.Output.FitCache; path != "" {
		if err := fitcache.Save(path, fingerprint, det.Events, fit); err != nil {
			a.logger.Warnf("could not write fit cache: %v", err)
		}
	}
	return det.Events, fit, false, nil
}

// EngineConfig converts the simulation settings into an engine config.
func EngineConfig(cfg *config.ConfigData) (montecarlo.Config, error) {
	start, err := cfg.Simulation.StartDate()
	if err != nil {
		return montecarlo.Config{}, err
	}
	end, err := cfg.Simulation.EndDate()
	if err != nil {
		return montecarlo.Config{}, err
	}
	scenario, err := sealevel.ParseScenario(cfg.SeaLevel.Scenario)
	if err != nil {
		return montecarlo.Config{}, err
	}
	return montecarlo.Config{
		Start:             start,
		End:               end,
		Realizations:      cfg.Simulation.Realizations,
		Seed:              cfg.Simulation.Seed,
		Workers:           cfg.Simulation.Workers,
		Scenario:          scenario,
		InitialWaterLevel: cfg.SeaLevel.InitialWaterLevel,
	}, nil
}

func (a *App) simulate(ctx context.Context, fit *storm.FittedDistributions) (*montecarlo.Result, error) {
	engineCfg, err := EngineConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	law, err := shoreline.NewEnergyBruun(a.cfg.Shoreline)
	if err != nil {
		return nil, err
	}
	engine, err := montecarlo.NewEngine(a.logger, engineCfg, fit, law)
	if err != nil {
		return nil, err
	}
	engine.SetObserver(metrics.BatchObserver{})

	if timeout := a.cfg.Simulation.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return engine.Run(ctx)
}

func (a *App) persist(ctx context.Context, store *sqlite.Store, report *Report) error {
	if path := a.cfg.Output.MinimaCSV; path != "" {
		if err := WriteMinimaCSV(path, report.Result); err != nil {
			return err
		}
		a.logger.Infof("annual minima written to %s", path)
	}
	if store == nil {
		return nil
	}

	id := report.RunID
	if err := store.SaveStorms(ctx, id, report.Storms); err != nil {
		return err
	}
	if err := store.SaveFit(ctx, id, report.Fit); err != nil {
		return err
	}
	if err := store.SaveMinima(ctx, id, report.Result); err != nil {
		return err
	}
	return store.SaveExceedance(ctx, id, report.Exceedance)
}

// logSummary logs the exceedance levels of the final year.
func (a *App) logSummary(ex *montecarlo.Exceedance) {
	last := len(ex.Years) - 1
	if last < 0 {
		return
	}
	kv := []interface{}{"year", ex.Years[last], "mean_m", ex.Mean[last]}
	for j, p := range ex.Probabilities {
		kv = append(kv, fmt.Sprintf("p%g_m", p), ex.Levels[j][last])
	}
	a.logger.Infow("coastline retreat exceedance", kv...)
}
