// Package sqlite persists simulation runs to a SQLite database: the
// detected storms, the fitted distributions, the annual-minima matrix and
// its exceedance summary, all keyed by a run UUID.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/coastretreat/internal/montecarlo"
	"github.com/chrissnell/coastretreat/internal/storm"
	"github.com/chrissnell/coastretreat/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Run states.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one pipeline execution.
type Run struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Status       string
	Scenario     string
	Seed         uint64
	Realizations int
	DateStart    string
	DateEnd      string
	WaveFile     string
	Error        string
}

// Store is a results database.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := NewMigrator(db, logger).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate results database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// NewMigrator returns a migrator over the embedded results schema.
func NewMigrator(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	return migrate.NewMigrator(db, migrate.NewFSProvider(migrations, "migrations", ""), logger)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateRun inserts run in the running state. A nil ID is replaced with a
// fresh UUID.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	run.Status = StatusRunning

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, status, scenario, seed, realizations, date_start, date_end, wave_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.CreatedAt, run.Status, run.Scenario, int64(run.Seed),
		run.Realizations, run.DateStart, run.DateEnd, nullString(run.WaveFile))
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun marks the run complete, or failed with runErr.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, runErr error) error {
	status, msg := StatusComplete, sql.NullString{}
	if runErr != nil {
		status = StatusFailed
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, error = ? WHERE id = ?`, status, msg, id.String())
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var (
		run      Run
		rawID    string
		seed     int64
		waveFile sql.NullString
		runErr   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, status, scenario, seed, realizations, date_start, date_end, wave_file, error
		FROM runs WHERE id = ?`, id.String()).Scan(
		&rawID, &run.CreatedAt, &run.Status, &run.Scenario, &seed,
		&run.Realizations, &run.DateStart, &run.DateEnd, &waveFile, &runErr)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}

	if run.ID, err = uuid.Parse(rawID); err != nil {
		return Run{}, fmt.Errorf("invalid run id %q: %w", rawID, err)
	}
	run.Seed = uint64(seed)
	run.WaveFile = waveFile.String
	run.Error = runErr.String
	return run, nil
}

// SaveStorms stores the detected storm table.
func (s *Store) SaveStorms(ctx context.Context, runID uuid.UUID, events []storm.Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO storms (run_id, idx, start_time, end_time, start_index, end_index, duration_hours,
			                    peak_height, mean_direction, mean_period, gap_before_days, season_start)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare storm insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range events {
			gap := sql.NullFloat64{Float64: e.GapBeforeDays, Valid: e.HasGap()}
			_, err := stmt.ExecContext(ctx, runID.String(), i, e.StartTime, e.EndTime, e.StartIndex, e.EndIndex,
				e.DurationHours, e.PeakHeight, e.MeanDirection, e.MeanPeriod, gap, e.SeasonStart)
			if err != nil {
				return fmt.Errorf("failed to insert storm %d: %w", i, err)
			}
		}
		return nil
	})
}

// Storms returns the stored storm table in detection order.
func (s *Store) Storms(ctx context.Context, runID uuid.UUID) ([]storm.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_time, end_time, start_index, end_index, duration_hours, peak_height,
		       mean_direction, mean_period, gap_before_days, season_start
		FROM storms WHERE run_id = ? ORDER BY idx`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query storms: %w", err)
	}
	defer rows.Close()

	var events []storm.Event
	for rows.Next() {
		var e storm.Event
		var gap sql.NullFloat64
		err := rows.Scan(&e.StartTime, &e.EndTime, &e.StartIndex, &e.EndIndex, &e.DurationHours,
			&e.PeakHeight, &e.MeanDirection, &e.MeanPeriod, &gap, &e.SeasonStart)
		if err != nil {
			return nil, fmt.Errorf("failed to scan storm row: %w", err)
		}
		e.GapBeforeDays = math.NaN()
		if gap.Valid {
			e.GapBeforeDays = gap.Float64
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// SaveFit stores the fitted distribution parameters.
func (s *Store) SaveFit(ctx context.Context, runID uuid.UUID, fit *storm.FittedDistributions) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fits (run_id, mean_year_length, mean_storm_season_length, clayton_theta, kendall_tau,
			                  severity_variable, duration_variable, height_threshold, min_duration_hours,
			                  season_break_days, storm_count, season_count, seasons_truncated, gap_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID.String(), fit.MeanYearLength, fit.MeanStormSeasonLength, fit.Copula.Theta, fit.Copula.Tau,
			fit.CopulaVariables[0], fit.CopulaVariables[1], fit.HeightThreshold, fit.MinDurationHours,
			fit.SeasonBreakDays, fit.StormCount, fit.SeasonCount, fit.SeasonsTruncated, fit.GapECDF.Len())
		if err != nil {
			return fmt.Errorf("failed to insert fit: %w", err)
		}

		for name, g := range fit.Marginals {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO gev_marginals (run_id, variable, shape, location, scale) VALUES (?, ?, ?, ?, ?)`,
				runID.String(), name, g.Shape, g.Location, g.Scale)
			if err != nil {
				return fmt.Errorf("failed to insert %s marginal: %w", name, err)
			}
		}
		return nil
	})
}

// Marginals returns the stored GEV parameters by variable.
func (s *Store) Marginals(ctx context.Context, runID uuid.UUID) (map[string]storm.GEV, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variable, shape, location, scale FROM gev_marginals WHERE run_id = ?`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query marginals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]storm.GEV)
	for rows.Next() {
		var name string
		var g storm.GEV
		if err := rows.Scan(&name, &g.Shape, &g.Location, &g.Scale); err != nil {
			return nil, fmt.Errorf("failed to scan marginal row: %w", err)
		}
		out[name] = g
	}
	return out, rows.Err()
}

// SaveMinima stores the annual-minima matrix.
func (s *Store) SaveMinima(ctx context.Context, runID uuid.UUID, res *montecarlo.Result) error {
	start := time.Now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO annual_minima (run_id, realization, year, position) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare minima insert: %w", err)
		}
		defer stmt.Close()

		id := runID.String()
		for i, row := range res.Minima {
			for k, v := range row {
				if _, err := stmt.ExecContext(ctx, id, i, res.Years[k], v); err != nil {
					return fmt.Errorf("failed to insert minimum (%d, %d): %w", i, res.Years[k], err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debugw("annual minima stored", "run", runID, "rows", len(res.Minima), "elapsed", time.Since(start))
	return nil
}

// Minima reads back the annual-minima matrix.
func (s *Store) Minima(ctx context.Context, runID uuid.UUID) ([]int, [][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT realization, year, position FROM annual_minima
		WHERE run_id = ? ORDER BY realization, year`, runID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query minima: %w", err)
	}
	defer rows.Close()

	var years []int
	var minima [][]float64
	for rows.Next() {
		var realization, year int
		var position float64
		if err := rows.Scan(&realization, &year, &position); err != nil {
			return nil, nil, fmt.Errorf("failed to scan minima row: %w", err)
		}
		for len(minima) <= realization {
			minima = append(minima, nil)
		}
		if realization == 0 {
			years = append(years, year)
		}
		minima[realization] = append(minima[realization], position)
	}
	return years, minima, rows.Err()
}

// SaveExceedance stores the exceedance summary.
func (s *Store) SaveExceedance(ctx context.Context, runID uuid.UUID, ex *montecarlo.Exceedance) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		id := runID.String()
		for k, year := range ex.Years {
			for j, p := range ex.Probabilities {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO exceedance (run_id, year, probability, position) VALUES (?, ?, ?, ?)`,
					id, year, p, ex.Levels[j][k])
				if err != nil {
					return fmt.Errorf("failed to insert exceedance level: %w", err)
				}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO annual_mean (run_id, year, position) VALUES (?, ?, ?)`, id, year, ex.Mean[k])
			if err != nil {
				return fmt.Errorf("failed to insert annual mean: %w", err)
			}
		}
		return nil
	})
}

// ExceedanceLevel returns the stored position for one year and probability.
func (s *Store) ExceedanceLevel(ctx context.Context, runID uuid.UUID, year int, probability float64) (float64, error) {
	var position float64
	err := s.db.QueryRowContext(ctx, `
		SELECT position FROM exceedance WHERE run_id = ? AND year = ? AND probability = ?`,
		runID.String(), year, probability).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("failed to query exceedance level: %w", err)
	}
	return position, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
