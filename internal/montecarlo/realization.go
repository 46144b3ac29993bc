package montecarlo

import (
	"context"
	"fmt"
	"math"

	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/shoreline"
)

type phase int

const (
	phaseStormSeason phase = iota
	phaseCalmSeason
	phaseYearBoundary
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseStormSeason:
		return "storm_season"
	case phaseCalmSeason:
		return "calm_season"
	case phaseYearBoundary:
		return "year_boundary"
	case phaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// realization is the state of one simulated coastline. It is owned by a
// single goroutine and discarded when the row is returned.
type realization struct {
	e     *Engine
	s     *sampler
	track *annualTracker

	// t counts days since the start date. It is fractional because storm
	// durations are sampled in hours.
	t          float64
	waterLevel float64
	pos        shoreline.Position
	season     int
	seasonEnd  float64
	yearEnd    float64
	storms     int
}

type realizationStats struct {
	storms   int
	seasons  int
	rejected int
}

func (e *Engine) newRealization(id int) *realization {
	r := &realization{
		e:     e,
		s:     newSampler(e.dist, RealizationSeed(e.cfg.Seed, id), e.cfg.MaxStormAttempts),
		track: newAnnualTracker(e.cal),
	}
	r.waterLevel = e.waterLevel(0)
	r.track.observe(0, r.pos.Value())
	return r
}

// run drives the state machine until the clock passes the horizon.
func (r *realization) run(ctx context.Context) ([]float64, error) {
	r.beginYear()
	ph := phaseStormSeason

	var err error
	for ph != phaseDone {
		switch ph {
		case phaseStormSeason:
			ph, err = r.stormSeason()
		case phaseCalmSeason:
			ph = r.calmSeason()
		case phaseYearBoundary:
			ph, err = r.yearBoundary(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("%s at day %.2f: %w", ph, r.t, err)
		}
	}
	return r.track.finish(r.pos.Value()), nil
}

func (r *realization) stats() realizationStats {
	return realizationStats{storms: r.storms, seasons: r.season, rejected: r.s.rejected}
}

func (r *realization) beginYear() {
	stormSeason, year := r.s.seasonLengths()
	r.seasonEnd = r.t + stormSeason
	r.yearEnd = r.t + year
}

// stormSeason applies one storm and the gap after it.
func (r *realization) stormSeason() (phase, error) {
	if r.t >= r.seasonEnd || r.t > r.e.cal.horizon {
		return phaseCalmSeason, nil
	}

	height, duration, err := r.s.storm()
	if err != nil {
		return phaseStormSeason, err
	}
	r.pos.Erode(r.e.law.StormRetreat(height, duration))
	r.track.observe(r.t, r.pos.Value())
	r.storms++

	// no recovery while the storm lasts
	r.advance(r.t+duration/constants.HoursPerDay, false)

	gap, err := r.s.gap()
	if err != nil {
		return phaseStormSeason, err
	}
	if r.t+gap >= r.seasonEnd {
		return phaseCalmSeason, nil
	}
	r.advance(r.t+gap, true)
	return phaseStormSeason, nil
}

// calmSeason recovers until the end of the seasonal year.
func (r *realization) calmSeason() phase {
	r.advance(math.Max(r.yearEnd, r.t), true)
	return phaseYearBoundary
}

func (r *realization) yearBoundary(ctx context.Context) (phase, error) {
	if err := ctx.Err(); err != nil {
		return phaseYearBoundary, err
	}
	r.season++
	if r.t > r.e.cal.horizon {
		return phaseDone, nil
	}
	r.beginYear()
	return phaseStormSeason, nil
}

// advance moves the clock to t1, closing calendar columns on the way.
func (r *realization) advance(t1 float64, recover bool) {
	for {
		edge := r.track.nextEdge()
		if edge > t1 {
			r.evolve(t1, recover)
			return
		}
		r.evolve(edge, recover)
		r.track.rollover(r.pos.Value())
	}
}

// evolve applies sea-level retreat and, when recover is set, profile
// recovery over [t, t1].
func (r *realization) evolve(t1 float64, recover bool) {
	if t1 < r.t {
		t1 = r.t
	}
	wl := r.e.waterLevel(t1)
	r.pos.Shift(r.e.law.SLRRetreat(wl - r.waterLevel))
	if recover {
		r.pos.Recover(r.e.law.Recovery(t1 - r.t))
	}
	r.waterLevel = wl
	r.t = t1
	r.track.observe(t1, r.pos.Value())
}
