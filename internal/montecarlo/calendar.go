package montecarlo

import (
	"math"
	"time"
)

// calendar maps the simulation clock, in days since the start date, onto
// calendar-year output columns.
type calendar struct {
	years   []int
	edges   []float64 // day on which column k ends, 1 January of the next year
	horizon float64
}

func newCalendar(start, end time.Time) calendar {
	start = truncateDay(start)
	end = truncateDay(end)

	c := calendar{horizon: daysBetween(start, end) + 1}
	for y := start.Year(); y <= end.Year(); y++ {
		c.years = append(c.years, y)
		next := time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		c.edges = append(c.edges, daysBetween(start, next))
	}
	return c
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// annualTracker keeps the running minimum of the current calendar year and
// flushes it into the row when the clock crosses 1 January.
type annualTracker struct {
	cal    calendar
	minima []float64
	col    int
	min    float64
}

func newAnnualTracker(cal calendar) *annualTracker {
	return &annualTracker{
		cal:    cal,
		minima: make([]float64, len(cal.years)),
		min:    math.Inf(1),
	}
}

// nextEdge returns the next column boundary after the current column, or
// +Inf once every column is closed.
func (a *annualTracker) nextEdge() float64 {
	if a.col >= len(a.cal.edges) {
		return math.Inf(1)
	}
	return a.cal.edges[a.col]
}

// observe records a position seen at day t. Observations past the horizon
// are ignored.
func (a *annualTracker) observe(t, position float64) {
	if t > a.cal.horizon || a.col >= len(a.minima) {
		return
	}
	a.min = math.Min(a.min, position)
}

// rollover closes the current column. position carries into the next year
// as its first observation.
func (a *annualTracker) rollover(position float64) {
	if a.col >= len(a.minima) {
		return
	}
	a.minima[a.col] = a.min
	a.col++
	a.min = position
}

// finish closes any open column and returns the row.
func (a *annualTracker) finish(position float64) []float64 {
	for a.col < len(a.minima) {
		if math.IsInf(a.min, 1) {
			a.min = position
		}
		a.rollover(position)
	}
	return a.minima
}
