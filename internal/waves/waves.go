// Package waves holds the pre-processed wave time series consumed by the
// storm detector and reads it from CSV files.
package waves

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/coastretreat/internal/simerr"
)

// spacingTolerance is the relative deviation allowed between sample
// spacings. It absorbs rounding of time columns written with as few as four
// decimals of a day at hourly sampling.
const spacingTolerance = 1e-2

// Sample is one row of the wave series.
type Sample struct {
	Time              float64 // days
	SignificantHeight float64 // m
	Direction         float64 // degrees
	PeakPeriod        float64 // s
}

// Series holds four aligned, uniformly sampled columns.
type Series struct {
	Times      []float64
	Heights    []float64
	Directions []float64
	Periods    []float64
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.Times)
}

// At returns sample i.
func (s *Series) At(i int) Sample {
	return Sample{
		Time:              s.Times[i],
		SignificantHeight: s.Heights[i],
		Direction:         s.Directions[i],
		PeakPeriod:        s.Periods[i],
	}
}

// Append adds a sample to the end of the series.
func (s *Series) Append(sm Sample) {
	s.Times = append(s.Times, sm.Time)
	s.Heights = append(s.Heights, sm.SignificantHeight)
	s.Directions = append(s.Directions, sm.Direction)
	s.Periods = append(s.Periods, sm.PeakPeriod)
}

// SpacingDays returns the sample step taken from the first two timestamps.
func (s *Series) SpacingDays() float64 {
	if s.Len() < 2 {
		return 0
	}
	return s.Times[1] - s.Times[0]
}

// Validate checks column alignment, monotonic uniform time and physical ranges.
func (s *Series) Validate() error {
	n := len(s.Times)
	if len(s.Heights) != n || len(s.Directions) != n || len(s.Periods) != n {
		return simerr.Configf("wave columns are not aligned (time=%d hs=%d dir=%d tp=%d)",
			n, len(s.Heights), len(s.Directions), len(s.Periods))
	}
	if n < 2 {
		return simerr.Configf("wave series needs at least 2 samples, got %d", n)
	}

	step := s.SpacingDays()
	if !(step > 0) {
		return simerr.Configf("wave time is not increasing at sample 1 (%v -> %v)", s.Times[0], s.Times[1])
	}
	for i := 1; i < n; i++ {
		dt := s.Times[i] - s.Times[i-1]
		if !(dt > 0) {
			return simerr.Configf("wave time is not increasing at sample %d (%v -> %v)", i, s.Times[i-1], s.Times[i])
		}
		if math.Abs(dt-step) > spacingTolerance*step {
			return simerr.Configf("wave time is not uniformly sampled at sample %d (step %v, expected %v)", i, dt, step)
		}
	}
	for i := 0; i < n; i++ {
		if s.Heights[i] < 0 || math.IsNaN(s.Heights[i]) {
			return simerr.Configf("significant wave height at sample %d is invalid: %v", i, s.Heights[i])
		}
		if s.Periods[i] < 0 || math.IsNaN(s.Periods[i]) {
			return simerr.Configf("peak period at sample %d is invalid: %v", i, s.Periods[i])
		}
	}
	return nil
}

// LoadCSV reads a wave file with columns time, hs, dir, tp. When header is
// true the first row is skipped.
func LoadCSV(filename string, header bool) (*Series, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening wave file: %w", err)
	}
	defer f.Close()

	series, err := ReadCSV(f, header)
	if err != nil {
		return nil, fmt.Errorf("error reading wave file %s: %w", filename, err)
	}
	return series, nil
}

// ReadCSV parses wave rows from r and validates the result.
func ReadCSV(r io.Reader, header bool) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	series := &Series{}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if header && line == 1 {
			continue
		}
		if len(record) < 4 {
			return nil, simerr.Configf("line %d: expected 4 columns, got %d", line, len(record))
		}

		var values [4]float64
		for i := 0; i < 4; i++ {
			values[i], err = strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, simerr.Configf("line %d column %d: %v", line, i+1, err)
			}
		}
		series.Append(Sample{
			Time:              values[0],
			SignificantHeight: values[1],
			Direction:         values[2],
			PeakPeriod:        values[3],
		})
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}
