package config

import (
	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/sealevel"
	"github.com/chrissnell/coastretreat/internal/shoreline"
	"github.com/chrissnell/coastretreat/internal/simerr"
)

// Defaults returns the configuration used for any field a file leaves out.
func Defaults() *ConfigData {
	return &ConfigData{
		Simulation: SimulationData{
			DateStart:    "2000-01-01",
			DateEnd:      "2100-12-31",
			Realizations: 1000,
			Seed:         1,
		},
		SeaLevel: SeaLevelData{
			Scenario: string(sealevel.ScenarioHigh),
		},
		Detection: DetectionData{
			HeightPercentile: 95,
			MinDurationHours: 12,
			SeasonBreakDays:  constants.SeasonBreakDays,
		},
		Shoreline: shoreline.DefaultParams(),
		Output: OutputData{
			Exceedance: []float64{0.5, 0.1, 0.01},
		},
		Log: LogData{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate checks the configuration before a run starts. Scenario errors
// wrap simerr.ErrInvalidScenario; everything else wraps
// simerr.ErrConfiguration.
func (c *ConfigData) Validate() error {
	sim := c.Simulation
	if sim.Realizations <= 0 {
		return simerr.Configf("simulation.realizations must be positive, got %d", sim.Realizations)
	}
	start, err := sim.StartDate()
	if err != nil {
		return simerr.Configf("simulation.date_start: %v", err)
	}
	end, err := sim.EndDate()
	if err != nil {
		return simerr.Configf("simulation.date_end: %v", err)
	}
	if !end.After(start) {
		return simerr.Configf("simulation.date_end %s is not after date_start %s", sim.DateEnd, sim.DateStart)
	}
	if sim.Workers < 0 {
		return simerr.Configf("simulation.workers must not be negative, got %d", sim.Workers)
	}
	if sim.Timeout < 0 {
		return simerr.Configf("simulation.timeout must not be negative, got %s", sim.Timeout)
	}

	if _, err := sealevel.ParseScenario(c.SeaLevel.Scenario); err != nil {
		return err
	}

	det := c.Detection
	if !(det.HeightPercentile >= 0 && det.HeightPercentile <= 100) {
		return simerr.Configf("detection.height_percentile %v outside [0,100]", det.HeightPercentile)
	}
	if !(det.MinDurationHours >= 0) {
		return simerr.Configf("detection.min_duration_hours must not be negative, got %v", det.MinDurationHours)
	}
	if !(det.SeasonBreakDays > 0) {
		return simerr.Configf("detection.season_break_days must be positive, got %v", det.SeasonBreakDays)
	}

	if err := c.Shoreline.Validate(); err != nil {
		return err
	}

	if c.Waves.File == "" {
		return simerr.Configf("waves.file is required")
	}
	for _, p := range c.Output.Exceedance {
		if !(p > 0 && p < 1) {
			return simerr.Configf("output.exceedance probability %v outside (0,1)", p)
		}
	}
	return nil
}
