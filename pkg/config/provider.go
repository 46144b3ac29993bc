package config

import (
	"time"

	"github.com/chrissnell/coastretreat/internal/shoreline"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration of a simulation run
type ConfigData struct {
	Simulation SimulationData   `json:"simulation" yaml:"simulation"`
	SeaLevel   SeaLevelData     `json:"sea_level" yaml:"sea_level"`
	Detection  DetectionData    `json:"detection" yaml:"detection"`
	Shoreline  shoreline.Params `json:"shoreline" yaml:"shoreline"`
	Waves      WavesData        `json:"waves" yaml:"waves"`
	Output     OutputData       `json:"output" yaml:"output"`
	Log        LogData          `json:"log" yaml:"log"`
	Metrics    MetricsData      `json:"metrics" yaml:"metrics"`
}

// SimulationData holds the Monte-Carlo batch settings
type SimulationData struct {
	DateStart    string        `json:"date_start" yaml:"date_start"`
	DateEnd      string        `json:"date_end" yaml:"date_end"`
	Realizations int           `json:"realizations" yaml:"realizations"`
	Seed         uint64        `json:"seed" yaml:"seed"`
	Workers      int           `json:"workers,omitempty" yaml:"workers,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// StartDate parses DateStart.
func (s SimulationData) StartDate() (time.Time, error) {
	return time.Parse(time.DateOnly, s.DateStart)
}

// EndDate parses DateEnd.
func (s SimulationData) EndDate() (time.Time, error) {
	return time.Parse(time.DateOnly, s.DateEnd)
}

// SeaLevelData selects the sea-level rise curve
type SeaLevelData struct {
	Scenario          string  `json:"scenario" yaml:"scenario"`
	InitialWaterLevel float64 `json:"initial_water_level" yaml:"initial_water_level"`
}

// DetectionData holds the storm detection thresholds
type DetectionData struct {
	HeightPercentile float64 `json:"height_percentile" yaml:"height_percentile"`
	MinDurationHours float64 `json:"min_duration_hours" yaml:"min_duration_hours"`
	SeasonBreakDays  float64 `json:"season_break_days" yaml:"season_break_days"`
}

// WavesData locates the wave time series
type WavesData struct {
	File   string `json:"file" yaml:"file"`
	Header bool   `json:"header,omitempty" yaml:"header,omitempty"`
}

// OutputData holds the result destinations. Empty paths are skipped.
type OutputData struct {
	SQLite     string    `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	FitCache   string    `json:"fit_cache,omitempty" yaml:"fit_cache,omitempty"`
	MinimaCSV  string    `json:"minima_csv,omitempty" yaml:"minima_csv,omitempty"`
	Exceedance []float64 `json:"exceedance,omitempty" yaml:"exceedance,omitempty"`
}

// LogData configures the optional rotating log file
type LogData struct {
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// MetricsData configures the Prometheus endpoint
type MetricsData struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
}
