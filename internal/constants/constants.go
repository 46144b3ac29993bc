// Package constants defines application-wide constants and version information.
package constants

import (
	"runtime"
	"time"
)

// Version holds the application version information
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

// SeasonBreakDays is the inter-storm gap, in days, above which a storm opens
// a new storm season.
const SeasonBreakDays = 150.0

// SeaLevelEpoch is day zero of the sea-level rise curves.
var SeaLevelEpoch = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

// HoursPerDay converts between storm durations and the simulation clock.
const HoursPerDay = 24.0

// DaysPerYear converts annual rates to the daily simulation clock.
const DaysPerYear = 365.0
