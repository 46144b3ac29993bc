package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/log"
	"github.com/chrissnell/coastretreat/internal/storm"
	"github.com/chrissnell/coastretreat/internal/waves"
)

func main() {
	waveFile := flag.String("waves", "", "Wave CSV with columns time (days), hs (m), dir (deg), tp (s)")
	header := flag.Bool("header", false, "Skip the first CSV row")
	percentile := flag.Float64("percentile", 95, "Storm height threshold percentile (0-100)")
	duration := flag.Float64("duration", 12, "Minimum storm duration in hours")
	seasonBreak := flag.Float64("season-break", constants.SeasonBreakDays, "Gap in days that starts a new storm season")
	fit := flag.Bool("fit", false, "Also fit the storm statistics and print them")
	asJSON := flag.Bool("json", false, "Print JSON instead of a table")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if *waveFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -waves is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	series, err := waves.LoadCSV(*waveFile, *header)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	det, err := storm.DetectSeries(series, storm.DetectOptions{
		HeightPercentile: *percentile,
		MinDurationHours: *duration,
		SeasonBreakDays:  *seasonBreak,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error detecting storms: %v\n", err)
		os.Exit(1)
	}

	// the table is still printed so short records can be inspected
	insufficient := det.Sufficient()
	if insufficient != nil {
		log.Warnw("too few storms to fit gaps and seasons",
			"storms", len(det.Events), "need", storm.MinStorms)
	}

	var fitted *storm.FittedDistributions
	if *fit && insufficient == nil {
		fitter := storm.NewFitter(log.GetSugaredLogger(), storm.FitOptions{SeasonBreakDays: *seasonBreak})
		fitted, err = fitter.Fit(det)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fitting storm statistics: %v\n", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		printJSON(det, fitted)
		if insufficient != nil {
			os.Exit(2)
		}
		return
	}
	printTable(det)
	if fitted != nil {
		printFit(fitted)
	}
	if insufficient != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", insufficient)
		os.Exit(2)
	}
}

// jsonEvent replaces the NaN gap of the first storm, which JSON cannot
// carry, with null.
type jsonEvent struct {
	storm.Event
	GapBeforeDays *float64 `json:"gap_before_days"`
}

func printJSON(det *storm.Detection, fitted *storm.FittedDistributions) {
	events := make([]jsonEvent, len(det.Events))
	for i, e := range det.Events {
		events[i] = jsonEvent{Event: e}
		if e.HasGap() {
			gap := e.GapBeforeDays
			events[i].GapBeforeDays = &gap
		}
	}
	out := struct {
		Threshold float64                    `json:"threshold"`
		Storms    []jsonEvent                `json:"storms"`
		Fit       *storm.FittedDistributions `json:"fit,omitempty"`
	}{det.Threshold, events, fitted}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func printTable(det *storm.Detection) {
	fmt.Printf("Storms above %.2f m (P%.1f), spacing %.2f h: %d detected\n\n",
		det.Threshold, det.Percentile, det.SpacingHours, len(det.Events))
	fmt.Printf("%4s %10s %10s %8s %7s %7s %6s %9s %s\n",
		"#", "start", "end", "dur(h)", "hs(m)", "dir", "tp(s)", "gap(d)", "")
	for i, e := range det.Events {
		gap := "-"
		if !math.IsNaN(e.GapBeforeDays) {
			gap = fmt.Sprintf("%.2f", e.GapBeforeDays)
		}
		season := ""
		if e.SeasonStart {
			season = "new season"
		}
		fmt.Printf("%4d %10.3f %10.3f %8.1f %7.2f %7.1f %6.2f %9s %s\n",
			i, e.StartTime, e.EndTime, e.DurationHours, e.PeakHeight, e.MeanDirection, e.MeanPeriod, gap, season)
	}
}

func printFit(f *storm.FittedDistributions) {
	fmt.Printf("\nStorm statistics\n")
	fmt.Printf("  Within-season gaps:  %d (median %.2f d)\n", f.GapECDF.Len(), median(f.GapECDF))
	fmt.Printf("  Mean year length:    %.1f d\n", f.MeanYearLength)
	fmt.Printf("  Mean storm season:   %.1f d (%d seasons", f.MeanStormSeasonLength, f.SeasonCount)
	if f.SeasonsTruncated > 0 {
		fmt.Printf(", %d calm segment dropped", f.SeasonsTruncated)
	}
	fmt.Printf(")\n")

	names := make([]string, 0, len(f.Marginals))
	for name := range f.Marginals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g := f.Marginals[name]
		fmt.Printf("  GEV %-15s shape %7.4f  location %8.4f  scale %8.4f\n", name, g.Shape, g.Location, g.Scale)
	}
	fmt.Printf("  Clayton (%s, %s): theta %.4f, kendall tau %.4f\n",
		f.CopulaVariables[0], f.CopulaVariables[1], f.Copula.Theta, f.Copula.Tau)
}

func median(e storm.ECDF) float64 {
	v, err := e.Quantile(0.5)
	if err != nil {
		return math.NaN()
	}
	return v
}
