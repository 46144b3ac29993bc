package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/sealevel"
)

func main() {
	scenarioFlag := flag.String("scenario", "", "Scenario tag (none, low, mid-low, mid-high, high, RCP26, RCP45, RCP60, RCP85); empty prints every tier")
	startStr := flag.String("start", "2018-01-01", "First date (YYYY-MM-DD)")
	endStr := flag.String("end", "2100-01-01", "Last date (YYYY-MM-DD)")
	stepYears := flag.Int("step", 10, "Years between rows")
	flag.Parse()

	start, err := time.Parse(time.DateOnly, *startStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
		os.Exit(1)
	}
	end, err := time.Parse(time.DateOnly, *endStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
		os.Exit(1)
	}
	if *stepYears <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -step must be positive")
		os.Exit(1)
	}

	scenarios := sealevel.Scenarios()
	if *scenarioFlag != "" {
		s, err := sealevel.ParseScenario(*scenarioFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		scenarios = []sealevel.Scenario{s}
	}

	curves := make([]sealevel.Curve, len(scenarios))
	header := []string{fmt.Sprintf("%-10s", "date")}
	for i, s := range scenarios {
		c, err := sealevel.CurveFor(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		curves[i] = c
		header = append(header, fmt.Sprintf("%9s", s))
	}
	fmt.Printf("Sea-level rise (m) relative to %s\n", constants.SeaLevelEpoch.Format(time.DateOnly))
	fmt.Println(strings.Join(header, " "))

	for t := start; !t.After(end); t = t.AddDate(*stepYears, 0, 0) {
		days := sealevel.DaysSinceEpoch(t)
		row := []string{t.Format(time.DateOnly)}
		for _, c := range curves {
			row = append(row, fmt.Sprintf("%9.3f", c.Elevation(days)))
		}
		fmt.Println(strings.Join(row, " "))
	}
}
