package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/chrissnell/coastretreat/internal/app"
	"github.com/chrissnell/coastretreat/internal/constants"
	"github.com/chrissnell/coastretreat/internal/log"
	"github.com/chrissnell/coastretreat/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to the YAML run configuration")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	realizations := flag.Int("realizations", 0, "Override simulation.realizations")
	seed := flag.Uint64("seed", 0, "Override simulation.seed")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("coastretreat %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration
	cfgData, err := loadConfig(*cfgFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *realizations > 0 {
		cfgData.Simulation.Realizations = *realizations
	}
	if *seed > 0 {
		cfgData.Simulation.Seed = *seed
	}

	if cfgData.Log.File != "" {
		err := log.InitWithFile(*debug, log.FileOptions{
			Filename:   cfgData.Log.File,
			MaxSizeMB:  cfgData.Log.MaxSizeMB,
			MaxBackups: cfgData.Log.MaxBackups,
			MaxAgeDays: cfgData.Log.MaxAgeDays,
			Compress:   cfgData.Log.Compress,
		})
		if err != nil {
			log.Errorf("Failed to open log file: %v", err)
			os.Exit(1)
		}
	}

	report, err := app.New(cfgData, log.GetSugaredLogger()).Run(context.Background())
	if err != nil {
		log.Errorf("Simulation failed: %v", err)
		os.Exit(1)
	}

	printSummary(report)
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	provider := config.NewYAMLProvider(filename)
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}
	return cfgData, nil
}

func printSummary(report *app.Report) {
	ex := report.Exceedance
	res := report.Result

	fmt.Printf("Coastline retreat, %d realizations, %d storms simulated\n", len(res.Minima), res.Storms)
	if report.RunID != uuid.Nil {
		fmt.Printf("  Run:          %s\n", report.RunID)
	}
	fmt.Printf("  Storms fit:   %d (%d seasons)\n", report.Fit.StormCount, report.Fit.SeasonCount)
	fmt.Printf("  Elapsed:      %s\n\n", res.Elapsed)

	fmt.Printf("%6s %9s", "year", "mean")
	for _, p := range ex.Probabilities {
		fmt.Printf(" %9s", fmt.Sprintf("P=%g", p))
	}
	fmt.Println()

	// every tenth year and the last one
	for k, year := range ex.Years {
		if k%10 != 0 && k != len(ex.Years)-1 {
			continue
		}
		fmt.Printf("%6d %9.2f", year, ex.Mean[k])
		for j := range ex.Probabilities {
			fmt.Printf(" %9.2f", ex.Levels[j][k])
		}
		fmt.Println()
	}
}
