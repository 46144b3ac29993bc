package app

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/chrissnell/coastretreat/internal/montecarlo"
)

// WriteMinimaCSV writes one row per realization and one column per year.
func WriteMinimaCSV(path string, res *montecarlo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, 0, len(res.Years)+1)
	header = append(header, "realization")
	for _, y := range res.Years {
		header = append(header, strconv.Itoa(y))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range res.Minima {
		record[0] = strconv.Itoa(i)
		for k, v := range row {
			record[k+1] = strconv.FormatFloat(v, 'f', 4, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
