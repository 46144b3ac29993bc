// Package fitcache stores fitted storm statistics on disk so repeated runs
// over the same wave record skip detection and fitting.
package fitcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/coastretreat/internal/storm"
)

// formatVersion changes whenever FittedDistributions changes shape.
const formatVersion = 1

// ErrMiss means no usable cache entry exists.
var ErrMiss = errors.New("fit cache miss")

type entry struct {
	Version     int                        `msgpack:"version"`
	Fingerprint string                     `msgpack:"fingerprint"`
	CreatedAt   time.Time                  `msgpack:"created_at"`
	Storms      []storm.Event              `msgpack:"storms"`
	Fit         *storm.FittedDistributions `msgpack:"fit"`
}

// Fingerprint identifies the inputs a fit depends on: the wave file's
// size and modification time and the detection settings.
func Fingerprint(waveFile string, opts storm.DetectOptions) (string, error) {
	fi, err := os.Stat(waveFile)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(waveFile)
	if err != nil {
		abs = waveFile
	}
	return fmt.Sprintf("%s|%d|%d|p%g|d%g|b%g", abs, fi.Size(), fi.ModTime().UnixNano(),
		opts.HeightPercentile, opts.MinDurationHours, opts.SeasonBreakDays), nil
}

// Save writes the storms and fit under fingerprint. The file is replaced
// atomically.
func Save(path, fingerprint string, storms []storm.Event, fit *storm.FittedDistributions) error {
	b, err := msgpack.Marshal(&entry{
		Version:     formatVersion,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UTC(),
		Storms:      storms,
		Fit:         fit,
	})
	if err != nil {
		return fmt.Errorf("error encoding fit cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("error creating fit cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing fit cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing fit cache: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load returns the cached storms and fit when the entry at path was written
// for fingerprint. Any other outcome short of an I/O error is ErrMiss.
func Load(path, fingerprint string) ([]storm.Event, *storm.FittedDistributions, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrMiss
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error reading fit cache: %w", err)
	}

	var e entry
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return nil, nil, fmt.Errorf("%w: undecodable entry: %v", ErrMiss, err)
	}
	if e.Version != formatVersion {
		return nil, nil, fmt.Errorf("%w: format version %d", ErrMiss, e.Version)
	}
	if e.Fingerprint != fingerprint {
		return nil, nil, fmt.Errorf("%w: inputs changed", ErrMiss)
	}
	if e.Fit == nil {
		return nil, nil, fmt.Errorf("%w: empty entry", ErrMiss)
	}
	return e.Storms, e.Fit, nil
}
