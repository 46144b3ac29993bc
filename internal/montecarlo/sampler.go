package montecarlo

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/chrissnell/coastretreat/internal/simerr"
	"github.com/chrissnell/coastretreat/internal/storm"
)

// DefaultMaxStormAttempts bounds the rejection loop that keeps sampled
// storms inside the detection thresholds.
const DefaultMaxStormAttempts = 1000

// RealizationSeed expands the master seed and a realization id into a
// ChaCha8 key. Distinct ids give distinct keys, so each realization draws
// from its own stream no matter which worker runs it or when.
func RealizationSeed(master uint64, id int) [32]byte {
	var seed [32]byte
	state := master ^ (uint64(id)+1)*0x9e3779b97f4a7c15
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(seed[i*8:], splitmix64(&state))
	}
	return seed
}

func splitmix64(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// sampler draws everything a realization needs from one random stream.
type sampler struct {
	rng         *rand.Rand
	dist        *storm.FittedDistributions
	severity    storm.GEV
	duration    storm.GEV
	maxAttempts int
	rejected    int
}

func newSampler(dist *storm.FittedDistributions, seed [32]byte, maxAttempts int) *sampler {
	return &sampler{
		rng:         rand.New(rand.NewChaCha8(seed)),
		dist:        dist,
		severity:    dist.Severity(),
		duration:    dist.Duration(),
		maxAttempts: maxAttempts,
	}
}

// unit returns a uniform draw in the open interval (0,1).
func (s *sampler) unit() float64 {
	for {
		if u := s.rng.Float64(); u > 0 {
			return u
		}
	}
}

// storm draws a dependent (peak height, duration hours) pair from the
// copula and the GEV marginals. Pairs below the detection thresholds were
// never part of the fitted record and are redrawn.
func (s *sampler) storm() (height, durationHours float64, err error) {
	for i := 0; i < s.maxAttempts; i++ {
		u := s.unit()
		v := s.dist.Copula.Conditional(u, s.unit())
		height = s.severity.Quantile(u)
		durationHours = s.duration.Quantile(v)
		if s.accept(height, durationHours) {
			return height, durationHours, nil
		}
		s.rejected++
	}
	return 0, 0, fmt.Errorf("%w: no storm above the detection thresholds in %d draws",
		simerr.ErrSampling, s.maxAttempts)
}

func (s *sampler) accept(height, durationHours float64) bool {
	if math.IsNaN(height) || math.IsInf(height, 0) || math.IsNaN(durationHours) || math.IsInf(durationHours, 0) {
		return false
	}
	return height >= s.dist.HeightThreshold && durationHours > s.dist.MinDurationHours
}

// gap draws a within-season inter-storm gap in days.
func (s *sampler) gap() (float64, error) {
	return s.dist.GapECDF.Quantile(s.unit())
}

// seasonLengths draws the storm season and seasonal year lengths in days.
// The year always covers its storm season and at least one day.
func (s *sampler) seasonLengths() (stormSeason, year float64) {
	stormSeason = distuv.Poisson{Lambda: s.dist.MeanStormSeasonLength, Src: s.rng}.Rand()
	year = distuv.Poisson{Lambda: s.dist.MeanYearLength, Src: s.rng}.Rand()
	return stormSeason, math.Max(math.Max(year, stormSeason), 1)
}
