package main

import (
	"math"
	"math/rand"
	"sync"

	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/raster"
	"github.com/pthm-cable/drift/sim"
	"github.com/pthm-cable/drift/telemetry"
)

// Targets describes the flow the optimizer steers towards.
type Targets struct {
	OutOfField float64 // Fraction of particles outside the field at the end of a run
	Coverage   float64 // Median distance from the centre over the half diagonal
}

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config
	targets    Targets

	mu        sync.Mutex
	lastStats telemetry.WindowStats // mean over seeds from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config, targets Targets) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		targets:    targets,
	}
}

// LastStats returns the seed-averaged stats from the most recent evaluation.
func (fe *FitnessEvaluator) LastStats() telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Every seed runs on its own goroutine with a single update worker.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]telemetry.WindowStats, len(fe.seeds))
	fieldSizes := make([][2]int, len(fe.seeds))
	failed := make([]bool, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			stats, w, h, err := fe.runSimulation(cfg, s)
			if err != nil {
				failed[idx] = true
				return
			}
			results[idx] = stats
			fieldSizes[idx] = [2]int{w, h}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	var mean telemetry.WindowStats
	n := 0
	for i, r := range results {
		if failed[i] {
			continue
		}
		total += fe.computeFitness(r, fieldSizes[i][0], fieldSizes[i][1])
		mean.OutOfFieldFrac += r.OutOfFieldFrac
		mean.SpeedMean += r.SpeedMean
		mean.RadiusP50 += r.RadiusP50
		n++
	}
	if n == 0 {
		return math.Inf(1)
	}
	mean.OutOfFieldFrac /= float64(n)
	mean.SpeedMean /= float64(n)
	mean.RadiusP50 /= float64(n)

	fe.mu.Lock()
	fe.lastStats = mean
	fe.mu.Unlock()

	return total / float64(n)
}

// runSimulation ticks one seeded simulation to maxTicks and samples the
// population once at the end.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (telemetry.WindowStats, int, int, error) {
	// Marks are irrelevant to fitness; a 1x1 surface keeps drawing cheap.
	surf, err := raster.NewSurface(1, 1)
	if err != nil {
		return telemetry.WindowStats{}, 0, 0, err
	}
	s, err := sim.New(cfg,
		sim.WithRand(rand.New(rand.NewSource(seed))),
		sim.WithSurface(surf),
		sim.WithWorkers(1),
	)
	if err != nil {
		return telemetry.WindowStats{}, 0, 0, err
	}
	defer s.Close()

	for i := 0; i < fe.maxTicks; i++ {
		s.Tick()
	}

	field := s.Field()
	collector := telemetry.NewCollector(fe.maxTicks, cfg.Screen.TargetFPS)
	stats := collector.Flush(s.Ticks(), s.Particles(nil), field)
	return stats, field.Width(), field.Height(), nil
}

// computeFitness is the squared distance of a run from the targets.
func (fe *FitnessEvaluator) computeFitness(stats telemetry.WindowStats, w, h int) float64 {
	halfDiag := math.Hypot(float64(w), float64(h)) / 2
	coverage := 0.0
	if halfDiag > 0 {
		coverage = stats.RadiusP50 / halfDiag
	}
	dOut := stats.OutOfFieldFrac - fe.targets.OutOfField
	dCov := coverage - fe.targets.Coverage
	return dOut*dOut + dCov*dCov
}

// copyConfig creates a deep copy of the base config. Config holds only
// values, so a struct copy is enough.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
