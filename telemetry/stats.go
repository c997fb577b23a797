package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	ElapsedSec      float64 `csv:"elapsed"`

	// Population at window end
	Particles      int     `csv:"particles"`
	OutOfField     int     `csv:"out_of_field"`
	OutOfFieldFrac float64 `csv:"out_of_field_frac"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
	SpeedMax  float64 `csv:"speed_max"`

	// Displacement from the field centre
	RadiusP50 float64 `csv:"radius_p50"`
	RadiusP90 float64 `csv:"radius_p90"`

	// Events during window
	Regenerations int `csv:"regenerations"`
	Pauses        int `csv:"pauses"`
}

// Distribution summarises a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// Summarize computes mean, standard deviation, the empirical 10/50/90th
// percentiles and the maximum of values. values is sorted in place.
// An empty sample yields the zero Distribution.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sort.Float64s(values)

	var d Distribution
	if len(values) > 1 {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	} else {
		d.Mean = values[0]
	}
	d.P10 = stat.Quantile(0.10, stat.Empirical, values, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, values, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, values, nil)
	d.Max = values[len(values)-1]
	return d
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("elapsed", s.ElapsedSec),
		slog.Int("particles", s.Particles),
		slog.Int("out_of_field", s.OutOfField),
		slog.Float64("out_of_field_frac", s.OutOfFieldFrac),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("radius_p50", s.RadiusP50),
		slog.Float64("radius_p90", s.RadiusP90),
		slog.Int("regenerations", s.Regenerations),
		slog.Int("pauses", s.Pauses),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
