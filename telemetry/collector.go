package telemetry

import "github.com/pthm-cable/drift/components"

// Bounds is the field rectangle particle positions are measured against.
type Bounds interface {
	Width() int
	Height() int
	InBounds(x, y float64) bool
}

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks uint64
	tickSec     float64

	// Current window tracking
	windowStartTick uint64

	// Event counters for current window
	regenerations int
	pauses        int

	// Scratch buffers reused across flushes
	speeds []float64
	radii  []float64
}

// NewCollector creates a collector that flushes every windowTicks ticks.
// targetFPS converts ticks to elapsed seconds; 0 disables the conversion.
func NewCollector(windowTicks int, targetFPS int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	var tickSec float64
	if targetFPS > 0 {
		tickSec = 1 / float64(targetFPS)
	}
	return &Collector{
		windowTicks: uint64(windowTicks),
		tickSec:     tickSec,
	}
}

// RecordRegeneration records a population regeneration.
func (c *Collector) RecordRegeneration() {
	c.regenerations++
}

// RecordPause records a transition into the paused state.
func (c *Collector) RecordPause() {
	c.pauses++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats from the population snapshot and resets the
// counters for the next window. Radii are measured from the centre of field.
func (c *Collector) Flush(currentTick uint64, particles []components.Particle, field Bounds) WindowStats {
	c.speeds = c.speeds[:0]
	c.radii = c.radii[:0]

	centre := components.Vector2{X: float64(field.Width()) / 2, Y: float64(field.Height()) / 2}
	outside := 0
	for i := range particles {
		p := &particles[i]
		c.speeds = append(c.speeds, p.Vel.Mag())
		c.radii = append(c.radii, p.Pos.DistanceTo(centre))
		if !field.InBounds(p.Pos.X, p.Pos.Y) {
			outside++
		}
	}

	speed := Summarize(c.speeds)
	radius := Summarize(c.radii)

	var frac float64
	if len(particles) > 0 {
		frac = float64(outside) / float64(len(particles))
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		ElapsedSec:      float64(currentTick) * c.tickSec,

		Particles:      len(particles),
		OutOfField:     outside,
		OutOfFieldFrac: frac,

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,
		SpeedP10:  speed.P10,
		SpeedP50:  speed.P50,
		SpeedP90:  speed.P90,
		SpeedMax:  speed.Max,

		RadiusP50: radius.P50,
		RadiusP90: radius.P90,

		Regenerations: c.regenerations,
		Pauses:        c.pauses,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.regenerations = 0
	c.pauses = 0

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 {
	return c.windowTicks
}
