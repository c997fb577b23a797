package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/drift/components"
	"github.com/pthm-cable/drift/config"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Distribution
	}{
		{"empty slice", []float64{}, Distribution{}},
		{"single element", []float64{5}, Distribution{Mean: 5, P10: 5, P50: 5, P90: 5, Max: 5}},
		{
			"one to ten unsorted",
			[]float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5},
			Distribution{Mean: 5.5, Std: math.Sqrt(82.5 / 9), P10: 1, P50: 5, P90: 9, Max: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			fields := [][2]float64{
				{got.Mean, tt.want.Mean},
				{got.Std, tt.want.Std},
				{got.P10, tt.want.P10},
				{got.P50, tt.want.P50},
				{got.P90, tt.want.P90},
				{got.Max, tt.want.Max},
			}
			for i, f := range fields {
				if math.Abs(f[0]-f[1]) > 1e-9 {
					t.Errorf("field %d = %v, want %v (got %+v)", i, f[0], f[1], got)
				}
			}
		})
	}
}

// rect is a w x h field with no samples.
type rect struct{ w, h int }

func (r rect) Width() int  { return r.w }
func (r rect) Height() int { return r.h }
func (r rect) InBounds(x, y float64) bool {
	return x >= 0 && x < float64(r.w) && y >= 0 && y < float64(r.h)
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(10, 60)

	if c.ShouldFlush(9) {
		t.Error("flushed before the window elapsed")
	}
	if !c.ShouldFlush(10) {
		t.Error("did not flush at the window boundary")
	}

	c.RecordRegeneration()
	c.RecordPause()
	c.RecordPause()

	particles := []components.Particle{
		components.NewParticle(50, 50, 3, 4),  // inside, speed 5
		components.NewParticle(-1, 50, 0, 1),  // left of the field
		components.NewParticle(50, 100, 1, 0), // on the bottom edge, outside
		components.NewParticle(99.5, 0, 0, 0), // inside
	}

	stats := c.Flush(10, particles, rect{100, 100})

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 10 {
		t.Errorf("window = [%d, %d], want [0, 10]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if math.Abs(stats.ElapsedSec-10.0/60) > 1e-9 {
		t.Errorf("elapsed = %v", stats.ElapsedSec)
	}
	if stats.Particles != 4 || stats.OutOfField != 2 || stats.OutOfFieldFrac != 0.5 {
		t.Errorf("population counts: %+v", stats)
	}
	if stats.SpeedMax != 5 || stats.SpeedMean != 1.75 {
		t.Errorf("speed mean=%v max=%v", stats.SpeedMean, stats.SpeedMax)
	}
	if stats.Regenerations != 1 || stats.Pauses != 2 {
		t.Errorf("events: regenerations=%d pauses=%d", stats.Regenerations, stats.Pauses)
	}

	// Counters reset and the next window starts where this one ended
	next := c.Flush(25, nil, rect{100, 100})
	if next.WindowStartTick != 10 || next.Regenerations != 0 || next.Pauses != 0 || next.Particles != 0 {
		t.Errorf("window did not reset: %+v", next)
	}
	if c.ShouldFlush(30) || !c.ShouldFlush(35) {
		t.Error("window boundary not advanced after flush")
	}
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	c := NewCollector(5, 60)
	particles := []components.Particle{components.NewParticle(1, 1, 1, 0)}
	for _, tick := range []uint64{5, 10} {
		if err := om.WriteTelemetry(c.Flush(tick, particles, rect{10, 10})); err != nil {
			t.Fatalf("WriteTelemetry failed: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{TicksPerSecond: 60}, 10); err != nil {
		t.Fatalf("WritePerf failed: %v", err)
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "window_end,elapsed,particles") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.HasPrefix(lines[2], "window_end") {
		t.Error("header repeated on second write")
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml missing: %v", err)
	}
	if got := om.FramePath(42); got != filepath.Join(dir, "frames", "frame_00000042.png") {
		t.Errorf("FramePath = %q", got)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager, got %v, %v", om, err)
	}
	// Nil receiver methods are no-ops
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if om.FramePath(1) != "" || om.Dir() != "" {
		t.Error("disabled manager returned paths")
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}
