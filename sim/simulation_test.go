package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/pthm-cable/drift/components"
	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/raster"
	"github.com/pthm-cable/drift/systems"
)

const eps = 1e-9

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// constField returns the same sample for every position.
type constField struct {
	v    float64
	w, h int
}

func (f constField) Noise(_, _ float64, _ int) float64 { return f.v }
func (f constField) Width() int                        { return f.w }
func (f constField) Height() int                       { return f.h }

func (f constField) InBounds(x, y float64) bool {
	return x >= 0 && x < float64(f.w) && y >= 0 && y < float64(f.h)
}

func testConfig(t *testing.T, count int, extra string) *config.Config {
	t.Helper()
	doc := fmt.Sprintf("screen:\n  width: 64\n  height: 48\nfield:\n  octaves: 4\nparticles:\n  count: %d\n%s", count, extra)
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config, seed int64, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(seed))), WithLogger(quiet)}, opts...)
	s, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestThreeParticleScenario(t *testing.T) {
	cfg := testConfig(t, 3, "")
	s := newTestSim(t, cfg, 1, WithField(constField{v: 0.5, w: 64, h: 48}))

	start := []components.Particle{
		components.NewParticle(0, 0, 0, 0),
		components.NewParticle(10, 10, 0, 0),
		components.NewParticle(20, 20, 0, 0),
	}
	s.SetParticles(start)
	s.Tick()

	got := s.Particles(nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 particles, got %d", len(got))
	}
	for i, p := range got {
		if p.Pos != start[i].Pos {
			t.Errorf("particle %d moved from %v to %v", i, start[i].Pos, p.Pos)
		}
		if math.Abs(p.Vel.X-0.475) > eps || math.Abs(p.Vel.Y-0.475) > eps {
			t.Errorf("particle %d velocity = %v, want (0.475, 0.475)", i, p.Vel)
		}
		if p.Acc != (components.Vector2{}) {
			t.Errorf("particle %d acceleration = %v, want zero", i, p.Acc)
		}
	}
}

func TestSeeding(t *testing.T) {
	cfg := testConfig(t, 500, "")
	s := newTestSim(t, cfg, 2)

	if s.Count() != 500 {
		t.Fatalf("expected 500 particles, got %d", s.Count())
	}

	centre := components.Vector2{X: 32, Y: 24}
	for i, p := range s.Particles(nil) {
		wantR := math.Abs(math.Sin(float64(i) * math.Pi / 180 / 1000))
		if d := p.Pos.DistanceTo(centre); math.Abs(d-wantR) > eps {
			t.Fatalf("particle %d at radius %f, want %f", i, d, wantR)
		}
		if speed := p.Vel.Mag(); speed > 1+eps {
			t.Fatalf("particle %d speed %f outside [0, 1)", i, speed)
		}
	}
}

func TestSeedingDeterministic(t *testing.T) {
	cfg := testConfig(t, 200, "")
	a := newTestSim(t, cfg, 42)
	b := newTestSim(t, cfg, 42)

	pa, pb := a.Particles(nil), b.Particles(nil)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("particle %d differs: %v vs %v", i, pa[i], pb[i])
		}
	}

	fa := a.Field().(*systems.NoiseField)
	fb := b.Field().(*systems.NoiseField)
	if !bytes.Equal(fa.Bytes(), fb.Bytes()) {
		t.Error("same seed produced different fields")
	}
}

func TestTickDrawsOnSurface(t *testing.T) {
	cfg := testConfig(t, 100, "")
	s := newTestSim(t, cfg, 3)

	fresh := append([]byte(nil), s.Surface().Image().Pix...)
	s.Tick()
	if bytes.Equal(fresh, s.Surface().Image().Pix) {
		t.Error("tick did not mark the surface")
	}
	if s.Ticks() != 1 {
		t.Errorf("expected 1 tick, got %d", s.Ticks())
	}
}

func TestTickDrawsConfiguredMarkSize(t *testing.T) {
	cfg := testConfig(t, 1, "")
	cfg.Particles.MarkSize = 3
	s := newTestSim(t, cfg, 3, WithField(constField{v: 0, w: 64, h: 48}))
	s.SetParticles([]components.Particle{components.NewParticle(10, 10, 0, 0)})

	bg := s.Surface().At(0, 0)
	s.Tick()

	for _, pt := range [][2]int{{10, 10}, {12, 12}} {
		if s.Surface().At(pt[0], pt[1]) == bg {
			t.Errorf("pixel %v not marked", pt)
		}
	}
	for _, pt := range [][2]int{{9, 10}, {13, 12}, {12, 13}} {
		if s.Surface().At(pt[0], pt[1]) != bg {
			t.Errorf("pixel %v outside the mark was painted", pt)
		}
	}
}

func TestRegenerate(t *testing.T) {
	cfg := testConfig(t, 250, "")
	s := newTestSim(t, cfg, 4)
	s.Start()

	for i := 0; i < 10; i++ {
		s.Tick()
	}
	before := s.Particles(nil)

	s.Regenerate()

	if s.Count() != 250 {
		t.Errorf("expected 250 particles after regenerate, got %d", s.Count())
	}
	if !s.Running() {
		t.Error("expected Running after regenerate")
	}
	if s.Regenerations() != 1 {
		t.Errorf("expected 1 regeneration, got %d", s.Regenerations())
	}

	after := s.Particles(nil)
	if len(after) != len(before) {
		t.Fatalf("population size changed from %d to %d", len(before), len(after))
	}
	if after[100] == before[100] {
		t.Error("regenerate kept prior particle state")
	}

	clean, err := raster.NewSurfaceFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewSurfaceFromConfig failed: %v", err)
	}
	if !bytes.Equal(clean.Image().Pix, s.Surface().Image().Pix) {
		t.Error("surface after regenerate differs from a fresh clear")
	}
}

func TestRegenerateFromPausedKeepsOneFrame(t *testing.T) {
	q := NewFrameQueue()
	cfg := testConfig(t, 10, "")
	s := newTestSim(t, cfg, 5, WithScheduler(q))

	s.Start()
	s.TogglePauseResume()
	s.Regenerate()
	if q.Pending() != 1 {
		t.Errorf("expected exactly 1 pending frame, got %d", q.Pending())
	}
}

func TestPauseCancelsNextFrame(t *testing.T) {
	q := NewFrameQueue()
	cfg := testConfig(t, 10, "")
	s := newTestSim(t, cfg, 6, WithScheduler(q))

	if s.Running() || q.Pending() != 0 {
		t.Fatal("new simulation should be paused with nothing scheduled")
	}

	s.Start()
	if q.Pending() != 1 {
		t.Fatalf("expected 1 pending frame after Start, got %d", q.Pending())
	}

	q.Pump(16 * time.Millisecond)
	if s.Ticks() != 1 || q.Pending() != 1 {
		t.Fatalf("after one pump: ticks=%d pending=%d", s.Ticks(), q.Pending())
	}
	if s.LastFrame() != 16*time.Millisecond {
		t.Errorf("last frame = %v", s.LastFrame())
	}

	s.TogglePauseResume()
	if s.State() != Paused || q.Pending() != 0 {
		t.Fatalf("pause left state=%v pending=%d", s.State(), q.Pending())
	}
	if n := q.Pump(32 * time.Millisecond); n != 0 || s.Ticks() != 1 {
		t.Errorf("paused simulation ticked: ran=%d ticks=%d", n, s.Ticks())
	}

	s.TogglePauseResume()
	q.Pump(48 * time.Millisecond)
	if s.Ticks() != 2 {
		t.Errorf("resume did not tick: ticks=%d", s.Ticks())
	}
}

// pauseOnDraw pauses the simulation when the draw phase starts.
type pauseOnDraw struct {
	s      *Simulation
	phases []string
}

func (p *pauseOnDraw) StartPhase(phase string) {
	p.phases = append(p.phases, phase)
	if phase == PhaseDraw && p.s.Running() {
		p.s.TogglePauseResume()
	}
}

func TestInFlightTickCompletes(t *testing.T) {
	q := NewFrameQueue()
	timer := &pauseOnDraw{}
	cfg := testConfig(t, 20, "")
	s := newTestSim(t, cfg, 7, WithScheduler(q), WithPhaseTimer(timer))
	timer.s = s

	s.Start()
	fresh := append([]byte(nil), s.Surface().Image().Pix...)
	q.Pump(0)

	if s.Ticks() != 1 {
		t.Errorf("in-flight tick did not complete: ticks=%d", s.Ticks())
	}
	if bytes.Equal(fresh, s.Surface().Image().Pix) {
		t.Error("in-flight tick did not draw")
	}
	if s.Running() || q.Pending() != 0 {
		t.Errorf("pause during tick left running=%v pending=%d", s.Running(), q.Pending())
	}
	if len(timer.phases) != 2 || timer.phases[0] != PhaseUpdate || timer.phases[1] != PhaseDraw {
		t.Errorf("unexpected phases %v", timer.phases)
	}
}

// flipOnDraw pauses and immediately resumes the simulation the first time
// the draw phase starts.
type flipOnDraw struct {
	s    *Simulation
	done bool
}

func (f *flipOnDraw) StartPhase(phase string) {
	if phase == PhaseDraw && !f.done {
		f.done = true
		f.s.TogglePauseResume()
		f.s.TogglePauseResume()
	}
}

func TestResumeDuringTickKeepsOneFrame(t *testing.T) {
	q := NewFrameQueue()
	timer := &flipOnDraw{}
	cfg := testConfig(t, 10, "")
	s := newTestSim(t, cfg, 11, WithScheduler(q), WithPhaseTimer(timer))
	timer.s = s

	s.Start()
	q.Pump(0)
	if !s.Running() || q.Pending() != 1 {
		t.Fatalf("after pause and resume mid-tick: running=%v pending=%d", s.Running(), q.Pending())
	}

	q.Pump(16 * time.Millisecond)
	if s.Ticks() != 2 || q.Pending() != 1 {
		t.Fatalf("after two pumps: ticks=%d pending=%d, want 2 and 1", s.Ticks(), q.Pending())
	}

	s.TogglePauseResume()
	if n := q.Pump(32 * time.Millisecond); n != 0 || s.Ticks() != 2 {
		t.Errorf("paused simulation ticked: ran=%d ticks=%d", n, s.Ticks())
	}
}

// regenerateOnDraw regenerates the simulation the first time the draw phase starts.
type regenerateOnDraw struct {
	s    *Simulation
	done bool
}

func (r *regenerateOnDraw) StartPhase(phase string) {
	if phase == PhaseDraw && !r.done {
		r.done = true
		r.s.Regenerate()
	}
}

func TestRegenerateDuringTickKeepsOneFrame(t *testing.T) {
	q := NewFrameQueue()
	timer := &regenerateOnDraw{}
	cfg := testConfig(t, 10, "")
	s := newTestSim(t, cfg, 12, WithScheduler(q), WithPhaseTimer(timer))
	timer.s = s

	s.Start()
	q.Pump(0)
	if s.Regenerations() != 1 || q.Pending() != 1 {
		t.Fatalf("regenerate mid-tick: regenerations=%d pending=%d", s.Regenerations(), q.Pending())
	}

	s.TogglePauseResume()
	if n := q.Pump(16 * time.Millisecond); n != 0 || s.Ticks() != 1 {
		t.Errorf("paused simulation ticked: ran=%d ticks=%d", n, s.Ticks())
	}
}

func TestPress(t *testing.T) {
	q := NewFrameQueue()
	cfg := testConfig(t, 30, "")
	s := newTestSim(t, cfg, 8, WithScheduler(q))

	s.Start()
	q.Pump(0)

	s.Press()
	if s.Running() || s.Regenerations() != 0 {
		t.Fatalf("first press: running=%v regenerations=%d", s.Running(), s.Regenerations())
	}

	s.Press()
	if !s.Running() || s.Regenerations() != 1 {
		t.Fatalf("second press: running=%v regenerations=%d", s.Running(), s.Regenerations())
	}
	if s.Count() != 30 || q.Pending() != 1 {
		t.Errorf("after regenerate: count=%d pending=%d", s.Count(), q.Pending())
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	cfg := testConfig(t, 3000, "sim:\n  parallel_threshold: 16\n")

	serial := newTestSim(t, cfg, 9, WithWorkers(1))
	parallel := newTestSim(t, cfg, 9, WithWorkers(4))

	for i := 0; i < 5; i++ {
		serial.Tick()
		parallel.Tick()
	}

	ps, pp := serial.Particles(nil), parallel.Particles(nil)
	for i := range ps {
		if ps[i] != pp[i] {
			t.Fatalf("particle %d: serial %v, parallel %v", i, ps[i], pp[i])
		}
	}
	if !bytes.Equal(serial.Surface().Image().Pix, parallel.Surface().Image().Pix) {
		t.Error("serial and parallel surfaces differ")
	}
}

func TestParticlesStayFinite(t *testing.T) {
	cfg := testConfig(t, 400, "")
	cfg.Field.Edge = config.EdgeClamp
	s := newTestSim(t, cfg, 10)

	for i := 0; i < 300; i++ {
		s.Tick()
	}
	for i, p := range s.Particles(nil) {
		if math.IsNaN(p.Pos.X) || math.IsNaN(p.Pos.Y) || math.IsNaN(p.Vel.X) || math.IsNaN(p.Vel.Y) {
			t.Fatalf("particle %d became NaN: %+v", i, p)
		}
		// Each tick adds at most MaxSample per axis and then damps, so speed stays bounded.
		if math.Abs(p.Vel.X) > 20 || math.Abs(p.Vel.Y) > 20 {
			t.Fatalf("particle %d velocity unbounded: %v", i, p.Vel)
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Particles.Count = 0
	if _, err := New(cfg, WithLogger(quiet)); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid for zero particles, got %v", err)
	}

	cfg = config.Default()
	cfg.Screen.Width, cfg.Screen.Height = 32, 32
	cfg.Derived.FieldWidth, cfg.Derived.FieldHeight = 32, 32
	cfg.Particles.Count = 1
	cfg.Field.Octaves = 0
	if _, err := New(cfg, WithLogger(quiet)); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid for zero octaves, got %v", err)
	}
}
