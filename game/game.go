// Package game wires the particle simulation to a window, input and telemetry.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/drift/components"
	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/renderer"
	"github.com/pthm-cable/drift/sim"
	"github.com/pthm-cable/drift/telemetry"
	"github.com/pthm-cable/drift/ui"
)

// Maximum ticks per Update selectable with the < > keys.
const maxStepsPerUpdate = 10

// Options configures game initialization.
type Options struct {
	Seed           int64
	LogStats       bool   // Log telemetry windows via slog
	OutputDir      string // CSV logs, config snapshot and frames ("" = disabled)
	Headless       bool   // No window, input or GPU resources
	StepsPerUpdate int    // Ticks per Update call
	FrameEvery     int    // Save a PNG every N ticks (0 = final frame only)
}

// Game holds the complete application state.
type Game struct {
	cfg    *config.Config
	rng    *rand.Rand
	sim    *sim.Simulation
	frames *sim.FrameQueue

	// Rendering (nil in headless mode)
	presenter *renderer.SurfacePresenter
	hud       *ui.HUD
	controls  *ui.ControlsPanel

	screenWidth, screenHeight float32

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	lastStats     telemetry.WindowStats
	particleBuf   []components.Particle
	logStats      bool

	headless       bool
	stepsPerUpdate int
	frameEvery     uint64
	lastSaved      uint64

	// Frame timestamps: wall clock when windowed, fixed steps when headless
	start     time.Time
	clock     time.Duration
	frameStep time.Duration
}

// NewGameWithOptions creates the simulation and its supporting telemetry.
// Graphical mode must be called after the raylib window is created.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()

	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}
	var frameEvery uint64
	if opts.FrameEvery > 0 {
		frameEvery = uint64(opts.FrameEvery)
	}
	frameStep := time.Second / 60
	if cfg.Screen.TargetFPS > 0 {
		frameStep = time.Second / time.Duration(cfg.Screen.TargetFPS)
	}

	g := &Game{
		cfg:            cfg,
		rng:            rand.New(rand.NewSource(opts.Seed)),
		frames:         sim.NewFrameQueue(),
		screenWidth:    float32(cfg.Screen.Width),
		screenHeight:   float32(cfg.Screen.Height),
		collector:      telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Screen.TargetFPS),
		perfCollector:  telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		logStats:       opts.LogStats,
		headless:       opts.Headless,
		stepsPerUpdate: steps,
		frameEvery:     frameEvery,
		start:          time.Now(),
		frameStep:      frameStep,
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}
	g.outputManager = om

	s, err := sim.New(cfg,
		sim.WithRand(g.rng),
		sim.WithScheduler(g.frames),
		sim.WithPhaseTimer(g.perfCollector),
		sim.WithLogger(slog.Default().With("component", "sim")),
	)
	if err != nil {
		om.Close()
		return nil, fmt.Errorf("creating simulation: %w", err)
	}
	g.sim = s

	if !g.headless {
		g.presenter = renderer.NewSurfacePresenter(int32(cfg.Screen.Width), int32(cfg.Screen.Height))
		g.presenter.Init(s.Surface().Width(), s.Surface().Height())
		g.hud = ui.NewHUD(10, 10, 260)
		g.controls = ui.NewControlsPanel(10, float32(10+g.hud.Height()+8))
	}

	field := s.Field()
	slog.Info("simulation created",
		"particles", s.Count(),
		"field_width", field.Width(),
		"field_height", field.Height(),
		"octaves", cfg.Field.Octaves,
		"source", cfg.Field.Source,
		"edge", cfg.Field.Edge,
		"output_dir", om.Dir(),
	)

	s.Start()
	return g, nil
}

// Update handles input and advances the simulation (graphical mode).
func (g *Game) Update() {
	g.handleInput()
	g.step()
}

// UpdateHeadless advances the simulation without reading input.
func (g *Game) UpdateHeadless() {
	g.step()
}

// step pumps the frame queue up to stepsPerUpdate times. A paused
// simulation has no pending frame, so nothing is pumped or timed.
func (g *Game) step() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		if g.frames.Pending() == 0 {
			return
		}
		g.perfCollector.StartTick()
		g.frames.Pump(g.now())

		g.perfCollector.StartPhase(telemetry.PhasePresent)
		last := i == g.stepsPerUpdate-1 || !g.sim.Running()
		g.present(last)

		g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
		g.flushTelemetry()

		g.perfCollector.EndTick()
	}
}

// now returns the timestamp handed to the next frame callback.
func (g *Game) now() time.Duration {
	if g.headless {
		g.clock += g.frameStep
		return g.clock
	}
	return time.Since(g.start)
}

// present publishes the surface after a tick: frame dumps when due, and a
// texture upload for the last tick of an update in graphical mode.
func (g *Game) present(last bool) {
	tick := g.sim.Ticks()
	if g.frameEvery > 0 && tick%g.frameEvery == 0 {
		g.saveFrame(tick)
	}
	if last && g.presenter != nil {
		g.presenter.Upload(g.sim.Surface())
	}
}

// saveFrame writes the surface as a PNG into the output directory.
func (g *Game) saveFrame(tick uint64) {
	path := g.outputManager.FramePath(tick)
	if path == "" {
		return
	}
	if err := g.sim.Surface().SavePNG(path); err != nil {
		slog.Error("failed to save frame", "path", path, "error", err)
		return
	}
	g.lastSaved = tick
}

// togglePause pauses or resumes the animation.
func (g *Game) togglePause() {
	g.sim.TogglePauseResume()
	if !g.sim.Running() {
		g.collector.RecordPause()
	}
}

// regenerate reseeds the population and field.
func (g *Game) regenerate() {
	g.sim.Regenerate()
	g.collector.RecordRegeneration()
	g.uploadSurface()
}

// press applies the single pointer control.
func (g *Game) press() {
	wasRunning := g.sim.Running()
	g.sim.Press()
	if wasRunning {
		g.collector.RecordPause()
		return
	}
	g.collector.RecordRegeneration()
	g.uploadSurface()
}

// uploadSurface refreshes the texture outside of a tick, so a freshly
// cleared surface shows before the next frame runs.
func (g *Game) uploadSurface() {
	if g.presenter != nil {
		g.presenter.Upload(g.sim.Surface())
	}
}

// Draw renders the current frame.
func (g *Game) Draw() {
	g.perfCollector.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.presenter.Draw()
	g.drawUI()

	rl.EndDrawing()
}

// drawUI renders the HUD and the on-screen buttons.
func (g *Game) drawUI() {
	g.hud.Draw(ui.HUDData{
		Title:          "Drift",
		Particles:      g.sim.Count(),
		Tick:           g.sim.Ticks(),
		Regenerations:  g.sim.Regenerations(),
		StepsPerUpdate: g.stepsPerUpdate,
		FPS:            rl.GetFPS(),
		Paused:         !g.sim.Running(),
		SpeedMean:      g.lastStats.SpeedMean,
		OutOfFieldFrac: g.lastStats.OutOfFieldFrac,
	})

	switch g.controls.Draw(!g.sim.Running()) {
	case ui.ActionTogglePause:
		g.togglePause()
	case ui.ActionRegenerate:
		g.regenerate()
	}

	g.hud.DrawControls(int32(g.screenHeight), "Click: pause / regenerate | Space: pause | R: regenerate | < >: speed | F11: fullscreen")
}

// Unload saves the final frame and releases resources.
func (g *Game) Unload() {
	if tick := g.sim.Ticks(); tick > 0 && tick != g.lastSaved {
		g.saveFrame(tick)
	}
	g.sim.Close()
	if g.presenter != nil {
		g.presenter.Unload()
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Tick returns the number of completed simulation ticks.
func (g *Game) Tick() uint64 {
	return g.sim.Ticks()
}
