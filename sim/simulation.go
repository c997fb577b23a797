// Package sim drives a particle population through a noise field.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/drift/components"
	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/raster"
	"github.com/pthm-cable/drift/systems"
)

// Phase names reported to a PhaseTimer during a tick.
const (
	PhaseUpdate = "update"
	PhaseDraw   = "draw"
)

// State is the animation state of a Simulation.
type State uint8

const (
	Paused State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "paused"
}

// Field is the vector field particles are advected through. Implementations
// must be safe for concurrent reads.
type Field interface {
	components.Sampler
	Width() int
	Height() int
	InBounds(x, y float64) bool
}

// PhaseTimer receives phase boundaries within a tick.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithField uses f instead of building a noise field from the config.
func WithField(f Field) Option {
	return func(s *Simulation) { s.field = f }
}

// WithRand sets the random source used to build the field and seed particles.
func WithRand(r systems.Rand) Option {
	return func(s *Simulation) { s.rng = r }
}

// WithScheduler sets the frame scheduler.
func WithScheduler(sched Scheduler) Option {
	return func(s *Simulation) { s.sched = sched }
}

// WithSurface sets the surface particles draw onto.
func WithSurface(surf *raster.Surface) Option {
	return func(s *Simulation) { s.surface = surf }
}

// WithWorkers overrides the configured number of update workers.
func WithWorkers(n int) Option {
	return func(s *Simulation) { s.workers = n }
}

// WithPhaseTimer reports update and draw phases to t.
func WithPhaseTimer(t PhaseTimer) Option {
	return func(s *Simulation) { s.timer = t }
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// Simulation owns the particle population, the noise field and the pause state.
// All methods must be called from the goroutine that pumps the scheduler.
type Simulation struct {
	cfg     *config.Config
	field   Field
	rng     systems.Rand
	sched   Scheduler
	surface *raster.Surface
	timer   PhaseTimer
	logger  *slog.Logger

	// ECS
	world          *ecs.World
	particleMap    *ecs.Map1[components.Particle]
	particleFilter *ecs.Filter1[components.Particle]
	entities       []ecs.Entity // population in draw order

	count    int
	spread   float64
	damping  float64
	markSize float64
	workers  int

	parallel *parallelState
	ownField bool // field built from cfg, rebuilt on Regenerate

	state   State
	pending FrameID
	frameFn FrameFunc

	ticks         uint64
	regenerations int
	lastFrame     time.Duration
}

// New creates a simulation from cfg, seeds the population and clears the
// surface. The simulation starts Paused; call Start to begin scheduling frames.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if cfg.Particles.Count <= 0 {
		return nil, fmt.Errorf("%w: particle count must be positive, got %d", config.ErrInvalid, cfg.Particles.Count)
	}

	s := &Simulation{
		cfg:      cfg,
		count:    cfg.Particles.Count,
		spread:   cfg.Particles.Spread,
		damping:  cfg.Particles.Damping,
		markSize: cfg.Particles.MarkSize,
		workers:  cfg.Sim.Workers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.sched == nil {
		s.sched = NewFrameQueue()
	}
	if s.field == nil {
		field, err := systems.BuildNoiseField(cfg, s.rng)
		if err != nil {
			return nil, fmt.Errorf("building noise field: %w", err)
		}
		s.field = field
		s.ownField = true
	}
	if s.surface == nil {
		surf, err := raster.NewSurfaceFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating surface: %w", err)
		}
		s.surface = surf
	}

	world := ecs.NewWorld()
	s.world = world
	s.particleMap = ecs.NewMap1[components.Particle](world)
	s.particleFilter = ecs.NewFilter1[components.Particle](world)
	s.entities = make([]ecs.Entity, 0, s.count)
	s.parallel = newParallelState(s.workers, cfg.Sim.ParallelThreshold)
	s.frameFn = s.onFrame

	s.populate()
	s.surface.Reset()

	return s, nil
}

// populate seeds count particles around the field centre.
//
// Particle i sits at radius spread*sin(i*pi/180/1000) in a uniform random
// direction and moves with a uniform random speed in [0, 1) in another uniform
// random direction. The draws per particle are taken in that order.
func (s *Simulation) populate() {
	cx := float64(s.field.Width()) / 2
	cy := float64(s.field.Height()) / 2

	for i := 0; i < s.count; i++ {
		rad := float64(i) * math.Pi / 180 / 1000
		r1 := s.spread * math.Sin(rad)
		a1 := systems.RandRange(s.rng, 0, 2*math.Pi)
		r2 := systems.RandRange(s.rng, 0, 1)
		a2 := systems.RandRange(s.rng, 0, 2*math.Pi)

		pos := components.FromPolar(r1, a1)
		pos.Add(components.Vector2{X: cx, Y: cy})
		vel := components.FromPolar(r2, a2)

		p := components.NewParticle(pos.X, pos.Y, vel.X, vel.Y)
		s.entities = append(s.entities, s.particleMap.NewEntity(&p))
	}
}

// SetParticles replaces the population with ps, in order. The surface is not
// touched. Intended for tools and tests that need exact initial conditions.
func (s *Simulation) SetParticles(ps []components.Particle) {
	s.removeAll()
	for i := range ps {
		p := ps[i]
		s.entities = append(s.entities, s.particleMap.NewEntity(&p))
	}
}

func (s *Simulation) removeAll() {
	for _, e := range s.entities {
		if s.world.Alive(e) {
			s.world.RemoveEntity(e)
		}
	}
	s.entities = s.entities[:0]
}

// Start moves a paused simulation to Running and requests the first frame.
func (s *Simulation) Start() {
	if s.state == Running {
		return
	}
	s.state = Running
	s.pending = s.sched.RequestFrame(s.frameFn)
}

// TogglePauseResume pauses a running simulation by cancelling its next
// scheduled frame, or resumes a paused one by requesting a new frame.
// A tick that is already executing always completes.
func (s *Simulation) TogglePauseResume() {
	if s.state == Running {
		s.pause()
		s.logger.Info("paused", "tick", s.ticks)
		return
	}
	s.Start()
	s.logger.Info("resumed", "tick", s.ticks)
}

func (s *Simulation) pause() {
	s.state = Paused
	if s.pending != 0 {
		s.sched.CancelFrame(s.pending)
		s.pending = 0
	}
}

// Regenerate discards every particle, seeds a fresh population of the
// configured size, clears the surface once and leaves the simulation Running.
// A field built from the config is rebuilt from the random source as well;
// an injected field is kept.
func (s *Simulation) Regenerate() {
	s.pause()
	if s.ownField {
		field, err := systems.BuildNoiseField(s.cfg, s.rng)
		if err != nil {
			s.logger.Error("rebuilding noise field", "error", err)
		} else {
			s.field = field
		}
	}
	s.removeAll()
	s.populate()
	s.surface.Reset()
	s.regenerations++
	s.logger.Info("regenerated", "particles", len(s.entities), "regenerations", s.regenerations)
	s.Start()
}

// Press applies the single pointer control: a running simulation pauses,
// a paused one regenerates.
func (s *Simulation) Press() {
	if s.state == Running {
		s.TogglePauseResume()
		return
	}
	s.Regenerate()
}

// onFrame is the scheduled frame callback. Only a running simulation ticks,
// and at most one continuation is ever pending: a resume or regenerate during
// the tick has already requested it.
func (s *Simulation) onFrame(ts time.Duration) {
	s.pending = 0
	if s.state != Running {
		return
	}
	s.lastFrame = ts
	s.Tick()
	if s.state == Running && s.pending == 0 {
		s.pending = s.sched.RequestFrame(s.frameFn)
	}
}

// Tick runs one frame synchronously: every particle is updated, then every
// particle is drawn in population order.
func (s *Simulation) Tick() {
	if s.timer != nil {
		s.timer.StartPhase(PhaseUpdate)
	}
	s.updateParticles()

	if s.timer != nil {
		s.timer.StartPhase(PhaseDraw)
	}
	s.drawParticles()

	s.ticks++
}

func (s *Simulation) drawParticles() {
	for _, e := range s.entities {
		if p := s.particleMap.Get(e); p != nil {
			p.Draw(s.surface, s.markSize)
		}
	}
}

// State returns the current animation state.
func (s *Simulation) State() State { return s.state }

// Running reports whether frames are being scheduled.
func (s *Simulation) Running() bool { return s.state == Running }

// Count returns the number of live particles.
func (s *Simulation) Count() int {
	n := 0
	query := s.particleFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// Ticks returns the number of completed ticks.
func (s *Simulation) Ticks() uint64 { return s.ticks }

// Regenerations returns how many times the population was regenerated.
func (s *Simulation) Regenerations() int { return s.regenerations }

// LastFrame returns the timestamp of the most recent scheduled frame.
func (s *Simulation) LastFrame() time.Duration { return s.lastFrame }

// Field returns the field particles are advected through.
func (s *Simulation) Field() Field { return s.field }

// Surface returns the surface particles draw onto.
func (s *Simulation) Surface() *raster.Surface { return s.surface }

// Particles appends a copy of the population, in draw order, to dst.
func (s *Simulation) Particles(dst []components.Particle) []components.Particle {
	for _, e := range s.entities {
		if p := s.particleMap.Get(e); p != nil {
			dst = append(dst, *p)
		}
	}
	return dst
}

// Close pauses the simulation and stops the update workers.
func (s *Simulation) Close() {
	s.pause()
	s.parallel.stopWorkers()
}
