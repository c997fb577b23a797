// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Edge policies for noise sampling outside the field raster.
const (
	EdgeWrap  = "wrap"
	EdgeClamp = "clamp"
)

// Octave sources.
const (
	SourceWhite   = "white"
	SourceSimplex = "simplex"
	SourcePerlin  = "perlin"
)

// Blend modes for particle marks.
const (
	BlendOver     = "over"
	BlendAdditive = "additive"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Field     FieldConfig     `yaml:"field"`
	Particles ParticlesConfig `yaml:"particles"`
	Render    RenderConfig    `yaml:"render"`
	Sim       SimConfig       `yaml:"sim"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// FieldConfig holds noise field construction parameters.
type FieldConfig struct {
	Width        int     `yaml:"width"`         // Raster width (0 = screen width)
	Height       int     `yaml:"height"`        // Raster height (0 = screen height)
	Octaves      int     `yaml:"octaves"`       // Number of composited octaves
	Source       string  `yaml:"source"`        // Octave generator: white, simplex or perlin
	Smoothing    bool    `yaml:"smoothing"`     // Bilinear stretch (false = nearest)
	Edge         string  `yaml:"edge"`          // Out-of-raster policy: wrap or clamp
	SimplexScale float64 `yaml:"simplex_scale"` // Simplex frequency in cycles per octave pixel
	PerlinScale  float64 `yaml:"perlin_scale"`  // Perlin lattice cells per octave pixel
}

// ParticlesConfig holds population seeding and motion parameters.
type ParticlesConfig struct {
	Count    int     `yaml:"count"`     // Population size
	Spread   float64 `yaml:"spread"`    // Multiplier on the sin(i) seed radius
	Damping  float64 `yaml:"damping"`   // Per-tick velocity multiplier
	MarkSize float64 `yaml:"mark_size"` // Side length of a particle mark
}

// RenderConfig holds surface colors and blending.
type RenderConfig struct {
	Background string  `yaml:"background"`  // Hex color the surface is cleared to
	Trail      string  `yaml:"trail"`       // Hex color of particle marks
	TrailAlpha float64 `yaml:"trail_alpha"` // Opacity of each mark
	Blend      string  `yaml:"blend"`       // over or additive
}

// SimConfig holds tick execution parameters.
type SimConfig struct {
	Workers           int `yaml:"workers"`            // Update workers (0 = GOMAXPROCS)
	ParallelThreshold int `yaml:"parallel_threshold"` // Minimum particles for the worker pool
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // Ticks per stats window
	PerfWindow  int `yaml:"perf_window"`  // Ticks averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FieldWidth  int         // Effective field width
	FieldHeight int         // Effective field height
	Background  color.RGBA  // Parsed background
	Trail       color.NRGBA // Parsed trail color with TrailAlpha applied
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse merges the YAML document in data over the embedded defaults, validates
// the result and computes derived values. A nil document yields the defaults.
func Parse(data []byte) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Unmarshal into same struct - only overwrites fields present in the document
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Screen.Width <= 0 || c.Screen.Height <= 0:
		return fmt.Errorf("%w: screen size %dx%d", ErrInvalid, c.Screen.Width, c.Screen.Height)
	case c.Field.Width < 0 || c.Field.Height < 0:
		return fmt.Errorf("%w: field size %dx%d", ErrInvalid, c.Field.Width, c.Field.Height)
	case c.Field.Octaves <= 0:
		return fmt.Errorf("%w: field.octaves must be positive, got %d", ErrInvalid, c.Field.Octaves)
	case c.Field.Source != SourceWhite && c.Field.Source != SourceSimplex && c.Field.Source != SourcePerlin:
		return fmt.Errorf("%w: unknown field.source %q", ErrInvalid, c.Field.Source)
	case c.Field.Source == SourceSimplex && !(c.Field.SimplexScale > 0):
		return fmt.Errorf("%w: field.simplex_scale must be positive, got %v", ErrInvalid, c.Field.SimplexScale)
	case c.Field.Source == SourcePerlin && !(c.Field.PerlinScale > 0):
		return fmt.Errorf("%w: field.perlin_scale must be positive, got %v", ErrInvalid, c.Field.PerlinScale)
	case c.Field.Edge != EdgeWrap && c.Field.Edge != EdgeClamp:
		return fmt.Errorf("%w: unknown field.edge %q", ErrInvalid, c.Field.Edge)
	case c.Particles.Count <= 0:
		return fmt.Errorf("%w: particles.count must be positive, got %d", ErrInvalid, c.Particles.Count)
	case c.Particles.MarkSize <= 0:
		return fmt.Errorf("%w: particles.mark_size must be positive", ErrInvalid)
	case c.Particles.Damping < 0 || c.Particles.Damping > 1 || math.IsNaN(c.Particles.Damping):
		return fmt.Errorf("%w: particles.damping %v outside [0, 1]", ErrInvalid, c.Particles.Damping)
	case c.Render.TrailAlpha < 0 || c.Render.TrailAlpha > 1:
		return fmt.Errorf("%w: render.trail_alpha %v outside [0, 1]", ErrInvalid, c.Render.TrailAlpha)
	case c.Render.Blend != BlendOver && c.Render.Blend != BlendAdditive:
		return fmt.Errorf("%w: unknown render.blend %q", ErrInvalid, c.Render.Blend)
	case c.Sim.Workers < 0:
		return fmt.Errorf("%w: sim.workers must not be negative", ErrInvalid)
	case c.Telemetry.StatsWindow <= 0:
		return fmt.Errorf("%w: telemetry.stats_window must be positive", ErrInvalid)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	// Field dimensions default to screen size if not specified
	c.Derived.FieldWidth = c.Field.Width
	if c.Derived.FieldWidth == 0 {
		c.Derived.FieldWidth = c.Screen.Width
	}
	c.Derived.FieldHeight = c.Field.Height
	if c.Derived.FieldHeight == 0 {
		c.Derived.FieldHeight = c.Screen.Height
	}

	bg, err := parseHex(c.Render.Background)
	if err != nil {
		return fmt.Errorf("%w: render.background: %v", ErrInvalid, err)
	}
	c.Derived.Background = color.RGBA{R: bg.R, G: bg.G, B: bg.B, A: 255}

	trail, err := parseHex(c.Render.Trail)
	if err != nil {
		return fmt.Errorf("%w: render.trail: %v", ErrInvalid, err)
	}
	trail.A = uint8(math.Round(c.Render.TrailAlpha * 255))
	c.Derived.Trail = trail

	return nil
}

// parseHex converts "#rrggbb" (or "#rgb") to an opaque color.
func parseHex(s string) (color.NRGBA, error) {
	col, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
