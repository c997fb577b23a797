package systems

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/pthm-cable/drift/config"
)

// MinSample and MaxSample bound the values returned by NoiseField.Noise.
// The byte mapping divides by 127, so the top of the range sits slightly above 1.
const (
	MinSample = -1.0
	MaxSample = 255.0/127.0 - 1
)

// EdgePolicy decides which pixel a coordinate outside the raster reads.
type EdgePolicy uint8

const (
	// EdgeWrap tiles the field: coordinates are taken modulo the raster size.
	EdgeWrap EdgePolicy = iota
	// EdgeClamp reads the nearest edge pixel.
	EdgeClamp
)

// ParseEdgePolicy converts a config value into an EdgePolicy.
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch s {
	case config.EdgeWrap:
		return EdgeWrap, nil
	case config.EdgeClamp:
		return EdgeClamp, nil
	default:
		return 0, fmt.Errorf("%w: unknown edge policy %q", config.ErrInvalid, s)
	}
}

func (e EdgePolicy) String() string {
	if e == EdgeClamp {
		return config.EdgeClamp
	}
	return config.EdgeWrap
}

// OutOfRangeError reports a strict sample outside the field raster.
type OutOfRangeError struct {
	X, Y          float64
	Channel       int
	Width, Height int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("noise sample (%g, %g) channel %d outside %dx%d field",
		e.X, e.Y, e.Channel, e.Width, e.Height)
}

// NoiseFieldConfig holds the construction parameters of a NoiseField.
type NoiseFieldConfig struct {
	Width     int
	Height    int
	Octaves   int
	Smoothing bool
	Edge      EdgePolicy
}

// NoiseFieldConfigFrom extracts field parameters from the simulation config.
func NoiseFieldConfigFrom(cfg *config.Config) (NoiseFieldConfig, error) {
	edge, err := ParseEdgePolicy(cfg.Field.Edge)
	if err != nil {
		return NoiseFieldConfig{}, err
	}
	return NoiseFieldConfig{
		Width:     cfg.Derived.FieldWidth,
		Height:    cfg.Derived.FieldHeight,
		Octaves:   cfg.Field.Octaves,
		Smoothing: cfg.Field.Smoothing,
		Edge:      edge,
	}, nil
}

// NoiseField is a composite multi-octave RGBA raster sampled as a vector field.
// It is immutable after construction and safe for concurrent reads.
type NoiseField struct {
	width   int
	height  int
	octaves int
	edge    EdgePolicy
	samples []byte // RGBA interleaved, width*height*4
}

// NewNoiseField composites cfg.Octaves rasters from src. Octave i is generated at
// (width>>i, height>>i), stretched back to full size and added on top of an
// opaque black accumulator at opacity 1/octaves, saturating at 255.
func NewNoiseField(cfg NoiseFieldConfig, src OctaveSource) (*NoiseField, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: noise field size %dx%d", config.ErrInvalid, cfg.Width, cfg.Height)
	}
	if cfg.Octaves <= 0 {
		return nil, fmt.Errorf("%w: noise field needs at least one octave, got %d", config.ErrInvalid, cfg.Octaves)
	}

	w, h := cfg.Width, cfg.Height
	acc := make([]byte, w*h*4)
	for i := 3; i < len(acc); i += 4 {
		acc[i] = 255
	}

	var scaler draw.Interpolator = draw.NearestNeighbor
	if cfg.Smoothing {
		scaler = draw.BiLinear
	}

	alpha := 1.0 / float64(cfg.Octaves)
	full := image.Rect(0, 0, w, h)
	stretched := image.NewRGBA(full)

	for i := 0; i < cfg.Octaves; i++ {
		ow := max(1, w>>i)
		oh := max(1, h>>i)
		octave := src.Octave(ow, oh)

		layer := octave
		if ow != w || oh != h {
			scaler.Scale(stretched, full, octave, octave.Bounds(), draw.Src, nil)
			layer = stretched
		}
		addLighter(acc, layer.Pix, alpha)
	}

	return &NoiseField{
		width:   w,
		height:  h,
		octaves: cfg.Octaves,
		edge:    cfg.Edge,
		samples: acc,
	}, nil
}

// NewNoiseFieldFromSamples wraps an existing RGBA buffer. The buffer is copied.
func NewNoiseFieldFromSamples(w, h int, samples []byte, edge EdgePolicy) (*NoiseField, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: noise field size %dx%d", config.ErrInvalid, w, h)
	}
	if len(samples) != w*h*4 {
		return nil, fmt.Errorf("%w: expected %d sample bytes, got %d", config.ErrInvalid, w*h*4, len(samples))
	}
	buf := make([]byte, len(samples))
	copy(buf, samples)
	return &NoiseField{width: w, height: h, octaves: 1, edge: edge, samples: buf}, nil
}

// addLighter adds src (scaled by alpha) onto dst for the color channels,
// quantizing each octave to 8 bits the way a canvas composite does.
func addLighter(dst, src []byte, alpha float64) {
	for i := 0; i < len(dst); i += 4 {
		for c := 0; c < 3; c++ {
			v := int(dst[i+c]) + int(math.Round(float64(src[i+c])*alpha))
			if v > 255 {
				v = 255
			}
			dst[i+c] = byte(v)
		}
	}
}

// Width returns the raster width.
func (f *NoiseField) Width() int { return f.width }

// Height returns the raster height.
func (f *NoiseField) Height() int { return f.height }

// Octaves returns the number of composited octaves.
func (f *NoiseField) Octaves() int { return f.octaves }

// Edge returns the out-of-raster policy applied by Noise.
func (f *NoiseField) Edge() EdgePolicy { return f.edge }

// Noise samples channel ch at (x, y), mapping byte b to b/127 - 1.
// Coordinates are floored, then resolved with the field's edge policy.
func (f *NoiseField) Noise(x, y float64, ch int) float64 {
	if uint(ch) > 3 {
		panic(fmt.Sprintf("systems: noise channel %d out of range", ch))
	}
	xi := resolve(x, f.width, f.edge)
	yi := resolve(y, f.height, f.edge)
	return float64(f.samples[(yi*f.width+xi)*4+ch])/127 - 1
}

// At is the strict form of Noise: it returns an *OutOfRangeError instead of
// applying the edge policy.
func (f *NoiseField) At(x, y float64, ch int) (float64, error) {
	fx, fy := math.Floor(x), math.Floor(y)
	if ch < 0 || ch > 3 ||
		!(fx >= 0 && fx < float64(f.width)) ||
		!(fy >= 0 && fy < float64(f.height)) {
		return 0, &OutOfRangeError{X: x, Y: y, Channel: ch, Width: f.width, Height: f.height}
	}
	i := (int(fy)*f.width + int(fx)) * 4
	return float64(f.samples[i+ch])/127 - 1, nil
}

// InBounds reports whether (x, y) lies inside the raster without edge handling.
func (f *NoiseField) InBounds(x, y float64) bool {
	return x >= 0 && x < float64(f.width) && y >= 0 && y < float64(f.height)
}

// Bytes returns a copy of the composite RGBA buffer.
func (f *NoiseField) Bytes() []byte {
	out := make([]byte, len(f.samples))
	copy(out, f.samples)
	return out
}

// Image returns the composite as an image for previews.
func (f *NoiseField) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.width, f.height))
	copy(img.Pix, f.samples)
	return img
}

// resolve floors v and maps it into [0, n) with the given policy.
// Non-finite coordinates resolve to 0.
func resolve(v float64, n int, edge EdgePolicy) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	fv := math.Floor(v)
	if fv >= 0 && fv < float64(n) {
		return int(fv)
	}

	if edge == EdgeClamp {
		if fv < 0 {
			return 0
		}
		return n - 1
	}

	m := math.Mod(fv, float64(n))
	if m < 0 {
		m += float64(n)
	}
	i := int(m)
	if i >= n {
		// Mod can round up to n for huge negative inputs
		i = 0
	}
	return i
}

// BuildNoiseField constructs the field described by cfg using rng for the octaves.
func BuildNoiseField(cfg *config.Config, rng Rand) (*NoiseField, error) {
	fc, err := NoiseFieldConfigFrom(cfg)
	if err != nil {
		return nil, err
	}
	src, err := NewOctaveSource(cfg, rng)
	if err != nil {
		return nil, err
	}
	return NewNoiseField(fc, src)
}
