package systems

import (
	"fmt"
	"image"
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/drift/config"
)

// OctaveSource generates one octave raster. Alpha is always opaque.
type OctaveSource interface {
	Octave(w, h int) *image.RGBA
}

// WhiteOctaves fills every R, G and B byte with an independent uniform draw in [0, 255].
type WhiteOctaves struct {
	rng Rand
}

// NewWhiteOctaves creates a white-noise octave source.
func NewWhiteOctaves(rng Rand) *WhiteOctaves {
	return &WhiteOctaves{rng: rng}
}

// Octave returns a w by h raster of uniform random bytes.
func (s *WhiteOctaves) Octave(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = uint8(RandInt(s.rng, 0, 255))
		pix[i+1] = uint8(RandInt(s.rng, 0, 255))
		pix[i+2] = uint8(RandInt(s.rng, 0, 255))
		pix[i+3] = 255
	}
	return img
}

// SimplexOctaves fills each channel from its own OpenSimplex generator, giving
// a smooth octave instead of white noise.
type SimplexOctaves struct {
	noise [3]opensimplex.Noise
	scale float64
}

// NewSimplexOctaves seeds three simplex generators from rng. scale is the
// frequency in cycles per octave pixel.
func NewSimplexOctaves(rng Rand, scale float64) *SimplexOctaves {
	s := &SimplexOctaves{scale: scale}
	for ch := range s.noise {
		s.noise[ch] = opensimplex.New(rng.Int63())
	}
	return s
}

// Octave returns a w by h raster of simplex noise mapped to [0, 255].
func (s *SimplexOctaves) Octave(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			fx := float64(x) * s.scale
			fy := float64(y) * s.scale
			for ch := 0; ch < 3; ch++ {
				v := (s.noise[ch].Eval2(fx, fy) + 1) * 127.5
				row[x*4+ch] = uint8(math.Round(math.Max(0, math.Min(255, v))))
			}
			row[x*4+3] = 255
		}
	}
	return img
}

// NewOctaveSource returns the source named by cfg.Field.Source.
func NewOctaveSource(cfg *config.Config, rng Rand) (OctaveSource, error) {
	switch cfg.Field.Source {
	case config.SourceWhite:
		return NewWhiteOctaves(rng), nil
	case config.SourceSimplex:
		return NewSimplexOctaves(rng, cfg.Field.SimplexScale), nil
	case config.SourcePerlin:
		return NewPerlinOctaves(rng, cfg.Field.PerlinScale), nil
	default:
		return nil, fmt.Errorf("%w: unknown octave source %q", config.ErrInvalid, cfg.Field.Source)
	}
}
