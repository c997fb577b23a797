// Package raster provides the persistent software surface particles draw onto.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/pthm-cable/drift/config"
)

// BlendMode selects how FillRect combines the fill with existing pixels.
type BlendMode uint8

const (
	// BlendOver is straight source-over alpha compositing.
	BlendOver BlendMode = iota
	// BlendAdditive adds the alpha-weighted fill, saturating at 255.
	BlendAdditive
)

// ParseBlendMode converts a config value into a BlendMode.
func ParseBlendMode(s string) (BlendMode, error) {
	switch s {
	case config.BlendOver:
		return BlendOver, nil
	case config.BlendAdditive:
		return BlendAdditive, nil
	default:
		return 0, fmt.Errorf("%w: unknown blend mode %q", config.ErrInvalid, s)
	}
}

func (m BlendMode) String() string {
	if m == BlendAdditive {
		return config.BlendAdditive
	}
	return config.BlendOver
}

// Surface is an RGBA raster that keeps its content between frames.
// It is not safe for concurrent use; all drawing happens on the frame goroutine.
type Surface struct {
	img        *image.RGBA
	background color.RGBA
	fill       color.NRGBA
	blend      BlendMode
}

// NewSurface creates a w by h surface cleared to opaque black with an opaque white fill.
func NewSurface(w, h int) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: surface size %dx%d", config.ErrInvalid, w, h)
	}
	s := &Surface{
		img:        image.NewRGBA(image.Rect(0, 0, w, h)),
		background: color.RGBA{A: 255},
		fill:       color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
	s.Clear(s.background)
	return s, nil
}

// NewSurfaceFromConfig creates a screen-sized surface using the configured
// background, trail fill and blend mode.
func NewSurfaceFromConfig(cfg *config.Config) (*Surface, error) {
	s, err := NewSurface(cfg.Screen.Width, cfg.Screen.Height)
	if err != nil {
		return nil, err
	}
	blend, err := ParseBlendMode(cfg.Render.Blend)
	if err != nil {
		return nil, err
	}
	s.background = cfg.Derived.Background
	s.fill = cfg.Derived.Trail
	s.blend = blend
	s.Clear(s.background)
	return s, nil
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.img.Rect.Dx() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Background returns the color Reset clears to.
func (s *Surface) Background() color.RGBA { return s.background }

// Fill returns the current fill color.
func (s *Surface) Fill() color.NRGBA { return s.fill }

// Blend returns the current blend mode.
func (s *Surface) Blend() BlendMode { return s.blend }

// Clear paints every pixel with c.
func (s *Surface) Clear(c color.RGBA) {
	pix := s.img.Pix
	if len(pix) < 4 {
		return
	}
	pix[0], pix[1], pix[2], pix[3] = c.R, c.G, c.B, c.A
	// Doubling copy fills the rest of the buffer.
	for n := 4; n < len(pix); n *= 2 {
		copy(pix[n:], pix[:n])
	}
}

// Reset clears the surface to its background color.
func (s *Surface) Reset() {
	s.Clear(s.background)
}

// SetFill sets the color used by subsequent FillRect calls.
func (s *Surface) SetFill(c color.NRGBA) {
	s.fill = c
}

// SetBlend sets the blend mode used by subsequent FillRect calls.
func (s *Surface) SetBlend(m BlendMode) {
	s.blend = m
}

// FillRect blends the fill color over the pixels covered by the rectangle.
// The origin is floored to the pixel grid and the size rounded up; the part
// outside the surface is clipped and non-finite rectangles are dropped.
func (s *Surface) FillRect(x, y, w, h float64) {
	if !finite(x) || !finite(y) || !finite(w) || !finite(h) || w <= 0 || h <= 0 {
		return
	}
	sw, sh := float64(s.Width()), float64(s.Height())
	fx, fy := math.Floor(x), math.Floor(y)
	fx1, fy1 := fx+math.Ceil(w), fy+math.Ceil(h)
	if fx >= sw || fy >= sh || fx1 <= 0 || fy1 <= 0 {
		return
	}

	x0, y0 := int(math.Max(fx, 0)), int(math.Max(fy, 0))
	x1, y1 := int(math.Min(fx1, sw)), int(math.Min(fy1, sh))

	if s.fill.A == 0 {
		return
	}
	for py := y0; py < y1; py++ {
		row := s.img.Pix[py*s.img.Stride:]
		for px := x0; px < x1; px++ {
			s.blendPixel(row[px*4 : px*4+4])
		}
	}
}

// blendPixel composites the fill onto one RGBA pixel.
func (s *Surface) blendPixel(p []byte) {
	a := uint32(s.fill.A)
	src := [3]uint32{uint32(s.fill.R), uint32(s.fill.G), uint32(s.fill.B)}

	switch s.blend {
	case BlendAdditive:
		for c := 0; c < 3; c++ {
			v := uint32(p[c]) + (src[c]*a+127)/255
			if v > 255 {
				v = 255
			}
			p[c] = byte(v)
		}
		p[3] = byte(min(255, uint32(p[3])+a))
	default:
		ia := 255 - a
		for c := 0; c < 3; c++ {
			p[c] = byte((src[c]*a + uint32(p[c])*ia + 127) / 255)
		}
		p[3] = byte((255*a + uint32(p[3])*ia + 127) / 255)
	}
}

// At returns the pixel at (x, y).
func (s *Surface) At(x, y int) color.RGBA {
	return s.img.RGBAAt(x, y)
}

// Image returns the backing image. Callers must treat it as read-only.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Pixels copies the surface into dst (grown as needed) in the layout raylib
// texture uploads expect and returns it.
func (s *Surface) Pixels(dst []color.RGBA) []color.RGBA {
	n := s.Width() * s.Height()
	if cap(dst) < n {
		dst = make([]color.RGBA, n)
	}
	dst = dst[:n]
	pix := s.img.Pix
	for i := range dst {
		j := i * 4
		dst[i] = color.RGBA{R: pix[j], G: pix[j+1], B: pix[j+2], A: pix[j+3]}
	}
	return dst
}

// EncodePNG writes the surface as a PNG image.
func (s *Surface) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, s.img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// SavePNG writes the surface to a PNG file at path.
func (s *Surface) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := s.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
