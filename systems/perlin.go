package systems

import (
	"image"
	"math"
)

// PerlinOctaves fills each channel from an improved-Perlin lattice. The three
// channels are independent slices of one 3D lattice, one unit apart in z.
type PerlinOctaves struct {
	perm  [512]int
	scale float64
}

// NewPerlinOctaves shuffles the permutation table with rng. scale is the
// frequency in lattice cells per octave pixel.
func NewPerlinOctaves(rng Rand, scale float64) *PerlinOctaves {
	p := &PerlinOctaves{scale: scale}

	var perm [256]int
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	for i := 0; i < 256; i++ {
		p.perm[i] = perm[i]
		p.perm[i+256] = perm[i]
	}
	return p
}

// Octave returns a w by h raster of Perlin noise mapped to [0, 255].
func (p *PerlinOctaves) Octave(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		fy := (float64(y) + 0.5) * p.scale
		for x := 0; x < w; x++ {
			fx := (float64(x) + 0.5) * p.scale
			for ch := 0; ch < 3; ch++ {
				// Improved Perlin stays within about [-1, 1]
				v := (p.Noise3D(fx, fy, float64(ch)+0.5) + 1) * 127.5
				row[x*4+ch] = uint8(math.Round(math.Max(0, math.Min(255, v))))
			}
			row[x*4+3] = 255
		}
	}
	return img
}

// Noise3D returns the lattice value at (x, y, z).
func (p *PerlinOctaves) Noise3D(x, y, z float64) float64 {
	// Find unit cube
	X := int(math.Floor(x)) & 255
	Y := int(math.Floor(y)) & 255
	Z := int(math.Floor(z)) & 255

	// Relative position in cube
	x -= math.Floor(x)
	y -= math.Floor(y)
	z -= math.Floor(z)

	u := fade(x)
	v := fade(y)
	w := fade(z)

	// Hash coordinates of cube corners
	A := p.perm[X] + Y
	AA := p.perm[A] + Z
	AB := p.perm[A+1] + Z
	B := p.perm[X+1] + Y
	BA := p.perm[B] + Z
	BB := p.perm[B+1] + Z

	return lerp(w, lerp(v, lerp(u, grad3D(p.perm[AA], x, y, z),
		grad3D(p.perm[BA], x-1, y, z)),
		lerp(u, grad3D(p.perm[AB], x, y-1, z),
			grad3D(p.perm[BB], x-1, y-1, z))),
		lerp(v, lerp(u, grad3D(p.perm[AA+1], x, y, z-1),
			grad3D(p.perm[BA+1], x-1, y, z-1)),
			lerp(u, grad3D(p.perm[AB+1], x, y-1, z-1),
				grad3D(p.perm[BB+1], x-1, y-1, z-1))))
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad3D(hash int, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	v := y
	if h >= 4 {
		if h == 12 || h == 14 {
			v = x
		} else {
			v = z
		}
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
