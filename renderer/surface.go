// Package renderer presents simulation surfaces in a raylib window.
package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/drift/raster"
)

// SurfacePresenter uploads a software surface to a GPU texture and draws it
// stretched over the window.
type SurfacePresenter struct {
	tex        rl.Texture2D
	texW, texH int
	pixels     []color.RGBA

	screenW, screenH float32
	initialized      bool
}

// NewSurfacePresenter creates a presenter for a window of the given size.
func NewSurfacePresenter(screenW, screenH int32) *SurfacePresenter {
	return &SurfacePresenter{
		screenW: float32(screenW),
		screenH: float32(screenH),
	}
}

// Init creates the texture (must be called after raylib window is created).
func (p *SurfacePresenter) Init(w, h int) {
	if p.initialized && w == p.texW && h == p.texH {
		return
	}
	if p.initialized {
		rl.UnloadTexture(p.tex)
	}

	p.texW = w
	p.texH = h

	img := rl.GenImageColor(w, h, rl.Black)
	p.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(p.tex, rl.FilterPoint)
	rl.UnloadImage(img)

	p.initialized = true
}

// Resize updates the destination size.
func (p *SurfacePresenter) Resize(w, h float32) {
	p.screenW = w
	p.screenH = h
}

// Upload copies the surface pixels into the texture.
func (p *SurfacePresenter) Upload(s *raster.Surface) {
	p.Init(s.Width(), s.Height())
	p.pixels = s.Pixels(p.pixels)
	rl.UpdateTexture(p.tex, p.pixels)
}

// Draw renders the last uploaded surface.
func (p *SurfacePresenter) Draw() {
	if !p.initialized {
		return
	}
	srcRect := rl.Rectangle{X: 0, Y: 0, Width: float32(p.texW), Height: float32(p.texH)}
	dstRect := rl.Rectangle{X: 0, Y: 0, Width: p.screenW, Height: p.screenH}
	rl.DrawTexturePro(p.tex, srcRect, dstRect, rl.Vector2{}, 0, rl.White)
}

// Unload frees GPU resources.
func (p *SurfacePresenter) Unload() {
	if !p.initialized {
		return
	}
	rl.UnloadTexture(p.tex)
	p.initialized = false
}
