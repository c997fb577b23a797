// Noise field preview tool - interactive visualization with sliders.
//
// Usage: go run ./cmd/noisepreview
package main

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"
	gui "github.com/gen2brain/raylib-go/raygui"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/systems"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
	fieldSize    = 256
	arrowGrid    = 16
)

// Channel views
const (
	viewComposite = iota
	viewRed
	viewGreen
	viewBlue
	viewCount
)

var viewNames = [viewCount]string{"RGB", "R (dx)", "G (dy)", "B"}

// FieldParams holds the noise field construction parameters.
type FieldParams struct {
	Octaves   int
	Source    string
	Smoothing bool
	Clamp     bool
	Scale     float32 // Simplex or Perlin frequency
	Seed      int64
}

var sources = []string{config.SourceWhite, config.SourceSimplex, config.SourcePerlin}

func defaultParams() FieldParams {
	return FieldParams{
		Octaves:   8,
		Source:    config.SourceWhite,
		Smoothing: true,
		Scale:     0.05,
		Seed:      12345,
	}
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Noise Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := defaultParams()
	view := viewComposite
	showArrows := true

	// Create texture for rendering
	img := rl.GenImageColor(fieldSize, fieldSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	var field *systems.NoiseField
	var mean [2]float64
	var magMax float64
	needsRegen := true
	needsUpload := false

	for !rl.WindowShouldClose() {
		if needsRegen {
			f, err := buildField(params)
			if err != nil {
				slog.Error("building noise field", "error", err)
			} else {
				field = f
				mean, magMax = vectorStats(field)
				needsUpload = true
			}
			needsRegen = false
		}
		if needsUpload && field != nil {
			updateTexture(texture, field.Image(), view)
			needsUpload = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		// Draw preview
		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: fieldSize, Height: fieldSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)
		if showArrows && field != nil {
			drawArrows(field)
		}

		// Draw stats
		statsY := int32(previewSize + 25)
		if field != nil {
			rl.DrawText(fmt.Sprintf("Mean vector: (%.3f, %.3f)  Max |v|: %.3f", mean[0], mean[1], magMax), 15, statsY, 16, rl.DarkGray)
		}
		rl.DrawText(fmt.Sprintf("View: %s", viewNames[view]), 15, statsY+20, 16, rl.DarkGray)

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Noise Field Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		// Octaves slider
		rl.DrawText("Octaves (composited layers)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newOctaves := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"1", "10",
			float32(params.Octaves), 1, 10,
		)
		rl.DrawText(fmt.Sprintf("%d", params.Octaves), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if int(newOctaves) != params.Octaves {
			params.Octaves = int(newOctaves)
			needsRegen = true
		}
		panelY += 35

		// Scale slider (simplex and perlin sources)
		rl.DrawText("Scale (cycles per octave pixel)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newScale := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0.005", "0.5",
			params.Scale, 0.005, 0.5,
		)
		rl.DrawText(fmt.Sprintf("%.3f", params.Scale), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newScale != params.Scale {
			params.Scale = newScale
			if params.Source != config.SourceWhite {
				needsRegen = true
			}
		}
		panelY += 35

		// Seed slider
		rl.DrawText("Seed", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newSeed := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "99999",
			float32(params.Seed), 0, 99999,
		)
		rl.DrawText(fmt.Sprintf("%d", params.Seed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if int64(newSeed) != params.Seed {
			params.Seed = int64(newSeed)
			needsRegen = true
		}
		panelY += 45

		// Buttons
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Source: "+params.Source) {
			params.Source = nextSource(params.Source)
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, toggleText(params.Smoothing, "Bilinear", "Nearest")) {
			params.Smoothing = !params.Smoothing
			needsRegen = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "View: "+viewNames[view]) {
			view = (view + 1) % viewCount
			needsUpload = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, toggleText(showArrows, "Hide Arrows", "Show Arrows")) {
			showArrows = !showArrows
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(params.Clamp, "Edge: clamp", "Edge: wrap")) {
			params.Clamp = !params.Clamp
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = int64(rl.GetRandomValue(0, 99999))
			needsRegen = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaultParams()
			needsRegen = true
		}
		panelY += 55

		// Output YAML
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range yamlLines(params) {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		// Instructions
		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)

		// Copy to clipboard on C key
		if rl.IsKeyPressed(rl.KeyC) {
			text := ""
			for _, line := range yamlLines(params) {
				text += line + "\n"
			}
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func nextSource(current string) string {
	for i, s := range sources {
		if s == current {
			return sources[(i+1)%len(sources)]
		}
	}
	return sources[0]
}

// buildField constructs a preview-sized field through the same config path
// the simulation uses.
func buildField(params FieldParams) (*systems.NoiseField, error) {
	cfg := config.Default()
	cfg.Field.Octaves = params.Octaves
	cfg.Field.Smoothing = params.Smoothing
	cfg.Field.Source = params.Source
	cfg.Field.SimplexScale = float64(params.Scale)
	cfg.Field.PerlinScale = float64(params.Scale)
	cfg.Field.Edge = config.EdgeWrap
	if params.Clamp {
		cfg.Field.Edge = config.EdgeClamp
	}
	cfg.Derived.FieldWidth = fieldSize
	cfg.Derived.FieldHeight = fieldSize

	return systems.BuildNoiseField(cfg, rand.New(rand.NewSource(params.Seed)))
}

func yamlLines(params FieldParams) []string {
	edge := config.EdgeWrap
	if params.Clamp {
		edge = config.EdgeClamp
	}
	lines := []string{
		"field:",
		fmt.Sprintf("  octaves: %d", params.Octaves),
		fmt.Sprintf("  source: %s", params.Source),
		fmt.Sprintf("  smoothing: %t", params.Smoothing),
		fmt.Sprintf("  edge: %s", edge),
	}
	switch params.Source {
	case config.SourceSimplex:
		lines = append(lines, fmt.Sprintf("  simplex_scale: %.3f", params.Scale))
	case config.SourcePerlin:
		lines = append(lines, fmt.Sprintf("  perlin_scale: %.3f", params.Scale))
	}
	return lines
}

// vectorStats returns the mean (dx, dy) and the largest vector magnitude.
func vectorStats(field *systems.NoiseField) ([2]float64, float64) {
	var sum [2]float64
	var magMax float64
	w, h := field.Width(), field.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := field.Noise(float64(x), float64(y), 0)
			dy := field.Noise(float64(x), float64(y), 1)
			sum[0] += dx
			sum[1] += dy
			magMax = math.Max(magMax, math.Hypot(dx, dy))
		}
	}
	n := float64(w * h)
	return [2]float64{sum[0] / n, sum[1] / n}, magMax
}

// drawArrows overlays the (dx, dy) vector on a coarse grid, hue by direction.
func drawArrows(field *systems.NoiseField) {
	cell := float32(previewSize) / arrowGrid
	scale := float64(field.Width()) / arrowGrid
	for gy := 0; gy < arrowGrid; gy++ {
		for gx := 0; gx < arrowGrid; gx++ {
			fx := (float64(gx) + 0.5) * scale
			fy := (float64(gy) + 0.5) * scale
			dx := field.Noise(fx, fy, 0)
			dy := field.Noise(fx, fy, 1)

			hue := math.Mod(math.Atan2(dy, dx)*180/math.Pi+360, 360)
			r, g, b := colorful.Hsv(hue, 0.8, 0.9).RGB255()
			c := rl.Color{R: r, G: g, B: b, A: 255}

			start := rl.Vector2{X: 10 + (float32(gx)+0.5)*cell, Y: 10 + (float32(gy)+0.5)*cell}
			end := rl.Vector2{X: start.X + float32(dx)*cell*0.9, Y: start.Y + float32(dy)*cell*0.9}
			rl.DrawLineEx(start, end, 2, c)
			rl.DrawCircleV(end, 2, c)
		}
	}
}

// updateTexture uploads one view of the field raster.
func updateTexture(texture rl.Texture2D, src *image.NRGBA, view int) {
	pixels := make([]color.RGBA, fieldSize*fieldSize)
	for i := range pixels {
		p := src.Pix[i*4 : i*4+4]
		switch view {
		case viewRed:
			pixels[i] = color.RGBA{R: p[0], G: p[0], B: p[0], A: 255}
		case viewGreen:
			pixels[i] = color.RGBA{R: p[1], G: p[1], B: p[1], A: 255}
		case viewBlue:
			pixels[i] = color.RGBA{R: p[2], G: p[2], B: p[2], A: 255}
		default:
			pixels[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: 255}
		}
	}
	rl.UpdateTexture(texture, pixels)
}
