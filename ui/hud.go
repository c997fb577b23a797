package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	Particles      int
	Tick           uint64
	Regenerations  int
	StepsPerUpdate int
	FPS            int32
	Paused         bool

	// Latest telemetry window
	SpeedMean      float64
	OutOfFieldFrac float64
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewHUD creates a new HUD renderer anchored at x, y.
func NewHUD(x, y, width int32) *HUD {
	return &HUD{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// Height returns the panel height in pixels.
func (h *HUD) Height() int32 {
	t := h.renderer.Theme
	return t.Padding*2 + 24 + t.LineHeight*8 + 2
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	t := r.Theme
	r.DrawPanel(h.x, h.y, h.width, h.Height())

	x := h.x + t.Padding
	y := h.y + t.Padding

	rl.DrawText(data.Title, x, y, 20, rl.White)
	y += 24

	statusText, statusColor := "RUNNING", t.StatusRunning
	if data.Paused {
		statusText, statusColor = "PAUSED", t.StatusPaused
	}
	rl.DrawText(statusText, x, y, t.HeaderFontSize, statusColor)
	y += t.LineHeight

	y = r.DrawLabelValue(x, y, "Particles", fmt.Sprintf("%d", data.Particles))
	y = r.DrawLabelValue(x, y, "Tick", fmt.Sprintf("%d (%dx)", data.Tick, data.StepsPerUpdate))
	y = r.DrawLabelValue(x, y, "Regenerated", fmt.Sprintf("%d", data.Regenerations))
	y = r.DrawLabelValue(x, y, "FPS", fmt.Sprintf("%d", data.FPS))

	y = r.DrawSectionHeader(x, y, "Last window")
	y = r.DrawLabelValue(x, y, "Mean speed", fmt.Sprintf("%.3f", data.SpeedMean))
	r.DrawBar(x, y, "Outside", float32(data.OutOfFieldFrac), h.width-t.Padding*2)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
