package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	gui "github.com/gen2brain/raylib-go/raygui"
)

// ControlAction is a button press reported by the controls panel.
type ControlAction uint8

const (
	ActionNone ControlAction = iota
	ActionTogglePause
	ActionRegenerate
)

// ControlsPanel renders the pause and regenerate buttons.
type ControlsPanel struct {
	renderer *Renderer
	x, y     float32
}

// NewControlsPanel creates a new controls panel with its top-left corner at x, y.
func NewControlsPanel(x, y float32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// Bounds returns the rectangle covered by the buttons.
func (c *ControlsPanel) Bounds() rl.Rectangle {
	t := c.renderer.Theme
	return rl.Rectangle{X: c.x, Y: c.y, Width: t.ButtonWidth*2 + 10, Height: t.ButtonHeight}
}

// Contains reports whether the point lies over the buttons. Pointer presses
// there belong to the panel, not the canvas.
func (c *ControlsPanel) Contains(x, y float32) bool {
	return rl.CheckCollisionPointRec(rl.Vector2{X: x, Y: y}, c.Bounds())
}

// Draw renders the buttons and returns the action clicked this frame.
func (c *ControlsPanel) Draw(paused bool) ControlAction {
	t := c.renderer.Theme
	action := ActionNone

	if gui.Button(rl.Rectangle{X: c.x, Y: c.y, Width: t.ButtonWidth, Height: t.ButtonHeight}, toggleText(paused, "Resume", "Pause")) {
		action = ActionTogglePause
	}
	if gui.Button(rl.Rectangle{X: c.x + t.ButtonWidth + 10, Y: c.y, Width: t.ButtonWidth, Height: t.ButtonHeight}, "Regenerate") {
		action = ActionRegenerate
	}
	return action
}

func toggleText(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
