package components

// Damping is the per-tick velocity multiplier applied after the noise perturbation.
const Damping = 0.95

// Sampler reads one channel of a vector noise field at a position.
type Sampler interface {
	Noise(x, y float64, ch int) float64
}

// Plotter receives particle marks. The fill style is whatever the caller configured.
type Plotter interface {
	FillRect(x, y, w, h float64)
}

// Particle is an advected point. Acc is reserved and stays zero.
type Particle struct {
	Pos Vector2
	Vel Vector2
	Acc Vector2
}

// NewParticle creates a particle at (x, y) moving with (vx, vy).
func NewParticle(x, y, vx, vy float64) Particle {
	return Particle{
		Pos: Vector2{X: x, Y: y},
		Vel: Vector2{X: vx, Y: vy},
	}
}

// Update advances the particle one tick. Position moves by the velocity it had
// before this tick; channels 0 and 1 of the field then perturb the velocity,
// which is finally damped.
func (p *Particle) Update(field Sampler) {
	p.UpdateDamped(field, Damping)
}

// UpdateDamped is Update with an explicit damping factor.
func (p *Particle) UpdateDamped(field Sampler, damping float64) {
	p.Pos.Add(p.Vel)

	dx := field.Noise(p.Pos.X, p.Pos.Y, 0)
	dy := field.Noise(p.Pos.X, p.Pos.Y, 1)

	p.Vel.Add(Vector2{X: dx, Y: dy}).Scale(damping)
}

// Draw paints a size x size square with its top-left corner at the
// particle's position.
func (p *Particle) Draw(dst Plotter, size float64) {
	dst.FillRect(p.Pos.X, p.Pos.Y, size, size)
}
