package components

import (
	"errors"
	"math"
)

// ErrZeroMagnitude is returned when a direction is requested from a zero-length vector.
var ErrZeroMagnitude = errors.New("components: vector has zero magnitude")

// Vector2 is a mutable 2-D vector. In-place operations return the receiver so calls chain.
type Vector2 struct {
	X, Y float64
}

// FromPolar returns the vector (r*cos(theta), r*sin(theta)).
func FromPolar(r, theta float64) Vector2 {
	return Vector2{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// Add adds v to the receiver.
func (v *Vector2) Add(o Vector2) *Vector2 {
	v.X += o.X
	v.Y += o.Y
	return v
}

// Scale multiplies both components by k.
func (v *Vector2) Scale(k float64) *Vector2 {
	v.X *= k
	v.Y *= k
	return v
}

// Mag returns the Euclidean length.
func (v Vector2) Mag() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// SetMag rescales the receiver to magnitude m along its current direction.
// A zero vector has no direction; the receiver is left untouched.
func (v *Vector2) SetMag(m float64) error {
	n, err := v.Normalized()
	if err != nil {
		return err
	}
	v.X = n.X * m
	v.Y = n.Y * m
	return nil
}

// Normalized returns a unit vector with the receiver's direction.
func (v Vector2) Normalized() (Vector2, error) {
	mag := v.Mag()
	if mag == 0 {
		return Vector2{}, ErrZeroMagnitude
	}
	return Vector2{X: v.X / mag, Y: v.Y / mag}, nil
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vector2) DistanceTo(o Vector2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}
