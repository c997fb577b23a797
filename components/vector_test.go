package components

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func TestNormalizedUnitLength(t *testing.T) {
	cases := []Vector2{
		{3, 4},
		{-1, 0},
		{0, 1e-6},
		{123.5, -987.25},
		{1e8, 1e8},
	}

	for _, v := range cases {
		n, err := v.Normalized()
		if err != nil {
			t.Fatalf("Normalized(%v) returned error: %v", v, err)
		}
		if math.Abs(n.Mag()-1) > eps {
			t.Errorf("Normalized(%v).Mag() = %f, want 1", v, n.Mag())
		}
	}
}

func TestNormalizedZeroVector(t *testing.T) {
	var v Vector2
	n, err := v.Normalized()
	if !errors.Is(err, ErrZeroMagnitude) {
		t.Fatalf("expected ErrZeroMagnitude, got %v", err)
	}
	if n != (Vector2{}) {
		t.Errorf("expected zero result, got %v", n)
	}
}

func TestSetMag(t *testing.T) {
	v := Vector2{3, 4}
	if err := v.SetMag(10); err != nil {
		t.Fatalf("SetMag failed: %v", err)
	}
	if math.Abs(v.X-6) > eps || math.Abs(v.Y-8) > eps {
		t.Errorf("expected (6, 8), got (%f, %f)", v.X, v.Y)
	}

	var zero Vector2
	if err := zero.SetMag(5); !errors.Is(err, ErrZeroMagnitude) {
		t.Errorf("expected ErrZeroMagnitude, got %v", err)
	}
	if zero.X != 0 || zero.Y != 0 || math.IsNaN(zero.X) {
		t.Errorf("zero vector modified: %v", zero)
	}
}

func TestFromPolarMagnitude(t *testing.T) {
	for _, r := range []float64{0, 1, 2.5, -3, 1000} {
		for _, theta := range []float64{0, 0.3, math.Pi / 2, math.Pi, -2, 10} {
			got := FromPolar(r, theta).Mag()
			if math.Abs(got-math.Abs(r)) > 1e-9*math.Max(1, math.Abs(r)) {
				t.Errorf("FromPolar(%f, %f).Mag() = %f, want %f", r, theta, got, math.Abs(r))
			}
		}
	}
}

func TestAddScaleChain(t *testing.T) {
	v := Vector2{1, 2}
	v.Add(Vector2{3, 4}).Scale(0.5)
	if v.X != 2 || v.Y != 3 {
		t.Errorf("expected (2, 3), got (%f, %f)", v.X, v.Y)
	}
}

func TestDistanceTo(t *testing.T) {
	a := Vector2{1, 1}
	b := Vector2{4, 5}
	if d := a.DistanceTo(b); math.Abs(d-5) > eps {
		t.Errorf("expected distance 5, got %f", d)
	}
	if d := b.DistanceTo(a); math.Abs(d-5) > eps {
		t.Errorf("distance not symmetric: %f", d)
	}
	if d := a.DistanceTo(a); d != 0 {
		t.Errorf("expected 0 distance to self, got %f", d)
	}
}
