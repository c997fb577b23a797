package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/drift/config"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	got := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(got[i]-def[i]) > 1e-12 {
			t.Errorf("%s: round trip %v, want %v", pv.Specs[i].Name, got[i], def[i])
		}
	}
}

func TestParamVectorDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Default())
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config default %v, spec default %v", spec.Path, got[i], spec.Default)
		}
	}
}

func TestApplyToConfigClampsAndRounds(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	pv.ApplyToConfig(cfg, []float64{2, -1, 6.6})

	if cfg.Particles.Damping != 0.99 {
		t.Errorf("damping = %v, want clamped 0.99", cfg.Particles.Damping)
	}
	if cfg.Particles.Spread != 0.25 {
		t.Errorf("spread = %v, want clamped 0.25", cfg.Particles.Spread)
	}
	if cfg.Field.Octaves != 7 {
		t.Errorf("octaves = %d, want 7", cfg.Field.Octaves)
	}
}

func TestEvaluateFiniteAndDeterministic(t *testing.T) {
	cfg := config.Default()
	cfg.Particles.Count = 50
	cfg.Field.Octaves = 3
	cfg.Derived.FieldWidth = 64
	cfg.Derived.FieldHeight = 48

	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 20, []int64{1, 2}, cfg, Targets{OutOfField: 0.02, Coverage: 0.5})

	x := pv.ExtractFromConfig(cfg)
	a := fe.Evaluate(x)
	b := fe.Evaluate(x)
	if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
		t.Fatalf("fitness = %v", a)
	}
	if a != b {
		t.Errorf("same parameters and seeds gave %v then %v", a, b)
	}
	if s := fe.LastStats(); s.RadiusP50 <= 0 {
		t.Errorf("expected a positive median radius, got %+v", s)
	}
}
