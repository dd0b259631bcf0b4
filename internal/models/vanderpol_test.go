package models_test

import (
	"testing"

	"github.com/rigidkernel/simkernel/internal/models"
)

func TestVanDerPolBiasForcesMatchesClassicalEquation(t *testing.T) {
	v := models.NewVanDerPol()
	v.SetParam("mu", 2.0)

	q := []float64{0.5}
	vel := []float64{1.5}
	b := v.BiasForces(q, vel)

	// x'' = mu*(1-x^2)*x' - x, i.e. b(q,v) = q - mu*(1-q^2)*v.
	want := q[0] - 2.0*(1-q[0]*q[0])*vel[0]
	if b[0] != want {
		t.Errorf("BiasForces = %v, want %v", b[0], want)
	}
}

func TestVanDerPolSetParamIgnoresUnknownName(t *testing.T) {
	v := models.NewVanDerPol()
	v.SetParam("nonexistent", 99)
	if got := v.GetParams()["mu"]; got != 1.0 {
		t.Errorf("expected mu unchanged at 1.0, got %v", got)
	}
}

func TestVanDerPolHasNoFrames(t *testing.T) {
	v := models.NewVanDerPol()
	if _, ok := v.Frame("anything", []float64{0}, []float64{0}); ok {
		t.Error("expected VanDerPol to expose no frames")
	}
	if _, ok := v.FrameJacobian("anything", []float64{0}); ok {
		t.Error("expected VanDerPol to expose no frame jacobian")
	}
}
