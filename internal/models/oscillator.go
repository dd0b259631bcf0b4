// Package models supplies small, concrete [oracle.Oracle] implementations
// standing in for the excluded third-party kinematics/dynamics library
// (spec.md §1): enough real mechanics to exercise the stepper and
// evaluator end to end, grounded on the scalar test systems in
// _examples/san-kum-dynsim/internal/models (spring_mass.go's harmonic
// dynamics in particular).
package models

import (
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// Oscillator is a unit-mass, unit-stiffness harmonic oscillator: a single
// Prismatic joint with M=[[1]], b(q,v) = q (so a = u - q), and no frames.
// It is the S1/S4/S6 scenario system from spec.md §8: its analytic
// solution makes both the O(dt^5) global-error and long-horizon-drift
// invariants directly checkable.
type Oscillator struct {
	layout *dynamo.Layout
}

// NewOscillator builds the single-dof oscillator model.
func NewOscillator() *Oscillator {
	return &Oscillator{layout: dynamo.NewLayout(dynamo.Prismatic)}
}

func (o *Oscillator) Layout() *dynamo.Layout { return o.layout }

func (o *Oscillator) MassMatrix(q []float64) [][]float64 {
	return [][]float64{{1.0}}
}

func (o *Oscillator) BiasForces(q, v []float64) []float64 {
	return []float64{q[0]}
}

func (o *Oscillator) Frame(name string, q, v []float64) (oracle.Frame, bool) {
	return oracle.Frame{}, false
}

func (o *Oscillator) FrameJacobian(name string, q []float64) ([][]float64, bool) {
	return nil, false
}
