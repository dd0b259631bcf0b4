package models

import (
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// VanDerPol is a unit-mass Van der Pol oscillator recast into the
// acceleration-level oracle contract: M=[[1]], b(q,v) = q - mu*(1-q^2)*v,
// so a = u - b matches the classical x'' = mu*(1-x^2)*x' - x equation.
// Adapted from _examples/san-kum-dynsim/internal/physics/vanderpol.go's
// flat-vector Derive into MassMatrix/BiasForces, giving the analysis
// package a real tunable nonlinear parameter (mu) that Oscillator and
// TetheredPoints don't have.
type VanDerPol struct {
	layout *dynamo.Layout
	mu     float64
}

// NewVanDerPol builds a Van der Pol model at the classic mu=1 limit
// cycle.
func NewVanDerPol() *VanDerPol {
	return &VanDerPol{layout: dynamo.NewLayout(dynamo.Prismatic), mu: 1.0}
}

func (v *VanDerPol) Layout() *dynamo.Layout { return v.layout }

func (v *VanDerPol) MassMatrix(q []float64) [][]float64 {
	return [][]float64{{1.0}}
}

func (v *VanDerPol) BiasForces(q, vel []float64) []float64 {
	return []float64{q[0] - v.mu*(1-q[0]*q[0])*vel[0]}
}

func (v *VanDerPol) Frame(name string, q, vel []float64) (oracle.Frame, bool) {
	return oracle.Frame{}, false
}

func (v *VanDerPol) FrameJacobian(name string, q []float64) ([][]float64, bool) {
	return nil, false
}

// GetParams and SetParam implement analysis.Tunable, letting
// BifurcationDiagram sweep mu directly instead of a controller gain.
func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"mu": v.mu}
}

func (v *VanDerPol) SetParam(name string, value float64) {
	if name == "mu" {
		v.mu = value
	}
}
