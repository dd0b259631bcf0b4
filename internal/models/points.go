package models

import (
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// TetheredPoints is a pair of free, unit-mass, uncoupled point masses
// named "A" and "B" (each a Translation3 joint), with no bias forces and
// no free-body drift acceleration. It exists purely to be paired with a
// [constraint.DistanceConstraint] between its two frames (spec.md §8's S2
// scenario), so the evaluator has real Jacobian/mass-matrix structure to
// solve the KKT system against.
type TetheredPoints struct {
	layout *dynamo.Layout
}

// NewTetheredPoints builds the two-point-mass model.
func NewTetheredPoints() *TetheredPoints {
	layout := dynamo.NewNamedLayout(
		[]string{"A", "B"},
		[]dynamo.JointKind{dynamo.Translation3, dynamo.Translation3},
	)
	return &TetheredPoints{layout: layout}
}

func (m *TetheredPoints) Layout() *dynamo.Layout { return m.layout }

func (m *TetheredPoints) MassMatrix(q []float64) [][]float64 {
	n := m.layout.VDim
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1.0
	}
	return out
}

func (m *TetheredPoints) BiasForces(q, v []float64) []float64 {
	return make([]float64, m.layout.VDim)
}

func (m *TetheredPoints) Frame(name string, q, v []float64) (oracle.Frame, bool) {
	j, ok := m.layout.JointByName(name)
	if !ok {
		return oracle.Frame{}, false
	}
	f := oracle.Frame{}
	copy(f.Position[:], q[j.QIndex:j.QIndex+3])
	copy(f.LinVelocity[:], v[j.VIndex:j.VIndex+3])
	return f, true
}

func (m *TetheredPoints) FrameJacobian(name string, q []float64) ([][]float64, bool) {
	j, ok := m.layout.JointByName(name)
	if !ok {
		return nil, false
	}
	rows := make([][]float64, 3)
	for r := 0; r < 3; r++ {
		rows[r] = make([]float64, m.layout.VDim)
		rows[r][j.VIndex+r] = 1.0
	}
	return rows, true
}
