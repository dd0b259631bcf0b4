package constraint_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// fakeOracle is a minimal two-frame Oracle whose frame kinematics are set
// directly by a test, letting Compute be exercised against hand-picked
// positions, velocities and angular velocities without a real model.
type fakeOracle struct {
	layout *dynamo.Layout
	frames map[string]oracle.Frame
	jac    map[string][][]float64
}

func (o *fakeOracle) Layout() *dynamo.Layout { return o.layout }
func (o *fakeOracle) MassMatrix(q []float64) [][]float64 {
	return nil
}
func (o *fakeOracle) BiasForces(q, v []float64) []float64 { return nil }
func (o *fakeOracle) Frame(name string, q, v []float64) (oracle.Frame, bool) {
	f, ok := o.frames[name]
	return f, ok
}
func (o *fakeOracle) FrameJacobian(name string, q []float64) ([][]float64, bool) {
	j, ok := o.jac[name]
	return j, ok
}

func newFakeModel(o *fakeOracle) (*oracle.Model, constraint.ModelRef) {
	m := &oracle.Model{Oracle: o}
	return m, constraint.NewModelRef(m)
}

// identityJacobian3 returns a 3x3 identity, used for frames whose velocity
// equals the corresponding slice of v directly.
func identityJacobian3() [][]float64 {
	return [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

func TestDistanceConstraintResetZeroesResidual(t *testing.T) {
	layout := dynamo.NewLayout(dynamo.Translation3, dynamo.Translation3)
	o := &fakeOracle{
		layout: layout,
		frames: map[string]oracle.Frame{
			"A": {Position: [3]float64{0, 0, 0}},
			"B": {Position: [3]float64{3, 4, 0}},
		},
		jac: map[string][][]float64{
			"A": identityJacobian3(),
			"B": identityJacobian3(),
		},
	}
	_, ref := newFakeModel(o)
	dc := constraint.NewDistanceConstraint(ref, "A", "B", 10, 1, 6)

	q := make([]float64, layout.QDim)
	v := make([]float64, layout.VDim)
	require.NoError(t, dc.Reset(q, v))
	assert.InDelta(t, 5.0, dc.ReferenceDistance(), 1e-12)

	j, zeta, err := dc.Compute(q, v)
	require.NoError(t, err)
	require.Len(t, j, 1)
	require.Len(t, zeta, 1)
	// Immediately after Reset, at rest, the Baumgarte position term
	// kp*(dist-ref) is zero and every other drift contribution vanishes.
	assert.InDelta(t, 0.0, zeta[0], 1e-9)
}

func TestDistanceConstraintDriftIncludesAngularVelocityCrossTerm(t *testing.T) {
	layout := dynamo.NewLayout(dynamo.Translation3, dynamo.Translation3)
	// Frame A spins about z with unit angular velocity while translating
	// along x; B sits one unit below A along y and moves with A's linear
	// velocity, so dir=(pA-pB)/|pA-pB|=(0,1,0) lines up exactly with A's
	// omega x v = (0,0,1) x (1,0,0) = (0,1,0) correction term from
	// spec.md §4.2, while the relative velocity, and with it the
	// centripetal and kd terms, is zero.
	o := &fakeOracle{
		layout: layout,
		frames: map[string]oracle.Frame{
			"A": {
				Position:    [3]float64{0, 0, 0},
				LinVelocity: [3]float64{1, 0, 0},
				AngVelocity: [3]float64{0, 0, 1},
			},
			"B": {
				Position:    [3]float64{0, -1, 0},
				LinVelocity: [3]float64{1, 0, 0},
			},
		},
		jac: map[string][][]float64{
			"A": identityJacobian3(),
			"B": identityJacobian3(),
		},
	}
	_, ref := newFakeModel(o)
	dc := constraint.NewDistanceConstraint(ref, "A", "B", 0, 0, 6)
	require.NoError(t, dc.SetReferenceDistance(1))

	q := make([]float64, layout.QDim)
	v := make([]float64, layout.VDim)
	_, zeta, err := dc.Compute(q, v)
	require.NoError(t, err)
	require.Len(t, zeta, 1)
	assert.InDelta(t, 1.0, zeta[0], 1e-9, "expected omega_A x v_A to surface in drift")
}

func TestDistanceConstraintRejectsCoincidentFrames(t *testing.T) {
	layout := dynamo.NewLayout(dynamo.Translation3, dynamo.Translation3)
	o := &fakeOracle{
		layout: layout,
		frames: map[string]oracle.Frame{
			"A": {Position: [3]float64{1, 1, 1}},
			"B": {Position: [3]float64{1, 1, 1}},
		},
		jac: map[string][][]float64{
			"A": identityJacobian3(),
			"B": identityJacobian3(),
		},
	}
	_, ref := newFakeModel(o)
	dc := constraint.NewDistanceConstraint(ref, "A", "B", 1, 1, 6)

	q := make([]float64, layout.QDim)
	v := make([]float64, layout.VDim)
	_, _, err := dc.Compute(q, v)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindGeneric))
}

func TestDistanceConstraintRejectsNegativeReferenceDistance(t *testing.T) {
	_, ref := newFakeModel(&fakeOracle{})
	dc := constraint.NewDistanceConstraint(ref, "A", "B", 1, 1, 6)
	err := dc.SetReferenceDistance(-1)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindBadInput))
}

func TestDistanceConstraintFailsWhenModelExpired(t *testing.T) {
	ref := func() constraint.ModelRef {
		m := &oracle.Model{Oracle: &fakeOracle{layout: dynamo.NewLayout()}}
		return constraint.NewModelRef(m)
	}()
	runtime.GC()

	dc := constraint.NewDistanceConstraint(ref, "A", "B", 1, 1, 0)
	_, _, err := dc.Compute(nil, nil)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindGeneric))
}

func TestSetTotalRowsAndCompute(t *testing.T) {
	layout := dynamo.NewLayout(dynamo.Translation3, dynamo.Translation3)
	o := &fakeOracle{
		layout: layout,
		frames: map[string]oracle.Frame{
			"A": {Position: [3]float64{0, 0, 0}},
			"B": {Position: [3]float64{2, 0, 0}},
		},
		jac: map[string][][]float64{
			"A": identityJacobian3(),
			"B": identityJacobian3(),
		},
	}
	_, ref := newFakeModel(o)
	dc := constraint.NewDistanceConstraint(ref, "A", "B", 5, 1, 6)

	set := constraint.NewSet()
	set.Add(dc)
	assert.Equal(t, 1, set.TotalRows())

	q := make([]float64, layout.QDim)
	v := make([]float64, layout.VDim)
	require.NoError(t, set.Reset(q, v))

	j, zeta, err := set.Compute(q, v, layout.VDim)
	require.NoError(t, err)
	require.Len(t, j, 1)
	require.Len(t, zeta, 1)

	set.Distribute([]float64{1.5})
	assert.Equal(t, []float64{1.5}, dc.Multiplier())
}
