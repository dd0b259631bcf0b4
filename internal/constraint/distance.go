package constraint

import (
	"math"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// DistanceConstraint holds two named frames at a fixed reference
// distance, Baumgarte-stabilized. It is the canonical constraint example
// from spec.md §4.2, grounded line-for-line on
// _examples/original_source/core/src/constraints/distance_constraint.cc.
//
// Reset unconditionally overwrites the reference distance with the
// current inter-frame distance (Open Question 1 in SPEC_FULL.md, resolved
// as option "(b)": call SetReferenceDistance after Reset, not before, to
// pin a custom value).
type DistanceConstraint struct {
	baseConstraint

	model      ModelRef
	frameA     string
	frameB     string
	distanceRef float64
	vDim       int
}

// NewDistanceConstraint attaches a distance constraint between two named
// frames of model, with Baumgarte gains kp, kd.
func NewDistanceConstraint(model ModelRef, frameA, frameB string, kp, kd float64, vDim int) *DistanceConstraint {
	return &DistanceConstraint{
		baseConstraint: baseConstraint{kp: kp, kd: kd, lambda: []float64{0}},
		model:          model,
		frameA:         frameA,
		frameB:         frameB,
		vDim:           vDim,
	}
}

// Rows always returns 1: distance is a scalar constraint.
func (d *DistanceConstraint) Rows() int { return 1 }

// SetReferenceDistance pins the reference distance directly, bypassing
// the value Reset would otherwise compute. Negative distances are
// rejected as BAD_INPUT (spec.md §7).
func (d *DistanceConstraint) SetReferenceDistance(distanceRef float64) error {
	if distanceRef < 0 {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "reference distance must be non-negative, got %g", distanceRef)
	}
	d.distanceRef = distanceRef
	return nil
}

// ReferenceDistance returns the currently configured reference distance.
func (d *DistanceConstraint) ReferenceDistance() float64 { return d.distanceRef }

func (d *DistanceConstraint) frames(q, v []float64) (posA, posB, velA, velB, angA, angB, accA, accB [3]float64, err error) {
	model, rerr := d.model.Resolve()
	if rerr != nil {
		err = rerr
		return
	}
	fa, ok := model.Oracle.Frame(d.frameA, q, v)
	if !ok {
		err = dynamo.NewError(dynamo.ErrorKindGeneric, "frame %q not found", d.frameA)
		return
	}
	fb, ok := model.Oracle.Frame(d.frameB, q, v)
	if !ok {
		err = dynamo.NewError(dynamo.ErrorKindGeneric, "frame %q not found", d.frameB)
		return
	}
	return fa.Position, fb.Position, fa.LinVelocity, fb.LinVelocity, fa.AngVelocity, fb.AngVelocity, fa.LinAcceleration, fb.LinAcceleration, nil
}

// Reset captures the current inter-frame distance as the reference
// distance, so the residual |c| is exactly zero immediately after Reset.
func (d *DistanceConstraint) Reset(q, v []float64) error {
	posA, posB, _, _, _, _, _, _, err := d.frames(q, v)
	if err != nil {
		return err
	}
	delta := sub3(posA, posB)
	d.distanceRef = norm3(delta)
	d.lambda = []float64{0}
	return nil
}

// Compute implements spec.md §4.2's distance-constraint formula exactly:
// Jacobian row = û·(J_A^lin - J_B^lin), drift = û·(a_A^lin - a_B^lin +
// ω_A×v_A - ω_B×v_B) plus the centripetal correction term plus the
// Baumgarte position/velocity feedback kp*(‖·‖-d_ref) + kd*û·(v_A-v_B).
func (d *DistanceConstraint) Compute(q, v []float64) (j [][]float64, zeta []float64, err error) {
	model, err := d.model.Resolve()
	if err != nil {
		return nil, nil, err
	}

	posA, posB, velA, velB, angA, angB, accA, accB, err := d.frames(q, v)
	if err != nil {
		return nil, nil, err
	}
	accA = add3(accA, cross3(angA, velA))
	accB = add3(accB, cross3(angB, velB))

	deltaPos := sub3(posA, posB)
	deltaNorm := norm3(deltaPos)
	if deltaNorm < 1e-12 {
		return nil, nil, dynamo.NewError(dynamo.ErrorKindGeneric, "distance constraint: frames %q and %q coincide", d.frameA, d.frameB)
	}
	dir := scale3(deltaPos, 1/deltaNorm)

	jacA, ok := model.Oracle.FrameJacobian(d.frameA, q)
	if !ok {
		return nil, nil, dynamo.NewError(dynamo.ErrorKindGeneric, "frame %q has no jacobian", d.frameA)
	}
	jacB, ok := model.Oracle.FrameJacobian(d.frameB, q)
	if !ok {
		return nil, nil, dynamo.NewError(dynamo.ErrorKindGeneric, "frame %q has no jacobian", d.frameB)
	}

	row := make([]float64, d.vDim)
	for col := 0; col < d.vDim; col++ {
		diffCol := [3]float64{}
		for r := 0; r < 3; r++ {
			var aVal, bVal float64
			if col < len(jacA[r]) {
				aVal = jacA[r][col]
			}
			if col < len(jacB[r]) {
				bVal = jacB[r][col]
			}
			diffCol[r] = aVal - bVal
		}
		row[col] = dot3(dir, diffCol)
	}

	deltaVel := sub3(velA, velB)
	deltaVelProj := dot3(deltaVel, dir)

	drift := dot3(dir, sub3(accA, accB))
	drift += (dot3(deltaVel, deltaVel) - deltaVelProj*deltaVelProj) / deltaNorm
	drift += d.kp*(deltaNorm-d.distanceRef) + d.kd*deltaVelProj

	return [][]float64{row}, []float64{drift}, nil
}

func sub3(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func add3(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func scale3(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }
func dot3(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func norm3(a [3]float64) float64   { return math.Sqrt(dot3(a, a)) }
func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
