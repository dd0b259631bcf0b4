// Package oracle defines the mechanics-oracle contract: the external
// kinematics/dynamics collaborator the evaluator package queries for mass
// matrices, bias forces, and frame kinematics. Nothing in this package
// implements real multibody dynamics — that is the excluded third-party
// library described in spec.md §1; internal/models supplies small
// concrete Oracles for tests and examples.
package oracle

import "github.com/rigidkernel/simkernel/internal/dynamo"

// Frame is a named point of interest attached to the model: a world-frame
// position, its linear velocity/acceleration, and its angular velocity,
// all expressed LOCAL_WORLD_ALIGNED (rotated into the world frame but
// centered on the moving point), matching the convention the distance
// constraint is grounded on.
type Frame struct {
	Position     [3]float64
	LinVelocity  [3]float64
	AngVelocity  [3]float64
	LinAcceleration [3]float64
}

// Oracle is the mechanics collaborator: given a configuration and
// velocity, it supplies everything the stage evaluator needs to form the
// unconstrained equations of motion and any attached constraint's
// Jacobian/drift.
type Oracle interface {
	// Layout describes the configuration/velocity structure of the model.
	Layout() *dynamo.Layout

	// MassMatrix returns M(q), a dense VDim x VDim symmetric positive
	// definite matrix.
	MassMatrix(q []float64) [][]float64

	// BiasForces returns b(q, v) — Coriolis, centrifugal and gravity
	// terms — a VDim vector such that M(q)*a = u - b(q,v) in the absence
	// of constraints.
	BiasForces(q, v []float64) []float64

	// Frame returns the current kinematics of the named frame. Ok is
	// false if the model has no frame with that name. LinAcceleration is
	// the classical bias (drift) acceleration — the frame's translational
	// acceleration due to the current velocities alone, with joint
	// acceleration held at zero — matching the quantity Pinocchio's
	// getFrameAcceleration returns before the equations of motion are
	// solved for the true joint acceleration.
	Frame(name string, q, v []float64) (f Frame, ok bool)

	// FrameJacobian returns the 3 x VDim translational (linear) rows of
	// the named frame's world-aligned jacobian: the matrix J such that
	// J*v is the frame's linear velocity. Ok is false if the model has no
	// frame with that name.
	FrameJacobian(name string, q []float64) (j [][]float64, ok bool)
}

// Model is the weakly-referenced owner constraints attach to. It exists
// so a constraint can detect the "model went away" failure mode (spec.md
// §3, "Lifecycle") without owning the model itself.
type Model struct {
	Oracle Oracle
}
