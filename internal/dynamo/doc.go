// Package dynamo provides the core algebraic primitives for simulating a
// rigid-body system whose configuration may live on a Lie group.
//
// The package defines:
//
//   - [State]: a (q, v) pair — configuration and tangent velocity — with
//     the retraction/inverse-retraction algebra ([State.Sum],
//     [State.Difference]) that lets the stepper package stay oblivious to
//     whether a joint is flat (revolute, prismatic) or has a quaternion
//     component (spherical, free-flyer).
//   - [Layout]: the ordered joint description shared by every State built
//     for a given model.
//   - [KernelError]: the tagged-error propagation type used by every
//     package in this module instead of exceptions.
//
// # Thread safety
//
// State values are plain data and safe to copy; nothing in this package
// mutates shared state, so callers can freely run independent simulations
// on separate goroutines (see internal/ensemble). A single State value
// must not be mutated concurrently.
package dynamo
