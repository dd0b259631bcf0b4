// Package control provides feedback controllers over the manifold
// [dynamo.State]: given the current state and time, a Controller returns
// a control vector consumed by the stage evaluator (spec.md §4.2's u
// term).
//
//   - [PID]: proportional-integral-derivative controller driving the
//     first generalized velocity to a target.
//   - [None]: passthrough controller, always zero control.
//   - [ManualController]: an externally-set control vector, for the TUI's
//     live-tuning mode.
package control
