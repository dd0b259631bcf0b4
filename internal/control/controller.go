package control

import "github.com/rigidkernel/simkernel/internal/dynamo"

// Controller computes a control vector from the current state and time.
type Controller interface {
	Compute(x dynamo.State, t float64) dynamo.Control
}

// Configurable is implemented by controllers whose gains can be tuned
// live (spec.md §7's TUI), e.g. by [PID].
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}
