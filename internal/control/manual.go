package control

import "github.com/rigidkernel/simkernel/internal/dynamo"

// ManualController passes an externally-set control vector through
// unchanged, for interactive live-tuning from the TUI.
type ManualController struct {
	u []float64
}

// NewManual returns a ManualController holding a zero vector of length
// dim until SetControl is called.
func NewManual(dim int) *ManualController {
	return &ManualController{u: make([]float64, dim)}
}

// SetControl replaces the stored control vector. Mismatched lengths are
// ignored so a stale caller cannot corrupt the vector's dimension.
func (c *ManualController) SetControl(u []float64) {
	if len(u) != len(c.u) {
		return
	}
	copy(c.u, u)
}

func (c *ManualController) Compute(x dynamo.State, t float64) dynamo.Control {
	out := make(dynamo.Control, len(c.u))
	copy(out, c.u)
	return out
}
