package control

import "github.com/rigidkernel/simkernel/internal/dynamo"

// None is the zero controller: it always returns a zero control vector of
// the configured dimension.
type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{dim: dim}
}

func (n *None) Compute(x dynamo.State, t float64) dynamo.Control {
	return make(dynamo.Control, n.dim)
}
