package dynamo

import "math"

// State is a configuration/velocity pair (q, v) over a shared Layout. Q
// may contain quaternion blocks (Spherical, FreeFlyer joints); V is always
// a flat vector in the tangent space at Q.
//
// Two States and every tangent vector exchanged with them (deltas, stage
// slopes, error vectors) share the same Layout and therefore the same
// dim(V); tangent vectors passed to Sum/Difference have length 2*dim(V):
// the first half retracts Q, the second half is added to V directly.
type State struct {
	Layout *Layout
	Q      []float64
	V      []float64
}

// NewState allocates a zero-valued State for the given layout, with
// quaternion blocks initialized to the identity rotation.
func NewState(layout *Layout) State {
	s := State{Layout: layout, Q: make([]float64, layout.QDim), V: make([]float64, layout.VDim)}
	for _, j := range layout.Joints {
		id := quatIdentity()
		if j.Kind == Spherical {
			copy(s.Q[j.QIndex:j.QIndex+4], id[:])
		} else if j.Kind == FreeFlyer {
			copy(s.Q[j.QIndex+3:j.QIndex+7], id[:])
		}
	}
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := State{Layout: s.Layout, Q: make([]float64, len(s.Q)), V: make([]float64, len(s.V))}
	copy(c.Q, s.Q)
	copy(c.V, s.V)
	return c
}

// TangentDim is the length of tangent vectors (deltas, stage slopes)
// exchanged with this state: 2*dim(V), position-tangent then velocity.
func (s State) TangentDim() int { return 2 * len(s.V) }

// IsValid reports whether every component of q and v is finite.
func (s State) IsValid() bool {
	for _, x := range s.Q {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	for _, x := range s.V {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Sum computes the retraction out = s ⊕ delta and stores it in out, which
// must already share s's Layout (out may alias s). delta has length
// s.TangentDim(): delta[:nv] retracts Q, delta[nv:] is added to V.
func (s State) Sum(delta []float64, out *State) {
	nv := len(s.V)
	posDelta := delta[:nv]
	velDelta := delta[nv:]

	if out.Q == nil || len(out.Q) != len(s.Q) {
		out.Q = make([]float64, len(s.Q))
	}
	if out.V == nil || len(out.V) != len(s.V) {
		out.V = make([]float64, len(s.V))
	}
	out.Layout = s.Layout

	newV := make([]float64, nv)
	for i, v := range s.V {
		newV[i] = v + velDelta[i]
	}

	newQ := make([]float64, len(s.Q))
	for _, j := range s.Layout.Joints {
		switch j.Kind {
		case Revolute, Prismatic:
			newQ[j.QIndex] = s.Q[j.QIndex] + posDelta[j.VIndex]
		case Translation3:
			for k := 0; k < 3; k++ {
				newQ[j.QIndex+k] = s.Q[j.QIndex+k] + posDelta[j.VIndex+k]
			}
		case Spherical:
			q := quat{s.Q[j.QIndex], s.Q[j.QIndex+1], s.Q[j.QIndex+2], s.Q[j.QIndex+3]}
			w := [3]float64{posDelta[j.VIndex], posDelta[j.VIndex+1], posDelta[j.VIndex+2]}
			nq := q.mul(quatExp(w)).normalize()
			copy(newQ[j.QIndex:j.QIndex+4], nq[:])
		case FreeFlyer:
			for k := 0; k < 3; k++ {
				newQ[j.QIndex+k] = s.Q[j.QIndex+k] + posDelta[j.VIndex+k]
			}
			q := quat{s.Q[j.QIndex+3], s.Q[j.QIndex+4], s.Q[j.QIndex+5], s.Q[j.QIndex+6]}
			w := [3]float64{posDelta[j.VIndex+3], posDelta[j.VIndex+4], posDelta[j.VIndex+5]}
			nq := q.mul(quatExp(w)).normalize()
			copy(newQ[j.QIndex+3:j.QIndex+7], nq[:])
		}
	}

	copy(out.Q, newQ)
	copy(out.V, newV)
}

// Difference computes the inverse retraction out = y ⊖ s and writes it
// into out, which must already have length s.TangentDim().
func (s State) Difference(y State, out []float64) {
	nv := len(s.V)
	for i := 0; i < nv; i++ {
		out[nv+i] = y.V[i] - s.V[i]
	}
	for _, j := range s.Layout.Joints {
		switch j.Kind {
		case Revolute, Prismatic:
			out[j.VIndex] = y.Q[j.QIndex] - s.Q[j.QIndex]
		case Translation3:
			for k := 0; k < 3; k++ {
				out[j.VIndex+k] = y.Q[j.QIndex+k] - s.Q[j.QIndex+k]
			}
		case Spherical:
			q := quat{s.Q[j.QIndex], s.Q[j.QIndex+1], s.Q[j.QIndex+2], s.Q[j.QIndex+3]}
			qy := quat{y.Q[j.QIndex], y.Q[j.QIndex+1], y.Q[j.QIndex+2], y.Q[j.QIndex+3]}
			w := quatLog(q.conj().mul(qy))
			out[j.VIndex], out[j.VIndex+1], out[j.VIndex+2] = w[0], w[1], w[2]
		case FreeFlyer:
			for k := 0; k < 3; k++ {
				out[j.VIndex+k] = y.Q[j.QIndex+k] - s.Q[j.QIndex+k]
			}
			q := quat{s.Q[j.QIndex+3], s.Q[j.QIndex+4], s.Q[j.QIndex+5], s.Q[j.QIndex+6]}
			qy := quat{y.Q[j.QIndex+3], y.Q[j.QIndex+4], y.Q[j.QIndex+5], y.Q[j.QIndex+6]}
			w := quatLog(q.conj().mul(qy))
			out[j.VIndex+3], out[j.VIndex+4], out[j.VIndex+5] = w[0], w[1], w[2]
		}
	}
}

// ConfigTangentFromIdentity returns the tangent-space configuration delta
// of s relative to the layout's canonical zero/identity configuration
// (all flat joints at 0, all quaternion blocks at identity). It is used to
// build the relative error scale (see Open Question 2 in SPEC_FULL.md)
// without assuming a canonical "zero" State exists on the manifold.
func (s State) ConfigTangentFromIdentity() []float64 {
	zero := NewState(s.Layout)
	out := make([]float64, len(s.V))
	for _, j := range s.Layout.Joints {
		switch j.Kind {
		case Revolute, Prismatic:
			out[j.VIndex] = s.Q[j.QIndex] - zero.Q[j.QIndex]
		case Translation3:
			for k := 0; k < 3; k++ {
				out[j.VIndex+k] = s.Q[j.QIndex+k] - zero.Q[j.QIndex+k]
			}
		case Spherical:
			qz := quat{zero.Q[j.QIndex], zero.Q[j.QIndex+1], zero.Q[j.QIndex+2], zero.Q[j.QIndex+3]}
			qs := quat{s.Q[j.QIndex], s.Q[j.QIndex+1], s.Q[j.QIndex+2], s.Q[j.QIndex+3]}
			w := quatLog(qz.conj().mul(qs))
			out[j.VIndex], out[j.VIndex+1], out[j.VIndex+2] = w[0], w[1], w[2]
		case FreeFlyer:
			for k := 0; k < 3; k++ {
				out[j.VIndex+k] = s.Q[j.QIndex+k] - zero.Q[j.QIndex+k]
			}
			qz := quat{zero.Q[j.QIndex+3], zero.Q[j.QIndex+4], zero.Q[j.QIndex+5], zero.Q[j.QIndex+6]}
			qs := quat{s.Q[j.QIndex+3], s.Q[j.QIndex+4], s.Q[j.QIndex+5], s.Q[j.QIndex+6]}
			w := quatLog(qz.conj().mul(qs))
			out[j.VIndex+3], out[j.VIndex+4], out[j.VIndex+5] = w[0], w[1], w[2]
		}
	}
	return out
}

// SetZero zeroes a tangent vector in place (used for stage slope buffers).
func SetZero(t []float64) {
	for i := range t {
		t[i] = 0
	}
}

// NormInf returns the infinity norm (max absolute component) of a tangent
// vector such as a stage slope, an increment, or an error estimate. A NaN
// component poisons the whole result (math.Max propagates NaN), which is
// what lets the stepper's error check (spec.md §4.1: "E is NaN → reject")
// see a NaN derivative rather than silently ignoring it — a plain
// `a > m` comparison loop would instead skip every NaN, since any
// comparison against NaN is false.
func NormInf(t []float64) float64 {
	m := 0.0
	for _, x := range t {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// ScaleInv divides t element-wise by scale in place: t[i] /= scale[i].
// Callers building scale for relative-error use are responsible for
// flooring it away from zero (see stepper.relativeScale); a literal zero
// entry here propagates +Inf/NaN like any other float64 division.
func ScaleInv(t, scale []float64) {
	for i := range t {
		t[i] /= scale[i]
	}
}
