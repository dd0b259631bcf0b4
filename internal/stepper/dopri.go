// Package stepper implements the adaptive Dormand–Prince 5(4) integrator
// from spec.md §4.1: an embedded seven-stage Runge–Kutta method with
// FSAL, PI-like step-size control, and an explicit accept/reject state
// machine. The tableau and adjustment policy are grounded on
// _examples/original_source/core/src/stepper/runge_kutta_dopri_stepper.cc.
package stepper

import (
	"math"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// DOPRI5 tableau constants (Dormand & Prince, 1980), matching the
// original source's DOPRI:: namespace exactly.
var (
	c2, c3, c4, c5, c6, c7 = 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1.0, 1.0

	a21 = 1.0 / 5.0

	a31 = 3.0 / 40.0
	a32 = 9.0 / 40.0

	a41 = 44.0 / 45.0
	a42 = -56.0 / 15.0
	a43 = 32.0 / 9.0

	a51 = 19372.0 / 6561.0
	a52 = -25360.0 / 2187.0
	a53 = 64448.0 / 6561.0
	a54 = -212.0 / 729.0

	a61 = 9017.0 / 3168.0
	a62 = -355.0 / 33.0
	a63 = 46732.0 / 5247.0
	a64 = 49.0 / 176.0
	a65 = -5103.0 / 18656.0

	// b is the 5th-order solution weights; the 7th stage k7 reuses them
	// (b7 == a71..a76 by construction), which is exactly what makes DOPRI
	// FSAL.
	b1, b3, b4, b5, b6 = 35.0 / 384.0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0

	// bHat is the embedded 4th-order solution weights.
	bHat1 = 5179.0 / 57600.0
	bHat3 = 7571.0 / 16695.0
	bHat4 = 393.0 / 640.0
	bHat5 = -92097.0 / 339200.0
	bHat6 = 187.0 / 2100.0
	bHat7 = 1.0 / 40.0

	// e = b - bHat, the error-estimate coefficients.
	e1 = b1 - bHat1
	e3 = b3 - bHat3
	e4 = b4 - bHat4
	e5 = b5 - bHat5
	e6 = b6 - bHat6
	e7 = -bHat7
)

const (
	// stepperOrder is DOPRI5's order p, used by the adjustment policy.
	stepperOrder = 5
	safety       = 0.9
	minFactor    = 0.2
	maxFactor    = 5.0
)

// Derivative is the stage evaluator's contract as seen by the stepper: a
// pure function of (x, u, t) returning ẋ as a tangent vector of length
// x.TangentDim(), or an error (spec.md §4.2/§7).
type Derivative func(t float64, x dynamo.State, u dynamo.Control) ([]float64, error)

// phase names the stepper's lifecycle state (spec.md §4.1).
type phase int

const (
	fresh phase = iota
	armed
	stepping
)

// Stepper is the adaptive DOPRI5(4) integrator. It keeps the FSAL slope
// between steps and reuses a pool of scratch tangent buffers across steps;
// the stage slopes themselves are the slices the Derivative returns
// (spec.md §1 non-goals: bounded buffer reuse, not zero allocation).
type Stepper struct {
	TolRel, TolAbs float64

	phase phase
	k1    []float64 // carried across steps via FSAL once armed

	pool *bufferPool
}

// New returns a fresh Stepper with the given absolute/relative
// tolerances. Setting either to zero (or below machine epsilon) disables
// that criterion, per spec.md §6.
func New(tolRel, tolAbs float64) *Stepper {
	return &Stepper{TolRel: tolRel, TolAbs: tolAbs, phase: fresh}
}

// Reset returns the stepper to its fresh state, discarding the carried
// FSAL slope.
func (s *Stepper) Reset() {
	s.phase = fresh
	s.k1 = nil
}

// TryStep advances x by one adaptive step (spec.md §4.1). f0 is the slope
// at (t, x). When f0 is nil, the slope carried from the last accepted step
// (FSAL) is used if there is one; otherwise, as on the first call after
// construction or Reset, it is evaluated here. On accept,
// the returned state is the 5th-order solution and dtNext is the proposed
// next step size; on reject, the original x is returned unchanged and
// dtNext < dt.
func (s *Stepper) TryStep(deriv Derivative, t float64, x dynamo.State, f0 []float64, dt float64) (accepted bool, next dynamo.State, dtNext float64, err error) {
	nv := len(x.V)
	td := x.TangentDim()

	if s.pool == nil || s.pool.tangentDim != td {
		s.pool = newBufferPool(td)
	}

	k1 := f0
	if k1 == nil {
		if s.phase == armed && s.k1 != nil {
			k1 = s.k1
		} else {
			k1, err = deriv(t, x, nil)
			if err != nil {
				return false, x, dt * 0.1, nil
			}
		}
	}
	s.phase = armed

	buf := s.pool.get()
	defer s.pool.put(buf)

	scratch := buf.xi
	incr := buf.incr

	stageDeriv := func(coeffs []float64, ks [][]float64, c float64) ([]float64, error) {
		dynamo.SetZero(incr)
		for i, coeff := range coeffs {
			if coeff == 0 {
				continue
			}
			for d := 0; d < td; d++ {
				incr[d] += dt * coeff * ks[i][d]
			}
		}
		x.Sum(incr, &scratch)
		return deriv(t+c*dt, scratch, nil)
	}

	k2, err := stageDeriv([]float64{a21}, [][]float64{k1}, c2)
	if err != nil {
		return s.reject(x, dt, err)
	}
	k3, err := stageDeriv([]float64{a31, a32}, [][]float64{k1, k2}, c3)
	if err != nil {
		return s.reject(x, dt, err)
	}
	k4, err := stageDeriv([]float64{a41, a42, a43}, [][]float64{k1, k2, k3}, c4)
	if err != nil {
		return s.reject(x, dt, err)
	}
	k5, err := stageDeriv([]float64{a51, a52, a53, a54}, [][]float64{k1, k2, k3, k4}, c5)
	if err != nil {
		return s.reject(x, dt, err)
	}
	k6, err := stageDeriv([]float64{a61, a62, a63, a64, a65}, [][]float64{k1, k2, k3, k4, k5}, c6)
	if err != nil {
		return s.reject(x, dt, err)
	}

	dynamo.SetZero(incr)
	bcoef := []float64{b1, 0, b3, b4, b5, b6}
	bk := [][]float64{k1, k2, k3, k4, k5, k6}
	for i, coeff := range bcoef {
		if coeff == 0 {
			continue
		}
		for d := 0; d < td; d++ {
			incr[d] += dt * coeff * bk[i][d]
		}
	}
	mainSolution := dynamo.State{Layout: x.Layout, Q: make([]float64, len(x.Q)), V: make([]float64, nv)}
	x.Sum(incr, &mainSolution)

	k7, err := deriv(t+c7*dt, mainSolution, nil)
	if err != nil {
		return s.reject(x, dt, err)
	}

	errVec := buf.errVec
	dynamo.SetZero(errVec)
	ecoef := []float64{e1, 0, e3, e4, e5, e6, e7}
	ek := [][]float64{k1, k2, k3, k4, k5, k6, k7}
	for i, coeff := range ecoef {
		if coeff == 0 {
			continue
		}
		for d := 0; d < td; d++ {
			errVec[d] += dt * coeff * ek[i][d]
		}
	}

	errNorm, err := s.computeError(x, mainSolution, errVec, buf)
	if err != nil {
		return s.reject(x, dt, err)
	}

	accepted, newDt := adjustStep(errNorm, dt)
	if !accepted {
		return false, x, newDt, nil
	}

	s.k1 = append(s.k1[:0], k7...)
	return true, mainSolution, newDt, nil
}

func (s *Stepper) reject(x dynamo.State, dt float64, cause error) (bool, dynamo.State, float64, error) {
	// A failed evaluator call is a GENERIC error (spec.md §7): the
	// stepper treats it as an error signal larger than 1 and shrinks dt,
	// same as a numeric rejection, without propagating the error further
	// (the driver decides whether repeated rejections should abort).
	_ = cause
	return false, x, dt * minFactor, nil
}

// computeError implements spec.md §4.1's error estimate: construct the
// alternative solution x̂ = x ⊕ Δₑ, take ε = x_main ⊖ x̂, then the smaller
// of the absolute and relative infinity-norm errors.
func (s *Stepper) computeError(initial, mainSolution dynamo.State, errIncrement []float64, buf *buffers) (float64, error) {
	other := buf.other
	initial.Sum(errIncrement, &other)

	errTangent := buf.diff
	mainSolution.Difference(other, errTangent)

	errAbsNorm := math.Inf(1)
	if s.TolAbs > eps {
		errAbsNorm = dynamo.NormInf(errTangent) / s.TolAbs
	}

	errRelNorm := math.Inf(1)
	if s.TolRel > eps {
		scale := relativeScale(mainSolution, buf.scale)
		scaled := buf.scaled
		copy(scaled, errTangent)
		dynamo.ScaleInv(scaled, scale)
		errRelNorm = dynamo.NormInf(scaled) / s.TolRel
	}

	return math.Min(errAbsNorm, errRelNorm), nil
}

// eps is the machine-epsilon floor spec.md uses to decide whether a
// tolerance is "set" at all.
const eps = 2.220446049250313e-16

// relativeScale builds the per-component tangent-space magnitude used to
// rescale the error vector for the relative-tolerance criterion (Open
// Question 2 in SPEC_FULL.md): the element-wise maximum of the
// configuration's tangent-space distance from the manifold's canonical
// zero/identity and the raw velocity, floored away from zero so a
// momentarily-still, centered coordinate does not divide by zero.
func relativeScale(x dynamo.State, out []float64) []float64 {
	nv := len(x.V)
	qTangent := x.ConfigTangentFromIdentity()
	for i := 0; i < nv; i++ {
		m := math.Abs(qTangent[i])
		if v := math.Abs(x.V[i]); v > m {
			m = v
		}
		if m < 1e-10 {
			m = 1e-10
		}
		out[i] = m
		out[nv+i] = m
	}
	return out
}

// adjustStep implements spec.md §4.1's adjustment policy exactly.
func adjustStep(errNorm, dt float64) (accepted bool, dtNext float64) {
	if math.IsNaN(errNorm) {
		return false, dt * 0.1
	}
	if errNorm < 1.0 {
		if errNorm < math.Pow(safety, stepperOrder) {
			clamped := math.Max(errNorm, math.Pow(maxFactor/safety, -stepperOrder))
			dtNext = dt * safety * math.Pow(clamped, -1.0/stepperOrder)
		} else {
			dtNext = dt
		}
		return true, dtNext
	}
	dtNext = dt * math.Max(safety*math.Pow(errNorm, -1.0/(stepperOrder-2)), minFactor)
	return false, dtNext
}
