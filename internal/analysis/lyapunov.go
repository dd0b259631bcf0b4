package analysis

import (
	"math"

	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/evaluator"
)

// LyapunovExponent estimates the largest Lyapunov exponent of ev's
// dynamics by integrating two nearby trajectories at a fixed step and
// tracking their tangent-space separation, renormalizing whenever it
// grows past 1. A positive result indicates chaotic dynamics.
//
// Adapted from
// _examples/san-kum-dynsim/internal/analysis/lyapunov.go's
// trajectory-separation method, generalized from a flat state vector to
// dynamo.State's manifold retraction (Sum) and inverse retraction
// (Difference), and from a pluggable dynamo.Integrator to a fixed-step
// RK4 evaluated directly against the constrained evaluator.
func LyapunovExponent(ev *evaluator.Evaluator, ctrl control.Controller, x0 dynamo.State, dt, duration, perturbation float64) (float64, error) {
	delta := make([]float64, x0.TangentDim())
	delta[0] = perturbation
	var xp dynamo.State
	x0.Sum(delta, &xp)

	x := x0.Clone()
	d0 := perturbation
	t := 0.0
	sumLog := 0.0
	count := 0
	diff := make([]float64, x0.TangentDim())

	for t < duration {
		nx, err := rk4Step(ev, ctrl, x, t, dt)
		if err != nil {
			return 0, err
		}
		nxp, err := rk4Step(ev, ctrl, xp, t, dt)
		if err != nil {
			return 0, err
		}
		t += dt
		x, xp = nx, nxp

		x.Difference(xp, diff)
		sep := dynamo.NormInf(diff)
		if sep > 0 && d0 > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}
		if sep > 1.0 {
			scale := d0 / sep
			for i := range diff {
				diff[i] *= scale
			}
			x.Sum(diff, &xp)
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}

// rk4Step advances x by one fixed step of dt using classical 4th-order
// Runge-Kutta, with every stage's midpoint state formed via the
// manifold retraction Sum so quaternion joints stay normalized. The
// controller is sampled once per step and held across all four stages
// (internal/driver.Run instead holds it across pairs of accepted steps).
func rk4Step(ev *evaluator.Evaluator, ctrl control.Controller, x dynamo.State, t, dt float64) (dynamo.State, error) {
	u := ctrl.Compute(x, t)
	deriv := func(tt float64, xx dynamo.State) ([]float64, error) {
		return ev.Evaluate(tt, xx, u)
	}

	nv := x.TangentDim()
	k1, err := deriv(t, x)
	if err != nil {
		return dynamo.State{}, err
	}

	var x2, x3, x4 dynamo.State
	scratch := make([]float64, nv)

	scaleInto(scratch, k1, dt/2)
	x.Sum(scratch, &x2)
	k2, err := deriv(t+dt/2, x2)
	if err != nil {
		return dynamo.State{}, err
	}

	scaleInto(scratch, k2, dt/2)
	x.Sum(scratch, &x3)
	k3, err := deriv(t+dt/2, x3)
	if err != nil {
		return dynamo.State{}, err
	}

	scaleInto(scratch, k3, dt)
	x.Sum(scratch, &x4)
	k4, err := deriv(t+dt, x4)
	if err != nil {
		return dynamo.State{}, err
	}

	for i := 0; i < nv; i++ {
		scratch[i] = (dt / 6) * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}
	var next dynamo.State
	x.Sum(scratch, &next)
	return next, nil
}

func scaleInto(dst, src []float64, factor float64) {
	for i, v := range src {
		dst[i] = v * factor
	}
}
