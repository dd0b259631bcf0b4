package driver

import (
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/kernellog"
)

// Run integrates from x0 at t=0 to duration, appending one telemetry line
// per accepted step, and returns the accumulated dynamo.Result. It never
// panics on a numerical failure: a hard evaluator error or exhausted
// rejection budget ends the run early and is recorded in the result's
// Errors slice, with everything integrated so far preserved.
//
// Control sampling and FSAL: u is held fixed (zero-order hold) across
// every internal RK stage of a step, same as before, but it is now
// resampled only every other accepted step instead of every step. The
// stepper's k7 output of a step computed under a given u is a valid k1
// for the following step only if that step is driven by the same u
// (spec.md §4.1's FSAL contract); holding u across exactly the pair of
// steps the carried k1 spans is what lets that step pass f0=nil and
// actually reuse the stepper's internally-carried slope instead of
// recomputing it. Resampling every step, as an earlier version of this
// loop did, made the carry permanently unreachable and forced an
// explicit deriv call on every step regardless.
func (d *Driver) Run(x0 dynamo.State, initDt, minDt, maxDt, duration float64) (*dynamo.Result, error) {
	result := &dynamo.Result{}

	var u dynamo.Control
	deriv := func(t float64, x dynamo.State, _ dynamo.Control) ([]float64, error) {
		return d.Evaluator.Evaluate(t, x, u)
	}

	x := x0.Clone()
	t := 0.0
	dt := initDt

	u = d.Controller.Compute(x, t)
	f0, err := deriv(t, x, nil)
	if err != nil {
		kernellog.StepFailed(d.Log, t, err)
		result.Errors = append(result.Errors, err)
		return result, nil
	}

	if err := d.recordLine(t, x); err != nil {
		return result, err
	}
	result.States = append(result.States, x.Clone())
	result.Controls = append(result.Controls, u)
	result.Times = append(result.Times, t)
	if d.OnStep != nil {
		d.OnStep(t, x, u)
	}

	consecutiveRejections := 0
	carry := false
	for t < duration {
		if t+dt > duration {
			dt = duration - t
		}

		accepted, next, dtNext, stepErr := d.Stepper.TryStep(deriv, t, x, f0, dt)
		if stepErr != nil {
			kernellog.StepFailed(d.Log, t, stepErr)
			result.Errors = append(result.Errors, stepErr)
			break
		}

		dtNext = clamp(dtNext, minDt, maxDt)

		if !accepted {
			result.Rejections++
			kernellog.StepRejected(d.Log, t, dt, dtNext)
			consecutiveRejections++
			if consecutiveRejections > maxConsecutiveRejections {
				stuckErr := dynamo.SimError{Time: t, Step: result.StepsTaken, Message: "exceeded maximum consecutive step rejections"}
				result.Errors = append(result.Errors, stuckErr)
				break
			}
			if dtNext < minDt {
				dtNext = minDt
			}
			dt = dtNext
			continue
		}

		consecutiveRejections = 0
		t += dt
		x = next
		dt = dtNext
		result.StepsTaken++

		if carry {
			// The step just accepted was driven by the same u as the one
			// before it, so its k7 spans this boundary too; resample the
			// controller now and pay for one explicit evaluation.
			u = d.Controller.Compute(x, t)
			nextF0, err := deriv(t, x, nil)
			if err != nil {
				kernellog.StepFailed(d.Log, t, err)
				result.Errors = append(result.Errors, err)
				break
			}
			f0 = nextF0
			carry = false
		} else {
			// Hold u fixed for one more step: the k7 the stepper just
			// computed under u is a valid k1 for the next step only as
			// long as that step is driven by the same u, so defer
			// resampling and let TryStep reuse its carried slope.
			f0 = nil
			carry = true
		}

		if err := d.recordLine(t, x); err != nil {
			return result, err
		}
		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
		if d.OnStep != nil {
			d.OnStep(t, x, u)
		}
	}

	kernellog.RunCompleted(d.Log, result.StepsTaken, result.Rejections, lastTime(result.Times))
	return result, nil
}

func (d *Driver) recordLine(t float64, x dynamo.State) error {
	for i, p := range d.tX {
		*p = x.Q[i]
	}
	for i, p := range d.tV {
		*p = x.V[i]
	}
	li := 0
	for _, c := range d.Evaluator.Constraints.Constraints() {
		for _, lambda := range c.Multiplier() {
			if li < len(d.tLambda) {
				*d.tLambda[li] = lambda
				li++
			}
		}
	}
	return d.Recorder.Append(t)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lastTime(times []float64) float64 {
	if len(times) == 0 {
		return 0
	}
	return times[len(times)-1]
}
