package driver_test

import (
	"math"
	"testing"

	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/driver"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/models"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

func TestRunOscillatorTracksAnalyticSolution(t *testing.T) {
	o := models.NewOscillator()
	cs := constraint.NewSet()

	cfg := config.DefaultConfig()
	cfg.Model = "oscillator"

	drv, err := driver.New(o, cs, control.NewNone(o.Layout().VDim), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	x0 := dynamo.State{Layout: o.Layout(), Q: []float64{1.0}, V: []float64{0.0}}
	result, err := drv.Run(x0, cfg.InitDt, cfg.MinDt, cfg.MaxDt, math.Pi)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	final := result.States[len(result.States)-1]
	want := math.Cos(result.Times[len(result.Times)-1])
	if math.Abs(final.Q[0]-want) > 1e-5 {
		t.Errorf("q(pi) = %.6f, want ~%.6f", final.Q[0], want)
	}
}

func TestRunTetheredPointsMaintainsDistanceConstraint(t *testing.T) {
	o := models.NewTetheredPoints()
	modelRef := constraint.NewModelRef(&oracle.Model{Oracle: o})
	dc := constraint.NewDistanceConstraint(modelRef, "A", "B", 1000.0, 20.0, o.Layout().VDim)
	cs := constraint.NewSet()
	cs.Add(dc)

	x0 := dynamo.State{
		Layout: o.Layout(),
		Q:      []float64{0, 0, 0, 1, 0, 0},
		V:      []float64{0, 0, 0, 0, 1, 0},
	}
	if err := cs.Reset(x0.Q, x0.V); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Model = "tethered_points"
	drv, err := driver.New(o, cs, control.NewNone(o.Layout().VDim), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := drv.Run(x0, cfg.InitDt, cfg.MinDt, cfg.MaxDt, 1.0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	final := result.States[len(result.States)-1]
	dx, dy, dz := final.Q[0]-final.Q[3], final.Q[1]-final.Q[4], final.Q[2]-final.Q[5]
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if math.Abs(dist-1.0) > 1e-3 {
		t.Errorf("|AB| drifted to %.6f, want ~1.0", dist)
	}
}

// countingController wraps a Controller and counts how many times Compute
// is actually invoked, letting a test observe the FSAL control-sampling
// cadence from the outside.
type countingController struct {
	control.Controller
	calls int
}

func (c *countingController) Compute(x dynamo.State, t float64) dynamo.Control {
	c.calls++
	return c.Controller.Compute(x, t)
}

func TestRunResamplesControllerEveryOtherAcceptedStepForFSAL(t *testing.T) {
	o := models.NewOscillator()
	cs := constraint.NewSet()
	cfg := config.DefaultConfig()
	cfg.Model = "oscillator"

	ctrl := &countingController{Controller: control.NewPID(0.1, 0, 0, 0, o.Layout().VDim)}
	drv, err := driver.New(o, cs, ctrl, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	x0 := dynamo.State{Layout: o.Layout(), Q: []float64{1.0}, V: []float64{0.0}}
	result, err := drv.Run(x0, cfg.InitDt, cfg.MinDt, cfg.MaxDt, 0.1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	// One Compute call before the loop starts, then one more on every
	// second accepted step (steps 2, 4, 6, ...): if the FSAL carry were
	// dead (resampled every step, as before this fix), calls would equal
	// StepsTaken+1 instead.
	wantCalls := 1 + result.StepsTaken/2
	if ctrl.calls != wantCalls {
		t.Errorf("controller.Compute called %d times over %d accepted steps, want %d (resampled every other step)", ctrl.calls, result.StepsTaken, wantCalls)
	}
}

func TestRunInvokesOnStepPerAcceptedStep(t *testing.T) {
	o := models.NewOscillator()
	cs := constraint.NewSet()
	cfg := config.DefaultConfig()
	cfg.Model = "oscillator"

	drv, err := driver.New(o, cs, control.NewNone(o.Layout().VDim), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var calls int
	drv.OnStep = func(t float64, x dynamo.State, u dynamo.Control) { calls++ }

	x0 := dynamo.State{Layout: o.Layout(), Q: []float64{1.0}, V: []float64{0.0}}
	result, err := drv.Run(x0, cfg.InitDt, cfg.MinDt, cfg.MaxDt, 0.1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls != len(result.States) {
		t.Errorf("OnStep called %d times, want %d (one per recorded state)", calls, len(result.States))
	}
}
