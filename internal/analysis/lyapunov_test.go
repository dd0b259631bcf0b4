package analysis_test

import (
	"testing"

	"github.com/rigidkernel/simkernel/internal/analysis"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/evaluator"
	"github.com/rigidkernel/simkernel/internal/models"
)

func TestLyapunovExponentNonPositiveForHarmonicOscillator(t *testing.T) {
	o := models.NewOscillator()
	cs := constraint.NewSet()
	ev := evaluator.New(o, cs)
	ctrl := control.NewNone(o.Layout().VDim)

	x0 := dynamo.State{Layout: o.Layout(), Q: []float64{1.0}, V: []float64{0.0}}
	lambda, err := analysis.LyapunovExponent(ev, ctrl, x0, 1e-3, 5.0, 1e-6)
	if err != nil {
		t.Fatalf("LyapunovExponent: %v", err)
	}

	// A linear, non-chaotic system's nearby trajectories separate at
	// most linearly, never exponentially: the estimated exponent should
	// not be meaningfully positive.
	if lambda > 0.5 {
		t.Errorf("expected a non-positive (or near-zero) exponent for a harmonic oscillator, got %f", lambda)
	}
}

func TestGeneratePhasePortraitOnePointPerState(t *testing.T) {
	o := models.NewOscillator()
	result := &dynamo.Result{
		States: []dynamo.State{
			{Layout: o.Layout(), Q: []float64{1.0}, V: []float64{0.0}},
			{Layout: o.Layout(), Q: []float64{0.5}, V: []float64{-0.5}},
		},
	}

	portrait := analysis.GeneratePhasePortrait(result, "q", "v", func(s dynamo.State) (float64, float64) {
		return s.Q[0], s.V[0]
	})

	if len(portrait.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(portrait.Points))
	}
	if portrait.Points[1].X != 0.5 || portrait.Points[1].Y != -0.5 {
		t.Errorf("unexpected point: %+v", portrait.Points[1])
	}
}
