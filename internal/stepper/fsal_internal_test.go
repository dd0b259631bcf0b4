package stepper

import (
	"math"
	"testing"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

func fsalHarmonicDeriv(_ float64, x dynamo.State, _ dynamo.Control) ([]float64, error) {
	return []float64{x.V[0], -x.Q[0]}, nil
}

// TestFSALCarriedK1BitMatchesFreshK7 verifies invariant 2 directly against
// the unexported carry state: after an accepted step, s.k1 must be
// bit-for-bit the k7 the stepper itself computed at the new state, not
// merely numerically close to a fresh evaluation.
func TestFSALCarriedK1BitMatchesFreshK7(t *testing.T) {
	layout := dynamo.NewLayout(dynamo.Prismatic)
	sp := New(1e-9, 1e-12)

	x := dynamo.State{Layout: layout, Q: []float64{1.0}, V: []float64{0.0}}
	dt := 1e-3
	f0, err := fsalHarmonicDeriv(0, x, nil)
	if err != nil {
		t.Fatalf("f0: %v", err)
	}

	accepted, next, _, err := sp.TryStep(fsalHarmonicDeriv, 0, x, f0, dt)
	if err != nil || !accepted {
		t.Fatalf("expected an accepted step, got accepted=%v err=%v", accepted, err)
	}

	wantK7, err := fsalHarmonicDeriv(dt, next, nil)
	if err != nil {
		t.Fatalf("k7: %v", err)
	}
	if len(sp.k1) != len(wantK7) {
		t.Fatalf("carried k1 has length %d, want %d", len(sp.k1), len(wantK7))
	}
	for i := range wantK7 {
		if got, want := math.Float64bits(sp.k1[i]), math.Float64bits(wantK7[i]); got != want {
			t.Errorf("k1[%d] bits = %#x (%v), want %#x (%v)", i, got, sp.k1[i], want, wantK7[i])
		}
	}
}

// TestFSALCarryReusedOnNilF0MatchesExplicitK1 verifies that a caller
// passing f0=nil on the step following an accepted one gets exactly the
// carried k1 rather than triggering a fresh evaluation under a phase ==
// armed stepper — the reuse branch spec.md §4.1 describes.
func TestFSALCarryReusedOnNilF0MatchesExplicitK1(t *testing.T) {
	layout := dynamo.NewLayout(dynamo.Prismatic)
	dt := 1e-3

	x0 := dynamo.State{Layout: layout, Q: []float64{1.0}, V: []float64{0.0}}
	f0, err := fsalHarmonicDeriv(0, x0, nil)
	if err != nil {
		t.Fatalf("f0: %v", err)
	}

	spExplicit := New(1e-9, 1e-12)
	accepted, x1, _, err := spExplicit.TryStep(fsalHarmonicDeriv, 0, x0, f0, dt)
	if err != nil || !accepted {
		t.Fatalf("first step: accepted=%v err=%v", accepted, err)
	}
	explicitF1, err := fsalHarmonicDeriv(dt, x1, nil)
	if err != nil {
		t.Fatalf("explicit f1: %v", err)
	}
	accepted, wantNext, _, err := spExplicit.TryStep(fsalHarmonicDeriv, dt, x1, explicitF1, dt)
	if err != nil || !accepted {
		t.Fatalf("second step (explicit f0): accepted=%v err=%v", accepted, err)
	}

	spCarried := New(1e-9, 1e-12)
	accepted, x1Again, _, err := spCarried.TryStep(fsalHarmonicDeriv, 0, x0, f0, dt)
	if err != nil || !accepted {
		t.Fatalf("first step (carried run): accepted=%v err=%v", accepted, err)
	}
	accepted, gotNext, _, err := spCarried.TryStep(fsalHarmonicDeriv, dt, x1Again, nil, dt)
	if err != nil || !accepted {
		t.Fatalf("second step (f0=nil, carried): accepted=%v err=%v", accepted, err)
	}

	for i := range wantNext.Q {
		if math.Float64bits(gotNext.Q[i]) != math.Float64bits(wantNext.Q[i]) {
			t.Errorf("Q[%d] = %v, want %v (bit-exact)", i, gotNext.Q[i], wantNext.Q[i])
		}
	}
	for i := range wantNext.V {
		if math.Float64bits(gotNext.V[i]) != math.Float64bits(wantNext.V[i]) {
			t.Errorf("V[%d] = %v, want %v (bit-exact)", i, gotNext.V[i], wantNext.V[i])
		}
	}
}
