package evaluator

import (
	"testing"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

func TestSolveKKTUnconstrainedSolvesMassMatrixDirectly(t *testing.T) {
	m := [][]float64{{2.0}}
	rhs := []float64{4.0}

	a, lambda, err := solveKKT(m, nil, rhs, nil)
	if err != nil {
		t.Fatalf("solveKKT: %v", err)
	}
	if len(lambda) != 0 {
		t.Fatalf("expected no multipliers, got %v", lambda)
	}
	if got, want := a[0], 2.0; got != want {
		t.Fatalf("a[0] = %g, want %g", got, want)
	}
}

func TestSolveKKTConstrainedMatchesHandSolvedSystem(t *testing.T) {
	m := [][]float64{{1, 0}, {0, 1}}
	j := [][]float64{{1, 0}}
	rhs := []float64{1, 1}
	zeta := []float64{0}

	a, lambda, err := solveKKT(m, j, rhs, zeta)
	if err != nil {
		t.Fatalf("solveKKT: %v", err)
	}

	wantA := []float64{0, 1}
	for i, want := range wantA {
		if a[i] != want {
			t.Errorf("a[%d] = %g, want %g", i, a[i], want)
		}
	}
	if lambda[0] != -1 {
		t.Errorf("lambda[0] = %g, want -1", lambda[0])
	}
}

func TestSolveKKTReportsSingularMatrixAsGenericError(t *testing.T) {
	m := [][]float64{{0.0}}
	rhs := []float64{1.0}

	_, _, err := solveKKT(m, nil, rhs, nil)
	if err == nil {
		t.Fatal("expected an error for a singular mass matrix")
	}

	kernelErr, ok := err.(*dynamo.KernelError)
	if !ok {
		t.Fatalf("expected *dynamo.KernelError, got %T", err)
	}
	if kernelErr.Kind != dynamo.ErrorKindGeneric {
		t.Errorf("Kind = %v, want ErrorKindGeneric", kernelErr.Kind)
	}
}

func TestEvaluateReportsSingularMassMatrixThroughEvaluate(t *testing.T) {
	o := &singularOracle{}
	ev := New(o, nil)

	layout := o.Layout()
	x := dynamo.State{Layout: layout, Q: []float64{0}, V: []float64{0}}

	_, err := ev.Evaluate(0, x, nil)
	if err == nil {
		t.Fatal("expected an error from a singular mass matrix")
	}
	kernelErr, ok := err.(*dynamo.KernelError)
	if !ok {
		t.Fatalf("expected *dynamo.KernelError, got %T", err)
	}
	if kernelErr.Kind != dynamo.ErrorKindGeneric {
		t.Errorf("Kind = %v, want ErrorKindGeneric", kernelErr.Kind)
	}
}

// singularOracle reports a zero mass matrix, which is unsolvable
// regardless of the applied force, exercising kkt.go's singular-matrix
// failure path through Evaluate rather than solveKKT directly.
type singularOracle struct {
	layout *dynamo.Layout
}

func (o *singularOracle) Layout() *dynamo.Layout {
	if o.layout == nil {
		o.layout = dynamo.NewLayout(dynamo.Prismatic)
	}
	return o.layout
}

func (o *singularOracle) MassMatrix(q []float64) [][]float64  { return [][]float64{{0.0}} }
func (o *singularOracle) BiasForces(q, v []float64) []float64 { return []float64{0.0} }

func (o *singularOracle) Frame(name string, q, v []float64) (oracle.Frame, bool) {
	return oracle.Frame{}, false
}

func (o *singularOracle) FrameJacobian(name string, q []float64) ([][]float64, bool) {
	return nil, false
}
