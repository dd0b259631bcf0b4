// Package evaluator computes ẋ = f(t, x, u) for the constrained system:
// it consults the mechanics oracle for M(q), b(q,v), folds in every
// attached constraint's Jacobian/drift, and solves the acceleration-level
// KKT system (spec.md §4.2).
package evaluator

import (
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// Evaluator is a pure function of (t, x, u) given the oracle's
// deterministic outputs. It never mutates constraint reference values.
type Evaluator struct {
	Oracle      oracle.Oracle
	Constraints *constraint.Set
}

// New builds an Evaluator over the given oracle and constraint set. A nil
// set is treated as empty (unconstrained system).
func New(o oracle.Oracle, cs *constraint.Set) *Evaluator {
	if cs == nil {
		cs = constraint.NewSet()
	}
	return &Evaluator{Oracle: o, Constraints: cs}
}

// Evaluate returns ẋ as a tangent vector of length x.TangentDim():
// the first half is v_map(q, v) (equal to v itself, since Sum retracts Q
// using this slice as the tangent velocity), the second half is the
// solved acceleration a. Constraint multipliers are stored back into the
// constraints on success; on failure nothing is mutated.
func (e *Evaluator) Evaluate(t float64, x dynamo.State, u dynamo.Control) ([]float64, error) {
	q, v := x.Q, x.V
	nv := len(v)

	m := e.Oracle.MassMatrix(q)
	b := e.Oracle.BiasForces(q, v)

	applied := make([]float64, nv)
	for i := 0; i < nv; i++ {
		if i < len(u) {
			applied[i] = u[i]
		}
		applied[i] -= b[i]
	}

	rows := e.Constraints.TotalRows()
	if rows == 0 {
		a, err := solveUnconstrained(m, applied)
		if err != nil {
			return nil, err
		}
		return assembleDerivative(v, a), nil
	}

	j, zeta, err := e.Constraints.Compute(q, v, nv)
	if err != nil {
		return nil, err
	}

	a, lambda, err := solveKKT(m, j, applied, zeta)
	if err != nil {
		return nil, err
	}

	e.Constraints.Distribute(lambda)
	return assembleDerivative(v, a), nil
}

func assembleDerivative(v, a []float64) []float64 {
	nv := len(v)
	out := make([]float64, 2*nv)
	copy(out[:nv], v)
	copy(out[nv:], a)
	return out
}

// solveUnconstrained solves M*a = rhs directly, skipping the KKT
// augmentation when there are no constraints.
func solveUnconstrained(m [][]float64, rhs []float64) ([]float64, error) {
	a, _, err := solveKKT(m, nil, rhs, nil)
	return a, err
}
