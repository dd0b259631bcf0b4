// Package constraint implements holonomic equality constraints and the
// Baumgarte-stabilized residuals the stage evaluator folds into the
// acceleration-level KKT system (spec.md §4.2).
package constraint

// Constraint is a polymorphic holonomic equality constraint. Reset
// captures reference values at a state; Compute returns the constraint's
// rows of J and ζ at the current state. SetMultiplier stores the most
// recently solved Lagrange multiplier back into the constraint so callers
// (telemetry, higher-level analysis) can inspect it between steps.
type Constraint interface {
	// Reset captures whatever reference values the constraint needs
	// (e.g. a reference distance) at (q, v). After Reset, the
	// constraint's residual is exactly zero at that state.
	Reset(q, v []float64) error

	// Compute returns this constraint's rows of the Jacobian J (rows x
	// dim(v)) and drift ζ (length rows), including any Baumgarte
	// stabilization term. It must not mutate reference values.
	Compute(q, v []float64) (j [][]float64, zeta []float64, err error)

	// Rows is the number of scalar equality rows this constraint
	// contributes (1 for DistanceConstraint).
	Rows() int

	// SetMultiplier stores the solved Lagrange multiplier rows for this
	// constraint.
	SetMultiplier(lambda []float64)

	// Multiplier returns the most recently stored multiplier.
	Multiplier() []float64

	// Gains returns the Baumgarte position/velocity feedback gains.
	Gains() (kp, kd float64)
}

// Set is an ordered collection of constraints, concatenated into a single
// J, ζ pair by the evaluator.
type Set struct {
	constraints []Constraint
}

// NewSet returns an empty constraint set.
func NewSet() *Set { return &Set{} }

// Add appends a constraint to the set.
func (s *Set) Add(c Constraint) { s.constraints = append(s.constraints, c) }

// Constraints returns the set's constraints in registration order.
func (s *Set) Constraints() []Constraint { return s.constraints }

// Reset resets every constraint in the set at (q, v).
func (s *Set) Reset(q, v []float64) error {
	for _, c := range s.constraints {
		if err := c.Reset(q, v); err != nil {
			return err
		}
	}
	return nil
}

// TotalRows sums the row counts of every constraint in the set.
func (s *Set) TotalRows() int {
	n := 0
	for _, c := range s.constraints {
		n += c.Rows()
	}
	return n
}

// Compute concatenates every constraint's J and ζ into one dense
// jacobian/drift pair, in registration order.
func (s *Set) Compute(q, v []float64, vDim int) (j [][]float64, zeta []float64, err error) {
	m := s.TotalRows()
	j = make([][]float64, 0, m)
	zeta = make([]float64, 0, m)
	for _, c := range s.constraints {
		cj, czeta, cerr := c.Compute(q, v)
		if cerr != nil {
			return nil, nil, cerr
		}
		j = append(j, cj...)
		zeta = append(zeta, czeta...)
	}
	return j, zeta, nil
}

// Distribute splits a concatenated multiplier vector back to each
// constraint's SetMultiplier, in registration order.
func (s *Set) Distribute(lambda []float64) {
	off := 0
	for _, c := range s.constraints {
		r := c.Rows()
		c.SetMultiplier(lambda[off : off+r])
		off += r
	}
}

// baseConstraint holds the fields shared by every Constraint
// implementation: the Baumgarte gains and the last solved multiplier.
type baseConstraint struct {
	kp, kd float64
	lambda []float64
}

func (b *baseConstraint) Gains() (float64, float64) { return b.kp, b.kd }
func (b *baseConstraint) SetMultiplier(l []float64) { b.lambda = append(b.lambda[:0], l...) }
func (b *baseConstraint) Multiplier() []float64     { return b.lambda }
