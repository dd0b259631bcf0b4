package stepper_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/stepper"
)

// harmonicDeriv is q̈ = -q, i.e. ẋ = (v, -q): the same dynamics as the
// unit-mass oscillator model, whose closed form q(t) = q0*cos(t) makes
// per-step accuracy directly checkable without pulling in the evaluator.
func harmonicDeriv(_ float64, x dynamo.State, _ dynamo.Control) ([]float64, error) {
	return []float64{x.V[0], -x.Q[0]}, nil
}

var _ = Describe("DOPRI5 stepper", func() {
	var (
		layout *dynamo.Layout
		sp     *stepper.Stepper
	)

	BeforeEach(func() {
		layout = dynamo.NewLayout(dynamo.Prismatic)
		sp = stepper.New(1e-9, 1e-12)
	})

	It("accepts a well-resolved step and tracks the analytic solution", func() {
		x := dynamo.State{Layout: layout, Q: []float64{1.0}, V: []float64{0.0}}
		f0, err := harmonicDeriv(0, x, nil)
		Expect(err).NotTo(HaveOccurred())

		dt := 1e-3
		accepted, next, dtNext, err := sp.TryStep(harmonicDeriv, 0, x, f0, dt)
		Expect(err).NotTo(HaveOccurred())
		Expect(accepted).To(BeTrue())
		Expect(dtNext).To(BeNumerically(">", 0))

		wantQ := math.Cos(dt)
		Expect(next.Q[0]).To(BeNumerically("~", wantQ, 1e-8))
	})

	It("conserves energy closely over many accepted steps", func() {
		x := dynamo.State{Layout: layout, Q: []float64{1.0}, V: []float64{0.0}}
		f0, err := harmonicDeriv(0, x, nil)
		Expect(err).NotTo(HaveOccurred())

		t, dt := 0.0, 1e-2
		initialEnergy := 0.5*x.V[0]*x.V[0] + 0.5*x.Q[0]*x.Q[0]

		for t < 2*math.Pi {
			accepted, next, dtNext, err := sp.TryStep(harmonicDeriv, t, x, f0, dt)
			Expect(err).NotTo(HaveOccurred())
			if !accepted {
				dt = dtNext
				continue
			}
			t += dt
			x = next
			dt = dtNext
			f0, err = harmonicDeriv(t, x, nil)
			Expect(err).NotTo(HaveOccurred())
		}

		finalEnergy := 0.5*x.V[0]*x.V[0] + 0.5*x.Q[0]*x.Q[0]
		Expect(finalEnergy).To(BeNumerically("~", initialEnergy, 1e-6))
	})

	It("shrinks dt and rejects when the tolerance is impossibly tight relative to dt", func() {
		tight := stepper.New(1e-14, 1e-16)
		x := dynamo.State{Layout: layout, Q: []float64{1.0}, V: []float64{0.0}}
		f0, err := harmonicDeriv(0, x, nil)
		Expect(err).NotTo(HaveOccurred())

		accepted, _, dtNext, err := tight.TryStep(harmonicDeriv, 0, x, f0, 1.0)
		Expect(err).NotTo(HaveOccurred())
		Expect(accepted).To(BeFalse())
		Expect(dtNext).To(BeNumerically("<", 1.0))
	})

	It("rejects a step whose derivative evaluates to NaN instead of propagating it", func() {
		nanDeriv := func(_ float64, x dynamo.State, _ dynamo.Control) ([]float64, error) {
			return []float64{math.NaN(), math.NaN()}, nil
		}
		x := dynamo.State{Layout: layout, Q: []float64{1.0}, V: []float64{0.0}}
		f0, err := nanDeriv(0, x, nil)
		Expect(err).NotTo(HaveOccurred())

		accepted, next, dtNext, err := sp.TryStep(nanDeriv, 0, x, f0, 1e-3)
		Expect(err).NotTo(HaveOccurred())
		Expect(accepted).To(BeFalse())
		Expect(dtNext).To(BeNumerically("<", 1e-3))
		Expect(next.Q[0]).To(Equal(1.0), "a rejected step must return the original state unchanged")
	})

	It("divides the global error by roughly 2^5 when dt is halved (5th-order convergence)", func() {
		// A loose stepper never rejects on this smooth system regardless
		// of dt, isolating the tableau's truncation-error order from the
		// adaptive step-size controller's own behavior.
		loose := stepper.New(1e6, 1e6)
		integrate := func(dt float64, steps int) float64 {
			x := dynamo.State{Layout: layout, Q: []float64{1.0}, V: []float64{0.0}}
			t := 0.0
			f0, err := harmonicDeriv(t, x, nil)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < steps; i++ {
				accepted, next, _, err := loose.TryStep(harmonicDeriv, t, x, f0, dt)
				Expect(err).NotTo(HaveOccurred())
				Expect(accepted).To(BeTrue())
				x = next
				t += dt
				f0, err = harmonicDeriv(t, x, nil)
				Expect(err).NotTo(HaveOccurred())
			}
			return x.Q[0]
		}

		want := math.Cos(1.0)
		errCoarse := math.Abs(integrate(0.1, 10) - want)
		errFine := math.Abs(integrate(0.05, 20) - want)

		Expect(errFine).To(BeNumerically(">", 0), "test is meaningless if the fine step is already exact to float64 precision")
		ratio := errCoarse / errFine
		Expect(math.Log2(ratio)).To(BeNumerically("~", 5.0, 1.0))
	})
})
