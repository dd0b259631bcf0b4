package metrics

import (
	"math"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// KineticEnergy tracks the running average of 0.5 * v^T M(q) v, the
// generic kinetic energy any oracle.Oracle's mass matrix supports,
// regardless of joint topology.
type KineticEnergy struct {
	name    string
	oracle  oracle.Oracle
	samples int
	total   float64
}

// NewKineticEnergy returns a KineticEnergy metric backed by o's mass
// matrix.
func NewKineticEnergy(o oracle.Oracle) *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy", oracle: o}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	e := computeKineticEnergy(k.oracle, x)
	k.total += e
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.total = 0
	k.samples = 0
}

// EnergyDrift tracks the largest relative deviation of kinetic energy
// from its value at the first observed sample: a diagnostic for whether
// the stepper's tolerances are loose enough to leak energy into an
// otherwise-conservative system.
type EnergyDrift struct {
	name     string
	oracle   oracle.Oracle
	initial  float64
	maxDrift float64
	samples  int
}

// NewEnergyDrift returns an EnergyDrift metric backed by o's mass matrix.
func NewEnergyDrift(o oracle.Oracle) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", oracle: o}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	energy := computeKineticEnergy(e.oracle, x)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++
	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

func computeKineticEnergy(o oracle.Oracle, x dynamo.State) float64 {
	m := o.MassMatrix(x.Q)
	energy := 0.0
	for i, row := range m {
		mv := 0.0
		for j, mij := range row {
			mv += mij * x.V[j]
		}
		energy += 0.5 * x.V[i] * mv
	}
	return energy
}
