package metrics

import (
	"math"
	"testing"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/models"
)

func TestKineticEnergyMatchesHalfMV2(t *testing.T) {
	o := models.NewOscillator()
	m := NewKineticEnergy(o)

	x := dynamo.State{Layout: o.Layout(), Q: []float64{0.5}, V: []float64{2.0}}
	m.Observe(x, nil, 0)

	expected := 0.5 * 2.0 * 2.0
	if got := m.Value(); math.Abs(got-expected) > 1e-9 {
		t.Errorf("expected kinetic energy %f, got %f", expected, got)
	}
}

func TestKineticEnergyReset(t *testing.T) {
	o := models.NewOscillator()
	m := NewKineticEnergy(o)

	x := dynamo.State{Layout: o.Layout(), Q: []float64{0.0}, V: []float64{1.0}}
	m.Observe(x, nil, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDriftZeroForConstantVelocity(t *testing.T) {
	o := models.NewOscillator()
	m := NewEnergyDrift(o)

	x := dynamo.State{Layout: o.Layout(), Q: []float64{0.0}, V: []float64{3.0}}
	for i := 0; i < 5; i++ {
		x.Q[0] += 0.1
		m.Observe(x, nil, float64(i))
	}

	if got := m.Value(); got > 1e-9 {
		t.Errorf("expected zero drift for constant velocity, got %f", got)
	}
}
