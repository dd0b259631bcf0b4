package ensemble_test

import (
	"context"
	"testing"

	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/driver"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/ensemble"
	"github.com/rigidkernel/simkernel/internal/models"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

func factory() (*driver.Driver, oracle.Oracle, *constraint.Set, error) {
	o := models.NewOscillator()
	cs := constraint.NewSet()
	cfg := config.DefaultConfig()
	cfg.Model = "oscillator"
	drv, err := driver.New(o, cs, control.NewNone(o.Layout().VDim), cfg, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return drv, o, cs, nil
}

func TestEnsembleRunsAllMembersIndependently(t *testing.T) {
	ens := ensemble.New(factory, 5, 1, 0.01)

	cfg := config.DefaultConfig()
	cfg.Duration = 0.05
	x0 := dynamo.State{Layout: models.NewOscillator().Layout(), Q: []float64{1.0}, V: []float64{0.0}}

	members := ens.Run(context.Background(), x0, cfg)
	if len(members) != 5 {
		t.Fatalf("expected 5 members, got %d", len(members))
	}

	seeds := make(map[int64]bool)
	for _, m := range members {
		if m.Err != nil {
			t.Errorf("member seed %d errored: %v", m.Seed, m.Err)
		}
		if m.Result == nil || len(m.Result.States) == 0 {
			t.Errorf("member seed %d produced no states", m.Seed)
		}
		seeds[m.Seed] = true
	}
	if len(seeds) != 5 {
		t.Errorf("expected 5 distinct seeds, got %d", len(seeds))
	}
}

func TestEnsembleZeroPerturbationStartsIdentically(t *testing.T) {
	ens := ensemble.New(factory, 3, 1, 0.0)
	cfg := config.DefaultConfig()
	cfg.Duration = 0.02
	x0 := dynamo.State{Layout: models.NewOscillator().Layout(), Q: []float64{2.0}, V: []float64{0.0}}

	members := ens.Run(context.Background(), x0, cfg)
	for _, m := range members {
		if m.Err != nil {
			t.Fatalf("unexpected error: %v", m.Err)
		}
		if m.Result.States[0].Q[0] != 2.0 || m.Result.States[0].V[0] != 0.0 {
			t.Errorf("member seed %d did not start at x0: %+v", m.Seed, m.Result.States[0])
		}
	}
}
