// Package ensemble runs many independent copies of a simulation
// concurrently, perturbing each copy's initial velocity by a fixed seed
// offset — useful for Monte-Carlo sensitivity sweeps around one nominal
// initial condition. Adapted from
// _examples/san-kum-dynsim/internal/sim/parallel.go's goroutine
// fan-out, generalized from the teacher's single flat-state Simulator to
// one fresh internal/driver.Driver per member (each Driver owns its own
// stepper/evaluator/telemetry schema, so members share no mutable
// state).
package ensemble

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/driver"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/metrics"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// Member is one ensemble run's outcome: its perturbation seed, the
// completed result, its mean kinetic energy, and any error the run
// produced.
type Member struct {
	Seed        int64
	Result      *dynamo.Result
	MeanKinetic float64
	Err         error
}

// DriverFactory builds one fresh Driver, model, and Set for a single
// ensemble member, so New's caller controls how the model/controller/
// constraints are constructed without ensemble needing to import
// internal/registry itself.
type DriverFactory func() (*driver.Driver, oracle.Oracle, *constraint.Set, error)

// Ensemble runs numRuns independent copies of a simulation, each built
// fresh by factory and perturbed by an independent draw from a
// seedStart-derived source, and collects their results concurrently.
type Ensemble struct {
	factory      DriverFactory
	numRuns      int
	seedStart    int64
	perturbation float64
}

// New returns an Ensemble of numRuns members, each built by factory and
// perturbed in velocity by up to perturbation (uniform, symmetric)
// around x0.
func New(factory DriverFactory, numRuns int, seedStart int64, perturbation float64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart, perturbation: perturbation}
}

// Run launches every member concurrently and blocks until all of them
// return. ctx is checked as each member starts: a member that starts after
// ctx is canceled records ctx.Err() without running, while a member that
// is already running finishes its run. A per-member panic is captured on
// that Member's Err, and evaluator failures inside a run land in that
// Member's Result.Errors; neither aborts the rest of the ensemble.
func (e *Ensemble) Run(ctx context.Context, x0 dynamo.State, cfg *config.Config) []Member {
	members := make([]Member, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					members[idx].Err = fmt.Errorf("ensemble member %d panicked: %v", idx, r)
				}
			}()

			seed := e.seedStart + int64(idx)
			members[idx].Seed = seed

			select {
			case <-ctx.Done():
				members[idx].Err = ctx.Err()
				return
			default:
			}

			drv, o, cs, err := e.factory()
			if err != nil {
				members[idx].Err = err
				return
			}

			x := perturb(x0, seed, e.perturbation)
			if err := cs.Reset(x.Q, x.V); err != nil {
				members[idx].Err = err
				return
			}

			result, err := drv.Run(x, cfg.InitDt, cfg.MinDt, cfg.MaxDt, cfg.Duration)
			members[idx].Result = result
			members[idx].Err = err
			if err == nil {
				ke := metrics.NewKineticEnergy(o)
				metrics.ObserveResult([]metrics.Metric{ke}, result)
				members[idx].MeanKinetic = ke.Value()
			}
		}(i)
	}
	wg.Wait()

	return members
}

// perturb returns a copy of x0 with every velocity component nudged by
// an independent uniform draw in [-perturbation, perturbation], seeded
// deterministically so a member's run is reproducible.
func perturb(x0 dynamo.State, seed int64, perturbation float64) dynamo.State {
	x := x0.Clone()
	if perturbation == 0 {
		return x
	}
	r := rand.New(rand.NewSource(seed))
	for i := range x.V {
		x.V[i] += (r.Float64()*2 - 1) * perturbation
	}
	return x
}
