// Package tuning brute-force searches a controller's gains for the
// setting that best minimizes an observed metric across a full
// simulation run. Adapted from
// _examples/san-kum-dynsim/internal/optim/grid_search.go's recursive
// per-parameter grid walk, which built one of the teacher's
// experiment.Experiment values per candidate; this version builds one
// internal/driver.Driver per candidate instead, since experiment's
// flat-vector Dynamics abstraction no longer exists.
package tuning

import (
	"context"
	"math"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/metrics"
)

// Trial builds and runs one simulation for a candidate assignment of
// swept parameter values (by name), then returns the metric value to
// minimize. A non-nil error drops the candidate from consideration.
type Trial func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch exhaustively walks the Cartesian product of paramNames x
// ranges, keeping the assignment that yields the smallest metric value.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// NewGridSearch builds a search over the named parameters, each swept
// across its corresponding entry in ranges (ranges[i] holds the
// candidate values for paramNames[i]).
func NewGridSearch(paramNames []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: paramNames, ranges: ranges}
}

// Search runs trial once per point in the grid and returns the
// best-scoring parameter assignment and its metric value. If every trial
// fails, bestParams is nil and best is +Inf.
func (g *GridSearch) Search(ctx context.Context, trial Trial) (bestParams map[string]float64, best float64) {
	best = math.Inf(1)
	g.searchRecursive(ctx, 0, make(map[string]float64), trial, &best, &bestParams)
	return bestParams, best
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, trial Trial, best *float64, bestParams *map[string]float64) {
	if depth == len(g.paramNames) {
		val, err := trial(ctx, current)
		if err != nil {
			return
		}
		if val < *best {
			*best = val
			snapshot := make(map[string]float64, len(current))
			for k, v := range current {
				snapshot[k] = v
			}
			*bestParams = snapshot
		}
		return
	}

	name := g.paramNames[depth]
	for _, v := range g.ranges[depth] {
		current[name] = v
		g.searchRecursive(ctx, depth+1, current, trial, best, bestParams)
	}
}

// MetricTrial adapts a metric to the Trial signature: it runs run to
// completion, feeds the result through metric, and returns metric's
// final value. build constructs a fresh, unshared controller/oracle pair
// for each candidate so trials never see another trial's mutated state.
func MetricTrial(build func(params map[string]float64) (run func() (*dynamo.Result, error), metric metrics.Metric, err error)) Trial {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		run, metric, err := build(params)
		if err != nil {
			return 0, err
		}
		result, err := run()
		if err != nil {
			return 0, err
		}
		metric.Reset()
		metrics.ObserveResult([]metrics.Metric{metric}, result)
		return metric.Value(), nil
	}
}
