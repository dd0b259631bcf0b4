// Package metrics computes post-run summary statistics over a completed
// dynamo.Result: control effort, state-magnitude stability, and kinetic
// energy drift. Adapted from
// _examples/san-kum-dynsim/internal/dynamo/types.go's Metric interface and
// _examples/san-kum-dynsim/internal/metrics/*.go, generalized from the
// teacher's flat pendulum state to the manifold dynamo.State and an
// oracle.Oracle-supplied mass matrix.
package metrics

import "github.com/rigidkernel/simkernel/internal/dynamo"

// Metric accumulates one statistic across a trajectory's samples.
type Metric interface {
	Name() string
	Observe(x dynamo.State, u dynamo.Control, t float64)
	Value() float64
	Reset()
}

// ObserveResult feeds every recorded (state, control, time) triple in
// result to every metric in ms, in order.
func ObserveResult(ms []Metric, result *dynamo.Result) {
	for i, x := range result.States {
		var u dynamo.Control
		if i < len(result.Controls) {
			u = result.Controls[i]
		}
		t := 0.0
		if i < len(result.Times) {
			t = result.Times[i]
		}
		for _, m := range ms {
			m.Observe(x, u, t)
		}
	}
}
