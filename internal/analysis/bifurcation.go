package analysis

import (
	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/evaluator"
)

// BifurcationPoint records the distinct scalar values a trajectory
// settled into for one swept parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// Tunable exposes one or more named scalar parameters that can be swept
// between runs. Both control.Configurable controllers (e.g. PID's gains)
// and tunable oracle models (e.g. models.VanDerPol's mu) satisfy it,
// which is what lets BifurcationDiagram sweep either one.
type Tunable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}

// BifurcationDiagram sweeps tunable's named parameter across
// [paramMin, paramMax] while driving the system with ctrl, letting it
// settle for transient seconds and then recording the distinct values
// extract returns over the following record seconds. Useful for
// visualizing period-doubling as a gain or model parameter is pushed
// toward instability.
//
// Adapted from
// _examples/san-kum-dynsim/internal/analysis/bifurcation.go, which swept
// a dynamo.Configurable model parameter directly on the flat-vector
// physics types in the teacher's now-deleted internal/physics package.
// Splitting the driving controller (ctrl) from the swept parameter
// (tunable) restores that model-parameter sweep for models like
// models.VanDerPol (pass control.NewNone as ctrl) while still supporting
// a controller-gain sweep like PID.Kp (pass the same PID as both).
func BifurcationDiagram(ev *evaluator.Evaluator, ctrl control.Controller, tunable Tunable, paramName string, paramMin, paramMax float64, paramSteps int, x0 dynamo.State, dt, transient, record float64, extract func(dynamo.State) float64) []BifurcationPoint {
	if paramSteps <= 1 {
		paramSteps = 2
	}
	paramStep := (paramMax - paramMin) / float64(paramSteps-1)

	results := make([]BifurcationPoint, 0, paramSteps)
	for i := 0; i < paramSteps; i++ {
		param := paramMin + float64(i)*paramStep
		tunable.SetParam(paramName, param)

		x := x0.Clone()
		t := 0.0

		for t < transient {
			nx, err := rk4Step(ev, ctrl, x, t, dt)
			if err != nil {
				break
			}
			x = nx
			t += dt
		}

		values := make([]float64, 0, 64)
		seen := make(map[int]bool)
		for t < transient+record {
			nx, err := rk4Step(ev, ctrl, x, t, dt)
			if err != nil {
				break
			}
			x = nx
			t += dt

			val := extract(x)
			key := int(val * 1000)
			if !seen[key] {
				seen[key] = true
				values = append(values, val)
			}
		}

		results = append(results, BifurcationPoint{Param: param, Values: values})
	}

	if len(results) > 0 {
		tunable.SetParam(paramName, paramMin)
	}
	return results
}

// BifurcationToASCII converts bifurcation data to ASCII art: one column
// per swept parameter value, one dot per distinct recorded value.
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	found := false
	for _, p := range data {
		for _, v := range p.Values {
			if !found {
				minVal, maxVal = v, v
				found = true
				continue
			}
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if !found {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height && col >= 0 && col < width {
				canvas[row][col] = '•'
			}
		}
	}

	result := ""
	for _, row := range canvas {
		result += string(row) + "\n"
	}
	return result
}
