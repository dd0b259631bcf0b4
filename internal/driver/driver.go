// Package driver runs the simulation loop: it repeatedly calls the
// adaptive stepper, feeds every accepted step to the telemetry recorder,
// and stops on completion, hard failure, or a rejection budget being
// exhausted. Grounded on
// _examples/san-kum-dynsim/internal/sim/simulator.go's Run loop, adapted
// from a fixed-step loop to the accept/reject adaptive-step contract.
package driver

import (
	"log/slog"

	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/evaluator"
	"github.com/rigidkernel/simkernel/internal/oracle"
	"github.com/rigidkernel/simkernel/internal/stepper"
	"github.com/rigidkernel/simkernel/internal/telemetry"
)

// maxConsecutiveRejections bounds how many times in a row the stepper may
// reject a step before the driver gives up and reports a SimError: a
// well-posed system with sane tolerances should never need more than a
// handful of shrinks to find an acceptable dt.
const maxConsecutiveRejections = 50

// Driver owns one run's evaluator, stepper, and telemetry wiring.
type Driver struct {
	Evaluator  *evaluator.Evaluator
	Stepper    *stepper.Stepper
	Controller control.Controller
	Recorder   *telemetry.Recorder
	Data       *telemetry.Data
	Log        *slog.Logger

	tX      []*float64
	tV      []*float64
	tLambda []*float64

	// OnStep, if set, is called once per accepted step (including the
	// initial sample at t=0) with the state and control that produced
	// it. Used by internal/tui to stream a live view of a run without
	// coupling the driver to any rendering concern.
	OnStep func(t float64, x dynamo.State, u dynamo.Control)
}

// New builds a Driver for the given model and config, wiring a fresh
// telemetry schema with one column per configuration/velocity/multiplier
// component (spec.md §4.3).
func New(o oracle.Oracle, cs *constraint.Set, ctrl control.Controller, cfg *config.Config, log *slog.Logger) (*Driver, error) {
	if log == nil {
		log = slog.Default()
	}
	ev := evaluator.New(o, cs)
	sp := stepper.New(cfg.TolRel, cfg.TolAbs)
	rec := telemetry.New()
	data := telemetry.NewData()

	layout := o.Layout()
	d := &Driver{Evaluator: ev, Stepper: sp, Controller: ctrl, Recorder: rec, Data: data, Log: log}

	for i := 0; i < layout.QDim; i++ {
		p, err := data.RegisterVariableFloat(qColumnName(layout, i))
		if err != nil {
			return nil, err
		}
		d.tX = append(d.tX, p)
	}
	for i := 0; i < layout.VDim; i++ {
		p, err := data.RegisterVariableFloat(vColumnName(layout, i))
		if err != nil {
			return nil, err
		}
		d.tV = append(d.tV, p)
	}
	for i, c := range cs.Constraints() {
		for r := 0; r < c.Rows(); r++ {
			p, err := data.RegisterVariableFloat(lambdaColumnName(i, r))
			if err != nil {
				return nil, err
			}
			d.tLambda = append(d.tLambda, p)
		}
	}

	if err := data.RegisterConstant("Model", cfg.Model); err != nil {
		return nil, err
	}

	if err := rec.Initialize(data, cfg.TimeUnit); err != nil {
		return nil, err
	}

	return d, nil
}

func qColumnName(layout *dynamo.Layout, idx int) string {
	for _, j := range layout.Joints {
		if idx >= j.QIndex && idx < j.QIndex+j.Kind.QDim() {
			return "q." + jointLabel(j) + "." + indexSuffix(idx-j.QIndex)
		}
	}
	return "q.unknown"
}

func vColumnName(layout *dynamo.Layout, idx int) string {
	for _, j := range layout.Joints {
		if idx >= j.VIndex && idx < j.VIndex+j.Kind.VDim() {
			return "v." + jointLabel(j) + "." + indexSuffix(idx-j.VIndex)
		}
	}
	return "v.unknown"
}

func lambdaColumnName(constraintIdx, row int) string {
	return "lambda." + indexSuffix(constraintIdx) + "." + indexSuffix(row)
}

func jointLabel(j dynamo.JointSpec) string {
	if j.Name != "" {
		return j.Name
	}
	return indexSuffix(j.QIndex)
}

func indexSuffix(i int) string {
	digits := "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	// Models in this kernel never have more than single-digit joint
	// counts; fall back to a decimal loop for the rare larger case.
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	return string(buf)
}
