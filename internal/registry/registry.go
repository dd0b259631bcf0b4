// Package registry maps config-file names to concrete model, controller,
// and constraint constructors, so internal/driver and cmd/simkernel never
// need a type switch over string names themselves. Adapted from
// _examples/san-kum-dynsim/internal/experiment/registry.go's
// name-to-factory table pattern.
package registry

import (
	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/models"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// ModelFactory builds a fresh Oracle for a named model.
type ModelFactory func() oracle.Oracle

var modelFactories = map[string]ModelFactory{
	"oscillator":      func() oracle.Oracle { return models.NewOscillator() },
	"tethered_points": func() oracle.Oracle { return models.NewTetheredPoints() },
	"vanderpol":       func() oracle.Oracle { return models.NewVanDerPol() },
}

// BuildModel constructs the named model's oracle, or an INIT_FAILED error
// if the name is unregistered.
func BuildModel(name string) (oracle.Oracle, error) {
	factory, ok := modelFactories[name]
	if !ok {
		return nil, dynamo.NewError(dynamo.ErrorKindInitFailed, "unknown model %q", name)
	}
	return factory(), nil
}

// ModelNames lists every registered model name.
func ModelNames() []string {
	names := make([]string, 0, len(modelFactories))
	for name := range modelFactories {
		names = append(names, name)
	}
	return names
}

// BuildController constructs a Controller from a ControllerConfig against
// a model of the given control dimension.
func BuildController(cfg config.ControllerConfig, dim int) (control.Controller, error) {
	switch cfg.Kind {
	case "", "none":
		return control.NewNone(dim), nil
	case "pid":
		return control.NewPID(cfg.Kp, cfg.Ki, cfg.Kd, cfg.Target, dim), nil
	case "manual":
		return control.NewManual(dim), nil
	default:
		return nil, dynamo.NewError(dynamo.ErrorKindInitFailed, "unknown controller %q", cfg.Kind)
	}
}

// BuildConstraints attaches every constraint described in cfgs to a fresh
// Set, resolving frame references against model through modelRef.
func BuildConstraints(cfgs []config.ConstraintConfig, modelRef constraint.ModelRef, vDim int) (*constraint.Set, error) {
	set := constraint.NewSet()
	for _, c := range cfgs {
		switch c.Kind {
		case "distance":
			dc := constraint.NewDistanceConstraint(modelRef, c.FrameA, c.FrameB, c.Kp, c.Kd, vDim)
			if c.UseRefDist {
				if err := dc.SetReferenceDistance(c.RefDist); err != nil {
					return nil, err
				}
			}
			set.Add(dc)
		default:
			return nil, dynamo.NewError(dynamo.ErrorKindInitFailed, "unknown constraint kind %q", c.Kind)
		}
	}
	return set, nil
}
