// Package config loads and validates run configuration: which model and
// constraints to simulate, the stepper's tolerances and step-size bounds,
// and the telemetry time unit, adapted from the teacher's YAML-driven
// scenario configuration.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

const (
	DefaultTolRel    = 1e-8
	DefaultTolAbs    = 1e-10
	DefaultMinDt     = 1e-9
	DefaultMaxDt     = 0.1
	DefaultInitDt    = 1e-3
	DefaultDuration  = 10.0
	DefaultTimeUnit  = 1e-9
	DefaultKp        = 1000.0
	DefaultKd        = 20.0
)

// Config is a complete run description: which model to build, the
// stepper's numerical policy, and the constraints to attach.
type Config struct {
	Model string `yaml:"model"`

	Duration float64 `yaml:"duration"`
	InitDt   float64 `yaml:"init_dt"`
	MinDt    float64 `yaml:"min_dt"`
	MaxDt    float64 `yaml:"max_dt"`
	TolRel   float64 `yaml:"tol_rel"`
	TolAbs   float64 `yaml:"tol_abs"`

	TimeUnit float64 `yaml:"time_unit"`

	InitState InitStateConfig    `yaml:"init_state"`
	Control   ControllerConfig   `yaml:"control"`
	Constraints []ConstraintConfig `yaml:"constraints"`
}

// InitStateConfig gives the initial configuration/velocity as flat
// vectors; the model registry interprets them against its own Layout.
type InitStateConfig struct {
	Q []float64 `yaml:"q"`
	V []float64 `yaml:"v"`
}

// ControllerConfig selects and parameterizes a feedback controller
// (internal/control).
type ControllerConfig struct {
	Kind   string  `yaml:"kind"` // "none", "pid", "manual"
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Target float64 `yaml:"target"`
}

// ConstraintConfig describes one attached constraint. Kind is currently
// always "distance"; the schema leaves room for future kinds.
type ConstraintConfig struct {
	Kind      string  `yaml:"kind"`
	FrameA    string  `yaml:"frame_a"`
	FrameB    string  `yaml:"frame_b"`
	Kp        float64 `yaml:"kp"`
	Kd        float64 `yaml:"kd"`
	RefDist   float64 `yaml:"ref_dist"`
	UseRefDist bool   `yaml:"use_ref_dist"`
}

// DefaultConfig returns a Config with every numerical policy field set to
// its documented default (spec.md §6); Model and InitState are left
// zero-valued for the caller to fill in.
func DefaultConfig() *Config {
	return &Config{
		Duration: DefaultDuration,
		InitDt:   DefaultInitDt,
		MinDt:    DefaultMinDt,
		MaxDt:    DefaultMaxDt,
		TolRel:   DefaultTolRel,
		TolAbs:   DefaultTolAbs,
		TimeUnit: DefaultTimeUnit,
		Control:  ControllerConfig{Kind: "none"},
	}
}

// Load reads and validates a YAML config file, filling unset numerical
// fields with DefaultConfig's values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot read config %q", path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return dynamo.WrapError(dynamo.ErrorKindGeneric, err, "cannot marshal config")
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations that would make the stepper or
// recorder misbehave: non-positive steps, an inverted [min,max] window,
// or a zero time unit.
func (c *Config) Validate() error {
	if c.Model == "" {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "config: model is required")
	}
	if c.MinDt <= 0 || c.MaxDt <= 0 || c.MinDt > c.MaxDt {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "config: invalid step bounds [min_dt=%g, max_dt=%g]", c.MinDt, c.MaxDt)
	}
	if c.InitDt <= 0 {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "config: init_dt must be positive")
	}
	if c.TolRel <= 0 && c.TolAbs <= 0 {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "config: at least one of tol_rel, tol_abs must be positive")
	}
	if c.TimeUnit <= 0 {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "config: time_unit must be positive")
	}
	if c.Duration <= 0 {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "config: duration must be positive")
	}
	return nil
}
