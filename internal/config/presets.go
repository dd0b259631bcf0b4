package config

// Presets are ready-to-run configurations mirroring spec.md §8's test
// scenarios: a free harmonic oscillator (S1/S4/S6, no constraints, tight
// tolerance so the O(dt^5) convergence property is measurable), a
// two-point-mass distance-constrained pair (S2, exercising the KKT solve
// and Baumgarte stabilization), and a Van der Pol oscillator for
// bifurcation sweeps over its own mu parameter.
var Presets = map[string]*Config{
	"vanderpol": {
		Model:     "vanderpol",
		Duration:  50.0,
		InitDt:    1e-2,
		MinDt:     1e-9,
		MaxDt:     0.05,
		TolRel:    1e-8,
		TolAbs:    1e-10,
		TimeUnit:  DefaultTimeUnit,
		InitState: InitStateConfig{Q: []float64{2.0}, V: []float64{0.0}},
		Control:   ControllerConfig{Kind: "none"},
	},
	"oscillator": {
		Model:    "oscillator",
		Duration: 20.0,
		InitDt:   1e-3,
		MinDt:    1e-9,
		MaxDt:    0.05,
		TolRel:   1e-9,
		TolAbs:   1e-11,
		TimeUnit: DefaultTimeUnit,
		InitState: InitStateConfig{Q: []float64{1.0}, V: []float64{0.0}},
		Control:   ControllerConfig{Kind: "none"},
	},
	"tethered_points": {
		Model:    "tethered_points",
		Duration: 10.0,
		InitDt:   1e-3,
		MinDt:    1e-9,
		MaxDt:    0.02,
		TolRel:   1e-8,
		TolAbs:   1e-10,
		TimeUnit: DefaultTimeUnit,
		InitState: InitStateConfig{
			Q: []float64{0, 0, 0, 1, 0, 0},
			V: []float64{0, 0, 0, 0, 1, 0},
		},
		Control: ControllerConfig{Kind: "none"},
		Constraints: []ConstraintConfig{
			{Kind: "distance", FrameA: "A", FrameB: "B", Kp: DefaultKp, Kd: DefaultKd},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil if unknown.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	c.InitState.Q = append([]float64(nil), p.InitState.Q...)
	c.InitState.V = append([]float64(nil), p.InitState.V...)
	c.Constraints = append([]ConstraintConfig(nil), p.Constraints...)
	return &c
}

// ListPresets returns every preset name.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
