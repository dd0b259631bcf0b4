// Command simkernel is the CLI front end to the rigid-body simulation
// kernel: run a model against a config or preset, list past runs, inspect
// one run's metadata, and plot a run's telemetry columns. Grounded on
// _examples/san-kum-dynsim/cmd/dynsim/main.go's cobra command layout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/rigidkernel/simkernel/internal/analysis"
	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/control"
	"github.com/rigidkernel/simkernel/internal/driver"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/ensemble"
	"github.com/rigidkernel/simkernel/internal/evaluator"
	"github.com/rigidkernel/simkernel/internal/kernellog"
	"github.com/rigidkernel/simkernel/internal/metrics"
	"github.com/rigidkernel/simkernel/internal/oracle"
	"github.com/rigidkernel/simkernel/internal/registry"
	"github.com/rigidkernel/simkernel/internal/store"
	"github.com/rigidkernel/simkernel/internal/telemetry"
	"github.com/rigidkernel/simkernel/internal/tui"
	"github.com/rigidkernel/simkernel/internal/tuning"
)

var (
	dataDir    string
	configFile string
	presetName string
	verbose    bool

	plotColumns []string

	lyapunovDt           float64
	lyapunovDuration     float64
	lyapunovPerturbation float64

	spectrumColumn int

	ensembleRuns         int
	ensembleSeed         int64
	ensemblePerturbation float64

	bifurcationParam     string
	bifurcationMin       float64
	bifurcationMax       float64
	bifurcationSteps     int
	bifurcationDt        float64
	bifurcationTransient float64
	bifurcationRecord    float64

	tuneKp []float64
	tuneKi []float64
	tuneKd []float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simkernel",
		Short: "rigid-body simulation kernel",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".simkernel", "run archive directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation from a config file or preset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&presetName, "preset", "", "use a named preset")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  listRuns,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [run_id]",
		Short: "show a run's metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's telemetry columns",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotColumns, "columns", nil, "columns to plot (default: all float columns; at most 6 are plotted)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model-or-preset]",
		Short: "estimate the largest Lyapunov exponent for a model/preset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLyapunov,
	}
	lyapunovCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	lyapunovCmd.Flags().StringVar(&presetName, "preset", "", "use a named preset")
	lyapunovCmd.Flags().Float64Var(&lyapunovDt, "dt", 1e-3, "fixed integration step")
	lyapunovCmd.Flags().Float64Var(&lyapunovDuration, "duration", 20.0, "integration duration")
	lyapunovCmd.Flags().Float64Var(&lyapunovPerturbation, "perturbation", 1e-6, "initial trajectory separation")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "plot a telemetry column's power spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  runSpectrum,
	}
	spectrumCmd.Flags().IntVar(&spectrumColumn, "column", 0, "float column index")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model-or-preset]",
		Short: "run many perturbed copies of a simulation concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	ensembleCmd.Flags().StringVar(&presetName, "preset", "", "use a named preset")
	ensembleCmd.Flags().IntVar(&ensembleRuns, "runs", 8, "number of ensemble members")
	ensembleCmd.Flags().Int64Var(&ensembleSeed, "seed", 1, "first member's perturbation seed")
	ensembleCmd.Flags().Float64Var(&ensemblePerturbation, "perturbation", 1e-3, "max per-component initial-velocity perturbation")

	interactiveCmd := &cobra.Command{
		Use:   "interactive",
		Short: "browse models and watch a run live in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	bifurcationCmd := &cobra.Command{
		Use:   "bifurcation [model-or-preset]",
		Short: "sweep a model or controller parameter and plot a bifurcation diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBifurcation,
	}
	bifurcationCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	bifurcationCmd.Flags().StringVar(&presetName, "preset", "", "use a named preset")
	bifurcationCmd.Flags().StringVar(&bifurcationParam, "param", "mu", "swept parameter name (the model's own parameter when the model is tunable, otherwise the controller's)")
	bifurcationCmd.Flags().Float64Var(&bifurcationMin, "min", 0.5, "sweep range lower bound")
	bifurcationCmd.Flags().Float64Var(&bifurcationMax, "max", 4.0, "sweep range upper bound")
	bifurcationCmd.Flags().IntVar(&bifurcationSteps, "steps", 200, "number of sweep steps")
	bifurcationCmd.Flags().Float64Var(&bifurcationDt, "dt", 1e-2, "fixed integration step")
	bifurcationCmd.Flags().Float64Var(&bifurcationTransient, "transient", 200.0, "settling time discarded before recording")
	bifurcationCmd.Flags().Float64Var(&bifurcationRecord, "record", 50.0, "recorded time window after the transient")

	tuneCmd := &cobra.Command{
		Use:   "tune [model-or-preset]",
		Short: "grid-search PID gains that minimize energy drift over a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	tuneCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	tuneCmd.Flags().StringVar(&presetName, "preset", "", "use a named preset")
	tuneCmd.Flags().Float64SliceVar(&tuneKp, "kp", []float64{0.5, 1, 2, 4}, "candidate Kp values")
	tuneCmd.Flags().Float64SliceVar(&tuneKi, "ki", []float64{0}, "candidate Ki values")
	tuneCmd.Flags().Float64SliceVar(&tuneKd, "kd", []float64{0, 0.1, 0.5}, "candidate Kd values")

	rootCmd.AddCommand(runCmd, listCmd, inspectCmd, plotCmd, presetsCmd, lyapunovCmd, spectrumCmd, ensembleCmd, interactiveCmd, bifurcationCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadRunConfig(args []string) (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	if presetName != "" {
		cfg := config.GetPreset(presetName)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (see: simkernel presets)", presetName)
		}
		return cfg, nil
	}
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg != nil {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("specify --config, --preset, or a preset name")
}

func buildInitState(o oracle.Oracle, cfg *config.Config) dynamo.State {
	layout := o.Layout()
	x := dynamo.NewState(layout)
	copy(x.Q, cfg.InitState.Q)
	copy(x.V, cfg.InitState.V)
	return x
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := kernellog.New(os.Stderr, level)

	o, err := registry.BuildModel(cfg.Model)
	if err != nil {
		return err
	}

	model := &oracle.Model{Oracle: o}
	modelRef := constraint.NewModelRef(model)
	cs, err := registry.BuildConstraints(cfg.Constraints, modelRef, o.Layout().VDim)
	if err != nil {
		return err
	}

	x0 := buildInitState(o, cfg)
	if err := cs.Reset(x0.Q, x0.V); err != nil {
		return err
	}

	ctrl, err := registry.BuildController(cfg.Control, o.Layout().VDim)
	if err != nil {
		return err
	}

	drv, err := driver.New(o, cs, ctrl, cfg, log)
	if err != nil {
		return err
	}

	fmt.Printf("running %s...\n", cfg.Model)
	start := time.Now()
	result, runErr := drv.Run(x0, cfg.InitDt, cfg.MinDt, cfg.MaxDt, cfg.Duration)
	if runErr != nil {
		return runErr
	}
	elapsed := time.Since(start)

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg, drv.Recorder, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d  rejections: %d  errors: %d\n", result.StepsTaken, result.Rejections, len(result.Errors))
	printMetrics(o, result)
	return nil
}

func printMetrics(o oracle.Oracle, result *dynamo.Result) {
	ke := metrics.NewKineticEnergy(o)
	drift := metrics.NewEnergyDrift(o)
	effort := metrics.NewControlEffort()
	stability := metrics.NewStability(1e6)
	metrics.ObserveResult([]metrics.Metric{ke, drift, effort, stability}, result)

	fmt.Printf("mean kinetic energy: %.6g\n", ke.Value())
	fmt.Printf("energy drift:        %.6g\n", drift.Value())
	fmt.Printf("mean control effort: %.6g\n", effort.Value())
	fmt.Printf("stability fraction:  %.6g\n", stability.Value())
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	ids, err := st.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIMESTAMP\tSTEPS\tREJECTIONS")
	for _, id := range ids {
		meta, err := st.Load(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			meta.ID, meta.Model, meta.Timestamp.Format("2006-01-02 15:04:05"), meta.StepsTaken, meta.Rejections)
	}
	return w.Flush()
}

func inspectRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run:        %s\n", meta.ID)
	fmt.Printf("model:      %s\n", meta.Model)
	fmt.Printf("timestamp:  %s\n", meta.Timestamp.Format(time.RFC3339))
	fmt.Printf("steps:      %d\n", meta.StepsTaken)
	fmt.Printf("rejections: %d\n", meta.Rejections)
	fmt.Printf("errors:     %d\n", meta.ErrorCount)
	fmt.Printf("final time: %.6g\n", meta.FinalTime)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	logData, err := st.LoadLog(args[0])
	if err != nil {
		return err
	}
	if len(logData.FloatData) == 0 {
		return fmt.Errorf("run has no float columns to plot")
	}

	names := plotColumns

	plotted := 0
	for col := 0; col < len(logData.FloatData) && plotted < 6; col++ {
		if len(names) > 0 && !containsName(names, columnFieldname(logData, col)) {
			continue
		}
		graph := asciigraph.Plot(logData.FloatData[col],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(columnFieldname(logData, col)),
		)
		fmt.Println(graph)
		fmt.Println()
		plotted++
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := kernellog.New(os.Stderr, level)

	o0, err := registry.BuildModel(cfg.Model)
	if err != nil {
		return err
	}
	x0 := buildInitState(o0, cfg)

	factory := func() (*driver.Driver, oracle.Oracle, *constraint.Set, error) {
		o, err := registry.BuildModel(cfg.Model)
		if err != nil {
			return nil, nil, nil, err
		}
		model := &oracle.Model{Oracle: o}
		modelRef := constraint.NewModelRef(model)
		cs, err := registry.BuildConstraints(cfg.Constraints, modelRef, o.Layout().VDim)
		if err != nil {
			return nil, nil, nil, err
		}
		ctrl, err := registry.BuildController(cfg.Control, o.Layout().VDim)
		if err != nil {
			return nil, nil, nil, err
		}
		drv, err := driver.New(o, cs, ctrl, cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return drv, o, cs, nil
	}

	ens := ensemble.New(factory, ensembleRuns, ensembleSeed, ensemblePerturbation)
	start := time.Now()
	members := ens.Run(context.Background(), x0, cfg)
	elapsed := time.Since(start)

	fmt.Printf("ran %d members in %v\n", len(members), elapsed)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tREJECTIONS\tMEAN_KE\tERROR")
	for _, m := range members {
		if m.Err != nil {
			fmt.Fprintf(w, "%d\t-\t-\t-\t%s\n", m.Seed, m.Err)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%.6g\t\n", m.Seed, m.Result.StepsTaken, m.Result.Rejections, m.MeanKinetic)
	}
	return w.Flush()
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o, err := registry.BuildModel(cfg.Model)
	if err != nil {
		return err
	}
	model := &oracle.Model{Oracle: o}
	modelRef := constraint.NewModelRef(model)
	cs, err := registry.BuildConstraints(cfg.Constraints, modelRef, o.Layout().VDim)
	if err != nil {
		return err
	}
	ctrl, err := registry.BuildController(cfg.Control, o.Layout().VDim)
	if err != nil {
		return err
	}

	x0 := buildInitState(o, cfg)
	if err := cs.Reset(x0.Q, x0.V); err != nil {
		return err
	}

	ev := evaluator.New(o, cs)
	lambda, err := analysis.LyapunovExponent(ev, ctrl, x0, lyapunovDt, lyapunovDuration, lyapunovPerturbation)
	if err != nil {
		return err
	}

	fmt.Printf("largest lyapunov exponent: %.6g\n", lambda)
	if lambda > 0 {
		fmt.Println("positive: trajectories diverge exponentially (chaotic)")
	} else {
		fmt.Println("non-positive: nearby trajectories do not diverge")
	}
	return nil
}

// runBifurcation sweeps a tunable parameter and prints an ASCII
// bifurcation diagram. It sweeps the model's own parameter (e.g.
// vanderpol's mu) when the built oracle implements analysis.Tunable, and
// falls back to the configured controller's gain otherwise (e.g. PID's
// Kp), matching how BifurcationDiagram accepts either target.
func runBifurcation(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o, err := registry.BuildModel(cfg.Model)
	if err != nil {
		return err
	}
	model := &oracle.Model{Oracle: o}
	modelRef := constraint.NewModelRef(model)
	cs, err := registry.BuildConstraints(cfg.Constraints, modelRef, o.Layout().VDim)
	if err != nil {
		return err
	}
	ctrl, err := registry.BuildController(cfg.Control, o.Layout().VDim)
	if err != nil {
		return err
	}

	var tunable analysis.Tunable
	if t, ok := o.(analysis.Tunable); ok {
		tunable = t
	} else if t, ok := ctrl.(analysis.Tunable); ok {
		tunable = t
	} else {
		return fmt.Errorf("neither model %q nor its controller exposes a tunable parameter", cfg.Model)
	}

	x0 := buildInitState(o, cfg)
	if err := cs.Reset(x0.Q, x0.V); err != nil {
		return err
	}

	ev := evaluator.New(o, cs)
	extract := func(x dynamo.State) float64 { return x.Q[0] }
	data := analysis.BifurcationDiagram(ev, ctrl, tunable, bifurcationParam, bifurcationMin, bifurcationMax, bifurcationSteps, x0, bifurcationDt, bifurcationTransient, bifurcationRecord, extract)

	fmt.Printf("bifurcation diagram: %s in [%.4g, %.4g], %d steps\n", bifurcationParam, bifurcationMin, bifurcationMax, bifurcationSteps)
	fmt.Println(analysis.BifurcationToASCII(data, 100, 24))
	return nil
}

// runTune grid-searches PID gains that minimize energy drift over a full
// run, one fresh model/controller/driver per candidate so trials never
// share mutated state. Adapted from
// _examples/san-kum-dynsim/internal/optim/grid_search.go's recursive
// per-parameter walk via internal/tuning.GridSearch.
func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := kernellog.New(os.Stderr, level)

	search := tuning.NewGridSearch([]string{"Kp", "Ki", "Kd"}, [][]float64{tuneKp, tuneKi, tuneKd})
	trial := tuning.MetricTrial(func(params map[string]float64) (func() (*dynamo.Result, error), metrics.Metric, error) {
		o, err := registry.BuildModel(cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		model := &oracle.Model{Oracle: o}
		modelRef := constraint.NewModelRef(model)
		cs, err := registry.BuildConstraints(cfg.Constraints, modelRef, o.Layout().VDim)
		if err != nil {
			return nil, nil, err
		}
		ctrl := control.NewPID(params["Kp"], params["Ki"], params["Kd"], cfg.Control.Target, o.Layout().VDim)
		x0 := buildInitState(o, cfg)
		if err := cs.Reset(x0.Q, x0.V); err != nil {
			return nil, nil, err
		}
		drv, err := driver.New(o, cs, ctrl, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		run := func() (*dynamo.Result, error) {
			return drv.Run(x0, cfg.InitDt, cfg.MinDt, cfg.MaxDt, cfg.Duration)
		}
		return run, metrics.NewEnergyDrift(o), nil
	})

	best, val := search.Search(context.Background(), trial)
	if best == nil {
		return fmt.Errorf("no candidate gain combination produced a successful run")
	}
	fmt.Printf("best gains: Kp=%.4g Ki=%.4g Kd=%.4g (energy drift %.6g)\n", best["Kp"], best["Ki"], best["Kd"], val)
	return nil
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	logData, err := st.LoadLog(args[0])
	if err != nil {
		return err
	}
	if spectrumColumn < 0 || spectrumColumn >= len(logData.FloatData) {
		return fmt.Errorf("column %d out of range (run has %d float columns)", spectrumColumn, len(logData.FloatData))
	}

	signal := logData.FloatData[spectrumColumn]
	n := 1
	for n*2 <= len(signal) {
		n *= 2
	}
	ps := analysis.PowerSpectrum(signal[:n])

	fmt.Printf("power spectrum of %s (%d samples, truncated to %d for FFT):\n", columnFieldname(logData, spectrumColumn), len(signal), n)
	fmt.Println(asciigraph.Plot(ps, asciigraph.Height(10), asciigraph.Width(80)))
	return nil
}

func columnFieldname(logData *telemetry.LogData, col int) string {
	// Fieldnames is [Global.Time, int columns..., float columns...]; the
	// telemetry package does not track int/float split boundaries once
	// parsed, but this kernel never registers int columns, so float
	// column i is always Fieldnames[i+1].
	if col+1 < len(logData.Fieldnames) {
		return logData.Fieldnames[col+1]
	}
	return fmt.Sprintf("float%d", col)
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
