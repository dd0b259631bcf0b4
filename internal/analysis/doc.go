// Package analysis provides post-hoc signal and dynamics analysis tools
// that run against a completed dynamo.Result or directly against an
// evaluator.Evaluator, rather than inside the driver's hot loop:
//
//   - [FFT], [PowerSpectrum]: frequency-domain analysis of a telemetry column
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [BifurcationDiagram]: model- or controller-parameter sweep for bifurcation analysis
//   - [GeneratePhasePortrait]: 2D phase space trajectories from a run
//   - [GeneratePoincareSection]: stroboscopic section of phase space
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(ev, ctrl, x0, dt, duration, 1e-6)
//	if err == nil && lambda > 0 {
//	    // system is chaotic
//	}
package analysis
