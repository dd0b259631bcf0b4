// Package kernellog wires the driver's structured logging: a
// tint-colored slog handler for interactive terminals, grounded on
// _examples/alexshd-lawbench's init()-time slog.SetDefault(tint.NewHandler(...))
// pattern.
package kernellog

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// New returns a slog.Logger writing tint-colored, human-readable lines to
// w. level controls the minimum emitted severity.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
	}))
}

// StepRejected logs one adaptive-step rejection at debug level: expected
// to fire often during startup as the stepper finds its stride, so it
// should not be visible at the default info level.
func StepRejected(log *slog.Logger, t, dt, dtNext float64) {
	log.Debug("step rejected", "t", t, "dt", dt, "dt_next", dtNext)
}

// StepFailed logs a hard evaluator error at the point the driver gives up
// on the current run.
func StepFailed(log *slog.Logger, t float64, err error) {
	log.Error("step evaluation failed", "t", t, "error", err)
}

// RunCompleted logs a successful run's summary counters.
func RunCompleted(log *slog.Logger, steps, rejections int, finalTime float64) {
	log.Info("run completed", "steps", steps, "rejections", rejections, "final_time", finalTime)
}
