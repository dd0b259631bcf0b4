// Package telemetry implements the binary telemetry log format from
// spec.md §4.3/§4.4/§4.5/§6: a schema registry, a chunked recorder, and a
// parser, grounded on
// _examples/original_source/core/src/telemetry/telemetry_recorder.cc and
// _examples/original_source/core/include/jiminy/core/telemetry/telemetry_data.hxx.
package telemetry

const (
	// TelemetryVersion is written as the first int32 of every log; the
	// parser rejects any other value.
	TelemetryVersion int32 = 1

	// StartLineToken separates consecutive constant entries in the header
	// and marks the beginning of every recorded data line.
	StartLineToken = "StartLine"
	// StartConstants marks the beginning of the constants section.
	StartConstants = "StartConstants"
	// StartColumns marks the beginning of the variable-name section.
	StartColumns = "StartColumns"
	// StartData marks the end of the header and the start of the binary
	// data section.
	StartData = "StartData"

	// ConstantDelimiter separates a constant's key from its value.
	ConstantDelimiter = "="

	// TimeUnitConstant is the reserved constant name recording the
	// quantization unit used to store Global.Time as an int64.
	TimeUnitConstant = "Global.Time.Unit"

	// NumIntEntriesConstant and NumFloatEntriesConstant are the reserved
	// constant names recording the int/float signal section sizes N_i,
	// N_f, per spec.md §6 — the counts of registered int/float columns,
	// not counting the always-present leading Global.Time field.
	NumIntEntriesConstant   = "Num.Int.Entries"
	NumFloatEntriesConstant = "Num.Float.Entries"

	// MinChunkBytes is the smallest buffer size a non-header chunk is
	// allowed, guaranteeing every chunk holds at least one data line.
	MinChunkBytes = 1 << 16 // 64 KiB
)
