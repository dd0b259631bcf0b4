package telemetry

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// entry pairs a registered variable's name with the pointer to its live
// value, mirroring TelemetryData's std::deque<pair<name, T>> registries.
type intEntry struct {
	name string
	val  *int64
}

type floatEntry struct {
	name string
	val  *float64
}

// Data is the telemetry schema registry (spec.md §4.3): callers register
// named constants once and named int/float variables once, then obtain a
// stable pointer to write through on every step. Registration is only
// allowed before Freeze.
type Data struct {
	constants []string // formatted "key=value" pairs, in registration order
	ints      []intEntry
	floats    []floatEntry
	frozen    bool
}

// NewData returns an empty, unfrozen registry.
func NewData() *Data {
	return &Data{}
}

// RegisterConstant records a key/value pair emitted once in the log
// header. Re-registering an already-present key fails: constants are
// append-only, matching spec.md §4.3.
func (d *Data) RegisterConstant(key, value string) error {
	if d.frozen {
		return dynamo.NewError(dynamo.ErrorKindGeneric, "cannot register constant %q: registry is frozen", key)
	}
	prefix := key + ConstantDelimiter
	for _, c := range d.constants {
		if strings.HasPrefix(c, prefix) {
			return dynamo.NewError(dynamo.ErrorKindBadInput, "constant %q already registered", key)
		}
	}
	d.constants = append(d.constants, prefix+value)
	return nil
}

// RegisterVariableInt registers an int64 telemetry column and returns a
// stable pointer the caller writes into before each Append. Registering
// the same name twice returns the same pointer.
func (d *Data) RegisterVariableInt(name string) (*int64, error) {
	if d.frozen {
		return nil, dynamo.NewError(dynamo.ErrorKindGeneric, "cannot register variable %q: registry is frozen", name)
	}
	for i := range d.ints {
		if d.ints[i].name == name {
			return d.ints[i].val, nil
		}
	}
	d.ints = append(d.ints, intEntry{name: name, val: new(int64)})
	return d.ints[len(d.ints)-1].val, nil
}

// RegisterVariableFloat registers a float64 telemetry column and returns
// a stable pointer, analogous to RegisterVariableInt.
func (d *Data) RegisterVariableFloat(name string) (*float64, error) {
	if d.frozen {
		return nil, dynamo.NewError(dynamo.ErrorKindGeneric, "cannot register variable %q: registry is frozen", name)
	}
	for i := range d.floats {
		if d.floats[i].name == name {
			return d.floats[i].val, nil
		}
	}
	d.floats = append(d.floats, floatEntry{name: name, val: new(float64)})
	return d.floats[len(d.floats)-1].val, nil
}

// Freeze closes the registry to further registration. The recorder calls
// this once at Initialize so the schema (and therefore the fixed size of
// a recorded data line) cannot change mid-run.
func (d *Data) Freeze() { d.frozen = true }

// NumInts and NumFloats report the frozen schema's column counts.
func (d *Data) NumInts() int   { return len(d.ints) }
func (d *Data) NumFloats() int { return len(d.floats) }

// IntValues and FloatValues snapshot the currently-written column values
// in registration order, for the recorder to serialize on Append.
func (d *Data) IntValues() []int64 {
	out := make([]int64, len(d.ints))
	for i, e := range d.ints {
		out[i] = *e.val
	}
	return out
}

func (d *Data) FloatValues() []float64 {
	out := make([]float64, len(d.floats))
	for i, e := range d.floats {
		out[i] = *e.val
	}
	return out
}

// FormatHeader renders the full log header per spec.md §6: a leading
// int32 version, a constants section, a column-name section, terminated
// by StartData. Global.Time is always the first column name, matching
// the recorder's implicit int64 time column ahead of the registered
// variables.
func (d *Data) FormatHeader() []byte {
	var versionBuf [4]byte
	binary.LittleEndian.PutUint32(versionBuf[:], uint32(TelemetryVersion))

	var sb strings.Builder

	// Constant entries are separated by StartLineToken: every entry but the
	// first is preceded by it.
	first := true
	writeToken := func(tok string) {
		if !first {
			sb.WriteString(StartLineToken)
		}
		first = false
		sb.WriteString(tok)
		sb.WriteByte(0)
	}

	sb.WriteString(StartConstants)
	sb.WriteByte(0)
	for _, c := range d.constants {
		writeToken(c)
	}
	writeToken(fmt.Sprintf("%s%s%d", NumIntEntriesConstant, ConstantDelimiter, len(d.ints)))
	writeToken(fmt.Sprintf("%s%s%d", NumFloatEntriesConstant, ConstantDelimiter, len(d.floats)))

	sb.WriteString(StartColumns)
	sb.WriteByte(0)
	sb.WriteString("Global.Time")
	sb.WriteByte(0)
	for _, e := range d.ints {
		sb.WriteString(e.name)
		sb.WriteByte(0)
	}
	for _, e := range d.floats {
		sb.WriteString(e.name)
		sb.WriteByte(0)
	}
	sb.WriteString(StartData)
	sb.WriteByte(0)

	return append(versionBuf[:], []byte(sb.String())...)
}
