package telemetry

import (
	"fmt"
	"math"
	"os"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// Recorder writes a Data registry's values to a chunked in-memory binary
// log, one line per Append call (spec.md §4.4). It reproduces
// TelemetryRecorder's chunk-sizing policy: the first chunk is sized to
// hold the whole header plus as many data lines fit in MinChunkBytes,
// every later chunk is sized purely from MinChunkBytes.
type Recorder struct {
	data *Data

	timeUnitInv float64

	header               []byte
	recordedBytesPerLine int64

	chunks              []*chunk
	recordedBytesLimits int64
	recordedBytes       int64

	initialized bool
}

// New returns an unintialized Recorder.
func New() *Recorder { return &Recorder{} }

// Initialize freezes data's schema, records the time quantization unit as
// a constant, and opens the first chunk. timeUnit is the resolution
// (seconds) at which timestamps are rounded and stored as int64 (spec.md
// §6): e.g. 1e-9 stores nanosecond-resolution time.
func (r *Recorder) Initialize(data *Data, timeUnit float64) error {
	if r.initialized {
		return dynamo.NewError(dynamo.ErrorKindInitFailed, "recorder already initialized")
	}
	if timeUnit <= 0 {
		return dynamo.NewError(dynamo.ErrorKindBadInput, "time unit must be positive, got %g", timeUnit)
	}

	r.timeUnitInv = 1.0 / timeUnit
	if err := data.RegisterConstant(TimeUnitConstant, formatTimeUnit(timeUnit)); err != nil {
		return err
	}
	data.Freeze()
	r.data = data

	r.header = data.FormatHeader()
	r.recordedBytesPerLine = int64(len(StartLineToken)) + 8 + 8*int64(data.NumInts()) + 8*int64(data.NumFloats())

	if err := r.createChunk(true); err != nil {
		return err
	}

	r.initialized = true
	return nil
}

func formatTimeUnit(timeUnit float64) string {
	// %.3e mirrors the original's scientific-notation constant string. The
	// parser reads LogData.TimeUnit back from this string, so a unit with
	// more than four significant digits is read back rounded to four.
	return fmt.Sprintf("%.3e", timeUnit)
}

// createChunk opens a new chunk. When withHeader is true (only for the
// very first chunk), its capacity is sized to hold the whole header plus
// as many data lines fit in the remaining MinChunkBytes budget.
func (r *Recorder) createChunk(withHeader bool) error {
	headerLen := 0
	if withHeader {
		headerLen = len(r.header)
	}
	budget := MinChunkBytes
	if headerLen > budget {
		budget = headerLen
	}
	maxLines := (int64(budget) - int64(headerLen)) / r.recordedBytesPerLine
	capacity := int64(headerLen) + maxLines*r.recordedBytesPerLine

	c := newChunk(int(capacity))
	if withHeader {
		c.writeBytes(r.header)
	}
	r.chunks = append(r.chunks, c)
	r.recordedBytesLimits = capacity
	r.recordedBytes = int64(headerLen)
	return nil
}

// Append quantizes timestamp to the configured time unit and writes one
// data line: [StartLineToken, time, ints..., floats...] (spec.md §4.4).
func (r *Recorder) Append(timestamp float64) error {
	if !r.initialized {
		return dynamo.NewError(dynamo.ErrorKindGeneric, "recorder not initialized")
	}
	if r.recordedBytes == r.recordedBytesLimits {
		if err := r.createChunk(false); err != nil {
			return err
		}
	}

	c := r.chunks[len(r.chunks)-1]
	c.writeBytes([]byte(StartLineToken))
	c.writeInt64(int64(math.Round(timestamp * r.timeUnitInv)))
	for _, v := range r.data.IntValues() {
		c.writeInt64(v)
	}
	for _, v := range r.data.FloatValues() {
		c.writeFloat64(v)
	}
	r.recordedBytes += r.recordedBytesPerLine
	return nil
}

// WriteLog concatenates every chunk's written bytes to filename,
// truncating any existing file.
func (r *Recorder) WriteLog(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot create log file %q", filename)
	}
	defer f.Close()

	for _, c := range r.chunks {
		if _, err := f.Write(c.data()); err != nil {
			return dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot write log file %q", filename)
		}
	}
	return nil
}

// GetLog parses the in-memory chunks directly, without a round trip
// through the filesystem.
func (r *Recorder) GetLog() (*LogData, error) {
	if !r.initialized {
		return nil, dynamo.NewError(dynamo.ErrorKindGeneric, "recorder not initialized")
	}
	buffers := make([][]byte, len(r.chunks))
	for i, c := range r.chunks {
		buffers[i] = c.data()
	}
	return parseLogDataRaw(buffers)
}

// Reset discards every chunk and returns the recorder to uninitialized.
func (r *Recorder) Reset() {
	r.chunks = nil
	r.initialized = false
	r.recordedBytes = 0
	r.recordedBytesLimits = 0
}
