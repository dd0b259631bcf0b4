package telemetry

import (
	"encoding/binary"
	"math"
)

// chunk is one fixed-capacity in-memory buffer of recorded data lines
// (spec.md §4.4): the recorder fills it sequentially and rolls over to a
// new chunk once its capacity is exhausted. Grounded on
// TelemetryRecorder's flows_ deque of MemoryDevice buffers in the
// original source, but held entirely in memory rather than backed by a
// device abstraction.
type chunk struct {
	buf []byte
	pos int
}

func newChunk(capacity int) *chunk {
	return &chunk{buf: make([]byte, capacity)}
}

func (c *chunk) remaining() int { return len(c.buf) - c.pos }

func (c *chunk) writeBytes(p []byte) {
	copy(c.buf[c.pos:], p)
	c.pos += len(p)
}

func (c *chunk) writeInt64(v int64) {
	binary.LittleEndian.PutUint64(c.buf[c.pos:], uint64(v))
	c.pos += 8
}

func (c *chunk) writeInt32(v int32) {
	binary.LittleEndian.PutUint32(c.buf[c.pos:], uint32(v))
	c.pos += 4
}

func (c *chunk) writeFloat64(v float64) {
	binary.LittleEndian.PutUint64(c.buf[c.pos:], math.Float64bits(v))
	c.pos += 8
}

// data returns the written portion of the chunk.
func (c *chunk) data() []byte { return c.buf[:c.pos] }
