package telemetry

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// Constant is a header key/value pair, in the order recorded.
type Constant struct {
	Key   string
	Value string
}

// LogData is the parsed form of a telemetry log (spec.md §4.5):
// column-major int/float tables alongside their names and every recorded
// constant.
type LogData struct {
	Version    int32
	Constants  []Constant
	Fieldnames []string // Global.Time, then int columns, then float columns
	TimeUnit   float64

	Timestamps []int64
	IntData    [][]int64   // IntData[col][row]
	FloatData  [][]float64 // FloatData[col][row]
}

// ReadLog parses a log file previously written by Recorder.WriteLog.
func ReadLog(filename string) (*LogData, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot read log file %q", filename)
	}
	return parseLogDataRaw([][]byte{raw})
}

// parseLogDataRaw parses one or more concatenated chunk buffers sharing a
// single header (the first chunk carries it in full; later chunks are
// pure data), mirroring the original source's parseLogDataRaw.
func parseLogDataRaw(chunks [][]byte) (*LogData, error) {
	logData := &LogData{}
	if len(chunks) == 0 {
		return logData, nil
	}

	first := chunks[0]
	if len(first) < 4 {
		return nil, dynamo.NewError(dynamo.ErrorKindBadInput, "corrupted log file: missing version")
	}
	logData.Version = int32(binary.LittleEndian.Uint32(first[:4]))
	if logData.Version != TelemetryVersion {
		return nil, dynamo.NewError(dynamo.ErrorKindBadInput, "unsupported telemetry log version %d", logData.Version)
	}

	constants, fieldnames, headerSize, err := parseHeaderSections(first)
	if err != nil {
		return nil, err
	}
	logData.Constants = constants
	logData.Fieldnames = fieldnames
	logData.TimeUnit = lookupTimeUnit(constants)

	// fieldnames is [Global.Time, int columns..., float columns...];
	// Num.Int.Entries/Num.Float.Entries count only the registered
	// columns, not the always-present leading Global.Time field (spec.md
	// §6), so numInts/numFloats need no adjustment.
	numInts, numFloats := 0, 0
	for _, c := range constants {
		if v, ok := constantValue(c, NumIntEntriesConstant); ok {
			numInts = v
		}
		if v, ok := constantValue(c, NumFloatEntriesConstant); ok {
			numFloats = v
		}
	}

	logData.IntData = make([][]int64, numInts)
	logData.FloatData = make([][]float64, numFloats)

	lineSize := len(StartLineToken) + 8 + 8*numInts + 8*numFloats
	tok := []byte(StartLineToken)

	// Pre-allocate every column for the most rows the buffers can hold; a
	// partially filled chunk leaves the columns shorter than that.
	maxRows := (len(first) - headerSize) / lineSize
	for _, c := range chunks[1:] {
		maxRows += len(c) / lineSize
	}
	logData.Timestamps = make([]int64, 0, maxRows)
	for col := range logData.IntData {
		logData.IntData[col] = make([]int64, 0, maxRows)
	}
	for col := range logData.FloatData {
		logData.FloatData[col] = make([]float64, 0, maxRows)
	}

	for ci, c := range chunks {
		body := c
		if ci == 0 {
			body = c[headerSize:]
		}
		off := 0
		for off+lineSize <= len(body) {
			if !bytes.Equal(body[off:off+len(tok)], tok) {
				break
			}
			off += len(tok)
			t := int64(binary.LittleEndian.Uint64(body[off:]))
			off += 8
			logData.Timestamps = append(logData.Timestamps, t)
			for col := 0; col < numInts; col++ {
				v := int64(binary.LittleEndian.Uint64(body[off:]))
				off += 8
				logData.IntData[col] = append(logData.IntData[col], v)
			}
			for col := 0; col < numFloats; col++ {
				bits := binary.LittleEndian.Uint64(body[off:])
				off += 8
				logData.FloatData[col] = append(logData.FloatData[col], math.Float64frombits(bits))
			}
		}
	}

	return logData, nil
}

// parseHeaderSections splits the constants and column-name sections out
// of a buffer starting with the 4-byte version, returning the byte
// offset where the data section begins.
func parseHeaderSections(buf []byte) (constants []Constant, fieldnames []string, headerSize int, err error) {
	header := buf[4:]

	constTok := []byte(StartConstants + "\x00")
	colTok := []byte(StartColumns + "\x00")
	dataTok := []byte(StartData + "\x00")

	ci := bytes.Index(header, constTok)
	oi := bytes.Index(header, colTok)
	di := bytes.Index(header, dataTok)
	if ci < 0 || oi < 0 || di < 0 || oi < ci || di < oi {
		return nil, nil, 0, dynamo.NewError(dynamo.ErrorKindBadInput, "corrupted log file: missing header tokens")
	}

	constBuf := header[ci+len(constTok) : oi]
	for _, tok := range splitNulTokens(constBuf) {
		entry := strings.TrimPrefix(tok, StartLineToken)
		if entry == "" {
			continue
		}
		if idx := strings.Index(entry, ConstantDelimiter); idx >= 0 {
			constants = append(constants, Constant{Key: entry[:idx], Value: entry[idx+len(ConstantDelimiter):]})
		}
	}

	colBuf := header[oi+len(colTok) : di]
	for _, tok := range splitNulTokens(colBuf) {
		entry := strings.TrimPrefix(tok, StartLineToken)
		if entry != "" {
			fieldnames = append(fieldnames, entry)
		}
	}

	headerSize = 4 + di + len(dataTok)
	return constants, fieldnames, headerSize, nil
}

func splitNulTokens(buf []byte) []string {
	parts := bytes.Split(buf, []byte{0})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) > 0 {
			out = append(out, string(p))
		}
	}
	return out
}

func constantValue(c Constant, key string) (int, bool) {
	if c.Key != key {
		return 0, false
	}
	v, err := strconv.Atoi(c.Value)
	return v, err == nil
}

func lookupTimeUnit(constants []Constant) float64 {
	for _, c := range constants {
		if c.Key == TimeUnitConstant {
			if v, err := strconv.ParseFloat(c.Value, 64); err == nil {
				return v
			}
		}
	}
	return 0
}
