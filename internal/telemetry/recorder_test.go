package telemetry_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/telemetry"
)

func newInitializedRecorder(t *testing.T, timeUnit float64) (*telemetry.Recorder, *int64, *float64) {
	t.Helper()
	d := telemetry.NewData()
	step, err := d.RegisterVariableInt("step")
	require.NoError(t, err)
	energy, err := d.RegisterVariableFloat("energy")
	require.NoError(t, err)

	r := telemetry.New()
	require.NoError(t, r.Initialize(d, timeUnit))
	return r, step, energy
}

func TestRecorderRoundTripIsBitExactAcrossManyChunks(t *testing.T) {
	r, step, energy := newInitializedRecorder(t, 1e-4)

	// One data line here is small enough that MinChunkBytes forces several
	// chunk rollovers well before this loop ends, exercising the
	// multi-chunk case (a header-bearing first chunk followed by pure-data
	// chunks) end to end.
	const rows = 10000
	for i := 0; i < rows; i++ {
		*step = int64(i)
		*energy = float64(i) * 0.5
		require.NoError(t, r.Append(float64(i)*1e-3))
	}

	inMemory, err := r.GetLog()
	require.NoError(t, err)
	require.Len(t, inMemory.Timestamps, rows)

	dir := t.TempDir()
	path := filepath.Join(dir, "log.bin")
	require.NoError(t, r.WriteLog(path))

	fromDisk, err := telemetry.ReadLog(path)
	require.NoError(t, err)

	assert.Equal(t, inMemory, fromDisk)

	for i := 0; i < rows; i++ {
		require.Equal(t, int64(i), fromDisk.IntData[0][i], "row %d int column", i)
		require.InDelta(t, float64(i)*0.5, fromDisk.FloatData[0][i], 1e-9, "row %d float column", i)
	}
}

func TestRecorderQuantizesTimeWithinHalfUnit(t *testing.T) {
	const timeUnit = 1e-3
	r, _, _ := newInitializedRecorder(t, timeUnit)

	timestamps := []float64{0, 1.23456, 7.0009, 100.0005}
	for _, ts := range timestamps {
		require.NoError(t, r.Append(ts))
	}

	logData, err := r.GetLog()
	require.NoError(t, err)
	require.Len(t, logData.Timestamps, len(timestamps))

	for i, ts := range timestamps {
		recovered := float64(logData.Timestamps[i]) * logData.TimeUnit
		assert.LessOrEqual(t, math.Abs(recovered-ts), timeUnit/2+1e-12, "timestamp %d quantization exceeded half a unit", i)
	}
}

func TestReadLogRejectsVersionMismatch(t *testing.T) {
	r, _, _ := newInitializedRecorder(t, 1e-3)
	require.NoError(t, r.Append(0))

	dir := t.TempDir()
	path := filepath.Join(dir, "log.bin")
	require.NoError(t, r.WriteLog(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(raw[:4], uint32(telemetry.TelemetryVersion+1))
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = telemetry.ReadLog(path)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindBadInput))
}

func TestRecorderRejectsNonPositiveTimeUnit(t *testing.T) {
	d := telemetry.NewData()
	r := telemetry.New()
	err := r.Initialize(d, 0)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindBadInput))
}

func TestRecorderRejectsDoubleInitialize(t *testing.T) {
	d := telemetry.NewData()
	r := telemetry.New()
	require.NoError(t, r.Initialize(d, 1e-3))

	err := r.Initialize(telemetry.NewData(), 1e-3)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindInitFailed))
}

func TestAppendBeforeInitializeFails(t *testing.T) {
	r := telemetry.New()
	err := r.Append(0)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindGeneric))
}

func TestResetClearsChunksAndRequiresReinitialize(t *testing.T) {
	r, _, _ := newInitializedRecorder(t, 1e-3)
	require.NoError(t, r.Append(0))
	r.Reset()

	err := r.Append(0)
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindGeneric))
}
