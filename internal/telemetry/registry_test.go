package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/telemetry"
)

func TestRegisterConstantFailsOnDuplicateName(t *testing.T) {
	d := telemetry.NewData()
	require.NoError(t, d.RegisterConstant("Model", "oscillator"))

	err := d.RegisterConstant("Model", "tethered_points")
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindBadInput))
}

func TestRegisterVariableIntReturnsSamePointerOnReRegistration(t *testing.T) {
	d := telemetry.NewData()
	p1, err := d.RegisterVariableInt("step")
	require.NoError(t, err)
	p2, err := d.RegisterVariableInt("step")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, d.NumInts())
}

func TestRegisterVariableFloatReturnsSamePointerOnReRegistration(t *testing.T) {
	d := telemetry.NewData()
	p1, err := d.RegisterVariableFloat("energy")
	require.NoError(t, err)
	p2, err := d.RegisterVariableFloat("energy")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, d.NumFloats())
}

func TestFrozenRegistryRejectsFurtherRegistration(t *testing.T) {
	d := telemetry.NewData()
	d.Freeze()

	_, err := d.RegisterVariableInt("step")
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindGeneric))

	_, err = d.RegisterVariableFloat("energy")
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindGeneric))

	err = d.RegisterConstant("Model", "oscillator")
	require.Error(t, err)
	assert.True(t, dynamo.IsKind(err, dynamo.ErrorKindGeneric))
}

func TestIntAndFloatValuesReflectWrittenPointers(t *testing.T) {
	d := telemetry.NewData()
	step, err := d.RegisterVariableInt("step")
	require.NoError(t, err)
	energy, err := d.RegisterVariableFloat("energy")
	require.NoError(t, err)

	*step = 7
	*energy = 3.5

	assert.Equal(t, []int64{7}, d.IntValues())
	assert.Equal(t, []float64{3.5}, d.FloatValues())
}
