package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkalam/smart-thermal-control/internal/sim"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

func newTestSystem(t *testing.T) *sim.ThermalSystem {
	t.Helper()
	system, err := sim.NewThermalSystem(thermal.WholeBlood(), thermal.MedicalGradePVC(),
		0.5, 0.2, sim.DefaultActuatorLimits())
	require.NoError(t, err)
	return system
}

func TestNewThermalSystemValidates(t *testing.T) {
	bad := thermal.WholeBlood()
	bad.Density = -1
	_, err := sim.NewThermalSystem(bad, thermal.MedicalGradePVC(), 0.5, 0.2, sim.DefaultActuatorLimits())
	assert.Error(t, err)

	_, err = sim.NewThermalSystem(thermal.WholeBlood(), thermal.MedicalGradePVC(), 0, 0.2, sim.DefaultActuatorLimits())
	assert.Error(t, err, "zero volume")

	_, err = sim.NewThermalSystem(thermal.WholeBlood(), thermal.MedicalGradePVC(), 0.5, 0.2,
		sim.ActuatorLimits{MaxHeatingPower: 0, MaxCoolingPower: 100})
	assert.Error(t, err, "invalid actuator limits")
}

func TestApplyThermalPowerClamps(t *testing.T) {
	system := newTestSystem(t)

	assert.Equal(t, 50.0, system.ApplyThermalPower(120.0), "heating clamps to max heating power")
	assert.Equal(t, -100.0, system.ApplyThermalPower(-250.0), "cooling clamps to max cooling power")
}

func TestApplyThermalPowerDeadband(t *testing.T) {
	system := newTestSystem(t)

	assert.Equal(t, 0.0, system.ApplyThermalPower(0.4))
	status := system.ActuatorStatus()
	assert.Equal(t, sim.ActuatorDeadband, status.Mode)
	assert.True(t, status.InDeadband)

	assert.Equal(t, 0.0, system.ApplyThermalPower(0.0))
	assert.Equal(t, sim.ActuatorOff, system.ActuatorStatus().Mode)
}

func TestApplyThermalPowerQuantizes(t *testing.T) {
	system := newTestSystem(t)

	assert.Equal(t, 13.0, system.ApplyThermalPower(12.7), "rounded to nearest 1 W increment")
	assert.Equal(t, -42.0, system.ApplyThermalPower(-41.6))
}

func TestActuatorSaturationReportsCommandedMagnitude(t *testing.T) {
	system := newTestSystem(t)

	system.ApplyThermalPower(120.0)
	assert.True(t, system.ActuatorStatus().Saturated)

	system.ApplyThermalPower(30.0)
	status := system.ActuatorStatus()
	assert.False(t, status.Saturated)
	assert.InDelta(t, 60.0, status.UtilizationPct, 1e-9)

	system.ApplyThermalPower(-50.0)
	status = system.ActuatorStatus()
	assert.False(t, status.Saturated)
	assert.Equal(t, sim.ActuatorCooling, status.Mode)
	assert.InDelta(t, 50.0, status.UtilizationPct, 1e-9)
}

func TestStepAdvancesState(t *testing.T) {
	system := newTestSystem(t)
	before := system.CurrentTemperature()

	system.ApplyThermalPower(-80.0)
	next, err := system.Step(1.0)
	require.NoError(t, err)

	assert.Less(t, next.BloodTemperature, before)
	assert.InDelta(t, 1.0, next.Time, 1e-9)
	assert.Equal(t, next.BloodTemperature, system.CurrentTemperature())
}

func TestReset(t *testing.T) {
	system := newTestSystem(t)

	system.ApplyThermalPower(-80.0)
	_, err := system.Step(5.0)
	require.NoError(t, err)

	system.Reset(10.0, 4.0)

	state := system.State()
	assert.Equal(t, 10.0, state.BloodTemperature)
	assert.Equal(t, 4.0, state.AmbientTemperature)
	assert.Equal(t, 0.0, state.Time)
	assert.Equal(t, sim.ActuatorOff, system.ActuatorStatus().Mode)
	assert.Equal(t, 0.0, system.ActuatorStatus().CommandedPowerW)
}
