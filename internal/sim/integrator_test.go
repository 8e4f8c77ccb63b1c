package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkalam/smart-thermal-control/internal/sim"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

func testState(bloodTemp, ambientTemp float64) sim.SystemState {
	return sim.SystemState{
		BloodTemperature:   bloodTemp,
		AmbientTemperature: ambientTemp,
		AirVelocity:        1.0,
		Product:            thermal.WholeBlood(),
		Container:          thermal.MedicalGradePVC(),
		VolumeLiters:       0.5,
		ContainerMassKg:    0.2,
	}
}

func TestDTdtZeroAtEquilibrium(t *testing.T) {
	rate, err := sim.DTdt(testState(4.0, 4.0), 0, thermal.GeometricProperties{})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rate, 1e-12)
}

func TestDTdtSignFollowsEnvironment(t *testing.T) {
	cooling, err := sim.DTdt(testState(20.0, 4.0), 0, thermal.GeometricProperties{})
	require.NoError(t, err)
	assert.Negative(t, cooling, "warm blood in a cold compartment loses heat")

	warming, err := sim.DTdt(testState(2.0, 20.0), 0, thermal.GeometricProperties{})
	require.NoError(t, err)
	assert.Positive(t, warming, "cold blood in a warm room gains heat")
}

func TestDTdtAppliedPower(t *testing.T) {
	state := testState(4.0, 4.0)

	heating, err := sim.DTdt(state, 50.0, thermal.GeometricProperties{})
	require.NoError(t, err)
	assert.Positive(t, heating)

	mass, err := state.ThermalMass()
	require.NoError(t, err)
	assert.InDelta(t, 50.0/mass, heating, 1e-12, "with no environmental gradient dT/dt is P over thermal mass")
}

func TestRK4StepUnchangedAtEquilibrium(t *testing.T) {
	state := testState(4.0, 4.0)

	for _, dt := range []float64{0.1, 1.0, 10.0, 120.0} {
		next, err := sim.RK4Step(state, dt, 0, thermal.GeometricProperties{})
		require.NoError(t, err)
		assert.InDelta(t, 4.0, next.BloodTemperature, 1e-9, "dt=%v", dt)
		assert.InDelta(t, state.Time+dt, next.Time, 1e-9)
	}
}

func TestRK4StepCarriesConfigurationForward(t *testing.T) {
	state := testState(20.0, 4.0)

	next, err := sim.RK4Step(state, 1.0, -30.0, thermal.GeometricProperties{})
	require.NoError(t, err)

	assert.Equal(t, state.AmbientTemperature, next.AmbientTemperature)
	assert.Equal(t, state.AirVelocity, next.AirVelocity)
	assert.Equal(t, state.VolumeLiters, next.VolumeLiters)
	assert.Equal(t, -30.0, next.AppliedPower)
	assert.Less(t, next.BloodTemperature, state.BloodTemperature)
}

func TestRK4DoesNotMutateInput(t *testing.T) {
	state := testState(20.0, 4.0)
	before := state

	_, err := sim.RK4Step(state, 1.0, -30.0, thermal.GeometricProperties{})
	require.NoError(t, err)
	assert.Equal(t, before, state)
}

func TestIntegratorSimulate(t *testing.T) {
	integ := sim.NewIntegrator(thermal.GeometricProperties{})

	states, err := integ.Simulate(testState(20.0, 4.0), 10.0, 1.0, 0)
	require.NoError(t, err)

	require.Len(t, states, 11, "initial state plus 10 steps")
	assert.InDelta(t, 10.0, states[len(states)-1].Time, 1e-9)
	assert.Equal(t, 10, integ.StepCount())

	// Passive cooling toward ambient, monotonically.
	for i := 1; i < len(states); i++ {
		assert.Less(t, states[i].BloodTemperature, states[i-1].BloodTemperature)
	}
}

func TestIntegratorSimulateShortensFinalStep(t *testing.T) {
	integ := sim.NewIntegrator(thermal.GeometricProperties{})

	states, err := integ.Simulate(testState(20.0, 4.0), 2.5, 1.0, 0)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, states[len(states)-1].Time, 1e-9)
}

func TestIntegratorSimulateWithPower(t *testing.T) {
	integ := sim.NewIntegrator(thermal.GeometricProperties{})

	// Heating burst for the first 5 seconds only.
	powerFn := func(time float64) float64 {
		if time < 5.0 {
			return 40.0
		}
		return 0.0
	}

	states, err := integ.SimulateWithPower(testState(4.0, 4.0), 10.0, 1.0, powerFn)
	require.NoError(t, err)

	midpoint := states[5].BloodTemperature
	assert.Greater(t, midpoint, states[0].BloodTemperature, "heating phase raises temperature")
	assert.LessOrEqual(t, states[len(states)-1].BloodTemperature, midpoint+0.01,
		"after the burst the plant relaxes back toward ambient")
}

func TestIntegratorReset(t *testing.T) {
	integ := sim.NewIntegrator(thermal.GeometricProperties{})

	_, err := integ.Step(testState(4.0, 4.0), 1.0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, integ.StepCount())

	integ.Reset()
	assert.Equal(t, 0, integ.StepCount())
}
