package sim

import (
	"math"

	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

// DTdt computes the temperature change rate (°C/s) of the plant for a
// given applied thermal power. Environmental heat exchange combines
// conduction, convection and radiation; the sign is set by whether the
// blood is warmer or cooler than ambient.
func DTdt(state SystemState, thermalPower float64, geometry thermal.GeometricProperties) (float64, error) {
	if geometry.Length == 0 {
		geometry = thermal.DefaultContainerGeometry(state.VolumeLiters)
	}
	geometry.AirVelocity = state.AirVelocity

	hot := math.Max(state.BloodTemperature, state.AmbientTemperature)
	cold := math.Min(state.BloodTemperature, state.AmbientTemperature)

	qConduction, err := thermal.ConductionHeatTransfer(state.Container, geometry, hot, cold)
	if err != nil {
		return 0, err
	}

	qConvection, err := thermal.ConvectionHeatTransfer(geometry, geometry.Area,
		state.BloodTemperature, state.AmbientTemperature, thermal.Vertical)
	if err != nil {
		return 0, err
	}

	qRadiation, err := thermal.RadiationHeatTransfer(state.Container, geometry.Area, hot, cold)
	if err != nil {
		return 0, err
	}

	qEnvironmental := qConduction + qConvection + qRadiation
	if state.BloodTemperature > state.AmbientTemperature {
		qEnvironmental = -qEnvironmental // heat loss
	}

	mass, err := state.ThermalMass()
	if err != nil {
		return 0, err
	}

	return (thermalPower + qEnvironmental) / mass, nil
}

// RK4Step performs one 4th-order Runge-Kutta integration step:
//
//	k1 = f(t, y)
//	k2 = f(t + dt/2, y + k1·dt/2)
//	k3 = f(t + dt/2, y + k2·dt/2)
//	k4 = f(t + dt, y + k3·dt)
//	y' = y + (dt/6)(k1 + 2k2 + 2k3 + k4)
//
// The returned state carries ambient conditions and configuration
// forward unchanged, with time advanced by dt.
func RK4Step(state SystemState, dt, thermalPower float64, geometry thermal.GeometricProperties) (SystemState, error) {
	base := state
	base.AppliedPower = thermalPower

	k1, err := DTdt(base, thermalPower, geometry)
	if err != nil {
		return state, err
	}

	k2, err := DTdt(base.withOffsets(k1*dt/2, dt/2), thermalPower, geometry)
	if err != nil {
		return state, err
	}

	k3, err := DTdt(base.withOffsets(k2*dt/2, dt/2), thermalPower, geometry)
	if err != nil {
		return state, err
	}

	k4, err := DTdt(base.withOffsets(k3*dt, dt), thermalPower, geometry)
	if err != nil {
		return state, err
	}

	next := base
	next.Time += dt
	next.BloodTemperature += (dt / 6) * (k1 + 2*k2 + 2*k3 + k4)

	return next, nil
}

// Integrator steps a SystemState forward with RK4 using a fixed
// container geometry.
type Integrator struct {
	geometry  thermal.GeometricProperties
	stepCount int
}

// NewIntegrator creates an integrator. A zero-value geometry selects
// the default container geometry per step.
func NewIntegrator(geometry thermal.GeometricProperties) *Integrator {
	return &Integrator{geometry: geometry}
}

// Step performs one RK4 integration step.
func (i *Integrator) Step(state SystemState, dt, thermalPower float64) (SystemState, error) {
	i.stepCount++
	return RK4Step(state, dt, thermalPower, i.geometry)
}

// Simulate runs for duration seconds under a constant thermal power and
// returns all intermediate states, initial state first. The final step
// is shortened so the run ends exactly at duration.
func (i *Integrator) Simulate(initial SystemState, duration, dt, thermalPower float64) ([]SystemState, error) {
	return i.SimulateWithPower(initial, duration, dt, func(float64) float64 { return thermalPower })
}

// SimulateWithPower runs for duration seconds, evaluating powerFn at
// each state's current time to obtain the applied power.
func (i *Integrator) SimulateWithPower(initial SystemState, duration, dt float64, powerFn func(time float64) float64) ([]SystemState, error) {
	states := []SystemState{initial}
	current := initial

	for elapsed := 0.0; elapsed < duration; {
		actualDt := math.Min(dt, duration-elapsed)

		next, err := i.Step(current, actualDt, powerFn(current.Time))
		if err != nil {
			return states, err
		}

		states = append(states, next)
		current = next
		elapsed += actualDt
	}

	return states, nil
}

// StepCount returns the number of integration steps performed.
func (i *Integrator) StepCount() int {
	return i.stepCount
}

// Reset clears the step counter.
func (i *Integrator) Reset() {
	i.stepCount = 0
}
