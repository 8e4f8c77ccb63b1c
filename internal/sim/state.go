// Package sim advances the thermal plant in time: an immutable
// SystemState snapshot, a 4th-order Runge-Kutta integrator over the
// heat-transfer model, and the actuator that turns commanded power into
// deliverable power.
package sim

import (
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

// SystemState is a point-in-time snapshot of the plant. Each
// integration step produces a new value; a past state is never
// modified.
type SystemState struct {
	Time               float64 // s since simulation start
	BloodTemperature   float64 // °C
	AmbientTemperature float64 // °C
	AirVelocity        float64 // m/s
	AppliedPower       float64 // W, positive = heating

	Product         thermal.BloodProperties
	Container       thermal.MaterialProperties
	VolumeLiters    float64
	ContainerMassKg float64
}

// ThermalMass returns the effective heat capacity (J/K) of the product
// plus container described by this state.
func (s SystemState) ThermalMass() (float64, error) {
	return thermal.BloodThermalMass(s.Product, s.VolumeLiters, s.Container, s.ContainerMassKg)
}

// withOffsets returns a copy shifted in temperature and time, used for
// the intermediate RK4 stages.
func (s SystemState) withOffsets(tempOffset, timeOffset float64) SystemState {
	next := s
	next.Time += timeOffset
	next.BloodTemperature += tempOffset
	return next
}
