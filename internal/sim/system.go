package sim

import (
	"math"

	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

// Default plant initial conditions.
const (
	DefaultInitialTemperature = 20.0 // °C, room temperature at loading
	DefaultAmbientTemperature = 4.0  // °C, refrigerated compartment
	DefaultAirVelocity        = 1.0  // m/s, compartment circulation fan
)

// ThermalSystem is the plant the controller acts on: current state,
// actuator model and RK4 integrator.
type ThermalSystem struct {
	integrator *Integrator
	limits     ActuatorLimits

	currentState   SystemState
	commandedPower float64
	actualPower    float64
	mode           ActuatorMode
	airVelocity    float64
}

// NewThermalSystem builds a plant for the given product and container.
func NewThermalSystem(product thermal.BloodProperties, container thermal.MaterialProperties,
	volumeLiters, containerMassKg float64, limits ActuatorLimits,
) (*ThermalSystem, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := container.Validate(); err != nil {
		return nil, err
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if _, err := thermal.BloodThermalMass(product, volumeLiters, container, containerMassKg); err != nil {
		return nil, err
	}

	return &ThermalSystem{
		integrator:  NewIntegrator(thermal.GeometricProperties{}),
		limits:      limits,
		mode:        ActuatorOff,
		airVelocity: DefaultAirVelocity,
		currentState: SystemState{
			BloodTemperature:   DefaultInitialTemperature,
			AmbientTemperature: DefaultAmbientTemperature,
			AirVelocity:        DefaultAirVelocity,
			Product:            product,
			Container:          container,
			VolumeLiters:       volumeLiters,
			ContainerMassKg:    containerMassKg,
		},
	}, nil
}

// State returns the current plant state snapshot.
func (t *ThermalSystem) State() SystemState {
	return t.currentState
}

// CurrentTemperature returns the blood temperature (°C).
func (t *ThermalSystem) CurrentTemperature() float64 {
	return t.currentState.BloodTemperature
}

// ActuatorLimits returns the configured actuator limits.
func (t *ThermalSystem) ActuatorLimits() ActuatorLimits {
	return t.limits
}

// SetAirVelocity changes the compartment air flow in m/s. Values near
// zero switch the convection model to natural convection. The setting
// survives Reset.
func (t *ThermalSystem) SetAirVelocity(velocity float64) {
	if velocity < 0 {
		velocity = 0
	}
	t.airVelocity = velocity
	t.currentState.AirVelocity = velocity
}

// ApplyThermalPower stores a power command and returns the power the
// actuator will actually deliver after clamping, deadband and
// quantization.
func (t *ThermalSystem) ApplyThermalPower(powerWatts float64) float64 {
	t.commandedPower = powerWatts
	t.actualPower, t.mode = t.limits.apply(powerWatts)
	return t.actualPower
}

// Step advances the simulation by dt seconds under the currently
// applied power and returns the new state.
func (t *ThermalSystem) Step(dt float64) (SystemState, error) {
	next, err := t.integrator.Step(t.currentState, dt, t.actualPower)
	if err != nil {
		return t.currentState, err
	}
	t.currentState = next
	return next, nil
}

// ActuatorStatus reports utilization and saturation of the actuator.
// Saturation compares the commanded (pre-clamp) magnitude against the
// corresponding limit.
func (t *ThermalSystem) ActuatorStatus() ActuatorStatus {
	status := ActuatorStatus{
		Mode:            t.mode,
		CommandedPowerW: t.commandedPower,
		ActualPowerW:    t.actualPower,
		InDeadband:      t.mode == ActuatorDeadband,
		MaxHeatingW:     t.limits.MaxHeatingPower,
		MaxCoolingW:     t.limits.MaxCoolingPower,
	}

	switch t.mode {
	case ActuatorHeating:
		status.UtilizationPct = t.actualPower / t.limits.MaxHeatingPower * 100
	case ActuatorCooling:
		status.UtilizationPct = math.Abs(t.actualPower) / t.limits.MaxCoolingPower * 100
	}

	if t.commandedPower > 0 {
		status.Saturated = t.commandedPower > t.limits.MaxHeatingPower
	} else if t.commandedPower < 0 {
		status.Saturated = math.Abs(t.commandedPower) > t.limits.MaxCoolingPower
	}

	return status
}

// Reset restores the plant to fresh initial conditions, zeroing applied
// power and the integrator step counter. Product and container
// configuration are kept.
func (t *ThermalSystem) Reset(initialTemperature, ambientTemperature float64) {
	t.currentState = SystemState{
		BloodTemperature:   initialTemperature,
		AmbientTemperature: ambientTemperature,
		AirVelocity:        t.airVelocity,
		Product:            t.currentState.Product,
		Container:          t.currentState.Container,
		VolumeLiters:       t.currentState.VolumeLiters,
		ContainerMassKg:    t.currentState.ContainerMassKg,
	}
	t.commandedPower = 0
	t.actualPower = 0
	t.mode = ActuatorOff
	t.integrator.Reset()
}
