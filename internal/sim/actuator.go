package sim

import (
	"math"

	"github.com/zkalam/smart-thermal-control/internal/errors"
)

// ActuatorLimits configures the heating/cooling actuator.
type ActuatorLimits struct {
	MaxHeatingPower   float64 // W
	MaxCoolingPower   float64 // W, stored positive
	MinPowerIncrement float64 // W, deadband and quantization step
	ResponseTime      float64 // s
}

// DefaultActuatorLimits returns the limits of a standard blood storage
// actuator: conservative heating, stronger cooling.
func DefaultActuatorLimits() ActuatorLimits {
	return ActuatorLimits{
		MaxHeatingPower:   50.0,
		MaxCoolingPower:   100.0,
		MinPowerIncrement: 1.0,
		ResponseTime:      30.0,
	}
}

// Validate checks the actuator configuration.
func (l ActuatorLimits) Validate() error {
	errFactory := errors.New()

	if l.MaxHeatingPower <= 0 || l.MaxCoolingPower <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "actuator power limits must be positive")
	}
	if l.MinPowerIncrement < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "minimum power increment must be non-negative")
	}
	return nil
}

// ActuatorMode describes what the actuator is currently doing.
type ActuatorMode string

const (
	ActuatorOff      ActuatorMode = "off"
	ActuatorHeating  ActuatorMode = "heating"
	ActuatorCooling  ActuatorMode = "cooling"
	ActuatorDeadband ActuatorMode = "deadband"
)

// apply clamps, deadbands and quantizes a commanded power, returning
// the deliverable power and the resulting mode.
func (l ActuatorLimits) apply(commanded float64) (float64, ActuatorMode) {
	limited := math.Max(-l.MaxCoolingPower, math.Min(l.MaxHeatingPower, commanded))

	if math.Abs(limited) < l.MinPowerIncrement {
		if commanded != 0 {
			return 0, ActuatorDeadband
		}
		return 0, ActuatorOff
	}

	mode := ActuatorHeating
	if limited < 0 {
		mode = ActuatorCooling
	}

	if l.MinPowerIncrement > 0 {
		limited = math.Round(limited/l.MinPowerIncrement) * l.MinPowerIncrement
	}

	return limited, mode
}

// ActuatorStatus reports the actuator's current operating point.
type ActuatorStatus struct {
	Mode            ActuatorMode
	CommandedPowerW float64
	ActualPowerW    float64
	UtilizationPct  float64
	Saturated       bool
	InDeadband      bool
	MaxHeatingW     float64
	MaxCoolingW     float64
}
