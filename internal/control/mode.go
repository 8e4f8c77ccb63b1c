// Package control is the top-level orchestrator. It owns one PID
// controller, one safety monitor and one thermal system, runs the
// control-mode state machine and blends safety override power with
// controller output.
package control

import (
	"github.com/zkalam/smart-thermal-control/internal/errors"
	"github.com/zkalam/smart-thermal-control/internal/pid"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

// Mode is the operating mode of the whole control system.
type Mode string

const (
	// Startup is the initial mode before the system is started.
	Startup Mode = "startup"
	// Automatic runs closed-loop PID control with safety monitoring.
	Automatic Mode = "automatic"
	// Manual applies the stored manual power command. Safety
	// monitoring stays active.
	Manual Mode = "manual"
	// Emergency applies the safety monitor's override power. Only the
	// monitor can trigger this mode, never a caller.
	Emergency Mode = "emergency"
	// Maintenance holds the actuator at zero power.
	Maintenance Mode = "maintenance"
	// Shutdown is the terminal mode after Stop.
	Shutdown Mode = "shutdown"
)

// Configuration parameterizes a control system.
type Configuration struct {
	Gains             pid.Gains
	TargetTemperature float64 // °C

	ControlUpdateInterval float64 // s, advisory tick spacing
	SafetyUpdateInterval  float64 // s, advisory tick spacing

	// MaxOverridePct is how much authority the safety override power
	// has over the mode's raw output when blended, 0-100.
	MaxOverridePct          float64
	EnableEmergencyOverride bool

	EnablePerformanceLogging bool
	HistoryLength            int
}

// DefaultConfiguration returns conservative blood storage settings
// targeting the product's own storage temperature.
func DefaultConfiguration(product thermal.BloodProperties) Configuration {
	return Configuration{
		Gains:                    pid.BloodStorageGains(),
		TargetTemperature:        product.TargetTempC,
		ControlUpdateInterval:    10.0,
		SafetyUpdateInterval:     5.0,
		MaxOverridePct:           50.0,
		EnableEmergencyOverride:  true,
		EnablePerformanceLogging: true,
		HistoryLength:            1000,
	}
}

// PlasmaConfiguration returns faster, more aggressive settings for
// plasma freezing.
func PlasmaConfiguration() Configuration {
	return Configuration{
		Gains:                    pid.Gains{Kp: 2.0, Ki: 0.2, Kd: 0.1},
		TargetTemperature:        -18.0,
		ControlUpdateInterval:    5.0,
		SafetyUpdateInterval:     3.0,
		MaxOverridePct:           50.0,
		EnableEmergencyOverride:  true,
		EnablePerformanceLogging: true,
		HistoryLength:            1000,
	}
}

// Validate rejects unusable configurations.
func (c Configuration) Validate() error {
	errFactory := errors.New()

	if err := c.Gains.Validate(); err != nil {
		return err
	}
	if c.ControlUpdateInterval <= 0 || c.SafetyUpdateInterval <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidInterval,
			"update intervals must be positive")
	}
	if c.MaxOverridePct < 0 || c.MaxOverridePct > 100 {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"override percentage must be between 0 and 100")
	}
	if c.HistoryLength <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"history length must be positive")
	}
	return nil
}
