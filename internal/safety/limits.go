// Package safety evaluates blood temperatures against tiered limits,
// manages the alarm lifecycle and computes the emergency override
// power the control layer blends with controller output.
package safety

import (
	"github.com/zkalam/smart-thermal-control/internal/errors"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

// SafetyLimits parameterizes temperature monitoring. The invariant
// critical_low ≤ warning_low ≤ warning_high ≤ critical_high is
// enforced at construction.
type SafetyLimits struct {
	CriticalTempHigh float64 // °C
	CriticalTempLow  float64 // °C
	WarningTempHigh  float64 // °C
	WarningTempLow   float64 // °C

	MaxHeatingRate float64 // °C/min
	MaxCoolingRate float64 // °C/min

	MaxTimeOutsideWarning  float64 // s
	MaxTimeOutsideCritical float64 // s

	MaxEmergencyPower float64 // W
}

// NewSafetyLimits validates and returns safety limits.
func NewSafetyLimits(l SafetyLimits) (SafetyLimits, error) {
	if err := l.Validate(); err != nil {
		return SafetyLimits{}, err
	}
	return l, nil
}

// Validate enforces limit ordering.
func (l SafetyLimits) Validate() error {
	errFactory := errors.New()

	if l.CriticalTempLow >= l.CriticalTempHigh {
		return errFactory.WithMessage(errors.ErrInvalidSafetyLimits,
			"critical low temperature must be less than critical high")
	}
	if l.WarningTempLow >= l.WarningTempHigh {
		return errFactory.WithMessage(errors.ErrInvalidSafetyLimits,
			"warning low temperature must be less than warning high")
	}
	if !(l.CriticalTempLow <= l.WarningTempLow && l.WarningTempLow <= l.WarningTempHigh &&
		l.WarningTempHigh <= l.CriticalTempHigh) {
		return errFactory.WithMessage(errors.ErrInvalidSafetyLimits,
			"safety limits must be ordered: critical_low ≤ warning_low ≤ warning_high ≤ critical_high")
	}
	return nil
}

// DefaultLimits derives limits from a blood product's critical bounds,
// with warning bounds buffered 1°C inward and standard rate/time
// allowances.
func DefaultLimits(product thermal.BloodProperties) SafetyLimits {
	return SafetyLimits{
		CriticalTempHigh:       product.CriticalTempHighC,
		CriticalTempLow:        product.CriticalTempLowC,
		WarningTempHigh:        product.CriticalTempHighC - 1.0,
		WarningTempLow:         product.CriticalTempLowC + 1.0,
		MaxHeatingRate:         2.0,
		MaxCoolingRate:         5.0,
		MaxTimeOutsideWarning:  300.0, // 5 minutes
		MaxTimeOutsideCritical: 60.0,  // 1 minute
		MaxEmergencyPower:      200.0,
	}
}

// PlasmaLimits returns tighter limits for frozen plasma storage.
func PlasmaLimits(product thermal.BloodProperties) SafetyLimits {
	return SafetyLimits{
		CriticalTempHigh:       product.CriticalTempHighC,
		CriticalTempLow:        product.CriticalTempLowC,
		WarningTempHigh:        product.CriticalTempHighC - 0.5,
		WarningTempLow:         product.CriticalTempLowC + 0.5,
		MaxHeatingRate:         1.0,
		MaxCoolingRate:         3.0,
		MaxTimeOutsideWarning:  180.0,
		MaxTimeOutsideCritical: 30.0,
		MaxEmergencyPower:      200.0,
	}
}

// StrictLimits returns very tight limits for emergency transport use,
// with warnings hugging the target temperature.
func StrictLimits(product thermal.BloodProperties) SafetyLimits {
	return SafetyLimits{
		CriticalTempHigh:       product.CriticalTempHighC,
		CriticalTempLow:        product.CriticalTempLowC,
		WarningTempHigh:        product.TargetTempC + 0.5,
		WarningTempLow:         product.TargetTempC - 0.5,
		MaxHeatingRate:         0.5,
		MaxCoolingRate:         1.0,
		MaxTimeOutsideWarning:  60.0,
		MaxTimeOutsideCritical: 15.0,
		MaxEmergencyPower:      200.0,
	}
}
