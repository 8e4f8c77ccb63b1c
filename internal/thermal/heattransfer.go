package thermal

import (
	"fmt"
	"math"

	"github.com/zkalam/smart-thermal-control/internal/errors"
)

// Orientation selects the natural-convection correlation for a surface.
type Orientation string

const (
	Vertical          Orientation = "vertical"
	HorizontalHotUp   Orientation = "horizontal_hot_up"
	HorizontalHotDown Orientation = "horizontal_hot_down"
)

// CelsiusToKelvin converts with validation against absolute zero.
func CelsiusToKelvin(tempC float64) (float64, error) {
	if tempC < AbsoluteZeroC {
		return 0, errors.New().WithMessage(errors.ErrBelowAbsoluteZero,
			fmt.Sprintf("temperature %.2f°C is below absolute zero", tempC))
	}
	return tempC + 273.15, nil
}

// KelvinToCelsius converts with validation against absolute zero.
func KelvinToCelsius(tempK float64) (float64, error) {
	if tempK < 0 {
		return 0, errors.New().WithMessage(errors.ErrBelowAbsoluteZero,
			fmt.Sprintf("temperature %.2fK is below absolute zero", tempK))
	}
	return tempK - 273.15, nil
}

// ConvectionCoefficient returns the convective heat transfer coefficient
// h (W/m²K) for air over the container surface. Below 0.1 m/s a natural
// convection Rayleigh/Nusselt correlation is used, selected by surface
// orientation; above that a forced flat-plate Reynolds/Nusselt
// correlation applies.
func ConvectionCoefficient(length, tempSurface, tempFluid, velocity float64, orientation Orientation) (float64, error) {
	filmK, err := CelsiusToKelvin((tempSurface + tempFluid) / 2)
	if err != nil {
		return 0, err
	}

	// Simplified air property correlations at atmospheric pressure,
	// evaluated at the film temperature.
	nu := 1.5e-5 * math.Pow(filmK/300, 1.5)   // kinematic viscosity, m²/s
	kAir := 0.026 * math.Pow(filmK/300, 0.8)  // thermal conductivity, W/mK

	if velocity < 0.1 {
		deltaT := math.Abs(tempSurface - tempFluid)
		if deltaT < 0.1 {
			return 1.0, nil // minimal convection for very small temperature differences
		}

		beta := 1 / filmK                         // thermal expansion, ideal gas
		alpha := 2.2e-5 * math.Pow(filmK/300, 1.5) // thermal diffusivity, m²/s

		ra := Gravity * beta * deltaT * math.Pow(length, 3) / (nu * alpha)

		var nus float64
		switch orientation {
		case HorizontalHotUp:
			if ra < 1e7 {
				nus = 0.54 * math.Pow(ra, 0.25)
			} else {
				nus = 0.15 * math.Cbrt(ra)
			}
		case HorizontalHotDown:
			nus = 0.27 * math.Pow(ra, 0.25)
		default: // vertical plate, Churchill-Chu
			if ra < 1e9 {
				nus = 0.68 + 0.67*math.Pow(ra, 0.25)/math.Pow(1+math.Pow(0.492/0.7, 9.0/16.0), 4.0/9.0)
			} else {
				nus = math.Pow(0.825+0.387*math.Pow(ra, 1.0/6.0)/math.Pow(1+math.Pow(0.492/0.7, 9.0/16.0), 8.0/27.0), 2)
			}
		}

		return math.Max(nus*kAir/length, 1.0), nil
	}

	// Forced convection over a flat plate.
	const pr = 0.7 // Prandtl number for air

	re := velocity * length / nu

	var nus float64
	if re < 5e5 { // laminar
		nus = 0.664 * math.Sqrt(re) * math.Cbrt(pr)
	} else { // turbulent
		nus = 0.037 * math.Pow(re, 0.8) * math.Cbrt(pr)
	}

	return nus * kAir / length, nil
}

// ConductionHeatTransfer returns the conductive heat flow (W) through
// the container wall by Fourier's law: Q = k·A·ΔT/L.
func ConductionHeatTransfer(material MaterialProperties, geometry GeometricProperties, tempHot, tempCold float64) (float64, error) {
	thickness := geometry.WallThickness()
	if thickness <= 0 {
		return 0, errors.New().WithMessage(errors.ErrInvalidGeometry,
			"thickness must be positive for conduction calculations")
	}

	return material.ThermalConductivity * geometry.Area * (tempHot - tempCold) / thickness, nil
}

// ConvectionHeatTransfer returns the convective heat flow (W) by
// Newton's law of cooling: Q = h·A·ΔT.
func ConvectionHeatTransfer(geometry GeometricProperties, area, tempSurface, tempFluid float64, orientation Orientation) (float64, error) {
	h, err := ConvectionCoefficient(geometry.Length, tempSurface, tempFluid, geometry.AirVelocity, orientation)
	if err != nil {
		return 0, err
	}
	return h * area * (tempSurface - tempFluid), nil
}

// RadiationHeatTransfer returns the radiative heat flow (W) by the
// Stefan-Boltzmann law: Q = ε·σ·A·(T_hot⁴ − T_cold⁴). Temperatures are
// Celsius and converted internally.
func RadiationHeatTransfer(material MaterialProperties, area, tempHotC, tempColdC float64) (float64, error) {
	hotK, err := CelsiusToKelvin(tempHotC)
	if err != nil {
		return 0, err
	}
	coldK, err := CelsiusToKelvin(tempColdC)
	if err != nil {
		return 0, err
	}

	return material.Emissivity * StefanBoltzmann * area * (math.Pow(hotK, 4) - math.Pow(coldK, 4)), nil
}

// BloodThermalMass returns the effective heat capacity (J/K) of the
// product plus its container.
func BloodThermalMass(product BloodProperties, volumeLiters float64, container MaterialProperties, containerMassKg float64) (float64, error) {
	if volumeLiters <= 0 || containerMassKg < 0 {
		return 0, errors.New().WithMessage(errors.ErrInvalidThermalMass,
			"volume must be positive, container mass non-negative")
	}

	volumeM3 := volumeLiters / 1000.0
	bloodMassKg := product.Density * volumeM3
	bloodThermalMass := bloodMassKg * product.SpecificHeat * product.ThermalMassFactor
	containerThermalMass := containerMassKg * container.SpecificHeat

	return bloodThermalMass + containerThermalMass, nil
}

// ThermalDiffusivity returns α = k/(ρ·cp) in m²/s.
func ThermalDiffusivity(m MaterialProperties) float64 {
	return m.ThermalConductivity / (m.Density * m.SpecificHeat)
}

// StorageStatus reports a temperature check against a product's
// regulatory storage bands.
type StorageStatus struct {
	Safe    bool
	Level   string // NORMAL, WARNING or CRITICAL
	Message string
}

// ValidateStorageTemperature checks a temperature against the product's
// critical limits and tolerance band.
func ValidateStorageTemperature(product BloodProperties, currentTempC float64) StorageStatus {
	if currentTempC > product.CriticalTempHighC {
		return StorageStatus{
			Safe:  false,
			Level: "CRITICAL",
			Message: fmt.Sprintf("temperature %.1f°C exceeds maximum safe limit %.1f°C",
				currentTempC, product.CriticalTempHighC),
		}
	}
	if currentTempC < product.CriticalTempLowC {
		return StorageStatus{
			Safe:  false,
			Level: "CRITICAL",
			Message: fmt.Sprintf("temperature %.1f°C below minimum safe limit %.1f°C",
				currentTempC, product.CriticalTempLowC),
		}
	}

	warningLow, warningHigh := product.WarningBounds()
	if currentTempC > warningHigh {
		return StorageStatus{Safe: true, Level: "WARNING",
			Message: fmt.Sprintf("temperature %.1f°C above target range", currentTempC)}
	}
	if currentTempC < warningLow {
		return StorageStatus{Safe: true, Level: "WARNING",
			Message: fmt.Sprintf("temperature %.1f°C below target range", currentTempC)}
	}

	return StorageStatus{Safe: true, Level: "NORMAL",
		Message: fmt.Sprintf("temperature %.1f°C within safe range", currentTempC)}
}
