// Package thermal holds the physical data model for blood storage
// containers and the heat-transfer calculations the simulation is
// built on: conduction (Fourier), convection (Newton with natural and
// forced correlations) and radiation (Stefan-Boltzmann).
package thermal

// Physical constants used by the heat-transfer model.
const (
	// StefanBoltzmann is the Stefan-Boltzmann constant in W/(m²·K⁴).
	StefanBoltzmann = 5.670374419e-8

	// Gravity is standard gravity in m/s², used in natural convection.
	Gravity = 9.80665

	// AbsoluteZeroC is absolute zero in Celsius.
	AbsoluteZeroC = -273.15

	// RoomTemperatureC is standard room temperature in Celsius.
	RoomTemperatureC = 20.0
)
