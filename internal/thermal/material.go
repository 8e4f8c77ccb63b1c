package thermal

import (
	"github.com/zkalam/smart-thermal-control/internal/errors"
)

// MaterialProperties describes a container material for heat-transfer
// calculations. Values are validated at construction and never mutated.
type MaterialProperties struct {
	ThermalConductivity float64 `yaml:"thermal_conductivity"` // W/mK
	Density             float64 `yaml:"density"`              // kg/m³
	SpecificHeat        float64 `yaml:"specific_heat"`        // J/kgK
	Emissivity          float64 `yaml:"emissivity"`           // 0-1
}

// NewMaterialProperties validates and returns material properties.
func NewMaterialProperties(conductivity, density, specificHeat, emissivity float64) (MaterialProperties, error) {
	m := MaterialProperties{
		ThermalConductivity: conductivity,
		Density:             density,
		SpecificHeat:        specificHeat,
		Emissivity:          emissivity,
	}
	if err := m.Validate(); err != nil {
		return MaterialProperties{}, err
	}
	return m, nil
}

// Validate checks the physical plausibility of the material.
func (m MaterialProperties) Validate() error {
	errFactory := errors.New()

	if m.ThermalConductivity < 0 {
		return errFactory.WithMessage(errors.ErrInvalidMaterial, "thermal conductivity must be non-negative")
	}
	if m.Density <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidMaterial, "density must be positive")
	}
	if m.SpecificHeat <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidMaterial, "specific heat must be positive")
	}
	if m.Emissivity < 0 || m.Emissivity > 1 {
		return errFactory.WithMessage(errors.ErrInvalidMaterial, "emissivity must be between 0 and 1")
	}
	return nil
}

// GeometricProperties describes container geometry for heat-transfer
// calculations. Thickness and AirVelocity are optional; zero means unset.
type GeometricProperties struct {
	Length      float64 `yaml:"length"`       // m, characteristic length
	Area        float64 `yaml:"area"`         // m², heat transfer area
	Volume      float64 `yaml:"volume"`       // m³
	Thickness   float64 `yaml:"thickness"`    // m, wall thickness (0 = use Length)
	AirVelocity float64 `yaml:"air_velocity"` // m/s
}

// NewGeometricProperties validates and returns geometric properties.
func NewGeometricProperties(length, area, volume, thickness, airVelocity float64) (GeometricProperties, error) {
	g := GeometricProperties{
		Length:      length,
		Area:        area,
		Volume:      volume,
		Thickness:   thickness,
		AirVelocity: airVelocity,
	}
	if err := g.Validate(); err != nil {
		return GeometricProperties{}, err
	}
	return g, nil
}

// Validate checks the physical plausibility of the geometry.
func (g GeometricProperties) Validate() error {
	errFactory := errors.New()

	if g.Length <= 0 || g.Area <= 0 || g.Volume <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidGeometry, "all geometric dimensions must be positive")
	}
	if g.Thickness < 0 {
		return errFactory.WithMessage(errors.ErrInvalidGeometry, "thickness must be positive if specified")
	}
	if g.AirVelocity < 0 {
		return errFactory.WithMessage(errors.ErrInvalidGeometry, "air velocity must be greater than or equal to zero")
	}
	return nil
}

// WallThickness returns the conduction path length, falling back to
// the characteristic length when no explicit thickness is set.
func (g GeometricProperties) WallThickness() float64 {
	if g.Thickness > 0 {
		return g.Thickness
	}
	return g.Length
}

// DefaultContainerGeometry returns the geometry assumed for a standard
// blood storage container when none is configured.
func DefaultContainerGeometry(volumeLiters float64) GeometricProperties {
	return GeometricProperties{
		Length:    0.15,  // 15cm characteristic length
		Area:      0.035, // 350 cm² surface area
		Volume:    volumeLiters / 1000.0,
		Thickness: 0.003, // 3mm wall
	}
}
