package thermal

import (
	"github.com/zkalam/smart-thermal-control/internal/errors"
)

// BloodProperties holds the thermal properties of a stored blood product.
// Immutable after construction; presets cover the common products.
type BloodProperties struct {
	Name              string  `yaml:"name"`
	TargetTempC       float64 `yaml:"target_temp_c"`
	TempToleranceC    float64 `yaml:"temp_tolerance_c"`
	CriticalTempHighC float64 `yaml:"critical_temp_high_c"`
	CriticalTempLowC  float64 `yaml:"critical_temp_low_c"`
	Density           float64 `yaml:"density"`              // kg/m³
	SpecificHeat      float64 `yaml:"specific_heat"`        // J/kgK
	Conductivity      float64 `yaml:"thermal_conductivity"` // W/mK
	ThermalMassFactor float64 `yaml:"thermal_mass_factor"`

	// Phase change properties; zero means not applicable.
	PhaseChangeTempC float64 `yaml:"phase_change_temp_c"`
	LatentHeat       float64 `yaml:"latent_heat"` // J/kg
}

// NewBloodProperties validates and returns blood product properties.
func NewBloodProperties(p BloodProperties) (BloodProperties, error) {
	if err := p.Validate(); err != nil {
		return BloodProperties{}, err
	}
	return p, nil
}

// Validate checks storage temperature ordering and physical plausibility.
func (p BloodProperties) Validate() error {
	errFactory := errors.New()

	if p.CriticalTempLowC >= p.CriticalTempHighC {
		return errFactory.WithMessage(errors.ErrInvalidBloodType,
			"critical low temperature must be less than critical high temperature")
	}
	if p.TargetTempC < p.CriticalTempLowC || p.TargetTempC > p.CriticalTempHighC {
		return errFactory.WithData(errors.ErrInvalidBloodType, struct {
			Target       float64
			CriticalLow  float64
			CriticalHigh float64
		}{p.TargetTempC, p.CriticalTempLowC, p.CriticalTempHighC})
	}
	if p.Density <= 0 || p.SpecificHeat <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidBloodType, "density and specific heat must be positive")
	}
	if p.ThermalMassFactor <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidBloodType, "thermal mass factor must be positive")
	}
	return nil
}

// WarningBounds returns the tolerance band around the target temperature.
func (p BloodProperties) WarningBounds() (low, high float64) {
	return p.TargetTempC - p.TempToleranceC, p.TargetTempC + p.TempToleranceC
}

// WholeBlood returns the preset for refrigerated whole blood.
func WholeBlood() BloodProperties {
	return BloodProperties{
		Name:              "Whole Blood",
		TargetTempC:       4.0,
		TempToleranceC:    0.5,
		CriticalTempHighC: 6.0, // FDA maximum
		CriticalTempLowC:  1.0, // FDA minimum
		Density:           1060.0,
		SpecificHeat:      3600.0,
		Conductivity:      0.5,
		ThermalMassFactor: 1.2,
		PhaseChangeTempC:  -0.6,
		LatentHeat:        334000.0,
	}
}

// RedBloodCells returns the preset for packed red cells.
func RedBloodCells() BloodProperties {
	p := WholeBlood()
	p.Name = "Red Blood Cells"
	p.ThermalMassFactor = 1.15
	return p
}

// Plasma returns the preset for fresh frozen plasma.
func Plasma() BloodProperties {
	return BloodProperties{
		Name:              "Fresh Frozen Plasma",
		TargetTempC:       -18.0,
		TempToleranceC:    0.0, // no tolerance above -18°C
		CriticalTempHighC: -18.0,
		CriticalTempLowC:  -80.0,
		Density:           1025.0,
		SpecificHeat:      3400.0,
		Conductivity:      0.45,
		ThermalMassFactor: 0.95,
		PhaseChangeTempC:  0.0,
		LatentHeat:        334000.0,
	}
}

// Platelets returns the preset for room-temperature platelet storage.
func Platelets() BloodProperties {
	return BloodProperties{
		Name:              "Platelets",
		TargetTempC:       22.0, // 20-24°C with agitation
		TempToleranceC:    2.0,
		CriticalTempHighC: 24.0,
		CriticalTempLowC:  20.0,
		Density:           1040.0,
		SpecificHeat:      3500.0,
		Conductivity:      0.48,
		ThermalMassFactor: 1.0,
	}
}

// Cryoprecipitate returns the preset for frozen cryoprecipitate.
func Cryoprecipitate() BloodProperties {
	return BloodProperties{
		Name:              "Cryoprecipitate",
		TargetTempC:       -25.0,
		TempToleranceC:    0.0,
		CriticalTempHighC: -18.0,
		CriticalTempLowC:  -80.0,
		Density:           1030.0,
		SpecificHeat:      3450.0,
		Conductivity:      0.46,
		ThermalMassFactor: 0.95,
		PhaseChangeTempC:  0.0,
		LatentHeat:        334000.0,
	}
}

// Aluminum returns polished aluminum container material.
func Aluminum() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 205.0, Density: 2700.0, SpecificHeat: 900.0, Emissivity: 0.1}
}

// StainlessSteel316 returns medical-grade stainless steel.
func StainlessSteel316() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 16.3, Density: 8000.0, SpecificHeat: 500.0, Emissivity: 0.6}
}

// ABSPlastic returns ABS container plastic.
func ABSPlastic() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 0.2, Density: 1050.0, SpecificHeat: 1400.0, Emissivity: 0.9}
}

// Polystyrene returns polystyrene container plastic.
func Polystyrene() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 0.13, Density: 1050.0, SpecificHeat: 1300.0, Emissivity: 0.9}
}

// MedicalGradePVC returns medical-grade PVC.
func MedicalGradePVC() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 0.16, Density: 1380.0, SpecificHeat: 1000.0, Emissivity: 0.9}
}

// PETG returns PETG container plastic.
func PETG() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 0.2, Density: 1270.0, SpecificHeat: 1200.0, Emissivity: 0.85}
}

// PolyurethaneFoam returns polyurethane foam insulation.
func PolyurethaneFoam() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 0.025, Density: 30.0, SpecificHeat: 1400.0, Emissivity: 0.95}
}

// VacuumInsulation returns vacuum insulation panel material.
func VacuumInsulation() MaterialProperties {
	return MaterialProperties{ThermalConductivity: 0.004, Density: 200.0, SpecificHeat: 1000.0, Emissivity: 0.05}
}

// ProductByName resolves a blood product preset by its configuration key.
func ProductByName(name string) (BloodProperties, error) {
	switch name {
	case "whole_blood":
		return WholeBlood(), nil
	case "red_blood_cells":
		return RedBloodCells(), nil
	case "plasma":
		return Plasma(), nil
	case "platelets":
		return Platelets(), nil
	case "cryoprecipitate":
		return Cryoprecipitate(), nil
	default:
		return BloodProperties{}, errors.New().WithData(errors.ErrUnknownProduct, name)
	}
}

// MaterialByName resolves a container material preset by its configuration key.
func MaterialByName(name string) (MaterialProperties, error) {
	switch name {
	case "aluminum":
		return Aluminum(), nil
	case "stainless_steel_316":
		return StainlessSteel316(), nil
	case "abs_plastic":
		return ABSPlastic(), nil
	case "polystyrene":
		return Polystyrene(), nil
	case "medical_grade_pvc":
		return MedicalGradePVC(), nil
	case "petg":
		return PETG(), nil
	case "polyurethane_foam":
		return PolyurethaneFoam(), nil
	case "vacuum_insulation":
		return VacuumInsulation(), nil
	default:
		return MaterialProperties{}, errors.New().WithData(errors.ErrUnknownMaterial, name)
	}
}
