package thermal

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/zkalam/smart-thermal-control/internal/errors"
)

// Library extends the built-in presets with site-specific products and
// materials loaded from a YAML file. Entries are validated through the
// same constructors as the built-in presets.
type Library struct {
	Products  map[string]BloodProperties
	Materials map[string]MaterialProperties
}

type libraryFile struct {
	Products  map[string]BloodProperties    `yaml:"products"`
	Materials map[string]MaterialProperties `yaml:"materials"`
}

// LoadLibrary reads preset overrides from path. A missing file is not an
// error; it yields an empty library.
func LoadLibrary(path string) (*Library, error) {
	errFactory := errors.New()

	lib := &Library{
		Products:  map[string]BloodProperties{},
		Materials: map[string]MaterialProperties{},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lib, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	var file libraryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	for key, p := range file.Products {
		validated, err := NewBloodProperties(p)
		if err != nil {
			return nil, err
		}
		lib.Products[key] = validated
	}
	for key, m := range file.Materials {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		lib.Materials[key] = m
	}

	return lib, nil
}

// Product resolves a product key against the library first, then the
// built-in presets.
func (l *Library) Product(name string) (BloodProperties, error) {
	if p, ok := l.Products[name]; ok {
		return p, nil
	}
	return ProductByName(name)
}

// Material resolves a material key against the library first, then the
// built-in presets.
func (l *Library) Material(name string) (MaterialProperties, error) {
	if m, ok := l.Materials[name]; ok {
		return m, nil
	}
	return MaterialByName(name)
}
