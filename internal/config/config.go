// Package config loads daemon configuration from a TOML file,
// environment and command-line flags, in increasing order of
// precedence.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zkalam/smart-thermal-control/internal/errors"
	"github.com/zkalam/smart-thermal-control/internal/logger"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

const (
	DefaultLogLevel = "info"

	defaultConfigPath = "/etc"
	defaultConfigName = "bloodtempctl"
	configPathEnvVar  = "BLOODTEMPCTL_CONFIG"
)

type Config struct {
	// Plant setup
	Product       string  `mapstructure:"product"`
	Material      string  `mapstructure:"material"`
	Volume        float64 `mapstructure:"volume"`         // liters
	ContainerMass float64 `mapstructure:"container_mass"` // kg
	Initial       float64 `mapstructure:"initial"`        // °C
	Ambient       float64 `mapstructure:"ambient"`        // °C
	AirVelocity   float64 `mapstructure:"air_velocity"`   // m/s

	// Control loop
	Interval       int     `mapstructure:"interval"` // seconds per tick
	Target         float64 `mapstructure:"target"`   // °C
	Kp             float64 `mapstructure:"kp"`
	Ki             float64 `mapstructure:"ki"`
	Kd             float64 `mapstructure:"kd"`
	MaxOverridePct float64 `mapstructure:"max_override_pct"`
	HistoryLength  int     `mapstructure:"history_length"`

	// Optional preset library overrides
	ProductLibrary  string `mapstructure:"product_library"`
	MaterialLibrary string `mapstructure:"material_library"`

	// Telemetry
	Telemetry   bool   `mapstructure:"telemetry"`
	TelemetryDB string `mapstructure:"database"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	Debug    bool   `mapstructure:"debug"`
	Verbose  bool   `mapstructure:"verbose"`

	// HasTarget records whether a target was set explicitly; without
	// one the daemon uses the product's own storage temperature.
	HasTarget bool `mapstructure:"-"`
}

func Load() (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	fs := pflag.NewFlagSet("bloodtempctl", pflag.ContinueOnError)
	configFlag := fs.String("config", "", "Path to configuration file")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("product", "whole_blood", "Blood product preset")
	fs.String("material", "medical_grade_pvc", "Container material preset")
	fs.Float64("volume", 0.5, "Product volume in liters")
	fs.Int("interval", 10, "Seconds between control updates")
	fs.Float64("target", 0, "Target temperature override (°C)")
	fs.Bool("telemetry", false, "Enable telemetry recording")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetDefault("product", "whole_blood")
	v.SetDefault("material", "medical_grade_pvc")
	v.SetDefault("volume", 0.5)
	v.SetDefault("container_mass", 0.2)
	v.SetDefault("initial", 20.0)
	v.SetDefault("ambient", 4.0)
	v.SetDefault("air_velocity", 1.0)
	v.SetDefault("interval", 10)
	v.SetDefault("kp", 1.0)
	v.SetDefault("ki", 0.1)
	v.SetDefault("kd", 0.05)
	v.SetDefault("max_override_pct", 50.0)
	v.SetDefault("history_length", 1000)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", "/var/lib/bloodtempctl/telemetry.db")
	v.SetDefault("log_level", DefaultLogLevel)

	// Locate the config file: flag, then environment, then /etc.
	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv(configPathEnvVar)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.WithMessage(errors.ErrReadConfig,
				"failed to read config file: "+err.Error())
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.WithMessage(errors.ErrReadConfig,
					"failed to read config file: "+err.Error())
			}
		}
	}

	// Command-line flags override file values.
	fs.Visit(func(f *pflag.Flag) {
		key := f.Name
		if key == "log-level" {
			key = "log_level"
		}
		switch f.Value.Type() {
		case "bool":
			val, err := fs.GetBool(f.Name)
			if err == nil {
				v.Set(key, val)
			}
		case "int":
			val, err := fs.GetInt(f.Name)
			if err == nil {
				v.Set(key, val)
			}
		case "float64":
			val, err := fs.GetFloat64(f.Name)
			if err == nil {
				v.Set(key, val)
			}
		default:
			v.Set(key, f.Value.String())
		}
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	config.HasTarget = v.IsSet("target")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.applyLogLevel()

	return config, nil
}

// Validate checks field ranges and preset resolvability.
func (c *Config) Validate() error {
	errFactory := errors.New()

	// Names outside the built-in presets are only resolvable through a
	// preset library, checked when the library file is actually loaded.
	if c.ProductLibrary == "" {
		if _, err := thermal.ProductByName(c.Product); err != nil {
			return err
		}
	}
	if c.MaterialLibrary == "" {
		if _, err := thermal.MaterialByName(c.Material); err != nil {
			return err
		}
	}
	if c.Volume <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "volume must be positive")
	}
	if c.ContainerMass < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "container mass must be non-negative")
	}
	if c.Interval <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidInterval, "interval must be positive")
	}
	if c.MaxOverridePct < 0 || c.MaxOverridePct > 100 {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"max_override_pct must be between 0 and 100")
	}
	if c.HistoryLength <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history_length must be positive")
	}
	if !c.validLogLevel() {
		return errFactory.WithMessage(errors.ErrInvalidLogLevel,
			"invalid log level: "+c.LogLevel)
	}
	return nil
}

func (c *Config) validLogLevel() bool {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}

// applyLogLevel sets the global log level. Debug and verbose flags
// take precedence over the configured level.
func (c *Config) applyLogLevel() {
	switch {
	case c.Debug:
		logger.SetLogLevel(logger.DebugLevel)
	case c.Verbose:
		logger.SetLogLevel(logger.InfoLevel)
	default:
		switch c.LogLevel {
		case "debug":
			logger.SetLogLevel(logger.DebugLevel)
		case "info":
			logger.SetLogLevel(logger.InfoLevel)
		case "warning":
			logger.SetLogLevel(logger.WarnLevel)
		case "error":
			logger.SetLogLevel(logger.ErrorLevel)
		}
	}
}
