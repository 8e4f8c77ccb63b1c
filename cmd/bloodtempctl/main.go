package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zkalam/smart-thermal-control/internal/config"
	"github.com/zkalam/smart-thermal-control/internal/control"
	"github.com/zkalam/smart-thermal-control/internal/logger"
	"github.com/zkalam/smart-thermal-control/internal/pid"
	"github.com/zkalam/smart-thermal-control/internal/safety"
	"github.com/zkalam/smart-thermal-control/internal/sim"
	"github.com/zkalam/smart-thermal-control/internal/telemetry"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

var (
	cfg        *config.Config
	controller *control.Controller
	repository telemetry.Repository
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")

	controller, err = buildController()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build control system")
	}

	if cfg.Telemetry {
		repository, err = telemetry.NewRepository(telemetry.Config{
			DBPath:  cfg.TelemetryDB,
			Enabled: true,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize telemetry")
		}
		controller.AddAlarmSubscriber(func(alarm safety.AlarmEvent) {
			if err := repository.RecordAlarm(alarm); err != nil {
				logger.Error().Err(err).Msg("failed to record alarm")
			}
		})
	}
}

func buildController() (*control.Controller, error) {
	productLib, err := thermal.LoadLibrary(cfg.ProductLibrary)
	if err != nil {
		return nil, err
	}
	materialLib, err := thermal.LoadLibrary(cfg.MaterialLibrary)
	if err != nil {
		return nil, err
	}

	product, err := productLib.Product(cfg.Product)
	if err != nil {
		return nil, err
	}
	material, err := materialLib.Material(cfg.Material)
	if err != nil {
		return nil, err
	}

	controlCfg := control.DefaultConfiguration(product)
	controlCfg.Gains = pid.Gains{Kp: cfg.Kp, Ki: cfg.Ki, Kd: cfg.Kd}
	controlCfg.ControlUpdateInterval = float64(cfg.Interval)
	controlCfg.MaxOverridePct = cfg.MaxOverridePct
	controlCfg.HistoryLength = cfg.HistoryLength
	if cfg.HasTarget {
		controlCfg.TargetTemperature = cfg.Target
	}

	c, err := control.New(product, material, cfg.Volume, cfg.ContainerMass,
		controlCfg, sim.DefaultActuatorLimits())
	if err != nil {
		return nil, err
	}

	if cfg.HasTarget {
		if err := c.SetTargetTemperature(cfg.Target); err != nil {
			return nil, err
		}
	}
	c.SetAirVelocity(cfg.AirVelocity)

	return c, nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	status := controller.StartFrom(cfg.Initial, cfg.Ambient)
	logger.Info().
		Str("product", cfg.Product).
		Float64("initial_c", status.CurrentTemperature).
		Float64("target_c", status.TargetTemperature).
		Msg("Control system started")

	if err := loop(ctx); err != nil {
		logger.Error().Err(err).Msg("error in control loop")
	}
	cleanup()
}

func loop(ctx context.Context) error {
	interval := time.Duration(cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			status := controller.Update(float64(cfg.Interval))
			logStatus(status)
			record()
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	status := controller.Stop()
	logger.Info().
		Float64("final_c", status.CurrentTemperature).
		Int("active_alarms", status.Safety.ActiveAlarms).
		Msg("Control system stopped")

	if repository != nil {
		if err := repository.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close telemetry")
		}
	}
	logger.Info().Msg("Exiting...")
}

func logStatus(status control.Status) {
	event := logger.Info().
		Float64("temperature_c", status.CurrentTemperature).
		Float64("target_c", status.TargetTemperature).
		Str("mode", string(status.Mode)).
		Str("safety_level", string(status.Safety.Level)).
		Float64("power_w", status.Actuator.ActualPowerW)

	if status.Safety.ActiveAlarms > 0 {
		event.Int("active_alarms", status.Safety.ActiveAlarms)
	}
	if status.EmergencyMode {
		event.Str("emergency_reason", status.EmergencyReason)
	}
	event.Msg("")
}

func record() {
	if repository == nil {
		return
	}

	samples := controller.History(1)
	if len(samples) == 0 {
		return
	}
	if err := repository.RecordSample(samples[0]); err != nil {
		logger.Error().Err(err).Msg("failed to record sample")
	}
}
