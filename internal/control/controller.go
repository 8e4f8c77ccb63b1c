package control

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zkalam/smart-thermal-control/internal/errors"
	"github.com/zkalam/smart-thermal-control/internal/logger"
	"github.com/zkalam/smart-thermal-control/internal/pid"
	"github.com/zkalam/smart-thermal-control/internal/ring"
	"github.com/zkalam/smart-thermal-control/internal/safety"
	"github.com/zkalam/smart-thermal-control/internal/sim"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

// Controller coordinates the PID controller, safety monitor and
// thermal system. One tick runs strictly in order: safety update,
// mode resolution, override blend, actuator apply, integration step,
// notification. External mutation is serialized with the tick by a
// mutex; the tick itself never blocks on I/O.
//
// The controller never reads a wall clock during ticks. Simulation
// time advances only by the dt passed to Update, anchored at the
// wall-clock instant Start was called.
type Controller struct {
	mu sync.Mutex

	product      thermal.BloodProperties
	volumeLiters float64
	cfg          Configuration

	system  *sim.ThermalSystem
	pid     *pid.Controller
	monitor *safety.Monitor

	mode        Mode
	enabled     bool
	manualPower float64

	baseTime   time.Time
	simElapsed float64

	emergencyStart  time.Time
	emergencyActive bool
	emergencyReason string

	history     *ring.Buffer[Sample]
	auditEvents []AuditEvent

	statusSubscribers []StatusSubscriber
	alarmSubscribers  []AlarmSubscriber

	now func() time.Time
}

// New builds a control system for the given product and container.
func New(product thermal.BloodProperties, container thermal.MaterialProperties,
	volumeLiters, containerMassKg float64, cfg Configuration, limits sim.ActuatorLimits,
) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	system, err := sim.NewThermalSystem(product, container, volumeLiters, containerMassKg, limits)
	if err != nil {
		return nil, err
	}

	pidController, err := pid.NewController(cfg.Gains, cfg.TargetTemperature,
		-limits.MaxCoolingPower, limits.MaxHeatingPower)
	if err != nil {
		return nil, err
	}

	monitor, err := safety.NewDefaultMonitor(product)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		product:      product,
		volumeLiters: volumeLiters,
		cfg:          cfg,
		system:       system,
		pid:          pidController,
		monitor:      monitor,
		mode:         Startup,
		enabled:      true,
		history:      ring.New[Sample](cfg.HistoryLength),
		now:          time.Now,
	}
	monitor.AddAlarmCallback(c.handleAlarm)

	return c, nil
}

// NewBloodStorageSystem builds a control system with conservative
// defaults for refrigerated storage.
func NewBloodStorageSystem(product thermal.BloodProperties, container thermal.MaterialProperties,
	volumeLiters, containerMassKg float64,
) (*Controller, error) {
	return New(product, container, volumeLiters, containerMassKg,
		DefaultConfiguration(product), sim.DefaultActuatorLimits())
}

// NewPlasmaSystem builds a control system tuned for plasma freezing,
// with the higher-power actuator freezing requires.
func NewPlasmaSystem(product thermal.BloodProperties, container thermal.MaterialProperties,
	volumeLiters, containerMassKg float64,
) (*Controller, error) {
	limits := sim.ActuatorLimits{
		MaxHeatingPower:   100.0,
		MaxCoolingPower:   200.0,
		MinPowerIncrement: 2.0,
		ResponseTime:      20.0,
	}
	return New(product, container, volumeLiters, containerMassKg, PlasmaConfiguration(), limits)
}

// SetClock replaces the wall-clock source used to anchor simulation
// time at Start. Call before Start; ticks themselves never consult it.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Start resets the plant to default initial conditions and enters
// Automatic mode.
func (c *Controller) Start() Status {
	return c.StartFrom(sim.DefaultInitialTemperature, sim.DefaultAmbientTemperature)
}

// StartFrom resets the plant to the given initial and ambient
// temperatures, resets the PID controller, enables safety monitoring,
// clears the performance log and enters Automatic mode.
func (c *Controller) StartFrom(initialTemperature, ambientTemperature float64) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.system.Reset(initialTemperature, ambientTemperature)
	c.pid.Reset()
	c.pid.SetMode(pid.Automatic)
	c.monitor.Enable()

	c.enabled = true
	c.mode = Automatic
	c.baseTime = c.now()
	c.simElapsed = 0
	c.emergencyActive = false
	c.emergencyReason = ""

	c.history.Clear()
	c.auditEvents = c.auditEvents[:0]
	c.recordEvent(EventSystemStarted, safety.SeverityInfo,
		fmt.Sprintf("system started at %.1f°C, target %.1f°C",
			initialTemperature, c.cfg.TargetTemperature), c.baseTime)

	return c.statusLocked()
}

// Stop zeroes thermal power, disables the PID controller and enters
// Shutdown. Further Update calls are no-ops until the next Start.
func (c *Controller) Stop() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = Shutdown
	c.system.ApplyThermalPower(0)
	c.pid.SetMode(pid.Disabled)
	c.enabled = false
	c.recordEvent(EventSystemStopped, safety.SeverityInfo,
		fmt.Sprintf("system stopped at %.1f°C", c.system.CurrentTemperature()), c.tickTime())

	return c.statusLocked()
}

// Update runs one control tick of dt seconds and returns the
// post-tick status. A disabled system returns its status unchanged.
func (c *Controller) Update(dt float64) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || dt <= 0 {
		return c.statusLocked()
	}

	if c.baseTime.IsZero() {
		c.baseTime = c.now()
	}
	c.simElapsed += dt
	tick := c.tickTime()

	// Safety first, in every mode. Alarms raised here may flip the
	// mode to Emergency through the alarm callback before the power
	// computation below reads it.
	temperature := c.system.CurrentTemperature()
	safetyStatus := c.monitor.UpdateTemperature(temperature, tick)

	var raw float64
	switch c.mode {
	case Automatic:
		raw = c.pid.Update(temperature, dt)
	case Manual:
		raw = c.manualPower
	case Emergency:
		raw, _ = c.monitor.OverridePower()
	default:
		raw = 0
	}

	commanded := raw
	if override, ok := c.monitor.OverridePower(); ok && c.cfg.EnableEmergencyOverride {
		strength := math.Max(0, math.Min(1, c.cfg.MaxOverridePct/100.0))
		commanded = raw*(1-strength) + override*strength
	}

	actual := c.system.ApplyThermalPower(commanded)
	if _, err := c.system.Step(dt); err != nil {
		logger.Error().Err(err).Float64("dt", dt).Msg("integration step failed, state held")
	}

	if c.cfg.EnablePerformanceLogging {
		pidStatus := c.pid.Status()
		c.history.Push(Sample{
			Timestamp:         tick,
			Temperature:       temperature,
			TargetTemperature: c.cfg.TargetTemperature,
			CommandedPower:    commanded,
			ActualPower:       actual,
			Mode:              c.mode,
			SafetyLevel:       safetyStatus.Level,
			ActiveAlarms:      safetyStatus.ActiveAlarms,
			PIDError:          pidStatus.LastError,
			PIDOutput:         pidStatus.LastOutput,
		})
	}

	if c.emergencyActive && safetyStatus.Level == safety.LevelSafe &&
		c.monitor.ActiveAlarmCount() == 0 {
		c.exitEmergency(tick)
	}

	status := c.statusLocked()
	for _, sub := range c.statusSubscribers {
		notifyStatus(sub, status)
	}

	return status
}

// handleAlarm runs inside the monitor's alarm dispatch, which only
// happens during UpdateTemperature while the tick already holds the
// mutex. It must not lock.
func (c *Controller) handleAlarm(alarm *safety.AlarmEvent) {
	c.auditEvents = append(c.auditEvents, AuditEvent{
		Timestamp:   alarm.Timestamp,
		ID:          alarm.ID,
		Severity:    alarm.Severity,
		Message:     alarm.Message,
		Temperature: alarm.Temperature,
	})

	if alarm.Severity.IsCritical() && c.mode != Emergency && c.mode != Shutdown {
		c.enterEmergency("safety alarm: "+alarm.ID, alarm.Timestamp)
	}

	for _, sub := range c.alarmSubscribers {
		notifyAlarm(sub, *alarm)
	}
}

func (c *Controller) enterEmergency(reason string, at time.Time) {
	c.mode = Emergency
	c.emergencyActive = true
	c.emergencyStart = at
	c.emergencyReason = reason
	c.pid.SetMode(pid.Disabled)

	c.recordEvent(EventEmergencyEntry, safety.SeverityEmergency,
		"entered emergency mode: "+reason, at)
	logger.Warn().Str("reason", reason).Msg("entered emergency mode")
}

func (c *Controller) exitEmergency(at time.Time) {
	duration := at.Sub(c.emergencyStart).Seconds()
	c.mode = Automatic
	c.emergencyActive = false
	c.emergencyReason = ""
	c.pid.SetMode(pid.Automatic)

	c.recordEvent(EventEmergencyExit, safety.SeverityInfo,
		fmt.Sprintf("exited emergency mode after %.0fs, returning to automatic control", duration), at)
	logger.Info().Float64("duration_s", duration).Msg("exited emergency mode")
}

// SetTargetTemperature updates the setpoint. Targets outside
// [critical_low-5, critical_high+5] of the active product are rejected
// with no state change.
func (c *Controller) SetTargetTemperature(target float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if target < c.product.CriticalTempLowC-5.0 || target > c.product.CriticalTempHighC+5.0 {
		return errors.New().WithData(errors.ErrTargetOutOfRange, map[string]interface{}{
			"target":        target,
			"critical_low":  c.product.CriticalTempLowC,
			"critical_high": c.product.CriticalTempHighC,
		})
	}

	c.cfg.TargetTemperature = target
	c.pid.SetSetpoint(target)
	return nil
}

// SetControlMode requests a mode transition. Manual entry into
// Emergency is always rejected; while in Emergency only Automatic is
// accepted. Accepted transitions are recorded as audit events and
// synchronize the PID controller's mode.
func (c *Controller) SetControlMode(mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mode == Emergency {
		return errors.New().WithMessage(errors.ErrInvalidTransition,
			"emergency mode can only be entered by the safety monitor")
	}
	if c.mode == Emergency && mode != Automatic {
		return errors.New().WithMessage(errors.ErrInvalidTransition,
			"emergency mode can only be exited to automatic")
	}

	previous := c.mode
	c.mode = mode
	if previous == Emergency {
		c.emergencyActive = false
		c.emergencyReason = ""
	}

	switch mode {
	case Automatic:
		c.pid.SetMode(pid.Automatic)
	case Manual:
		c.pid.SetMode(pid.Manual)
	case Maintenance, Shutdown:
		c.pid.SetMode(pid.Disabled)
	}

	c.recordEvent(EventModeChange, safety.SeverityInfo,
		fmt.Sprintf("control mode changed from %s to %s", previous, mode), c.tickTime())
	return nil
}

// SetManualPower stores the manual power command, clamped to the
// actuator's range, and returns the stored value. The command only
// drives the plant while in Manual mode.
func (c *Controller) SetManualPower(powerWatts float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	limits := c.system.ActuatorLimits()
	c.manualPower = math.Max(-limits.MaxCoolingPower,
		math.Min(limits.MaxHeatingPower, powerWatts))
	return c.manualPower
}

// SetAirVelocity adjusts the simulated compartment air flow in m/s.
// The setting persists across restarts of the control loop.
func (c *Controller) SetAirVelocity(velocity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system.SetAirVelocity(velocity)
}

// AcknowledgeAlarm acknowledges one active alarm by identity.
func (c *Controller) AcknowledgeAlarm(id, user string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor.AcknowledgeAlarm(id, user)
}

// AcknowledgeAllAlarms acknowledges every active alarm.
func (c *Controller) AcknowledgeAllAlarms(user string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor.AcknowledgeAll(user)
}

// AddStatusSubscriber registers a callback invoked with the status
// snapshot after every tick. A panicking subscriber is isolated and
// logged.
func (c *Controller) AddStatusSubscriber(sub StatusSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusSubscribers = append(c.statusSubscribers, sub)
}

// AddAlarmSubscriber registers a callback invoked for every newly
// raised alarm.
func (c *Controller) AddAlarmSubscriber(sub AlarmSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alarmSubscribers = append(c.alarmSubscribers, sub)
}

// Mode returns the current control mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// CurrentTemperature returns the plant's blood temperature (°C).
func (c *Controller) CurrentTemperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.system.CurrentTemperature()
}

// TargetTemperature returns the active setpoint (°C).
func (c *Controller) TargetTemperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.TargetTemperature
}

// Status returns a field-complete snapshot of the control system.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	status := Status{
		Enabled:            c.enabled,
		Mode:               c.mode,
		CurrentTemperature: c.system.CurrentTemperature(),
		TargetTemperature:  c.cfg.TargetTemperature,

		PID:         c.pid.Status(),
		Actuator:    c.system.ActuatorStatus(),
		ManualPower: c.manualPower,

		Safety:          c.monitor.Status(),
		EmergencyMode:   c.mode == Emergency,
		EmergencyReason: c.emergencyReason,

		Performance: c.performanceLocked(),

		LastUpdate:            c.tickTime(),
		ControlUpdateInterval: c.cfg.ControlUpdateInterval,
		SafetyUpdateInterval:  c.cfg.SafetyUpdateInterval,
	}

	if c.emergencyActive {
		status.EmergencyDuration = c.tickTime().Sub(c.emergencyStart).Seconds()
	}

	return status
}

func (c *Controller) performanceLocked() Performance {
	perf := Performance{
		TotalEvents: len(c.auditEvents),
		DataPoints:  c.history.Len(),
		UptimeHours: c.simElapsed / 3600.0,
	}
	for _, e := range c.auditEvents {
		if e.Severity.IsCritical() {
			perf.CriticalAlarms++
		}
	}

	recent := c.history.Last(10)
	if len(recent) == 0 {
		return perf
	}

	target := c.cfg.TargetTemperature
	mean := 0.0
	powerSum := 0.0
	errSum := 0.0
	for _, s := range recent {
		mean += s.Temperature
		powerSum += math.Abs(s.ActualPower)
		absErr := math.Abs(s.Temperature - target)
		errSum += absErr
		if absErr > perf.MaximumError {
			perf.MaximumError = absErr
		}
	}
	n := float64(len(recent))
	mean /= n
	perf.AverageError = errSum / n
	perf.AveragePowerUsage = powerSum / n

	variance := 0.0
	for _, s := range recent {
		variance += (s.Temperature - mean) * (s.Temperature - mean)
	}
	perf.TemperatureStability = math.Sqrt(variance / n)

	return perf
}

// History returns up to n recent performance samples, oldest first.
// n <= 0 returns the full bounded history.
func (c *Controller) History(n int) []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		return c.history.Values()
	}
	return c.history.Last(n)
}

// AuditEvents returns a copy of the operational event log.
func (c *Controller) AuditEvents() []AuditEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AuditEvent, len(c.auditEvents))
	copy(out, c.auditEvents)
	return out
}

// ExportLogData bundles control history, alarm history, audit events
// and performance metrics, optionally bounded to [start, end]. Zero
// times disable the respective bound.
func (c *Controller) ExportLogData(start, end time.Time) Export {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := make([]Sample, 0, c.history.Len())
	for _, s := range c.history.Values() {
		if !start.IsZero() && s.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && s.Timestamp.After(end) {
			continue
		}
		samples = append(samples, s)
	}

	events := make([]AuditEvent, len(c.auditEvents))
	copy(events, c.auditEvents)

	return Export{
		Product:           c.product.Name,
		TargetTemperature: c.cfg.TargetTemperature,
		VolumeLiters:      c.volumeLiters,
		ControlHistory:    samples,
		AlarmHistory:      c.monitor.ExportAlarmLog(start, end),
		AuditEvents:       events,
		Performance:       c.performanceLocked(),
		ExportedAt:        c.now(),
		DataPoints:        len(samples),
	}
}

// tickTime is the simulation clock: wall-clock anchor plus elapsed
// simulated seconds.
func (c *Controller) tickTime() time.Time {
	if c.baseTime.IsZero() {
		return time.Time{}
	}
	return c.baseTime.Add(time.Duration(c.simElapsed * float64(time.Second)))
}

func (c *Controller) recordEvent(id string, severity safety.Severity, message string, at time.Time) {
	c.auditEvents = append(c.auditEvents, AuditEvent{
		Timestamp:   at,
		ID:          id,
		Severity:    severity,
		Message:     message,
		Temperature: c.system.CurrentTemperature(),
	})
}

func notifyStatus(sub StatusSubscriber, status Status) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Msg("status subscriber failed")
		}
	}()
	sub(status)
}

func notifyAlarm(sub AlarmSubscriber, alarm safety.AlarmEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Str("alarm_id", alarm.ID).Interface("panic", r).Msg("alarm subscriber failed")
		}
	}()
	sub(alarm)
}
