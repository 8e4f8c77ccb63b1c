package safety

import (
	"fmt"
	"math"
	"time"

	"github.com/zkalam/smart-thermal-control/internal/logger"
	"github.com/zkalam/smart-thermal-control/internal/ring"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

const temperatureHistoryCap = 100

// Level is the overall safety classification of the system.
type Level string

const (
	LevelSafe      Level = "SAFE"
	LevelWarning   Level = "WARNING"
	LevelCritical  Level = "CRITICAL"
	LevelEmergency Level = "EMERGENCY"
)

// TemperatureSample is one monitored reading.
type TemperatureSample struct {
	Timestamp   time.Time
	Temperature float64
}

// Status is an immutable snapshot of the monitor.
type Status struct {
	Level               Level
	EmergencyMode       bool
	Enabled             bool
	CurrentTemperature  float64
	HasReading          bool
	ActiveAlarms        int
	CriticalAlarms      int
	TimeOutsideWarning  float64
	TimeOutsideCritical float64
	BloodProduct        thermal.StorageStatus
	OverridePower       float64
	OverrideActive      bool
	LastUpdate          time.Time
}

// Summary aggregates alarm statistics for reporting.
type Summary struct {
	TotalActive      int
	ActiveBySeverity map[Severity]int
	TotalRaised      int
	CriticalRaised   int
	ActiveAlarms     []AlarmEvent
}

// Monitor watches blood temperature against tiered limits and manages
// the alarm lifecycle. It never reads a wall clock; timestamps come in
// with each reading.
type Monitor struct {
	product thermal.BloodProperties
	limits  SafetyLimits

	currentTemperature float64
	lastTemperature    float64
	hasReading         bool
	hasPrevious        bool
	lastUpdate         time.Time
	history            *ring.Buffer[TemperatureSample]

	activeAlarms map[string]*AlarmEvent
	alarmHistory []*AlarmEvent
	callbacks    []AlarmCallback

	timeOutsideWarning  float64
	timeOutsideCritical float64
	emergencyMode       bool
	enabled             bool

	totalAlarms    int
	criticalAlarms int
}

// NewMonitor creates a monitor with explicit limits.
func NewMonitor(product thermal.BloodProperties, limits SafetyLimits) (*Monitor, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	return &Monitor{
		product:      product,
		limits:       limits,
		history:      ring.New[TemperatureSample](temperatureHistoryCap),
		activeAlarms: map[string]*AlarmEvent{},
		enabled:      true,
	}, nil
}

// NewDefaultMonitor creates a monitor with limits derived from the
// blood product's critical bounds.
func NewDefaultMonitor(product thermal.BloodProperties) (*Monitor, error) {
	return NewMonitor(product, DefaultLimits(product))
}

// Limits returns the configured safety limits.
func (m *Monitor) Limits() SafetyLimits {
	return m.limits
}

// AddAlarmCallback registers a callback invoked synchronously for each
// newly raised alarm. A panicking callback is isolated and logged; it
// does not prevent later callbacks from running.
func (m *Monitor) AddAlarmCallback(cb AlarmCallback) {
	m.callbacks = append(m.callbacks, cb)
}

// UpdateTemperature records a reading and runs all safety checks. The
// single timestamp supplied here drives the absolute-limit, rate and
// cumulative-time checks alike, so evaluation order cannot skew dt.
func (m *Monitor) UpdateTemperature(temperature float64, ts time.Time) Status {
	if !m.enabled {
		return m.Status()
	}

	dt := 0.0
	if !m.lastUpdate.IsZero() {
		dt = ts.Sub(m.lastUpdate).Seconds()
	}

	m.lastTemperature = m.currentTemperature
	m.hasPrevious = m.hasReading
	m.currentTemperature = temperature
	m.hasReading = true
	m.lastUpdate = ts

	m.history.Push(TemperatureSample{Timestamp: ts, Temperature: temperature})

	m.checkTemperatureLimits(temperature, ts)
	m.checkRateOfChange(temperature, dt, ts)
	m.checkTimeLimits(temperature, dt, ts)
	m.updateEmergencyMode(ts)

	return m.Status()
}

func (m *Monitor) checkTemperatureLimits(temperature float64, ts time.Time) {
	switch {
	case temperature > m.limits.CriticalTempHigh:
		m.raiseAlarm(AlarmTempCriticalHigh, SeverityCritical,
			fmt.Sprintf("temperature %.1f°C exceeds critical high limit %.1f°C",
				temperature, m.limits.CriticalTempHigh), temperature, ts)
	case temperature < m.limits.CriticalTempLow:
		m.raiseAlarm(AlarmTempCriticalLow, SeverityCritical,
			fmt.Sprintf("temperature %.1f°C below critical low limit %.1f°C",
				temperature, m.limits.CriticalTempLow), temperature, ts)
	default:
		m.clearAlarm(AlarmTempCriticalHigh, ts)
		m.clearAlarm(AlarmTempCriticalLow, ts)
	}

	switch {
	case temperature > m.limits.WarningTempHigh:
		m.raiseAlarm(AlarmTempWarningHigh, SeverityWarning,
			fmt.Sprintf("temperature %.1f°C exceeds warning high limit %.1f°C",
				temperature, m.limits.WarningTempHigh), temperature, ts)
	case temperature < m.limits.WarningTempLow:
		m.raiseAlarm(AlarmTempWarningLow, SeverityWarning,
			fmt.Sprintf("temperature %.1f°C below warning low limit %.1f°C",
				temperature, m.limits.WarningTempLow), temperature, ts)
	default:
		m.clearAlarm(AlarmTempWarningHigh, ts)
		m.clearAlarm(AlarmTempWarningLow, ts)
	}
}

func (m *Monitor) checkRateOfChange(temperature, dt float64, ts time.Time) {
	if !m.hasPrevious || dt <= 0 {
		return
	}

	ratePerMinute := (temperature - m.lastTemperature) / dt * 60.0

	if ratePerMinute > m.limits.MaxHeatingRate {
		m.raiseAlarm(AlarmRateHeatingHigh, SeverityWarning,
			fmt.Sprintf("heating rate %.1f°C/min exceeds limit %.1f°C/min",
				ratePerMinute, m.limits.MaxHeatingRate), temperature, ts)
	} else {
		m.clearAlarm(AlarmRateHeatingHigh, ts)
	}

	if ratePerMinute < -m.limits.MaxCoolingRate {
		m.raiseAlarm(AlarmRateCoolingHigh, SeverityWarning,
			fmt.Sprintf("cooling rate %.1f°C/min exceeds limit %.1f°C/min",
				math.Abs(ratePerMinute), m.limits.MaxCoolingRate), temperature, ts)
	} else {
		m.clearAlarm(AlarmRateCoolingHigh, ts)
	}
}

func (m *Monitor) checkTimeLimits(temperature, dt float64, ts time.Time) {
	outsideWarning := temperature < m.limits.WarningTempLow || temperature > m.limits.WarningTempHigh
	outsideCritical := temperature < m.limits.CriticalTempLow || temperature > m.limits.CriticalTempHigh

	if outsideWarning {
		m.timeOutsideWarning += dt
	} else {
		m.timeOutsideWarning = 0
	}

	if outsideCritical {
		m.timeOutsideCritical += dt
	} else {
		m.timeOutsideCritical = 0
	}

	if m.timeOutsideCritical > m.limits.MaxTimeOutsideCritical {
		m.raiseAlarm(AlarmTimeCritical, SeverityEmergency,
			fmt.Sprintf("temperature outside critical range for %.0fs (limit: %.0fs)",
				m.timeOutsideCritical, m.limits.MaxTimeOutsideCritical), temperature, ts)
	}

	if m.timeOutsideWarning > m.limits.MaxTimeOutsideWarning {
		m.raiseAlarm(AlarmTimeWarning, SeverityCritical,
			fmt.Sprintf("temperature outside warning range for %.0fs (limit: %.0fs)",
				m.timeOutsideWarning, m.limits.MaxTimeOutsideWarning), temperature, ts)
	}
}

func (m *Monitor) updateEmergencyMode(ts time.Time) {
	critical := false
	for _, alarm := range m.activeAlarms {
		if alarm.ID != AlarmEmergencyMode && alarm.Severity.IsCritical() {
			critical = true
			break
		}
	}

	if critical && !m.emergencyMode {
		m.emergencyMode = true
		m.raiseAlarm(AlarmEmergencyMode, SeverityEmergency,
			"system entered emergency mode due to critical safety violations",
			m.currentTemperature, ts)
	} else if !critical && m.emergencyMode {
		m.emergencyMode = false
		m.clearAlarm(AlarmEmergencyMode, ts)
	}
}

// raiseAlarm is idempotent per identity: an already-active identity is
// left untouched and no callback fires again.
func (m *Monitor) raiseAlarm(id string, severity Severity, message string, temperature float64, ts time.Time) {
	if _, ok := m.activeAlarms[id]; ok {
		return
	}

	alarm := newAlarmEvent(id, severity, message, temperature, ts)
	m.activeAlarms[id] = alarm
	m.alarmHistory = append(m.alarmHistory, alarm)
	m.totalAlarms++
	if severity.IsCritical() {
		m.criticalAlarms++
	}

	for _, cb := range m.callbacks {
		m.invokeCallback(cb, alarm)
	}
}

func (m *Monitor) invokeCallback(cb AlarmCallback, alarm *AlarmEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().
				Str("alarm_id", alarm.ID).
				Interface("panic", r).
				Msg("alarm callback failed")
		}
	}()
	cb(alarm)
}

// clearAlarm is a no-op for unknown or inactive identities.
func (m *Monitor) clearAlarm(id string, ts time.Time) {
	alarm, ok := m.activeAlarms[id]
	if !ok {
		return
	}
	alarm.clear(ts)
	delete(m.activeAlarms, id)
}

// AcknowledgeAlarm acknowledges an active alarm. Unknown or cleared
// identities return false without raising.
func (m *Monitor) AcknowledgeAlarm(id, user string) bool {
	alarm, ok := m.activeAlarms[id]
	if !ok {
		return false
	}
	return alarm.Acknowledge(user, m.lastUpdate)
}

// AcknowledgeAll acknowledges every active alarm, returning the count.
func (m *Monitor) AcknowledgeAll(user string) int {
	count := 0
	for _, alarm := range m.activeAlarms {
		if alarm.Acknowledge(user, m.lastUpdate) {
			count++
		}
	}
	return count
}

// OverridePower returns the emergency corrective power while in
// emergency mode: maximum cooling above critical-high, maximum heating
// below critical-low. The second return is false when no override
// applies.
func (m *Monitor) OverridePower() (float64, bool) {
	if !m.emergencyMode || !m.hasReading {
		return 0, false
	}
	if m.currentTemperature > m.limits.CriticalTempHigh {
		return -m.limits.MaxEmergencyPower, true
	}
	if m.currentTemperature < m.limits.CriticalTempLow {
		return m.limits.MaxEmergencyPower, true
	}
	return 0, false
}

// EmergencyMode reports whether any critical or emergency alarm is active.
func (m *Monitor) EmergencyMode() bool {
	return m.emergencyMode
}

// Enabled reports whether monitoring is active.
func (m *Monitor) Enabled() bool {
	return m.enabled
}

// Enable activates monitoring.
func (m *Monitor) Enable() {
	m.enabled = true
}

// Disable freezes monitoring: no new alarms will be raised and
// existing alarms stay as they are.
func (m *Monitor) Disable() {
	m.enabled = false
	logger.Warn().Msg("safety monitoring disabled")
}

// ActiveAlarmCount returns the number of active alarms.
func (m *Monitor) ActiveAlarmCount() int {
	return len(m.activeAlarms)
}

// ActiveAlarm returns a copy of the active alarm with the given
// identity, if present.
func (m *Monitor) ActiveAlarm(id string) (AlarmEvent, bool) {
	alarm, ok := m.activeAlarms[id]
	if !ok {
		return AlarmEvent{}, false
	}
	return *alarm, true
}

// Status returns an immutable snapshot of the monitor.
func (m *Monitor) Status() Status {
	level := LevelSafe
	switch {
	case m.emergencyMode:
		level = LevelEmergency
	case m.anyActiveSeverity(SeverityCritical):
		level = LevelCritical
	case m.anyActiveSeverity(SeverityWarning):
		level = LevelWarning
	}

	criticalCount := 0
	for _, alarm := range m.activeAlarms {
		if alarm.Severity.IsCritical() {
			criticalCount++
		}
	}

	status := Status{
		Level:               level,
		EmergencyMode:       m.emergencyMode,
		Enabled:             m.enabled,
		CurrentTemperature:  m.currentTemperature,
		HasReading:          m.hasReading,
		ActiveAlarms:        len(m.activeAlarms),
		CriticalAlarms:      criticalCount,
		TimeOutsideWarning:  m.timeOutsideWarning,
		TimeOutsideCritical: m.timeOutsideCritical,
		LastUpdate:          m.lastUpdate,
	}

	if m.hasReading {
		status.BloodProduct = thermal.ValidateStorageTemperature(m.product, m.currentTemperature)
		status.OverridePower, status.OverrideActive = m.OverridePower()
	}

	return status
}

func (m *Monitor) anyActiveSeverity(severity Severity) bool {
	for _, alarm := range m.activeAlarms {
		if alarm.Severity == severity {
			return true
		}
	}
	return false
}

// AlarmSummary aggregates active and historical alarm statistics.
func (m *Monitor) AlarmSummary() Summary {
	summary := Summary{
		TotalActive:      len(m.activeAlarms),
		ActiveBySeverity: map[Severity]int{},
		TotalRaised:      m.totalAlarms,
		CriticalRaised:   m.criticalAlarms,
	}
	for _, alarm := range m.activeAlarms {
		summary.ActiveBySeverity[alarm.Severity]++
		summary.ActiveAlarms = append(summary.ActiveAlarms, *alarm)
	}
	return summary
}

// TemperatureHistory returns the bounded reading history, oldest first.
func (m *Monitor) TemperatureHistory() []TemperatureSample {
	return m.history.Values()
}

// ResetMonitoring clears warning-severity alarms, both time counters
// and the temperature history. Critical and emergency alarms survive;
// this is an operator soft reset, not a safety override.
func (m *Monitor) ResetMonitoring() {
	for id, alarm := range m.activeAlarms {
		if alarm.Severity == SeverityWarning {
			m.clearAlarm(id, m.lastUpdate)
		}
	}
	m.timeOutsideWarning = 0
	m.timeOutsideCritical = 0
	m.history.Clear()
}

// ExportAlarmLog returns the append-only alarm history, optionally
// bounded to [start, end]. Zero times disable the respective bound.
func (m *Monitor) ExportAlarmLog(start, end time.Time) []AlarmEvent {
	out := make([]AlarmEvent, 0, len(m.alarmHistory))
	for _, alarm := range m.alarmHistory {
		if !start.IsZero() && alarm.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && alarm.Timestamp.After(end) {
			continue
		}
		out = append(out, *alarm)
	}
	return out
}
