package safety

import (
	"time"

	"github.com/google/uuid"
)

// Severity ranks alarm importance.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityWarning   Severity = "warning"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

// IsCritical reports whether the severity demands an emergency response.
func (s Severity) IsCritical() bool {
	return s == SeverityCritical || s == SeverityEmergency
}

// AlarmState tracks an alarm through its lifecycle.
type AlarmState string

const (
	AlarmActive       AlarmState = "active"
	AlarmAcknowledged AlarmState = "acknowledged"
	AlarmCleared      AlarmState = "cleared"
)

// Alarm identity keys. One identity is active at most once; repeated
// violations of the same condition do not duplicate records.
const (
	AlarmTempCriticalHigh = "TEMP_CRITICAL_HIGH"
	AlarmTempCriticalLow  = "TEMP_CRITICAL_LOW"
	AlarmTempWarningHigh  = "TEMP_WARNING_HIGH"
	AlarmTempWarningLow   = "TEMP_WARNING_LOW"
	AlarmRateHeatingHigh  = "RATE_HEATING_HIGH"
	AlarmRateCoolingHigh  = "RATE_COOLING_HIGH"
	AlarmTimeWarning      = "TIME_WARNING_EXCEEDED"
	AlarmTimeCritical     = "TIME_CRITICAL_EXCEEDED"
	AlarmEmergencyMode    = "EMERGENCY_MODE"
)

// AlarmEvent is one occurrence of an alarm identity. EventID
// distinguishes archived occurrences of the same identity. Events are
// retained in history after clearing, never deleted.
type AlarmEvent struct {
	EventID     uuid.UUID
	ID          string
	Severity    Severity
	Message     string
	Timestamp   time.Time
	Temperature float64
	State       AlarmState

	AcknowledgedBy string
	AcknowledgedAt time.Time
	ClearedAt      time.Time
}

func newAlarmEvent(id string, severity Severity, message string, temperature float64, ts time.Time) *AlarmEvent {
	return &AlarmEvent{
		EventID:     uuid.New(),
		ID:          id,
		Severity:    severity,
		Message:     message,
		Timestamp:   ts,
		Temperature: temperature,
		State:       AlarmActive,
	}
}

// Acknowledge transitions Active → Acknowledged. Any other starting
// state is a no-op returning false.
func (a *AlarmEvent) Acknowledge(user string, at time.Time) bool {
	if a.State != AlarmActive {
		return false
	}
	a.State = AlarmAcknowledged
	a.AcknowledgedBy = user
	a.AcknowledgedAt = at
	return true
}

func (a *AlarmEvent) clear(at time.Time) {
	a.State = AlarmCleared
	a.ClearedAt = at
}

// Duration returns how long the alarm has been (or was) active,
// measured against asOf for alarms that have not cleared.
func (a *AlarmEvent) Duration(asOf time.Time) float64 {
	end := a.ClearedAt
	if end.IsZero() {
		end = asOf
	}
	return end.Sub(a.Timestamp).Seconds()
}

// AlarmCallback receives every newly raised alarm synchronously.
type AlarmCallback func(*AlarmEvent)
