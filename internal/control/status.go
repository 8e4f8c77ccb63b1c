package control

import (
	"time"

	"github.com/zkalam/smart-thermal-control/internal/pid"
	"github.com/zkalam/smart-thermal-control/internal/safety"
	"github.com/zkalam/smart-thermal-control/internal/sim"
)

// Sample is one tick of the performance log.
type Sample struct {
	Timestamp         time.Time
	Temperature       float64
	TargetTemperature float64
	CommandedPower    float64
	ActualPower       float64
	Mode              Mode
	SafetyLevel       safety.Level
	ActiveAlarms      int
	PIDError          float64
	PIDOutput         float64
}

// AuditEvent is one entry in the append-only operational event log:
// alarms, mode changes, emergency entry and exit.
type AuditEvent struct {
	Timestamp   time.Time
	ID          string
	Severity    safety.Severity
	Message     string
	Temperature float64
}

// Audit event identities beyond the safety alarm identities.
const (
	EventModeChange     = "MODE_CHANGE"
	EventEmergencyEntry = "EMERGENCY_MODE_ENTRY"
	EventEmergencyExit  = "EMERGENCY_MODE_EXIT"
	EventSystemStarted  = "SYSTEM_STARTED"
	EventSystemStopped  = "SYSTEM_STOPPED"
)

// Performance holds rolling metrics over the recent control history.
type Performance struct {
	TemperatureStability float64 // °C, std deviation of recent readings
	AverageError         float64 // °C
	MaximumError         float64 // °C
	AveragePowerUsage    float64 // W, mean |actual power|
	TotalEvents          int
	CriticalAlarms       int
	DataPoints           int
	UptimeHours          float64
}

// Status is a field-complete snapshot of the control system.
type Status struct {
	Enabled            bool
	Mode               Mode
	CurrentTemperature float64
	TargetTemperature  float64

	PID         pid.Status
	Actuator    sim.ActuatorStatus
	ManualPower float64

	Safety            safety.Status
	EmergencyMode     bool
	EmergencyReason   string
	EmergencyDuration float64 // s, zero outside emergency

	Performance Performance

	LastUpdate            time.Time
	ControlUpdateInterval float64
	SafetyUpdateInterval  float64
}

// Export is the audit bundle produced by ExportLogData.
type Export struct {
	Product           string
	TargetTemperature float64
	VolumeLiters      float64

	ControlHistory []Sample
	AlarmHistory   []safety.AlarmEvent
	AuditEvents    []AuditEvent
	Performance    Performance

	ExportedAt time.Time
	DataPoints int
}

// StatusSubscriber receives the status snapshot after every tick.
type StatusSubscriber func(Status)

// AlarmSubscriber receives every newly raised alarm.
type AlarmSubscriber func(safety.AlarmEvent)
