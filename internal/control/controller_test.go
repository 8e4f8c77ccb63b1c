package control_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkalam/smart-thermal-control/internal/control"
	"github.com/zkalam/smart-thermal-control/internal/safety"
	"github.com/zkalam/smart-thermal-control/internal/sim"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSystem(t *testing.T) *control.Controller {
	t.Helper()
	c, err := control.NewBloodStorageSystem(thermal.WholeBlood(), thermal.MedicalGradePVC(), 0.5, 0.2)
	require.NoError(t, err)
	c.SetClock(func() time.Time { return t0 })
	return c
}

func TestStartEntersAutomatic(t *testing.T) {
	c := newSystem(t)

	status := c.StartFrom(4.0, 4.0)

	assert.True(t, status.Enabled)
	assert.Equal(t, control.Automatic, status.Mode)
	assert.Equal(t, 4.0, status.CurrentTemperature)
	assert.Equal(t, 4.0, status.TargetTemperature)
}

func TestStopDisablesUpdates(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(4.0, 4.0)
	c.Update(1.0)

	status := c.Stop()
	require.Equal(t, control.Shutdown, status.Mode)
	require.False(t, status.Enabled)

	points := len(c.History(0))
	c.Update(1.0)
	assert.Len(t, c.History(0), points, "disabled system records nothing")
}

func TestCoolingScenario(t *testing.T) {
	// Whole blood loaded at room temperature must be driven toward
	// its 4°C storage target with cooling-only commands.
	c := newSystem(t)
	c.Start() // 20°C initial, 4°C ambient

	var status control.Status
	for i := 0; i < 60; i++ {
		status = c.Update(1.0)
	}

	final := status.CurrentTemperature
	assert.Less(t, math.Abs(final-4.0), math.Abs(20.0-4.0),
		"ends strictly closer to target than it started")

	for _, s := range c.History(0) {
		assert.LessOrEqual(t, s.CommandedPower, 0.0, "only cooling while too warm")
	}
}

func TestLoadAboveCriticalForcesEmergency(t *testing.T) {
	c := newSystem(t)
	c.Start() // 20°C, far above the 6°C critical limit

	status := c.Update(1.0)

	assert.Equal(t, control.Emergency, status.Mode)
	assert.True(t, status.EmergencyMode)
	assert.Contains(t, status.EmergencyReason, safety.AlarmTempCriticalHigh)
	assert.Negative(t, status.Actuator.ActualPowerW, "maximum cooling applied")
}

func TestEmergencyAutoExitWhenSafe(t *testing.T) {
	c := newSystem(t)
	// Slightly above critical with a cold environment, so the plant
	// re-enters the safe band well before any time limit latches.
	c.StartFrom(6.5, 0.0)

	exited := false
	for i := 0; i < 400; i++ {
		status := c.Update(1.0)
		if status.Mode == control.Automatic && i > 0 {
			exited = true
			break
		}
	}

	require.True(t, exited, "system returns to automatic once safe")

	ids := map[string]bool{}
	for _, e := range c.AuditEvents() {
		ids[e.ID] = true
	}
	assert.True(t, ids[control.EventEmergencyEntry])
	assert.True(t, ids[control.EventEmergencyExit])
}

func TestAutomaticControlPullsTowardTarget(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(5.5, 4.0) // inside critical limits, above the 5°C warning bound

	var status control.Status
	for i := 0; i < 60; i++ {
		status = c.Update(1.0)
	}

	assert.Equal(t, control.Automatic, status.Mode, "warnings alone never force emergency")
	assert.Less(t, status.CurrentTemperature, 5.5)
	assert.Greater(t, status.CurrentTemperature, 3.0)
}

func TestManualPowerClamped(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(4.0, 4.0)
	require.NoError(t, c.SetControlMode(control.Manual))

	assert.Equal(t, 50.0, c.SetManualPower(150.0), "clamped to max heating")
	assert.Equal(t, -100.0, c.SetManualPower(-250.0), "clamped to max cooling")

	c.SetManualPower(50.0)
	status := c.Update(1.0)
	assert.Equal(t, 50.0, status.Actuator.CommandedPowerW)
}

func TestEmergencyModeGuard(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(4.0, 4.0)

	err := c.SetControlMode(control.Emergency)
	assert.Error(t, err, "manual entry into emergency always fails")
	assert.Equal(t, control.Automatic, c.Mode(), "mode unchanged")
}

func TestEmergencyOnlyExitsToAutomatic(t *testing.T) {
	c := newSystem(t)
	c.Start()
	c.Update(1.0) // 20°C forces emergency
	require.Equal(t, control.Emergency, c.Mode())

	assert.Error(t, c.SetControlMode(control.Manual))
	assert.Error(t, c.SetControlMode(control.Maintenance))
	assert.Equal(t, control.Emergency, c.Mode())

	assert.NoError(t, c.SetControlMode(control.Automatic))
	assert.Equal(t, control.Automatic, c.Mode())
}

func TestTargetTemperatureValidation(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(4.0, 4.0)

	// Whole blood critical range is 1-6°C, so 12°C is past the +5 margin.
	assert.Error(t, c.SetTargetTemperature(12.0))
	assert.Equal(t, 4.0, c.TargetTemperature(), "rejected target leaves setpoint unchanged")

	assert.NoError(t, c.SetTargetTemperature(5.0))
	assert.Equal(t, 5.0, c.TargetTemperature())
}

func TestModeChangeSyncsAndAudits(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(4.0, 4.0)

	require.NoError(t, c.SetControlMode(control.Maintenance))
	status := c.Update(1.0)
	assert.Zero(t, status.Actuator.CommandedPowerW, "maintenance holds zero power")

	found := false
	for _, e := range c.AuditEvents() {
		if e.ID == control.EventModeChange {
			found = true
			assert.Equal(t, safety.SeverityInfo, e.Severity)
		}
	}
	assert.True(t, found)
}

func TestSubscriberPanicIsolation(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(4.0, 4.0)

	var statusCalls int
	c.AddStatusSubscriber(func(control.Status) { panic("subscriber exploded") })
	c.AddStatusSubscriber(func(control.Status) { statusCalls++ })

	assert.NotPanics(t, func() { c.Update(1.0) })
	assert.Equal(t, 1, statusCalls, "later subscribers still run")
}

func TestAlarmSubscriberReceivesEvents(t *testing.T) {
	c := newSystem(t)

	var received []string
	c.AddAlarmSubscriber(func(a safety.AlarmEvent) { received = append(received, a.ID) })
	c.AddAlarmSubscriber(func(safety.AlarmEvent) { panic("broken relay") })

	c.Start() // 20°C raises critical + warning alarms on the first tick
	assert.NotPanics(t, func() { c.Update(1.0) })
	assert.Contains(t, received, safety.AlarmTempCriticalHigh)
}

func TestExportSupersetProperty(t *testing.T) {
	c := newSystem(t)
	c.Start()
	for i := 0; i < 30; i++ {
		c.Update(1.0)
	}

	all := c.ExportLogData(time.Time{}, time.Time{})
	narrowed := c.ExportLogData(t0.Add(10*time.Second), t0.Add(20*time.Second))

	assert.GreaterOrEqual(t, len(all.ControlHistory), len(narrowed.ControlHistory))
	assert.GreaterOrEqual(t, len(all.AlarmHistory), len(narrowed.AlarmHistory))
	assert.NotEmpty(t, narrowed.ControlHistory)

	seen := map[time.Time]bool{}
	for _, s := range all.ControlHistory {
		seen[s.Timestamp] = true
	}
	for _, s := range narrowed.ControlHistory {
		assert.True(t, seen[s.Timestamp], "narrowed records are a subset")
	}

	assert.Equal(t, "Whole Blood", all.Product)
	assert.Equal(t, len(all.ControlHistory), all.DataPoints)
}

func TestExportTimestampsMonotonic(t *testing.T) {
	c := newSystem(t)
	c.StartFrom(4.0, 4.0)
	for i := 0; i < 20; i++ {
		c.Update(1.0)
	}

	export := c.ExportLogData(time.Time{}, time.Time{})
	for i := 1; i < len(export.ControlHistory); i++ {
		assert.False(t, export.ControlHistory[i].Timestamp.Before(export.ControlHistory[i-1].Timestamp))
	}
	for _, s := range export.ControlHistory {
		assert.Greater(t, s.Temperature, -273.15)
		assert.Less(t, s.Temperature, 100.0)
	}
}

func TestHistoryBounded(t *testing.T) {
	product := thermal.WholeBlood()
	cfg := control.DefaultConfiguration(product)
	cfg.HistoryLength = 10
	c, err := control.New(product, thermal.MedicalGradePVC(), 0.5, 0.2, cfg,
		sim.DefaultActuatorLimits())
	require.NoError(t, err)
	c.StartFrom(4.0, 4.0)

	for i := 0; i < 25; i++ {
		c.Update(1.0)
	}

	assert.Len(t, c.History(0), 10)
	assert.Len(t, c.History(3), 3)
}

func TestAcknowledgeThroughInterface(t *testing.T) {
	c := newSystem(t)
	c.Start()
	c.Update(1.0) // raises critical alarms at 20°C

	assert.True(t, c.AcknowledgeAlarm(safety.AlarmTempCriticalHigh, "operator"))
	assert.False(t, c.AcknowledgeAlarm(safety.AlarmTempCriticalHigh, "operator"))
	assert.GreaterOrEqual(t, c.AcknowledgeAllAlarms("operator"), 0)
}

func TestConfigurationValidation(t *testing.T) {
	product := thermal.WholeBlood()

	cfg := control.DefaultConfiguration(product)
	cfg.MaxOverridePct = 150
	assert.Error(t, cfg.Validate())

	cfg = control.DefaultConfiguration(product)
	cfg.HistoryLength = 0
	assert.Error(t, cfg.Validate())

	cfg = control.DefaultConfiguration(product)
	cfg.ControlUpdateInterval = -1
	assert.Error(t, cfg.Validate())

	assert.NoError(t, control.DefaultConfiguration(product).Validate())
	assert.NoError(t, control.PlasmaConfiguration().Validate())
}
