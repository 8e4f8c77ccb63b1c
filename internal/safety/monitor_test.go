package safety_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkalam/smart-thermal-control/internal/safety"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newMonitor(t *testing.T) *safety.Monitor {
	t.Helper()
	m, err := safety.NewDefaultMonitor(thermal.WholeBlood())
	require.NoError(t, err)
	return m
}

func TestLimitsValidation(t *testing.T) {
	cases := []struct {
		name   string
		limits safety.SafetyLimits
		ok     bool
	}{
		{
			"valid nesting",
			safety.SafetyLimits{CriticalTempLow: 1, WarningTempLow: 2, WarningTempHigh: 5, CriticalTempHigh: 6},
			true,
		},
		{
			"critical inverted",
			safety.SafetyLimits{CriticalTempLow: 6, WarningTempLow: 2, WarningTempHigh: 5, CriticalTempHigh: 1},
			false,
		},
		{
			"warning inverted",
			safety.SafetyLimits{CriticalTempLow: 1, WarningTempLow: 5, WarningTempHigh: 2, CriticalTempHigh: 6},
			false,
		},
		{
			"warning outside critical",
			safety.SafetyLimits{CriticalTempLow: 1, WarningTempLow: 0, WarningTempHigh: 5, CriticalTempHigh: 6},
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := safety.NewSafetyLimits(tc.limits)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDefaultLimitsBufferWarnings(t *testing.T) {
	limits := safety.DefaultLimits(thermal.WholeBlood())

	assert.Equal(t, 6.0, limits.CriticalTempHigh)
	assert.Equal(t, 1.0, limits.CriticalTempLow)
	assert.Equal(t, 5.0, limits.WarningTempHigh, "1°C inward buffer")
	assert.Equal(t, 2.0, limits.WarningTempLow)
	assert.NoError(t, limits.Validate())
}

func TestSafeTemperatureRaisesNothing(t *testing.T) {
	m := newMonitor(t)

	status := m.UpdateTemperature(4.0, t0)

	assert.Equal(t, safety.LevelSafe, status.Level)
	assert.Zero(t, status.ActiveAlarms)
	assert.False(t, status.EmergencyMode)
	assert.False(t, status.OverrideActive)
	assert.Equal(t, "NORMAL", status.BloodProduct.Level)
}

func TestCriticalHighEntersEmergencyWithCoolingOverride(t *testing.T) {
	m := newMonitor(t)

	status := m.UpdateTemperature(8.0, t0)

	assert.Equal(t, safety.LevelEmergency, status.Level)
	assert.True(t, status.EmergencyMode)
	assert.True(t, status.OverrideActive)
	assert.Negative(t, status.OverridePower, "too hot needs cooling")

	power, ok := m.OverridePower()
	assert.True(t, ok)
	assert.Equal(t, -m.Limits().MaxEmergencyPower, power)
}

func TestCriticalLowOverrideHeats(t *testing.T) {
	m := newMonitor(t)

	status := m.UpdateTemperature(0.2, t0)

	assert.Equal(t, safety.LevelEmergency, status.Level)
	power, ok := m.OverridePower()
	assert.True(t, ok)
	assert.Equal(t, m.Limits().MaxEmergencyPower, power)
	_ = status
}

func TestWarningLevel(t *testing.T) {
	m := newMonitor(t)

	status := m.UpdateTemperature(5.5, t0) // above warning high (5.0), below critical high (6.0)

	assert.Equal(t, safety.LevelWarning, status.Level)
	assert.False(t, status.EmergencyMode)
	_, ok := m.OverridePower()
	assert.False(t, ok)
}

func TestAlarmIdempotence(t *testing.T) {
	m := newMonitor(t)

	fired := 0
	m.AddAlarmCallback(func(a *safety.AlarmEvent) {
		if a.ID == safety.AlarmTempCriticalHigh {
			fired++
		}
	})

	m.UpdateTemperature(8.0, t0)
	m.UpdateTemperature(8.1, t0.Add(5*time.Second))
	m.UpdateTemperature(8.2, t0.Add(10*time.Second))

	assert.Equal(t, 1, fired, "same identity must fire exactly one callback")

	alarm, ok := m.ActiveAlarm(safety.AlarmTempCriticalHigh)
	require.True(t, ok)
	assert.Equal(t, safety.AlarmActive, alarm.State)

	// Resolving the condition clears it exactly once.
	m.UpdateTemperature(4.0, t0.Add(15*time.Second))
	_, ok = m.ActiveAlarm(safety.AlarmTempCriticalHigh)
	assert.False(t, ok)

	log := m.ExportAlarmLog(time.Time{}, time.Time{})
	occurrences := 0
	for _, a := range log {
		if a.ID == safety.AlarmTempCriticalHigh {
			occurrences++
			assert.Equal(t, safety.AlarmCleared, a.State)
		}
	}
	assert.Equal(t, 1, occurrences)
}

func TestCallbackPanicIsolated(t *testing.T) {
	m := newMonitor(t)

	var reached bool
	m.AddAlarmCallback(func(*safety.AlarmEvent) { panic("handler exploded") })
	m.AddAlarmCallback(func(*safety.AlarmEvent) { reached = true })

	assert.NotPanics(t, func() { m.UpdateTemperature(8.0, t0) })
	assert.True(t, reached, "later callbacks still run after a panic")
	assert.Equal(t, safety.LevelEmergency, m.Status().Level, "monitor state stays consistent")
}

func TestRateOfChangeAlarms(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(4.0, t0)
	// +0.5°C over 10s = 3°C/min, above the 2°C/min heating limit.
	m.UpdateTemperature(4.5, t0.Add(10*time.Second))

	_, ok := m.ActiveAlarm(safety.AlarmRateHeatingHigh)
	assert.True(t, ok)

	// Holding steady clears the rate alarm.
	m.UpdateTemperature(4.5, t0.Add(20*time.Second))
	_, ok = m.ActiveAlarm(safety.AlarmRateHeatingHigh)
	assert.False(t, ok)
}

func TestCoolingRateAlarm(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(4.0, t0)
	// -1.0°C over 10s = -6°C/min, beyond the 5°C/min cooling limit.
	m.UpdateTemperature(3.0, t0.Add(10*time.Second))

	_, ok := m.ActiveAlarm(safety.AlarmRateCoolingHigh)
	assert.True(t, ok)
}

func TestTimeOutsideWarningAccumulatesAndResets(t *testing.T) {
	m := newMonitor(t)

	ts := t0
	m.UpdateTemperature(5.5, ts) // outside warning band, dt=0 on first call

	for i := 0; i < 4; i++ {
		ts = ts.Add(60 * time.Second)
		m.UpdateTemperature(5.5, ts)
	}
	assert.InDelta(t, 240.0, m.Status().TimeOutsideWarning, 1e-9)
	_, ok := m.ActiveAlarm(safety.AlarmTimeWarning)
	assert.False(t, ok, "still under the 300s limit")

	ts = ts.Add(90 * time.Second)
	m.UpdateTemperature(5.5, ts)
	_, ok = m.ActiveAlarm(safety.AlarmTimeWarning)
	assert.True(t, ok, "330s outside the warning band exceeds the limit")

	// One sample back inside resets the counter.
	ts = ts.Add(10 * time.Second)
	status := m.UpdateTemperature(4.0, ts)
	assert.Zero(t, status.TimeOutsideWarning)
}

func TestAcknowledgeLifecycle(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(8.0, t0)

	assert.True(t, m.AcknowledgeAlarm(safety.AlarmTempCriticalHigh, "operator"))
	alarm, ok := m.ActiveAlarm(safety.AlarmTempCriticalHigh)
	require.True(t, ok)
	assert.Equal(t, safety.AlarmAcknowledged, alarm.State)
	assert.Equal(t, "operator", alarm.AcknowledgedBy)

	assert.False(t, m.AcknowledgeAlarm(safety.AlarmTempCriticalHigh, "operator"), "second ack is a no-op")
	assert.False(t, m.AcknowledgeAlarm("NO_SUCH_ALARM", "operator"))
}

func TestAcknowledgeAll(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(8.0, t0) // critical high + warning high + emergency mode

	count := m.AcknowledgeAll("operator")
	assert.Equal(t, m.ActiveAlarmCount(), count)
	assert.Zero(t, m.AcknowledgeAll("operator"))
}

func TestResetMonitoringKeepsCriticalAlarms(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(8.0, t0)
	require.Greater(t, m.ActiveAlarmCount(), 0)

	m.ResetMonitoring()

	_, ok := m.ActiveAlarm(safety.AlarmTempCriticalHigh)
	assert.True(t, ok, "critical alarms survive a soft reset")
	_, ok = m.ActiveAlarm(safety.AlarmTempWarningHigh)
	assert.False(t, ok, "warning alarms are cleared")

	status := m.Status()
	assert.Zero(t, status.TimeOutsideWarning)
	assert.Zero(t, status.TimeOutsideCritical)
	assert.Empty(t, m.TemperatureHistory())
}

func TestDisabledMonitorFreezesAlarms(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(4.0, t0)
	m.Disable()

	status := m.UpdateTemperature(10.0, t0.Add(time.Second))
	assert.Zero(t, status.ActiveAlarms, "no new alarms while disabled")
	assert.False(t, status.Enabled)

	m.Enable()
	status = m.UpdateTemperature(10.0, t0.Add(2*time.Second))
	assert.Equal(t, safety.LevelEmergency, status.Level)
}

func TestExportAlarmLogFilterIsSubset(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(8.0, t0)
	m.UpdateTemperature(4.0, t0.Add(time.Minute))
	m.UpdateTemperature(0.2, t0.Add(2*time.Minute))

	all := m.ExportAlarmLog(time.Time{}, time.Time{})
	filtered := m.ExportAlarmLog(t0.Add(90*time.Second), time.Time{})

	assert.Greater(t, len(all), len(filtered))
	for _, a := range filtered {
		assert.False(t, a.Timestamp.Before(t0.Add(90*time.Second)))
	}
}

func TestEmergencyModeClearsWhenSafe(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(8.0, t0)
	require.True(t, m.EmergencyMode())

	status := m.UpdateTemperature(4.0, t0.Add(time.Second))
	assert.False(t, m.EmergencyMode())
	assert.Equal(t, safety.LevelSafe, status.Level)
	assert.Zero(t, status.ActiveAlarms)
}

func TestSummary(t *testing.T) {
	m := newMonitor(t)

	m.UpdateTemperature(8.0, t0)

	summary := m.AlarmSummary()
	assert.Equal(t, m.ActiveAlarmCount(), summary.TotalActive)
	assert.Equal(t, summary.TotalActive, len(summary.ActiveAlarms))
	assert.GreaterOrEqual(t, summary.CriticalRaised, 1)
	assert.Positive(t, summary.ActiveBySeverity[safety.SeverityCritical])
}
