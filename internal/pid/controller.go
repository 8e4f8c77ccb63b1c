// Package pid implements the discrete PID controller that drives
// thermal power toward a blood product's target temperature.
package pid

import (
	"math"
	"time"

	"github.com/zkalam/smart-thermal-control/internal/errors"
	"github.com/zkalam/smart-thermal-control/internal/ring"
	"github.com/zkalam/smart-thermal-control/internal/thermal"
)

const historyCap = 1000

// Mode selects how the controller responds to updates.
type Mode string

const (
	// Automatic computes output from the PID terms.
	Automatic Mode = "automatic"
	// Manual suspends computation; output is owned elsewhere.
	Manual Mode = "manual"
	// Disabled zeroes output and discards accumulated state.
	Disabled Mode = "disabled"
)

// Gains holds the three PID coefficients.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// Validate rejects negative coefficients.
func (g Gains) Validate() error {
	if g.Kp < 0 || g.Ki < 0 || g.Kd < 0 {
		return errors.New().WithMessage(errors.ErrInvalidArgument,
			"PID gains must be non-negative")
	}
	return nil
}

// Tuning presets for the supported storage profiles.
func BloodStorageGains() Gains { return Gains{Kp: 1.0, Ki: 0.1, Kd: 0.05} }
func AggressiveGains() Gains   { return Gains{Kp: 3.0, Ki: 0.5, Kd: 0.2} }
func ConservativeGains() Gains { return Gains{Kp: 0.5, Ki: 0.05, Kd: 0.01} }

// Sample is one controller update, kept in the bounded history.
type Sample struct {
	Error  float64
	Output float64
	Dt     float64
}

// Status is a diagnostic snapshot of the controller.
type Status struct {
	Mode            Mode
	Setpoint        float64
	Gains           Gains
	LastError       float64
	LastOutput      float64
	IntegralTerm    float64
	Updates         int
	SumSquaredError float64
	MaxAbsError     float64
	AvgRecentError  float64
}

// Controller is a discrete PID controller with integral pre-clamping.
// It never reads a wall clock on the hot path; callers supply dt
// directly or a timestamp via UpdateAt.
type Controller struct {
	gains    Gains
	setpoint float64
	outMin   float64
	outMax   float64
	mode     Mode

	integral   float64
	lastError  float64
	hasError   bool
	lastOutput float64

	lastTime time.Time

	updates         int
	sumSquaredError float64
	maxAbsError     float64
	history         *ring.Buffer[Sample]
}

// NewController creates a controller in Automatic mode.
func NewController(gains Gains, setpoint, outMin, outMax float64) (*Controller, error) {
	if err := gains.Validate(); err != nil {
		return nil, err
	}
	if outMin >= outMax {
		return nil, errors.New().WithMessage(errors.ErrInvalidArgument,
			"output minimum must be less than output maximum")
	}

	return &Controller{
		gains:    gains,
		setpoint: setpoint,
		outMin:   outMin,
		outMax:   outMax,
		mode:     Automatic,
		history:  ring.New[Sample](historyCap),
	}, nil
}

// NewBloodStorageController returns a controller tuned for refrigerated
// whole blood and red cell storage.
func NewBloodStorageController(product thermal.BloodProperties) (*Controller, error) {
	return NewController(BloodStorageGains(), product.TargetTempC, -100.0, 50.0)
}

// NewPlasmaController returns a controller tuned for frozen plasma,
// with the wider cooling authority freezing requires.
func NewPlasmaController(product thermal.BloodProperties) (*Controller, error) {
	return NewController(Gains{Kp: 2.0, Ki: 0.2, Kd: 0.1}, product.TargetTempC, -200.0, 100.0)
}

// NewPlateletController returns a controller tuned for room-temperature
// platelet agitators.
func NewPlateletController(product thermal.BloodProperties) (*Controller, error) {
	return NewController(Gains{Kp: 1.5, Ki: 0.15, Kd: 0.075}, product.TargetTempC, -75.0, 75.0)
}

// Update runs one PID step against the measured temperature over dt
// seconds and returns the commanded power. A non-positive dt repeats
// the previous output without disturbing controller state. Outside
// Automatic mode the output is zero.
func (c *Controller) Update(temperature, dt float64) float64 {
	if c.mode != Automatic {
		return 0
	}
	if dt <= 0 {
		return c.lastOutput
	}

	err := c.setpoint - temperature

	c.integral += err * dt
	c.clampIntegral()

	derivative := 0.0
	if c.hasError {
		derivative = (err - c.lastError) / dt
	}

	output := c.gains.Kp*err + c.gains.Ki*c.integral + c.gains.Kd*derivative
	output = math.Max(c.outMin, math.Min(c.outMax, output))

	c.lastError = err
	c.hasError = true
	c.lastOutput = output

	c.updates++
	c.sumSquaredError += err * err
	if math.Abs(err) > c.maxAbsError {
		c.maxAbsError = math.Abs(err)
	}
	c.history.Push(Sample{Error: err, Output: output, Dt: dt})

	return output
}

// UpdateAt derives dt from the previous call's timestamp. The first
// call only warms up the clock and returns the current output.
func (c *Controller) UpdateAt(temperature float64, now time.Time) float64 {
	if c.lastTime.IsZero() {
		c.lastTime = now
		return c.lastOutput
	}
	dt := now.Sub(c.lastTime).Seconds()
	c.lastTime = now
	return c.Update(temperature, dt)
}

// clampIntegral bounds the accumulated integral so its contribution
// alone cannot exceed the output range. The clamp happens before the
// output computation, so a saturated actuator cannot wind the term up.
func (c *Controller) clampIntegral() {
	if c.gains.Ki <= 0 {
		return
	}
	min := c.outMin / c.gains.Ki
	max := c.outMax / c.gains.Ki
	c.integral = math.Max(min, math.Min(max, c.integral))
}

// SetSetpoint changes the target temperature.
func (c *Controller) SetSetpoint(setpoint float64) {
	c.setpoint = setpoint
}

// Setpoint returns the current target temperature.
func (c *Controller) Setpoint() float64 {
	return c.setpoint
}

// SetGains replaces the tuning coefficients and re-clamps the integral
// against the new Ki.
func (c *Controller) SetGains(gains Gains) error {
	if err := gains.Validate(); err != nil {
		return err
	}
	c.gains = gains
	c.clampIntegral()
	return nil
}

// Gains returns the current tuning coefficients.
func (c *Controller) Gains() Gains {
	return c.gains
}

// SetOutputLimits replaces the output range.
func (c *Controller) SetOutputLimits(outMin, outMax float64) error {
	if outMin >= outMax {
		return errors.New().WithMessage(errors.ErrInvalidArgument,
			"output minimum must be less than output maximum")
	}
	c.outMin = outMin
	c.outMax = outMax
	c.clampIntegral()
	return nil
}

// OutputLimits returns the output range.
func (c *Controller) OutputLimits() (float64, float64) {
	return c.outMin, c.outMax
}

// SetMode switches operating mode. Entering Disabled discards all
// accumulated state so a later return to Automatic starts clean.
func (c *Controller) SetMode(mode Mode) {
	if mode == c.mode {
		return
	}
	c.mode = mode
	if mode == Disabled {
		c.Reset()
	}
}

// Mode returns the current operating mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// LastOutput returns the most recently commanded power.
func (c *Controller) LastOutput() float64 {
	return c.lastOutput
}

// Reset discards the integral, error memory, warm-up clock, history
// and performance counters. Gains, setpoint and limits survive.
func (c *Controller) Reset() {
	c.integral = 0
	c.lastError = 0
	c.hasError = false
	c.lastOutput = 0
	c.lastTime = time.Time{}
	c.updates = 0
	c.sumSquaredError = 0
	c.maxAbsError = 0
	c.history.Clear()
}

// History returns up to n recent samples, oldest first. n <= 0 returns
// the full history.
func (c *Controller) History(n int) []Sample {
	if n <= 0 {
		return c.history.Values()
	}
	return c.history.Last(n)
}

// Status returns a diagnostic snapshot including aggregate tracking
// performance since the last reset.
func (c *Controller) Status() Status {
	recent := c.history.Last(10)
	avg := 0.0
	if len(recent) > 0 {
		sum := 0.0
		for _, s := range recent {
			sum += math.Abs(s.Error)
		}
		avg = sum / float64(len(recent))
	}

	return Status{
		Mode:            c.mode,
		Setpoint:        c.setpoint,
		Gains:           c.gains,
		LastError:       c.lastError,
		LastOutput:      c.lastOutput,
		IntegralTerm:    c.gains.Ki * c.integral,
		Updates:         c.updates,
		SumSquaredError: c.sumSquaredError,
		MaxAbsError:     c.maxAbsError,
		AvgRecentError:  avg,
	}
}
