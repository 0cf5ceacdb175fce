package stepper

import (
	"math"
	"time"

	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/hw/gpio"
)

// Config holds the hardware configuration for a stepper motor.
type Config struct {
	StepPin   int
	DirPin    int
	EnablePin int  // A4988 ENABLE pin (BCM). 0 = not used. Active LOW (LOW=enabled).
	InvertDir bool // swap the DIR level for positive steps
}

// Stepper drives an A4988 STEP/DIR/ENABLE driver without blocking.
//
// Run and RunSpeed perform at most one step per call and return immediately;
// they must be called more often than the fastest step rate. The STEP line is
// raised by one call and lowered by the next, which keeps the pulse longer
// than the driver minimum without sleeping.
type Stepper struct {
	gpio gpio.Driver
	cfg  Config
	now  func() time.Time

	current  int64
	target   int64
	speed    float64 // signed steps/s
	maxSpeed float64 // steps/s
	accel    float64 // steps/s^2, 0 = instant speed changes

	lastStep time.Time
	stepHigh bool
	dirSet   bool
	dirUp    bool
	err      error
}

// NewStepper creates a new stepper motor controller. Timing uses time.Now.
func NewStepper(g gpio.Driver, cfg Config) *Stepper {
	return NewStepperWithClock(g, cfg, time.Now)
}

// NewStepperWithClock is NewStepper with an explicit monotonic time source.
func NewStepperWithClock(g gpio.Driver, cfg Config, now func() time.Time) *Stepper {
	s := &Stepper{
		gpio: g,
		cfg:  cfg,
		now:  now,
	}
	s.record(g.SetupPin(cfg.StepPin, gpio.Output))
	s.record(g.SetupPin(cfg.DirPin, gpio.Output))

	// A4988 ENABLE: active LOW. LOW = enabled, HIGH = disabled.
	if cfg.EnablePin > 0 {
		s.record(g.SetupPin(cfg.EnablePin, gpio.Output))
		s.record(g.WritePin(cfg.EnablePin, gpio.Low)) // enable by default
	}
	return s
}

// CurrentPosition returns the position in steps.
func (s *Stepper) CurrentPosition() int64 { return s.current }

// TargetPosition returns the target of profiled motion in steps.
func (s *Stepper) TargetPosition() int64 { return s.target }

// DistanceToGo returns the signed number of steps left to the target.
func (s *Stepper) DistanceToGo() int64 { return s.target - s.current }

// Speed returns the current signed speed in steps/s.
func (s *Stepper) Speed() float64 { return s.speed }

// MaxSpeed returns the speed cap in steps/s.
func (s *Stepper) MaxSpeed() float64 { return s.maxSpeed }

// IsRunning reports whether profiled motion has not finished yet.
func (s *Stepper) IsRunning() bool {
	return s.speed != 0 || s.target != s.current
}

// MoveTo sets the absolute target for Run. The current speed is kept, so an
// active move is decelerated rather than reversed instantly.
func (s *Stepper) MoveTo(target int64) {
	s.target = target
}

// SetSpeed sets the constant speed used by RunSpeed, capped to the max speed.
func (s *Stepper) SetSpeed(stepsPerSec float64) {
	if math.IsNaN(stepsPerSec) {
		stepsPerSec = 0
	}
	s.speed = clamp(stepsPerSec, s.maxSpeed)
}

// SetMaxSpeed sets the speed cap for both disciplines.
func (s *Stepper) SetMaxSpeed(stepsPerSec float64) {
	s.maxSpeed = math.Abs(stepsPerSec)
	s.speed = clamp(s.speed, s.maxSpeed)
}

// SetAcceleration sets the ramp used by Run. Zero or less means no ramp.
func (s *Stepper) SetAcceleration(stepsPerSec2 float64) {
	s.accel = math.Max(stepsPerSec2, 0)
}

// SetCurrentPosition redefines the current position. The motor is considered
// stopped at that position.
func (s *Stepper) SetCurrentPosition(pos int64) {
	s.current = pos
	s.target = pos
	s.speed = 0
}

// RunSpeed performs one step at the constant speed set by SetSpeed if a step is due.
func (s *Stepper) RunSpeed() {
	s.lowerStep()
	if s.speed == 0 {
		return
	}
	now := s.now()
	if now.Sub(s.lastStep) < interval(s.speed) {
		return
	}
	s.step(s.speed > 0)
	s.lastStep = now
}

// Run performs one step of acceleration-limited motion toward the target if a
// step is due.
func (s *Stepper) Run() {
	s.lowerStep()
	if s.maxSpeed <= 0 {
		return
	}
	now := s.now()
	if s.speed == 0 {
		dist := s.target - s.current
		if dist == 0 {
			return
		}
		// Start from rest: the first step is due one interval from now.
		s.speed = sign(dist) * s.startSpeed()
		s.lastStep = now
		return
	}
	if now.Sub(s.lastStep) < interval(s.speed) {
		return
	}
	s.step(s.speed > 0)
	s.lastStep = now
	s.computeNewSpeed()
}

// computeNewSpeed updates the speed after a step. Every step changes v^2 by
// 2a, so the motor brakes once the remaining distance is within v^2/2a.
func (s *Stepper) computeNewSpeed() {
	dist := s.target - s.current
	if s.accel <= 0 {
		if dist == 0 {
			s.speed = 0
		} else {
			s.speed = sign(dist) * s.maxSpeed
		}
		return
	}

	v2 := s.speed * s.speed
	if dist == 0 && v2 <= 2*s.accel {
		s.speed = 0
		return
	}

	towards := (dist > 0) == (s.speed > 0) && dist != 0
	brakeSteps := v2 / (2 * s.accel)
	if !towards || float64(abs(dist)) <= brakeSteps {
		v2 -= 2 * s.accel
		if v2 < 2*s.accel {
			if dist == 0 {
				s.speed = 0
				return
			}
			// Below the start speed: crawl toward the target, reversing if it was overshot.
			s.speed = sign(dist) * s.startSpeed()
			return
		}
	} else {
		v2 += 2 * s.accel
	}
	mag := math.Min(math.Sqrt(v2), s.maxSpeed)
	if s.speed < 0 {
		mag = -mag
	}
	s.speed = mag
}

func (s *Stepper) startSpeed() float64 {
	if s.accel <= 0 {
		return s.maxSpeed
	}
	return math.Min(math.Sqrt(2*s.accel), s.maxSpeed)
}

func (s *Stepper) step(up bool) {
	if !s.dirSet || s.dirUp != up {
		level := gpio.Level(up != s.cfg.InvertDir)
		s.record(s.gpio.WritePin(s.cfg.DirPin, level))
		s.dirSet = true
		s.dirUp = up
	}
	s.record(s.gpio.WritePin(s.cfg.StepPin, gpio.High))
	s.stepHigh = true
	if up {
		s.current++
	} else {
		s.current--
	}
}

func (s *Stepper) lowerStep() {
	if !s.stepHigh {
		return
	}
	s.record(s.gpio.WritePin(s.cfg.StepPin, gpio.Low))
	s.stepHigh = false
}

// record keeps the first GPIO error; stepping continues on the position count.
func (s *Stepper) record(err error) {
	if err != nil && s.err == nil {
		s.err = err
		debug.Error(err)
	}
}

// Err returns the first GPIO error seen by the stepper, if any.
func (s *Stepper) Err() error { return s.err }

// Enable turns on the motor driver (A4988 ENABLE=LOW). Motors hold position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). Motors freewheel, no holding torque.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}

func interval(speed float64) time.Duration {
	return time.Duration(float64(time.Second) / math.Abs(speed))
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(v, limit))
}

func sign(v int64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
