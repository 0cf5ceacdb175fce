// Package mount is the control surface of a two-axis telescope mount. It
// turns celestial and manual commands into motor targets and keeps them
// inside the travel window of the axes.
//
// A Mount is not safe for concurrent use; callers serialize access.
package mount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cjeanneret/ScopeGo/internal/clock"
	"github.com/cjeanneret/ScopeGo/internal/config"
	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/alignment"
	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
	"github.com/cjeanneret/ScopeGo/internal/logic/tracking"
)

// Kind is the mount geometry.
type Kind = alignment.Kind

const (
	Equatorial = alignment.Equatorial
	AltAzimuth = alignment.AltAzimuth
)

var (
	// ErrNotAligned is returned by celestial gotos before a two-star alignment.
	ErrNotAligned = errors.New("mount not aligned")
	// ErrPivotNotSet is returned when altazimuth tracking starts without a pivot.
	ErrPivotNotSet = tracking.ErrPivotNotSet
	// ErrModeRegression is returned when the operation mode would go backwards.
	ErrModeRegression = errors.New("operation mode cannot go backwards")
	// ErrUnsupportedMode is returned for the Full goto mode, which needs
	// time and location based pointing.
	ErrUnsupportedMode = errors.New("operation mode not supported")
)

// OperationMode is the setup stage reached by the operator.
type OperationMode int

const (
	Uninitialized OperationMode = iota
	FullGoto
	EasyTrack
	EasyTrackGoto
)

func (m OperationMode) String() string {
	switch m {
	case Uninitialized:
		return "uninitialized"
	case FullGoto:
		return "full-goto"
	case EasyTrack:
		return "easy-track"
	case EasyTrackGoto:
		return "easy-track-goto"
	default:
		return fmt.Sprintf("OperationMode(%d)", int(m))
	}
}

// MarshalText encodes the mode name.
func (m OperationMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts the names understood by ParseOperationMode.
func (m *OperationMode) UnmarshalText(b []byte) error {
	v, err := ParseOperationMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseOperationMode accepts the names returned by String.
func ParseOperationMode(s string) (OperationMode, error) {
	for m := Uninitialized; m <= EasyTrackGoto; m++ {
		if strings.EqualFold(strings.TrimSpace(s), m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown operation mode %q", s)
}

// Recorder observes mount activity, e.g. for metrics.
type Recorder interface {
	MoveIssued(source string)
	AlignmentDone(kind Kind, err error)
	AutoTrackRecomputed()
}

type noopRecorder struct{}

func (noopRecorder) MoveIssued(string)         {}
func (noopRecorder) AlignmentDone(Kind, error) {}
func (noopRecorder) AutoTrackRecomputed()      {}

// Options configures a Mount.
type Options struct {
	Kind         Kind
	MaxSpeed     float64 // steps/s, manual and tracking moves
	Acceleration float64 // steps/s^2
	GotoSpeed    float64 // steps/s cap for celestial gotos, 0 = MaxSpeed
	Recorder     Recorder
}

// OptionsFromConfig builds Options from the mount section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	kind := Equatorial
	if cfg.IsAltAzimuth() {
		kind = AltAzimuth
	}
	return Options{
		Kind:         kind,
		MaxSpeed:     cfg.Mount.MaxSpeed,
		Acceleration: cfg.Mount.MaxAcceleration,
		GotoSpeed:    cfg.Mount.GotoSpeed,
	}
}

// Mount composes the axis geometry, the alignment model, the tracking engine
// and the two axis motors.
type Mount struct {
	x, y Motor
	axes geometry.Axes
	clk  clock.Clock
	opts Options
	rec  Recorder

	kind       Kind
	opMode     OperationMode
	tracker    tracking.Engine
	calib      alignment.Calibration
	lastManual [2]int8
}

// New creates a mount in Manual mode with both motors at the home position.
func New(x, y Motor, axes geometry.Axes, clk clock.Clock, opts Options) *Mount {
	if opts.GotoSpeed <= 0 || opts.GotoSpeed > opts.MaxSpeed {
		opts.GotoSpeed = opts.MaxSpeed
	}
	rec := opts.Recorder
	if rec == nil {
		rec = noopRecorder{}
	}
	m := &Mount{
		x:    x,
		y:    y,
		axes: axes,
		clk:  clk,
		opts: opts,
		rec:  rec,
		kind: opts.Kind,
	}

	home := axes.Home()
	for _, a := range []struct {
		motor Motor
		home  float64
	}{{x, home.X}, {y, home.Y}} {
		a.motor.SetMaxSpeed(opts.MaxSpeed)
		a.motor.SetAcceleration(opts.Acceleration)
		a.motor.SetCurrentPosition(int64(a.home))
	}

	debug.Section("Mount")
	debug.Value("kind", m.kind)
	debug.Value("max speed (steps/s)", opts.MaxSpeed)
	debug.Value("acceleration (steps/s^2)", opts.Acceleration)
	debug.Value("goto speed (steps/s)", opts.GotoSpeed)
	debug.PrintStruct("axes", axes)
	return m
}

// Kind returns the mount geometry.
func (m *Mount) Kind() Kind { return m.kind }

// SetKind changes the mount geometry. A different kind invalidates the
// alignment and the pivot and stops auto-tracking.
func (m *Mount) SetKind(k Kind) error {
	if k != Equatorial && k != AltAzimuth {
		return fmt.Errorf("unknown mount kind %d", int(k))
	}
	if k == m.kind {
		return nil
	}
	if m.tracker.Mode() == tracking.AutoTracking {
		m.StopAutoTrack()
	}
	m.kind = k
	m.calib.Reset()
	m.tracker.ClearPivot()
	debug.Info("Mount kind set to %s, alignment cleared", k)
	return nil
}

// OperationMode returns the setup stage.
func (m *Mount) OperationMode() OperationMode { return m.opMode }

// AdvanceOperationMode moves the setup stage forward. Staying on the same
// mode is allowed; going back is not.
func (m *Mount) AdvanceOperationMode(next OperationMode) error {
	if next < Uninitialized || next > EasyTrackGoto {
		return fmt.Errorf("unknown operation mode %d", int(next))
	}
	if next == FullGoto {
		return ErrUnsupportedMode
	}
	if next < m.opMode {
		return fmt.Errorf("%w: %s -> %s", ErrModeRegression, m.opMode, next)
	}
	m.advance(next)
	return nil
}

func (m *Mount) advance(next OperationMode) {
	if next > m.opMode {
		debug.Info("Operation mode: %s -> %s", m.opMode, next)
		m.opMode = next
	}
}

// TrackingMode returns the stepping discipline in use.
func (m *Mount) TrackingMode() tracking.Mode { return m.tracker.Mode() }

// Axes returns the axis geometry.
func (m *Mount) Axes() geometry.Axes { return m.axes }

// EnableMotors powers both drivers.
func (m *Mount) EnableMotors() error {
	return errors.Join(m.x.Enable(), m.y.Enable())
}

// DisableMotors releases both drivers; the axes can be turned by hand.
func (m *Mount) DisableMotors() error {
	return errors.Join(m.x.Disable(), m.y.Disable())
}

// CurrentSteps returns the motor positions.
func (m *Mount) CurrentSteps() geometry.Point {
	return geometry.Point{X: float64(m.x.CurrentPosition()), Y: float64(m.y.CurrentPosition())}
}

// TargetSteps returns the motor targets.
func (m *Mount) TargetSteps() geometry.Point {
	return geometry.Point{X: float64(m.x.TargetPosition()), Y: float64(m.y.TargetPosition())}
}

// CurrentPositionDeg returns the axis angles in degrees.
func (m *Mount) CurrentPositionDeg() geometry.Point { return m.axes.DegFromSteps(m.CurrentSteps()) }

// CurrentPositionRad returns the axis angles in radians.
func (m *Mount) CurrentPositionRad() geometry.Point { return m.axes.RadFromSteps(m.CurrentSteps()) }

// TargetPositionDeg returns the target axis angles in degrees.
func (m *Mount) TargetPositionDeg() geometry.Point { return m.axes.DegFromSteps(m.TargetSteps()) }

// TargetPositionRad returns the target axis angles in radians.
func (m *Mount) TargetPositionRad() geometry.Point { return m.axes.RadFromSteps(m.TargetSteps()) }

// CurrentPositionEQNormalizedDeg folds the position into RA-like [0, 360)
// and Dec-like [-90, 90] degrees.
func (m *Mount) CurrentPositionEQNormalizedDeg() geometry.Point {
	return geometry.NormalizeEquatorialDeg(m.CurrentPositionDeg())
}

// CurrentPositionEQNormalizedRad is CurrentPositionEQNormalizedDeg in radians.
func (m *Mount) CurrentPositionEQNormalizedRad() geometry.Point {
	return m.CurrentPositionEQNormalizedDeg().Rad()
}

// Status is a read-only snapshot for user interfaces.
type Status struct {
	Kind          Kind            `json:"kind"`
	OperationMode OperationMode   `json:"operation_mode"`
	TrackingMode  tracking.Mode   `json:"tracking_mode"`
	Alignment     alignment.Stage `json:"alignment"`
	Aligned       bool            `json:"aligned"`
	PivotSet      bool            `json:"pivot_set"`
	PositionDeg   geometry.Point  `json:"position_deg"`
	TargetDeg     geometry.Point  `json:"target_deg"`
	PositionSteps [2]int64        `json:"position_steps"`
	TargetSteps   [2]int64        `json:"target_steps"`
}

// Status returns the current state.
func (m *Mount) Status() Status {
	_, _, aligned := m.calib.Model()
	_, pivotSet := m.tracker.Pivot()
	return Status{
		Kind:          m.kind,
		OperationMode: m.opMode,
		TrackingMode:  m.tracker.Mode(),
		Alignment:     m.calib.Stage(),
		Aligned:       aligned,
		PivotSet:      pivotSet,
		PositionDeg:   m.CurrentPositionDeg(),
		TargetDeg:     m.TargetPositionDeg(),
		PositionSteps: [2]int64{m.x.CurrentPosition(), m.y.CurrentPosition()},
		TargetSteps:   [2]int64{m.x.TargetPosition(), m.y.TargetPosition()},
	}
}
