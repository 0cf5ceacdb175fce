package mount

import (
	"fmt"
	"math"

	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/coords"
	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
	"github.com/cjeanneret/ScopeGo/internal/logic/tracking"
)

// Move sources, reported to the Recorder and the log.
const (
	SourceDirect = "direct"
	SourceRADec  = "radec"
	SourceTrack  = "track"
	SourceStop   = "stop"
	SourceHome   = "home"
)

// SafeMoveTo sends both axes to a step target folded into the travel window.
// speed caps the motion in steps/s; zero or less means the configured maximum.
// When the target cannot be normalized the motors are left untouched.
func (m *Mount) SafeMoveTo(target geometry.Point, speed float64) error {
	return m.safeMoveTo(target, speed, SourceDirect)
}

// SafeMoveToRad is SafeMoveTo with a target in radians per axis.
func (m *Mount) SafeMoveToRad(target geometry.Point, speed float64) error {
	return m.safeMoveTo(m.radToSteps(target), speed, SourceDirect)
}

// SafeMoveToDeg is SafeMoveTo with a target in degrees per axis.
func (m *Mount) SafeMoveToDeg(target geometry.Point, speed float64) error {
	return m.safeMoveTo(m.radToSteps(target.Rad()), speed, SourceDirect)
}

// SafeMoveToRADec points at a celestial coordinate through the alignment
// model, corrected for the sky rotation since the alignment.
func (m *Mount) SafeMoveToRADec(c coords.Coordinate, speed float64) error {
	model, ts, ok := m.calib.Model()
	if !ok {
		return ErrNotAligned
	}
	now, err := m.clk.NowSeconds()
	if err != nil {
		return fmt.Errorf("goto %s: %w", c, err)
	}
	earth := coords.EarthAngle(now - ts)
	mountRad := model.CelestialToMount(c.Point(), earth)
	if debug.IsEnabled(debug.LevelVerbose) {
		debug.Verbose("RA/Dec %s -> mount (%.6f, %.6f) rad, earth angle %.6f rad", c, mountRad.X, mountRad.Y, earth)
	}
	return m.safeMoveTo(m.radToSteps(mountRad), speed, SourceRADec)
}

// Goto switches to MoveTo and points at c at the goto speed. The tracking
// mode only changes when the move is issued.
func (m *Mount) Goto(c coords.Coordinate) error {
	if err := m.SafeMoveToRADec(c, m.opts.GotoSpeed); err != nil {
		return err
	}
	m.tracker.SetMode(tracking.MoveTo)
	return nil
}

// GotoDeg switches to MoveTo and sends the axes to p, in degrees.
func (m *Mount) GotoDeg(p geometry.Point, speed float64) error {
	if err := m.SafeMoveToDeg(p, speed); err != nil {
		return err
	}
	m.tracker.SetMode(tracking.MoveTo)
	return nil
}

// Home sends the first axis to 0° and keeps the second axis where it is.
func (m *Mount) Home() error {
	return m.moveFirstAxisDeg(0, SourceHome)
}

// PoleCheck swings the first axis to -180° so the polar alignment can be
// checked on the other side of the meridian.
func (m *Mount) PoleCheck() error {
	return m.moveFirstAxisDeg(-180, SourceHome)
}

func (m *Mount) moveFirstAxisDeg(deg float64, source string) error {
	cur := m.CurrentSteps()
	target := geometry.Point{X: float64(m.axes.X.ToSteps(deg * math.Pi / 180)), Y: cur.Y}
	if err := m.safeMoveTo(target, m.opts.MaxSpeed, source); err != nil {
		return err
	}
	m.tracker.SetMode(tracking.MoveTo)
	return nil
}

// StopMotion halts every motion: tracking stops, manual speed drops to zero
// and both targets are pinned to the current position.
func (m *Mount) StopMotion() error {
	m.tracker.Stop()
	m.x.SetSpeed(0)
	m.y.SetSpeed(0)
	m.lastManual = [2]int8{}
	return m.safeMoveTo(m.CurrentSteps(), m.opts.MaxSpeed, SourceStop)
}

func (m *Mount) radToSteps(p geometry.Point) geometry.Point {
	return geometry.Point{X: float64(m.axes.X.ToSteps(p.X)), Y: float64(m.axes.Y.ToSteps(p.Y))}
}

// safeMoveTo pins both motors to their current position before retargeting,
// so an axis that is still moving never runs toward a stale target with the
// new speed.
func (m *Mount) safeMoveTo(target geometry.Point, speed float64, source string) error {
	target = geometry.Point{X: math.Round(target.X), Y: math.Round(target.Y)}
	norm, err := m.axes.Normalize(target)
	if err != nil {
		return err
	}
	if speed <= 0 {
		speed = m.opts.MaxSpeed
	}
	x, y := int64(math.Round(norm.X)), int64(math.Round(norm.Y))

	m.x.MoveTo(m.x.CurrentPosition())
	m.y.MoveTo(m.y.CurrentPosition())

	debug.Move("x", m.x.CurrentPosition(), x)
	m.x.SetMaxSpeed(speed)
	m.x.MoveTo(x)

	debug.Move("y", m.y.CurrentPosition(), y)
	m.y.SetMaxSpeed(speed)
	m.y.MoveTo(y)

	if source == SourceTrack {
		debug.Live("track target (%d, %d)", x, y)
	} else {
		debug.Goto(source, x, y)
	}
	m.rec.MoveIssued(source)
	return nil
}
