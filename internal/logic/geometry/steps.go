package geometry

import (
	"math"

	"github.com/cjeanneret/ScopeGo/internal/config"
)

// Axis holds the fixed geometry of one mount axis, in motor steps.
// Limits are inclusive soft bounds; they are only applied by Normalize.
type Axis struct {
	StepsPerRev float64
	LowerLimit  float64
	UpperLimit  float64
	Home        float64
}

// NewAxis builds an axis from a step count per revolution and limits in degrees.
// Limits and home are truncated to whole steps.
func NewAxis(stepsPerRev, lowerDeg, upperDeg, homeDeg float64) Axis {
	return Axis{
		StepsPerRev: stepsPerRev,
		LowerLimit:  math.Trunc(stepsPerRev * lowerDeg / 360.0),
		UpperLimit:  math.Trunc(stepsPerRev * upperDeg / 360.0),
		Home:        math.Trunc(stepsPerRev * homeDeg / 360.0),
	}
}

// StepsPerRad returns the number of motor steps per radian.
func (a Axis) StepsPerRad() float64 {
	return a.StepsPerRev / (2 * math.Pi)
}

// HalfRev returns the number of steps in half a revolution.
func (a Axis) HalfRev() float64 {
	return a.StepsPerRev / 2
}

// ToSteps converts an angle in radians to the nearest whole step.
func (a Axis) ToSteps(rad float64) int64 {
	return int64(math.Round(rad * a.StepsPerRad()))
}

// ToAngleRad converts a step position to radians.
func (a Axis) ToAngleRad(steps float64) float64 {
	return steps / a.StepsPerRad()
}

// ToAngleDeg converts a step position to degrees.
func (a Axis) ToAngleDeg(steps float64) float64 {
	return steps * 360.0 / a.StepsPerRev
}

// Contains reports whether steps lies inside the soft limits.
func (a Axis) Contains(steps float64) bool {
	return steps >= a.LowerLimit && steps <= a.UpperLimit
}

// Axes groups the two mount axes: X is the RA/azimuth axis, Y the Dec/altitude axis.
type Axes struct {
	X Axis
	Y Axis
}

// NewAxes creates the axis geometry from configuration.
func NewAxes(cfg *config.Config) Axes {
	return Axes{
		X: NewAxis(cfg.XAxis.StepsPerRev(), cfg.XAxis.LowerLimitDeg, cfg.XAxis.UpperLimitDeg, cfg.XAxis.HomeDeg),
		Y: NewAxis(cfg.YAxis.StepsPerRev(), cfg.YAxis.LowerLimitDeg, cfg.YAxis.UpperLimitDeg, cfg.YAxis.HomeDeg),
	}
}

// Home returns the home position of both axes in steps.
func (a Axes) Home() Point {
	return Point{X: a.X.Home, Y: a.Y.Home}
}

// StepsFromRad converts a per-axis angle in radians to fractional steps.
func (a Axes) StepsFromRad(p Point) Point {
	return Point{X: p.X * a.X.StepsPerRad(), Y: p.Y * a.Y.StepsPerRad()}
}

// RadFromSteps converts a per-axis step position to radians.
func (a Axes) RadFromSteps(p Point) Point {
	return Point{X: a.X.ToAngleRad(p.X), Y: a.Y.ToAngleRad(p.Y)}
}

// DegFromSteps converts a per-axis step position to degrees.
func (a Axes) DegFromSteps(p Point) Point {
	return Point{X: a.X.ToAngleDeg(p.X), Y: a.Y.ToAngleDeg(p.Y)}
}
