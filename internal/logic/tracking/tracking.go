// Package tracking keeps the tracking mode and computes auto-track targets
// that compensate for the rotation of the Earth.
package tracking

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/ScopeGo/internal/logic/alignment"
	"github.com/cjeanneret/ScopeGo/internal/logic/coords"
	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
)

// ErrPivotNotSet is returned when altazimuth tracking starts without a pivot.
var ErrPivotNotSet = errors.New("auto-track pivot not set")

// Mode selects the stepping discipline of the mount.
type Mode int

const (
	// Manual runs both axes at their commanded constant speed.
	Manual Mode = iota
	// AutoTracking follows the sky, retargeted periodically.
	AutoTracking
	// MoveTo runs profiled motion to a fixed target.
	MoveTo
)

func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case AutoTracking:
		return "auto-tracking"
	case MoveTo:
		return "move-to"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText encodes the mode name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	for v := Manual; v <= MoveTo; v++ {
		if v.String() == string(b) {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("unknown tracking mode %q", b)
}

// AutoTrack is the reference captured when tracking starts. Positions are in steps.
type AutoTrack struct {
	Pivot       geometry.Point
	StartCoords geometry.Point
	StartTime   float64 // wall-clock seconds
}

// Engine owns the tracking mode and the auto-track reference.
type Engine struct {
	mode     Mode
	track    AutoTrack
	pivotSet bool
}

// Mode returns the current tracking mode.
func (e *Engine) Mode() Mode { return e.mode }

// SetMode switches the tracking mode without touching the auto-track reference.
func (e *Engine) SetMode(m Mode) { e.mode = m }

// SetPivot sets the rotation center used by altazimuth tracking.
func (e *Engine) SetPivot(p geometry.Point) {
	e.track.Pivot = p
	e.pivotSet = true
}

// Pivot returns the pivot and whether one was set.
func (e *Engine) Pivot() (geometry.Point, bool) {
	return e.track.Pivot, e.pivotSet
}

// ClearPivot forgets the pivot.
func (e *Engine) ClearPivot() {
	e.track.Pivot = geometry.Point{}
	e.pivotSet = false
}

// State returns a copy of the auto-track reference.
func (e *Engine) State() AutoTrack { return e.track }

// Start captures the reference position and time and enters AutoTracking.
// Altazimuth tracking needs a pivot; without one nothing changes.
func (e *Engine) Start(kind alignment.Kind, start geometry.Point, now float64) error {
	if kind == alignment.AltAzimuth && !e.pivotSet {
		return ErrPivotNotSet
	}
	e.track.StartCoords = start
	e.track.StartTime = now
	e.mode = AutoTracking
	return nil
}

// Stop returns to Manual.
func (e *Engine) Stop() {
	e.mode = Manual
}

// Target returns the step position that keeps the start point on the same
// sky position at time now. It reports false unless auto-tracking.
//
// Equatorial mounts only advance the first axis; altazimuth mounts rotate
// the start position around the pivot.
func (e *Engine) Target(kind alignment.Kind, now, stepsPerRadX float64) (geometry.Point, bool) {
	if e.mode != AutoTracking {
		return geometry.Point{}, false
	}
	angle := coords.EarthAngle(now - e.track.StartTime)
	if kind == alignment.AltAzimuth {
		return geometry.Rotate(e.track.StartCoords, angle, e.track.Pivot), true
	}
	return geometry.Translate(e.track.StartCoords, geometry.Point{X: angle * stepsPerRadX}), true
}
