// Package alignment maps celestial coordinates to mount axis angles using a
// two-star calibration.
package alignment

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
)

// Kind is the mount geometry.
type Kind int

const (
	Equatorial Kind = iota
	AltAzimuth
)

func (k Kind) String() string {
	switch k {
	case Equatorial:
		return "eq"
	case AltAzimuth:
		return "az"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind as "eq" or "az".
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts the names understood by ParseKind.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind accepts "eq" or "az" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eq", "equatorial":
		return Equatorial, nil
	case "az", "altaz", "altazimuth":
		return AltAzimuth, nil
	default:
		return 0, fmt.Errorf("unknown mount kind %q", s)
	}
}

// ErrDegenerateObservations is returned when two observations cannot define
// an alignment, for instance when both stars share a right ascension.
var ErrDegenerateObservations = errors.New("degenerate alignment observations")

// Observation pairs a catalog position with the mount position measured
// while the star was centered. Both are in radians.
type Observation struct {
	Celestial geometry.Point
	Mount     geometry.Point
}

// Model transforms between the celestial frame and the mount frame.
// earthAngle is the sky rotation since the alignment, see coords.EarthAngle.
type Model interface {
	Kind() Kind
	CelestialToMount(c geometry.Point, earthAngle float64) geometry.Point
	MountToCelestial(m geometry.Point, earthAngle float64) geometry.Point
	// SkyPivot returns the mount-frame position of the celestial pole, if the
	// model defines one.
	SkyPivot() (geometry.Point, bool)
}

// EquatorialModel assumes the mount axes are parallel to the sky axes; only a
// constant offset separates the two frames.
type EquatorialModel struct {
	Offset geometry.Point
}

// NewEquatorial averages the per-star offsets of two observations.
func NewEquatorial(first, second Observation) (EquatorialModel, error) {
	d1 := geometry.DeltaFrom2Points(first.Celestial, first.Mount, 0)
	d2 := geometry.DeltaFrom2Points(second.Celestial, second.Mount, 0)
	offset := geometry.Mean(d1, d2)
	if !finite(offset.X, offset.Y) {
		return EquatorialModel{}, fmt.Errorf("%w: offset %+v", ErrDegenerateObservations, offset)
	}
	return EquatorialModel{Offset: offset}, nil
}

func (EquatorialModel) Kind() Kind { return Equatorial }

// CelestialToMount applies the offset, then advances the first axis by earthAngle.
func (m EquatorialModel) CelestialToMount(c geometry.Point, earthAngle float64) geometry.Point {
	p := geometry.Translate(c, m.Offset)
	return geometry.Translate(p, geometry.Point{X: earthAngle})
}

func (m EquatorialModel) MountToCelestial(p geometry.Point, earthAngle float64) geometry.Point {
	p = geometry.Translate(p, geometry.Point{X: -earthAngle})
	return geometry.Translate(p, geometry.Point{X: -m.Offset.X, Y: -m.Offset.Y})
}

// SkyPivot is undefined for equatorial mounts: the pole is the axis home.
func (EquatorialModel) SkyPivot() (geometry.Point, bool) { return geometry.Point{}, false }

// AltAzimuthModel relates the frames by a rotation and an offset. Tracking
// rotates around the derived sky pivot.
type AltAzimuthModel struct {
	Angle  float64
	Offset geometry.Point
	Pivot  geometry.Point
}

// celestialPole is the celestial pole expressed as (RA, Dec).
var celestialPole = geometry.Point{X: 0, Y: math.Pi / 2}

// NewAltAzimuth derives the frame rotation from the angle between the line
// through the two catalog positions and the line through the two measured
// positions, then the offset from the first observation.
func NewAltAzimuth(first, second Observation) (AltAzimuthModel, error) {
	skySlope, _ := geometry.LineFrom2Points(first.Celestial, second.Celestial)
	mountSlope, _ := geometry.LineFrom2Points(first.Mount, second.Mount)
	angle := geometry.AngleFrom2Lines(skySlope, mountSlope)
	if !finite(angle) {
		return AltAzimuthModel{}, fmt.Errorf("%w: slopes %g and %g", ErrDegenerateObservations, skySlope, mountSlope)
	}

	offset := geometry.DeltaFrom2Points(first.Celestial, first.Mount, angle)
	pivot := geometry.Translate(geometry.Rotate(celestialPole, angle, geometry.Point{}), offset)
	if !finite(offset.X, offset.Y) {
		return AltAzimuthModel{}, fmt.Errorf("%w: offset %+v", ErrDegenerateObservations, offset)
	}
	return AltAzimuthModel{Angle: angle, Offset: offset, Pivot: pivot}, nil
}

func (AltAzimuthModel) Kind() Kind { return AltAzimuth }

// CelestialToMount rotates and shifts c into the mount frame, then rotates it
// around the sky pivot by earthAngle.
func (m AltAzimuthModel) CelestialToMount(c geometry.Point, earthAngle float64) geometry.Point {
	p := geometry.Translate(geometry.Rotate(c, m.Angle, geometry.Point{}), m.Offset)
	return geometry.Rotate(p, earthAngle, m.Pivot)
}

func (m AltAzimuthModel) MountToCelestial(p geometry.Point, earthAngle float64) geometry.Point {
	p = geometry.Rotate(p, -earthAngle, m.Pivot)
	p = geometry.Translate(p, geometry.Point{X: -m.Offset.X, Y: -m.Offset.Y})
	return geometry.Rotate(p, -m.Angle, geometry.Point{})
}

func (m AltAzimuthModel) SkyPivot() (geometry.Point, bool) { return m.Pivot, true }

// Build constructs the model of the given kind from two observations.
func Build(kind Kind, first, second Observation) (Model, error) {
	var (
		m   Model
		err error
	)
	switch kind {
	case Equatorial:
		m, err = NewEquatorial(first, second)
	case AltAzimuth:
		m, err = NewAltAzimuth(first, second)
	default:
		return nil, fmt.Errorf("unknown mount kind %v", kind)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
