// Package coords holds equatorial coordinate types and their string forms.
package coords

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
)

// EarthAngularSpeed is the sidereal rotation rate of the Earth in rad/s.
const EarthAngularSpeed = 7.292115e-5

// ErrInvalidFormat is returned when a coordinate string cannot be parsed.
var ErrInvalidFormat = errors.New("invalid coordinate format")

// EarthAngle returns the sky rotation, in the mount frame, after elapsed seconds.
// Positive elapsed time gives a negative (westward) angle.
func EarthAngle(elapsed float64) float64 {
	return -EarthAngularSpeed * elapsed
}

// RA is a right ascension in hours, minutes and seconds of time.
type RA struct {
	H, M, S float64
}

// Deg returns the right ascension in degrees (15° per hour).
func (r RA) Deg() float64 {
	return r.H*15 + r.M*15/60 + r.S*15/3600
}

// Rad returns the right ascension in radians.
func (r RA) Rad() float64 {
	return r.Deg() * math.Pi / 180
}

func (r RA) String() string {
	return fmt.Sprintf("%dh%02dm%05.2fs", int(r.H), int(r.M), r.S)
}

// Dec is a declination in degrees, arcminutes and arcseconds. D, M and S are
// magnitudes; Sign carries the hemisphere so that -0°30' is representable.
type Dec struct {
	Sign    int // +1 or -1
	D, M, S float64
}

// Deg returns the declination in degrees.
func (d Dec) Deg() float64 {
	v := d.D + d.M/60 + d.S/3600
	if d.Sign < 0 {
		return -v
	}
	return v
}

// Rad returns the declination in radians.
func (d Dec) Rad() float64 {
	return d.Deg() * math.Pi / 180
}

func (d Dec) String() string {
	sign := '+'
	if d.Sign < 0 {
		sign = '-'
	}
	return fmt.Sprintf("%c%d°%02d'%05.2f\"", sign, int(d.D), int(d.M), d.S)
}

// ParseRA parses "hh:mm:ss.ss".
func ParseRA(s string) (RA, error) {
	parts, err := split(s, ":", "hh:mm:ss.ss")
	if err != nil {
		return RA{}, err
	}
	var v [3]float64
	for i, p := range parts {
		if v[i], err = parseField(p, s); err != nil {
			return RA{}, err
		}
		if v[i] < 0 {
			return RA{}, fmt.Errorf("%w: %q: negative field", ErrInvalidFormat, s)
		}
	}
	if v[0] >= 24 || v[1] >= 60 || v[2] >= 60 {
		return RA{}, fmt.Errorf("%w: %q: out of range", ErrInvalidFormat, s)
	}
	return RA{H: v[0], M: v[1], S: v[2]}, nil
}

// ParseDec parses "ddd,mm,ss.ss". A leading '-' or '+' on the degree field
// applies to the whole declination.
func ParseDec(s string) (Dec, error) {
	parts, err := split(s, ",", "ddd,mm,ss.ss")
	if err != nil {
		return Dec{}, err
	}
	dec := Dec{Sign: 1}
	switch {
	case strings.HasPrefix(parts[0], "-"):
		dec.Sign = -1
		parts[0] = parts[0][1:]
	case strings.HasPrefix(parts[0], "+"):
		parts[0] = parts[0][1:]
	}
	var v [3]float64
	for i, p := range parts {
		if v[i], err = parseField(p, s); err != nil {
			return Dec{}, err
		}
		if v[i] < 0 {
			return Dec{}, fmt.Errorf("%w: %q: misplaced sign", ErrInvalidFormat, s)
		}
	}
	if v[1] >= 60 || v[2] >= 60 {
		return Dec{}, fmt.Errorf("%w: %q: out of range", ErrInvalidFormat, s)
	}
	dec.D, dec.M, dec.S = v[0], v[1], v[2]
	if dec.Deg() > 90 || dec.Deg() < -90 {
		return Dec{}, fmt.Errorf("%w: %q: beyond a pole", ErrInvalidFormat, s)
	}
	return dec, nil
}

func split(s, sep, layout string) ([]string, error) {
	parts := strings.Split(strings.TrimSpace(s), sep)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q: must be %s", ErrInvalidFormat, s, layout)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

func parseField(field, whole string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q: bad field %q", ErrInvalidFormat, whole, field)
	}
	return v, nil
}

// DegToRA converts degrees to hours, minutes and seconds. The input is
// wrapped into [0, 360).
func DegToRA(deg float64) RA {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	h := math.Floor(deg / 15)
	deg = math.Mod(deg, 15)
	m := math.Floor(deg / (15.0 / 60))
	deg = math.Mod(deg, 15.0/60)
	return RA{H: h, M: m, S: deg / (15.0 / 3600)}
}

// DegToDec converts degrees to a signed degrees, arcminutes, arcseconds triple.
func DegToDec(deg float64) Dec {
	dec := Dec{Sign: 1}
	if deg < 0 {
		dec.Sign = -1
		deg = -deg
	}
	dec.D = math.Floor(deg)
	deg -= dec.D
	dec.M = math.Floor(deg * 60)
	dec.S = (deg - dec.M/60) * 3600
	return dec
}

// Coordinate is a celestial position in radians.
type Coordinate struct {
	RA  float64
	Dec float64
}

// NewCoordinate builds a coordinate from its sexagesimal parts.
func NewCoordinate(ra RA, dec Dec) Coordinate {
	return Coordinate{RA: ra.Rad(), Dec: dec.Rad()}
}

// Parse builds a coordinate from "hh:mm:ss.ss" and "ddd,mm,ss.ss" strings.
func Parse(ra, dec string) (Coordinate, error) {
	r, err := ParseRA(ra)
	if err != nil {
		return Coordinate{}, err
	}
	d, err := ParseDec(dec)
	if err != nil {
		return Coordinate{}, err
	}
	return NewCoordinate(r, d), nil
}

// Point returns the coordinate as a plane point (RA on X, Dec on Y).
func (c Coordinate) Point() geometry.Point {
	return geometry.Point{X: c.RA, Y: c.Dec}
}

// FromPoint is the inverse of Point.
func FromPoint(p geometry.Point) Coordinate {
	return Coordinate{RA: p.X, Dec: p.Y}
}

func (c Coordinate) String() string {
	return DegToRA(c.RA*180/math.Pi).String() + " " + DegToDec(c.Dec*180/math.Pi).String()
}
