package geometry

import (
	"errors"
	"fmt"
	"math"
)

// maxFlips bounds the half-revolution flips per direction in Normalize.
// With a travel window of at least half a revolution one flip suffices.
const maxFlips = 8

// ErrNormalizationDiverged is returned when a target cannot be folded into
// the travel window of the first axis.
var ErrNormalizationDiverged = errors.New("target normalization did not converge")

// Normalize folds a raw step target into the reachable range of the mount.
//
// The first axis is reduced modulo one revolution. While it lies outside its
// soft limits it is swung by half a revolution and the second axis is
// mirrored around its half-revolution point, which points at the same sky
// position. The second axis is then reduced modulo one revolution.
func (a Axes) Normalize(p Point) (Point, error) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return Point{}, fmt.Errorf("%w: non-finite target (%g, %g)", ErrNormalizationDiverged, p.X, p.Y)
	}
	if a.X.StepsPerRev <= 0 || a.Y.StepsPerRev <= 0 {
		return Point{}, fmt.Errorf("%w: axes have no steps per revolution", ErrNormalizationDiverged)
	}

	half := a.X.HalfRev()
	mirror := a.Y.HalfRev()

	x := math.Mod(p.X, a.X.StepsPerRev)
	y := p.Y

	for flips := 0; x > a.X.UpperLimit; flips++ {
		if flips == maxFlips {
			return Point{}, fmt.Errorf("%w: x=%g stays above upper limit %g", ErrNormalizationDiverged, x, a.X.UpperLimit)
		}
		x -= half
		y = mirror - y
	}
	for flips := 0; x < a.X.LowerLimit; flips++ {
		if flips == maxFlips {
			return Point{}, fmt.Errorf("%w: x=%g stays below lower limit %g", ErrNormalizationDiverged, x, a.X.LowerLimit)
		}
		x += half
		y = mirror - y
	}
	y = math.Mod(y, a.Y.StepsPerRev)

	return Point{X: x, Y: y}, nil
}

// NormalizeEquatorialDeg folds a raw mount position in degrees into an
// RA-like [0, 360) first axis and a Dec-like [-90, 90] second axis.
func NormalizeEquatorialDeg(p Point) Point {
	x := p.X
	y := math.Mod(p.Y, 360)
	for y > 90 || y < -90 {
		x += 180
		if y > 90 {
			y = 180 - y
		} else {
			y = -y - 180
		}
	}

	x = math.Mod(x, 360)
	for x < 0 {
		x += 360
	}
	return Point{X: x, Y: y}
}
