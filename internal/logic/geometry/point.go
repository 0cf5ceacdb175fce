package geometry

import "math"

// Point is a pair of per-axis values. Depending on context it holds motor
// steps, radians or degrees for the first (X) and second (Y) mount axis.
type Point struct {
	X float64
	Y float64
}

// Deg converts a point expressed in radians to degrees.
func (p Point) Deg() Point {
	return Point{X: p.X * 180.0 / math.Pi, Y: p.Y * 180.0 / math.Pi}
}

// Rad converts a point expressed in degrees to radians.
func (p Point) Rad() Point {
	return Point{X: p.X * math.Pi / 180.0, Y: p.Y * math.Pi / 180.0}
}

// Rotate rotates p by angle (radians, counter-clockwise) around pivot.
func Rotate(p Point, angle float64, pivot Point) Point {
	sin, cos := math.Sincos(angle)
	dx := p.X - pivot.X
	dy := p.Y - pivot.Y
	return Point{
		X: dx*cos - dy*sin + pivot.X,
		Y: dx*sin + dy*cos + pivot.Y,
	}
}

// Translate shifts p by delta.
func Translate(p, delta Point) Point {
	return Point{X: p.X + delta.X, Y: p.Y + delta.Y}
}

// LineFrom2Points returns slope and intercept of the line through p1 and p2.
// A vertical line yields an infinite slope.
func LineFrom2Points(p1, p2 Point) (slope, intercept float64) {
	slope = (p1.Y - p2.Y) / (p1.X - p2.X)
	intercept = p1.Y - slope*p1.X
	return slope, intercept
}

// AngleFrom2Lines returns the angle between two lines given by their slopes.
// Formula: atan((a2 - a1) / (1 + a1*a2))
func AngleFrom2Lines(a1, a2 float64) float64 {
	return math.Atan((a2 - a1) / (1 + a1*a2))
}

// DeltaFrom2Points returns the offset that maps p1, rotated by angle around
// the origin, onto p2: p2 - R(angle)*p1.
func DeltaFrom2Points(p1, p2 Point, angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{
		X: p2.X - p1.X*cos + p1.Y*sin,
		Y: p2.Y - p1.X*sin - p1.Y*cos,
	}
}

// Mean returns the component-wise average of a and b.
func Mean(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
