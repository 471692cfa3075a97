// Package geom holds the small amount of vector math the simulation needs on
// top of gonum's r3. The world is Y-up; yaw is measured in radians around +Y
// with yaw 0 facing +Z.
package geom

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

var Up = r3.Vec{Y: 1}

// Distance is the Euclidean distance between a and b.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Flat drops the vertical component.
func Flat(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}

// PlanarDistance ignores height differences.
func PlanarDistance(a, b r3.Vec) float64 {
	return r3.Norm(Flat(r3.Sub(a, b)))
}

// Direction returns the unit vector from a to b and the distance between
// them. A zero-length direction is returned when the points coincide.
func Direction(a, b r3.Vec) (r3.Vec, float64) {
	d := r3.Sub(b, a)
	n := r3.Norm(d)
	if n == 0 {
		return r3.Vec{}, 0
	}
	return r3.Scale(1/n, d), n
}

// Yaw returns the heading of dir on the horizontal plane.
func Yaw(dir r3.Vec) float64 {
	return math.Atan2(dir.X, dir.Z)
}

// Forward is the horizontal unit vector for a heading.
func Forward(yaw float64) r3.Vec {
	return r3.Vec{X: math.Sin(yaw), Z: math.Cos(yaw)}
}

// NormalizeAngle wraps a into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// TurnToward rotates current toward desired along the shortest arc, by at
// most maxStep radians.
func TurnToward(current, desired, maxStep float64) float64 {
	delta := NormalizeAngle(desired - current)
	if math.Abs(delta) <= maxStep {
		return NormalizeAngle(desired)
	}
	if delta < 0 {
		maxStep = -maxStep
	}
	return NormalizeAngle(current + maxStep)
}

// RandomInDisk returns a uniformly distributed point in the horizontal disk
// of radius r around center. Height is kept.
func RandomInDisk(rng *rand.Rand, center r3.Vec, r float64) r3.Vec {
	rad := r * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	return r3.Vec{
		X: center.X + rad*math.Cos(theta),
		Y: center.Y,
		Z: center.Z + rad*math.Sin(theta),
	}
}
