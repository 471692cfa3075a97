package world

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// raySphere returns the distance along dir (unit) at which a ray from origin
// first touches the sphere, 0 when origin starts inside it.
func raySphere(origin, dir r3.Vec, maxDist float64, center r3.Vec, radius float64) (float64, bool) {
	m := r3.Sub(origin, center)
	b := r3.Dot(m, dir)
	c := r3.Dot(m, m) - radius*radius
	if c <= 0 {
		return 0, true
	}
	if b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t > maxDist {
		return 0, false
	}
	return t, true
}

// rayBox is the slab test against an axis-aligned box. It returns the entry
// distance and the normal of the face entered.
func rayBox(origin, dir r3.Vec, maxDist float64, lo, hi r3.Vec) (float64, r3.Vec, bool) {
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	mn := [3]float64{lo.X, lo.Y, lo.Z}
	mx := [3]float64{hi.X, hi.Y, hi.Z}

	tmin, tmax := 0.0, maxDist
	axis, sign := -1, 0.0
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if o[i] < mn[i] || o[i] > mx[i] {
				return 0, r3.Vec{}, false
			}
			continue
		}
		inv := 1 / d[i]
		t1, t2 := (mn[i]-o[i])*inv, (mx[i]-o[i])*inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin, axis, sign = t1, i, s
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, r3.Vec{}, false
		}
	}
	var n r3.Vec
	switch axis {
	case 0:
		n.X = sign
	case 1:
		n.Y = sign
	case 2:
		n.Z = sign
	default:
		// started inside: report the face opposite the direction of travel
		n = r3.Scale(-1, dir)
	}
	return tmin, n, true
}

// inflate grows a box by r on every side, turning a sphere sweep into a ray
// test. Corners come out square, which is close enough for hit confirmation.
func inflate(lo, hi r3.Vec, r float64) (r3.Vec, r3.Vec) {
	g := r3.Vec{X: r, Y: r, Z: r}
	return r3.Sub(lo, g), r3.Add(hi, g)
}
