package geom

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTurnTowardShortestArc(t *testing.T) {
	tests := []struct {
		name            string
		cur, want, step float64
		expect          float64
	}{
		{"within step", 0, 0.1, 0.5, 0.1},
		{"clamped positive", 0, 1, 0.25, 0.25},
		{"clamped negative", 0, -1, 0.25, -0.25},
		{"wraps across pi", 3, -3, 0.1, 3.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TurnToward(tt.cur, tt.want, tt.step)
			if !near(got, NormalizeAngle(tt.expect)) {
				t.Fatalf("TurnToward(%v,%v,%v) = %v, want %v", tt.cur, tt.want, tt.step, got, tt.expect)
			}
		})
	}
}

func TestYawForwardRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 0.5, -2, math.Pi / 2} {
		if got := Yaw(Forward(yaw)); !near(got, yaw) {
			t.Fatalf("Yaw(Forward(%v)) = %v", yaw, got)
		}
	}
}

func TestRandomInDiskStaysInside(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := r3.Vec{X: 10, Y: 2, Z: -4}
	for i := 0; i < 1000; i++ {
		p := RandomInDisk(rng, c, 3)
		if PlanarDistance(p, c) > 3+1e-9 || p.Y != 2 {
			t.Fatalf("point %v outside disk", p)
		}
	}
}

func TestDirectionDegenerate(t *testing.T) {
	d, n := Direction(r3.Vec{X: 1}, r3.Vec{X: 1})
	if n != 0 || d != (r3.Vec{}) {
		t.Fatalf("Direction of coincident points = %v, %v", d, n)
	}
	d, n = Direction(r3.Vec{}, r3.Vec{X: 3, Z: 4})
	if !near(n, 5) || !near(d.X, 0.6) || !near(d.Z, 0.8) {
		t.Fatalf("Direction = %v, %v", d, n)
	}
}
