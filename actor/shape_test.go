package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func cubePoints(h float64) []mgl64.Vec3 {
	var points []mgl64.Vec3
	for _, x := range []float64{-h, h} {
		for _, y := range []float64{-h, h} {
			for _, z := range []float64{-h, h} {
				points = append(points, mgl64.Vec3{x, y, z})
			}
		}
	}

	return points
}

func vec3ApproxEqual(a, b mgl64.Vec3, tolerance float64) bool {
	return a.Sub(b).Len() < tolerance
}

func mat3ApproxEqual(a, b mgl64.Mat3, epsilon float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}

	return true
}

// =============================================================================
// Sphere Tests
// =============================================================================

func TestSphere_Support(t *testing.T) {
	sphere := &Sphere{Radius: 2}

	tests := []struct {
		name      string
		direction mgl64.Vec3
		bias      float64
		want      mgl64.Vec3
	}{
		{"along X", mgl64.Vec3{1, 0, 0}, 0, mgl64.Vec3{2, 0, 0}},
		{"unnormalized direction", mgl64.Vec3{0, -5, 0}, 0, mgl64.Vec3{0, -2, 0}},
		{"with bias", mgl64.Vec3{0, 0, 1}, 0.5, mgl64.Vec3{0, 0, 2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sphere.Support(tt.direction, tt.bias)
			if !vec3ApproxEqual(got, tt.want, 1e-9) {
				t.Errorf("Support(%v) = %v, want %v", tt.direction, got, tt.want)
			}
		})
	}
}

func TestSphere_InertiaAndBounds(t *testing.T) {
	sphere := &Sphere{Radius: 1}

	want := mgl64.Diag3(mgl64.Vec3{0.4, 0.4, 0.4})
	if !mat3ApproxEqual(sphere.InertiaTensor(), want, 1e-12) {
		t.Errorf("Expected inertia %v, got %v", want, sphere.InertiaTensor())
	}

	bounds := sphere.Bounds(NewTransformAt(mgl64.Vec3{5, 0, 0}))
	if bounds.Min != (mgl64.Vec3{4, -1, -1}) || bounds.Max != (mgl64.Vec3{6, 1, 1}) {
		t.Errorf("Expected bounds [4,-1,-1]-[6,1,1], got %v", bounds)
	}

	if s := sphere.FastestLinearSpeed(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{1, 0, 0}); s != 0 {
		t.Errorf("Expected a spinning sphere to have no rotational speed, got %v", s)
	}
}

// =============================================================================
// Box Tests
// =============================================================================

func TestBox_Support(t *testing.T) {
	box := NewBox(mgl64.Vec3{1, 2, 3})

	got := box.Support(mgl64.Vec3{1, -1, 1}, 0)
	if !vec3ApproxEqual(got, mgl64.Vec3{1, -2, 3}, 1e-9) {
		t.Errorf("Expected corner (1,-2,3), got %v", got)
	}
}

func TestBox_Inertia(t *testing.T) {
	box := NewBox(mgl64.Vec3{1, 0.5, 2})

	// dimensions 2 x 1 x 4
	want := mgl64.Diag3(mgl64.Vec3{(1 + 16) / 12.0, (4 + 16) / 12.0, (4 + 1) / 12.0})
	if !mat3ApproxEqual(box.InertiaTensor(), want, 1e-12) {
		t.Errorf("Expected inertia %v, got %v", want, box.InertiaTensor())
	}
}

func TestBox_FromPoints(t *testing.T) {
	box := NewBoxFromPoints([]mgl64.Vec3{{1, 0, 0}, {3, 1, 4}, {2, 0.5, 1}})

	if box.CenterOfMass() != (mgl64.Vec3{2, 0.5, 2}) {
		t.Errorf("Expected center of mass (2,0.5,2), got %v", box.CenterOfMass())
	}
	if box.HalfExtents != (mgl64.Vec3{1, 0.5, 2}) {
		t.Errorf("Expected half extents (1,0.5,2), got %v", box.HalfExtents)
	}
}

func TestBox_RotatedBounds(t *testing.T) {
	box := NewBox(mgl64.Vec3{1, 1, 1})
	transform := Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1}),
	}

	bounds := box.Bounds(transform)
	if math.Abs(bounds.Max.X()-math.Sqrt2) > 1e-9 {
		t.Errorf("Expected rotated half width sqrt(2), got %v", bounds.Max.X())
	}
	if math.Abs(bounds.Max.Z()-1) > 1e-9 {
		t.Errorf("Expected unchanged Z extent 1, got %v", bounds.Max.Z())
	}
}

func TestBox_FastestLinearSpeed(t *testing.T) {
	box := NewBox(mgl64.Vec3{1, 1, 1})

	// Corners are sqrt(2) away from the Z axis, the fastest moves along Y at |ω|*1
	speed := box.FastestLinearSpeed(mgl64.Vec3{0, 0, 2}, mgl64.Vec3{0, 1, 0})
	if math.Abs(speed-2) > 1e-9 {
		t.Errorf("Expected speed 2, got %v", speed)
	}
}

func TestShapeType_String(t *testing.T) {
	if ShapeTypeConvex.String() != "convex" {
		t.Errorf("Expected convex, got %s", ShapeTypeConvex.String())
	}
	if ShapeType(42).String() != "unknown" {
		t.Errorf("Expected unknown, got %s", ShapeType(42).String())
	}
}
