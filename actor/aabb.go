package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoundsEpsilon is the margin added around every swept body bounds
const BoundsEpsilon = 0.01

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any ExpandByPoint call will reset
func EmptyAABB() AABB {
	return AABB{
		Min: mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// ExpandByPoint grows the box so it contains point
func (a AABB) ExpandByPoint(point mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		a.Min[i] = math.Min(a.Min[i], point[i])
		a.Max[i] = math.Max(a.Max[i], point[i])
	}

	return a
}

// Merge returns the smallest box containing both a and other
func (a AABB) Merge(other AABB) AABB {
	return a.ExpandByPoint(other.Min).ExpandByPoint(other.Max)
}

// Expand grows the box by margin on every side
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}

	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Translate moves the box by offset
func (a AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(offset), Max: a.Max.Add(offset)}
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Size() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// transformAABB returns the world bounds of the given local points
func transformAABB(points []mgl64.Vec3, transform Transform) AABB {
	bounds := EmptyAABB()
	for _, p := range points {
		bounds = bounds.ExpandByPoint(transform.Apply(p))
	}

	return bounds
}
