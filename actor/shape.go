package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypeConvex
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeSphere:
		return "sphere"
	case ShapeTypeBox:
		return "box"
	case ShapeTypeConvex:
		return "convex"
	default:
		return "unknown"
	}
}

// ShapeInterface is implemented by the closed set of collision shapes: Sphere, Box and Convex.
// Every query works in the shape local space, where the body origin is at (0,0,0).
type ShapeInterface interface {
	Type() ShapeType
	// Support returns the farthest point along direction, pushed outward by bias
	Support(direction mgl64.Vec3, bias float64) mgl64.Vec3
	LocalBounds() AABB
	// Bounds returns the world space AABB of the shape at the given transform
	Bounds(transform Transform) AABB
	CenterOfMass() mgl64.Vec3
	// InertiaTensor is given for a unit mass, about the center of mass
	InertiaTensor() mgl64.Mat3
	// FastestLinearSpeed is the highest speed along direction of any point of the shape
	// rotating at angularVelocity around its center of mass
	FastestLinearSpeed(angularVelocity, direction mgl64.Vec3) float64
}

// Sphere is centered on the body origin
type Sphere struct {
	Radius float64
}

func (s *Sphere) Type() ShapeType {
	return ShapeTypeSphere
}

func (s *Sphere) Support(direction mgl64.Vec3, bias float64) mgl64.Vec3 {
	return safeNormalize(direction).Mul(s.Radius + bias)
}

func (s *Sphere) LocalBounds() AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return AABB{Min: r.Mul(-1), Max: r}
}

func (s *Sphere) Bounds(transform Transform) AABB {
	return s.LocalBounds().Translate(transform.Position)
}

func (s *Sphere) CenterOfMass() mgl64.Vec3 {
	return mgl64.Vec3{}
}

func (s *Sphere) InertiaTensor() mgl64.Mat3 {
	i := 2.0 * s.Radius * s.Radius / 5.0

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

// FastestLinearSpeed is zero: a spinning sphere never gets closer along any axis
func (s *Sphere) FastestLinearSpeed(angularVelocity, direction mgl64.Vec3) float64 {
	return 0
}

// Box is an oriented box. Its corners are kept to answer support and speed queries.
type Box struct {
	HalfExtents mgl64.Vec3
	center      mgl64.Vec3
	points      [8]mgl64.Vec3
	bounds      AABB
}

// NewBox creates a box centered on the body origin
func NewBox(halfExtents mgl64.Vec3) *Box {
	return NewBoxFromBounds(AABB{Min: halfExtents.Mul(-1), Max: halfExtents})
}

// NewBoxFromPoints creates the smallest box containing every point
func NewBoxFromPoints(points []mgl64.Vec3) *Box {
	bounds := EmptyAABB()
	for _, p := range points {
		bounds = bounds.ExpandByPoint(p)
	}
	if len(points) == 0 {
		bounds = AABB{}
	}

	return NewBoxFromBounds(bounds)
}

// NewBoxFromBounds creates a box covering the given local bounds
func NewBoxFromBounds(bounds AABB) *Box {
	min, max := bounds.Min, bounds.Max
	b := &Box{
		HalfExtents: bounds.Size().Mul(0.5),
		center:      bounds.Center(),
		bounds:      bounds,
		points: [8]mgl64.Vec3{
			{min.X(), min.Y(), min.Z()},
			{max.X(), min.Y(), min.Z()},
			{min.X(), max.Y(), min.Z()},
			{min.X(), min.Y(), max.Z()},
			{max.X(), max.Y(), max.Z()},
			{min.X(), max.Y(), max.Z()},
			{max.X(), min.Y(), max.Z()},
			{max.X(), max.Y(), min.Z()},
		},
	}

	return b
}

func (b *Box) Type() ShapeType {
	return ShapeTypeBox
}

// Points returns the 8 corners in local space
func (b *Box) Points() [8]mgl64.Vec3 {
	return b.points
}

func (b *Box) Support(direction mgl64.Vec3, bias float64) mgl64.Vec3 {
	return supportOf(b.points[:], direction, bias)
}

func (b *Box) LocalBounds() AABB {
	return b.bounds
}

func (b *Box) Bounds(transform Transform) AABB {
	return transformAABB(b.points[:], transform)
}

func (b *Box) CenterOfMass() mgl64.Vec3 {
	return b.center
}

func (b *Box) InertiaTensor() mgl64.Mat3 {
	// Full dimensions
	size := b.bounds.Size()
	x, y, z := size.X(), size.Y(), size.Z()

	// I = (1/12) * (dimension1² + dimension2²), per unit mass
	return mgl64.Diag3(mgl64.Vec3{
		(y*y + z*z) / 12.0,
		(x*x + z*z) / 12.0,
		(x*x + y*y) / 12.0,
	})
}

func (b *Box) FastestLinearSpeed(angularVelocity, direction mgl64.Vec3) float64 {
	return fastestLinearSpeed(b.points[:], b.center, angularVelocity, direction)
}

// supportOf scans points for the farthest one along direction
func supportOf(points []mgl64.Vec3, direction mgl64.Vec3, bias float64) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}

	best := points[0]
	bestDot := best.Dot(direction)
	for _, p := range points[1:] {
		if d := p.Dot(direction); d > bestDot {
			best, bestDot = p, d
		}
	}

	return best.Add(safeNormalize(direction).Mul(bias))
}

func fastestLinearSpeed(points []mgl64.Vec3, center, angularVelocity, direction mgl64.Vec3) float64 {
	maxSpeed := 0.0
	for _, p := range points {
		linearVelocity := angularVelocity.Cross(p.Sub(center))
		maxSpeed = math.Max(maxSpeed, direction.Dot(linearVelocity))
	}

	return maxSpeed
}

// safeNormalize returns the zero vector instead of NaNs for a degenerate direction
func safeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return mgl64.Vec3{}
	}

	return v.Mul(1 / l)
}
