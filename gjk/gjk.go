// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) algorithm on the Minkowski
// difference of two convex rigid bodies.
//
// Two queries are provided:
//   - Intersect: does the (optionally inflated) Minkowski difference contain the origin?
//     On success the simplex is the starting polytope of EPA.
//   - ClosestPoints: the pair of closest points between two separated bodies.
//
// Every simplex vertex keeps the pair of support points it was built from, so that a point of
// the Minkowski difference can be mapped back to a witness point on each body.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Ericson: "Real-Time Collision Detection" (2004), closest point on triangle
package gjk

import (
	"math"
	"sync"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const maxIterations = 32

// Bias inflates both shapes during intersection tests, so that touching shapes report an
// overlap with a well defined normal
const Bias = 0.001

// SupportPoint is a vertex of the Minkowski difference: P = A - B
type SupportPoint struct {
	P mgl64.Vec3
	A mgl64.Vec3
	B mgl64.Vec3
}

// Simplex represents a set of 1-4 points in the Minkowski difference space.
// Size progression: 1 point → 2 points (line) → 3 points (triangle) → 4 points (tetrahedron)
type Simplex struct {
	Points [4]SupportPoint
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

func (s *Simplex) push(p SupportPoint) {
	s.Points[s.Count] = p
	s.Count++
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// Support computes a support point of the Minkowski difference (A - B) along direction.
// Both shapes are inflated by bias.
func Support(a, b *actor.RigidBody, direction mgl64.Vec3, bias float64) SupportPoint {
	onA := a.SupportWorld(direction, bias)
	onB := b.SupportWorld(direction.Mul(-1), bias)

	return SupportPoint{P: onA.Sub(onB), A: onA, B: onB}
}

// Intersect reports whether the bodies, both inflated by bias, overlap.
//
// The simplex is modified in place. On a hit it holds 1-4 points enclosing the origin; fewer
// than 4 points means the shapes are only touching.
func Intersect(a, b *actor.RigidBody, simplex *Simplex, bias float64) bool {
	// Starting toward the other shape typically reduces iterations
	direction := b.CenterOfMassWorld().Sub(a.CenterOfMassWorld())
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.Reset()
	simplex.push(Support(a, b, direction, bias))

	direction = simplex.Points[0].P.Mul(-1)
	if direction.LenSqr() < 1e-16 {
		return true
	}

	for i := 0; i < maxIterations; i++ {
		newPoint := Support(a, b, direction, bias)

		// The new point does not pass the origin: the origin cannot be enclosed
		if newPoint.P.Dot(direction) <= 0 {
			return false
		}

		simplex.push(newPoint)
		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	return false
}

// containsOrigin reduces the simplex to its feature closest to the origin and updates the
// search direction. Only a tetrahedron can contain the origin.
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.P.Sub(a.P)
	ao := a.P.Mul(-1)

	// Identical points
	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	// Origin is closest to point A alone
	if ab.Dot(ao) <= 0 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	abPerp := ab.Cross(ao).Cross(ab)
	if abPerp.LenSqr() < 1e-8 {
		// Origin is on the segment: touching
		return true
	}

	*direction = abPerp
	return false
}

func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2] // Most recent point
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.P.Sub(a.P)
	ac := c.P.Sub(a.P)
	ao := a.P.Mul(-1)

	abc := ab.Cross(ac)

	// Collinear points, keep the most recent edge
	if abc.LenSqr() < 1e-10 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		return line(simplex, direction)
	}

	// Region AB
	if ab.Cross(abc).Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	// Region AC
	if abc.Cross(ac).Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		// Below, reverse order to keep the winding facing the origin
		simplex.Points[0] = b
		simplex.Points[1] = c
		simplex.Points[2] = a
		*direction = abc.Mul(-1)
	}

	return false
}

func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3] // Most recent point
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.P.Sub(a.P)
	ac := c.P.Sub(a.P)
	ad := d.P.Sub(a.P)
	ao := a.P.Mul(-1)

	// Face normals point away from the 4th vertex
	abc := ab.Cross(ac)
	volume := abc.Dot(ad)
	if volume > 0 {
		abc = abc.Mul(-1)
	}
	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}
	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	// Flat tetrahedron, fall back to its newest face
	if math.Abs(volume) < 1e-12 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if abc.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if acd.Dot(ao) > 0 {
		simplex.Points[0] = d
		simplex.Points[1] = c
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if adb.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = d
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	return true
}
