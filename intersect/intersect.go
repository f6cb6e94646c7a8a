// Package intersect turns a pair of rigid bodies into a contact.
//
// Sphere pairs, and spheres against boxes, are solved in closed form. Every other convex pair goes through GJK: EPA gives
// the penetration of overlapping shapes, the GJK distance the separation of disjoint ones.
// Continuous detection sweeps sphere pairs analytically and advances other pairs
// conservatively until they touch.
package intersect

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/epa"
	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// maxAdvanceIterations bounds the conservative advancement of a pair
const maxAdvanceIterations = 10

// ErrUnsupportedPair is returned for shapes no routine can test, such as empty hulls
var ErrUnsupportedPair = errors.New("unsupported shape pair")

// Intersect tests a and b over the next dt. Static mode only looks at the current poses.
// The contact normal points from b toward a.
//
// Pairs of infinite-mass bodies never collide.
func Intersect(a, b *actor.RigidBody, dt float64, continuous bool) (constraint.Contact, bool, error) {
	if a.HasInfiniteMass() && b.HasInfiniteMass() {
		return constraint.Contact{}, false, nil
	}

	if !supported(a.Shape) || !supported(b.Shape) {
		return constraint.Contact{}, false, errors.Wrapf(ErrUnsupportedPair, "%v and %v", shapeName(a.Shape), shapeName(b.Shape))
	}

	if continuous {
		return Dynamic(a, b, dt)
	}

	return Static(a, b)
}

func supported(shape actor.ShapeInterface) bool {
	switch s := shape.(type) {
	case *actor.Sphere, *actor.Box:
		return true
	case *actor.Convex:
		return !s.IsEmpty()
	default:
		return false
	}
}

func shapeName(shape actor.ShapeInterface) string {
	if shape == nil {
		return "nil shape"
	}

	return shape.Type().String()
}

// Static tests the bodies at their current poses. When they do not overlap, the returned
// contact still holds the closest points and their positive separation.
func Static(a, b *actor.RigidBody) (constraint.Contact, bool, error) {
	sphereA, okA := a.Shape.(*actor.Sphere)
	sphereB, okB := b.Shape.(*actor.Sphere)
	switch {
	case okA && okB:
		return sphereSphere(a, b, sphereA.Radius, sphereB.Radius)
	case okA:
		if box, ok := b.Shape.(*actor.Box); ok {
			return sphereBox(a, b, sphereA.Radius, box)
		}
	case okB:
		if box, ok := a.Shape.(*actor.Box); ok {
			contact, hit, err := sphereBox(b, a, sphereB.Radius, box)
			return contact.Swapped(), hit, err
		}
	}

	return penetration(a, b)
}

// penetration runs biased GJK, then EPA on overlapping shapes
func penetration(a, b *actor.RigidBody) (constraint.Contact, bool, error) {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)

	if !gjk.Intersect(a, b, simplex, gjk.Bias) {
		return closestPoints(a, b), false, nil
	}

	result, err := epa.EPA(a, b, simplex, gjk.Bias)
	if err != nil {
		return constraint.Contact{}, false, errors.Wrapf(err, "penetration of %v and %v", a.Handle(), b.Handle())
	}

	// Pull the witness points back on the shapes
	normal := result.Normal.Mul(-1)
	pointA := surfacePoint(a, result.OnA.Add(normal.Mul(gjk.Bias)), normal.Mul(-1))
	pointB := surfacePoint(b, result.OnB.Sub(normal.Mul(gjk.Bias)), normal)

	return newContact(a, b, pointA, pointB, normal), true, nil
}

// surfacePoint moves the witness point of a sphere onto its surface along direction, keeping
// the contact arm parallel to the normal
func surfacePoint(body *actor.RigidBody, witness, direction mgl64.Vec3) mgl64.Vec3 {
	if sphere, ok := body.Shape.(*actor.Sphere); ok {
		return body.CenterOfMassWorld().Add(direction.Mul(sphere.Radius))
	}

	return witness
}

// sphereBox tests a sphere against a box in closed form, unless the sphere center is inside
// the box. Touching within the GJK bias counts as a hit, like the other pairs.
func sphereBox(a, b *actor.RigidBody, radius float64, box *actor.Box) (constraint.Contact, bool, error) {
	center := a.CenterOfMassWorld()
	onBox, normal, distance, inside := SphereBox(center, box.LocalBounds(), b.Transform)
	if inside {
		return penetration(a, b)
	}

	return newContact(a, b, center.Sub(normal.Mul(radius)), onBox, normal), distance-radius < 2*gjk.Bias, nil
}

func sphereSphere(a, b *actor.RigidBody, radiusA, radiusB float64) (constraint.Contact, bool, error) {
	posA := a.CenterOfMassWorld()
	posB := b.CenterOfMassWorld()

	pointA, pointB, ok := SphereSphereStatic(radiusA, radiusB, posA, posB)
	if !ok {
		return closestPoints(a, b), false, nil
	}

	return newContact(a, b, pointA, pointB, normalizeOr(posA.Sub(posB), mgl64.Vec3{-1, 0, 0})), true, nil
}

func closestPoints(a, b *actor.RigidBody) constraint.Contact {
	witness := gjk.ClosestPoints(a, b)
	if witness.Intersecting {
		return constraint.Contact{BodyA: a.Handle(), BodyB: b.Handle()}
	}

	contact := newContact(a, b, witness.OnA, witness.OnB, normalizeOr(witness.OnA.Sub(witness.OnB), mgl64.Vec3{}))
	contact.Separation = witness.Distance

	return contact
}

// newContact converts world points to body space, the separation being measured along normal
func newContact(a, b *actor.RigidBody, pointA, pointB, normal mgl64.Vec3) constraint.Contact {
	return constraint.Contact{
		BodyA:       a.Handle(),
		BodyB:       b.Handle(),
		WorldPointA: pointA,
		WorldPointB: pointB,
		LocalPointA: a.WorldToLocal(pointA),
		LocalPointB: b.WorldToLocal(pointB),
		Normal:      normal,
		Separation:  pointA.Sub(pointB).Dot(normal),
	}
}

// Dynamic finds the first contact of the bodies over the next dt, at their current velocity.
// The bodies are not moved: world and local points are given at the time of impact.
func Dynamic(a, b *actor.RigidBody, dt float64) (constraint.Contact, bool, error) {
	sphereA, okA := a.Shape.(*actor.Sphere)
	sphereB, okB := b.Shape.(*actor.Sphere)
	if okA && okB {
		contact, hit := sweptSpheres(a, b, sphereA.Radius, sphereB.Radius, dt)
		return contact, hit, nil
	}

	return conservativeAdvance(a, b, dt)
}

func sweptSpheres(a, b *actor.RigidBody, radiusA, radiusB, dt float64) (constraint.Contact, bool) {
	posA := a.CenterOfMassWorld()
	posB := b.CenterOfMassWorld()

	pointA, pointB, toi, ok := SphereSphereDynamic(radiusA, radiusB, posA, posB, a.LinearVelocity, b.LinearVelocity, dt)
	if !ok {
		return constraint.Contact{}, false
	}

	// Local points are taken at the time of impact, on copies of the bodies
	futureA, futureB := *a, *b
	futureA.Update(toi)
	futureB.Update(toi)

	return constraint.Contact{
		BodyA:        a.Handle(),
		BodyB:        b.Handle(),
		WorldPointA:  pointA,
		WorldPointB:  pointB,
		LocalPointA:  futureA.WorldToLocal(pointA),
		LocalPointB:  futureB.WorldToLocal(pointB),
		Normal:       normalizeOr(futureA.CenterOfMassWorld().Sub(futureB.CenterOfMassWorld()), mgl64.Vec3{-1, 0, 0}),
		Separation:   futureB.CenterOfMassWorld().Sub(futureA.CenterOfMassWorld()).Len() - (radiusA + radiusB),
		TimeOfImpact: toi,
	}, true
}

// conservativeAdvance steps copies of the bodies by the time they provably need to cover
// their separation, until they touch or dt runs out
func conservativeAdvance(a, b *actor.RigidBody, dt float64) (constraint.Contact, bool, error) {
	futureA, futureB := *a, *b
	toi := 0.0

	for i := 0; dt > 0; i++ {
		contact, hit, err := Static(&futureA, &futureB)
		if err != nil {
			return constraint.Contact{}, false, err
		}
		if hit {
			contact.TimeOfImpact = toi
			return contact, true, nil
		}

		if i >= maxAdvanceIterations {
			break
		}

		ab := normalizeOr(contact.WorldPointB.Sub(contact.WorldPointA), mgl64.Vec3{})

		// Relative speed along the separating axis, plus the fastest rotating points
		orthoSpeed := futureA.LinearVelocity.Sub(futureB.LinearVelocity).Dot(ab)
		orthoSpeed += futureA.FastestLinearSpeed(ab) + futureB.FastestLinearSpeed(ab.Mul(-1))
		if orthoSpeed <= 0 {
			break
		}

		timeToGo := contact.Separation / orthoSpeed
		if timeToGo > dt {
			break
		}

		dt -= timeToGo
		toi += timeToGo
		futureA.Update(timeToGo)
		futureB.Update(timeToGo)
	}

	return constraint.Contact{}, false, nil
}
