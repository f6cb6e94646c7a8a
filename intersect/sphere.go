package intersect

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// rayEpsilon is the shortest relative motion swept as a ray, shorter motions being tested
// for overlap only
const rayEpsilon = 0.001

// RaySphere returns the parameters t1 <= t2 at which start + t·direction crosses the sphere,
// or false when the ray line misses it
func RaySphere(start, direction, center mgl64.Vec3, radius float64) (float64, float64, bool) {
	m := center.Sub(start)
	a := direction.Dot(direction)
	b := m.Dot(direction)
	c := m.Dot(m) - radius*radius

	delta := b*b - a*c
	if delta < 0 || a == 0 {
		return 0, 0, false
	}

	invA := 1.0 / a
	deltaRoot := math.Sqrt(delta)

	return invA * (b - deltaRoot), invA * (b + deltaRoot), true
}

// SphereSphereStatic returns the deepest point of each sphere inside the other one, when the
// spheres overlap
func SphereSphereStatic(radiusA, radiusB float64, posA, posB mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool) {
	ab := posB.Sub(posA)
	radiusAB := radiusA + radiusB
	if ab.LenSqr() >= radiusAB*radiusAB {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}

	direction := normalizeOr(ab, mgl64.Vec3{1, 0, 0})

	return posA.Add(direction.Mul(radiusA)), posB.Sub(direction.Mul(radiusB)), true
}

// SphereSphereDynamic sweeps sphere A against sphere B over dt. It returns the points of
// first contact, at the bodies' positions at the time of impact, and that time in [0, dt].
func SphereSphereDynamic(radiusA, radiusB float64, posA, posB, velA, velB mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3, float64, bool) {
	rayDirection := velA.Sub(velB).Mul(dt)

	var t0, t1 float64
	if rayDirection.LenSqr() < rayEpsilon*rayEpsilon {
		radius := radiusA + radiusB + rayEpsilon
		if posB.Sub(posA).LenSqr() > radius*radius {
			return mgl64.Vec3{}, mgl64.Vec3{}, 0, false
		}
	} else {
		var ok bool
		t0, t1, ok = RaySphere(posA, rayDirection, posB, radiusA+radiusB)
		if !ok {
			return mgl64.Vec3{}, mgl64.Vec3{}, 0, false
		}
	}

	// From [0,1] to [0,dt]
	t0 *= dt
	t1 *= dt

	// The collision is in the past only
	if t1 < 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, 0, false
	}

	toi := math.Max(t0, 0)
	if toi > dt {
		return mgl64.Vec3{}, mgl64.Vec3{}, 0, false
	}

	newPosA := posA.Add(velA.Mul(toi))
	newPosB := posB.Add(velB.Mul(toi))
	direction := normalizeOr(newPosB.Sub(newPosA), mgl64.Vec3{1, 0, 0})

	return newPosA.Add(direction.Mul(radiusA)), newPosB.Sub(direction.Mul(radiusB)), toi, true
}

// normalizeOr returns fallback instead of the NaN direction of a zero vector
func normalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if v.LenSqr() < 1e-18 {
		return fallback
	}

	return v.Normalize()
}

// SphereBox returns the point of an oriented box closest to a sphere center, the normal from
// the box toward the center and their distance. inside is set when the center lies in the
// box, the normal being undefined then.
func SphereBox(center mgl64.Vec3, bounds actor.AABB, transform actor.Transform) (onBox, normal mgl64.Vec3, distance float64, inside bool) {
	local := transform.InverseRotation().Rotate(center.Sub(transform.Position))
	closest := mgl64.Vec3{
		mgl64.Clamp(local.X(), bounds.Min.X(), bounds.Max.X()),
		mgl64.Clamp(local.Y(), bounds.Min.Y(), bounds.Max.Y()),
		mgl64.Clamp(local.Z(), bounds.Min.Z(), bounds.Max.Z()),
	}

	offset := local.Sub(closest)
	distance = offset.Len()
	onBox = transform.Apply(closest)
	if distance == 0 {
		return onBox, mgl64.Vec3{}, 0, true
	}

	return onBox, transform.Rotation.Rotate(offset.Mul(1 / distance)), distance, false
}
