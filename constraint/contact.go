package constraint

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact is produced by the narrowphase for a body pair
type Contact struct {
	BodyA actor.Handle
	BodyB actor.Handle

	WorldPointA mgl64.Vec3
	WorldPointB mgl64.Vec3
	// Relative to each center of mass, in body space, at the time of impact
	LocalPointA mgl64.Vec3
	LocalPointB mgl64.Vec3

	// Normal points from B toward A
	Normal mgl64.Vec3
	// Separation is negative when the bodies penetrate
	Separation float64
	// TimeOfImpact is 0 for resting or penetrating contacts, in ]0, dt] otherwise
	TimeOfImpact float64
}

// Swapped returns the same contact seen from B
func (c Contact) Swapped() Contact {
	return Contact{
		BodyA:        c.BodyB,
		BodyB:        c.BodyA,
		WorldPointA:  c.WorldPointB,
		WorldPointB:  c.WorldPointA,
		LocalPointA:  c.LocalPointB,
		LocalPointB:  c.LocalPointA,
		Normal:       c.Normal.Mul(-1),
		Separation:   c.Separation,
		TimeOfImpact: c.TimeOfImpact,
	}
}

// ResolveContact applies the collision and friction impulses of a ballistic contact.
// A contact without time of impact also pushes the bodies apart, in proportion to their
// inverse mass. It reports false when the friction impulse was skipped.
func ResolveContact(a, b *actor.RigidBody, contact Contact) bool {
	totalInvMass := a.InvMass + b.InvMass
	if totalInvMass == 0 {
		return true
	}

	ptOnA := contact.WorldPointA
	ptOnB := contact.WorldPointB
	n := contact.Normal

	invInertiaA := a.InverseInertiaWorld()
	invInertiaB := b.InverseInertiaWorld()

	ra := ptOnA.Sub(a.CenterOfMassWorld())
	rb := ptOnB.Sub(b.CenterOfMassWorld())

	// ========== Normal impulse ==========
	elasticity := ComputeElasticity(a.Material, b.Material)

	angularJA := invInertiaA.Mul3x1(ra.Cross(n)).Cross(ra)
	angularJB := invInertiaB.Mul3x1(rb.Cross(n)).Cross(rb)
	angularFactor := angularJA.Add(angularJB).Dot(n)

	velA := a.LinearVelocity.Add(a.AngularVelocity.Cross(ra))
	velB := b.LinearVelocity.Add(b.AngularVelocity.Cross(rb))
	vab := velA.Sub(velB)

	impulseJ := (1.0 + elasticity) * vab.Dot(n) / (totalInvMass + angularFactor)
	vectorImpulseJ := n.Mul(impulseJ)

	a.ApplyImpulse(ptOnA, vectorImpulseJ.Mul(-1))
	b.ApplyImpulse(ptOnB, vectorImpulseJ)

	// ========== Friction impulse ==========
	friction := ComputeFriction(a.Material, b.Material)

	velNorm := n.Mul(n.Dot(vab))
	velTang := vab.Sub(velNorm)
	relativeVelTang := velTang.Normalize()

	inertiaA := invInertiaA.Mul3x1(ra.Cross(relativeVelTang)).Cross(ra)
	inertiaB := invInertiaB.Mul3x1(rb.Cross(relativeVelTang)).Cross(rb)
	invInertia := inertiaA.Add(inertiaB).Dot(relativeVelTang)

	reducedMass := 1.0 / (totalInvMass + invInertia)
	impulseFriction := velTang.Mul(reducedMass * friction)

	applied := isFinite(impulseFriction.X()) && isFinite(impulseFriction.Y()) && isFinite(impulseFriction.Z())
	if applied {
		a.ApplyImpulse(ptOnA, impulseFriction.Mul(-1))
		b.ApplyImpulse(ptOnB, impulseFriction)
	}

	// ========== Separation ==========
	if contact.TimeOfImpact == 0 {
		ds := ptOnB.Sub(ptOnA)

		a.Transform.Position = a.Transform.Position.Add(ds.Mul(a.InvMass / totalInvMass))
		b.Transform.Position = b.Transform.Position.Sub(ds.Mul(b.InvMass / totalInvMass))
	}

	return applied
}
