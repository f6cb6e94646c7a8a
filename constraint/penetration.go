package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// PenetrationBeta is the share of the residual penetration corrected per second of dt
	PenetrationBeta = 0.25
	// PenetrationSlop is the penetration depth tolerated without correction
	PenetrationSlop = 0.02
)

// Penetration keeps a manifold point from sinking further: one non-negative normal row and
// two friction rows, bounded by the friction cone approximation ±friction·λn.
type Penetration struct {
	Config

	// Normal from A toward B, in the local space of the heavier body
	Normal mgl64.Vec3
	// normalOnB is set when Normal is in B's space
	normalOnB bool

	friction     float64
	jacobian     *mgl64.MatMxN
	cachedLambda *mgl64.VecN
	baumgarte    float64
}

// NewPenetration builds the constraint of a contact whose normal points from B toward A
func NewPenetration(a, b *actor.RigidBody, contact Contact) *Penetration {
	p := &Penetration{
		jacobian:     newMatrix(3, bodyPairDOF),
		cachedLambda: newVector(3),
	}
	p.Refresh(a, b, contact)

	return p
}

// Refresh moves the point to a newer contact of the same bodies. The accumulated impulses
// are kept for warm starting.
//
// The normal is stored in the frame of the body with the smallest inverse mass, so that it
// does not turn with a body spinning on a static one.
func (p *Penetration) Refresh(a, b *actor.RigidBody, contact Contact) {
	p.Config = Config{
		BodyA:   contact.BodyA,
		BodyB:   contact.BodyB,
		AnchorA: contact.LocalPointA,
		AnchorB: contact.LocalPointB,
	}

	reference := a
	p.normalOnB = b.InvMass < a.InvMass
	if p.normalOnB {
		reference = b
	}
	p.Normal = reference.Transform.InverseRotation().Rotate(contact.Normal.Mul(-1)).Normalize()
}

// WorldNormal returns the normal from A toward B, in world space
func (p *Penetration) WorldNormal(a, b *actor.RigidBody) mgl64.Vec3 {
	if p.normalOnB {
		return b.Transform.Rotation.Rotate(p.Normal)
	}

	return a.Transform.Rotation.Rotate(p.Normal)
}

// CachedNormalImpulse returns the accumulated normal impulse
func (p *Penetration) CachedNormalImpulse() float64 {
	return p.cachedLambda.Get(0)
}

func (p *Penetration) PreSolve(bodies *actor.Arena, dt float64) error {
	a, b, err := bodies.Pair(p.BodyA, p.BodyB)
	if err != nil {
		return err
	}

	anchors := p.anchors(a, b)
	p.friction = ComputeFriction(a.Material, b.Material)

	normal := p.WorldNormal(a, b)
	p.jacobian.Zero(3, bodyPairDOF)
	setRow(p.jacobian, 0, normal.Mul(-1), anchors.ra.Cross(normal.Mul(-1)), normal, anchors.rb.Cross(normal))

	if p.friction > 0 {
		u, v := orthonormalBasis(normal)
		setRow(p.jacobian, 1, u.Mul(-1), anchors.ra.Cross(u.Mul(-1)), u, anchors.rb.Cross(u))
		setRow(p.jacobian, 2, v.Mul(-1), anchors.ra.Cross(v.Mul(-1)), v, anchors.rb.Cross(v))
	}

	// Warm start
	applyLambda(a, b, p.jacobian, p.cachedLambda)

	c := anchors.worldB.Sub(anchors.worldA).Dot(normal)
	c = math.Min(0, c+PenetrationSlop)
	p.baumgarte = PenetrationBeta * c / dt

	return nil
}

func (p *Penetration) Solve(bodies *actor.Arena) error {
	a, b, err := bodies.Pair(p.BodyA, p.BodyB)
	if err != nil {
		return err
	}

	lambda := solveRows(a, b, p.jacobian, []float64{p.baumgarte})

	// Accumulate, then clamp the accumulated impulses
	oldLambda := newVector(3)
	oldLambda.Add(oldLambda, p.cachedLambda)
	p.cachedLambda.Add(p.cachedLambda, lambda)

	if p.cachedLambda.Get(0) < 0 {
		p.cachedLambda.Set(0, 0)
	}

	if p.friction > 0 {
		maxFriction := p.friction * math.Abs(p.cachedLambda.Get(0))
		for i := 1; i < 3; i++ {
			p.cachedLambda.Set(i, mgl64.Clamp(p.cachedLambda.Get(i), -maxFriction, maxFriction))
		}
	}

	p.cachedLambda.Sub(lambda, oldLambda)
	applyLambda(a, b, p.jacobian, lambda)

	return nil
}

func (p *Penetration) PostSolve() {}
