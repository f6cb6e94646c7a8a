package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is solved once per tick: PreSolve, then Solve for every solver iteration,
// then PostSolve.
type Constraint interface {
	// PreSolve refreshes the Jacobian from the current poses and applies the cached impulse
	PreSolve(bodies *actor.Arena, dt float64) error
	Solve(bodies *actor.Arena) error
	PostSolve()
	// Bodies returns the handles of the constrained bodies
	Bodies() (actor.Handle, actor.Handle)
}

// Config holds the body pair and the anchors shared by every constraint variant.
// Anchors and axes are local to each body, anchors being relative to the center of mass.
type Config struct {
	BodyA   actor.Handle
	BodyB   actor.Handle
	AnchorA mgl64.Vec3
	AxisA   mgl64.Vec3
	AnchorB mgl64.Vec3
	AxisB   mgl64.Vec3
}

// NewJointConfig anchors both bodies at the same world point, around the same world axis
func NewJointConfig(a, b *actor.RigidBody, worldAnchor, worldAxis mgl64.Vec3) Config {
	return Config{
		BodyA:   a.Handle(),
		BodyB:   b.Handle(),
		AnchorA: a.WorldToLocal(worldAnchor),
		AxisA:   a.Transform.InverseRotation().Rotate(worldAxis),
		AnchorB: b.WorldToLocal(worldAnchor),
		AxisB:   b.Transform.InverseRotation().Rotate(worldAxis),
	}
}

func (c *Config) Bodies() (actor.Handle, actor.Handle) {
	return c.BodyA, c.BodyB
}

// anchors returns the world anchors and their offsets from each center of mass
type anchors struct {
	worldA, worldB mgl64.Vec3
	ra, rb         mgl64.Vec3
}

func (c *Config) anchors(a, b *actor.RigidBody) anchors {
	worldA := a.LocalToWorld(c.AnchorA)
	worldB := b.LocalToWorld(c.AnchorB)

	return anchors{
		worldA: worldA,
		worldB: worldB,
		ra:     worldA.Sub(a.CenterOfMassWorld()),
		rb:     worldB.Sub(b.CenterOfMassWorld()),
	}
}

// ComputeFriction combines the friction of two materials
func ComputeFriction(matA, matB actor.Material) float64 {
	return matA.Friction * matB.Friction
}

// ComputeElasticity combines the elasticity of two materials: a perfect bounce needs both
func ComputeElasticity(matA, matB actor.Material) float64 {
	return matA.Elasticity * matB.Elasticity
}

// clampCachedLambda resets non-finite values and bounds the others to ±limit
func clampCachedLambda(lambda *mgl64.VecN, limit float64) {
	for i := 0; i < lambda.Size(); i++ {
		value := lambda.Get(i)
		if !isFinite(value) {
			value = 0
		}
		lambda.Set(i, math.Max(-limit, math.Min(limit, value)))
	}
}
