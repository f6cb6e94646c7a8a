package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxAngularSpeed bounds the angular velocity of every body, in rad/s
const MaxAngularSpeed = 30.0

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by impulses, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies have infinite mass: contacts and gravity never move them,
	// only a velocity assigned directly (e.g. by a Mover) does
	BodyTypeStatic
)

type Material struct {
	Friction   float64 // 0 = frictionless, 1 = full grip
	Elasticity float64 // 0 = no rebound, 1 = perfect restitution
}

// DefaultMaterial is used by NewRigidBody
var DefaultMaterial = Material{Friction: 0.5, Elasticity: 0.5}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	handle Handle

	// Pose of the body origin, the shape being defined relative to it
	Transform Transform

	LinearVelocity  mgl64.Vec3 // m/s
	AngularVelocity mgl64.Vec3 // rad/s, world space

	// 0 for infinite mass
	InvMass float64
	// Per unit mass, about the center of mass, in local space
	InertiaTensor mgl64.Mat3
	// I⁻¹ * InvMass, in local space
	InverseInertiaLocal mgl64.Mat3

	Material Material
	BodyType BodyType

	Shape ShapeInterface
}

// NewRigidBody creates a rigid body. Mass is ignored for static bodies, and a dynamic body
// without a positive mass behaves as a static one.
func NewRigidBody(transform Transform, shape ShapeInterface, bodyType BodyType, mass float64) *RigidBody {
	rb := &RigidBody{
		Transform:     transform.normalized(),
		Shape:         shape,
		BodyType:      bodyType,
		Material:      DefaultMaterial,
		InertiaTensor: shape.InertiaTensor(),
	}

	if bodyType == BodyTypeDynamic && mass > 0 {
		rb.InvMass = 1.0 / mass
	}
	rb.InverseInertiaLocal = rb.InertiaTensor.Inv().Mul(rb.InvMass)

	return rb
}

// SetMaterial assigns friction and elasticity, both clamped to [0, 1]
func (rb *RigidBody) SetMaterial(friction, elasticity float64) {
	rb.Material = Material{
		Friction:   mgl64.Clamp(friction, 0, 1),
		Elasticity: mgl64.Clamp(elasticity, 0, 1),
	}
}

// Handle is the arena handle of the body, zero until inserted
func (rb *RigidBody) Handle() Handle {
	return rb.handle
}

func (rb *RigidBody) HasInfiniteMass() bool {
	return rb.InvMass == 0
}

// Mass returns +Inf for infinite-mass bodies
func (rb *RigidBody) Mass() float64 {
	if rb.HasInfiniteMass() {
		return math.Inf(1)
	}

	return 1.0 / rb.InvMass
}

func (rb *RigidBody) CenterOfMassWorld() mgl64.Vec3 {
	return rb.Transform.Apply(rb.Shape.CenterOfMass())
}

// WorldToLocal converts a world point into body space, relative to the center of mass
func (rb *RigidBody) WorldToLocal(point mgl64.Vec3) mgl64.Vec3 {
	return rb.Transform.InverseRotation().Rotate(point.Sub(rb.CenterOfMassWorld()))
}

// LocalToWorld is the inverse of WorldToLocal
func (rb *RigidBody) LocalToWorld(point mgl64.Vec3) mgl64.Vec3 {
	return rb.CenterOfMassWorld().Add(rb.Transform.Rotation.Rotate(point))
}

// InverseInertiaWorld returns R * I⁻¹ * Rᵀ, scaled by the inverse mass
func (rb *RigidBody) InverseInertiaWorld() mgl64.Mat3 {
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

// ApplyImpulse applies impulse at a world point, changing both linear and angular velocity
func (rb *RigidBody) ApplyImpulse(point, impulse mgl64.Vec3) {
	if rb.HasInfiniteMass() {
		return
	}

	rb.ApplyImpulseLinear(impulse)

	r := point.Sub(rb.CenterOfMassWorld())
	rb.ApplyImpulseAngular(r.Cross(impulse))
}

func (rb *RigidBody) ApplyImpulseLinear(impulse mgl64.Vec3) {
	if rb.HasInfiniteMass() {
		return
	}

	rb.LinearVelocity = rb.LinearVelocity.Add(impulse.Mul(rb.InvMass))
}

func (rb *RigidBody) ApplyImpulseAngular(impulse mgl64.Vec3) {
	if rb.HasInfiniteMass() {
		return
	}

	rb.AngularVelocity = rb.AngularVelocity.Add(rb.InverseInertiaWorld().Mul3x1(impulse))
	rb.clampAngularVelocity()
}

func (rb *RigidBody) clampAngularVelocity() {
	if speed := rb.AngularVelocity.Len(); speed > MaxAngularSpeed {
		rb.AngularVelocity = rb.AngularVelocity.Mul(MaxAngularSpeed / speed)
	}
}

// Update advances the pose by dt. The center of mass, not the origin, rotates in place.
func (rb *RigidBody) Update(dt float64) {
	rb.Transform.Position = rb.Transform.Position.Add(rb.LinearVelocity.Mul(dt))

	centerOfMass := rb.CenterOfMassWorld()
	cmToPosition := rb.Transform.Position.Sub(centerOfMass)

	// Torque-free precession: external torques were already applied as impulses
	R := rb.Transform.Rotation.Mat4().Mat3()
	inertia := R.Mul3(rb.InertiaTensor).Mul3(R.Transpose())
	alpha := inertia.Inv().Mul3x1(rb.AngularVelocity.Cross(inertia.Mul3x1(rb.AngularVelocity)))
	rb.AngularVelocity = rb.AngularVelocity.Add(alpha.Mul(dt))
	rb.clampAngularVelocity()

	dAngle := rb.AngularVelocity.Mul(dt)
	angle := dAngle.Len()
	if angle == 0 || math.IsNaN(angle) {
		return
	}

	dq := mgl64.QuatRotate(angle, dAngle.Mul(1/angle))
	rb.Transform.Rotation = dq.Mul(rb.Transform.Rotation).Normalize()
	rb.Transform.Position = centerOfMass.Add(dq.Rotate(cmToPosition))
}

// SupportWorld returns the world space support point of the shape along direction
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3, bias float64) mgl64.Vec3 {
	localDirection := rb.Transform.InverseRotation().Rotate(direction)
	localSupport := rb.Shape.Support(localDirection, bias)

	return rb.Transform.Apply(localSupport)
}

// FastestLinearSpeed is the highest speed along a world direction reached by a point of the
// shape due to the body rotation alone
func (rb *RigidBody) FastestLinearSpeed(direction mgl64.Vec3) float64 {
	inverse := rb.Transform.InverseRotation()

	return rb.Shape.FastestLinearSpeed(inverse.Rotate(rb.AngularVelocity), inverse.Rotate(direction))
}

// Bounds returns the world AABB of the body at its current pose
func (rb *RigidBody) Bounds() AABB {
	return rb.Shape.Bounds(rb.Transform)
}

// SweptBounds covers the body over the next dt at its current velocity, plus BoundsEpsilon
func (rb *RigidBody) SweptBounds(dt float64) AABB {
	bounds := rb.Bounds()
	bounds = bounds.Merge(bounds.Translate(rb.LinearVelocity.Mul(dt)))

	return bounds.Expand(BoundsEpsilon)
}
