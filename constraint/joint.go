package constraint

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// angularJoint holds the anchors together and locks the relative orientation of the bodies
// around some axes of A. Row 0 is the distance row, then one row per locked axis.
type angularJoint struct {
	Config

	orientation  relativeOrientation
	jacobian     *mgl64.MatMxN
	cachedLambda *mgl64.VecN
	baumgarte    []float64
}

func newAngularJoint(a, b *actor.RigidBody, config Config, rows int) angularJoint {
	return angularJoint{
		Config:       config,
		orientation:  newRelativeOrientation(a.Transform.Rotation, b.Transform.Rotation),
		jacobian:     newMatrix(rows, bodyPairDOF),
		cachedLambda: newVector(rows),
		baumgarte:    make([]float64, rows),
	}
}

// build refreshes the distance row and the rows of the locked axes, given in A's local space
func (j *angularJoint) build(a, b *actor.RigidBody, dt float64, lockedAxes ...mgl64.Vec3) {
	rows := j.cachedLambda.Size()
	j.jacobian.Zero(rows, bodyPairDOF)
	for i := range j.baumgarte {
		j.baumgarte[i] = 0
	}

	j.baumgarte[0] = distanceRow(j.jacobian, 0, j.anchors(a, b), dt)

	qa, qb := a.Transform.Rotation, b.Transform.Rotation
	drift := j.orientation.drift(qa, qb)
	for i, axis := range lockedAxes {
		angularA, angularB := j.orientation.angularRows(qa, qb, axis)
		setRow(j.jacobian, i+1, mgl64.Vec3{}, angularA, mgl64.Vec3{}, angularB)

		j.baumgarte[i+1] = JointBeta / dt * axis.Dot(drift.V)
	}
}

func (j *angularJoint) warmStart(a, b *actor.RigidBody) {
	applyLambda(a, b, j.jacobian, j.cachedLambda)
}

func (j *angularJoint) solve(bodies *actor.Arena, target *mgl64.VecN) error {
	a, b, err := bodies.Pair(j.BodyA, j.BodyB)
	if err != nil {
		return err
	}

	lambda := solveRowsWithTarget(a, b, j.jacobian, j.baumgarte, target)
	applyLambda(a, b, j.jacobian, lambda)
	j.cachedLambda.Add(j.cachedLambda, lambda)

	return nil
}

func (j *angularJoint) PostSolve() {
	clampCachedLambda(j.cachedLambda, maxJointImpulse)
}

// Hinge lets B rotate relative to A only around AxisA
type Hinge struct {
	angularJoint
}

func NewHinge(a, b *actor.RigidBody, config Config) *Hinge {
	return &Hinge{angularJoint: newAngularJoint(a, b, config, 3)}
}

func (h *Hinge) PreSolve(bodies *actor.Arena, dt float64) error {
	a, b, err := bodies.Pair(h.BodyA, h.BodyB)
	if err != nil {
		return err
	}

	u, v := orthonormalBasis(h.AxisA)
	h.build(a, b, dt, u, v)
	h.warmStart(a, b)

	return nil
}

func (h *Hinge) Solve(bodies *actor.Arena) error {
	return h.solve(bodies, nil)
}

// Orientation welds the bodies: no relative rotation, anchors together
type Orientation struct {
	angularJoint
}

func NewOrientation(a, b *actor.RigidBody, config Config) *Orientation {
	return &Orientation{angularJoint: newAngularJoint(a, b, config, 4)}
}

func (o *Orientation) PreSolve(bodies *actor.Arena, dt float64) error {
	a, b, err := bodies.Pair(o.BodyA, o.BodyB)
	if err != nil {
		return err
	}

	o.build(a, b, dt, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1})
	o.warmStart(a, b)

	return nil
}

func (o *Orientation) Solve(bodies *actor.Arena) error {
	return o.solve(bodies, nil)
}

// Motor is a hinge around AxisA that also drives B to spin at Speed (rad/s) relative to A
type Motor struct {
	angularJoint

	Speed float64
	// target holds the angular velocities the drive row aims for
	target *mgl64.VecN
}

func NewMotor(a, b *actor.RigidBody, config Config, speed float64) *Motor {
	return &Motor{
		angularJoint: newAngularJoint(a, b, config, 4),
		Speed:        speed,
		target:       newVector(bodyPairDOF),
	}
}

func (m *Motor) PreSolve(bodies *actor.Arena, dt float64) error {
	a, b, err := bodies.Pair(m.BodyA, m.BodyB)
	if err != nil {
		return err
	}

	u, v := orthonormalBasis(m.AxisA)
	m.build(a, b, dt, u, v)

	motorAxis := a.Transform.Rotation.Rotate(m.AxisA).Normalize()
	setRow(m.jacobian, 3, mgl64.Vec3{}, motorAxis.Mul(-1), mgl64.Vec3{}, motorAxis)

	// Each body takes half of the relative speed
	m.target.Zero(bodyPairDOF)
	for i := 0; i < 3; i++ {
		m.target.Set(3+i, -motorAxis[i]*m.Speed*0.5)
		m.target.Set(9+i, motorAxis[i]*m.Speed*0.5)
	}

	m.warmStart(a, b)

	return nil
}

func (m *Motor) Solve(bodies *actor.Arena) error {
	return m.solve(bodies, m.target)
}
