package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// VelocityFunc returns the linear velocity of a scripted body after elapsed seconds
type VelocityFunc func(elapsed float64) mgl64.Vec3

// OscillatingVelocity moves back and forth along axis
func OscillatingVelocity(axis mgl64.Vec3, amplitude, rate float64) VelocityFunc {
	return func(elapsed float64) mgl64.Vec3 {
		return axis.Mul(math.Cos(elapsed*rate) * amplitude)
	}
}

// Mover drives the linear velocity of a single body from the time elapsed since its creation.
// It has no Jacobian: the velocity is assigned once per tick, before the other constraints
// are solved.
type Mover struct {
	Body     actor.Handle
	Velocity VelocityFunc

	elapsed float64
}

func NewMover(body actor.Handle, velocity VelocityFunc) *Mover {
	return &Mover{Body: body, Velocity: velocity}
}

func (m *Mover) Elapsed() float64 {
	return m.elapsed
}

func (m *Mover) PreSolve(bodies *actor.Arena, dt float64) error {
	body, ok := bodies.Get(m.Body)
	if !ok {
		return errors.Wrapf(actor.ErrMissingBody, "%v", m.Body)
	}

	m.elapsed += dt
	body.LinearVelocity = m.Velocity(m.elapsed)

	return nil
}

func (m *Mover) Solve(bodies *actor.Arena) error {
	return nil
}

func (m *Mover) PostSolve() {}

// Bodies returns the moved body twice
func (m *Mover) Bodies() (actor.Handle, actor.Handle) {
	return m.Body, m.Body
}
