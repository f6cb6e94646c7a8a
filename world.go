// Package impulse steps a world of rigid bodies: gravity, sweep and prune broadphase,
// narrowphase with continuous detection, persistent contact manifolds, an iterative
// constraint solver for contacts and joints, then integration of the poses with the
// ballistic contacts sequenced by time of impact.
package impulse

import (
	"log/slog"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/pkg/errors"
)

type World struct {
	Config Config
	Events Events

	bodies    *actor.Arena
	joints    []constraint.Constraint
	manifolds *ManifoldCollector
	logger    *slog.Logger
}

type Option func(w *World)

// WithLogger sets the logger of the world, which discards everything by default
func WithLogger(logger *slog.Logger) Option {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorld(config Config, options ...Option) (*World, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		Config: config,
		Events: NewEvents(),
		bodies: actor.NewArena(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(w)
	}
	w.manifolds = NewManifoldCollector(&w.Events, w.logger)

	return w, nil
}

// AddBody adds a rigid body to the world
func (w *World) AddBody(body *actor.RigidBody) actor.Handle {
	return w.bodies.Insert(body)
}

// RemoveBody removes a rigid body and its manifolds. Joints still using it are removed by
// the next step.
func (w *World) RemoveBody(h actor.Handle) bool {
	if !w.bodies.Remove(h) {
		return false
	}
	w.manifolds.RemoveBody(h)

	return true
}

func (w *World) Body(h actor.Handle) (*actor.RigidBody, bool) {
	return w.bodies.Get(h)
}

// Bodies returns the arena holding the bodies of the world
func (w *World) Bodies() *actor.Arena {
	return w.bodies
}

// AddJoint adds a constraint between bodies of the world
func (w *World) AddJoint(joint constraint.Constraint) error {
	ha, hb := joint.Bodies()
	for _, h := range []actor.Handle{ha, hb} {
		if _, ok := w.bodies.Get(h); !ok {
			return errors.Wrapf(actor.ErrMissingBody, "adding joint on %v", h)
		}
	}

	w.joints = append(w.joints, joint)
	return nil
}

func (w *World) RemoveJoint(joint constraint.Constraint) bool {
	for i, j := range w.joints {
		if j == joint {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			return true
		}
	}

	return false
}

func (w *World) Joints() []constraint.Constraint {
	return append([]constraint.Constraint(nil), w.joints...)
}

func (w *World) Manifolds() *ManifoldCollector {
	return w.manifolds
}

// Step advances the world by the duration of a host frame, scaled by the time dilation.
// A disabled or paused world is left untouched, and an empty report is returned.
func (w *World) Step(frameDt float64) Report {
	dt := w.Config.TimeStep(frameDt)
	if dt <= 0 {
		return Report{}
	}

	w.applyGravity(dt)

	pairs := BroadPhase(w.bodies, dt, w.Config.Workers)
	manifoldContacts, ballisticContacts := NarrowPhase(w.bodies, pairs, dt, w.Config.CollisionMode, w.Config.Workers, w.logger)

	w.manifolds.RemoveExpired(w.bodies)
	for _, contact := range manifoldContacts {
		if err := w.manifolds.Add(w.bodies, contact); err != nil {
			w.logger.Warn("skipping contact", "bodyA", contact.BodyA, "bodyB", contact.BodyB, "error", err)
		}
	}

	constraintsCount := w.solve(dt)

	resolveBallistic(w.bodies, ballisticContacts, dt, w.Config.Workers, w.logger)

	report := Report{
		Time:           dt,
		Bodies:         w.bodies.Len(),
		Manifolds:      w.manifolds.Len(),
		CollisionPairs: len(pairs),
		Contacts:       len(manifoldContacts) + len(ballisticContacts),
		Constraints:    constraintsCount,
	}
	w.Events.emit(StepReportEvent{Report: report})
	w.Events.flush()

	return report
}

// applyGravity turns the gravity into a linear impulse, on finite-mass bodies only
func (w *World) applyGravity(dt float64) {
	w.bodies.Each(func(body *actor.RigidBody) {
		if body.HasInfiniteMass() {
			return
		}
		body.ApplyImpulseLinear(w.Config.Gravity.Mul(body.Mass() * dt))
	})
}

// solve runs the joints and the manifold constraints, and returns how many were solved.
// Joints referencing a missing body are removed.
func (w *World) solve(dt float64) int {
	constraints := make([]constraint.Constraint, 0, len(w.joints)+w.manifolds.ContactCount())
	constraints = append(constraints, w.joints...)
	constraints = append(constraints, w.manifolds.Constraints()...)

	n := 0
	for _, c := range constraints {
		if err := c.PreSolve(w.bodies, dt); err != nil {
			w.dropConstraint(c, err)
			continue
		}
		constraints[n] = c
		n++
	}
	constraints = constraints[:n]

	for range w.Config.ConstrainMaxIter {
		for _, c := range constraints {
			if err := c.Solve(w.bodies); err != nil {
				w.logger.Warn("solving constraint", "error", err)
			}
		}
	}

	for _, c := range constraints {
		c.PostSolve()
	}

	return len(constraints)
}

func (w *World) dropConstraint(c constraint.Constraint, err error) {
	ha, hb := c.Bodies()
	if w.RemoveJoint(c) {
		w.logger.Warn("removing joint", "bodyA", ha, "bodyB", hb, "error", err)
		return
	}

	w.logger.Warn("skipping constraint", "bodyA", ha, "bodyB", hb, "error", err)
}
