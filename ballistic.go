package impulse

import (
	"cmp"
	"log/slog"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"golang.org/x/exp/slices"
)

// resolveBallistic moves every body through dt, stopping at the time of impact of each
// contact to resolve it
func resolveBallistic(bodies *actor.Arena, contacts []constraint.Contact, dt float64, workersCount int, logger *slog.Logger) {
	slices.SortStableFunc(contacts, func(a, b constraint.Contact) int {
		return cmp.Compare(a.TimeOfImpact, b.TimeOfImpact)
	})

	all := bodies.Bodies()
	accumulated := 0.0
	for _, contact := range contacts {
		a, b, err := bodies.Pair(contact.BodyA, contact.BodyB)
		if err != nil {
			logger.Warn("skipping contact", "bodyA", contact.BodyA, "bodyB", contact.BodyB, "error", err)
			continue
		}

		slice := contact.TimeOfImpact - accumulated
		update(all, slice, workersCount)
		accumulated += slice

		if !constraint.ResolveContact(a, b, contact) {
			logger.Debug("skipped friction impulse", "bodyA", contact.BodyA, "bodyB", contact.BodyB)
		}
	}

	update(all, dt-accumulated, workersCount)
}

func update(bodies []*actor.RigidBody, dt float64, workersCount int) {
	if dt <= 0 {
		return
	}

	task(workersCount, bodies, func(_ int, body *actor.RigidBody) {
		body.Update(dt)
	})
}
