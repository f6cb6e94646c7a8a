package impulse

import (
	"log/slog"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/intersect"
	"github.com/pkg/errors"
)

type narrowResult struct {
	contact constraint.Contact
	hit     bool
	err     error
}

// NarrowPhase tests every pair over dt. Contacts without time of impact are returned for the
// manifolds, the others for the ballistic sequencing. Pairs that cannot be tested are logged
// and skipped.
func NarrowPhase(bodies *actor.Arena, pairs []CollisionPair, dt float64, mode CollisionMode, workersCount int, logger *slog.Logger) (manifoldContacts, ballisticContacts []constraint.Contact) {
	results := make([]narrowResult, len(pairs))

	// Bodies are only read here, continuous tests working on copies
	task(workersCount, pairs, func(i int, pair CollisionPair) {
		a, b, err := bodies.Pair(pair.BodyA, pair.BodyB)
		if err != nil {
			results[i].err = err
			return
		}

		results[i].contact, results[i].hit, results[i].err = intersect.Intersect(a, b, dt, mode == CollisionContinuous)
	})

	for i, result := range results {
		switch {
		case errors.Is(result.err, intersect.ErrUnsupportedPair):
			logger.Debug("skipping pair", "bodyA", pairs[i].BodyA, "bodyB", pairs[i].BodyB, "error", result.err)
		case result.err != nil:
			logger.Warn("skipping pair", "bodyA", pairs[i].BodyA, "bodyB", pairs[i].BodyB, "error", result.err)
		case !result.hit:
		case result.contact.TimeOfImpact == 0:
			manifoldContacts = append(manifoldContacts, result.contact)
		default:
			ballisticContacts = append(ballisticContacts, result.contact)
		}
	}

	return manifoldContacts, ballisticContacts
}
