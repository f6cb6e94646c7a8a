package impulse

import (
	"cmp"

	"github.com/akmonengine/impulse/actor"
	"golang.org/x/exp/slices"
)

// CollisionPair is an unordered pair of bodies, stored in handle order so that
// NewCollisionPair(a, b) == NewCollisionPair(b, a)
type CollisionPair struct {
	BodyA actor.Handle
	BodyB actor.Handle
}

func NewCollisionPair(a, b actor.Handle) CollisionPair {
	if b.Less(a) {
		a, b = b, a
	}

	return CollisionPair{BodyA: a, BodyB: b}
}

// pseudoBody is a body with its bounds swept over the step
type pseudoBody struct {
	body   *actor.RigidBody
	bounds actor.AABB
}

type candidate struct {
	a, b *pseudoBody
}

// BroadPhase returns the pairs of bodies whose swept bounds overlap, using sweep and prune
// along the axis where the bodies are the most spread. Pairs of infinite-mass bodies are
// dropped.
func BroadPhase(bodies *actor.Arena, dt float64, workersCount int) []CollisionPair {
	pseudoBodies := make([]pseudoBody, 0, bodies.Len())
	bodies.Each(func(body *actor.RigidBody) {
		pseudoBodies = append(pseudoBodies, pseudoBody{body: body, bounds: body.SweptBounds(dt)})
	})

	axis := sweepAxis(pseudoBodies)
	slices.SortFunc(pseudoBodies, func(a, b pseudoBody) int {
		return cmp.Compare(a.bounds.Min[axis], b.bounds.Min[axis])
	})

	candidates := sweepAndPrune(pseudoBodies, axis)

	// Exact overlap on the 3 axes
	overlapping := make([]bool, len(candidates))
	task(workersCount, candidates, func(i int, c candidate) {
		overlapping[i] = c.a.bounds.Overlaps(c.b.bounds)
	})

	pairs := make([]CollisionPair, 0, len(candidates))
	for i, c := range candidates {
		if overlapping[i] {
			pairs = append(pairs, NewCollisionPair(c.a.body.Handle(), c.b.body.Handle()))
		}
	}

	return pairs
}

// sweepAndPrune expects pseudoBodies sorted by their minimum along axis
func sweepAndPrune(pseudoBodies []pseudoBody, axis int) []candidate {
	var candidates []candidate

	for i := range pseudoBodies {
		a := &pseudoBodies[i]

		for j := i + 1; j < len(pseudoBodies); j++ {
			b := &pseudoBodies[j]
			if b.bounds.Min[axis] > a.bounds.Max[axis] {
				break
			}

			if a.body.HasInfiniteMass() && b.body.HasInfiniteMass() {
				continue
			}

			candidates = append(candidates, candidate{a: a, b: b})
		}
	}

	return candidates
}

// sweepAxis returns the axis of greatest variance of the bounds centers
func sweepAxis(pseudoBodies []pseudoBody) int {
	if len(pseudoBodies) < 2 {
		return 0
	}

	var sum, sumSquared [3]float64
	for _, pb := range pseudoBodies {
		center := pb.bounds.Center()
		for axis := range 3 {
			sum[axis] += center[axis]
			sumSquared[axis] += center[axis] * center[axis]
		}
	}

	n := float64(len(pseudoBodies))
	best, bestVariance := 0, -1.0
	for axis := range 3 {
		mean := sum[axis] / n
		variance := sumSquared[axis]/n - mean*mean
		if variance > bestVariance {
			best, bestVariance = axis, variance
		}
	}

	return best
}
