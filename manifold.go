package impulse

import (
	"log/slog"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/gjk"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// MAX_CONTACTS is the number of points a manifold can hold
	MAX_CONTACTS = 4
	// CONTACT_DISTANCE_THRESHOLD is how close two points of a manifold can be, and how far a
	// point can drift tangentially before it is evicted
	CONTACT_DISTANCE_THRESHOLD = 0.02
	// CONTACT_SEPARATION_TOLERANCE is how far apart the points can be along the normal and
	// still touch, matching the biased GJK hit distance
	CONTACT_SEPARATION_TOLERANCE = 2 * gjk.Bias
)

type manifoldPoint struct {
	contact    constraint.Contact
	constraint *constraint.Penetration
}

// Manifold holds the persistent contact points of a pair of bodies, each one solved by a
// penetration constraint. Contacts are stored with BodyA and BodyB in the manifold order.
type Manifold struct {
	BodyA  actor.Handle
	BodyB  actor.Handle
	points []manifoldPoint
}

func newManifold(pair CollisionPair) *Manifold {
	return &Manifold{
		BodyA:  pair.BodyA,
		BodyB:  pair.BodyB,
		points: make([]manifoldPoint, 0, MAX_CONTACTS),
	}
}

// Len returns the number of contact points
func (m *Manifold) Len() int {
	return len(m.points)
}

func (m *Manifold) Contact(i int) constraint.Contact {
	return m.points[i].contact
}

func (m *Manifold) Constraint(i int) *constraint.Penetration {
	return m.points[i].constraint
}

// add stores contact unless a point already lies within CONTACT_DISTANCE_THRESHOLD of it, in
// which case that point is refreshed and keeps its cached impulses.
// A full manifold keeps its best spread points: the point closest to the centroid of all the
// points, candidate included, is the one discarded.
func (m *Manifold) add(a, b *actor.RigidBody, contact constraint.Contact) bool {
	if contact.BodyA != m.BodyA {
		contact = contact.Swapped()
	}

	newA := a.LocalToWorld(contact.LocalPointA)
	newB := b.LocalToWorld(contact.LocalPointB)
	for i, p := range m.points {
		oldA := a.LocalToWorld(p.contact.LocalPointA)
		oldB := b.LocalToWorld(p.contact.LocalPointB)

		if newA.Sub(oldA).LenSqr() < CONTACT_DISTANCE_THRESHOLD*CONTACT_DISTANCE_THRESHOLD ||
			newB.Sub(oldB).LenSqr() < CONTACT_DISTANCE_THRESHOLD*CONTACT_DISTANCE_THRESHOLD {
			m.points[i].contact = contact
			p.constraint.Refresh(a, b, contact)
			return false
		}
	}

	point := manifoldPoint{
		contact:    contact,
		constraint: constraint.NewPenetration(a, b, contact),
	}

	if len(m.points) < MAX_CONTACTS {
		m.points = append(m.points, point)
		return true
	}

	centroid := contact.LocalPointA
	for _, p := range m.points {
		centroid = centroid.Add(p.contact.LocalPointA)
	}
	centroid = centroid.Mul(1.0 / float64(len(m.points)+1))

	slot := -1
	minDistance := centroid.Sub(contact.LocalPointA).LenSqr()
	for i, p := range m.points {
		if distance := centroid.Sub(p.contact.LocalPointA).LenSqr(); distance < minDistance {
			minDistance = distance
			slot = i
		}
	}

	if slot < 0 {
		return false
	}
	m.points[slot] = point

	return true
}

// removeExpired evicts the points that drifted tangentially or separated beyond
// CONTACT_SEPARATION_TOLERANCE
func (m *Manifold) removeExpired(a, b *actor.RigidBody) {
	m.points = slices.DeleteFunc(m.points, func(p manifoldPoint) bool {
		worldA := a.LocalToWorld(p.contact.LocalPointA)
		worldB := b.LocalToWorld(p.contact.LocalPointB)
		normal := p.constraint.WorldNormal(a, b)

		ab := worldB.Sub(worldA)
		depth := normal.Dot(ab)
		tangent := ab.Sub(normal.Mul(depth))

		return tangent.LenSqr() >= CONTACT_DISTANCE_THRESHOLD*CONTACT_DISTANCE_THRESHOLD || depth > CONTACT_SEPARATION_TOLERANCE
	})
}

// ManifoldCollector owns the manifolds of a world, which are its only state kept from one
// step to the next with the cached impulses of their constraints
type ManifoldCollector struct {
	manifolds map[CollisionPair]*Manifold
	events    *Events
	logger    *slog.Logger
}

// NewManifoldCollector sends collision events to events, when not nil
func NewManifoldCollector(events *Events, logger *slog.Logger) *ManifoldCollector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &ManifoldCollector{
		manifolds: make(map[CollisionPair]*Manifold),
		events:    events,
		logger:    logger,
	}
}

// Add inserts a contact without time of impact in the manifold of its pair, creating it if
// needed
func (c *ManifoldCollector) Add(bodies *actor.Arena, contact constraint.Contact) error {
	pair := NewCollisionPair(contact.BodyA, contact.BodyB)

	a, b, err := bodies.Pair(pair.BodyA, pair.BodyB)
	if err != nil {
		return errors.Wrap(err, "adding contact")
	}

	manifold, ok := c.manifolds[pair]
	if !ok {
		manifold = newManifold(pair)
	}

	if manifold.add(a, b, contact) && !ok {
		c.manifolds[pair] = manifold
		c.emit(CollisionEnterEvent{BodyA: pair.BodyA, BodyB: pair.BodyB})
	}

	return nil
}

// RemoveExpired revalidates every point against the current poses. Manifolds left empty, or
// whose bodies are gone, are removed.
func (c *ManifoldCollector) RemoveExpired(bodies *actor.Arena) {
	for _, pair := range c.pairs() {
		manifold := c.manifolds[pair]

		a, b, err := bodies.Pair(manifold.BodyA, manifold.BodyB)
		if err != nil {
			c.logger.Warn("removing manifold", "bodyA", manifold.BodyA, "bodyB", manifold.BodyB, "error", err)
			c.remove(pair)
			continue
		}

		manifold.removeExpired(a, b)
		if manifold.Len() == 0 {
			c.remove(pair)
			continue
		}

		c.emit(CollisionStayEvent{BodyA: pair.BodyA, BodyB: pair.BodyB, Points: manifold.Len()})
	}
}

// RemoveBody drops the manifolds of a body
func (c *ManifoldCollector) RemoveBody(h actor.Handle) {
	for _, pair := range c.pairs() {
		if pair.BodyA == h || pair.BodyB == h {
			c.remove(pair)
		}
	}
}

func (c *ManifoldCollector) remove(pair CollisionPair) {
	delete(c.manifolds, pair)
	c.emit(CollisionExitEvent{BodyA: pair.BodyA, BodyB: pair.BodyB})
}

func (c *ManifoldCollector) emit(event Event) {
	if c.events != nil {
		c.events.emit(event)
	}
}

// Get returns the manifold of a pair
func (c *ManifoldCollector) Get(pair CollisionPair) (*Manifold, bool) {
	manifold, ok := c.manifolds[pair]
	return manifold, ok
}

// Len returns the number of manifolds
func (c *ManifoldCollector) Len() int {
	return len(c.manifolds)
}

// ContactCount returns the number of points over all manifolds
func (c *ManifoldCollector) ContactCount() int {
	count := 0
	for _, manifold := range c.manifolds {
		count += manifold.Len()
	}

	return count
}

// Each calls fn on every manifold, in pair order
func (c *ManifoldCollector) Each(fn func(manifold *Manifold)) {
	for _, pair := range c.pairs() {
		fn(c.manifolds[pair])
	}
}

// Constraints returns the penetration constraints of every manifold, in pair order
func (c *ManifoldCollector) Constraints() []constraint.Constraint {
	constraints := make([]constraint.Constraint, 0, len(c.manifolds)*MAX_CONTACTS)
	c.Each(func(manifold *Manifold) {
		for _, p := range manifold.points {
			constraints = append(constraints, p.constraint)
		}
	})

	return constraints
}

// pairs returns the manifold keys sorted, the solver order depending on it
func (c *ManifoldCollector) pairs() []CollisionPair {
	pairs := maps.Keys(c.manifolds)
	slices.SortFunc(pairs, comparePairs)

	return pairs
}

func comparePairs(a, b CollisionPair) int {
	switch {
	case a.BodyA.Less(b.BodyA):
		return -1
	case b.BodyA.Less(a.BodyA):
		return 1
	case a.BodyB.Less(b.BodyB):
		return -1
	case b.BodyB.Less(a.BodyB):
		return 1
	default:
		return 0
	}
}
