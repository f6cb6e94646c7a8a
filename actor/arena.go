package actor

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMissingBody is returned when a handle refers to a removed or unknown body
	ErrMissingBody = errors.New("missing body")
	// ErrSameBody is returned when a pair of handles refers twice to the same body
	ErrSameBody = errors.New("a body cannot be paired with itself")
)

// Handle identifies a body in an Arena. The generation makes handles of removed bodies stale,
// even once their slot is reused.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h was never assigned by an Arena
func (h Handle) IsZero() bool {
	return h.generation == 0
}

// Less orders handles, giving body pairs a canonical form
func (h Handle) Less(other Handle) bool {
	if h.index != other.index {
		return h.index < other.index
	}

	return h.generation < other.generation
}

func (h Handle) String() string {
	return fmt.Sprintf("body(%d:%d)", h.index, h.generation)
}

type slot struct {
	body       *RigidBody
	generation uint32
}

// Arena owns the bodies of a world in index addressed slots
type Arena struct {
	slots []slot
	free  []uint32
	count int
}

func NewArena() *Arena {
	return &Arena{}
}

// Insert stores body and returns its handle
func (a *Arena) Insert(body *RigidBody) Handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}

	s := &a.slots[index]
	s.generation++
	s.body = body
	a.count++

	body.handle = Handle{index: index, generation: s.generation}
	return body.handle
}

// Remove deletes the body of h, returning false when h is already stale
func (a *Arena) Remove(h Handle) bool {
	if _, ok := a.Get(h); !ok {
		return false
	}

	a.slots[h.index].body = nil
	a.free = append(a.free, h.index)
	a.count--

	return true
}

func (a *Arena) Get(h Handle) (*RigidBody, bool) {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil, false
	}

	s := a.slots[h.index]
	if s.generation != h.generation || s.body == nil {
		return nil, false
	}

	return s.body, true
}

// Pair returns the two distinct bodies of ha and hb, so that both sides of a contact or a
// joint can be mutated at once.
func (a *Arena) Pair(ha, hb Handle) (*RigidBody, *RigidBody, error) {
	if ha == hb {
		return nil, nil, errors.Wrapf(ErrSameBody, "%v", ha)
	}

	bodyA, ok := a.Get(ha)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMissingBody, "%v", ha)
	}
	bodyB, ok := a.Get(hb)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMissingBody, "%v", hb)
	}

	return bodyA, bodyB, nil
}

// Len returns the number of live bodies
func (a *Arena) Len() int {
	return a.count
}

// Each calls fn on every live body, in slot order
func (a *Arena) Each(fn func(body *RigidBody)) {
	for _, s := range a.slots {
		if s.body != nil {
			fn(s.body)
		}
	}
}

// Bodies returns the live bodies, in slot order
func (a *Arena) Bodies() []*RigidBody {
	bodies := make([]*RigidBody, 0, a.count)
	a.Each(func(body *RigidBody) {
		bodies = append(bodies, body)
	})

	return bodies
}
