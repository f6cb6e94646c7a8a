package impulse

import (
	"github.com/akmonengine/impulse/actor"
)

const (
	COLLISION_ENTER EventType = iota
	COLLISION_STAY
	COLLISION_EXIT
	STEP_REPORT
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// CollisionEnterEvent is sent when a manifold is created for a pair
type CollisionEnterEvent struct {
	BodyA actor.Handle
	BodyB actor.Handle
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

// CollisionStayEvent is sent every step a manifold keeps at least one point
type CollisionStayEvent struct {
	BodyA  actor.Handle
	BodyB  actor.Handle
	Points int
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

// CollisionExitEvent is sent when a manifold is removed, its bodies being possibly gone
type CollisionExitEvent struct {
	BodyA actor.Handle
	BodyB actor.Handle
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Report counts what a step went through
type Report struct {
	// Simulated duration, 0 for a skipped step
	Time           float64
	Bodies         int
	Manifolds      int
	CollisionPairs int
	Contacts       int
	Constraints    int
}

type StepReportEvent struct {
	Report Report
}

func (e StepReportEvent) Type() EventType { return STEP_REPORT }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers the events of a step, and sends them to the listeners once the step is over
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event
}

func NewEvents() Events {
	return Events{
		listeners: make(map[EventType][]EventListener),
		buffer:    make([]Event, 0, 256),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) emit(event Event) {
	e.buffer = append(e.buffer, event)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
