// Package events records the lifecycle of production batches. Every batch
// gets its own sequence of events keyed by batch id; subscribers are told
// about new events by type.
package events

import (
	"time"
)

// Event is one step in the life of a production batch
type Event interface {
	Type() string
	BatchID() string
	Payload() interface{}
	OccurredAt() time.Time
	// Sequence is the 1-based position of the event within its batch
	Sequence() int
}

// Handler reacts to batch events. Accepts filters inside a subscription.
type Handler interface {
	Handle(event Event) error
	Accepts(eventType string) bool
}

// Log is an append-only record of batch events
type Log interface {
	Append(batchID string, event Event) error
	Batch(batchID string, fromSequence int) ([]Event, error)
	Since(position int) ([]Event, error)
	Subscribe(eventTypes []string, handler Handler) error
	Unsubscribe(handler Handler) error
}

type record struct {
	kind     string
	batchID  string
	payload  interface{}
	at       time.Time
	sequence int
}

func (r record) Type() string          { return r.kind }
func (r record) BatchID() string       { return r.batchID }
func (r record) Payload() interface{}  { return r.payload }
func (r record) OccurredAt() time.Time { return r.at }
func (r record) Sequence() int         { return r.sequence }

// New creates an unsequenced event; the log assigns its sequence on Append
func New(eventType, batchID string, payload interface{}) Event {
	return record{
		kind:    eventType,
		batchID: batchID,
		payload: payload,
		at:      time.Now().UTC(),
	}
}

// HandlerFunc adapts a function to a Handler that accepts every type it is
// subscribed to
type HandlerFunc func(event Event) error

func (f HandlerFunc) Handle(event Event) error { return f(event) }

func (f HandlerFunc) Accepts(string) bool { return true }
