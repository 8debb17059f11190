package events

import (
	"sync"

	"go.uber.org/zap"
)

// MemoryLog keeps batch events in process. Handlers run in their own
// goroutine once Append has released the lock, so a slow subscriber never
// holds up a commit.
type MemoryLog struct {
	mu       sync.RWMutex
	batches  map[string][]Event
	ordered  []Event
	handlers map[string][]Handler
	logger   *zap.Logger
}

var _ Log = (*MemoryLog)(nil)

// NewMemoryLog creates an empty log. A nil logger discards handler errors.
func NewMemoryLog(logger *zap.Logger) *MemoryLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryLog{
		batches:  make(map[string][]Event),
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Append stamps the event with the next sequence of its batch and notifies
// the handlers subscribed to its type
func (l *MemoryLog) Append(batchID string, event Event) error {
	l.mu.Lock()
	stored := record{
		kind:     event.Type(),
		batchID:  batchID,
		payload:  event.Payload(),
		at:       event.OccurredAt(),
		sequence: len(l.batches[batchID]) + 1,
	}
	l.batches[batchID] = append(l.batches[batchID], stored)
	l.ordered = append(l.ordered, stored)
	targets := make([]Handler, 0, len(l.handlers[stored.kind]))
	for _, h := range l.handlers[stored.kind] {
		if h.Accepts(stored.kind) {
			targets = append(targets, h)
		}
	}
	l.mu.Unlock()

	for _, h := range targets {
		go l.deliver(h, stored)
	}
	return nil
}

func (l *MemoryLog) deliver(h Handler, event Event) {
	if err := h.Handle(event); err != nil {
		l.logger.Warn("Batch event handler failed",
			zap.String("type", event.Type()),
			zap.String("batch_id", event.BatchID()),
			zap.Int("sequence", event.Sequence()),
			zap.Error(err),
		)
	}
}

// Batch returns the events of one batch from fromSequence on
func (l *MemoryLog) Batch(batchID string, fromSequence int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return tail(l.batches[batchID], fromSequence-1), nil
}

// Since returns every event from a 0-based position in append order
func (l *MemoryLog) Since(position int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return tail(l.ordered, position), nil
}

func tail(events []Event, from int) []Event {
	if from < 0 {
		from = 0
	}
	if from >= len(events) {
		return []Event{}
	}
	return append([]Event(nil), events[from:]...)
}

// Subscribe registers handler for the given event types
func (l *MemoryLog) Subscribe(eventTypes []string, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range eventTypes {
		l.handlers[t] = append(l.handlers[t], handler)
	}
	return nil
}

// Unsubscribe drops handler from every type. Handlers are compared with ==,
// so use a pointer type for anything that is not comparable.
func (l *MemoryLog) Unsubscribe(handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for t, hs := range l.handlers {
		kept := hs[:0:0]
		for _, h := range hs {
			if h != handler {
				kept = append(kept, h)
			}
		}
		l.handlers[t] = kept
	}
	return nil
}
