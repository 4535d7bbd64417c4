package events

import (
	"sync"

	"subledger/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (receipts, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies Emitter while discarding all events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers emitted events in order. The runtime keeps one per
// transaction and copies the buffer into the receipt on commit.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil || evt.Event() == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, evt.Event().Clone())
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []types.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Clone()
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Envelope adapts a raw event payload to the Event interface.
type Envelope struct {
	Payload *types.Event
}

func (e Envelope) EventType() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Type
}

func (e Envelope) Event() *types.Event { return e.Payload }
