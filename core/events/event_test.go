package events

import (
	"testing"

	"subledger/core/types"
)

func TestRecorderKeepsOrderAndCopies(t *testing.T) {
	rec := &Recorder{}
	first := &types.Event{Type: "a", Attributes: map[string]string{"k": "1"}}
	rec.Emit(Envelope{Payload: first})
	rec.Emit(Envelope{Payload: &types.Event{Type: "b"}})
	rec.Emit(Envelope{})

	first.Attributes["k"] = "mutated"

	got := rec.Events()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != "a" || got[1].Type != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Attributes["k"] != "1" {
		t.Fatalf("recorder did not copy attributes: %v", got[0].Attributes)
	}

	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}
