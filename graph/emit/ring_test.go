// Package emit provides event emission and observability for graph execution.
package emit

import "testing"

// TestRingEmitter_Bounded verifies the ring discards the oldest entry once
// capacity is exceeded (spec.md §4.G default capacity 50).
func TestRingEmitter_Bounded(t *testing.T) {
	r := NewRingEmitter(3)

	for i := 0; i < 5; i++ {
		r.Emit(Event{NodeID: string(rune('a' + i)), Msg: "start"})
	}

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	// Newest first: e, d, c.
	want := []string{"e", "d", "c"}
	for i, w := range want {
		if snap[i].Event.NodeID != w {
			t.Errorf("snap[%d].NodeID = %q, want %q", i, snap[i].Event.NodeID, w)
		}
	}
}

// TestRingEmitter_RecentSince verifies incremental polling by sequence
// number returns only events newer than the given cursor, oldest first.
func TestRingEmitter_RecentSince(t *testing.T) {
	r := NewRingEmitter(10)

	r.Emit(Event{NodeID: "n1", Msg: "start"})
	r.Emit(Event{NodeID: "n1", Msg: "end"})
	cursor := r.Snapshot()[0].Seq
	r.Emit(Event{NodeID: "n2", Msg: "start"})

	recent := r.RecentSince(cursor)
	if len(recent) != 1 {
		t.Fatalf("expected 1 event since cursor, got %d", len(recent))
	}
	if recent[0].Event.NodeID != "n2" {
		t.Errorf("recent[0].NodeID = %q, want n2", recent[0].Event.NodeID)
	}
}

// TestRingEmitter_DisabledSkipsEvents verifies that disabling the ring
// (mirroring the global debug flag) drops all Emit calls.
func TestRingEmitter_DisabledSkipsEvents(t *testing.T) {
	r := NewRingEmitter(5)
	r.SetEnabled(false)

	r.Emit(Event{NodeID: "n1", Msg: "start"})

	if got := len(r.Snapshot()); got != 0 {
		t.Fatalf("expected 0 entries while disabled, got %d", got)
	}
	if r.Enabled() {
		t.Fatalf("expected Enabled() == false")
	}
}

// TestRingEmitter_ClearIsIdempotent verifies repeated Clear calls are a
// no-op after the first (spec.md §8 round-trip laws).
func TestRingEmitter_ClearIsIdempotent(t *testing.T) {
	r := NewRingEmitter(5)
	r.Emit(Event{NodeID: "n1", Msg: "start"})

	r.Clear()
	r.Clear()

	if got := len(r.Snapshot()); got != 0 {
		t.Fatalf("expected 0 entries after Clear, got %d", got)
	}
}
