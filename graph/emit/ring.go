package emit

import (
	"context"
	"sync"
)

// DefaultRingCapacity is the Debug Log Ring's default bound (spec.md §4.G):
// the ring keeps only the most recent DefaultRingCapacity events, discarding
// the oldest once full, the same "debug_logger" role original_source's
// `core/debug.py` plays for per-node start/input_resolved/end/error events.
const DefaultRingCapacity = 50

// RingEvent is a single entry in the Debug Log Ring: a node-scoped event
// tagged with a monotonically increasing sequence number so callers can
// ask for "everything since sequence N" without racing a wall-clock.
type RingEvent struct {
	Seq   uint64
	Event Event
}

// RingEmitter implements Emitter as a bounded FIFO of the most recent
// events, gated by an Enabled flag mirroring original_source's
// `settings.get("debug_mode")` check around every `debug_logger.log` call.
// Unlike BufferedEmitter, which grows without bound per runID, RingEmitter
// keeps a single fixed-capacity ring shared across all runs, because the
// Debug Log Ring is a global operator-facing tail, not a per-run history.
type RingEmitter struct {
	mu      sync.Mutex
	cap     int
	buf     []RingEvent
	start   int
	size    int
	nextSeq uint64
	enabled bool
}

// NewRingEmitter creates a RingEmitter with the given capacity (<=0 uses
// DefaultRingCapacity). The ring starts enabled; use SetEnabled to gate it
// behind a global debug flag the way original_source gates debug_logger.
func NewRingEmitter(capacity int) *RingEmitter {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &RingEmitter{
		cap:     capacity,
		buf:     make([]RingEvent, capacity),
		enabled: true,
	}
}

// SetEnabled toggles whether Emit/EmitBatch record events.
func (r *RingEmitter) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Enabled reports the current debug flag state.
func (r *RingEmitter) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *RingEmitter) log(event Event) {
	if !r.enabled {
		return
	}
	r.nextSeq++
	entry := RingEvent{Seq: r.nextSeq, Event: event}
	idx := (r.start + r.size) % r.cap
	r.buf[idx] = entry
	if r.size < r.cap {
		r.size++
	} else {
		r.start = (r.start + 1) % r.cap
	}
}

// Emit appends event to the ring if debug mode is enabled, evicting the
// oldest entry once the ring is full.
func (r *RingEmitter) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log(event)
}

// EmitBatch appends each event in order.
func (r *RingEmitter) EmitBatch(_ context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.log(e)
	}
	return nil
}

// Flush is a no-op: the ring has no external backend to drain.
func (r *RingEmitter) Flush(_ context.Context) error {
	return nil
}

// Snapshot returns a copy of every event currently held, newest first
// (spec.md §4.G: "snapshot() → entries newest-first").
func (r *RingEmitter) Snapshot() []RingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RingEvent, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+r.size-1-i)%r.cap]
	}
	return out
}

// RecentSince returns events with Seq strictly greater than sinceSeq,
// oldest first, enabling incremental polling without re-reading the whole
// ring on every call.
func (r *RingEmitter) RecentSince(sinceSeq uint64) []RingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RingEvent
	for i := 0; i < r.size; i++ {
		entry := r.buf[(r.start+i)%r.cap]
		if entry.Seq > sinceSeq {
			out = append(out, entry)
		}
	}
	return out
}

// Clear empties the ring without affecting the enabled flag or sequence
// counter, so RecentSince cursors taken before a Clear don't replay stale
// entries once new ones arrive.
func (r *RingEmitter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = 0
	r.size = 0
}
