package graph

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeLiveness lets a test flip which flow id is considered active,
// modeling original_source's mutable `settings["active_ai_flow"]`.
type fakeLiveness struct {
	mu     sync.RWMutex
	active string
}

func (f *fakeLiveness) IsActive(flowID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.active == flowID
}

func (f *fakeLiveness) setActive(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = id
}

// fakeFlowLookup always returns the same flow, modeling a scheduler that
// re-resolves the flow definition fresh on every scheduled re-run.
type fakeFlowLookup struct {
	flow *Flow
}

func (f *fakeFlowLookup) Lookup(_ context.Context, flowID string) (*Flow, bool, error) {
	if f.flow.ID != flowID {
		return nil, false, nil
	}
	return f.flow, true, nil
}

// Scenario 5: repeater activation guard — spec.md §8 scenario 5.
func TestSchedulerStopsAfterActiveFlowChanges(t *testing.T) {
	resolver := newTestResolver()
	var runCount int32
	resolver.register("logic", "repeat_target", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) {
				atomic.AddInt32(&runCount, 1)
				return input, nil
			},
		}
	})

	flow := &Flow{
		ID:    "F1",
		Nodes: []Node{newNode("repeater", "logic", "repeat_target")},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	liveness := &fakeLiveness{active: "F1"}
	lookup := &fakeFlowLookup{flow: flow}
	sched := NewScheduler(engine, lookup, liveness, nil)

	delay := 20 * time.Millisecond
	sched.Spawn(context.Background(), "F1", "repeater", Map{}, delay)

	liveness.setActive("")

	time.Sleep(3 * delay)
	sched.CancelAll()

	if atomic.LoadInt32(&runCount) != 0 {
		t.Errorf("expected the scheduled re-run to be dropped once the flow was deactivated, ran %d times", runCount)
	}
}

func TestSchedulerRunsWhileFlowStaysActive(t *testing.T) {
	resolver := newTestResolver()
	var runCount int32
	resolver.register("logic", "repeat_target", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) {
				atomic.AddInt32(&runCount, 1)
				return input, nil
			},
		}
	})

	flow := &Flow{
		ID:    "F1",
		Nodes: []Node{newNode("repeater", "logic", "repeat_target")},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	liveness := &fakeLiveness{active: "F1"}
	lookup := &fakeFlowLookup{flow: flow}
	sched := NewScheduler(engine, lookup, liveness, nil)

	sched.Spawn(context.Background(), "F1", "repeater", Map{}, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	sched.CancelAll()

	if atomic.LoadInt32(&runCount) != 1 {
		t.Errorf("expected the scheduled re-run to fire exactly once while active, ran %d times", runCount)
	}
}

func TestSchedulerCancelAllWaitsForPendingRuns(t *testing.T) {
	resolver := newTestResolver()
	flow := &Flow{ID: "F1", Nodes: []Node{newNode("n", "logic", "missing")}}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	liveness := &fakeLiveness{active: "F1"}
	lookup := &fakeFlowLookup{flow: flow}
	sched := NewScheduler(engine, lookup, liveness, nil)

	sched.Spawn(context.Background(), "F1", "n", Map{}, 5*time.Millisecond)
	sched.CancelAll()

	sched.mu.Lock()
	pending := len(sched.cancels)
	sched.mu.Unlock()
	if pending != 0 {
		t.Errorf("expected zero tracked tasks after CancelAll, got %d", pending)
	}
}
