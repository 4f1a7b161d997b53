package graph

import (
	"context"
	"sync"
	"time"
)

// LivenessChecker answers whether flowID is still the active flow, the Go
// equivalent of original_source's `settings.get("active_ai_flow")`
// comparison inside RepeaterExecutor. A repeater's pending re-run is
// abandoned once its flow stops being active.
type LivenessChecker interface {
	IsActive(flowID string) bool
}

// FlowLookup resolves a flow definition by id at spawn time, mirroring
// original_source re-constructing `FlowRunner(fid)` (which re-reads the
// current flow definition) rather than closing over a stale copy.
type FlowLookup interface {
	Lookup(ctx context.Context, flowID string) (*Flow, bool, error)
}

// Scheduler drives repeater-triggered background re-runs of a flow. Each
// call to Spawn corresponds to one RepeaterExecutor firing: it sleeps the
// configured delay, re-checks liveness, and if the flow is still active,
// re-runs it from the repeater's node, exactly as original_source's
// `trigger_next` coroutine does with `asyncio.create_task`.
type Scheduler struct {
	engine   *Engine
	flows    FlowLookup
	liveness LivenessChecker
	metrics  *Metrics

	mu      sync.Mutex
	cancels map[uint64]context.CancelFunc
	nextID  uint64
	wg      sync.WaitGroup
}

// NewScheduler builds a Scheduler bound to engine for execution, flows for
// re-resolving flow definitions, and liveness for the active-flow check.
func NewScheduler(engine *Engine, flows FlowLookup, liveness LivenessChecker, metrics *Metrics) *Scheduler {
	return &Scheduler{
		engine:   engine,
		flows:    flows,
		liveness: liveness,
		metrics:  metrics,
		cancels:  make(map[uint64]context.CancelFunc),
	}
}

// Spawn schedules one delayed re-run of flowID starting at startNodeID
// with the given input, cancellable via CancelAll, or automatically
// abandoned if the flow stops being active before delay elapses.
func (s *Scheduler) Spawn(parent context.Context, flowID, startNodeID string, input Map, delay time.Duration) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.cancels[id] = cancel
	s.mu.Unlock()
	s.metrics.repeaterScheduled()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, id)
			s.mu.Unlock()
		}()
		defer cancel()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !s.liveness.IsActive(flowID) {
			return
		}

		flow, ok, err := s.flows.Lookup(ctx, flowID)
		if err != nil || !ok {
			return
		}
		if !s.liveness.IsActive(flowID) {
			return
		}

		runInput := make(Map, len(input)+1)
		for k, v := range input {
			runInput[k] = v
		}
		count, _ := runInput["_repeat_count"].(int)
		runInput["_repeat_count"] = count + 1

		_, _ = s.engine.Run(ctx, flow, flowID, runInput, startNodeID)
	}()
}

// CancelAll cancels every pending scheduled run and blocks until their
// goroutines have observed the cancellation, matching the Background
// Flow Scheduler's `cancel_all` operation (spec.md §4.F).
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
		s.metrics.repeaterCancelled()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
