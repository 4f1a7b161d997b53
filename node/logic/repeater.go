package logic

import (
	"context"
	"time"

	"github.com/flowrunner/flowrunner/graph"
)

// spawnContext is used as the parent for scheduled re-runs instead of the
// triggering node's own context: a repeater's scheduled run is a
// fire-and-forget background task (original_source's
// `asyncio.create_task`) that must outlive the request that spawned it.
var spawnContext = context.Background()

// RepeaterExecutor grounds spec.md §4.E.5 and original_source's
// RepeaterExecutor: it passes its input through unchanged and, if the
// owning flow is still the active flow, schedules a future re-run of the
// same flow starting at its own node via the Background Flow Scheduler,
// with _repeat_count incremented.
type RepeaterExecutor struct {
	scheduler *graph.Scheduler
	liveness  graph.LivenessChecker
}

// NewRepeaterExecutorFactory returns a Constructor bound to scheduler and
// liveness, since unlike the other logic executors a repeater needs a
// handle to the engine's background scheduler rather than being
// constructible with zero arguments.
func NewRepeaterExecutorFactory(scheduler *graph.Scheduler, liveness graph.LivenessChecker) graph.Constructor {
	return func() graph.Executor {
		return &RepeaterExecutor{scheduler: scheduler, liveness: liveness}
	}
}

func (r *RepeaterExecutor) Receive(ctx context.Context, input any, config graph.Map) (any, error) {
	if input == nil {
		return graph.Stopped, nil
	}

	flowID, _ := config["_flow_id"].(string)
	nodeID, _ := config["_node_id"].(string)

	if flowID != "" && !r.liveness.IsActive(flowID) {
		return input, nil
	}

	delay := 5.0
	if v, ok := config["delay"]; ok {
		switch n := v.(type) {
		case float64:
			delay = n
		case int:
			delay = float64(n)
		}
	}
	maxRepeats := 1
	if v, ok := config["max_repeats"]; ok {
		switch n := v.(type) {
		case float64:
			maxRepeats = int(n)
		case int:
			maxRepeats = n
		}
	}

	currentRepeat := 0
	inMap, _ := input.(graph.Map)
	if inMap != nil {
		if n, ok := inMap["_repeat_count"].(int); ok {
			currentRepeat = n
		}
	}

	if flowID != "" && nodeID != "" && (maxRepeats == 0 || currentRepeat < maxRepeats) {
		r.scheduler.Spawn(spawnContext, flowID, nodeID, inMap, time.Duration(delay*float64(time.Second)))
	}

	return input, nil
}

func (r *RepeaterExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}
