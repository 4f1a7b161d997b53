package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/flowrunner/flowrunner/graph/emit"
)

// Resolver looks up the Constructor registered for a (moduleID, nodeTypeID)
// pair. The registry package's Resolver implements this; Engine depends
// only on the interface to avoid an import cycle with registry, which in
// turn imports graph for Executor/Constructor.
type Resolver interface {
	Resolve(moduleID, nodeTypeID string) (Constructor, bool)
}

// Engine runs Flows against a Resolver, grounded on the teacher's
// graph/engine.go Engine type but built around dynamic Map/any state
// instead of a typed generic Reducer, per SPEC_FULL.md §1.A.
type Engine struct {
	resolver Resolver
	cfg      *engineConfig
}

// New builds an Engine. Options are applied in order; a later Option wins
// over an earlier one for the same field.
func New(resolver Resolver, opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &Engine{resolver: resolver, cfg: cfg}, nil
}

// Run executes flow starting either from its full topological order (when
// startNodeID is empty) or from a single forced start node, matching
// original_source's FlowRunner.run. It returns the output of the node that
// comes last in the computed execution order among those with a non-nil,
// non-stopped output (or an empty Map if there is none). It returns a
// *RunError, before any node runs, when flow is nil or startNodeID is not
// in the flow, and a *NodeError when a node execution failed fatally — in
// which case the returned Map still carries {"error": "..."} so callers that only
// inspect the Map (as the original chat UI did) keep working.
func (e *Engine) Run(ctx context.Context, flow *Flow, runID string, initialInput any, startNodeID string) (any, error) {
	if flow == nil {
		return nil, &RunError{FlowID: runID, Reason: ErrFlowNotFound}
	}
	nodes := flow.nodeByID()
	if startNodeID != "" {
		if _, ok := nodes[startNodeID]; !ok {
			return nil, &RunError{FlowID: flow.ID, Reason: fmt.Errorf("%w: %s", ErrStartNodeNotFound, startNodeID)}
		}
	}

	e.cfg.metrics.runStarted()
	defer e.cfg.metrics.runFinished()

	bridgeGroups := buildBridgeGroups(flow)
	order := computeExecutionOrder(flow, bridgeGroups)

	var queue []string
	if startNodeID != "" {
		queue = []string{startNodeID}
	} else {
		queue = append(queue, order...)
	}

	nodeOutputs := make(map[string]any, len(nodes))
	runCounts := make(map[string]int, len(nodes))
	maxRuns := e.cfg.maxNodeRuns

	queued := make(map[string]bool, len(nodes))
	for _, id := range queue {
		queued[id] = true
	}

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		queued[nodeID] = false

		if runCounts[nodeID] >= maxRuns {
			e.emit(Event{RunID: runID, NodeID: nodeID, Msg: "max_runs_exceeded"})
			continue
		}
		runCounts[nodeID]++

		node := nodes[nodeID]

		if e.cfg.debugMode {
			e.emit(Event{RunID: runID, NodeID: nodeID, Msg: "start"})
		}

		input, stoppedUpstream := e.resolveInput(flow, bridgeGroups, nodeOutputs, node, nodeID, startNodeID, initialInput)

		if stoppedUpstream {
			nodeOutputs[nodeID] = Stopped
			continue
		}

		if e.cfg.debugMode {
			e.emit(Event{RunID: runID, NodeID: nodeID, Msg: "input_resolved", Meta: map[string]interface{}{"input": input}})
		}

		output, routeTargets, stopped, err := e.runNode(ctx, flow, node, input)
		if err != nil {
			nodeErr := &NodeError{FlowID: flow.ID, NodeID: nodeID, Name: node.Name, Cause: err}
			e.cfg.metrics.executorErrored(node.ModuleID, node.NodeTypeID)
			if e.cfg.debugMode {
				e.emit(Event{RunID: runID, NodeID: nodeID, Msg: "error", Meta: map[string]interface{}{"error": err.Error()}})
			}
			return Map{"error": nodeErr.Error()}, nodeErr
		}

		if stopped {
			nodeOutputs[nodeID] = Stopped
			continue
		}

		// Automatic context propagation: preserve "messages" from input
		// into output if the executor's output omitted it, so chains like
		// system -> llm -> router -> tools -> llm keep conversation state.
		if inMap, ok := input.(Map); ok {
			if msgs, hasMsgs := inMap["messages"]; hasMsgs {
				if outMap, ok := output.(Map); ok {
					if _, hasOut := outMap["messages"]; !hasOut {
						outMap["messages"] = msgs
					}
				}
			}
		}

		nodeOutputs[nodeID] = output

		if e.cfg.debugMode {
			e.emit(Event{RunID: runID, NodeID: nodeID, Msg: "end", Meta: map[string]interface{}{"output": output}})
		}

		downstream := flow.outgoingFrom(nodeID)
		if peers, ok := bridgeGroups[nodeID]; ok {
			for _, peerID := range peers {
				if peerID == nodeID {
					continue
				}
				nodeOutputs[peerID] = output
				downstream = append(downstream, flow.outgoingFrom(peerID)...)
			}
		}

		for _, childID := range downstream {
			if routeTargets != nil && !contains(routeTargets, childID) {
				continue
			}
			if !queued[childID] {
				queue = append(queue, childID)
				queued[childID] = true
			}
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		if out, ok := nodeOutputs[order[i]]; ok && out != nil && !IsStopped(out) {
			return out, nil
		}
	}
	return Map{}, nil
}

// resolveInput determines a node's input, implementing original_source's
// three cases: forced start node or source node (no incoming edges) both
// receive the run's initial input; otherwise parent outputs (including
// outputs shared from bridge peers) are merged, skipping any parent whose
// last output is absent or Stopped. An all-suppressed parent set means the
// branch stopped upstream (the second return value reports this).
func (e *Engine) resolveInput(flow *Flow, bridgeGroups map[string][]string, nodeOutputs map[string]any, node Node, nodeID, startNodeID string, initialInput any) (any, bool) {
	incoming := flow.incomingTo(nodeID)

	if nodeID == startNodeID || len(incoming) == 0 {
		return shallowCopy(initialInput), false
	}

	relevant := append([]Connection{}, incoming...)
	if peers, ok := bridgeGroups[nodeID]; ok {
		for _, peerID := range peers {
			if peerID == nodeID {
				continue
			}
			relevant = append(relevant, flow.incomingTo(peerID)...)
		}
	}

	var parentOutputs []any
	for _, edge := range relevant {
		if out, ok := nodeOutputs[edge.From]; ok && out != nil && !IsStopped(out) {
			parentOutputs = append(parentOutputs, out)
		}
	}

	if len(parentOutputs) == 0 {
		return nil, true
	}
	return mergeOutputs(parentOutputs), false
}

// runNode resolves the node's Executor via the Resolver (falling back to
// pass-through on a cache miss, matching original_source's "Fallback:
// Pass through if no executor found" branch), then runs Receive/Send
// under the engine's optional per-node timeout, returning the node's
// output, any _route_targets it set, and whether the branch was stopped
// (Receive returned the Stopped sentinel).
func (e *Engine) runNode(ctx context.Context, flow *Flow, node Node, input any) (any, []string, bool, error) {
	ctor, ok := e.resolver.Resolve(node.ModuleID, node.NodeTypeID)
	var executor Executor
	if !ok {
		executor = PassThrough()
	} else {
		executor = ctor()
	}

	nodeCtx := ctx
	var cancel context.CancelFunc
	if e.cfg.nodeTimeout > 0 {
		nodeCtx, cancel = context.WithTimeout(ctx, e.cfg.nodeTimeout)
		defer cancel()
	}

	cfg := deepCopyConfig(node.Config)
	cfg["_flow_id"] = flow.ID
	cfg["_node_id"] = node.ID

	start := time.Now()
	processed, err := executor.Receive(nodeCtx, input, cfg)
	if err != nil {
		return nil, nil, false, err
	}
	if IsStopped(processed) {
		e.cfg.metrics.observeNodeStep(node.ModuleID, node.NodeTypeID, time.Since(start).Seconds())
		return nil, nil, true, nil
	}

	output, err := executor.Send(nodeCtx, processed)
	e.cfg.metrics.observeNodeStep(node.ModuleID, node.NodeTypeID, time.Since(start).Seconds())
	if err != nil {
		return nil, nil, false, err
	}

	var routeTargets []string
	if outMap, ok := output.(Map); ok {
		if rt, present := outMap["_route_targets"]; present {
			routeTargets = stringSlice(rt)
		}
	}

	return output, routeTargets, false, nil
}

func (e *Engine) emit(ev Event) {
	e.cfg.emitter.Emit(ev)
}

// Event is an alias of emit.Event kept local so engine.go reads naturally;
// the underlying type is identical to the one every Emitter implementation
// consumes.
type Event = emit.Event

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
