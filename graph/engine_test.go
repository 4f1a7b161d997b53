package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/flowrunner/flowrunner/graph/emit"
)

// testResolver is a trivial in-memory Resolver keyed by "module.nodeType",
// standing in for the registry package's real Resolver in engine tests.
type testResolver struct {
	ctors map[string]Constructor
}

func newTestResolver() *testResolver {
	return &testResolver{ctors: make(map[string]Constructor)}
}

func (r *testResolver) register(moduleID, nodeTypeID string, ctor Constructor) {
	r.ctors[moduleID+"."+nodeTypeID] = ctor
}

func (r *testResolver) Resolve(moduleID, nodeTypeID string) (Constructor, bool) {
	ctor, ok := r.ctors[moduleID+"."+nodeTypeID]
	return ctor, ok
}

// countingExecutor wraps PassThrough but records how many times Receive ran.
type countingExecutor struct {
	calls *int
}

func (c countingExecutor) Receive(_ context.Context, input any, _ Map) (any, error) {
	*c.calls++
	return input, nil
}

func (c countingExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}

func newNode(id, moduleID, nodeTypeID string) Node {
	return Node{ID: id, Name: id, ModuleID: moduleID, NodeTypeID: nodeTypeID}
}

// Scenario 1: linear chat pipe — spec.md §8 scenario 1.
func TestRunLinearChatPipe(t *testing.T) {
	resolver := newTestResolver()
	resolver.register("logic", "trigger", func() Executor { return PassThrough() })
	resolver.register("llm", "stub", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) {
				return input, nil
			},
			SendFn: func(_ context.Context, _ any) (any, error) {
				return Map{"choices": []any{Map{"message": Map{"content": "Hello"}}}}, nil
			},
		}
	})
	resolver.register("logic", "extract_content", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) { return input, nil },
			SendFn: func(_ context.Context, processed any) (any, error) {
				in, ok := processed.(Map)
				if !ok {
					return processed, nil
				}
				choices, _ := in["choices"].([]any)
				if len(choices) == 0 {
					return in, nil
				}
				msg, _ := choices[0].(Map)["message"].(Map)
				return Map{"content": msg["content"]}, nil
			},
		}
	})

	flow := &Flow{
		ID: "f1",
		Nodes: []Node{
			newNode("input", "logic", "trigger"),
			newNode("system", "logic", "trigger"),
			newNode("llm", "llm", "stub"),
			newNode("output", "logic", "extract_content"),
		},
		Connections: []Connection{
			{From: "input", To: "system"},
			{From: "system", To: "llm"},
			{From: "llm", To: "output"},
		},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := engine.Run(context.Background(), flow, "run-1", Map{"messages": []any{Map{"role": "user", "content": "Hi"}}}, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out, ok := result.(Map)
	if !ok {
		t.Fatalf("expected Map result, got %T", result)
	}
	if out["content"] != "Hello" {
		t.Errorf("expected content=Hello, got %v", out["content"])
	}
}

// Scenario 2: conditional route on tool-calls — spec.md §8 scenario 2.
func TestRunConditionalRouteOnToolCalls(t *testing.T) {
	resolver := newTestResolver()
	var aCalls, bCalls int
	resolver.register("logic", "conditional_router", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) {
				in, _ := input.(Map)
				conditionMet := false
				if choices, ok := in["choices"].([]any); ok && len(choices) > 0 {
					if msg, ok := choices[0].(Map)["message"].(Map); ok {
						if tc, ok := msg["tool_calls"].([]any); ok && len(tc) > 0 {
							conditionMet = true
						}
					}
				}
				targets := []any{"B"}
				if conditionMet {
					targets = []any{"A"}
				}
				out := Map{}
				for k, v := range in {
					out[k] = v
				}
				out["_route_targets"] = targets
				return out, nil
			},
		}
	})
	resolver.register("logic", "count_a", func() Executor { return countingExecutor{calls: &aCalls} })
	resolver.register("logic", "count_b", func() Executor { return countingExecutor{calls: &bCalls} })

	flow := &Flow{
		ID: "f2",
		Nodes: []Node{
			newNode("router", "logic", "conditional_router"),
			newNode("A", "logic", "count_a"),
			newNode("B", "logic", "count_b"),
		},
		Connections: []Connection{
			{From: "router", To: "A"},
			{From: "router", To: "B"},
		},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	input := Map{"choices": []any{Map{"message": Map{"tool_calls": []any{Map{"id": "1"}}}}}}
	result, err := engine.Run(context.Background(), flow, "run-2", input, "router")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if aCalls != 1 {
		t.Errorf("expected A to run exactly once, ran %d times", aCalls)
	}
	if bCalls != 0 {
		t.Errorf("expected B not to run, ran %d times", bCalls)
	}

	out, ok := result.(Map)
	if !ok {
		t.Fatalf("expected Map result, got %T", result)
	}
	targets, _ := out["_route_targets"].([]any)
	if len(targets) != 1 || targets[0] != "A" {
		t.Errorf("expected _route_targets=[A] somewhere in propagated output, got %v", out["_route_targets"])
	}
}

// TestRunDebugModeEmitsStartEvent verifies spec.md §4.G's event taxonomy:
// a node dequeue emits a "start" event distinct from "input_resolved",
// when debug mode is enabled.
func TestRunDebugModeEmitsStartEvent(t *testing.T) {
	resolver := newTestResolver()
	resolver.register("logic", "pass", func() Executor { return PassThrough() })

	flow := &Flow{
		ID:    "f-debug",
		Nodes: []Node{newNode("n1", "logic", "pass")},
	}

	emitter := emit.NewBufferedEmitter()
	engine, err := New(resolver, WithEmitter(emitter), WithDebugMode(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := engine.Run(context.Background(), flow, "run-debug", Map{}, "n1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	history := emitter.GetHistory("run-debug")
	var sawStart, sawInputResolved bool
	for _, ev := range history {
		switch ev.Msg {
		case "start":
			sawStart = true
		case "input_resolved":
			sawInputResolved = true
		}
	}
	if !sawStart {
		t.Errorf("expected a %q event, got %v", "start", history)
	}
	if !sawInputResolved {
		t.Errorf("expected an %q event, got %v", "input_resolved", history)
	}
}

// TestRunEmptyRouteTargetsRoutesToNothing verifies spec.md §8's boundary
// property: a present-but-empty _route_targets list (the shape
// node/logic.ConditionalRouterExecutor now emits when a branch config key
// is simply omitted) suppresses every downstream child, rather than being
// treated as "no filter" and falling through to all connections.
func TestRunEmptyRouteTargetsRoutesToNothing(t *testing.T) {
	resolver := newTestResolver()
	var aCalls, bCalls int
	resolver.register("logic", "empty_router", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) {
				return Map{"_route_targets": []any{}}, nil
			},
		}
	})
	resolver.register("logic", "count_a", func() Executor { return countingExecutor{calls: &aCalls} })
	resolver.register("logic", "count_b", func() Executor { return countingExecutor{calls: &bCalls} })

	flow := &Flow{
		ID: "f-empty-route",
		Nodes: []Node{
			newNode("router", "logic", "empty_router"),
			newNode("A", "logic", "count_a"),
			newNode("B", "logic", "count_b"),
		},
		Connections: []Connection{
			{From: "router", To: "A"},
			{From: "router", To: "B"},
		},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := engine.Run(context.Background(), flow, "run-empty-route", Map{}, "router"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if aCalls != 0 {
		t.Errorf("expected A not to run, ran %d times", aCalls)
	}
	if bCalls != 0 {
		t.Errorf("expected B not to run, ran %d times", bCalls)
	}
}

// Scenario 3: bridged output — spec.md §8 scenario 3.
func TestRunBridgedOutputFansOutToBothPeersChildren(t *testing.T) {
	resolver := newTestResolver()
	var child1Calls, child2Calls int
	resolver.register("logic", "trigger", func() Executor { return PassThrough() })
	resolver.register("llm", "stub", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) { return input, nil },
			SendFn:    func(_ context.Context, _ any) (any, error) { return Map{"content": "X"}, nil },
		}
	})
	resolver.register("logic", "child1", func() Executor { return countingExecutor{calls: &child1Calls} })
	resolver.register("logic", "child2", func() Executor { return countingExecutor{calls: &child2Calls} })

	flow := &Flow{
		ID: "f3",
		Nodes: []Node{
			newNode("llm", "llm", "stub"),
			newNode("out1", "logic", "trigger"),
			newNode("out2", "logic", "trigger"),
			newNode("child1", "logic", "child1"),
			newNode("child2", "logic", "child2"),
		},
		Connections: []Connection{
			{From: "llm", To: "out1"},
			{From: "out1", To: "child1"},
			{From: "out2", To: "child2"},
		},
		Bridges: []Bridge{{From: "out1", To: "out2"}},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := engine.Run(context.Background(), flow, "run-3", Map{}, "llm"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if child1Calls != 1 {
		t.Errorf("expected child1 to run once via out1, ran %d times", child1Calls)
	}
	if child2Calls != 1 {
		t.Errorf("expected child2 to run once via bridged out2, ran %d times", child2Calls)
	}
}

// Scenario 4: cycle bounded — spec.md §8 scenario 4.
func TestRunCycleBoundedByMaxNodeRuns(t *testing.T) {
	resolver := newTestResolver()
	var aCalls, bCalls int
	resolver.register("logic", "a", func() Executor { return countingExecutor{calls: &aCalls} })
	resolver.register("logic", "b", func() Executor { return countingExecutor{calls: &bCalls} })

	flow := &Flow{
		ID: "f4",
		Nodes: []Node{
			newNode("A", "logic", "a"),
			newNode("B", "logic", "b"),
		},
		Connections: []Connection{
			{From: "A", To: "B"},
			{From: "B", To: "A"},
		},
	}

	engine, err := New(resolver, WithMaxNodeRuns(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := engine.Run(context.Background(), flow, "run-4", Map{}, "A"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if aCalls != 3 {
		t.Errorf("expected A to run exactly 3 times, ran %d", aCalls)
	}
	if bCalls != 3 {
		t.Errorf("expected B to run exactly 3 times, ran %d", bCalls)
	}
}

// Scenario 6: executor error is fatal — spec.md §8 scenario 6.
func TestRunExecutorErrorIsFatal(t *testing.T) {
	resolver := newTestResolver()
	var downstreamCalls int
	resolver.register("logic", "trigger", func() Executor { return PassThrough() })
	resolver.register("logic", "boom", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, _ any, _ Map) (any, error) {
				return nil, errors.New("kaboom")
			},
		}
	})
	resolver.register("logic", "downstream", func() Executor { return countingExecutor{calls: &downstreamCalls} })

	flow := &Flow{
		ID: "f6",
		Nodes: []Node{
			newNode("start", "logic", "trigger"),
			newNode("middle", "logic", "boom"),
			newNode("after", "logic", "downstream"),
		},
		Connections: []Connection{
			{From: "start", To: "middle"},
			{From: "middle", To: "after"},
		},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := engine.Run(context.Background(), flow, "run-6", Map{}, "start")
	if err == nil {
		t.Fatal("expected a fatal error from the failing node")
	}
	var nodeErr *NodeError
	if !errors.As(err, &nodeErr) {
		t.Fatalf("expected a *NodeError, got %T: %v", err, err)
	}
	if nodeErr.Name != "middle" {
		t.Errorf("expected error to name node 'middle', got %q", nodeErr.Name)
	}

	out, ok := result.(Map)
	if !ok {
		t.Fatalf("expected Map result carrying error, got %T", result)
	}
	if _, hasErr := out["error"]; !hasErr {
		t.Errorf("expected result Map to carry an 'error' key, got %v", out)
	}

	if downstreamCalls != 0 {
		t.Errorf("expected downstream node not to run after a fatal error, ran %d times", downstreamCalls)
	}
}

func TestRunSourceNodeWithNonMappingInitialInput(t *testing.T) {
	resolver := newTestResolver()
	var lastInput any
	resolver.register("logic", "capture", func() Executor {
		return ExecutorFunc{
			ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) {
				lastInput = input
				return input, nil
			},
		}
	})

	flow := &Flow{
		ID:    "f7",
		Nodes: []Node{newNode("solo", "logic", "capture")},
	}

	engine, err := New(resolver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := engine.Run(context.Background(), flow, "run-7", "just a string", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lastInput != "just a string" {
		t.Errorf("expected the source node to receive the primitive unchanged, got %v", lastInput)
	}
}
