package graph

import "context"

// Executor is the two-phase contract every node type implements, grounded
// on the teacher's Node[S] interface but shaped around Map/any instead of
// a typed generic state: Receive consumes the merged parent input plus the
// node's resolved config and produces an intermediate result; Send turns
// that intermediate result into the value propagated to downstream nodes.
// Implementations must be stateless across invocations — a fresh Executor
// is built by its Constructor for every node run, matching the Python
// original's `executor = executor_class()` per call.
type Executor interface {
	Receive(ctx context.Context, input any, config Map) (any, error)
	Send(ctx context.Context, processed any) (any, error)
}

// ExecutorFunc adapts a pair of plain functions to the Executor interface
// for small, stateless node types that don't need their own named type.
type ExecutorFunc struct {
	ReceiveFn func(ctx context.Context, input any, config Map) (any, error)
	SendFn    func(ctx context.Context, processed any) (any, error)
}

func (f ExecutorFunc) Receive(ctx context.Context, input any, config Map) (any, error) {
	return f.ReceiveFn(ctx, input, config)
}

func (f ExecutorFunc) Send(ctx context.Context, processed any) (any, error) {
	if f.SendFn == nil {
		return processed, nil
	}
	return f.SendFn(ctx, processed)
}

// PassThrough returns an Executor whose Receive/Send are both identity,
// grounding the "pass-through executors satisfy send(receive(x)) == x"
// testable property of spec.md §8 (used by TriggerExecutor and as the
// Executor Resolver's cache-miss fallback).
func PassThrough() Executor {
	return ExecutorFunc{
		ReceiveFn: func(_ context.Context, input any, _ Map) (any, error) {
			return input, nil
		},
	}
}

// Constructor builds a fresh Executor instance for a node run. Module
// packages register one Constructor per node type with the registry's
// Resolver; the same Constructor value is reused across runs, but each
// invocation gets its own Executor from calling it.
type Constructor func() Executor
