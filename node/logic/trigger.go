// Package logic implements the node executors grounded on
// original_source's modules/logic/node.py: routing and timing primitives
// that ship with every flow rather than an external module.
package logic

import (
	"context"

	"github.com/flowrunner/flowrunner/graph"
)

// TriggerExecutor is a pure pass-through node, the entry point most flows
// use as their forced start node. It grounds the "pass-through executors
// satisfy send(receive(x)) == x" testable property directly.
type TriggerExecutor struct{}

// NewTriggerExecutor is the Constructor registered for trigger_node.
func NewTriggerExecutor() graph.Executor { return TriggerExecutor{} }

func (TriggerExecutor) Receive(_ context.Context, input any, _ graph.Map) (any, error) {
	return input, nil
}

func (TriggerExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}
