// Package tool adapts the teacher's graph/tool.Tool contract (HTTPTool,
// MockTool) into a graph.Executor that resolves and invokes the tool
// calls an llm node's output requested, the missing half of the
// "LLM requests a tool, something executes it, result feeds back" loop
// spec.md §8's router scenarios assume but original_source never wires
// up itself (its own tool library is out of this exercise's scope per
// the Non-goals on tool-library *sandboxing* — invoking a single fixed,
// safe HTTP client is not that).
package tool

import (
	"github.com/flowrunner/flowrunner/graph"
	graphtool "github.com/flowrunner/flowrunner/graph/tool"
	"github.com/flowrunner/flowrunner/registry"
)

// ModuleID is the module id flows reference for the tool-invocation node.
const ModuleID = "tool"

// NodeTypeInvoke is the single node type this module exposes: given an
// OpenAI-shaped tool_calls list, invoke each by name and collect results.
const NodeTypeInvoke = "invoke_node"

// Register wires the invoke node into reg, backed by the builtin tool
// set (currently just http_request). Callers needing additional tools
// for tests should use NewExecutor directly instead of going through the
// registry.
func Register(reg *registry.Registry) {
	builtins := map[string]graphtool.Tool{
		"http_request": graphtool.NewHTTPTool(),
	}
	ctor := func() graph.Executor { return NewExecutor(builtins) }

	reg.RegisterDispatcher(ModuleID, registry.DispatcherFunc(func(nodeTypeID string) (graph.Constructor, bool) {
		if nodeTypeID == NodeTypeInvoke {
			return ctor, true
		}
		return nil, false
	}))
}
