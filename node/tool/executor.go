package tool

import (
	"context"
	"fmt"

	"github.com/flowrunner/flowrunner/graph"
	graphtool "github.com/flowrunner/flowrunner/graph/tool"
)

// Executor invokes every tool call present in its input's OpenAI-shaped
// choices[0].message.tool_calls (the same path node/logic's
// ConditionalRouterExecutor checks for), dispatching each by name against
// a fixed tool set.
type Executor struct {
	tools map[string]graphtool.Tool
}

// NewExecutor builds an Executor over the given named tools. Exported so
// tests and callers that need non-builtin tools (graphtool.MockTool, a
// second HTTPTool pointed at a test server) can construct one directly
// without going through the Registry.
func NewExecutor(tools map[string]graphtool.Tool) graph.Executor {
	return Executor{tools: tools}
}

func (e Executor) Receive(ctx context.Context, input any, _ graph.Map) (any, error) {
	inMap, ok := input.(graph.Map)
	if !ok {
		return nil, fmt.Errorf("tool node: input must be a map, got %T", input)
	}

	calls := extractToolCalls(inMap)
	if len(calls) == 0 {
		return inMap, nil
	}

	results := make([]any, 0, len(calls))
	for _, call := range calls {
		name, _ := call["name"].(string)
		t, ok := e.tools[name]
		if !ok {
			results = append(results, graph.Map{"name": name, "error": fmt.Sprintf("unknown tool %q", name)})
			continue
		}

		callInput, _ := call["input"].(map[string]interface{})
		if callInput == nil {
			if m, ok := call["input"].(graph.Map); ok {
				callInput = map[string]interface{}(m)
			}
		}

		out, err := t.Call(ctx, callInput)
		if err != nil {
			results = append(results, graph.Map{"name": name, "error": err.Error()})
			continue
		}
		results = append(results, graph.Map{"name": name, "result": graph.Map(out)})
	}

	out := graph.Map{}
	for k, v := range inMap {
		out[k] = v
	}
	out["tool_results"] = results
	return out, nil
}

func (Executor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}

// extractToolCalls reads choices[0].message.tool_calls out of an
// llm-node-shaped output map.
func extractToolCalls(in graph.Map) []graph.Map {
	choices, ok := in["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}
	choice, ok := choices[0].(graph.Map)
	if !ok {
		return nil
	}
	message, ok := choice["message"].(graph.Map)
	if !ok {
		return nil
	}
	rawCalls, ok := message["tool_calls"].([]any)
	if !ok {
		return nil
	}
	out := make([]graph.Map, 0, len(rawCalls))
	for _, rc := range rawCalls {
		if m, ok := rc.(graph.Map); ok {
			out = append(out, m)
		}
	}
	return out
}
