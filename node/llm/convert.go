// Package llm grounds the teacher's graph/model provider adapters
// (Anthropic, OpenAI, Google) into concrete graph.Executor node types.
// original_source's own `modules/llm_module/node.py` LLMExecutor is a
// thin stub around a single LM-Studio-compatible HTTP bridge; it names
// the shape this package fills in (config["model"]/config["temperature"],
// input["messages"], an OpenAI-shaped response) but not the multi-provider
// adapter code itself, which is new and grounded on the teacher instead.
package llm

import (
	"fmt"

	"github.com/flowrunner/flowrunner/graph"
	"github.com/flowrunner/flowrunner/graph/model"
)

// messagesFromInput reads input["messages"] — a []any of
// {"role": ..., "content": ...} maps — into the provider-neutral
// []model.Message shape, matching original_source's
// `input_data.get("messages")` contract.
func messagesFromInput(input graph.Map) ([]model.Message, error) {
	raw, ok := input["messages"]
	if !ok {
		return nil, fmt.Errorf("llm node: input has no 'messages' field")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("llm node: 'messages' must be a list, got %T", raw)
	}

	out := make([]model.Message, 0, len(list))
	for _, item := range list {
		m, ok := item.(graph.Map)
		if !ok {
			return nil, fmt.Errorf("llm node: each message must be a map, got %T", item)
		}
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		out = append(out, model.Message{Role: role, Content: content})
	}
	return out, nil
}

// toolsFromConfig reads config["tools"] — a []any of ToolSpec-shaped
// maps — into []model.ToolSpec. A flow with no tools configured for this
// node returns nil, matching the Chat interface's "tools: nil if no
// tools" contract.
func toolsFromConfig(config graph.Map) []model.ToolSpec {
	raw, ok := config["tools"].([]any)
	if !ok {
		return nil
	}
	out := make([]model.ToolSpec, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(graph.Map)
		if !ok {
			continue
		}
		spec := model.ToolSpec{}
		spec.Name, _ = m["name"].(string)
		spec.Description, _ = m["description"].(string)
		if schema, ok := m["schema"].(map[string]any); ok {
			spec.Schema = schema
		} else if schema, ok := m["schema"].(graph.Map); ok {
			spec.Schema = map[string]any(schema)
		}
		out = append(out, spec)
	}
	return out
}

// chatOutToMap renders a model.ChatOut as the OpenAI-shaped
// {choices:[{message:{content,tool_calls}}]} map spec.md §8's scenarios 1
// and 2, and node/logic's ConditionalRouterExecutor's tool_calls fallback,
// depend on.
func chatOutToMap(out model.ChatOut) graph.Map {
	toolCalls := make([]any, 0, len(out.ToolCalls))
	for _, tc := range out.ToolCalls {
		toolCalls = append(toolCalls, graph.Map{
			"name":  tc.Name,
			"input": tc.Input,
		})
	}

	message := graph.Map{"content": out.Text}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	return graph.Map{
		"choices": []any{
			graph.Map{"message": message},
		},
	}
}

// modelNameFromConfigOrInput mirrors original_source's
// `config.get("model") or input_data.get("model")` precedence.
func modelNameFromConfigOrInput(config, input graph.Map) string {
	if name, ok := config["model"].(string); ok && name != "" {
		return name
	}
	if name, ok := input["model"].(string); ok && name != "" {
		return name
	}
	return ""
}
