package logic

import (
	"context"

	"github.com/flowrunner/flowrunner/graph"
)

// ConditionalRouterExecutor grounds spec.md §4.E.4 and original_source's
// ConditionalRouterExecutor: it checks config["check_field"] (default
// "tool_calls") on the input, falling back to the OpenAI-shaped
// choices[0].message.tool_calls path when the field isn't found at the
// top level, applies config["invert"], and emits _route_targets from
// config["true_branches"]/config["false_branches"].
type ConditionalRouterExecutor struct{}

func NewConditionalRouterExecutor() graph.Executor { return ConditionalRouterExecutor{} }

func (ConditionalRouterExecutor) Receive(_ context.Context, input any, config graph.Map) (any, error) {
	if input == nil {
		return graph.Stopped, nil
	}

	checkField, _ := config["check_field"].(string)
	if checkField == "" {
		checkField = "tool_calls"
	}

	inMap, isMap := input.(graph.Map)
	conditionMet := false
	if isMap {
		if truthy(inMap[checkField]) {
			conditionMet = true
		} else if checkField == "tool_calls" {
			conditionMet = openAIToolCallsPresent(inMap)
		}
	}

	if invert, _ := config["invert"].(bool); invert {
		conditionMet = !conditionMet
	}

	branchKey := "false_branches"
	if conditionMet {
		branchKey = "true_branches"
	}
	targets := config[branchKey]
	if targets == nil {
		// Mirror original_source's config.get(key, []): an omitted
		// branch list is the common "no route" case and must come out
		// as an empty list, not Go nil, so the engine's present-but-nil
		// _route_targets key still filters out every child.
		targets = []any{}
	}

	var result graph.Map
	if isMap {
		result = graph.Map{}
		for k, v := range inMap {
			result[k] = v
		}
	} else {
		result = graph.Map{"content": input}
	}
	result["_route_targets"] = targets
	return result, nil
}

func (ConditionalRouterExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}

func openAIToolCallsPresent(in graph.Map) bool {
	choices, ok := in["choices"].([]any)
	if !ok || len(choices) == 0 {
		return false
	}
	choice, ok := choices[0].(graph.Map)
	if !ok {
		return false
	}
	message, ok := choice["message"].(graph.Map)
	if !ok {
		return false
	}
	return truthy(message["tool_calls"])
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case graph.Map:
		return len(t) > 0
	default:
		return true
	}
}
