package tool

import (
	"context"
	"testing"

	"github.com/flowrunner/flowrunner/graph"
	graphtool "github.com/flowrunner/flowrunner/graph/tool"
)

func TestExecutorInvokesMatchingToolByName(t *testing.T) {
	mock := &graphtool.MockTool{
		ToolName:  "get_weather",
		Responses: []map[string]interface{}{{"temperature": 72.5}},
	}
	exec := NewExecutor(map[string]graphtool.Tool{"get_weather": mock})

	input := graph.Map{
		"choices": []any{
			graph.Map{
				"message": graph.Map{
					"tool_calls": []any{
						graph.Map{"name": "get_weather", "input": graph.Map{"location": "SF"}},
					},
				},
			},
		},
	}

	out, err := exec.Receive(context.Background(), input, graph.Map{})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	result := out.(graph.Map)
	toolResults, ok := result["tool_results"].([]any)
	if !ok || len(toolResults) != 1 {
		t.Fatalf("expected one tool result, got %+v", result)
	}
	entry := toolResults[0].(graph.Map)
	if entry["name"] != "get_weather" {
		t.Fatalf("expected name get_weather, got %+v", entry)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected mock called once, got %d", mock.CallCount())
	}
}

func TestExecutorReportsUnknownTool(t *testing.T) {
	exec := NewExecutor(map[string]graphtool.Tool{})
	input := graph.Map{
		"choices": []any{
			graph.Map{"message": graph.Map{"tool_calls": []any{
				graph.Map{"name": "nope", "input": graph.Map{}},
			}}},
		},
	}
	out, err := exec.Receive(context.Background(), input, graph.Map{})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	results := out.(graph.Map)["tool_results"].([]any)
	entry := results[0].(graph.Map)
	if entry["error"] == nil {
		t.Fatalf("expected an error entry for unknown tool, got %+v", entry)
	}
}

func TestExecutorPassesThroughWithoutToolCalls(t *testing.T) {
	exec := NewExecutor(map[string]graphtool.Tool{})
	input := graph.Map{"content": "no tools here"}
	out, err := exec.Receive(context.Background(), input, graph.Map{})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if out.(graph.Map)["content"] != "no tools here" {
		t.Fatalf("expected passthrough, got %+v", out)
	}
}
