package llm

import (
	"context"
	"fmt"

	"github.com/flowrunner/flowrunner/graph"
	"github.com/flowrunner/flowrunner/graph/model"
)

// mockExecutor wraps model.MockChatModel for flows under test or running
// offline, consuming config["responses"] (a []any of strings) as the
// canned reply sequence.
type mockExecutor struct{}

func newMockExecutor() graph.Executor { return mockExecutor{} }

func (mockExecutor) Receive(ctx context.Context, input any, config graph.Map) (any, error) {
	inMap, ok := input.(graph.Map)
	if !ok {
		return nil, fmt.Errorf("llm node: input must be a map, got %T", input)
	}
	messages, err := messagesFromInput(inMap)
	if err != nil {
		return nil, err
	}

	mock := &model.MockChatModel{}
	if responses, ok := config["responses"].([]any); ok {
		for _, r := range responses {
			if text, ok := r.(string); ok {
				mock.Responses = append(mock.Responses, model.ChatOut{Text: text})
			}
		}
	}

	out, err := mock.Chat(ctx, messages, toolsFromConfig(config))
	if err != nil {
		return nil, err
	}
	return chatOutToMap(out), nil
}

func (mockExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}
