package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/flowrunner/flowrunner/graph"
	"github.com/flowrunner/flowrunner/graph/model"
)

// newChatModelFunc constructs a provider's model.ChatModel given an API
// key and model name. Each provider package's NewChatModel(apiKey,
// modelName string) *ChatModel returns a concrete type, so Register wraps
// it in a small closure to fit this signature.
type newChatModelFunc func(apiKey, modelName string) model.ChatModel

// chatExecutor adapts a provider's ChatModel into graph.Executor, reading
// input["messages"]/config["model"] per original_source's llm_module
// contract and producing the OpenAI-shaped choices/message/tool_calls map
// node/logic's ConditionalRouterExecutor depends on.
//
// A fresh provider client is built on every Receive call (stateless
// executors, constructed fresh per invocation, matching the rest of this
// codebase's Constructor convention) rather than held across calls.
type chatExecutor struct {
	apiKeyEnv string
	newModel  newChatModelFunc
}

func newChatExecutor(apiKeyEnv string, newModel newChatModelFunc) graph.Executor {
	return chatExecutor{apiKeyEnv: apiKeyEnv, newModel: newModel}
}

func (e chatExecutor) Receive(ctx context.Context, input any, config graph.Map) (any, error) {
	inMap, ok := input.(graph.Map)
	if !ok {
		return nil, fmt.Errorf("llm node: input must be a map, got %T", input)
	}

	messages, err := messagesFromInput(inMap)
	if err != nil {
		return nil, err
	}

	apiKey, _ := config["api_key"].(string)
	if apiKey == "" {
		apiKey = os.Getenv(e.apiKeyEnv)
	}
	modelName := modelNameFromConfigOrInput(config, inMap)
	tools := toolsFromConfig(config)

	chatModel := e.newModel(apiKey, modelName)
	out, err := chatModel.Chat(ctx, messages, tools)
	if err != nil {
		return nil, fmt.Errorf("llm node: %w", err)
	}
	return chatOutToMap(out), nil
}

func (chatExecutor) Send(_ context.Context, processed any) (any, error) {
	return processed, nil
}
