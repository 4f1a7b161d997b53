package llm

import (
	"github.com/flowrunner/flowrunner/graph"
	"github.com/flowrunner/flowrunner/graph/model"
	anthropicmodel "github.com/flowrunner/flowrunner/graph/model/anthropic"
	googlemodel "github.com/flowrunner/flowrunner/graph/model/google"
	openaimodel "github.com/flowrunner/flowrunner/graph/model/openai"
	"github.com/flowrunner/flowrunner/registry"
)

// ModuleID is the module id flows reference for every chat executor in
// this package.
const ModuleID = "llm"

const (
	NodeTypeAnthropic = "anthropic_chat_node"
	NodeTypeOpenAI    = "openai_chat_node"
	NodeTypeGoogle    = "google_chat_node"
	NodeTypeMock      = "mock_chat_node"
)

// Register wires the three provider-backed chat executors plus the mock
// executor into reg as ModuleID's Dispatcher. API keys are read per-call
// from config["api_key"] or the provider's standard environment variable.
func Register(reg *registry.Registry) {
	anthropicCtor := func() graph.Executor {
		return newChatExecutor("ANTHROPIC_API_KEY", func(apiKey, modelName string) model.ChatModel {
			return anthropicmodel.NewChatModel(apiKey, modelName)
		})
	}
	openaiCtor := func() graph.Executor {
		return newChatExecutor("OPENAI_API_KEY", func(apiKey, modelName string) model.ChatModel {
			return openaimodel.NewChatModel(apiKey, modelName)
		})
	}
	googleCtor := func() graph.Executor {
		return newChatExecutor("GOOGLE_API_KEY", func(apiKey, modelName string) model.ChatModel {
			return googlemodel.NewChatModel(apiKey, modelName)
		})
	}

	reg.RegisterDispatcher(ModuleID, registry.DispatcherFunc(func(nodeTypeID string) (graph.Constructor, bool) {
		switch nodeTypeID {
		case NodeTypeAnthropic:
			return anthropicCtor, true
		case NodeTypeOpenAI:
			return openaiCtor, true
		case NodeTypeGoogle:
			return googleCtor, true
		case NodeTypeMock:
			return newMockExecutor, true
		default:
			return nil, false
		}
	}))
}
