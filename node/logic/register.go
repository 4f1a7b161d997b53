package logic

import (
	"github.com/flowrunner/flowrunner/graph"
	"github.com/flowrunner/flowrunner/registry"
)

// ModuleID is the module id flows reference for every executor in this
// package, matching original_source's "logic" module directory name.
const ModuleID = "logic"

const (
	NodeTypeTrigger           = "trigger_node"
	NodeTypeDelay             = "delay_node"
	NodeTypeTemplate          = "template_node"
	NodeTypeRepeater          = "repeater_node"
	NodeTypeConditionalRouter = "conditional_router"
)

// Register wires every executor in this package into reg as the eagerly
// registered Dispatcher for ModuleID, the Go equivalent of
// original_source's modules/logic/node.py::get_executor_class.
// scheduler/liveness are needed only by the repeater node; pass the
// engine's graph.Scheduler and the active-flow LivenessChecker it shares
// with the rest of the runtime.
func Register(reg *registry.Registry, scheduler *graph.Scheduler, liveness graph.LivenessChecker) {
	repeaterCtor := NewRepeaterExecutorFactory(scheduler, liveness)

	reg.RegisterDispatcher(ModuleID, registry.DispatcherFunc(func(nodeTypeID string) (graph.Constructor, bool) {
		switch nodeTypeID {
		case NodeTypeTrigger:
			return NewTriggerExecutor, true
		case NodeTypeDelay:
			return NewDelayExecutor, true
		case NodeTypeTemplate:
			return NewTemplateExecutor, true
		case NodeTypeRepeater:
			return repeaterCtor, true
		case NodeTypeConditionalRouter:
			return NewConditionalRouterExecutor, true
		default:
			return nil, false
		}
	}))
}
