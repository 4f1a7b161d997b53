package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowrunner/flowrunner/flowstore"
	"github.com/flowrunner/flowrunner/graph"
	"github.com/flowrunner/flowrunner/graph/emit"
	"github.com/flowrunner/flowrunner/node/llm"
	"github.com/flowrunner/flowrunner/node/logic"
	nodetool "github.com/flowrunner/flowrunner/node/tool"
	"github.com/flowrunner/flowrunner/registry"
)

// openStore opens the Flow Store backend named by dsn: "mem" for an
// in-process store, a bare path for SQLite, or a "mysql://"-prefixed DSN
// for MySQL.
func openStore(dsn string) (flowstore.Store, error) {
	switch {
	case dsn == "" || dsn == "mem":
		return flowstore.NewMemStore(), nil
	case strings.HasPrefix(dsn, "mysql://"):
		return flowstore.NewMySQLStore(strings.TrimPrefix(dsn, "mysql://"))
	default:
		return flowstore.NewSQLiteStore(dsn)
	}
}

// buildRuntime wires the Module Registry (discovering modulesDir),
// registers every built-in node package, and constructs the Engine and
// Scheduler that share its Executor Resolver. The returned RingEmitter is
// the Debug Log Ring (spec.md §4.G); it only records events when opts.Debug
// is set, matching settings' debug_mode gate.
func buildRuntime(opts *RootOptions) (*graph.Engine, *registry.Registry, *graph.Scheduler, *emit.RingEmitter, error) {
	reg := registry.New(opts.ModuleDir)
	if errs := reg.Discover(); len(errs) > 0 {
		// A missing or empty modules directory is not fatal: built-in
		// packages below register themselves regardless of module.json
		// discovery, matching spec.md §4.B's "a module absent from disk
		// keeps its in-memory default".
	}

	ring := emit.NewRingEmitter(emit.DefaultRingCapacity)
	ring.SetEnabled(opts.Debug)

	engine, err := graph.New(reg.Resolver(),
		graph.WithEmitter(ring),
		graph.WithDebugMode(opts.Debug),
		graph.WithMaxNodeRuns(opts.MaxNodeRuns),
	)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build engine: %w", err)
	}

	liveness := alwaysLive{}
	scheduler := graph.NewScheduler(engine, noFlowLookup{}, liveness, nil)

	logic.Register(reg, scheduler, liveness)
	llm.Register(reg)
	nodetool.Register(reg)

	return engine, reg, scheduler, ring, nil
}

// alwaysLive is the CLI's LivenessChecker: a one-shot `flowrunnerd flow
// run` invocation has no notion of a flow being disabled mid-run, so
// every flow is always considered active.
type alwaysLive struct{}

func (alwaysLive) IsActive(flowID string) bool { return true }

// noFlowLookup backs the Scheduler's FlowLookup for standalone `flow run`
// invocations, which never schedule repeaters against a live store.
type noFlowLookup struct{}

func (noFlowLookup) Lookup(ctx context.Context, flowID string) (*graph.Flow, bool, error) {
	return nil, false, nil
}
