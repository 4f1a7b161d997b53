// Package flowstore implements the Flow Store (spec.md §4.D): CRUD over
// named flow definitions, concurrent-safe, persisted atomically. It is a
// new package rather than an adaptation of the teacher's graph/store
// (Store[S]), whose step/checkpoint/idempotency-key abstraction serves a
// different shape of problem — persisting execution history for
// resumable runs — and has no SPEC_FULL.md component to bind to; see
// DESIGN.md. What IS carried over from graph/store is its concurrency
// idiom: a single mutex guarding an in-memory map, with durable backends
// implementing the same interface.
package flowstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/flowrunner/flowrunner/graph"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Get/Rename/Delete for an unknown flow id,
// grounded on graph/store.ErrNotFound's one-sentinel-per-failure style.
var ErrNotFound = errors.New("flow not found")

// Store is the Flow Store's CRUD contract (spec.md §4.D operations).
type Store interface {
	Save(ctx context.Context, id, name string, nodes []graph.Node, connections []graph.Connection, bridges []graph.Bridge) (*graph.Flow, error)
	Get(ctx context.Context, id string) (*graph.Flow, error)
	List(ctx context.Context) ([]*graph.Flow, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, flows []*graph.Flow) error
	Export(ctx context.Context) ([]*graph.Flow, error)
}

// ActiveFlowTracker is the "default active flow" invariant Save, Delete,
// Import and MakeActiveDefault maintain: a non-empty flow collection
// always has exactly one flow designated as the canonical default. It is a separate, small
// interface so a Store implementation can compose it from a simple field
// rather than threading an extra parameter through every CRUD call.
type ActiveFlowTracker interface {
	ActiveFlowID(ctx context.Context) (string, error)
	MakeActiveDefault(ctx context.Context, id string) error
}

// RunRecord is one invocation of engine.Run against a stored flow. It is
// the whole-run analogue of graph/store's per-step checkpoint record:
// spec.md's data model has no step-level concept (the runner is
// stateless between nodes within a single Run call), so the execution
// history graph/store tracked at step granularity is generalized here to
// run granularity instead.
type RunRecord struct {
	RunID     string
	FlowID    string
	StartedAt time.Time
	EndedAt   time.Time
	Status    string // "running", "ok", "error"
	Err       string
	Output    graph.Map
}

// RunHistory records and lists RunRecords for a flow, grounded on
// graph/store's append-then-finalize idiom for a long-running
// operation (RecordRunStart mirrors a checkpoint write at step 0;
// RecordRunEnd mirrors the final checkpoint marking completion).
type RunHistory interface {
	RecordRunStart(ctx context.Context, flowID, runID string) error
	RecordRunEnd(ctx context.Context, flowID, runID string, output graph.Map, runErr error) error
	ListRuns(ctx context.Context, flowID string) ([]RunRecord, error)
}

const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusError   = "error"
)

// newID allocates a fresh globally-unique flow id via google/uuid,
// grounded on SPEC_FULL.md §3's domain-stack wiring of that dependency.
func newID() string {
	return uuid.NewString()
}

func sortByCreatedAtDesc(flows []*graph.Flow) {
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})
}

// cloneFlow deep-copies a Flow's slices so a caller mutating the returned
// value can't corrupt the store's own copy, mirroring the shallow-copy
// discipline graph.shallowCopy enforces for node I/O.
func cloneFlow(f *graph.Flow) *graph.Flow {
	out := *f
	out.Nodes = append([]graph.Node(nil), f.Nodes...)
	out.Connections = append([]graph.Connection(nil), f.Connections...)
	out.Bridges = append([]graph.Bridge(nil), f.Bridges...)
	return &out
}

func stampTimestamps(f *graph.Flow, now time.Time, isNew bool) {
	if isNew {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
}
