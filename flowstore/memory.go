package flowstore

import (
	"context"
	"sync"
	"time"

	"github.com/flowrunner/flowrunner/graph"
)

// MemStore is the in-process Flow Store backend, grounded on
// graph/store.MemStore's single-mutex-guarded-map concurrency idiom but
// shaped around whole Flow records instead of per-run steps.
type MemStore struct {
	mu        sync.RWMutex
	flows     map[string]*graph.Flow
	activeID  string
	runs      map[string][]RunRecord // flowID -> runs, newest last
	nowForTst func() time.Time       // overridable by tests only; nil uses time.Now
}

// NewMemStore returns an empty Flow Store.
func NewMemStore() *MemStore {
	return &MemStore{flows: make(map[string]*graph.Flow), runs: make(map[string][]RunRecord)}
}

func (s *MemStore) now() time.Time {
	if s.nowForTst != nil {
		return s.nowForTst()
	}
	return time.Now()
}

// Save creates or replaces the flow identified by id. An empty id
// allocates a fresh one, matching spec.md §4.D's "save (create or
// update)" operation.
func (s *MemStore) Save(ctx context.Context, id, name string, nodes []graph.Node, connections []graph.Connection, bridges []graph.Bridge) (*graph.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	isNew := id == ""
	if isNew {
		id = newID()
	}
	existing, had := s.flows[id]

	f := &graph.Flow{
		ID:          id,
		Name:        name,
		Nodes:       append([]graph.Node(nil), nodes...),
		Connections: append([]graph.Connection(nil), connections...),
		Bridges:     append([]graph.Bridge(nil), bridges...),
	}
	if had {
		f.CreatedAt = existing.CreatedAt
	}
	stampTimestamps(f, s.now(), !had)
	s.flows[id] = f

	if s.activeID == "" {
		s.activeID = id
	}
	return cloneFlow(f), nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*graph.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFlow(f), nil
}

// List returns every flow sorted by CreatedAt descending (spec.md §4.D
// "list (most recently created first)").
func (s *MemStore) List(ctx context.Context) ([]*graph.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*graph.Flow, 0, len(s.flows))
	for _, f := range s.flows {
		out = append(out, cloneFlow(f))
	}
	sortByCreatedAtDesc(out)
	return out, nil
}

func (s *MemStore) Rename(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok {
		return ErrNotFound
	}
	f.Name = name
	f.UpdatedAt = s.now()
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return ErrNotFound
	}
	delete(s.flows, id)
	if s.activeID == id {
		s.activeID = ""
		for otherID := range s.flows {
			s.activeID = otherID
			break
		}
	}
	return nil
}

// Import replaces the entire flow collection, matching spec.md §4.D's
// "import (bulk, replaces the active collection)" operation.
func (s *MemStore) Import(ctx context.Context, flows []*graph.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replacement := make(map[string]*graph.Flow, len(flows))
	for _, f := range flows {
		id := f.ID
		if id == "" {
			id = newID()
		}
		replacement[id] = cloneFlow(f)
	}
	s.flows = replacement
	s.activeID = ""
	for id := range s.flows {
		s.activeID = id
		break
	}
	return nil
}

func (s *MemStore) Export(ctx context.Context) ([]*graph.Flow, error) {
	return s.List(ctx)
}

func (s *MemStore) ActiveFlowID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, nil
}

// MakeActiveDefault designates id as the collection's default active
// flow (spec.md §4.D). It returns ErrNotFound when no flow has that id.
func (s *MemStore) MakeActiveDefault(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return ErrNotFound
	}
	s.activeID = id
	return nil
}

// RecordRunStart appends a "running" record for runID, matching
// graph/store's checkpoint-at-step-zero idiom generalized to whole-run
// granularity.
func (s *MemStore) RecordRunStart(ctx context.Context, flowID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[flowID] = append(s.runs[flowID], RunRecord{
		RunID:     runID,
		FlowID:    flowID,
		StartedAt: s.now(),
		Status:    RunStatusRunning,
	})
	return nil
}

// RecordRunEnd finalizes runID's record with its outcome.
func (s *MemStore) RecordRunEnd(ctx context.Context, flowID, runID string, output graph.Map, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs[flowID] {
		if s.runs[flowID][i].RunID != runID {
			continue
		}
		s.runs[flowID][i].EndedAt = s.now()
		s.runs[flowID][i].Output = output
		if runErr != nil {
			s.runs[flowID][i].Status = RunStatusError
			s.runs[flowID][i].Err = runErr.Error()
		} else {
			s.runs[flowID][i].Status = RunStatusOK
		}
		return nil
	}
	return ErrNotFound
}

func (s *MemStore) ListRuns(ctx context.Context, flowID string) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.runs[flowID]
	out := make([]RunRecord, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}

var (
	_ Store             = (*MemStore)(nil)
	_ ActiveFlowTracker = (*MemStore)(nil)
	_ RunHistory        = (*MemStore)(nil)
)
