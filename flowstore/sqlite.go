package flowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/flowrunner/flowrunner/graph"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Flow Store, adapted from
// graph/store.SQLiteStore's connection setup (single-writer pool, WAL
// mode, auto-migration on first use) with a flows table replacing that
// store's workflow_steps/checkpoints schema.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes the read-modify-write Rename/Delete/MakeActiveDefault pairs
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures the flows schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("flowstore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("flowstore: enable WAL: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS flows (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	nodes TEXT NOT NULL,
	connections TEXT NOT NULL,
	bridges TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS flow_store_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS flow_runs (
	run_id TEXT PRIMARY KEY,
	flow_id TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	output TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_flow_runs_flow_id ON flow_runs(flow_id);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("flowstore: migrate sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, id, name string, nodes []graph.Node, connections []graph.Connection, bridges []graph.Bridge) (*graph.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	isNew := id == ""
	if isNew {
		id = newID()
	}

	f := &graph.Flow{ID: id, Name: name, Nodes: nodes, Connections: connections, Bridges: bridges}
	existing, err := s.getLocked(ctx, id)
	if err == nil {
		f.CreatedAt = existing.CreatedAt
		isNew = false
	} else if err != ErrNotFound {
		return nil, err
	}
	stampTimestamps(f, time.Now(), isNew)

	nodesJSON, err := json.Marshal(f.Nodes)
	if err != nil {
		return nil, err
	}
	connsJSON, err := json.Marshal(f.Connections)
	if err != nil {
		return nil, err
	}
	bridgesJSON, err := json.Marshal(f.Bridges)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, name, nodes, connections, bridges, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, nodes=excluded.nodes, connections=excluded.connections,
			bridges=excluded.bridges, updated_at=excluded.updated_at
	`, f.ID, f.Name, string(nodesJSON), string(connsJSON), string(bridgesJSON), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("flowstore: save: %w", err)
	}

	if err := s.ensureActiveLocked(ctx, id); err != nil {
		return nil, err
	}
	return cloneFlow(f), nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*graph.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

func (s *SQLiteStore) getLocked(ctx context.Context, id string) (*graph.Flow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, nodes, connections, bridges, created_at, updated_at FROM flows WHERE id = ?`, id)
	f, err := scanFlow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("flowstore: get: %w", err)
	}
	return f, nil
}

func scanFlow(row *sql.Row) (*graph.Flow, error) {
	var f graph.Flow
	var nodesJSON, connsJSON, bridgesJSON string
	if err := row.Scan(&f.ID, &f.Name, &nodesJSON, &connsJSON, &bridgesJSON, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(nodesJSON), &f.Nodes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(connsJSON), &f.Connections); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(bridgesJSON), &f.Bridges); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*graph.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, nodes, connections, bridges, created_at, updated_at FROM flows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("flowstore: list: %w", err)
	}
	defer rows.Close()

	var out []*graph.Flow
	for rows.Next() {
		var f graph.Flow
		var nodesJSON, connsJSON, bridgesJSON string
		if err := rows.Scan(&f.ID, &f.Name, &nodesJSON, &connsJSON, &bridgesJSON, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(nodesJSON), &f.Nodes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(connsJSON), &f.Connections); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(bridgesJSON), &f.Bridges); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Rename(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE flows SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("flowstore: rename: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("flowstore: delete: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}
	active, _ := s.activeLocked(ctx)
	if active == id {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM flow_store_meta WHERE key = 'active_id'`)
		var otherID string
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM flows LIMIT 1`).Scan(&otherID); err == nil {
			_ = s.ensureActiveLocked(ctx, otherID)
		}
	}
	return nil
}

func (s *SQLiteStore) Import(ctx context.Context, flows []*graph.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM flows`); err != nil {
		return err
	}
	firstID := ""
	for _, f := range flows {
		id := f.ID
		if id == "" {
			id = newID()
		}
		if firstID == "" {
			firstID = id
		}
		nodesJSON, _ := json.Marshal(f.Nodes)
		connsJSON, _ := json.Marshal(f.Connections)
		bridgesJSON, _ := json.Marshal(f.Bridges)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flows (id, name, nodes, connections, bridges, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, f.Name, string(nodesJSON), string(connsJSON), string(bridgesJSON), f.CreatedAt, f.UpdatedAt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM flow_store_meta WHERE key = 'active_id'`); err != nil {
		return err
	}
	if firstID != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO flow_store_meta (key, value) VALUES ('active_id', ?)`, firstID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Export(ctx context.Context) ([]*graph.Flow, error) {
	return s.List(ctx)
}

func (s *SQLiteStore) ActiveFlowID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(ctx)
}

func (s *SQLiteStore) activeLocked(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flow_store_meta WHERE key = 'active_id'`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (s *SQLiteStore) ensureActiveLocked(ctx context.Context, fallbackID string) error {
	current, err := s.activeLocked(ctx)
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO flow_store_meta (key, value) VALUES ('active_id', ?)`, fallbackID)
	return err
}

func (s *SQLiteStore) MakeActiveDefault(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getLocked(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_store_meta (key, value) VALUES ('active_id', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, id)
	return err
}

func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecordRunStart(ctx context.Context, flowID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_runs (run_id, flow_id, started_at, status)
		VALUES (?, ?, ?, ?)
	`, runID, flowID, time.Now(), RunStatusRunning)
	if err != nil {
		return fmt.Errorf("flowstore: record run start: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordRunEnd(ctx context.Context, flowID, runID string, output graph.Map, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := RunStatusOK
	errMsg := ""
	if runErr != nil {
		status = RunStatusError
		errMsg = runErr.Error()
	}
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flow_runs SET ended_at = ?, status = ?, error = ?, output = ?
		WHERE run_id = ? AND flow_id = ?
	`, time.Now(), status, errMsg, string(outputJSON), runID, flowID)
	if err != nil {
		return fmt.Errorf("flowstore: record run end: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, flowID string) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, flow_id, started_at, ended_at, status, error, output
		FROM flow_runs WHERE flow_id = ? ORDER BY started_at DESC
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("flowstore: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var endedAt sql.NullTime
		var outputJSON string
		if err := rows.Scan(&r.RunID, &r.FlowID, &r.StartedAt, &endedAt, &r.Status, &r.Err, &outputJSON); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			r.EndedAt = endedAt.Time
		}
		if outputJSON != "" {
			if err := json.Unmarshal([]byte(outputJSON), &r.Output); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var (
	_ Store             = (*SQLiteStore)(nil)
	_ ActiveFlowTracker = (*SQLiteStore)(nil)
	_ RunHistory        = (*SQLiteStore)(nil)
)
