package flowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowrunner/flowrunner/graph"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL-backed Flow Store, adapted from
// graph/store.MySQLStore's connection-pool setup for a shared,
// multi-process deployment, with the same flows table shape as
// SQLiteStore so callers can swap backends without touching call sites.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool against dsn and ensures the
// flows schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("flowstore: open mysql: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := migrateMySQL(db); err != nil {
		return nil, err
	}
	return &MySQLStore{db: db}, nil
}

func migrateMySQL(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS flows (
	id VARCHAR(64) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	nodes JSON NOT NULL,
	connections JSON NOT NULL,
	bridges JSON NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL
);
CREATE TABLE IF NOT EXISTS flow_store_meta (
	` + "`key`" + ` VARCHAR(64) PRIMARY KEY,
	value VARCHAR(255) NOT NULL
);
CREATE TABLE IF NOT EXISTS flow_runs (
	run_id VARCHAR(64) PRIMARY KEY,
	flow_id VARCHAR(64) NOT NULL,
	started_at DATETIME(6) NOT NULL,
	ended_at DATETIME(6) NULL,
	status VARCHAR(16) NOT NULL,
	error TEXT NOT NULL,
	output JSON NOT NULL,
	INDEX idx_flow_runs_flow_id (flow_id)
);
`
	for _, stmt := range splitStatements(schema) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("flowstore: migrate mysql: %w", err)
		}
	}
	return nil
}

func splitStatements(schema string) []string {
	var out []string
	start := 0
	for i, r := range schema {
		if r == ';' {
			stmt := schema[start:i]
			if trimmed := trimSpace(stmt); trimmed != "" {
				out = append(out, trimmed)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) Save(ctx context.Context, id, name string, nodes []graph.Node, connections []graph.Connection, bridges []graph.Bridge) (*graph.Flow, error) {
	isNew := id == ""
	if isNew {
		id = newID()
	}

	f := &graph.Flow{ID: id, Name: name, Nodes: nodes, Connections: connections, Bridges: bridges}
	existing, err := s.Get(ctx, id)
	if err == nil {
		f.CreatedAt = existing.CreatedAt
		isNew = false
	} else if err != ErrNotFound {
		return nil, err
	}
	stampTimestamps(f, time.Now(), isNew)

	nodesJSON, _ := json.Marshal(f.Nodes)
	connsJSON, _ := json.Marshal(f.Connections)
	bridgesJSON, _ := json.Marshal(f.Bridges)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, name, nodes, connections, bridges, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name=VALUES(name), nodes=VALUES(nodes),
			connections=VALUES(connections), bridges=VALUES(bridges), updated_at=VALUES(updated_at)
	`, f.ID, f.Name, string(nodesJSON), string(connsJSON), string(bridgesJSON), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("flowstore: save: %w", err)
	}

	if err := s.ensureActive(ctx, id); err != nil {
		return nil, err
	}
	return cloneFlow(f), nil
}

func (s *MySQLStore) Get(ctx context.Context, id string) (*graph.Flow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, nodes, connections, bridges, created_at, updated_at FROM flows WHERE id = ?`, id)
	var f graph.Flow
	var nodesJSON, connsJSON, bridgesJSON string
	err := row.Scan(&f.ID, &f.Name, &nodesJSON, &connsJSON, &bridgesJSON, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("flowstore: get: %w", err)
	}
	_ = json.Unmarshal([]byte(nodesJSON), &f.Nodes)
	_ = json.Unmarshal([]byte(connsJSON), &f.Connections)
	_ = json.Unmarshal([]byte(bridgesJSON), &f.Bridges)
	return &f, nil
}

func (s *MySQLStore) List(ctx context.Context) ([]*graph.Flow, error) {
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
		_ = json.Unmarshal([]byte(nodesJSON), &f.Nodes)
		_ = json.Unmarshal([]byte(connsJSON), &f.Connections)
		_ = json.Unmarshal([]byte(bridgesJSON), &f.Bridges)
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *MySQLStore) Rename(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE flows SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("flowstore: rename: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("flowstore: delete: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}
	active, _ := s.ActiveFlowID(ctx)
	if active == id {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM flow_store_meta WHERE `key` = 'active_id'")
		var otherID string
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM flows LIMIT 1`).Scan(&otherID); err == nil {
			_ = s.ensureActive(ctx, otherID)
		}
	}
	return nil
}

func (s *MySQLStore) Import(ctx context.Context, flows []*graph.Flow) error {
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
	if _, err := tx.ExecContext(ctx, "DELETE FROM flow_store_meta WHERE `key` = 'active_id'"); err != nil {
		return err
	}
	if firstID != "" {
		if _, err := tx.ExecContext(ctx, "INSERT INTO flow_store_meta (`key`, value) VALUES ('active_id', ?)", firstID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *MySQLStore) Export(ctx context.Context) ([]*graph.Flow, error) {
	return s.List(ctx)
}

func (s *MySQLStore) ActiveFlowID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM flow_store_meta WHERE `key` = 'active_id'").Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (s *MySQLStore) ensureActive(ctx context.Context, fallbackID string) error {
	current, err := s.ActiveFlowID(ctx)
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	_, err = s.db.ExecContext(ctx, "INSERT INTO flow_store_meta (`key`, value) VALUES ('active_id', ?)", fallbackID)
	return err
}

func (s *MySQLStore) MakeActiveDefault(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO flow_store_meta (`key`, value) VALUES ('active_id', ?) ON DUPLICATE KEY UPDATE value=VALUES(value)", id)
	return err
}

func (s *MySQLStore) RecordRunStart(ctx context.Context, flowID, runID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_runs (run_id, flow_id, started_at, status, error, output)
		VALUES (?, ?, ?, ?, '', '{}')
	`, runID, flowID, time.Now(), RunStatusRunning)
	if err != nil {
		return fmt.Errorf("flowstore: record run start: %w", err)
	}
	return nil
}

func (s *MySQLStore) RecordRunEnd(ctx context.Context, flowID, runID string, output graph.Map, runErr error) error {
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

func (s *MySQLStore) ListRuns(ctx context.Context, flowID string) ([]RunRecord, error) {
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
	_ Store             = (*MySQLStore)(nil)
	_ ActiveFlowTracker = (*MySQLStore)(nil)
	_ RunHistory        = (*MySQLStore)(nil)
)
