package protocolstore

import (
	"database/sql"
	"strings"
	"time"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS protocol_states (
  protocol_id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT 'Untitled protocol',
  sponsor TEXT NOT NULL DEFAULT '',
  phase TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'in_review',
  version INTEGER NOT NULL DEFAULT 1,
  usdm JSONB NOT NULL DEFAULT '{}'::jsonb,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS protocol_source_docs (
  id SERIAL PRIMARY KEY,
  protocol_id TEXT NOT NULL,
  run_id TEXT NOT NULL,
  path TEXT NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  UNIQUE (run_id, path)
);
CREATE INDEX IF NOT EXISTS idx_protocol_source_docs_protocol_id ON protocol_source_docs (protocol_id);
CREATE INDEX IF NOT EXISTS idx_protocol_source_docs_run_id ON protocol_source_docs (run_id);
`)
	})
	return s.schemaErr
}

const stateColumns = `protocol_id, title, sponsor, phase, status, version, usdm, updated_at`

func scanStateDB(row rowScanner) (State, bool) {
	var state State
	var usdm []byte
	err := row.Scan(
		&state.ProtocolID,
		&state.Title,
		&state.Sponsor,
		&state.Phase,
		&state.Status,
		&state.Version,
		&usdm,
		&state.UpdatedAt,
	)
	if err != nil {
		return State{}, false
	}
	state.USDM = usdm
	return normalizeState(state), true
}

func (s *Store) getDB(protocolID string) (State, bool) {
	if err := s.ensureSchema(); err != nil {
		return State{}, false
	}
	id := strings.TrimSpace(protocolID)
	if id == "" {
		return State{}, false
	}
	row := s.db.QueryRow(`SELECT `+stateColumns+` FROM protocol_states WHERE protocol_id = $1`, id)
	return scanStateDB(row)
}

func (s *Store) putDB(state State) {
	if err := s.ensureSchema(); err != nil {
		return
	}
	n := normalizeState(state)
	if n.ProtocolID == "" {
		return
	}
	usdm := n.USDM
	if len(usdm) == 0 {
		usdm = []byte(`{}`)
	}
	_, _ = s.db.Exec(`
INSERT INTO protocol_states (protocol_id, title, sponsor, phase, status, version, usdm, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (protocol_id)
DO UPDATE SET title=EXCLUDED.title,
  sponsor=EXCLUDED.sponsor,
  phase=EXCLUDED.phase,
  status=EXCLUDED.status,
  version=EXCLUDED.version,
  usdm=EXCLUDED.usdm,
  updated_at=NOW()`,
		n.ProtocolID, n.Title, n.Sponsor, n.Phase, n.Status, n.Version, []byte(usdm))
}

func (s *Store) updateDB(protocolID string, fn func(*State)) (State, bool) {
	if err := s.ensureSchema(); err != nil {
		return State{}, false
	}
	tx, err := s.db.Begin()
	if err != nil {
		return State{}, false
	}
	defer func() { _ = tx.Rollback() }()

	id := strings.TrimSpace(protocolID)
	row := tx.QueryRow(`SELECT `+stateColumns+` FROM protocol_states WHERE protocol_id = $1 FOR UPDATE`, id)
	cur, ok := scanStateDB(row)
	if !ok {
		return State{}, false
	}
	fn(&cur)
	cur.ProtocolID = id
	cur = normalizeState(cur)
	usdm := cur.USDM
	if len(usdm) == 0 {
		usdm = []byte(`{}`)
	}
	_, err = tx.Exec(`
UPDATE protocol_states
SET title=$2, sponsor=$3, phase=$4, status=$5, version=$6, usdm=$7, updated_at=NOW()
WHERE protocol_id=$1`,
		cur.ProtocolID, cur.Title, cur.Sponsor, cur.Phase, cur.Status, cur.Version, []byte(usdm))
	if err != nil {
		return State{}, false
	}
	if err := tx.Commit(); err != nil {
		return State{}, false
	}
	cur.UpdatedAt = time.Now()
	return cur, true
}

func (s *Store) listDB() []State {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	var rows *sql.Rows
	rows, err := s.db.Query(`SELECT ` + stateColumns + ` FROM protocol_states ORDER BY updated_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	out := make([]State, 0, 32)
	for rows.Next() {
		if state, ok := scanStateDB(rows); ok {
			out = append(out, state)
		}
	}
	return out
}

func (s *Store) addSourceDocDB(doc SourceDoc) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
INSERT INTO protocol_source_docs (protocol_id, run_id, path, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (run_id, path) DO NOTHING`,
		doc.ProtocolID, doc.RunID, doc.Path)
	return err
}

func (s *Store) listSourceDocsDB(protocolID string) ([]SourceDoc, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	pid := strings.TrimSpace(protocolID)
	if pid == "" {
		return nil, nil
	}
	rows, err := s.db.Query(`
SELECT id, protocol_id, run_id, path, created_at
FROM protocol_source_docs
WHERE protocol_id = $1
ORDER BY created_at DESC`, pid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceDoc
	for rows.Next() {
		var d SourceDoc
		if err := rows.Scan(&d.ID, &d.ProtocolID, &d.RunID, &d.Path, &d.CreatedAt); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
