package review

import (
	"strings"
	"time"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS field_reviews (
  protocol_id TEXT NOT NULL,
  path TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  comment TEXT NOT NULL DEFAULT '',
  reviewer TEXT NOT NULL DEFAULT '',
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  PRIMARY KEY (protocol_id, path)
);
CREATE INDEX IF NOT EXISTS idx_field_reviews_protocol_id ON field_reviews (protocol_id);
`)
	})
	return s.schemaErr
}

func scanReviewDB(row rowScanner) (FieldReview, bool) {
	var r FieldReview
	err := row.Scan(&r.ProtocolID, &r.Path, &r.Status, &r.Comment, &r.Reviewer, &r.UpdatedAt)
	if err != nil {
		return FieldReview{}, false
	}
	return normalizeReview(r), true
}

func (s *Store) upsertDB(r FieldReview) (FieldReview, error) {
	if err := s.ensureSchema(); err != nil {
		return FieldReview{}, err
	}
	_, err := s.db.Exec(`
INSERT INTO field_reviews (protocol_id, path, status, comment, reviewer, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (protocol_id, path)
DO UPDATE SET status=EXCLUDED.status,
  comment=EXCLUDED.comment,
  reviewer=EXCLUDED.reviewer,
  updated_at=NOW()`,
		r.ProtocolID, r.Path, r.Status, r.Comment, r.Reviewer)
	if err != nil {
		return FieldReview{}, err
	}
	r.UpdatedAt = time.Now()
	return r, nil
}

func (s *Store) getDB(protocolID, path string) (FieldReview, bool) {
	if err := s.ensureSchema(); err != nil {
		return FieldReview{}, false
	}
	pid := strings.TrimSpace(protocolID)
	p := strings.TrimSpace(path)
	if pid == "" || p == "" {
		return FieldReview{}, false
	}
	row := s.db.QueryRow(`
SELECT protocol_id, path, status, comment, reviewer, updated_at
FROM field_reviews WHERE protocol_id = $1 AND path = $2`, pid, p)
	return scanReviewDB(row)
}

func (s *Store) listDB(protocolID string) []FieldReview {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	pid := strings.TrimSpace(protocolID)
	if pid == "" {
		return nil
	}
	rows, err := s.db.Query(`
SELECT protocol_id, path, status, comment, reviewer, updated_at
FROM field_reviews WHERE protocol_id = $1 ORDER BY path`, pid)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []FieldReview
	for rows.Next() {
		if r, ok := scanReviewDB(rows); ok {
			out = append(out, r)
		}
	}
	return out
}
