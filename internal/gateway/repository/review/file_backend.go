package review

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []FieldReview
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			n := normalizeReview(row)
			if n.ProtocolID == "" || n.Path == "" {
				continue
			}
			if s.byProtocol[n.ProtocolID] == nil {
				s.byProtocol[n.ProtocolID] = make(map[string]FieldReview)
			}
			s.byProtocol[n.ProtocolID][n.Path] = n
		}
	})
}

func (s *Store) saveFile() {
	s.ensureLoadedFile()
	s.mu.RLock()
	var rows []FieldReview
	for _, byPath := range s.byProtocol {
		for _, r := range byPath {
			rows = append(rows, r)
		}
	}
	s.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProtocolID != rows[j].ProtocolID {
			return rows[i].ProtocolID < rows[j].ProtocolID
		}
		return rows[i].Path < rows[j].Path
	})

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, b, 0o644)
}

func (s *Store) upsertFile(r FieldReview) (FieldReview, error) {
	s.ensureLoadedFile()
	r.UpdatedAt = time.Now()
	s.mu.Lock()
	if s.byProtocol[r.ProtocolID] == nil {
		s.byProtocol[r.ProtocolID] = make(map[string]FieldReview)
	}
	s.byProtocol[r.ProtocolID][r.Path] = r
	s.mu.Unlock()
	return r, nil
}

func (s *Store) getFile(protocolID, path string) (FieldReview, bool) {
	s.ensureLoadedFile()
	pid := strings.TrimSpace(protocolID)
	p := strings.TrimSpace(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byProtocol[pid][p]
	return r, ok
}

func (s *Store) listFile(protocolID string) []FieldReview {
	s.ensureLoadedFile()
	pid := strings.TrimSpace(protocolID)
	s.mu.RLock()
	byPath := s.byProtocol[pid]
	out := make([]FieldReview, 0, len(byPath))
	for _, r := range byPath {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
