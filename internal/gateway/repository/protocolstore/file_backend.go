package protocolstore

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
		var rows []State
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			id := strings.TrimSpace(row.ProtocolID)
			if id == "" {
				continue
			}
			s.byID[id] = normalizeState(row)
		}
	})
}

func (s *Store) saveFile() {
	s.ensureLoadedFile()
	s.mu.RLock()
	rows := make([]State, 0, len(s.byID))
	for _, state := range s.byID {
		rows = append(rows, normalizeState(state))
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, b, 0o644)
}

func (s *Store) getFile(protocolID string) (State, bool) {
	s.ensureLoadedFile()
	id := strings.TrimSpace(protocolID)
	if id == "" {
		return State{}, false
	}
	s.mu.RLock()
	state, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return State{}, false
	}
	return normalizeState(state), true
}

func (s *Store) putFile(state State) {
	s.ensureLoadedFile()
	normalized := normalizeState(state)
	if normalized.ProtocolID == "" {
		return
	}
	normalized.UpdatedAt = time.Now()
	s.mu.Lock()
	s.byID[normalized.ProtocolID] = normalized
	s.mu.Unlock()
}

func (s *Store) updateFile(protocolID string, fn func(*State)) (State, bool) {
	s.ensureLoadedFile()
	id := strings.TrimSpace(protocolID)
	if id == "" {
		return State{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[id]
	if !ok {
		return State{}, false
	}
	fn(&state)
	state.ProtocolID = id
	state = normalizeState(state)
	state.UpdatedAt = time.Now()
	s.byID[id] = state
	return state, true
}

func (s *Store) listFile() []State {
	s.ensureLoadedFile()
	s.mu.RLock()
	out := make([]State, 0, len(s.byID))
	for _, state := range s.byID {
		out = append(out, normalizeState(state))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ProtocolID < out[j].ProtocolID
	})
	return out
}

func (s *Store) addSourceDocFile(doc SourceDoc) error {
	s.ensureLoadedFile()
	pid := strings.TrimSpace(doc.ProtocolID)
	if pid == "" {
		return nil
	}
	s.mu.Lock()
	state, ok := s.byID[pid]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	for _, d := range state.SourceDocs {
		if d.RunID == doc.RunID && d.Path == doc.Path {
			s.mu.Unlock()
			return nil
		}
	}
	doc.CreatedAt = time.Now()
	doc.ID = len(state.SourceDocs) + 1
	state.SourceDocs = append(state.SourceDocs, doc)
	s.byID[pid] = state
	s.mu.Unlock()

	s.saveFile()
	return nil
}

func (s *Store) listSourceDocsFile(protocolID string) ([]SourceDoc, error) {
	s.ensureLoadedFile()
	pid := strings.TrimSpace(protocolID)
	if pid == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.byID[pid]
	if !ok {
		return nil, nil
	}
	// Newest first, mirroring the Postgres ordering.
	out := make([]SourceDoc, 0, len(state.SourceDocs))
	for i := len(state.SourceDocs) - 1; i >= 0; i-- {
		out = append(out, state.SourceDocs[i])
	}
	return out, nil
}
