package reviewer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS reviewers (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *Store) createDB(r Reviewer) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	res, err := s.db.Exec(`
INSERT INTO reviewers (id, email, name, password_hash, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (email) DO NOTHING`,
		r.ID, r.Email, r.Name, r.PasswordHash, r.CreatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("email %s already registered", r.Email)
	}
	return nil
}

func (s *Store) getByEmailDB(email string) (Reviewer, error) {
	if err := s.ensureSchema(); err != nil {
		return Reviewer{}, err
	}
	row := s.db.QueryRow(`SELECT id, email, name, password_hash, created_at FROM reviewers WHERE email = $1`, email)
	var r Reviewer
	if err := row.Scan(&r.ID, &r.Email, &r.Name, &r.PasswordHash, &r.CreatedAt); err != nil {
		return Reviewer{}, ErrNotFound
	}
	return r, nil
}

func (s *Store) getByIDDB(id string) (Reviewer, error) {
	if err := s.ensureSchema(); err != nil {
		return Reviewer{}, err
	}
	row := s.db.QueryRow(`SELECT id, email, name, password_hash, created_at FROM reviewers WHERE id = $1`, id)
	var r Reviewer
	if err := row.Scan(&r.ID, &r.Email, &r.Name, &r.PasswordHash, &r.CreatedAt); err != nil {
		return Reviewer{}, ErrNotFound
	}
	return r, nil
}

func (s *Store) updatePasswordDB(id, hash string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE reviewers SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []Reviewer
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			n := normalizeReviewer(row)
			if n.ID == "" {
				continue
			}
			s.byID[n.ID] = n
		}
	})
}

func (s *Store) saveFile() {
	s.ensureLoadedFile()
	s.mu.RLock()
	rows := make([]Reviewer, 0, len(s.byID))
	for _, r := range s.byID {
		rows = append(rows, r)
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, b, 0o600)
}

func (s *Store) createFile(r Reviewer) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == r.Email {
			return fmt.Errorf("email %s already registered", r.Email)
		}
	}
	s.byID[r.ID] = r
	return nil
}

func (s *Store) getByEmailFile(email string) (Reviewer, error) {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.byID {
		if strings.EqualFold(r.Email, email) {
			return r, nil
		}
	}
	return Reviewer{}, ErrNotFound
}

func (s *Store) getByIDFile(id string) (Reviewer, error) {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return Reviewer{}, ErrNotFound
	}
	return r, nil
}

func (s *Store) updatePasswordFile(id, hash string) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.PasswordHash = hash
	s.byID[id] = r
	return nil
}
