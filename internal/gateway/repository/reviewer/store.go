// Package reviewer persists reviewer accounts. Same backend split as the
// other repositories: Postgres when configured, JSON file otherwise.
package reviewer

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Reviewer is one account. PasswordHash is a bcrypt hash and never leaves the
// backend layer.
type Reviewer struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

var ErrNotFound = fmt.Errorf("reviewer not found")

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]Reviewer

	schemaOnce sync.Once
	schemaErr  error
}

func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]Reviewer),
	}
}

func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB shares an existing connection pool.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// NewFromEnv prefers Postgres when REVIEWER_STORE_PG_DSN is set and reachable.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("REVIEWER_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func normalizeReviewer(r Reviewer) Reviewer {
	r.ID = strings.TrimSpace(r.ID)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	return r
}

// Create inserts a new account; the email must be unused.
func (s *Store) Create(r Reviewer) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	n := normalizeReviewer(r)
	if n.ID == "" || n.Email == "" {
		return fmt.Errorf("id and email are required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if s.db != nil {
		return s.createDB(n)
	}
	return s.createFile(n)
}

func (s *Store) GetByEmail(email string) (Reviewer, error) {
	if s == nil {
		return Reviewer{}, ErrNotFound
	}
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return Reviewer{}, ErrNotFound
	}
	if s.db != nil {
		return s.getByEmailDB(key)
	}
	return s.getByEmailFile(key)
}

func (s *Store) GetByID(id string) (Reviewer, error) {
	if s == nil {
		return Reviewer{}, ErrNotFound
	}
	key := strings.TrimSpace(id)
	if key == "" {
		return Reviewer{}, ErrNotFound
	}
	if s.db != nil {
		return s.getByIDDB(key)
	}
	return s.getByIDFile(key)
}

// UpdatePassword swaps the stored hash.
func (s *Store) UpdatePassword(id, passwordHash string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	key := strings.TrimSpace(id)
	if key == "" {
		return ErrNotFound
	}
	if s.db != nil {
		return s.updatePasswordDB(key, passwordHash)
	}
	return s.updatePasswordFile(key, passwordHash)
}

// Save flushes the file backend.
func (s *Store) Save() {
	if s == nil || s.db != nil {
		return
	}
	s.saveFile()
}
