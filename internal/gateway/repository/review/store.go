package review

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store fronts the configured backend, Postgres or JSON file. A nil *Store is
// inert.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	// byProtocol maps protocol id -> path -> review.
	byProtocol map[string]map[string]FieldReview

	schemaOnce sync.Once
	schemaErr  error
}

// New returns a file-backed store persisting to path.
func New(path string) *Store {
	return &Store{
		path:       path,
		byProtocol: make(map[string]map[string]FieldReview),
	}
}

// NewPostgres returns a Postgres-backed store.
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

// NewWithDB wraps an existing handle; the gateway shares one connection pool
// between the review and reviewer tables.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// NewFromEnv prefers Postgres when REVIEW_STORE_PG_DSN is set and reachable.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("REVIEW_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

// Save flushes the file backend.
func (s *Store) Save() {
	if s == nil || s.db != nil {
		return
	}
	s.saveFile()
}

// Upsert records a decision, replacing any earlier decision for the same
// protocol and path.
func (s *Store) Upsert(r FieldReview) (FieldReview, error) {
	if s == nil {
		return FieldReview{}, fmt.Errorf("store is nil")
	}
	n := normalizeReview(r)
	if n.ProtocolID == "" || n.Path == "" {
		return FieldReview{}, fmt.Errorf("protocol_id and path are required")
	}
	if s.db != nil {
		return s.upsertDB(n)
	}
	return s.upsertFile(n)
}

func (s *Store) Get(protocolID, path string) (FieldReview, bool) {
	if s == nil {
		return FieldReview{}, false
	}
	if s.db != nil {
		return s.getDB(protocolID, path)
	}
	return s.getFile(protocolID, path)
}

func (s *Store) ListByProtocol(protocolID string) []FieldReview {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.listDB(protocolID)
	}
	return s.listFile(protocolID)
}

// Summarize counts decisions per status for one protocol.
func (s *Store) Summarize(protocolID string) Summary {
	var out Summary
	for _, r := range s.ListByProtocol(protocolID) {
		switch r.Status {
		case StatusApproved:
			out.Approved++
		case StatusFlagged:
			out.Flagged++
		default:
			out.Pending++
		}
	}
	return out
}
