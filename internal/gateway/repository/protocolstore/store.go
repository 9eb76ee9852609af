package protocolstore

import (
	"database/sql"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store fronts the configured backend. A nil *Store is inert: every method is
// a safe no-op, matching how the gateway treats optional stores.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]State

	schemaOnce sync.Once
	schemaErr  error

	sourceDocCache *lru.Cache[string, []SourceDoc]
}

// New returns a file-backed store persisting to path.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]State),
	}
}

// NewPostgres returns a Postgres-backed store using the pgx stdlib driver.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, []SourceDoc](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:             db,
		sourceDocCache: cache,
	}, nil
}

// NewFromEnv prefers Postgres when PROTOCOL_STORE_PG_DSN is set and reachable,
// falling back to the file backend at path.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("PROTOCOL_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

// EnsureLoaded forces backend initialization: schema creation for Postgres,
// file load for the file backend.
func (s *Store) EnsureLoaded() {
	if s == nil {
		return
	}
	if s.db != nil {
		_ = s.ensureSchema()
		return
	}
	s.ensureLoadedFile()
}

// Save flushes the file backend; Postgres writes through immediately.
func (s *Store) Save() {
	if s == nil || s.db != nil {
		return
	}
	s.saveFile()
}

func (s *Store) Get(protocolID string) (State, bool) {
	if s == nil {
		return State{}, false
	}
	if s.db != nil {
		return s.getDB(protocolID)
	}
	return s.getFile(protocolID)
}

func (s *Store) Put(state State) {
	if s == nil {
		return
	}
	if s.db != nil {
		s.putDB(state)
		return
	}
	s.putFile(state)
}

// Update applies fn to the stored state under the backend's exclusion
// (row lock for Postgres, mutex for the file backend) and returns the result.
func (s *Store) Update(protocolID string, fn func(*State)) (State, bool) {
	if s == nil {
		return State{}, false
	}
	if s.db != nil {
		return s.updateDB(protocolID, fn)
	}
	return s.updateFile(protocolID, fn)
}

// ReplaceUSDM swaps in a new extracted document and bumps the version.
func (s *Store) ReplaceUSDM(protocolID string, usdm []byte) (State, bool) {
	return s.Update(protocolID, func(state *State) {
		state.USDM = append([]byte(nil), usdm...)
		state.Version++
	})
}

func (s *Store) List() []State {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.listDB()
	}
	return s.listFile()
}

func (s *Store) AddSourceDoc(doc SourceDoc) error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		err := s.addSourceDocDB(doc)
		if err == nil && s.sourceDocCache != nil {
			s.sourceDocCache.Remove(doc.ProtocolID)
		}
		return err
	}
	return s.addSourceDocFile(doc)
}

func (s *Store) ListSourceDocs(protocolID string) ([]SourceDoc, error) {
	if s == nil {
		return nil, nil
	}
	if s.db != nil {
		if s.sourceDocCache != nil {
			if cached, ok := s.sourceDocCache.Get(protocolID); ok {
				return cached, nil
			}
		}
		docs, err := s.listSourceDocsDB(protocolID)
		if err != nil {
			return nil, err
		}
		if s.sourceDocCache != nil {
			s.sourceDocCache.Add(protocolID, docs)
		}
		return docs, nil
	}
	return s.listSourceDocsFile(protocolID)
}
