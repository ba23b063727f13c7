package cache

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 256

// Preparer is satisfied by *sql.DB.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type entry struct {
	query string
	stmt  *sql.Stmt
}

// StatementCache keeps prepared statements keyed by their text. Evicted
// statements are closed.
type StatementCache struct {
	cache *lru.Cache[uint64, entry]
	mu    sync.Mutex
}

func NewStatementCache(size int) (*StatementCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.NewWithEvict(size, func(_ uint64, e entry) {
		_ = e.stmt.Close()
	})
	if err != nil {
		return nil, err
	}
	return &StatementCache{cache: cache}, nil
}

// GetOrPrepare returns the cached statement for query, preparing it on db on
// a miss.
func (s *StatementCache) GetOrPrepare(ctx context.Context, db Preparer, query string) (*sql.Stmt, error) {
	key := Key(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.cache.Get(key); ok {
		if e.query == query {
			return e.stmt, nil
		}
		// fingerprint collision
		s.cache.Remove(key)
	}

	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, entry{query: query, stmt: stmt})
	return stmt, nil
}

// Len returns the number of cached statements.
func (s *StatementCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// Close closes every cached statement.
func (s *StatementCache) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Purge()
	return nil
}
