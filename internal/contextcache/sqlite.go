package contextcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

// SQLiteStore persists AggregatedContext rows keyed by request hash in a
// single context_cache table.
type SQLiteStore struct {
	db         *sql.DB
	stmtGet    *sql.Stmt
	stmtUpsert *sql.Stmt
}

// NewSQLiteStore opens (or creates) the SQLite database at path and
// prepares the context_cache table.
func NewSQLiteStore(path string, busyTimeoutMS int) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("contextcache: database path cannot be empty")
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMS)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("contextcache: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("contextcache: failed to ping database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS context_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("contextcache: failed to initialize schema: %w", err)
	}

	stmtGet, err := db.Prepare(`SELECT payload FROM context_cache WHERE key = ?`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("contextcache: failed to prepare get statement: %w", err)
	}
	stmtUpsert, err := db.Prepare(`INSERT INTO context_cache (key, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("contextcache: failed to prepare upsert statement: %w", err)
	}

	return &SQLiteStore{db: db, stmtGet: stmtGet, stmtUpsert: stmtUpsert}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*types.AggregatedContext, bool) {
	var payload string
	if err := s.stmtGet.QueryRowContext(ctx, key).Scan(&payload); err != nil {
		return nil, false
	}
	var ac types.AggregatedContext
	if err := json.Unmarshal([]byte(payload), &ac); err != nil {
		return nil, false
	}
	return &ac, true
}

func (s *SQLiteStore) Put(ctx context.Context, key string, ac *types.AggregatedContext) error {
	payload, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("contextcache: failed to marshal context: %w", err)
	}
	_, err = s.stmtUpsert.ExecContext(ctx, key, string(payload), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("contextcache: failed to upsert context: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
