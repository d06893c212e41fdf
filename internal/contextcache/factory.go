package contextcache

import "log"

// BackendType selects a Store implementation.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendSQLite BackendType = "sqlite"
)

// Config configures New's backend selection.
type Config struct {
	Type          BackendType
	SQLitePath    string
	SQLiteTimeout int
	// Fallback is tried if Type fails to initialize. Empty disables fallback.
	Fallback BackendType
}

// New builds a Store per cfg, falling back to cfg.Fallback (typically
// memory) on initialization failure.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case BackendMemory, "":
		return NewMemoryStore(), nil

	case BackendSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath, cfg.SQLiteTimeout)
		if err != nil {
			if cfg.Fallback != "" && cfg.Fallback != cfg.Type {
				log.Printf("[contextcache] sqlite init failed: %v; falling back to %s", err, cfg.Fallback)
				return New(Config{Type: cfg.Fallback})
			}
			return nil, err
		}
		return store, nil

	default:
		return NewMemoryStore(), nil
	}
}
