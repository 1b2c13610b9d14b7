package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Dialect selects the DDL used for the kv_store table.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var schemas = map[Dialect]string{
	DialectPostgres: `CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value JSONB NOT NULL,
    version BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	DialectSQLite: `CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL
)`,
}

const (
	selectValueQuery    = `SELECT value FROM kv_store WHERE key = $1`
	selectVersionsQuery = `SELECT key, version FROM kv_store`
	upsertQuery         = `INSERT INTO kv_store (key, value, version, updated_at) VALUES ($1, $2, 1, $3)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, version = kv_store.version + 1, updated_at = excluded.updated_at
RETURNING version`
)

type keyVersion struct {
	Key     string `db:"key"`
	Version int64  `db:"version"`
}

// SQL stores values in a single kv_store table. Postgres and SQLite share
// the queries; only the DDL differs. External writes are detected by
// polling the per-key version counter.
type SQL struct {
	db      *sqlx.DB
	dialect Dialect
	logger  *zap.Logger
	subs    listeners

	mu     sync.Mutex
	known  map[string]int64
	primed bool
}

// NewSQL wraps an open database handle.
func NewSQL(db *sqlx.DB, dialect Dialect, logger *zap.Logger) *SQL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQL{db: db, dialect: dialect, logger: logger, known: make(map[string]int64)}
}

// EnsureSchema creates the kv_store table when it does not exist.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	ddl, ok := schemas[s.dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var raw []byte
	if err := s.db.GetContext(ctx, &raw, selectValueQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return json.RawMessage(raw), true, nil
}

func (s *SQL) Set(ctx context.Context, key string, value json.RawMessage) error {
	var version int64
	if err := s.db.GetContext(ctx, &version, upsertQuery, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	s.mu.Lock()
	s.known[key] = version
	s.mu.Unlock()
	return nil
}

func (s *SQL) Subscribe(fn func(key string)) func() {
	return s.subs.add(fn)
}

// Poll compares stored versions with the ones this instance last saw and
// notifies subscribers about keys written elsewhere. The first poll only
// records versions.
func (s *SQL) Poll(ctx context.Context) error {
	var rows []keyVersion
	if err := s.db.SelectContext(ctx, &rows, selectVersionsQuery); err != nil {
		return fmt.Errorf("kv poll: %w", err)
	}

	s.mu.Lock()
	first := !s.primed
	s.primed = true
	var changed []string
	for _, row := range rows {
		if prev, ok := s.known[row.Key]; !ok || row.Version > prev {
			s.known[row.Key] = row.Version
			if !first {
				changed = append(changed, row.Key)
			}
		}
	}
	s.mu.Unlock()

	for _, key := range changed {
		s.subs.notify(key)
	}
	return nil
}

// Watch polls until ctx is cancelled.
func (s *SQL) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("kv poll failed", zap.Error(err))
			}
		}
	}
}

func (s *SQL) Close() error {
	return s.db.Close()
}
