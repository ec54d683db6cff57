package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clientatech-agent/internal/models"
)

// SQLiteStore keeps the cache in an llm_cache table so answers survive restarts.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB, ttl time.Duration) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS llm_cache (
		query_hash    TEXT PRIMARY KEY,
		user_query    TEXT NOT NULL,
		intent        TEXT NOT NULL,
		sql_generated TEXT,
		entry         TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_llm_cache_created ON llm_cache(created_at);
	`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT entry FROM llm_cache WHERE query_hash = ?`, fingerprint,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Expired(s.ttl, s.now()) {
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO llm_cache (query_hash, user_query, intent, sql_generated, entry, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_hash) DO UPDATE SET
			user_query = excluded.user_query,
			intent = excluded.intent,
			sql_generated = excluded.sql_generated,
			entry = excluded.entry,
			created_at = excluded.created_at`,
		entry.Fingerprint, entry.Query, string(entry.Intent), entry.SQL, string(data),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM llm_cache`)
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
