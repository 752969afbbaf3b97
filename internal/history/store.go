package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docsight/internal/models"
	"docsight/internal/redis"
)

// RedisStore keeps the history record as one JSON value under a named key.
type RedisStore struct {
	client *redis.Client
	record string
}

func NewRedisStore(client *redis.Client, record string) *RedisStore {
	return &RedisStore{client: client, record: record}
}

func (s *RedisStore) Load(ctx context.Context) ([]models.HistoryEntry, error) {
	payload, err := s.client.Get(ctx, s.record)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load history record: %w", err)
	}
	return decodeEntries([]byte(payload))
}

func (s *RedisStore) Save(ctx context.Context, entries []models.HistoryEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	return s.client.Set(ctx, s.record, payload)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.record)
}

// SQLStore keeps the history record as one row of the named_records table,
// for deployments without redis (sqlite3 or mysql).
type SQLStore struct {
	db     *sql.DB
	record string
}

func NewSQLStore(db *sql.DB, record string) *SQLStore {
	return &SQLStore{db: db, record: record}
}

func (s *SQLStore) Load(ctx context.Context) ([]models.HistoryEntry, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM named_records WHERE name = ?`, s.record,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history record: %w", err)
	}
	return decodeEntries([]byte(payload))
}

func (s *SQLStore) Save(ctx context.Context, entries []models.HistoryEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}

	// Delete-then-insert keeps the upsert portable across both drivers.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save history record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM named_records WHERE name = ?`, s.record); err != nil {
		tx.Rollback()
		return fmt.Errorf("save history record: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO named_records (name, payload, updated_at) VALUES (?, ?, ?)`,
		s.record, string(payload), time.Now(),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("save history record: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM named_records WHERE name = ?`, s.record)
	return err
}

func decodeEntries(payload []byte) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("corrupt history record: %w", err)
	}
	return entries, nil
}
