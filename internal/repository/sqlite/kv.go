package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/startup-scout/internal/domain"
)

// kvStore keeps serialized values under string keys in the kv_store table.
type kvStore struct {
	db     *sql.DB
	sealer *Sealer
}

func (s *kvStore) get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_store WHERE key = ?", key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if s.sealer != nil {
		data, err = s.sealer.Open(data)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", key, err)
		}
	}
	return data, nil
}

func (s *kvStore) put(ctx context.Context, key string, data []byte) error {
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("seal %s: %w", key, err)
		}
		data = sealed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *kvStore) delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *kvStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *kvStore) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.put(ctx, key, data)
}

// SessionRepository implements domain.SessionRepository.
type SessionRepository struct {
	kv *kvStore
}

func (r *SessionRepository) Load(ctx context.Context) (domain.PersistedSession, error) {
	var session domain.PersistedSession
	if _, err := r.kv.getJSON(ctx, SessionKey, &session); err != nil {
		return domain.PersistedSession{}, err
	}
	return session, nil
}

func (r *SessionRepository) Save(ctx context.Context, session domain.PersistedSession) error {
	return r.kv.putJSON(ctx, SessionKey, session)
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	return r.kv.delete(ctx, SessionKey)
}

// WatchlistRepository implements domain.WatchlistRepository.
type WatchlistRepository struct {
	kv *kvStore
}

func (r *WatchlistRepository) Load(ctx context.Context) ([]domain.WatchlistEntry, error) {
	var entries []domain.WatchlistEntry
	if _, err := r.kv.getJSON(ctx, WatchlistKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *WatchlistRepository) Save(ctx context.Context, entries []domain.WatchlistEntry) error {
	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}
	return r.kv.putJSON(ctx, WatchlistKey, entries)
}

func (r *WatchlistRepository) Clear(ctx context.Context) error {
	return r.kv.delete(ctx, WatchlistKey)
}
