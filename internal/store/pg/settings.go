package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingStore is the Postgres-backed store.SettingStore, grounded on
// db.py's settings key/value table (owner mode, whitelist, thresholds).
type SettingStore struct {
	db *pgxpool.Pool
}

func NewSettingStore(db *pgxpool.Pool) *SettingStore { return &SettingStore{db: db} }

func (s *SettingStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("unmarshal setting %q: %w", key, err)
	}
	return true, nil
}

func (s *SettingStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %q: %w", key, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, raw)
	return err
}
