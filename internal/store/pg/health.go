package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// HealthStore is the Postgres-backed store.HealthStore: the last-heartbeat
// table the watchdog and /health command both read, grounded on
// watchdog.py's per-module status tracking.
type HealthStore struct {
	db *pgxpool.Pool
}

func NewHealthStore(db *pgxpool.Pool) *HealthStore { return &HealthStore{db: db} }

func (s *HealthStore) Heartbeat(ctx context.Context, module, status, errMsg string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO health_checks (module, status, error, ts) VALUES ($1, $2, $3, now())
		ON CONFLICT (module) DO UPDATE SET status = EXCLUDED.status, error = EXCLUDED.error, ts = EXCLUDED.ts`,
		module, status, errMsg)
	return err
}

func (s *HealthStore) All(ctx context.Context) ([]store.HealthCheck, error) {
	rows, err := s.db.Query(ctx, `SELECT module, status, error, ts FROM health_checks ORDER BY module`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.HealthCheck
	for rows.Next() {
		var h store.HealthCheck
		if err := rows.Scan(&h.Module, &h.Status, &h.Error, &h.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
