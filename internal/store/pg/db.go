// Package pg is the Postgres-backed implementation of internal/store,
// grounded on the teacher's internal/store/pg package (factory shape,
// execMapUpdate partial-update helper, conditional-UPDATE claim pattern).
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// OpenPool opens a pgx connection pool sized per SPEC_FULL §6 (2-10 conns).
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MinConns = 2
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// NewStores wires every Postgres-backed store, grounded on the teacher's
// NewPGStores factory.
func NewStores(pool *pgxpool.Pool) *store.Stores {
	return &store.Stores{
		Messages:   NewMessageStore(pool),
		Tasks:      NewTaskStore(pool),
		Confidence: NewConfidenceStore(pool),
		Feedback:   NewFeedbackStore(pool),
		Turns:      NewTurnStore(pool),
		Settings:   NewSettingStore(pool),
		Health:     NewHealthStore(pool),
		MCPServers: NewMCPServerStore(pool),
	}
}
