package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// TurnStore is the Postgres-backed store.TurnStore, grounded on db.py's
// conversation_history table (owner<->assistant dialogue window for the
// tool-use loop's rolling context).
type TurnStore struct {
	db *pgxpool.Pool
}

func NewTurnStore(db *pgxpool.Pool) *TurnStore { return &TurnStore{db: db} }

func (s *TurnStore) Append(ctx context.Context, t *store.ConversationTurn) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO conversation_turns (role, content, tool_calls)
		VALUES ($1,$2,$3)
		RETURNING id, created_at`,
		string(t.Role), t.Content, t.ToolCalls,
	)
	return row.Scan(&t.ID, &t.CreatedAt)
}

// Recent returns the last `limit` turns in chronological order, the window
// used to build the conversation's rolling context (spec.md §4.4).
func (s *TurnStore) Recent(ctx context.Context, limit int) ([]store.ConversationTurn, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, role, content, tool_calls, created_at
		FROM conversation_turns ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *TurnStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM conversation_turns WHERE created_at < now() - $1::interval`, age.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTurns(rows pgx.Rows) ([]store.ConversationTurn, error) {
	var out []store.ConversationTurn
	for rows.Next() {
		var t store.ConversationTurn
		var role string
		if err := rows.Scan(&t.ID, &role, &t.Content, &t.ToolCalls, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Role = store.TurnRole(role)
		out = append(out, t)
	}
	return out, rows.Err()
}
