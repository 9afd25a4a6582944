package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// ConfidenceStore is the Postgres-backed store.ConfidenceStore, grounded on
// db.py's confidence_queue table handling.
type ConfidenceStore struct {
	db *pgxpool.Pool
}

func NewConfidenceStore(db *pgxpool.Pool) *ConfidenceStore { return &ConfidenceStore{db: db} }

func (s *ConfidenceStore) Create(ctx context.Context, item *store.ConfidenceItem) (*store.ConfidenceItem, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO confidence_items (message_id, chat_id, sender_name, text_preview, predicted_type, confidence, is_urgent)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`,
		item.MessageID, item.ChatID, item.SenderName, item.TextPreview, string(item.PredictedType), item.Confidence, item.IsUrgent,
	)
	if err := row.Scan(&item.ID, &item.CreatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ConfidenceStore) Get(ctx context.Context, id int64) (*store.ConfidenceItem, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, message_id, chat_id, sender_name, text_preview, predicted_type, confidence, is_urgent, resolved, created_at
		FROM confidence_items WHERE id = $1`, id)
	return scanConfidenceItem(row)
}

func (s *ConfidenceStore) Unresolved(ctx context.Context) ([]store.ConfidenceItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, message_id, chat_id, sender_name, text_preview, predicted_type, confidence, is_urgent, resolved, created_at
		FROM confidence_items WHERE resolved = FALSE ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ConfidenceItem
	for rows.Next() {
		item, err := scanConfidenceItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// Resolve is idempotent: resolving an already-resolved item reports
// alreadyResolved=true instead of erroring (spec.md §8).
func (s *ConfidenceStore) Resolve(ctx context.Context, id int64) (bool, error) {
	var wasResolved bool
	err := s.db.QueryRow(ctx, `SELECT resolved FROM confidence_items WHERE id = $1`, id).Scan(&wasResolved)
	if err != nil {
		return false, err
	}
	if wasResolved {
		return true, nil
	}
	_, err = s.db.Exec(ctx, `UPDATE confidence_items SET resolved = TRUE WHERE id = $1`, id)
	return false, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfidenceItem(row rowScanner) (*store.ConfidenceItem, error) {
	var item store.ConfidenceItem
	var predictedType string
	if err := row.Scan(&item.ID, &item.MessageID, &item.ChatID, &item.SenderName, &item.TextPreview,
		&predictedType, &item.Confidence, &item.IsUrgent, &item.Resolved, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.PredictedType = store.TaskType(predictedType)
	return &item, nil
}
