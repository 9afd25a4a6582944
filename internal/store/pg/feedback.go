package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// FeedbackStore is the Postgres-backed store.FeedbackStore: an append-only
// log of owner corrections, grounded on db.py's classification_feedback
// insert used to retrain prompt examples.
type FeedbackStore struct {
	db *pgxpool.Pool
}

func NewFeedbackStore(db *pgxpool.Pool) *FeedbackStore { return &FeedbackStore{db: db} }

func (s *FeedbackStore) Append(ctx context.Context, f *store.ClassificationFeedback) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO classification_feedback (message_id, predicted_type, actual_type, predicted_confidence, user_reason)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		f.MessageID, f.PredictedType, f.ActualType, f.PredictedConfidence, f.UserReason,
	)
	return row.Scan(&f.ID, &f.CreatedAt)
}
