package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// MessageStore is the Postgres-backed store.MessageStore, grounded on
// db.py's save_message/search_messages idempotent-insert + FTS pattern.
type MessageStore struct {
	db *pgxpool.Pool
}

func NewMessageStore(db *pgxpool.Pool) *MessageStore { return &MessageStore{db: db} }

func (s *MessageStore) Save(ctx context.Context, m *store.Message) (int64, bool, error) {
	var id int64
	row := s.db.QueryRow(ctx, `
		INSERT INTO messages (upstream_msg_id, chat_id, chat_title, sender_id, sender_name, text, media_kind, account_label, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (upstream_msg_id, chat_id) DO NOTHING
		RETURNING id`,
		m.UpstreamMsgID, m.ChatID, m.ChatTitle, m.SenderID, m.SenderName, m.Text, string(m.MediaKind), m.AccountLabel, m.Timestamp,
	)
	if err := row.Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil // idempotent drop, spec.md §4.1 step 5
		}
		return 0, false, fmt.Errorf("save message: %w", err)
	}
	return id, true, nil
}

func (s *MessageStore) MarkProcessed(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `UPDATE messages SET processed = TRUE WHERE id = $1`, id)
	return err
}

func (s *MessageStore) RecentInChat(ctx context.Context, chatID int64, limit int) ([]store.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, upstream_msg_id, chat_id, chat_title, sender_id, sender_name, text, media_kind, account_label, processed, ts
		FROM messages WHERE chat_id = $1 ORDER BY ts DESC LIMIT $2`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *MessageStore) Since(ctx context.Context, chatID int64, since time.Time) ([]store.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, upstream_msg_id, chat_id, chat_title, sender_id, sender_name, text, media_kind, account_label, processed, ts
		FROM messages WHERE chat_id = $1 AND ts >= $2 ORDER BY ts ASC`, chatID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Search runs tsvector FTS with ILIKE fallback, per spec.md §4.5.
func (s *MessageStore) Search(ctx context.Context, query string, limit int) ([]store.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, upstream_msg_id, chat_id, chat_title, sender_id, sender_name, text, media_kind, account_label, processed, ts
		FROM messages
		WHERE search_vector @@ plainto_tsquery('russian', $1)
		ORDER BY ts_rank(search_vector, plainto_tsquery('russian', $1)) DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, err
	}
	msgs, err := scanMessages(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	rows, err = s.db.Query(ctx, `
		SELECT id, upstream_msg_id, chat_id, chat_title, sender_id, sender_name, text, media_kind, account_label, processed, ts
		FROM messages WHERE text ILIKE $1 ORDER BY ts DESC LIMIT $2`, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *MessageStore) SearchBySender(ctx context.Context, senderName string, limit int) ([]store.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, upstream_msg_id, chat_id, chat_title, sender_id, sender_name, text, media_kind, account_label, processed, ts
		FROM messages WHERE sender_name ILIKE $1 ORDER BY ts DESC LIMIT $2`, "%"+senderName+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *MessageStore) IsKnownSender(ctx context.Context, chatID, senderID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM messages WHERE chat_id = $1 AND sender_id = $2`, chatID, senderID).Scan(&count)
	return count > 0, err
}

func (s *MessageStore) Stats(ctx context.Context) (int64, string, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM messages`).Scan(&count); err != nil {
		return 0, "", err
	}
	var size string
	if err := s.db.QueryRow(ctx, `SELECT pg_size_pretty(pg_database_size(current_database()))`).Scan(&size); err != nil {
		return count, "", err
	}
	return count, size, nil
}

func scanMessages(rows pgx.Rows) ([]store.Message, error) {
	var out []store.Message
	for rows.Next() {
		var m store.Message
		var mediaKind string
		if err := rows.Scan(&m.ID, &m.UpstreamMsgID, &m.ChatID, &m.ChatTitle, &m.SenderID, &m.SenderName,
			&m.Text, &mediaKind, &m.AccountLabel, &m.Processed, &m.Timestamp); err != nil {
			return nil, err
		}
		m.MediaKind = store.MediaKind(mediaKind)
		out = append(out, m)
	}
	return out, rows.Err()
}
