package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/set-night/agentchat/internal/domain"
)

type MessageStore struct{ db DBTX }

const messageColumns = `id, session_id, sender_id, sender_type, content, is_generating,
	uniq_key, reply_to_message_id, created_at, updated_at`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m          domain.Message
		senderType string
	)
	err := row.Scan(&m.ID, &m.SessionID, &m.SenderID, &senderType, &m.Content, &m.IsGenerating,
		&m.UniqKey, &m.ReplyToMessageID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.SenderType = domain.SenderType(senderType)
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *MessageStore) Create(ctx context.Context, m *domain.Message) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO messages (id, session_id, sender_id, sender_type, content, is_generating, uniq_key, reply_to_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		m.ID, m.SessionID, m.SenderID, string(m.SenderType), m.Content, m.IsGenerating, m.UniqKey, m.ReplyToMessageID,
	)
	if err := row.Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("insert message: %w", mapErr(err, nil))
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	m, err := scanMessage(s.db.QueryRow(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id))
	if err != nil {
		return nil, mapErr(err, domain.ErrMessageNotFound)
	}
	return m, nil
}

func (s *MessageStore) GetByUniqKey(ctx context.Context, sessionID uuid.UUID, key string) (*domain.Message, error) {
	m, err := scanMessage(s.db.QueryRow(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE session_id = $1 AND uniq_key = $2", sessionID, key))
	if err != nil {
		return nil, mapErr(err, domain.ErrMessageNotFound)
	}
	return m, nil
}

func (s *MessageStore) GetReply(ctx context.Context, replyToID uuid.UUID) (*domain.Message, error) {
	m, err := scanMessage(s.db.QueryRow(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE reply_to_message_id = $1 ORDER BY created_at LIMIT 1", replyToID))
	if err != nil {
		return nil, mapErr(err, domain.ErrMessageNotFound)
	}
	return m, nil
}

func (s *MessageStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE session_id = $1 ORDER BY created_at, sender_type DESC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return collectMessages(rows)
}

// Complete only touches rows that are still generating, so concurrent
// completions cannot overwrite each other.
func (s *MessageStore) Complete(ctx context.Context, id uuid.UUID, content string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages SET content = $2, is_generating = false, updated_at = now()
		WHERE id = $1 AND is_generating`,
		id, content,
	)
	if err != nil {
		return false, fmt.Errorf("complete message: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *MessageStore) ListGeneratingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Message, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE is_generating AND created_at < $1 ORDER BY created_at LIMIT $2",
		before, limit)
	if err != nil {
		return nil, fmt.Errorf("list generating messages: %w", err)
	}
	return collectMessages(rows)
}
