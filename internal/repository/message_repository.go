package repository

import (
	"context"
	"errors"
	"time"

	"viloai/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, user_id, platform_id, conversation_id, sender_id, sender_username, sender_name,
	text, channel, parent_post_id, received_at, intent, confidence, detected_language,
	suggested_reply_fi, suggested_reply_en, is_question, replied, reply_text, replied_by,
	replied_at, external_reply_id, created_at`

func scanMessage(row pgx.Row) (*entities.InboundMessage, error) {
	var m entities.InboundMessage
	err := row.Scan(&m.ID, &m.UserID, &m.PlatformID, &m.ConversationID, &m.SenderID, &m.SenderUsername, &m.SenderName,
		&m.Text, &m.Channel, &m.ParentPostID, &m.ReceivedAt, &m.Intent, &m.Confidence, &m.DetectedLanguage,
		&m.SuggestedReplyFI, &m.SuggestedReplyEN, &m.IsQuestion, &m.Replied, &m.ReplyText, &m.RepliedBy,
		&m.RepliedAt, &m.ExternalReplyID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) Exists(ctx context.Context, userID int, platformID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM instagram_messages WHERE user_id = $1 AND platform_id = $2)",
		userID, platformID).Scan(&exists)
	return exists, err
}

// InsertIfNotExists relies on UNIQUE (user_id, platform_id); a conflicting
// insert affects no rows.
func (r *MessageRepository) InsertIfNotExists(ctx context.Context, m *entities.InboundMessage) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO instagram_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (user_id, platform_id) DO NOTHING
	`, m.ID, m.UserID, m.PlatformID, m.ConversationID, m.SenderID, m.SenderUsername, m.SenderName,
		m.Text, m.Channel, m.ParentPostID, m.ReceivedAt, m.Intent, m.Confidence, m.DetectedLanguage,
		m.SuggestedReplyFI, m.SuggestedReplyEN, m.IsQuestion, m.Replied, m.ReplyText, m.RepliedBy,
		m.RepliedAt, m.ExternalReplyID, m.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *MessageRepository) Get(ctx context.Context, userID int, id uuid.UUID) (*entities.InboundMessage, error) {
	m, err := scanMessage(r.db.QueryRow(ctx,
		"SELECT "+messageColumns+" FROM instagram_messages WHERE user_id = $1 AND id = $2", userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	return m, err
}

func (r *MessageRepository) Update(ctx context.Context, m *entities.InboundMessage) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE instagram_messages SET
			intent = $3, confidence = $4, detected_language = $5,
			suggested_reply_fi = $6, suggested_reply_en = $7, is_question = $8,
			replied = $9, reply_text = $10, replied_by = $11, replied_at = $12, external_reply_id = $13
		WHERE user_id = $1 AND id = $2
	`, m.UserID, m.ID, m.Intent, m.Confidence, m.DetectedLanguage,
		m.SuggestedReplyFI, m.SuggestedReplyEN, m.IsQuestion,
		m.Replied, m.ReplyText, m.RepliedBy, m.RepliedAt, m.ExternalReplyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) List(ctx context.Context, userID int, limit int) ([]entities.InboundMessage, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+messageColumns+" FROM instagram_messages WHERE user_id = $1 ORDER BY received_at DESC LIMIT $2",
		userID, limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *MessageRepository) ConversationSince(ctx context.Context, userID int, conversationID string, since, before time.Time) ([]entities.InboundMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+` FROM instagram_messages
		WHERE user_id = $1 AND conversation_id = $2 AND received_at >= $3 AND received_at < $4
		ORDER BY received_at ASC
	`, userID, conversationID, since, before)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *MessageRepository) DeleteAll(ctx context.Context, userID int) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM instagram_messages WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectMessages(rows pgx.Rows) ([]entities.InboundMessage, error) {
	defer rows.Close()

	msgs := []entities.InboundMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}
