package repository

import (
	"context"

	"viloai/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReplyLogRepository is append-only; there is no update or delete path.
type ReplyLogRepository struct {
	db *pgxpool.Pool
}

func NewReplyLogRepository(db *pgxpool.Pool) *ReplyLogRepository {
	return &ReplyLogRepository{db: db}
}

func (r *ReplyLogRepository) AppendLog(ctx context.Context, e *entities.ReplyLogEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reply_logs (id, user_id, message_id, channel, reply_type, recipient_ref, reply_text,
			success, error_message, external_reply_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.UserID, e.MessageID, e.Channel, e.ReplyType, e.RecipientRef, e.ReplyText,
		e.Success, e.ErrorMessage, e.ExternalReplyID, e.CreatedAt)
	return err
}

func (r *ReplyLogRepository) ListLogs(ctx context.Context, userID int, limit int) ([]entities.ReplyLogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, message_id, channel, reply_type, recipient_ref, reply_text,
			success, error_message, external_reply_id, created_at
		FROM reply_logs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []entities.ReplyLogEntry{}
	for rows.Next() {
		var e entities.ReplyLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.MessageID, &e.Channel, &e.ReplyType, &e.RecipientRef, &e.ReplyText,
			&e.Success, &e.ErrorMessage, &e.ExternalReplyID, &e.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}
