package repository

import (
	"context"
	"errors"
	"fmt"

	"viloai/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type QueueRepository struct {
	db *pgxpool.Pool
}

func NewQueueRepository(db *pgxpool.Pool) *QueueRepository {
	return &QueueRepository{db: db}
}

const queueColumns = `id, user_id, message_id, channel, recipient_ref, original_text, suggested_reply,
	detected_language, status, final_reply, rejection_reason, created_at, approved_at, rejected_at`

func scanEntry(row pgx.Row) (*entities.ReplyQueueEntry, error) {
	var e entities.ReplyQueueEntry
	if err := row.Scan(&e.ID, &e.UserID, &e.MessageID, &e.Channel, &e.RecipientRef, &e.OriginalText, &e.SuggestedReply,
		&e.DetectedLanguage, &e.Status, &e.FinalReply, &e.RejectionReason, &e.CreatedAt, &e.ApprovedAt, &e.RejectedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *QueueRepository) CreateEntry(ctx context.Context, e *entities.ReplyQueueEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reply_queue (`+queueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, e.ID, e.UserID, e.MessageID, e.Channel, e.RecipientRef, e.OriginalText, e.SuggestedReply,
		e.DetectedLanguage, e.Status, e.FinalReply, e.RejectionReason, e.CreatedAt, e.ApprovedAt, e.RejectedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return entities.ErrDuplicate
	}
	return err
}

func (r *QueueRepository) GetEntry(ctx context.Context, userID int, id uuid.UUID) (*entities.ReplyQueueEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx,
		"SELECT "+queueColumns+" FROM reply_queue WHERE user_id = $1 AND id = $2", userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	return e, err
}

// ListEntries filters by status unless status is empty. Newest first.
func (r *QueueRepository) ListEntries(ctx context.Context, userID int, status entities.QueueStatus) ([]entities.ReplyQueueEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+queueColumns+` FROM reply_queue
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []entities.ReplyQueueEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Transition only touches rows still pending, so two concurrent decisions
// cannot both win.
func (r *QueueRepository) Transition(ctx context.Context, userID int, id uuid.UUID, t entities.QueueTransition) (*entities.ReplyQueueEntry, error) {
	var query string
	var args []any
	switch t.Status {
	case entities.QueueApproved:
		query = `UPDATE reply_queue SET status = 'approved', final_reply = $3, approved_at = $4
			WHERE user_id = $1 AND id = $2 AND status = 'pending' RETURNING ` + queueColumns
		args = []any{userID, id, t.FinalReply, t.At}
	case entities.QueueRejected:
		query = `UPDATE reply_queue SET status = 'rejected', rejection_reason = $3, rejected_at = $4
			WHERE user_id = $1 AND id = $2 AND status = 'pending' RETURNING ` + queueColumns
		args = []any{userID, id, t.RejectionReason, t.At}
	default:
		return nil, fmt.Errorf("%w: cannot move to %q", entities.ErrInvalidInput, t.Status)
	}

	e, err := scanEntry(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetEntry(ctx, userID, id); getErr != nil {
			return nil, getErr
		}
		return nil, entities.ErrQueueEntryClosed
	}
	return e, err
}

func (r *QueueRepository) DeleteEntries(ctx context.Context, userID int) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM reply_queue WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
