package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"viloai/internal/entities"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRejectionReason = "rejected by owner"

// ApprovalQueue moves AI-drafted replies from pending to approved (sent) or
// rejected. Both are terminal.
type ApprovalQueue struct {
	queue    interfaces.QueueStore
	messages interfaces.MessageStore
	users    interfaces.UserStore
	sender   *ReplySender
	sessions *infrastructure.SessionManager
	logger   *zap.Logger
	now      func() time.Time
}

func NewApprovalQueue(queue interfaces.QueueStore, messages interfaces.MessageStore, users interfaces.UserStore, sender *ReplySender, sessions *infrastructure.SessionManager, logger *zap.Logger) *ApprovalQueue {
	return &ApprovalQueue{
		queue:    queue,
		messages: messages,
		users:    users,
		sender:   sender,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "approval_queue")),
		now:      time.Now,
	}
}

func (q *ApprovalQueue) ListPending(ctx context.Context, userID int) ([]entities.ReplyQueueEntry, error) {
	return q.queue.ListEntries(ctx, userID, entities.QueuePending)
}

func (q *ApprovalQueue) List(ctx context.Context, userID int, status entities.QueueStatus) ([]entities.ReplyQueueEntry, error) {
	return q.queue.ListEntries(ctx, userID, status)
}

// Approve sends editedText, or the suggested reply when editedText is empty.
// A failed send rejects the entry with the send error as reason and returns
// the rejected entry together with an error wrapping ErrReplySendFailed.
func (q *ApprovalQueue) Approve(ctx context.Context, userID int, entryID uuid.UUID, editedText string) (*entities.ReplyQueueEntry, error) {
	key := "queue:" + entryID.String()
	if !q.sessions.TryStart(key) {
		return nil, entities.ErrQueueEntryClosed
	}
	defer q.sessions.Finish(key)

	entry, err := q.queue.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != entities.QueuePending {
		return nil, entities.ErrQueueEntryClosed
	}

	text := strings.TrimSpace(editedText)
	if text == "" {
		text = entry.SuggestedReply
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: reply text is empty", entities.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxReplyLength {
		return nil, fmt.Errorf("%w: reply text must be at most %d characters", entities.ErrInvalidInput, MaxReplyLength)
	}

	user, err := q.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}

	externalID, sendErr := q.sender.Send(ctx, user.InstagramAccount(), ReplyRequest{
		UserID:       userID,
		MessageID:    entry.MessageID,
		Channel:      entry.Channel,
		RecipientRef: entry.RecipientRef,
		Text:         text,
		Source:       entities.RepliedByAIApproved,
	})
	now := q.now()

	if sendErr != nil {
		rejected, err := q.queue.Transition(ctx, userID, entryID, entities.QueueTransition{
			Status:          entities.QueueRejected,
			RejectionReason: "send failed: " + sendErr.Error(),
			At:              now,
		})
		if err != nil {
			return nil, fmt.Errorf("reject after failed send: %w", err)
		}
		return rejected, fmt.Errorf("%w: %v", entities.ErrReplySendFailed, sendErr)
	}

	approved, err := q.queue.Transition(ctx, userID, entryID, entities.QueueTransition{
		Status:     entities.QueueApproved,
		FinalReply: text,
		At:         now,
	})
	if err != nil {
		q.logger.Error("Reply sent but queue entry could not be approved",
			zap.String("entry_id", entryID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("approve entry: %w", err)
	}

	msg, err := q.messages.Get(ctx, userID, entry.MessageID)
	switch {
	case errors.Is(err, entities.ErrNotFound):
		// Message purged while the entry was pending.
	case err != nil:
		q.logger.Warn("Failed to load message for approved reply", zap.Error(err))
	default:
		msg.MarkReplied(text, entities.RepliedByAIApproved, externalID, now)
		if err := q.messages.Update(ctx, msg); err != nil {
			q.logger.Warn("Failed to mark message replied", zap.Error(err))
		}
	}
	return approved, nil
}

// Reject closes a pending entry without sending anything.
func (q *ApprovalQueue) Reject(ctx context.Context, userID int, entryID uuid.UUID, reason string) (*entities.ReplyQueueEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}

	// An approval holding the key may already be sending.
	key := "queue:" + entryID.String()
	if !q.sessions.TryStart(key) {
		return nil, entities.ErrQueueEntryClosed
	}
	defer q.sessions.Finish(key)

	return q.queue.Transition(ctx, userID, entryID, entities.QueueTransition{
		Status:          entities.QueueRejected,
		RejectionReason: reason,
		At:              q.now(),
	})
}
