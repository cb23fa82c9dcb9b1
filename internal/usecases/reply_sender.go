package usecases

import (
	"context"
	"fmt"
	"time"

	"viloai/internal/entities"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Live event names published to dashboards.
const (
	EventMessageIngested = "message.ingested"
	EventReplySent       = "reply.sent"
	EventQueuePending    = "queue.pending"
)

// ReplyRequest is one outbound reply on behalf of a business.
type ReplyRequest struct {
	UserID       int
	MessageID    uuid.UUID
	Channel      entities.Channel
	RecipientRef string
	Text         string
	Source       entities.ReplySource
}

// ReplySender sends through the Instagram channel and writes the audit log
// entry for every attempt, successful or not.
type ReplySender struct {
	messenger interfaces.Messenger
	logs      interfaces.ReplyLogStore
	events    interfaces.EventPublisher
	metrics   *infrastructure.PipelineMetrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewReplySender(messenger interfaces.Messenger, logs interfaces.ReplyLogStore, events interfaces.EventPublisher, metrics *infrastructure.PipelineMetrics, logger *zap.Logger) *ReplySender {
	return &ReplySender{
		messenger: messenger,
		logs:      logs,
		events:    events,
		metrics:   metrics,
		logger:    logger.With(zap.String("component", "reply_sender")),
		now:       time.Now,
	}
}

// Send returns the platform id of the sent reply.
func (s *ReplySender) Send(ctx context.Context, acct entities.InstagramAccount, req ReplyRequest) (string, error) {
	var (
		externalID string
		err        error
	)
	switch req.Channel {
	case entities.ChannelComment:
		externalID, err = s.messenger.ReplyToComment(ctx, acct, req.RecipientRef, req.Text)
	case entities.ChannelDM:
		externalID, err = s.messenger.SendDirectMessage(ctx, acct, req.RecipientRef, req.Text)
	default:
		err = fmt.Errorf("%w: unknown channel %q", entities.ErrInvalidInput, req.Channel)
	}

	entry := &entities.ReplyLogEntry{
		ID:              uuid.New(),
		UserID:          req.UserID,
		MessageID:       req.MessageID,
		Channel:         req.Channel,
		ReplyType:       req.Source,
		RecipientRef:    req.RecipientRef,
		ReplyText:       req.Text,
		Success:         err == nil,
		ExternalReplyID: externalID,
		CreatedAt:       s.now(),
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if logErr := s.logs.AppendLog(ctx, entry); logErr != nil {
		s.logger.Error("Failed to write reply log",
			zap.Int("user_id", req.UserID),
			zap.String("message_id", req.MessageID.String()),
			zap.Error(logErr))
	}
	s.metrics.ObserveReply(string(req.Source), err)

	if err != nil {
		s.logger.Warn("Reply send failed",
			zap.Int("user_id", req.UserID),
			zap.String("channel", string(req.Channel)),
			zap.String("reply_type", string(req.Source)),
			zap.Error(err))
		return "", err
	}

	publish(ctx, s.events, s.logger, req.UserID, EventReplySent, entry)
	return externalID, nil
}

// publish is best effort; live events never fail the caller.
func publish(ctx context.Context, events interfaces.EventPublisher, logger *zap.Logger, userID int, event string, payload any) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, userID, event, payload); err != nil {
		logger.Debug("Event publish failed", zap.String("event", event), zap.Error(err))
	}
}
