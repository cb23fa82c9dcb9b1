package usecases

import (
	"context"
	"fmt"

	"viloai/internal/entities"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"

	"go.uber.org/zap"
)

// SyncService feeds the reply pipeline from manual syncs and webhook deliveries.
type SyncService struct {
	pipeline *ReplyPipeline
	source   interfaces.MessageSource
	users    interfaces.UserStore
	sessions *infrastructure.SessionManager
	logger   *zap.Logger
}

func NewSyncService(pipeline *ReplyPipeline, source interfaces.MessageSource, users interfaces.UserStore, sessions *infrastructure.SessionManager, logger *zap.Logger) *SyncService {
	return &SyncService{
		pipeline: pipeline,
		source:   source,
		users:    users,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "sync")),
	}
}

// Sync pulls recent DMs or comments from Instagram and processes them.
// Only one sync per business and channel runs at a time.
func (s *SyncService) Sync(ctx context.Context, userID int, channel entities.Channel) (entities.SyncResult, error) {
	if !channel.Valid() {
		return entities.SyncResult{}, fmt.Errorf("%w: channel %q", entities.ErrInvalidInput, channel)
	}

	key := fmt.Sprintf("sync:%d:%s", userID, channel)
	if !s.sessions.TryStart(key) {
		return entities.SyncResult{}, entities.ErrSyncInProgress
	}
	defer s.sessions.Finish(key)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return entities.SyncResult{}, err
	}
	if user.InstagramAccountID == "" || user.InstagramToken == "" {
		return entities.SyncResult{}, fmt.Errorf("%w: instagram account not connected", entities.ErrInvalidInput)
	}

	var msgs []entities.InboundMessage
	if channel == entities.ChannelDM {
		msgs, err = s.source.FetchDirectMessages(ctx, user.InstagramAccount())
	} else {
		msgs, err = s.source.FetchComments(ctx, user.InstagramAccount())
	}
	if err != nil {
		return entities.SyncResult{}, fmt.Errorf("fetch %s: %w", channel, err)
	}

	result, err := s.pipeline.ProcessBatch(ctx, userID, msgs)
	s.logger.Info("Sync finished",
		zap.Int("user_id", userID),
		zap.String("channel", string(channel)),
		zap.Int("fetched", result.Fetched),
		zap.Int("synced", result.Synced),
		zap.Int("skipped", result.Skipped),
		zap.Int("auto_replied", result.AutoReplied),
		zap.Int("queued", result.Queued),
		zap.Bool("upgrade_required", result.UpgradeRequired),
		zap.Error(err))
	return result, err
}

// HandleWebhook processes messages pushed for one Instagram account.
// Unknown or deactivated accounts are ignored.
func (s *SyncService) HandleWebhook(ctx context.Context, accountID string, msgs []entities.InboundMessage) (entities.SyncResult, error) {
	user, err := s.users.GetByInstagramAccount(ctx, accountID)
	if err != nil {
		return entities.SyncResult{}, fmt.Errorf("resolve account %s: %w", accountID, err)
	}
	if !user.IsActive {
		s.logger.Info("Ignoring webhook for inactive business", zap.Int("user_id", user.ID))
		return entities.SyncResult{Fetched: len(msgs), Skipped: len(msgs)}, nil
	}
	return s.pipeline.ProcessBatch(ctx, user.ID, msgs)
}
