package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"viloai/internal/entities"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errUsageLimited = errors.New("usage limit reached")

// Message outcomes, also used as metric labels.
const (
	outcomeSkipped     = "skipped"
	outcomeAutoReplied = "auto_replied"
	outcomeQueued      = "queued"
	outcomeAnalyzed    = "analyzed"
	outcomeIgnored     = "ignored"
	outcomeFailed      = "failed"
)

// PipelineDeps wires the reply pipeline. Notifier and Events may be nil.
type PipelineDeps struct {
	Users      interfaces.UserStore
	Messages   interfaces.MessageStore
	Rules      interfaces.RuleStore
	Facts      interfaces.BusinessRuleStore
	Queue      interfaces.QueueStore
	Usage      *UsageService
	Classifier *IntentClassifier
	Relevance  *RelevanceFilter
	Sender     *ReplySender
	Notifier   interfaces.Notifier
	Events     interfaces.EventPublisher
	Metrics    *infrastructure.PipelineMetrics
	Logger     *zap.Logger
}

// ReplyPipeline runs the per-message decision sequence shared by manual
// sync and the webhook: dedupe, quota, automation rule, relevance,
// classification, approval queue.
type ReplyPipeline struct {
	users      interfaces.UserStore
	messages   interfaces.MessageStore
	rules      interfaces.RuleStore
	facts      interfaces.BusinessRuleStore
	queue      interfaces.QueueStore
	usage      *UsageService
	classifier *IntentClassifier
	relevance  *RelevanceFilter
	sender     *ReplySender
	notifier   interfaces.Notifier
	events     interfaces.EventPublisher
	metrics    *infrastructure.PipelineMetrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewReplyPipeline(d PipelineDeps) *ReplyPipeline {
	return &ReplyPipeline{
		users:      d.Users,
		messages:   d.Messages,
		rules:      d.Rules,
		facts:      d.Facts,
		queue:      d.Queue,
		usage:      d.Usage,
		classifier: d.Classifier,
		relevance:  d.Relevance,
		sender:     d.Sender,
		notifier:   d.Notifier,
		events:     d.Events,
		metrics:    d.Metrics,
		logger:     d.Logger.With(zap.String("component", "reply_pipeline")),
		now:        time.Now,
	}
}

// batchContext is the read-only business snapshot for one batch.
type batchContext struct {
	user  *entities.User
	rules []entities.AutomationRule
	facts []entities.BusinessRule
}

// ProcessBatch runs msgs through the pipeline in order. Errors returned are
// batch-level (the business snapshot could not be loaded); per-message
// failures are counted in SyncResult.Failed.
func (p *ReplyPipeline) ProcessBatch(ctx context.Context, userID int, msgs []entities.InboundMessage) (entities.SyncResult, error) {
	result := entities.SyncResult{Fetched: len(msgs)}

	bc, err := p.loadBatchContext(ctx, userID)
	if err != nil {
		return result, err
	}

	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		msg := msgs[i]
		outcome, err := p.processMessage(ctx, bc, &msg)
		if errors.Is(err, errUsageLimited) {
			p.logger.Info("Monthly limit reached, stopping batch",
				zap.Int("user_id", userID),
				zap.Int("remaining", len(msgs)-i))
			result.UpgradeRequired = true
			break
		}
		if err != nil {
			p.logger.Error("Failed to process message",
				zap.Int("user_id", userID),
				zap.String("platform_id", msg.PlatformID),
				zap.Error(err))
			p.metrics.ObserveMessage(string(msg.Channel), outcomeFailed)
			result.Failed++
			continue
		}

		p.metrics.ObserveMessage(string(msg.Channel), outcome.label())
		if outcome.skipped {
			result.Skipped++
			continue
		}
		result.Synced++
		if outcome.analyzed {
			result.Analyzed++
		}
		if outcome.autoReplied {
			result.AutoReplied++
		}
		if outcome.queued {
			result.Queued++
		}
	}
	return result, nil
}

func (p *ReplyPipeline) loadBatchContext(ctx context.Context, userID int) (*batchContext, error) {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}
	rules, err := p.rules.ListRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load automation rules: %w", err)
	}
	facts, err := p.facts.ListFacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load business facts: %w", err)
	}
	return &batchContext{user: user, rules: rules, facts: facts}, nil
}

type messageOutcome struct {
	skipped     bool
	analyzed    bool
	autoReplied bool
	queued      bool
}

func (o messageOutcome) label() string {
	switch {
	case o.skipped:
		return outcomeSkipped
	case o.autoReplied:
		return outcomeAutoReplied
	case o.queued:
		return outcomeQueued
	case o.analyzed:
		return outcomeAnalyzed
	default:
		return outcomeIgnored
	}
}

func (p *ReplyPipeline) processMessage(ctx context.Context, bc *batchContext, msg *entities.InboundMessage) (messageOutcome, error) {
	user := bc.user
	msg.UserID = user.ID
	if msg.PlatformID == "" {
		return messageOutcome{}, fmt.Errorf("%w: message without platform id", entities.ErrInvalidInput)
	}
	if !msg.Channel.Valid() {
		return messageOutcome{}, fmt.Errorf("%w: channel %q", entities.ErrInvalidInput, msg.Channel)
	}

	// Already seen messages are skipped before they can touch the quota.
	exists, err := p.messages.Exists(ctx, user.ID, msg.PlatformID)
	if err != nil {
		return messageOutcome{}, fmt.Errorf("check existing: %w", err)
	}
	if exists {
		return messageOutcome{skipped: true}, nil
	}

	allowed, err := p.usage.CanAnalyze(ctx, user)
	if err != nil {
		return messageOutcome{}, err
	}
	if !allowed {
		return messageOutcome{}, errUsageLimited
	}

	// Claim the platform id. A concurrent delivery of the same message loses here.
	msg.ID = uuid.New()
	msg.CreatedAt = p.now()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = msg.CreatedAt
	}
	inserted, err := p.messages.InsertIfNotExists(ctx, msg)
	if err != nil {
		return messageOutcome{}, fmt.Errorf("insert message: %w", err)
	}
	if !inserted {
		return messageOutcome{skipped: true}, nil
	}
	publish(ctx, p.events, p.logger, user.ID, EventMessageIngested, msg)

	if rule := MatchRule(msg.Text, msg.Channel, bc.rules); rule != nil && user.AutoReplyEnabled(msg.Channel) {
		if p.autoReply(ctx, user, msg, rule) {
			return messageOutcome{autoReplied: true}, nil
		}
		// Send failed and is logged; the message continues to AI analysis.
	}

	if msg.Channel == entities.ChannelComment {
		verdict := p.relevance.ShouldReply(ctx, msg.Text)
		if !verdict.ShouldReply {
			msg.IsQuestion = false
			if err := p.messages.Update(ctx, msg); err != nil {
				return messageOutcome{}, fmt.Errorf("store relevance: %w", err)
			}
			p.recordUsage(ctx, user.ID)
			return messageOutcome{}, nil
		}
	}

	var classification entities.ClassificationResult
	if msg.Channel == entities.ChannelDM {
		classification = p.classifier.ClassifyWithContext(ctx, msg, bc.facts)
	} else {
		classification = p.classifier.Classify(ctx, msg.Text, bc.facts)
	}
	msg.ApplyClassification(classification)
	msg.IsQuestion = needsReply(msg.Channel, classification.Intent)

	if err := p.messages.Update(ctx, msg); err != nil {
		return messageOutcome{}, fmt.Errorf("store classification: %w", err)
	}
	p.recordUsage(ctx, user.ID)

	outcome := messageOutcome{analyzed: true}
	if !user.AutoReplyEnabled(msg.Channel) {
		return outcome, nil
	}

	queued, err := p.enqueue(ctx, user, msg, classification)
	if err != nil {
		return outcome, err
	}
	outcome.queued = queued
	return outcome, nil
}

// needsReply is the is_question flag for classified messages. Comments that
// reach classification already passed the relevance filter.
func needsReply(channel entities.Channel, intent entities.Intent) bool {
	if channel == entities.ChannelComment {
		return true
	}
	return intent != entities.IntentCompliment && intent != entities.IntentOther
}

// autoReply sends the rule's reply and reports whether it went out.
func (p *ReplyPipeline) autoReply(ctx context.Context, user *entities.User, msg *entities.InboundMessage, rule *entities.AutomationRule) bool {
	externalID, err := p.sender.Send(ctx, user.InstagramAccount(), ReplyRequest{
		UserID:       user.ID,
		MessageID:    msg.ID,
		Channel:      msg.Channel,
		RecipientRef: msg.ReplyTarget(),
		Text:         rule.ReplyText,
		Source:       entities.RepliedByAutomation,
	})
	if err != nil {
		return false
	}

	now := p.now()
	msg.MarkReplied(rule.ReplyText, entities.RepliedByAutomation, externalID, now)
	msg.IsQuestion = true
	if err := p.messages.Update(ctx, msg); err != nil {
		p.logger.Error("Reply sent but message update failed",
			zap.Int("user_id", user.ID),
			zap.String("platform_id", msg.PlatformID),
			zap.Error(err))
	}
	if err := p.rules.RecordRuleUsage(ctx, user.ID, rule.ID, now); err != nil {
		p.logger.Warn("Failed to record rule usage",
			zap.String("rule_id", rule.ID.String()),
			zap.Error(err))
	}
	return true
}

func (p *ReplyPipeline) enqueue(ctx context.Context, user *entities.User, msg *entities.InboundMessage, c entities.ClassificationResult) (bool, error) {
	entry := &entities.ReplyQueueEntry{
		ID:               uuid.New(),
		UserID:           user.ID,
		MessageID:        msg.ID,
		Channel:          msg.Channel,
		RecipientRef:     msg.ReplyTarget(),
		OriginalText:     msg.Text,
		SuggestedReply:   c.ReplyFor(c.DetectedLanguage),
		DetectedLanguage: c.DetectedLanguage,
		Status:           entities.QueuePending,
		CreatedAt:        p.now(),
	}
	if err := p.queue.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, entities.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create queue entry: %w", err)
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyPendingApproval(ctx, user, entry); err != nil {
			p.logger.Warn("Owner notification failed", zap.Int("user_id", user.ID), zap.Error(err))
		}
	}
	publish(ctx, p.events, p.logger, user.ID, EventQueuePending, entry)
	return true, nil
}

func (p *ReplyPipeline) recordUsage(ctx context.Context, userID int) {
	if err := p.usage.Record(ctx, userID); err != nil {
		p.logger.Error("Failed to record usage", zap.Int("user_id", userID), zap.Error(err))
	}
}

// ClassifyMessage returns the stored classification of a message, computing
// and caching it on first request. Cached results never reach the provider
// and do not count against the quota.
func (p *ReplyPipeline) ClassifyMessage(ctx context.Context, userID int, messageID uuid.UUID) (*entities.ClassificationResult, error) {
	msg, err := p.messages.Get(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.HasCachedClassification() {
		cached := msg.CachedClassification()
		return &cached, nil
	}

	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}
	allowed, err := p.usage.CanAnalyze(ctx, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, entities.ErrUsageLimitReached
	}
	facts, err := p.facts.ListFacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load business facts: %w", err)
	}

	var classification entities.ClassificationResult
	if msg.Channel == entities.ChannelDM {
		classification = p.classifier.ClassifyWithContext(ctx, msg, facts)
	} else {
		classification = p.classifier.Classify(ctx, msg.Text, facts)
	}
	msg.ApplyClassification(classification)
	if msg.Channel == entities.ChannelDM {
		msg.IsQuestion = needsReply(msg.Channel, classification.Intent)
	}
	if err := p.messages.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("store classification: %w", err)
	}
	p.recordUsage(ctx, userID)
	return &classification, nil
}
