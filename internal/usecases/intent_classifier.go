package usecases

import (
	"context"
	"sort"
	"time"

	"viloai/internal/entities"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"

	"go.uber.org/zap"
)

const (
	fallbackReplyFI = "Kiitos viestistäsi! Palaamme asiaan pian."
	fallbackReplyEN = "Thank you for your message! We'll get back to you soon."

	DefaultContextWindow   = 10 * time.Minute
	DefaultContextMaxTurns = 5
)

// IntentClassifier labels a message, detects its language and drafts replies.
// It never returns an error: provider failures resolve to a fixed fallback.
type IntentClassifier struct {
	provider      interfaces.ClassifierProvider
	messages      interfaces.MessageStore
	contextWindow time.Duration
	maxTurns      int
	metrics       *infrastructure.PipelineMetrics
	logger        *zap.Logger
}

func NewIntentClassifier(provider interfaces.ClassifierProvider, messages interfaces.MessageStore, metrics *infrastructure.PipelineMetrics, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{
		provider:      provider,
		messages:      messages,
		contextWindow: DefaultContextWindow,
		maxTurns:      DefaultContextMaxTurns,
		metrics:       metrics,
		logger:        logger.With(zap.String("component", "intent_classifier")),
	}
}

// WithContextWindow overrides the DM lookback used by ClassifyWithContext.
func (c *IntentClassifier) WithContextWindow(window time.Duration, maxTurns int) *IntentClassifier {
	if window > 0 {
		c.contextWindow = window
	}
	if maxTurns > 0 {
		c.maxTurns = maxTurns
	}
	return c
}

// FallbackClassification is returned whenever the provider cannot answer.
func FallbackClassification(text string) entities.ClassificationResult {
	return entities.ClassificationResult{
		Intent:           entities.IntentOther,
		Confidence:       0.5,
		DetectedLanguage: GuessLanguage(text),
		SuggestedReplyFI: fallbackReplyFI,
		SuggestedReplyEN: fallbackReplyEN,
	}
}

// Classify runs the context-free variant used for comments.
func (c *IntentClassifier) Classify(ctx context.Context, text string, facts []entities.BusinessRule) entities.ClassificationResult {
	return c.classify(ctx, interfaces.ClassifyRequest{Text: text, Facts: facts})
}

// ClassifyWithContext adds up to maxTurns earlier turns of the same DM thread
// received within the lookback window.
func (c *IntentClassifier) ClassifyWithContext(ctx context.Context, msg *entities.InboundMessage, facts []entities.BusinessRule) entities.ClassificationResult {
	req := interfaces.ClassifyRequest{Text: msg.Text, Facts: facts}
	if msg.ConversationID != "" {
		req.History = c.conversationTurns(ctx, msg)
	}
	return c.classify(ctx, req)
}

func (c *IntentClassifier) classify(ctx context.Context, req interfaces.ClassifyRequest) entities.ClassificationResult {
	result, err := c.provider.Classify(ctx, req)
	if err != nil || result == nil {
		c.logger.Warn("Classification failed, using fallback", zap.Error(err))
		c.metrics.ObserveFallback("classifier")
		return FallbackClassification(req.Text)
	}
	if !result.DetectedLanguage.Valid() {
		result.DetectedLanguage = GuessLanguage(req.Text)
	}
	return *result
}

func (c *IntentClassifier) conversationTurns(ctx context.Context, msg *entities.InboundMessage) []entities.ConversationTurn {
	at := msg.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}

	prior, err := c.messages.ConversationSince(ctx, msg.UserID, msg.ConversationID, at.Add(-c.contextWindow), at)
	if err != nil {
		c.logger.Warn("Failed to load conversation context",
			zap.Int("user_id", msg.UserID),
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err))
		return nil
	}

	var turns []entities.ConversationTurn
	for _, m := range prior {
		if m.PlatformID == msg.PlatformID {
			continue
		}
		turns = append(turns, entities.ConversationTurn{Role: entities.TurnCustomer, Text: m.Text, At: m.ReceivedAt})
		if m.Replied && m.ReplyText != "" && m.RepliedAt != nil && m.RepliedAt.Before(at) {
			turns = append(turns, entities.ConversationTurn{Role: entities.TurnBusiness, Text: m.ReplyText, At: *m.RepliedAt})
		}
	}
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].At.Before(turns[j].At) })
	if len(turns) > c.maxTurns {
		turns = turns[len(turns)-c.maxTurns:]
	}
	return turns
}
