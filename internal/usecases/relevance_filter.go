package usecases

import (
	"context"

	"viloai/internal/entities"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"

	"go.uber.org/zap"
)

// RelevanceFilter decides whether a comment deserves a reply at all.
// Provider failures resolve to "reply", so a real inquiry is never dropped.
type RelevanceFilter struct {
	provider interfaces.ClassifierProvider
	metrics  *infrastructure.PipelineMetrics
	logger   *zap.Logger
}

func NewRelevanceFilter(provider interfaces.ClassifierProvider, metrics *infrastructure.PipelineMetrics, logger *zap.Logger) *RelevanceFilter {
	return &RelevanceFilter{
		provider: provider,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "relevance_filter")),
	}
}

func (f *RelevanceFilter) ShouldReply(ctx context.Context, commentText string) entities.RelevanceVerdict {
	verdict, err := f.provider.CheckRelevance(ctx, commentText)
	if err != nil || verdict == nil {
		f.logger.Warn("Relevance check failed, defaulting to reply", zap.Error(err))
		f.metrics.ObserveFallback("relevance")
		return entities.RelevanceVerdict{
			ShouldReply: true,
			Reason:      "relevance check unavailable, replying by default",
			Confidence:  0.5,
		}
	}
	return *verdict
}
