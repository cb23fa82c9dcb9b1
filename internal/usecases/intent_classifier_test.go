package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"viloai/internal/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassifierFallbackOnProviderError(t *testing.T) {
	env := newTestEnv(t)
	env.provider.classifyErr = errors.New("503 overloaded")

	got := env.classifier.Classify(context.Background(), "Mitä tämä maksaa?", nil)
	assert.Equal(t, entities.IntentOther, got.Intent)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Equal(t, entities.LanguageFinnish, got.DetectedLanguage)
	assert.Equal(t, fallbackReplyFI, got.SuggestedReplyFI)
	assert.Equal(t, fallbackReplyEN, got.SuggestedReplyEN)

	msg := dm("mid_err", "How much is this?")
	msg.UserID = env.user.ID
	got = env.classifier.ClassifyWithContext(context.Background(), &msg, nil)
	assert.Equal(t, FallbackClassification("How much is this?"), got)
}

func TestClassifyWithContextIncludesRecentTurns(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Now()

	store := func(platformID, text string, age time.Duration, reply string) {
		m := dm(platformID, text)
		m.ID = uuid.New()
		m.UserID = env.user.ID
		m.ReceivedAt = now.Add(-age)
		if reply != "" {
			m.MarkReplied(reply, entities.RepliedByManual, "", now.Add(-age+30*time.Second))
		}
		_, err := env.store.InsertIfNotExists(ctx, &m)
		require.NoError(t, err)
	}
	store("mid_old", "Edellinen kysymys", 30*time.Minute, "")
	store("mid_hei", "Hei!", 3*time.Minute, "Moi! Miten voin auttaa?")

	msg := dm("mid_now", "Paljonko?")
	msg.UserID = env.user.ID
	msg.ReceivedAt = now

	got := env.classifier.ClassifyWithContext(ctx, &msg, nil)
	assert.Equal(t, entities.IntentPriceInquiry, got.Intent)

	history := env.provider.lastRequest.History
	require.Len(t, history, 2)
	assert.Equal(t, entities.TurnCustomer, history[0].Role)
	assert.Equal(t, "Hei!", history[0].Text)
	assert.Equal(t, entities.TurnBusiness, history[1].Role)
	assert.Equal(t, "Moi! Miten voin auttaa?", history[1].Text)
}

func TestClassifyWithContextCapsTurns(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.classifier.WithContextWindow(time.Hour, 2)
	now := time.Now()

	for i, text := range []string{"yksi", "kaksi", "kolme"} {
		m := dm(uuid.NewString(), text)
		m.ID = uuid.New()
		m.UserID = env.user.ID
		m.ReceivedAt = now.Add(-time.Duration(10-i) * time.Minute)
		_, err := env.store.InsertIfNotExists(ctx, &m)
		require.NoError(t, err)
	}

	msg := dm("mid_latest", "entä tämä?")
	msg.UserID = env.user.ID
	msg.ReceivedAt = now
	env.classifier.ClassifyWithContext(ctx, &msg, nil)

	history := env.provider.lastRequest.History
	require.Len(t, history, 2)
	assert.Equal(t, "kaksi", history[0].Text)
	assert.Equal(t, "kolme", history[1].Text)
}

func TestClassifyWithoutConversationHasNoHistory(t *testing.T) {
	env := newTestEnv(t)

	msg := dm("mid_solo", "Where are you?")
	msg.ConversationID = ""
	msg.UserID = env.user.ID
	env.classifier.ClassifyWithContext(context.Background(), &msg, nil)

	assert.Empty(t, env.provider.lastRequest.History)
}

func TestRelevanceFilterFallback(t *testing.T) {
	env := newTestEnv(t)
	env.provider.relevanceErr = errors.New("timeout")

	filter := NewRelevanceFilter(env.provider, nil, zap.NewNop())
	verdict := filter.ShouldReply(context.Background(), "🔥")
	assert.True(t, verdict.ShouldReply)
	assert.Equal(t, 0.5, verdict.Confidence)

	env.provider.relevanceErr = nil
	verdict = filter.ShouldReply(context.Background(), "🔥")
	assert.False(t, verdict.ShouldReply)
}
