package usecases

import (
	"context"
	"testing"
	"time"

	"viloai/internal/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRuleValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dashboard.CreateRule(context.Background(), env.user.ID, entities.AutomationRule{
		MatchType:   "regex",
		TriggerType: entities.TriggerDM,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	var verr *RuleValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}

func TestUpdateRuleKeepsUsage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rule := env.addRule(t, "hinta", "10€", entities.MatchExact, entities.TriggerDM)
	require.NoError(t, env.store.RecordRuleUsage(ctx, env.user.ID, rule.ID, time.Now()))

	updated, err := env.dashboard.UpdateRule(ctx, env.user.ID, rule.ID, entities.AutomationRule{
		TriggerText: "hinta",
		ReplyText:   "12€",
		MatchType:   entities.MatchContains,
		TriggerType: entities.TriggerBoth,
		IsActive:    false,
	})
	require.NoError(t, err)
	assert.Equal(t, "12€", updated.ReplyText)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 1, updated.UsageCount)

	_, err = env.dashboard.UpdateRule(ctx, env.user.ID, uuid.New(), *updated)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, env.dashboard.DeleteRule(ctx, env.user.ID, rule.ID))
	rules, err := env.dashboard.ListRules(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestSaveFact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.dashboard.SaveFact(ctx, env.user.ID, entities.BusinessRule{Category: "menu", Key: "a", Value: "b"})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
	_, err = env.dashboard.SaveFact(ctx, env.user.ID, entities.BusinessRule{Category: entities.FactPrice, Key: " ", Value: "b"})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	saved, err := env.dashboard.SaveFact(ctx, env.user.ID, entities.BusinessRule{Category: entities.FactPrice, Key: " kahvi ", Value: "3€"})
	require.NoError(t, err)
	assert.Equal(t, "kahvi", saved.Key)

	facts, err := env.dashboard.ListFacts(ctx, env.user.ID)
	require.NoError(t, err)
	require.Len(t, facts, 1)

	// Facts feed the drafted reply.
	_, err = env.pipeline.ProcessBatch(ctx, env.user.ID, []entities.InboundMessage{dm("mid_f", "Paljonko kahvi maksaa?")})
	require.NoError(t, err)
	assert.Equal(t, "Hinnat: kahvi 3€", env.onlyMessage(t).SuggestedReplyFI)

	require.NoError(t, env.dashboard.DeleteFact(ctx, env.user.ID, saved.ID))
	facts, err = env.dashboard.ListFacts(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestInboxOrdersLeadsFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setAutoReply(t, true, false)

	now := time.Now()
	batch := []entities.InboundMessage{
		dm("mid_thanks", "Kiitos!"),
		dm("mid_price", "How much is the blue one?"),
		dm("mid_where", "Where are you located?"),
	}
	for i := range batch {
		batch[i].ReceivedAt = now.Add(time.Duration(i) * time.Minute)
	}
	_, err := env.pipeline.ProcessBatch(ctx, env.user.ID, batch)
	require.NoError(t, err)

	items, err := env.dashboard.Inbox(ctx, env.user.ID, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "mid_price", items[0].Message.PlatformID)
	assert.True(t, items[0].Lead.IsLead)
	require.NotNil(t, items[0].QueueEntry)
	assert.Equal(t, "mid_thanks", items[2].Message.PlatformID)
}

func TestManualReply(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setAutoReply(t, false, false)
	_, err := env.pipeline.ProcessBatch(ctx, env.user.ID, []entities.InboundMessage{comment("c_q", "Onko tätä vielä saatavilla?")})
	require.NoError(t, err)
	msg := env.onlyMessage(t)

	_, err = env.dashboard.ManualReply(ctx, env.user.ID, msg.ID, "   ")
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	env.messenger.err = errSendFailed
	_, err = env.dashboard.ManualReply(ctx, env.user.ID, msg.ID, "On!")
	assert.ErrorIs(t, err, entities.ErrReplySendFailed)

	env.messenger.err = nil
	replied, err := env.dashboard.ManualReply(ctx, env.user.ID, msg.ID, "On!")
	require.NoError(t, err)
	assert.Equal(t, entities.RepliedByManual, replied.RepliedBy)
	require.Len(t, env.messenger.sent, 1)
	assert.Equal(t, sentReply{Channel: entities.ChannelComment, Target: "c_q", Text: "On!"}, env.messenger.sent[0])

	logs, err := env.dashboard.ReplyLogs(ctx, env.user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestPurgeMessagesKeepsReplyLogs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addRule(t, "price", "€10", entities.MatchContains, entities.TriggerBoth)

	_, err := env.pipeline.ProcessBatch(ctx, env.user.ID, []entities.InboundMessage{
		dm("mid_1", "price"),
		dm("mid_2", "Onko auki huomenna?"),
	})
	require.NoError(t, err)

	n, err := env.dashboard.PurgeMessages(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err := env.dashboard.Inbox(ctx, env.user.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	pending, err := env.approvals.ListPending(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	logs, err := env.dashboard.ReplyLogs(ctx, env.user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	off := false
	account := "  17841400000000002 "
	user, err := env.dashboard.UpdateSettings(ctx, env.user.ID, entities.Settings{
		AutoReplyComments:  &off,
		InstagramAccountID: &account,
	})
	require.NoError(t, err)
	assert.True(t, user.AutoReplyDMs)
	assert.False(t, user.AutoReplyComments)
	assert.Equal(t, "17841400000000002", user.InstagramAccountID)

	usage, err := env.dashboard.Usage(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, usage.MonthlyRemaining)
}
