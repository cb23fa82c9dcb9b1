package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"viloai/internal/entities"
	"viloai/internal/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ interfaces.UserStore         = (*MemoryStore)(nil)
	_ interfaces.MessageStore      = (*MemoryStore)(nil)
	_ interfaces.RuleStore         = (*MemoryStore)(nil)
	_ interfaces.BusinessRuleStore = (*MemoryStore)(nil)
	_ interfaces.QueueStore        = (*MemoryStore)(nil)
	_ interfaces.ReplyLogStore     = (*MemoryStore)(nil)
	_ interfaces.UsageStore        = (*MemoryStore)(nil)

	_ interfaces.UserStore         = (*UserRepository)(nil)
	_ interfaces.MessageStore      = (*MessageRepository)(nil)
	_ interfaces.RuleStore         = (*RuleRepository)(nil)
	_ interfaces.BusinessRuleStore = (*ConfigRepository)(nil)
	_ interfaces.QueueStore        = (*QueueRepository)(nil)
	_ interfaces.ReplyLogStore     = (*ReplyLogRepository)(nil)
	_ interfaces.UsageStore        = (*UsageRepository)(nil)
)

func newMessage(userID int, platformID string) *entities.InboundMessage {
	return &entities.InboundMessage{
		ID:         uuid.New(),
		UserID:     userID,
		PlatformID: platformID,
		Channel:    entities.ChannelDM,
		Text:       "hello",
		ReceivedAt: time.Now(),
	}
}

func TestMemoryInsertIfNotExists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.InsertIfNotExists(ctx, newMessage(1, "m1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InsertIfNotExists(ctx, newMessage(1, "m1"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Same platform id under another business is a different message.
	ok, err = s.InsertIfNotExists(ctx, newMessage(2, "m1"))
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := s.Exists(ctx, 1, "m1")
	require.NoError(t, err)
	assert.True(t, exists)

	msgs, err := s.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestMemoryInsertIfNotExistsConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	wins := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.InsertIfNotExists(ctx, newMessage(1, "same"))
			assert.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for ok := range wins {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestMemoryQueueTransitionIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	entry := &entities.ReplyQueueEntry{
		ID:        uuid.New(),
		UserID:    1,
		MessageID: uuid.New(),
		Status:    entities.QueuePending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateEntry(ctx, entry))

	dup := *entry
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.CreateEntry(ctx, &dup), entities.ErrDuplicate)

	approved, err := s.Transition(ctx, 1, entry.ID, entities.QueueTransition{
		Status: entities.QueueApproved, FinalReply: "ok", At: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, entities.QueueApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	_, err = s.Transition(ctx, 1, entry.ID, entities.QueueTransition{Status: entities.QueueRejected, At: time.Now()})
	assert.ErrorIs(t, err, entities.ErrQueueEntryClosed)

	_, err = s.Transition(ctx, 1, entry.ID, entities.QueueTransition{Status: entities.QueuePending, At: time.Now()})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	_, err = s.Transition(ctx, 2, entry.ID, entities.QueueTransition{Status: entities.QueueRejected, At: time.Now()})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	got, err := s.GetEntry(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.QueueApproved, got.Status)
	assert.Equal(t, "ok", got.FinalReply)
}

func TestMemoryRulesKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var ids []uuid.UUID
	for _, trigger := range []string{"b", "a", "c"} {
		r := &entities.AutomationRule{ID: uuid.New(), UserID: 1, TriggerText: trigger}
		require.NoError(t, s.CreateRule(ctx, r))
		ids = append(ids, r.ID)
	}
	require.NoError(t, s.DeleteRule(ctx, 1, ids[1]))

	rules, err := s.ListRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "b", rules[0].TriggerText)
	assert.Equal(t, "c", rules[1].TriggerText)

	at := time.Now()
	require.NoError(t, s.RecordRuleUsage(ctx, 1, ids[0], at))
	require.NoError(t, s.RecordRuleUsage(ctx, 1, ids[0], at))
	r, err := s.GetRule(ctx, 1, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 2, r.UsageCount)
	assert.NotNil(t, r.LastUsedAt)
}

func TestMemoryConversationSince(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	for i, age := range []time.Duration{20 * time.Minute, 5 * time.Minute, 2 * time.Minute, 0} {
		m := newMessage(1, uuid.NewString())
		m.ConversationID = "t1"
		m.ReceivedAt = now.Add(-age)
		m.Text = []string{"old", "hei", "paljonko", "now"}[i]
		_, err := s.InsertIfNotExists(ctx, m)
		require.NoError(t, err)
	}

	got, err := s.ConversationSince(ctx, 1, "t1", now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hei", got[0].Text)
	assert.Equal(t, "paljonko", got[1].Text)
}

func TestMemoryUpsertFact(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := &entities.BusinessRule{ID: uuid.New(), UserID: 1, Category: entities.FactPrice, Key: "haircut", Value: "30€"}
	require.NoError(t, s.UpsertFact(ctx, first))

	second := &entities.BusinessRule{ID: uuid.New(), UserID: 1, Category: entities.FactPrice, Key: "haircut", Value: "35€"}
	require.NoError(t, s.UpsertFact(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	facts, err := s.ListFacts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "35€", facts[0].Value)
}

func TestMemoryPurgeKeepsLogs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	m := newMessage(1, "m1")
	_, err := s.InsertIfNotExists(ctx, m)
	require.NoError(t, err)
	require.NoError(t, s.AppendLog(ctx, &entities.ReplyLogEntry{ID: uuid.New(), UserID: 1, MessageID: m.ID, Success: true}))

	n, err := s.DeleteAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	exists, err := s.Exists(ctx, 1, "m1")
	require.NoError(t, err)
	assert.False(t, exists)

	logs, err := s.ListLogs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestMemoryUsage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.IncrementUsage(ctx, 1, "2026-10"))
	require.NoError(t, s.IncrementUsage(ctx, 1, "2026-10"))
	require.NoError(t, s.IncrementUsage(ctx, 1, "2026-11"))

	n, err := s.GetUsage(ctx, 1, "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.GetUsage(ctx, 2, "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
