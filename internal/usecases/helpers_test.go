package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"viloai/internal/entities"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"
	"viloai/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubProvider wraps the keyword provider and counts calls.
type stubProvider struct {
	mu             sync.Mutex
	inner          interfaces.ClassifierProvider
	classifyErr    error
	relevanceErr   error
	classifyCalls  int
	relevanceCalls int
	lastRequest    interfaces.ClassifyRequest
}

func newStubProvider() *stubProvider {
	return &stubProvider{inner: NewKeywordProvider()}
}

func (p *stubProvider) Classify(ctx context.Context, req interfaces.ClassifyRequest) (*entities.ClassificationResult, error) {
	p.mu.Lock()
	p.classifyCalls++
	p.lastRequest = req
	err := p.classifyErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.inner.Classify(ctx, req)
}

func (p *stubProvider) CheckRelevance(ctx context.Context, text string) (*entities.RelevanceVerdict, error) {
	p.mu.Lock()
	p.relevanceCalls++
	err := p.relevanceErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.inner.CheckRelevance(ctx, text)
}

type sentReply struct {
	Channel entities.Channel
	Target  string
	Text    string
}

// sendGate holds a send until release is closed. entered fires once the
// send has started.
type sendGate struct {
	entered chan struct{}
	release chan struct{}
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentReply
	err  error
	gate *sendGate
}

func (m *fakeMessenger) record(channel entities.Channel, target, text string) (string, error) {
	if m.gate != nil {
		m.gate.entered <- struct{}{}
		<-m.gate.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentReply{Channel: channel, Target: target, Text: text})
	return fmt.Sprintf("out_%d", len(m.sent)), nil
}

func (m *fakeMessenger) SendDirectMessage(ctx context.Context, acct entities.InstagramAccount, recipientID, text string) (string, error) {
	return m.record(entities.ChannelDM, recipientID, text)
}

func (m *fakeMessenger) ReplyToComment(ctx context.Context, acct entities.InstagramAccount, commentID, text string) (string, error) {
	return m.record(entities.ChannelComment, commentID, text)
}

type fakeNotifier struct {
	mu      sync.Mutex
	entries []entities.ReplyQueueEntry
}

func (n *fakeNotifier) NotifyPendingApproval(ctx context.Context, user *entities.User, entry *entities.ReplyQueueEntry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, *entry)
	return nil
}

type fakeSource struct {
	dms      []entities.InboundMessage
	comments []entities.InboundMessage
	err      error
}

func (s *fakeSource) FetchDirectMessages(ctx context.Context, acct entities.InstagramAccount) ([]entities.InboundMessage, error) {
	return s.dms, s.err
}

func (s *fakeSource) FetchComments(ctx context.Context, acct entities.InstagramAccount) ([]entities.InboundMessage, error) {
	return s.comments, s.err
}

var errSendFailed = errors.New("graph api: (#10) outside of allowed window")

type testEnv struct {
	store      *repository.MemoryStore
	provider   *stubProvider
	messenger  *fakeMessenger
	notifier   *fakeNotifier
	source     *fakeSource
	sessions   *infrastructure.SessionManager
	classifier *IntentClassifier
	pipeline   *ReplyPipeline
	approvals  *ApprovalQueue
	sync       *SyncService
	dashboard  *DashboardUsecase
	user       *entities.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	provider := newStubProvider()
	messenger := &fakeMessenger{}
	notifier := &fakeNotifier{}
	source := &fakeSource{}
	sessions := infrastructure.NewSessionManager()

	user := &entities.User{
		Username:           "kahvila",
		Role:               RoleUser,
		IsActive:           true,
		AutoReplyDMs:       true,
		AutoReplyComments:  true,
		InstagramAccountID: "17841400000000001",
		InstagramToken:     "token",
	}
	require.NoError(t, store.CreateUser(context.Background(), user))

	usage := NewUsageService(store)
	classifier := NewIntentClassifier(provider, store, nil, logger)
	sender := NewReplySender(messenger, store, nil, nil, logger)
	pipeline := NewReplyPipeline(PipelineDeps{
		Users:      store,
		Messages:   store,
		Rules:      store,
		Facts:      store,
		Queue:      store,
		Usage:      usage,
		Classifier: classifier,
		Relevance:  NewRelevanceFilter(provider, nil, logger),
		Sender:     sender,
		Notifier:   notifier,
		Logger:     logger,
	})

	return &testEnv{
		store:      store,
		provider:   provider,
		messenger:  messenger,
		notifier:   notifier,
		source:     source,
		sessions:   sessions,
		classifier: classifier,
		pipeline:   pipeline,
		approvals:  NewApprovalQueue(store, store, store, sender, sessions, logger),
		sync:       NewSyncService(pipeline, source, store, sessions, logger),
		dashboard:  NewDashboardUsecase(store, store, store, store, store, store, usage, sender),
		user:       user,
	}
}

func (e *testEnv) addRule(t *testing.T, trigger, reply string, mode entities.MatchType, typ entities.TriggerType) entities.AutomationRule {
	t.Helper()
	created, err := e.dashboard.CreateRule(context.Background(), e.user.ID, entities.AutomationRule{
		TriggerText: trigger,
		ReplyText:   reply,
		MatchType:   mode,
		TriggerType: typ,
		IsActive:    true,
	})
	require.NoError(t, err)
	return *created
}

func (e *testEnv) setLimit(t *testing.T, limit int) {
	t.Helper()
	require.NoError(t, e.store.UpdateLimit(context.Background(), e.user.ID, limit))
}

func (e *testEnv) setAutoReply(t *testing.T, dms, comments bool) {
	t.Helper()
	require.NoError(t, e.store.UpdateSettings(context.Background(), e.user.ID, entities.Settings{
		AutoReplyDMs:      &dms,
		AutoReplyComments: &comments,
	}))
}

func (e *testEnv) onlyMessage(t *testing.T) entities.InboundMessage {
	t.Helper()
	msgs, err := e.store.List(context.Background(), e.user.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return msgs[0]
}
