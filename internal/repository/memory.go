package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"viloai/internal/entities"

	"github.com/google/uuid"
)

// MemoryStore keeps every table in maps. It backs local runs without
// Postgres and the pipeline tests.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[int]*entities.User
	nextUserID int

	messages  map[uuid.UUID]*entities.InboundMessage
	platform  map[string]uuid.UUID // "<user_id>:<platform_id>" -> message id
	rules     map[uuid.UUID]*entities.AutomationRule
	ruleOrder []uuid.UUID
	facts     map[uuid.UUID]*entities.BusinessRule
	queue     map[uuid.UUID]*entities.ReplyQueueEntry
	logs      []entities.ReplyLogEntry
	usage     map[string]int // "<user_id>:<month>"
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int]*entities.User),
		messages: make(map[uuid.UUID]*entities.InboundMessage),
		platform: make(map[string]uuid.UUID),
		rules:    make(map[uuid.UUID]*entities.AutomationRule),
		facts:    make(map[uuid.UUID]*entities.BusinessRule),
		queue:    make(map[uuid.UUID]*entities.ReplyQueueEntry),
		usage:    make(map[string]int),
	}
}

func platformKey(userID int, platformID string) string {
	return fmt.Sprintf("%d:%s", userID, platformID)
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, user *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return fmt.Errorf("%w: username", entities.ErrDuplicate)
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			out := *u
			return &out, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *MemoryStore) GetByInstagramAccount(ctx context.Context, accountID string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if accountID != "" && u.InstagramAccountID == accountID {
			out := *u
			return &out, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateSettings(ctx context.Context, id int, settings entities.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return entities.ErrNotFound
	}
	if settings.AutoReplyDMs != nil {
		u.AutoReplyDMs = *settings.AutoReplyDMs
	}
	if settings.AutoReplyComments != nil {
		u.AutoReplyComments = *settings.AutoReplyComments
	}
	if settings.InstagramAccountID != nil {
		u.InstagramAccountID = *settings.InstagramAccountID
	}
	if settings.InstagramToken != nil {
		u.InstagramToken = *settings.InstagramToken
	}
	if settings.TelegramChatID != nil {
		u.TelegramChatID = *settings.TelegramChatID
	}
	return nil
}

func (s *MemoryStore) UpdateLimit(ctx context.Context, id int, monthlyLimit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.MonthlyLimit = monthlyLimit
	return nil
}

func (s *MemoryStore) SetActive(ctx context.Context, id int, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.IsActive = active
	return nil
}

// Messages

func (s *MemoryStore) Exists(ctx context.Context, userID int, platformID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.platform[platformKey(userID, platformID)]
	return ok, nil
}

func (s *MemoryStore) InsertIfNotExists(ctx context.Context, msg *entities.InboundMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := platformKey(msg.UserID, msg.PlatformID)
	if _, ok := s.platform[key]; ok {
		return false, nil
	}
	stored := *msg
	s.messages[msg.ID] = &stored
	s.platform[key] = msg.ID
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID int, id uuid.UUID) (*entities.InboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok || m.UserID != userID {
		return nil, entities.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *MemoryStore) Update(ctx context.Context, msg *entities.InboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[msg.ID]
	if !ok || m.UserID != msg.UserID {
		return entities.ErrNotFound
	}
	m.Intent = msg.Intent
	m.Confidence = msg.Confidence
	m.DetectedLanguage = msg.DetectedLanguage
	m.SuggestedReplyFI = msg.SuggestedReplyFI
	m.SuggestedReplyEN = msg.SuggestedReplyEN
	m.IsQuestion = msg.IsQuestion
	m.Replied = msg.Replied
	m.ReplyText = msg.ReplyText
	m.RepliedBy = msg.RepliedBy
	m.RepliedAt = msg.RepliedAt
	m.ExternalReplyID = msg.ExternalReplyID
	return nil
}

func (s *MemoryStore) List(ctx context.Context, userID int, limit int) ([]entities.InboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.InboundMessage
	for _, m := range s.messages {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ConversationSince(ctx context.Context, userID int, conversationID string, since, before time.Time) ([]entities.InboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.InboundMessage
	for _, m := range s.messages {
		if m.UserID != userID || m.ConversationID != conversationID {
			continue
		}
		if m.ReceivedAt.Before(since) || !m.ReceivedAt.Before(before) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context, userID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, m := range s.messages {
		if m.UserID == userID {
			delete(s.platform, platformKey(userID, m.PlatformID))
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

// Automation rules

func (s *MemoryStore) ListRules(ctx context.Context, userID int) ([]entities.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.AutomationRule
	for _, id := range s.ruleOrder {
		if r, ok := s.rules[id]; ok && r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetRule(ctx context.Context, userID int, id uuid.UUID) (*entities.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return nil, entities.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (s *MemoryStore) CreateRule(ctx context.Context, rule *entities.AutomationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.ID]; ok {
		return entities.ErrDuplicate
	}
	stored := *rule
	s.rules[rule.ID] = &stored
	s.ruleOrder = append(s.ruleOrder, rule.ID)
	return nil
}

func (s *MemoryStore) UpdateRule(ctx context.Context, rule *entities.AutomationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[rule.ID]
	if !ok || r.UserID != rule.UserID {
		return entities.ErrNotFound
	}
	r.TriggerText = rule.TriggerText
	r.ReplyText = rule.ReplyText
	r.MatchType = rule.MatchType
	r.TriggerType = rule.TriggerType
	r.IsActive = rule.IsActive
	return nil
}

func (s *MemoryStore) DeleteRule(ctx context.Context, userID int, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return entities.ErrNotFound
	}
	delete(s.rules, id)
	for i, rid := range s.ruleOrder {
		if rid == id {
			s.ruleOrder = append(s.ruleOrder[:i], s.ruleOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) RecordRuleUsage(ctx context.Context, userID int, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return entities.ErrNotFound
	}
	r.UsageCount++
	r.LastUsedAt = &at
	return nil
}

// Business facts

func (s *MemoryStore) ListFacts(ctx context.Context, userID int) ([]entities.BusinessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.BusinessRule
	for _, f := range s.facts {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *MemoryStore) UpsertFact(ctx context.Context, fact *entities.BusinessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.facts {
		if f.UserID == fact.UserID && f.Category == fact.Category && f.Key == fact.Key {
			f.Value = fact.Value
			f.UpdatedAt = fact.UpdatedAt
			fact.ID = f.ID
			return nil
		}
	}
	stored := *fact
	s.facts[fact.ID] = &stored
	return nil
}

func (s *MemoryStore) DeleteFact(ctx context.Context, userID int, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.facts[id]
	if !ok || f.UserID != userID {
		return entities.ErrNotFound
	}
	delete(s.facts, id)
	return nil
}

// Reply queue

func (s *MemoryStore) CreateEntry(ctx context.Context, entry *entities.ReplyQueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.queue {
		if e.MessageID == entry.MessageID {
			return entities.ErrDuplicate
		}
	}
	stored := *entry
	s.queue[entry.ID] = &stored
	return nil
}

func (s *MemoryStore) GetEntry(ctx context.Context, userID int, id uuid.UUID) (*entities.ReplyQueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.queue[id]
	if !ok || e.UserID != userID {
		return nil, entities.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (s *MemoryStore) ListEntries(ctx context.Context, userID int, status entities.QueueStatus) ([]entities.ReplyQueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.ReplyQueueEntry
	for _, e := range s.queue {
		if e.UserID == userID && (status == "" || e.Status == status) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Transition(ctx context.Context, userID int, id uuid.UUID, t entities.QueueTransition) (*entities.ReplyQueueEntry, error) {
	if !t.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot move to %q", entities.ErrInvalidInput, t.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queue[id]
	if !ok || e.UserID != userID {
		return nil, entities.ErrNotFound
	}
	if e.Status != entities.QueuePending {
		return nil, entities.ErrQueueEntryClosed
	}

	at := t.At
	e.Status = t.Status
	if t.Status == entities.QueueApproved {
		e.FinalReply = t.FinalReply
		e.ApprovedAt = &at
	} else {
		e.RejectionReason = t.RejectionReason
		e.RejectedAt = &at
	}
	out := *e
	return &out, nil
}

func (s *MemoryStore) DeleteEntries(ctx context.Context, userID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, e := range s.queue {
		if e.UserID == userID {
			delete(s.queue, id)
			n++
		}
	}
	return n, nil
}

// Reply log

func (s *MemoryStore) AppendLog(ctx context.Context, entry *entities.ReplyLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, *entry)
	return nil
}

// ListLogs returns newest first.
func (s *MemoryStore) ListLogs(ctx context.Context, userID int, limit int) ([]entities.ReplyLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.ReplyLogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].UserID != userID {
			continue
		}
		out = append(out, s.logs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Usage

func (s *MemoryStore) IncrementUsage(ctx context.Context, userID int, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usage[fmt.Sprintf("%d:%s", userID, month)]++
	return nil
}

func (s *MemoryStore) GetUsage(ctx context.Context, userID int, month string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usage[fmt.Sprintf("%d:%s", userID, month)], nil
}
