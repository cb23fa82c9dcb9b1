package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"viloai/internal/entities"
	"viloai/internal/interfaces"

	"github.com/google/uuid"
)

const (
	DefaultInboxLimit    = 200
	DefaultReplyLogLimit = 100
	MaxFactKeyLength     = 100
	MaxFactValueLength   = 2000
)

// DashboardUsecase serves the business owner's settings and inbox screens.
type DashboardUsecase struct {
	users    interfaces.UserStore
	messages interfaces.MessageStore
	rules    interfaces.RuleStore
	facts    interfaces.BusinessRuleStore
	queue    interfaces.QueueStore
	logs     interfaces.ReplyLogStore
	usage    *UsageService
	sender   *ReplySender
	now      func() time.Time
}

func NewDashboardUsecase(users interfaces.UserStore, messages interfaces.MessageStore, rules interfaces.RuleStore, facts interfaces.BusinessRuleStore, queue interfaces.QueueStore, logs interfaces.ReplyLogStore, usage *UsageService, sender *ReplySender) *DashboardUsecase {
	return &DashboardUsecase{
		users:    users,
		messages: messages,
		rules:    rules,
		facts:    facts,
		queue:    queue,
		logs:     logs,
		usage:    usage,
		sender:   sender,
		now:      time.Now,
	}
}

// Inbox returns messages with lead info and any pending draft, highest
// priority first.
func (u *DashboardUsecase) Inbox(ctx context.Context, userID int, limit int) ([]entities.InboxItem, error) {
	if limit <= 0 {
		limit = DefaultInboxLimit
	}
	msgs, err := u.messages.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	pending, err := u.queue.ListEntries(ctx, userID, entities.QueuePending)
	if err != nil {
		return nil, err
	}
	byMessage := make(map[uuid.UUID]*entities.ReplyQueueEntry, len(pending))
	for i := range pending {
		byMessage[pending[i].MessageID] = &pending[i]
	}

	items := make([]entities.InboxItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, entities.InboxItem{
			Message:    m,
			QueueEntry: byMessage[m.ID],
			Lead:       ScoreLead(m.Intent),
		})
	}
	SortInbox(items)
	return items, nil
}

// ManualReply sends an owner-written reply to one message.
func (u *DashboardUsecase) ManualReply(ctx context.Context, userID int, messageID uuid.UUID, text string) (*entities.InboundMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxReplyLength {
		return nil, fmt.Errorf("%w: reply text must be 1-%d characters", entities.ErrInvalidInput, MaxReplyLength)
	}

	msg, err := u.messages.Get(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	externalID, err := u.sender.Send(ctx, user.InstagramAccount(), ReplyRequest{
		UserID:       userID,
		MessageID:    msg.ID,
		Channel:      msg.Channel,
		RecipientRef: msg.ReplyTarget(),
		Text:         text,
		Source:       entities.RepliedByManual,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrReplySendFailed, err)
	}

	msg.MarkReplied(text, entities.RepliedByManual, externalID, u.now())
	if err := u.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// PurgeMessages deletes every message and queue entry of a business. Reply
// logs are kept as the audit trail.
func (u *DashboardUsecase) PurgeMessages(ctx context.Context, userID int) (int64, error) {
	if _, err := u.queue.DeleteEntries(ctx, userID); err != nil {
		return 0, err
	}
	return u.messages.DeleteAll(ctx, userID)
}

func (u *DashboardUsecase) ReplyLogs(ctx context.Context, userID int, limit int) ([]entities.ReplyLogEntry, error) {
	if limit <= 0 {
		limit = DefaultReplyLogLimit
	}
	return u.logs.ListLogs(ctx, userID, limit)
}

// Automation rules

func (u *DashboardUsecase) ListRules(ctx context.Context, userID int) ([]entities.AutomationRule, error) {
	return u.rules.ListRules(ctx, userID)
}

// RuleValidationError carries every problem ValidateRule found.
type RuleValidationError struct {
	Problems []string
}

func (e *RuleValidationError) Error() string {
	return "invalid rule: " + strings.Join(e.Problems, "; ")
}

func (e *RuleValidationError) Unwrap() error {
	return entities.ErrInvalidInput
}

func (u *DashboardUsecase) CreateRule(ctx context.Context, userID int, rule entities.AutomationRule) (*entities.AutomationRule, error) {
	if problems := ValidateRule(rule); len(problems) > 0 {
		return nil, &RuleValidationError{Problems: problems}
	}
	rule.ID = uuid.New()
	rule.UserID = userID
	rule.UsageCount = 0
	rule.LastUsedAt = nil
	rule.CreatedAt = u.now()
	if err := u.rules.CreateRule(ctx, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (u *DashboardUsecase) UpdateRule(ctx context.Context, userID int, id uuid.UUID, patch entities.AutomationRule) (*entities.AutomationRule, error) {
	existing, err := u.rules.GetRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	existing.TriggerText = patch.TriggerText
	existing.ReplyText = patch.ReplyText
	existing.MatchType = patch.MatchType
	existing.TriggerType = patch.TriggerType
	existing.IsActive = patch.IsActive

	if problems := ValidateRule(*existing); len(problems) > 0 {
		return nil, &RuleValidationError{Problems: problems}
	}
	if err := u.rules.UpdateRule(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (u *DashboardUsecase) DeleteRule(ctx context.Context, userID int, id uuid.UUID) error {
	return u.rules.DeleteRule(ctx, userID, id)
}

// Business facts

func (u *DashboardUsecase) ListFacts(ctx context.Context, userID int) ([]entities.BusinessRule, error) {
	return u.facts.ListFacts(ctx, userID)
}

// SaveFact creates a fact or replaces the value of the one with the same
// category and key.
func (u *DashboardUsecase) SaveFact(ctx context.Context, userID int, fact entities.BusinessRule) (*entities.BusinessRule, error) {
	fact.Key = strings.TrimSpace(fact.Key)
	fact.Value = strings.TrimSpace(fact.Value)
	if !fact.Category.Valid() {
		return nil, fmt.Errorf("%w: category %q", entities.ErrInvalidInput, fact.Category)
	}
	if fact.Key == "" || utf8.RuneCountInString(fact.Key) > MaxFactKeyLength {
		return nil, fmt.Errorf("%w: key must be 1-%d characters", entities.ErrInvalidInput, MaxFactKeyLength)
	}
	if fact.Value == "" || utf8.RuneCountInString(fact.Value) > MaxFactValueLength {
		return nil, fmt.Errorf("%w: value must be 1-%d characters", entities.ErrInvalidInput, MaxFactValueLength)
	}

	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}
	fact.UserID = userID
	fact.UpdatedAt = u.now()
	if err := u.facts.UpsertFact(ctx, &fact); err != nil {
		return nil, err
	}
	return &fact, nil
}

func (u *DashboardUsecase) DeleteFact(ctx context.Context, userID int, id uuid.UUID) error {
	return u.facts.DeleteFact(ctx, userID, id)
}

// Settings and usage

func (u *DashboardUsecase) GetSettings(ctx context.Context, userID int) (*entities.User, error) {
	return u.users.GetByID(ctx, userID)
}

func (u *DashboardUsecase) UpdateSettings(ctx context.Context, userID int, s entities.Settings) (*entities.User, error) {
	if s.InstagramAccountID != nil {
		trimmed := strings.TrimSpace(*s.InstagramAccountID)
		s.InstagramAccountID = &trimmed
	}
	if err := u.users.UpdateSettings(ctx, userID, s); err != nil {
		return nil, err
	}
	return u.users.GetByID(ctx, userID)
}

func (u *DashboardUsecase) Usage(ctx context.Context, userID int) (*entities.UsageStatus, error) {
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.usage.Status(ctx, user)
}
