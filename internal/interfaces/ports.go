package interfaces

import (
	"context"
	"time"

	"viloai/internal/entities"

	"github.com/google/uuid"
)

// AIClient is a single text-completion call against a model vendor.
type AIClient interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// ClassifyRequest carries everything the classifier prompt is built from.
type ClassifyRequest struct {
	Text    string
	Facts   []entities.BusinessRule
	History []entities.ConversationTurn
}

// ClassifierProvider is the shared contract behind every AI backend.
// Implementations return errors freely; fallback policy lives in the callers.
type ClassifierProvider interface {
	Classify(ctx context.Context, req ClassifyRequest) (*entities.ClassificationResult, error)
	CheckRelevance(ctx context.Context, commentText string) (*entities.RelevanceVerdict, error)
}

// Messenger sends replies back through the Instagram channel.
type Messenger interface {
	SendDirectMessage(ctx context.Context, acct entities.InstagramAccount, recipientID, text string) (string, error)
	ReplyToComment(ctx context.Context, acct entities.InstagramAccount, commentID, text string) (string, error)
}

// MessageSource pulls recent inbound messages for a manual sync.
type MessageSource interface {
	FetchDirectMessages(ctx context.Context, acct entities.InstagramAccount) ([]entities.InboundMessage, error)
	FetchComments(ctx context.Context, acct entities.InstagramAccount) ([]entities.InboundMessage, error)
}

type MessageStore interface {
	Exists(ctx context.Context, userID int, platformID string) (bool, error)
	// InsertIfNotExists reports false when (user_id, platform_id) is already stored.
	InsertIfNotExists(ctx context.Context, msg *entities.InboundMessage) (bool, error)
	Get(ctx context.Context, userID int, id uuid.UUID) (*entities.InboundMessage, error)
	// Update writes the mutable classification and reply fields.
	Update(ctx context.Context, msg *entities.InboundMessage) error
	List(ctx context.Context, userID int, limit int) ([]entities.InboundMessage, error)
	// ConversationSince returns messages of one thread received in [since, before), oldest first.
	ConversationSince(ctx context.Context, userID int, conversationID string, since, before time.Time) ([]entities.InboundMessage, error)
	DeleteAll(ctx context.Context, userID int) (int64, error)
}

type RuleStore interface {
	// ListRules returns rules in creation order, which is their match priority.
	ListRules(ctx context.Context, userID int) ([]entities.AutomationRule, error)
	GetRule(ctx context.Context, userID int, id uuid.UUID) (*entities.AutomationRule, error)
	CreateRule(ctx context.Context, rule *entities.AutomationRule) error
	UpdateRule(ctx context.Context, rule *entities.AutomationRule) error
	DeleteRule(ctx context.Context, userID int, id uuid.UUID) error
	RecordRuleUsage(ctx context.Context, userID int, id uuid.UUID, at time.Time) error
}

type BusinessRuleStore interface {
	ListFacts(ctx context.Context, userID int) ([]entities.BusinessRule, error)
	UpsertFact(ctx context.Context, fact *entities.BusinessRule) error
	DeleteFact(ctx context.Context, userID int, id uuid.UUID) error
}

type QueueStore interface {
	// CreateEntry fails with entities.ErrDuplicate when the message already has an entry.
	CreateEntry(ctx context.Context, entry *entities.ReplyQueueEntry) error
	GetEntry(ctx context.Context, userID int, id uuid.UUID) (*entities.ReplyQueueEntry, error)
	ListEntries(ctx context.Context, userID int, status entities.QueueStatus) ([]entities.ReplyQueueEntry, error)
	// Transition moves a pending entry to a terminal state, or fails with
	// entities.ErrQueueEntryClosed.
	Transition(ctx context.Context, userID int, id uuid.UUID, t entities.QueueTransition) (*entities.ReplyQueueEntry, error)
	DeleteEntries(ctx context.Context, userID int) (int64, error)
}

type ReplyLogStore interface {
	AppendLog(ctx context.Context, entry *entities.ReplyLogEntry) error
	ListLogs(ctx context.Context, userID int, limit int) ([]entities.ReplyLogEntry, error)
}

type UsageStore interface {
	IncrementUsage(ctx context.Context, userID int, month string) error
	GetUsage(ctx context.Context, userID int, month string) (int, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	GetByInstagramAccount(ctx context.Context, accountID string) (*entities.User, error)
	CreateUser(ctx context.Context, user *entities.User) error
	ListUsers(ctx context.Context) ([]entities.User, error)
	UpdateSettings(ctx context.Context, id int, s entities.Settings) error
	UpdateLimit(ctx context.Context, id int, monthlyLimit int) error
	SetActive(ctx context.Context, id int, active bool) error
}

// Notifier tells the business owner a drafted reply is waiting.
type Notifier interface {
	NotifyPendingApproval(ctx context.Context, user *entities.User, entry *entities.ReplyQueueEntry) error
}

// EventPublisher pushes live inbox events to connected dashboards.
type EventPublisher interface {
	Publish(ctx context.Context, userID int, event string, payload any) error
}
