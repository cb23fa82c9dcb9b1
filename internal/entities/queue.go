package entities

import (
	"time"

	"github.com/google/uuid"
)

type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueApproved QueueStatus = "approved"
	QueueRejected QueueStatus = "rejected"
)

func (s QueueStatus) Terminal() bool {
	return s == QueueApproved || s == QueueRejected
}

// ReplyQueueEntry is an AI-drafted reply waiting for a human decision.
type ReplyQueueEntry struct {
	ID               uuid.UUID   `json:"id"`
	UserID           int         `json:"user_id"`
	MessageID        uuid.UUID   `json:"message_id"`
	Channel          Channel     `json:"channel"`
	RecipientRef     string      `json:"recipient_ref"`
	OriginalText     string      `json:"original_text"`
	SuggestedReply   string      `json:"suggested_reply"`
	DetectedLanguage Language    `json:"detected_language"`
	Status           QueueStatus `json:"status"`
	FinalReply       string      `json:"final_reply,omitempty"`
	RejectionReason  string      `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	ApprovedAt       *time.Time  `json:"approved_at,omitempty"`
	RejectedAt       *time.Time  `json:"rejected_at,omitempty"`
}

// QueueTransition is the single allowed move out of pending.
type QueueTransition struct {
	Status          QueueStatus
	FinalReply      string
	RejectionReason string
	At              time.Time
}

// ReplyLogEntry is the append-only audit record of a reply send attempt.
type ReplyLogEntry struct {
	ID              uuid.UUID   `json:"id"`
	UserID          int         `json:"user_id"`
	MessageID       uuid.UUID   `json:"message_id"`
	Channel         Channel     `json:"channel"`
	ReplyType       ReplySource `json:"reply_type"`
	RecipientRef    string      `json:"recipient_ref"`
	ReplyText       string      `json:"reply_text"`
	Success         bool        `json:"success"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	ExternalReplyID string      `json:"external_reply_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// LeadInfo is derived from a classified intent at read time.
type LeadInfo struct {
	IsLead bool   `json:"is_lead"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// InboxItem is one row of the unified inbox.
type InboxItem struct {
	Message    InboundMessage   `json:"message"`
	QueueEntry *ReplyQueueEntry `json:"queue_entry,omitempty"`
	Lead       LeadInfo         `json:"lead"`
}
