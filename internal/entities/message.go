package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelDM      Channel = "dm"
	ChannelComment Channel = "comment"
)

func (c Channel) Valid() bool {
	return c == ChannelDM || c == ChannelComment
}

type Intent string

const (
	IntentPriceInquiry    Intent = "price_inquiry"
	IntentAvailability    Intent = "availability"
	IntentLocation        Intent = "location"
	IntentGeneralQuestion Intent = "general_question"
	IntentComplaint       Intent = "complaint"
	IntentCompliment      Intent = "compliment"
	IntentOther           Intent = "other"
)

// Intents lists every intent the classifier may return, in prompt order.
var Intents = []Intent{
	IntentPriceInquiry,
	IntentAvailability,
	IntentLocation,
	IntentGeneralQuestion,
	IntentComplaint,
	IntentCompliment,
	IntentOther,
}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

type Language string

const (
	LanguageFinnish Language = "fi"
	LanguageEnglish Language = "en"
)

func (l Language) Valid() bool {
	return l == LanguageFinnish || l == LanguageEnglish
}

// ReplySource records who produced a sent reply.
type ReplySource string

const (
	RepliedByAutomation ReplySource = "automation"
	RepliedByAIApproved ReplySource = "ai_approved"
	RepliedByManual     ReplySource = "manual"
)

// InboundMessage is one Instagram DM or comment received by a business.
type InboundMessage struct {
	ID             uuid.UUID `json:"id"`
	UserID         int       `json:"user_id"`
	PlatformID     string    `json:"platform_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	SenderName     string    `json:"sender_name"`
	Text           string    `json:"text"`
	Channel        Channel   `json:"channel"`
	ParentPostID   string    `json:"parent_post_id,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`

	Intent           Intent   `json:"intent,omitempty"`
	Confidence       float64  `json:"confidence"`
	DetectedLanguage Language `json:"detected_language,omitempty"`
	SuggestedReplyFI string   `json:"suggested_reply_fi,omitempty"`
	SuggestedReplyEN string   `json:"suggested_reply_en,omitempty"`
	IsQuestion       bool     `json:"is_question"`

	Replied         bool        `json:"replied"`
	ReplyText       string      `json:"reply_text,omitempty"`
	RepliedBy       ReplySource `json:"replied_by,omitempty"`
	RepliedAt       *time.Time  `json:"replied_at,omitempty"`
	ExternalReplyID string      `json:"external_reply_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasCachedClassification reports whether the stored analysis is complete
// enough to be served without calling the AI provider again.
func (m *InboundMessage) HasCachedClassification() bool {
	return m.Intent != "" &&
		strings.TrimSpace(m.SuggestedReplyFI) != "" &&
		strings.TrimSpace(m.SuggestedReplyEN) != ""
}

func (m *InboundMessage) CachedClassification() ClassificationResult {
	return ClassificationResult{
		Intent:           m.Intent,
		Confidence:       m.Confidence,
		DetectedLanguage: m.DetectedLanguage,
		SuggestedReplyFI: m.SuggestedReplyFI,
		SuggestedReplyEN: m.SuggestedReplyEN,
	}
}

func (m *InboundMessage) ApplyClassification(c ClassificationResult) {
	m.Intent = c.Intent
	m.Confidence = c.Confidence
	m.DetectedLanguage = c.DetectedLanguage
	m.SuggestedReplyFI = c.SuggestedReplyFI
	m.SuggestedReplyEN = c.SuggestedReplyEN
}

func (m *InboundMessage) MarkReplied(text string, by ReplySource, externalID string, at time.Time) {
	m.Replied = true
	m.ReplyText = text
	m.RepliedBy = by
	m.ExternalReplyID = externalID
	m.RepliedAt = &at
}

// ReplyTarget is the reference the send API expects: the sender for DMs,
// the comment itself for comment replies.
func (m *InboundMessage) ReplyTarget() string {
	if m.Channel == ChannelComment {
		return m.PlatformID
	}
	return m.SenderID
}

// ClassificationResult is the AI verdict on one message.
type ClassificationResult struct {
	Intent           Intent   `json:"intent"`
	Confidence       float64  `json:"confidence"`
	DetectedLanguage Language `json:"detected_language"`
	SuggestedReplyFI string   `json:"suggested_reply_fi"`
	SuggestedReplyEN string   `json:"suggested_reply_en"`
}

// ReplyFor returns the suggestion written in lang, falling back to the other
// language when that one is empty.
func (c ClassificationResult) ReplyFor(lang Language) string {
	if lang == LanguageFinnish {
		if c.SuggestedReplyFI != "" {
			return c.SuggestedReplyFI
		}
		return c.SuggestedReplyEN
	}
	if c.SuggestedReplyEN != "" {
		return c.SuggestedReplyEN
	}
	return c.SuggestedReplyFI
}

// RelevanceVerdict is the comment relevance filter's answer.
type RelevanceVerdict struct {
	ShouldReply bool    `json:"should_reply"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence"`
}

type TurnRole string

const (
	TurnCustomer TurnRole = "customer"
	TurnBusiness TurnRole = "business"
)

// ConversationTurn is one earlier line of a DM thread given to the classifier.
type ConversationTurn struct {
	Role TurnRole  `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// SyncResult aggregates what one sync or webhook batch did.
type SyncResult struct {
	Fetched         int  `json:"fetched"`
	Synced          int  `json:"synced"`
	Skipped         int  `json:"skipped"`
	Analyzed        int  `json:"analyzed"`
	AutoReplied     int  `json:"auto_replied"`
	Queued          int  `json:"queued"`
	Failed          int  `json:"failed"`
	UpgradeRequired bool `json:"upgrade_required"`
}

func (r *SyncResult) Add(o SyncResult) {
	r.Fetched += o.Fetched
	r.Synced += o.Synced
	r.Skipped += o.Skipped
	r.Analyzed += o.Analyzed
	r.AutoReplied += o.AutoReplied
	r.Queued += o.Queued
	r.Failed += o.Failed
	r.UpgradeRequired = r.UpgradeRequired || o.UpgradeRequired
}
