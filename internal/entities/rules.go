package entities

import (
	"time"

	"github.com/google/uuid"
)

type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
)

func (m MatchType) Valid() bool {
	return m == MatchExact || m == MatchContains || m == MatchStartsWith
}

type TriggerType string

const (
	TriggerDM      TriggerType = "dm"
	TriggerComment TriggerType = "comment"
	TriggerBoth    TriggerType = "both"
)

func (t TriggerType) Valid() bool {
	return t == TriggerDM || t == TriggerComment || t == TriggerBoth
}

// AppliesTo reports whether a rule with this trigger type may fire on channel.
func (t TriggerType) AppliesTo(channel Channel) bool {
	return t == TriggerBoth || string(t) == string(channel)
}

// AutomationRule is a business-defined trigger -> reply pair.
type AutomationRule struct {
	ID          uuid.UUID   `json:"id"`
	UserID      int         `json:"user_id"`
	TriggerText string      `json:"trigger_text"`
	ReplyText   string      `json:"reply_text"`
	MatchType   MatchType   `json:"match_type"`
	TriggerType TriggerType `json:"trigger_type"`
	IsActive    bool        `json:"is_active"`
	UsageCount  int         `json:"usage_count"`
	LastUsedAt  *time.Time  `json:"last_used_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type FactCategory string

const (
	FactPrice     FactCategory = "price"
	FactInfo      FactCategory = "info"
	FactInventory FactCategory = "inventory"
	FactFAQ       FactCategory = "faq"
	FactOther     FactCategory = "other"
)

// FactCategories is the order facts are grouped in when shown to the model.
var FactCategories = []FactCategory{FactPrice, FactInfo, FactInventory, FactFAQ, FactOther}

func (c FactCategory) Valid() bool {
	for _, known := range FactCategories {
		if c == known {
			return true
		}
	}
	return false
}

// BusinessRule is a key/value fact the classifier may quote in replies.
type BusinessRule struct {
	ID        uuid.UUID    `json:"id"`
	UserID    int          `json:"user_id"`
	Category  FactCategory `json:"category"`
	Key       string       `json:"key"`
	Value     string       `json:"value"`
	UpdatedAt time.Time    `json:"updated_at"`
}
