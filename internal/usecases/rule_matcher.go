package usecases

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"viloai/internal/entities"
)

// Rule field limits
const (
	MaxTriggerLength = 500
	MaxReplyLength   = 1000
)

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchRule returns the first active rule applicable to channel whose trigger
// matches text, or nil. Rules are evaluated in the order given.
func MatchRule(text string, channel entities.Channel, rules []entities.AutomationRule) *entities.AutomationRule {
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive || !rule.TriggerType.AppliesTo(channel) {
			continue
		}
		trigger := normalizeText(rule.TriggerText)
		if trigger == "" {
			continue
		}

		var matched bool
		switch rule.MatchType {
		case entities.MatchExact:
			matched = normalized == trigger
		case entities.MatchContains:
			matched = strings.Contains(normalized, trigger)
		case entities.MatchStartsWith:
			matched = strings.HasPrefix(normalized, trigger)
		}
		if matched {
			return rule
		}
	}
	return nil
}

// ValidateRule lists every problem with a rule config. An empty result means valid.
func ValidateRule(rule entities.AutomationRule) []string {
	var problems []string

	trigger := strings.TrimSpace(rule.TriggerText)
	reply := strings.TrimSpace(rule.ReplyText)

	if trigger == "" {
		problems = append(problems, "trigger text is required")
	} else if utf8.RuneCountInString(rule.TriggerText) > MaxTriggerLength {
		problems = append(problems, fmt.Sprintf("trigger text must be at most %d characters", MaxTriggerLength))
	}

	if reply == "" {
		problems = append(problems, "reply text is required")
	} else if utf8.RuneCountInString(rule.ReplyText) > MaxReplyLength {
		problems = append(problems, fmt.Sprintf("reply text must be at most %d characters", MaxReplyLength))
	}

	if !rule.MatchType.Valid() {
		problems = append(problems, fmt.Sprintf("invalid match type %q", rule.MatchType))
	}
	if !rule.TriggerType.Valid() {
		problems = append(problems, fmt.Sprintf("invalid trigger type %q", rule.TriggerType))
	}
	return problems
}
