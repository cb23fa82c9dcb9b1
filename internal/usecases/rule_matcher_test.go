package usecases

import (
	"strings"
	"testing"

	"viloai/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(trigger string, mode entities.MatchType, typ entities.TriggerType) entities.AutomationRule {
	return entities.AutomationRule{
		TriggerText: trigger,
		ReplyText:   "reply to " + trigger,
		MatchType:   mode,
		TriggerType: typ,
		IsActive:    true,
	}
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		channel entities.Channel
		rules   []entities.AutomationRule
		want    string
	}{
		{
			name:    "first match wins",
			text:    "hi",
			channel: entities.ChannelDM,
			rules: []entities.AutomationRule{
				rule("hi", entities.MatchExact, entities.TriggerBoth),
				rule("hi there", entities.MatchContains, entities.TriggerBoth),
			},
			want: "hi",
		},
		{
			name:    "case and whitespace insensitive",
			text:    "  HI  ",
			channel: entities.ChannelDM,
			rules:   []entities.AutomationRule{rule("hi", entities.MatchExact, entities.TriggerBoth)},
			want:    "hi",
		},
		{
			name:    "trigger is normalized too",
			text:    "what is the price",
			channel: entities.ChannelComment,
			rules:   []entities.AutomationRule{rule("  PRICE ", entities.MatchContains, entities.TriggerComment)},
			want:    "  PRICE ",
		},
		{
			name:    "starts with",
			text:    "Hinta? paljonko",
			channel: entities.ChannelDM,
			rules: []entities.AutomationRule{
				rule("paljonko", entities.MatchStartsWith, entities.TriggerBoth),
				rule("hinta", entities.MatchStartsWith, entities.TriggerBoth),
			},
			want: "hinta",
		},
		{
			name:    "exact needs full equality",
			text:    "hi there",
			channel: entities.ChannelDM,
			rules:   []entities.AutomationRule{rule("hi", entities.MatchExact, entities.TriggerBoth)},
		},
		{
			name:    "comment rule never fires on dm",
			text:    "price",
			channel: entities.ChannelDM,
			rules:   []entities.AutomationRule{rule("price", entities.MatchContains, entities.TriggerComment)},
		},
		{
			name:    "dm rule never fires on comment",
			text:    "price",
			channel: entities.ChannelComment,
			rules:   []entities.AutomationRule{rule("price", entities.MatchContains, entities.TriggerDM)},
		},
		{
			name:    "empty text",
			text:    "   ",
			channel: entities.ChannelDM,
			rules:   []entities.AutomationRule{rule("", entities.MatchContains, entities.TriggerBoth)},
		},
		{
			name:    "no rules",
			text:    "hello",
			channel: entities.ChannelDM,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchRule(tt.text, tt.channel, tt.rules)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.TriggerText)
		})
	}
}

func TestMatchRuleSkipsInactive(t *testing.T) {
	inactive := rule("price", entities.MatchContains, entities.TriggerBoth)
	inactive.IsActive = false
	active := rule("pri", entities.MatchContains, entities.TriggerBoth)

	assert.Nil(t, MatchRule("price", entities.ChannelDM, []entities.AutomationRule{inactive}))

	got := MatchRule("price", entities.ChannelDM, []entities.AutomationRule{inactive, active})
	require.NotNil(t, got)
	assert.Equal(t, "pri", got.TriggerText)
}

func TestMatchRuleIsDeterministic(t *testing.T) {
	rules := []entities.AutomationRule{
		rule("hello", entities.MatchStartsWith, entities.TriggerBoth),
		rule("hello", entities.MatchContains, entities.TriggerBoth),
	}
	first := MatchRule("hello world", entities.ChannelComment, rules)
	for i := 0; i < 10; i++ {
		assert.Same(t, first, MatchRule("hello world", entities.ChannelComment, rules))
	}
}

func TestValidateRule(t *testing.T) {
	valid := rule("price", entities.MatchContains, entities.TriggerBoth)
	assert.Empty(t, ValidateRule(valid))

	empty := entities.AutomationRule{MatchType: "regex", TriggerType: "story"}
	problems := ValidateRule(empty)
	assert.Len(t, problems, 4)
	assert.Contains(t, problems, "trigger text is required")
	assert.Contains(t, problems, "reply text is required")

	long := valid
	long.TriggerText = strings.Repeat("a", MaxTriggerLength+1)
	long.ReplyText = strings.Repeat("b", MaxReplyLength+1)
	assert.Len(t, ValidateRule(long), 2)

	edge := valid
	edge.TriggerText = strings.Repeat("ä", MaxTriggerLength)
	edge.ReplyText = strings.Repeat("ö", MaxReplyLength)
	assert.Empty(t, ValidateRule(edge))
}
