package usecases

import (
	"testing"
	"time"

	"viloai/internal/entities"

	"github.com/stretchr/testify/assert"
)

func TestScoreLead(t *testing.T) {
	tests := []struct {
		intent entities.Intent
		lead   bool
		score  int
		reason string
	}{
		{entities.IntentPriceInquiry, true, 10, "High-value"},
		{entities.IntentAvailability, true, 8, "High-value"},
		{entities.IntentLocation, true, 8, "High-value"},
		{entities.IntentGeneralQuestion, true, 5, "Medium-value"},
		{entities.IntentComplaint, true, 5, "Needs attention"},
		{entities.IntentCompliment, false, 0, "Low priority"},
		{entities.IntentOther, false, 0, "No intent classified"},
		{"", false, 0, "No intent classified"},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			got := ScoreLead(tt.intent)
			assert.Equal(t, tt.lead, got.IsLead)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestScoreLeadOrdering(t *testing.T) {
	s := func(i entities.Intent) int { return ScoreLead(i).Score }

	assert.Greater(t, s(entities.IntentPriceInquiry), s(entities.IntentAvailability))
	assert.Equal(t, s(entities.IntentAvailability), s(entities.IntentLocation))
	assert.Greater(t, s(entities.IntentLocation), s(entities.IntentGeneralQuestion))
	assert.Equal(t, s(entities.IntentGeneralQuestion), s(entities.IntentComplaint))
	assert.Greater(t, s(entities.IntentComplaint), s(entities.IntentCompliment))
	assert.Equal(t, 0, s(entities.IntentCompliment))
	assert.Equal(t, 0, s(entities.IntentOther))
	assert.Equal(t, 0, s(""))
}

func TestSortInbox(t *testing.T) {
	now := time.Now()
	item := func(text string, intent entities.Intent, replied bool, pending bool, age time.Duration) entities.InboxItem {
		it := entities.InboxItem{
			Message: entities.InboundMessage{
				Text:       text,
				Intent:     intent,
				Replied:    replied,
				ReceivedAt: now.Add(-age),
			},
			Lead: ScoreLead(intent),
		}
		if pending {
			it.QueueEntry = &entities.ReplyQueueEntry{Status: entities.QueuePending}
		}
		return it
	}

	items := []entities.InboxItem{
		item("thanks", entities.IntentCompliment, false, false, time.Minute),
		item("old price", entities.IntentPriceInquiry, false, false, time.Hour),
		item("answered price", entities.IntentPriceInquiry, true, false, time.Second),
		item("pending price", entities.IntentPriceInquiry, false, true, 2*time.Hour),
		item("new price", entities.IntentPriceInquiry, false, false, time.Minute),
		item("where", entities.IntentLocation, false, false, time.Second),
	}

	SortInbox(items)

	var got []string
	for _, it := range items {
		got = append(got, it.Message.Text)
	}
	assert.Equal(t, []string{
		"pending price",
		"new price",
		"old price",
		"answered price",
		"where",
		"thanks",
	}, got)
}
