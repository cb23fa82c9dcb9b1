package usecases

import (
	"sort"

	"viloai/internal/entities"
)

var leadTable = map[entities.Intent]entities.LeadInfo{
	entities.IntentPriceInquiry:    {IsLead: true, Score: 10, Reason: "High-value"},
	entities.IntentAvailability:    {IsLead: true, Score: 8, Reason: "High-value"},
	entities.IntentLocation:        {IsLead: true, Score: 8, Reason: "High-value"},
	entities.IntentGeneralQuestion: {IsLead: true, Score: 5, Reason: "Medium-value"},
	entities.IntentComplaint:       {IsLead: true, Score: 5, Reason: "Needs attention"},
	entities.IntentCompliment:      {IsLead: false, Score: 0, Reason: "Low priority"},
}

// ScoreLead maps an intent to its inbox priority. Unknown or empty intents
// are not leads.
func ScoreLead(intent entities.Intent) entities.LeadInfo {
	if info, ok := leadTable[intent]; ok {
		return info
	}
	return entities.LeadInfo{IsLead: false, Score: 0, Reason: "No intent classified"}
}

func replyStateRank(item *entities.InboxItem) int {
	switch {
	case item.QueueEntry != nil && item.QueueEntry.Status == entities.QueuePending:
		return 0
	case !item.Message.Replied:
		return 1
	default:
		return 2
	}
}

// SortInbox orders items by lead score, then pending approval before
// unanswered before answered, then newest first.
func SortInbox(items []entities.InboxItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.Lead.Score != b.Lead.Score {
			return a.Lead.Score > b.Lead.Score
		}
		if ra, rb := replyStateRank(a), replyStateRank(b); ra != rb {
			return ra < rb
		}
		return a.Message.ReceivedAt.After(b.Message.ReceivedAt)
	})
}
