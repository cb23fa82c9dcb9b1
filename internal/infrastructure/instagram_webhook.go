package infrastructure

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"viloai/internal/entities"
)

// WebhookBatch is the set of inbound messages delivered for one Instagram account.
type WebhookBatch struct {
	AccountID string
	Messages  []entities.InboundMessage
}

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID        string             `json:"id"`
	Time      int64              `json:"time"`
	Messaging []webhookMessaging `json:"messaging"`
	Changes   []webhookChange    `json:"changes"`
}

type webhookParty struct {
	ID string `json:"id"`
}

type webhookMessaging struct {
	Sender    webhookParty `json:"sender"`
	Recipient webhookParty `json:"recipient"`
	Timestamp int64        `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

type webhookChange struct {
	Field string `json:"field"`
	Value struct {
		ID   string `json:"id"`
		Text string `json:"text"`
		From struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Media struct {
			ID string `json:"id"`
		} `json:"media"`
	} `json:"value"`
}

// ValidSignature checks an X-Hub-Signature-256 header ("sha256=<hex>")
// against the raw request body.
func ValidSignature(appSecret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// ParseWebhook turns an Instagram webhook body into per-account message
// batches. Echoes of the business's own messages and non-comment changes are
// dropped.
func ParseWebhook(body []byte) ([]WebhookBatch, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	var batches []WebhookBatch
	for _, entry := range payload.Entry {
		batch := WebhookBatch{AccountID: entry.ID}

		for _, m := range entry.Messaging {
			if m.Message == nil || m.Message.IsEcho || m.Message.MID == "" || strings.TrimSpace(m.Message.Text) == "" {
				continue
			}
			if m.Sender.ID == entry.ID {
				continue
			}
			batch.Messages = append(batch.Messages, entities.InboundMessage{
				PlatformID:     m.Message.MID,
				ConversationID: m.Sender.ID,
				SenderID:       m.Sender.ID,
				Text:           m.Message.Text,
				Channel:        entities.ChannelDM,
				ReceivedAt:     time.UnixMilli(m.Timestamp),
			})
		}

		for _, ch := range entry.Changes {
			v := ch.Value
			if ch.Field != "comments" || v.ID == "" || v.From.ID == entry.ID || strings.TrimSpace(v.Text) == "" {
				continue
			}
			at := entryTime(entry.Time)
			batch.Messages = append(batch.Messages, entities.InboundMessage{
				PlatformID:     v.ID,
				SenderID:       v.From.ID,
				SenderUsername: v.From.Username,
				Text:           v.Text,
				Channel:        entities.ChannelComment,
				ParentPostID:   v.Media.ID,
				ReceivedAt:     at,
			})
		}

		if len(batch.Messages) > 0 {
			batches = append(batches, batch)
		}
	}
	return batches, nil
}

// entryTime reads entry.time, which Meta sends in seconds for comment
// changes and in milliseconds for messaging entries.
func entryTime(v int64) time.Time {
	switch {
	case v <= 0:
		return time.Now()
	case v >= 1e12:
		return time.UnixMilli(v)
	default:
		return time.Unix(v, 0)
	}
}
