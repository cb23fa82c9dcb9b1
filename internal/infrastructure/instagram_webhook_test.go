package infrastructure

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"viloai/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookBody = `{
	"object": "instagram",
	"entry": [{
		"id": "17841400000000001",
		"time": 1792227600,
		"messaging": [
			{"sender":{"id":"igsid_5"},"recipient":{"id":"17841400000000001"},"timestamp":1792227600000,"message":{"mid":"mid_in","text":"Paljonko maksaa?"}},
			{"sender":{"id":"17841400000000001"},"recipient":{"id":"igsid_5"},"timestamp":1792227601000,"message":{"mid":"mid_echo","text":"Heti","is_echo":true}},
			{"sender":{"id":"igsid_5"},"recipient":{"id":"17841400000000001"},"timestamp":1792227602000,"read":{"mid":"mid_in"}}
		],
		"changes": [
			{"field":"comments","value":{"id":"c_9","text":"Onko tätä koossa M?","from":{"id":"igsid_6","username":"maija"},"media":{"id":"media_1"}}},
			{"field":"mentions","value":{"id":"x"}}
		]
	}, {
		"id": "17841400000000002",
		"messaging": [
			{"sender":{"id":"17841400000000002"},"timestamp":1792227600000,"message":{"mid":"mid_echo2","text":"hi","is_echo":true}}
		]
	}]
}`

func TestParseWebhook(t *testing.T) {
	batches, err := ParseWebhook([]byte(webhookBody))
	require.NoError(t, err)
	require.Len(t, batches, 1)

	b := batches[0]
	assert.Equal(t, "17841400000000001", b.AccountID)
	require.Len(t, b.Messages, 2)

	dm := b.Messages[0]
	assert.Equal(t, "mid_in", dm.PlatformID)
	assert.Equal(t, entities.ChannelDM, dm.Channel)
	assert.Equal(t, "igsid_5", dm.ReplyTarget())
	assert.Equal(t, int64(1792227600000), dm.ReceivedAt.UnixMilli())

	c := b.Messages[1]
	assert.Equal(t, "c_9", c.PlatformID)
	assert.Equal(t, entities.ChannelComment, c.Channel)
	assert.Equal(t, "maija", c.SenderUsername)
	assert.Equal(t, "media_1", c.ParentPostID)
	assert.Equal(t, int64(1792227600), c.ReceivedAt.Unix())
}

func TestParseWebhookCommentTimeInMillis(t *testing.T) {
	body := `{"object":"instagram","entry":[{"id":"17841400000000001","time":1792227600123,
		"changes":[{"field":"comments","value":{"id":"c_1","text":"Kiva!","from":{"id":"igsid_6"},"media":{"id":"media_1"}}}]}]}`

	batches, err := ParseWebhook([]byte(body))
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Messages, 1)
	assert.Equal(t, int64(1792227600123), batches[0].Messages[0].ReceivedAt.UnixMilli())
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	_, err := ParseWebhook([]byte("not json"))
	assert.Error(t, err)
}

func TestValidSignature(t *testing.T) {
	body := []byte(webhookBody)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, ValidSignature("app-secret", body, header))
	assert.False(t, ValidSignature("other-secret", body, header))
	assert.False(t, ValidSignature("app-secret", append(body, ' '), header))
	assert.False(t, ValidSignature("app-secret", body, "sha1=abc"))
	assert.False(t, ValidSignature("app-secret", body, "sha256=zz"))
}
