package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"viloai/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testAccount = entities.InstagramAccount{ID: "17841400000000001", AccessToken: "tok"}

func newGraphServer(t *testing.T, routes map[string]http.HandlerFunc) *InstagramClient {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewInstagramClient(srv.URL, "v21.0", 10, zap.NewNop())
}

func TestSendDirectMessage(t *testing.T) {
	var got map[string]map[string]string
	client := newGraphServer(t, map[string]http.HandlerFunc{
		"POST /v21.0/17841400000000001/messages": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"recipient_id":"igsid_1","message_id":"mid_out"}`))
		},
	})

	id, err := client.SendDirectMessage(context.Background(), testAccount, "igsid_1", "Hei!")
	require.NoError(t, err)
	assert.Equal(t, "mid_out", id)
	assert.Equal(t, "igsid_1", got["recipient"]["id"])
	assert.Equal(t, "Hei!", got["message"]["text"])
}

func TestReplyToCommentGraphError(t *testing.T) {
	client := newGraphServer(t, map[string]http.HandlerFunc{
		"POST /v21.0/c_1/replies": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported post request","type":"GraphMethodException","code":100}}`))
		},
	})

	_, err := client.ReplyToComment(context.Background(), testAccount, "c_1", "Kiitos!")
	require.Error(t, err)

	var gerr *GraphError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, 100, gerr.Code)
	assert.Equal(t, http.StatusBadRequest, gerr.Status)
	assert.Contains(t, err.Error(), "Unsupported post request")
}

func TestFetchDirectMessagesDropsOwnMessages(t *testing.T) {
	client := newGraphServer(t, map[string]http.HandlerFunc{
		"GET /v21.0/17841400000000001/conversations": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "instagram", r.URL.Query().Get("platform"))
			_, _ = w.Write([]byte(`{"data":[{"id":"conv_1","messages":{"data":[
				{"id":"m_2","created_time":"2026-10-17T09:01:00+0000","from":{"id":"17841400000000001","username":"kahvila"},"message":"Moi!"},
				{"id":"m_1","created_time":"2026-10-17T09:00:00+0000","from":{"id":"igsid_9","username":"asiakas"},"message":"Oletteko auki?"},
				{"id":"m_0","created_time":"2026-10-17T08:59:00+0000","from":{"id":"igsid_9"},"message":""}
			]}}]}`))
		},
	})

	msgs, err := client.FetchDirectMessages(context.Background(), testAccount)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	assert.Equal(t, "m_1", m.PlatformID)
	assert.Equal(t, "igsid_9", m.SenderID)
	assert.Equal(t, "igsid_9", m.ConversationID)
	assert.Equal(t, entities.ChannelDM, m.Channel)
	assert.True(t, m.ReceivedAt.Equal(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)))
}

func TestFetchComments(t *testing.T) {
	client := newGraphServer(t, map[string]http.HandlerFunc{
		"GET /v21.0/17841400000000001/media": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"id":"media_1"},{"id":"media_2"}]}`))
		},
		"GET /v21.0/media_1/comments": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[
				{"id":"c_1","text":"Hinta?","timestamp":"2026-10-17T10:00:00+0000","username":"liisa","from":{"id":"igsid_3"}},
				{"id":"c_2","text":"Kiitos!","timestamp":"2026-10-17T10:01:00+0000","from":{"id":"17841400000000001","username":"kahvila"}}
			]}`))
		},
		"GET /v21.0/media_2/comments": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	msgs, err := client.FetchComments(context.Background(), testAccount)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "c_1", msgs[0].PlatformID)
	assert.Equal(t, "media_1", msgs[0].ParentPostID)
	assert.Equal(t, "liisa", msgs[0].SenderUsername)
	assert.Equal(t, "c_1", msgs[0].ReplyTarget())
}
