package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"viloai/internal/entities"

	"go.uber.org/zap"
)

// Graph timestamps look like 2024-05-01T10:00:00+0000.
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// GraphError is the error object the Graph API returns.
type GraphError struct {
	Status    int    `json:"-"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api: (#%d) %s", e.Code, e.Message)
}

// InstagramClient sends replies and pulls DMs and comments through the
// Instagram Graph API. It implements both Messenger and MessageSource.
type InstagramClient struct {
	httpClient *http.Client
	baseURL    string
	fetchLimit int
	logger     *zap.Logger
}

func NewInstagramClient(graphBaseURL, apiVersion string, fetchLimit int, logger *zap.Logger) *InstagramClient {
	if fetchLimit <= 0 {
		fetchLimit = 25
	}
	return &InstagramClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(graphBaseURL, "/") + "/" + apiVersion,
		fetchLimit: fetchLimit,
		logger:     logger.With(zap.String("component", "instagram")),
	}
}

func (c *InstagramClient) do(ctx context.Context, method, path, token string, query url.Values, payload any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("graph api: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		var envelope struct {
			Error *GraphError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			envelope.Error.Status = resp.StatusCode
			return envelope.Error
		}
		return &GraphError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("graph api: decode %s: %w", path, err)
	}
	return nil
}

// SendDirectMessage sends text to an Instagram-scoped user id and returns the message id.
func (c *InstagramClient) SendDirectMessage(ctx context.Context, acct entities.InstagramAccount, recipientID, text string) (string, error) {
	payload := map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}
	var resp struct {
		RecipientID string `json:"recipient_id"`
		MessageID   string `json:"message_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+acct.ID+"/messages", acct.AccessToken, nil, payload, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

// ReplyToComment posts a public reply under a comment and returns the new comment id.
func (c *InstagramClient) ReplyToComment(ctx context.Context, acct entities.InstagramAccount, commentID, text string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+commentID+"/replies", acct.AccessToken, nil, map[string]string{"message": text}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

type graphUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type graphMessage struct {
	ID          string    `json:"id"`
	CreatedTime string    `json:"created_time"`
	From        graphUser `json:"from"`
	Message     string    `json:"message"`
}

type graphConversation struct {
	ID       string `json:"id"`
	Messages struct {
		Data []graphMessage `json:"data"`
	} `json:"messages"`
}

// FetchDirectMessages returns recent customer messages from the account's
// DM threads. Messages the business sent itself are dropped.
func (c *InstagramClient) FetchDirectMessages(ctx context.Context, acct entities.InstagramAccount) ([]entities.InboundMessage, error) {
	limit := strconv.Itoa(c.fetchLimit)
	query := url.Values{
		"platform": {"instagram"},
		"fields":   {"id,updated_time,messages.limit(" + limit + "){id,created_time,from,message}"},
		"limit":    {limit},
	}
	var resp struct {
		Data []graphConversation `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/"+acct.ID+"/conversations", acct.AccessToken, query, nil, &resp); err != nil {
		return nil, err
	}

	var out []entities.InboundMessage
	for _, conv := range resp.Data {
		for _, m := range conv.Messages.Data {
			if m.From.ID == acct.ID || strings.TrimSpace(m.Message) == "" {
				continue
			}
			out = append(out, entities.InboundMessage{
				PlatformID:     m.ID,
				ConversationID: m.From.ID,
				SenderID:       m.From.ID,
				SenderUsername: m.From.Username,
				SenderName:     m.From.Name,
				Text:           m.Message,
				Channel:        entities.ChannelDM,
				ReceivedAt:     parseGraphTime(m.CreatedTime),
			})
		}
	}
	return out, nil
}

type graphComment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp string    `json:"timestamp"`
	Username  string    `json:"username"`
	From      graphUser `json:"from"`
}

// FetchComments returns recent comments on the account's latest media.
func (c *InstagramClient) FetchComments(ctx context.Context, acct entities.InstagramAccount) ([]entities.InboundMessage, error) {
	limit := strconv.Itoa(c.fetchLimit)
	var media struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/"+acct.ID+"/media", acct.AccessToken,
		url.Values{"fields": {"id,timestamp"}, "limit": {limit}}, nil, &media); err != nil {
		return nil, err
	}

	var out []entities.InboundMessage
	for _, post := range media.Data {
		var comments struct {
			Data []graphComment `json:"data"`
		}
		err := c.do(ctx, http.MethodGet, "/"+post.ID+"/comments", acct.AccessToken,
			url.Values{"fields": {"id,text,timestamp,username,from"}, "limit": {limit}}, nil, &comments)
		if err != nil {
			c.logger.Warn("Failed to fetch comments for media", zap.String("media_id", post.ID), zap.Error(err))
			continue
		}
		for _, cm := range comments.Data {
			if cm.From.ID == acct.ID || strings.TrimSpace(cm.Text) == "" {
				continue
			}
			username := cm.Username
			if username == "" {
				username = cm.From.Username
			}
			out = append(out, entities.InboundMessage{
				PlatformID:     cm.ID,
				SenderID:       cm.From.ID,
				SenderUsername: username,
				Text:           cm.Text,
				Channel:        entities.ChannelComment,
				ParentPostID:   post.ID,
				ReceivedAt:     parseGraphTime(cm.Timestamp),
			})
		}
	}
	return out, nil
}

func parseGraphTime(s string) time.Time {
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
