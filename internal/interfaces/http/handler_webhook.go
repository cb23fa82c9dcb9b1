package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"viloai/internal/infrastructure"
	"viloai/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const webhookProcessTimeout = 2 * time.Minute

// WebhookHandler receives Instagram messaging and comment notifications.
type WebhookHandler struct {
	sync        *usecases.SyncService
	verifyToken string
	appSecret   string
	logger      *zap.Logger
}

// NewWebhookHandler builds the handler. An empty appSecret disables
// signature checks.
func NewWebhookHandler(sync *usecases.SyncService, verifyToken, appSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		sync:        sync,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		logger:      logger.With(zap.String("component", "webhook")),
	}
}

// Verify answers the subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	if c.Query("hub.mode") != "subscribe" || h.verifyToken == "" || c.Query("hub.verify_token") != h.verifyToken {
		c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// Receive runs the pipeline for every account in the payload. Once the body
// parsed it always answers 200 so Meta does not redeliver.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	if h.appSecret != "" && !infrastructure.ValidSignature(h.appSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		h.logger.Warn("Rejected webhook with bad signature")
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		return
	}

	batches, err := infrastructure.ParseWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	// Detached from the request so a client disconnect does not cut a batch short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), webhookProcessTimeout)
	defer cancel()

	for _, b := range batches {
		result, err := h.sync.HandleWebhook(ctx, b.AccountID, b.Messages)
		if err != nil {
			h.logger.Error("Webhook processing failed",
				zap.String("account_id", b.AccountID),
				zap.Int("messages", len(b.Messages)),
				zap.Error(err))
			continue
		}
		h.logger.Info("Webhook processed",
			zap.String("account_id", b.AccountID),
			zap.Int("synced", result.Synced),
			zap.Int("skipped", result.Skipped),
			zap.Int("auto_replied", result.AutoReplied),
			zap.Int("queued", result.Queued),
			zap.Bool("upgrade_required", result.UpgradeRequired))
	}

	c.String(http.StatusOK, "EVENT_RECEIVED")
}
