package http

import (
	"errors"
	"net/http"

	"viloai/internal/entities"

	"github.com/gin-gonic/gin"
)

// ========================================
// Inbox and sync
// ========================================

func (h *Handler) GetInbox(c *gin.Context) {
	items, err := h.dashboard.Inbox(c.Request.Context(), mustUserID(c), ParseLimit(c.Query("limit")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if items == nil {
		items = []entities.InboxItem{}
	}
	c.JSON(http.StatusOK, items)
}

// SyncChannel pulls DMs or comments from Instagram. Running out of quota is
// reported through upgrade_required, not as an error status.
func (h *Handler) SyncChannel(c *gin.Context) {
	channel := entities.Channel(c.Param("channel"))
	result, err := h.sync.Sync(c.Request.Context(), mustUserID(c), channel)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) PurgeMessages(c *gin.Context) {
	n, err := h.dashboard.PurgeMessages(c.Request.Context(), mustUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "deleted": n})
}

func (h *Handler) GetAnalysis(c *gin.Context) {
	id, ok := parseUUID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}
	result, err := h.pipeline.ClassifyMessage(c.Request.Context(), mustUserID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ReplyToMessage(c *gin.Context) {
	id, ok := parseUUID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	msg, err := h.dashboard.ManualReply(c.Request.Context(), mustUserID(c), id, SanitizeString(req.Text))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// ========================================
// Approval queue
// ========================================

func (h *Handler) ListQueue(c *gin.Context) {
	var status entities.QueueStatus
	switch s := c.DefaultQuery("status", string(entities.QueuePending)); s {
	case "all":
	case string(entities.QueuePending), string(entities.QueueApproved), string(entities.QueueRejected):
		status = entities.QueueStatus(s)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	entries, err := h.approvals.List(c.Request.Context(), mustUserID(c), status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if entries == nil {
		entries = []entities.ReplyQueueEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) ApproveEntry(c *gin.Context) {
	id, ok := parseUUID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid queue entry ID"})
		return
	}
	var req struct {
		ReplyText string `json:"reply_text"`
	}
	// An empty body approves the suggested reply as is.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	entry, err := h.approvals.Approve(c.Request.Context(), mustUserID(c), id, SanitizeString(req.ReplyText))
	if err != nil {
		if errors.Is(err, entities.ErrReplySendFailed) && entry != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "entry": entry})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) RejectEntry(c *gin.Context) {
	id, ok := parseUUID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid queue entry ID"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	entry, err := h.approvals.Reject(c.Request.Context(), mustUserID(c), id, SanitizeString(req.Reason))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ========================================
// Automation rules
// ========================================

type ruleRequest struct {
	TriggerText string               `json:"trigger_text"`
	ReplyText   string               `json:"reply_text"`
	MatchType   entities.MatchType   `json:"match_type"`
	TriggerType entities.TriggerType `json:"trigger_type"`
	IsActive    *bool                `json:"is_active"`
}

func (r ruleRequest) toRule() entities.AutomationRule {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return entities.AutomationRule{
		TriggerText: SanitizeString(r.TriggerText),
		ReplyText:   SanitizeString(r.ReplyText),
		MatchType:   r.MatchType,
		TriggerType: r.TriggerType,
		IsActive:    active,
	}
}

func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.dashboard.ListRules(c.Request.Context(), mustUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if rules == nil {
		rules = []entities.AutomationRule{}
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	rule, err := h.dashboard.CreateRule(c.Request.Context(), mustUserID(c), req.toRule())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	id, ok := parseUUID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	rule, err := h.dashboard.UpdateRule(c.Request.Context(), mustUserID(c), id, req.toRule())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	id, ok := parseUUID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}
	if err := h.dashboard.DeleteRule(c.Request.Context(), mustUserID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ========================================
// Business facts
// ========================================

func (h *Handler) ListFacts(c *gin.Context) {
	facts, err := h.dashboard.ListFacts(c.Request.Context(), mustUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if facts == nil {
		facts = []entities.BusinessRule{}
	}
	c.JSON(http.StatusOK, facts)
}

func (h *Handler) SaveFact(c *gin.Context) {
	var req struct {
		Category entities.FactCategory `json:"category"`
		Key      string                `json:"key"`
		Value    string                `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	fact, err := h.dashboard.SaveFact(c.Request.Context(), mustUserID(c), entities.BusinessRule{
		Category: req.Category,
		Key:      SanitizeString(req.Key),
		Value:    SanitizeString(req.Value),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, fact)
}

func (h *Handler) DeleteFact(c *gin.Context) {
	id, ok := parseUUID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business rule ID"})
		return
	}
	if err := h.dashboard.DeleteFact(c.Request.Context(), mustUserID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ========================================
// Settings, usage and logs
// ========================================

func (h *Handler) GetSettings(c *gin.Context) {
	user, err := h.dashboard.GetSettings(c.Request.Context(), mustUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settingsView(user))
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req entities.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	user, err := h.dashboard.UpdateSettings(c.Request.Context(), mustUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settingsView(user))
}

// settingsView never echoes the access token back.
func settingsView(u *entities.User) gin.H {
	return gin.H{
		"auto_reply_dms":       u.AutoReplyDMs,
		"auto_reply_comments":  u.AutoReplyComments,
		"instagram_account_id": u.InstagramAccountID,
		"instagram_connected":  u.InstagramAccountID != "" && u.InstagramToken != "",
		"telegram_chat_id":     u.TelegramChatID,
		"monthly_limit":        u.MonthlyLimit,
	}
}

func (h *Handler) GetUsage(c *gin.Context) {
	status, err := h.dashboard.Usage(c.Request.Context(), mustUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) GetReplyLogs(c *gin.Context) {
	logs, err := h.dashboard.ReplyLogs(c.Request.Context(), mustUserID(c), ParseLimit(c.Query("limit")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if logs == nil {
		logs = []entities.ReplyLogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}
