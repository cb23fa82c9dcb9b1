package http

import (
	"context"
	"errors"
	"net/http"

	"viloai/internal/entities"
	"viloai/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxRequestBytes = 1 << 20

type Handler struct {
	auth      *usecases.AuthUsecase
	pipeline  *usecases.ReplyPipeline
	sync      *usecases.SyncService
	approvals *usecases.ApprovalQueue
	dashboard *usecases.DashboardUsecase
	logger    *zap.Logger
}

func NewHandler(auth *usecases.AuthUsecase, pipeline *usecases.ReplyPipeline, sync *usecases.SyncService, approvals *usecases.ApprovalQueue, dashboard *usecases.DashboardUsecase, logger *zap.Logger) *Handler {
	return &Handler{
		auth:      auth,
		pipeline:  pipeline,
		sync:      sync,
		approvals: approvals,
		dashboard: dashboard,
		logger:    logger.With(zap.String("component", "http")),
	}
}

// SetupRoutes registers every route. metrics may be nil.
func SetupRoutes(r *gin.Engine, h *Handler, webhook *WebhookHandler, middleware *Middleware, metrics http.Handler) {
	adminHandler := NewAdminHandler(h.auth, h.logger)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(maxRequestBytes))
	r.Use(middleware.CORSMiddleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	// Public Instagram webhook
	if webhook != nil {
		r.GET("/webhook/instagram", webhook.Verify)
		r.POST("/webhook/instagram", webhook.Receive)
	}

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)
	}

	// Protected Dashboard Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser())
	{
		api.GET("/inbox", h.GetInbox)
		api.POST("/sync/:channel", h.SyncChannel)
		api.DELETE("/messages", h.PurgeMessages)
		api.GET("/messages/:id/analysis", h.GetAnalysis)
		api.POST("/messages/:id/reply", h.ReplyToMessage)

		api.GET("/queue", h.ListQueue)
		api.POST("/queue/:id/approve", h.ApproveEntry)
		api.POST("/queue/:id/reject", h.RejectEntry)

		api.GET("/rules", h.ListRules)
		api.POST("/rules", h.CreateRule)
		api.PUT("/rules/:id", h.UpdateRule)
		api.DELETE("/rules/:id", h.DeleteRule)

		api.GET("/business-rules", h.ListFacts)
		api.POST("/business-rules", h.SaveFact)
		api.DELETE("/business-rules/:id", h.DeleteFact)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)
		api.GET("/usage", h.GetUsage)
		api.GET("/reply-logs", h.GetReplyLogs)
	}

	// Admin-only Routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
		admin.PUT("/users/:id/limits", adminHandler.UpdateUserLimits)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidUsername(req.Username) || !ValidPassword(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 8 chars)"})
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered", "id": user.ID})
}

// respondError maps domain errors to HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var invalidRule *usecases.RuleValidationError
	switch {
	case errors.As(err, &invalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule", "problems": invalidRule.Problems})
	case errors.Is(err, usecases.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, entities.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, entities.ErrDuplicate),
		errors.Is(err, entities.ErrQueueEntryClosed),
		errors.Is(err, entities.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrUsageLimitReached):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "upgrade_required": true})
	case errors.Is(err, entities.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrReplySendFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream timeout"})
	default:
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// mustUserID reads the authenticated business id; AuthRequired guarantees it.
func mustUserID(c *gin.Context) int {
	id, _ := currentUserID(c)
	return id
}
