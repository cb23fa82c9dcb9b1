package http

import (
	"net/http"
	"strconv"

	"viloai/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	auth   *usecases.AuthUsecase
	logger *zap.Logger
}

func NewAdminHandler(auth *usecases.AuthUsecase, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		auth:   auth,
		logger: logger,
	}
}

// GetAllUsers returns list of all business accounts
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result := make([]gin.H, len(users))
	for i, u := range users {
		result[i] = gin.H{
			"id":                   u.ID,
			"username":             u.Username,
			"role":                 u.Role,
			"is_active":            u.IsActive,
			"monthly_limit":        u.MonthlyLimit,
			"instagram_account_id": u.InstagramAccountID,
			"created_at":           u.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, result)
}

// UpdateUserStatus enables/disables a user account
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var payload struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Don't allow disabling self
	if mustUserID(c) == userID && !payload.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot disable your own account"})
		return
	}

	if err := h.auth.SetActive(c.Request.Context(), userID, payload.IsActive); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "is_active": payload.IsActive})
}

// UpdateUserLimits sets the monthly AI analysis limit (0 = unlimited)
func (h *AdminHandler) UpdateUserLimits(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var payload struct {
		MonthlyLimit *int `json:"monthly_limit"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.MonthlyLimit == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.auth.SetMonthlyLimit(c.Request.Context(), userID, *payload.MonthlyLimit); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "updated",
		"monthly_limit": *payload.MonthlyLimit,
	})
}
