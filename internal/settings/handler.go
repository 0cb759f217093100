package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docflow/review-portal/review-portal-backend/internal/workflow"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	settings := rg.Group("/settings")
	{
		settings.GET("/profile", h.GetProfile)
		settings.PUT("/profile", h.UpdateProfile)
		settings.GET("/notifications", h.GetPreferences)
		settings.PUT("/notifications", h.UpdatePreferences)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	user := workflow.CurrentUser(c)
	profile, err := h.service.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("loading profile failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := workflow.CurrentUser(c)
	profile, err := h.service.UpdateProfile(c.Request.Context(), user.ID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	user := workflow.CurrentUser(c)
	prefs, err := h.service.GetPreferences(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("loading preferences failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := workflow.CurrentUser(c)
	prefs, err := h.service.UpdatePreferences(c.Request.Context(), user.ID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
