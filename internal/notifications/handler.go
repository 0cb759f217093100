package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"docflow/review-portal/review-portal-backend/internal/notifications/websocket"
	"docflow/review-portal/review-portal-backend/internal/workflow"
)

type Handler struct {
	service *Service
	hub     *websocket.Hub
	logger  *zap.Logger
}

func NewHandler(service *Service, hub *websocket.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, hub: hub, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	{
		n.GET("", h.list)
		n.GET("/unread-count", h.unreadCount)
		n.POST("/:id/read", h.markRead)
		n.GET("/:id/delivery", h.deliveryStatus)
		n.GET("/ws", h.connect)
	}
}

func (h *Handler) list(c *gin.Context) {
	user := workflow.CurrentUser(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, err := h.service.ListForUser(c.Request.Context(), user.ID, user.Roles, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows, "count": len(rows)})
}

func (h *Handler) unreadCount(c *gin.Context) {
	user := workflow.CurrentUser(c)
	count, err := h.service.UnreadCount(c.Request.Context(), user.ID, user.Roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *Handler) markRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

func (h *Handler) deliveryStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	logs, err := h.service.DeliveryStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery": logs})
}

// connect upgrades the request to a websocket and registers it under
// the authenticated user.
func (h *Handler) connect(c *gin.Context) {
	user := workflow.CurrentUser(c)
	if user.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if _, err := h.hub.Connect(c.Writer, c.Request, user.ID, user.Roles); err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
}
