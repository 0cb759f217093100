package reports

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// Handler serves report downloads.
type Handler struct {
	service   *Service
	documents workflow.DocumentResolver
	logger    *zap.Logger
}

func NewHandler(service *Service, documents workflow.DocumentResolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, documents: documents, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/documents/:id/history.pdf", h.documentHistoryPDF)
		reports.GET("/workflows/:id/statistics.xlsx", h.workflowStatisticsExcel)
	}
}

func (h *Handler) documentHistoryPDF(c *gin.Context) {
	id := c.Param("id")

	title := ""
	if doc, err := h.documents.ResolveDocument(c.Request.Context(), id); err == nil {
		title = doc.Title
	}

	data, err := h.service.HistoryPDF(c.Request.Context(), id, title)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("history pdf generation failed", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=history-%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) workflowStatisticsExcel(c *gin.Context) {
	id := c.Param("id")

	data, err := h.service.StatisticsWorkbook(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("statistics workbook generation failed", zap.String("workflow_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-statistics.xlsx", id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
