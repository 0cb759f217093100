package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docflow/review-portal/review-portal-backend/internal/workflow"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	{
		docs.POST("", h.Create)
		docs.GET("", h.List)
		docs.GET("/:id", h.Get)
		docs.PUT("/:id", h.Update)
		docs.DELETE("/:id", h.Delete)
		docs.GET("/:id/versions", h.ListVersions)
		docs.GET("/:id/versions/:version", h.GetVersion)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req struct {
		Title        string         `json:"title" binding:"required"`
		Description  string         `json:"description"`
		DocumentType DocumentType   `json:"document_type" binding:"required"`
		Category     string         `json:"category"`
		Content      string         `json:"content"`
		Metadata     map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := workflow.CurrentUser(c)
	createdBy, _ := uuid.Parse(user.ID)

	doc, err := h.service.CreateDocument(c.Request.Context(), CreateRequest{
		Title:        req.Title,
		Description:  req.Description,
		DocumentType: req.DocumentType,
		Category:     req.Category,
		Content:      req.Content,
		CreatedBy:    createdBy,
		Metadata:     req.Metadata,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, doc.ID, createdBy, "CREATE")
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	var docType *DocumentType
	if v := c.Query("document_type"); v != "" {
		dt := DocumentType(v)
		docType = &dt
	}
	var status *DocumentStatus
	if v := c.Query("status"); v != "" {
		st := DocumentStatus(v)
		status = &st
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), docType, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	doc, err := h.service.GetDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	userID, _ := uuid.Parse(workflow.CurrentUser(c).ID)
	h.audit(c, doc.ID, userID, "VIEW")
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		Content       string `json:"content"`
		ChangeSummary string `json:"change_summary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := uuid.Parse(workflow.CurrentUser(c).ID)
	doc, err := h.service.UpdateDocument(c.Request.Context(), id, UpdateRequest{
		Title:         req.Title,
		Description:   req.Description,
		Content:       req.Content,
		ChangeSummary: req.ChangeSummary,
		UpdatedBy:     userID,
	})
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, doc.ID, userID, "UPDATE")
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	userID, _ := uuid.Parse(workflow.CurrentUser(c).ID)
	h.audit(c, id, userID, "DELETE")
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListVersions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	versions, err := h.service.ListVersions(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *Handler) GetVersion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	versionNum, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}

	version, err := h.service.GetVersion(c.Request.Context(), id, versionNum)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if version == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
		return
	}
	c.JSON(http.StatusOK, version)
}

func (h *Handler) audit(c *gin.Context, docID, userID uuid.UUID, action string) {
	h.service.LogAccess(c.Request.Context(), &DocumentAccessLog{
		DocumentID: docID,
		UserID:     userID,
		Action:     action,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
}
