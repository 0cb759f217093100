package workflow

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentResolver looks up the engine's view of a document by id. The
// documents service implements it; the workflow layer stays ignorant of how
// documents are stored.
type DocumentResolver interface {
	ResolveDocument(ctx context.Context, id string) (Document, error)
}

// Handler exposes the registry and engine over HTTP.
type Handler struct {
	registry  *Registry
	engine    *Engine
	store     StateStore
	documents DocumentResolver
	logger    *zap.Logger
}

func NewHandler(registry *Registry, engine *Engine, store StateStore, documents DocumentResolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry:  registry,
		engine:    engine,
		store:     store,
		documents: documents,
		logger:    logger,
	}
}

// RegisterRoutes mounts the workflow API under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	workflows := rg.Group("/workflows")
	{
		workflows.GET("", h.listWorkflows)
		workflows.POST("", h.registerWorkflow)
		workflows.POST("/import", h.importWorkflow)
		workflows.GET("/active", h.listActive)
		workflows.GET("/:id", h.getWorkflow)
		workflows.DELETE("/:id", h.unregisterWorkflow)
		workflows.GET("/:id/export", h.exportWorkflow)
		workflows.GET("/:id/statistics", h.workflowStatistics)
		workflows.POST("/:id/activate", h.activateWorkflow)
	}
	rg.DELETE("/activations/:documentType", h.deactivateWorkflow)

	docs := rg.Group("/documents/:id/workflow")
	{
		docs.POST("/initialize", h.initializeWorkflow)
		docs.GET("", h.getState)
		docs.GET("/history", h.getHistory)
		docs.GET("/actions", h.getAvailableActions)
		docs.POST("/action", h.processAction)
		docs.POST("/cancel", h.cancelWorkflow)
		docs.POST("/suspend", h.suspendWorkflow)
		docs.POST("/resume", h.resumeWorkflow)
	}
}

func (h *Handler) listWorkflows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"workflows": h.registry.ListAll()})
}

func (h *Handler) registerWorkflow(c *gin.Context) {
	var def Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.Register(c.Request.Context(), &def); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": def.ID})
}

func (h *Handler) importWorkflow(c *gin.Context) {
	var req struct {
		Metadata Metadata `json:"metadata"`
		Config   Config   `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.registry.Import(c.Request.Context(), req.Config, req.Metadata)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) listActive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activations": h.registry.ListActive()})
}

func (h *Handler) getWorkflow(c *gin.Context) {
	def := h.registry.Definition(c.Param("id"))
	if def == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
		return
	}
	c.JSON(http.StatusOK, def)
}

func (h *Handler) unregisterWorkflow(c *gin.Context) {
	if err := h.registry.Unregister(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow unregistered"})
}

func (h *Handler) exportWorkflow(c *gin.Context) {
	def := h.registry.Definition(c.Param("id"))
	if def == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
		return
	}
	cfg, err := h.registry.Export(def.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metadata": def.Meta(), "config": cfg})
}

func (h *Handler) workflowStatistics(c *gin.Context) {
	id := c.Param("id")
	if h.registry.Definition(id) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
		return
	}
	stats, err := h.store.Statistics(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) activateWorkflow(c *gin.Context) {
	var req struct {
		DocumentType string `json:"document_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.ActivateForDocumentType(c.Request.Context(), c.Param("id"), req.DocumentType); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow activated", "document_type": req.DocumentType})
}

func (h *Handler) deactivateWorkflow(c *gin.Context) {
	if err := h.registry.DeactivateForDocumentType(c.Request.Context(), c.Param("documentType")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow deactivated"})
}

func (h *Handler) initializeWorkflow(c *gin.Context) {
	doc, err := h.documents.ResolveDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	state, err := h.engine.InitializeWorkflow(c.Request.Context(), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (h *Handler) getState(c *gin.Context) {
	state, err := h.engine.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no workflow state for document"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) getHistory(c *gin.Context) {
	history, err := h.engine.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) getAvailableActions(c *gin.Context) {
	doc, err := h.documents.ResolveDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	actions, err := h.engine.AvailableActions(c.Request.Context(), doc, CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

func (h *Handler) processAction(c *gin.Context) {
	var req struct {
		Action   string         `json:"action" binding:"required"`
		Comment  string         `json:"comment"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.documents.ResolveDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	wctx := &Context{
		Document: doc,
		User:     CurrentUser(c),
		Action:   req.Action,
		Comment:  req.Comment,
		Metadata: req.Metadata,
	}
	result := h.engine.ProcessDocument(c.Request.Context(), doc, req.Action, wctx)
	if !result.Success {
		c.JSON(statusFor(result.Err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) cancelWorkflow(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := h.engine.CancelWorkflow(c.Request.Context(), c.Param("id"), req.Reason, CurrentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow cancelled"})
}

func (h *Handler) suspendWorkflow(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := h.engine.SuspendWorkflow(c.Request.Context(), c.Param("id"), req.Reason, CurrentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow suspended"})
}

func (h *Handler) resumeWorkflow(c *gin.Context) {
	if err := h.engine.ResumeWorkflow(c.Request.Context(), c.Param("id"), CurrentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow resumed"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("workflow request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoWorkflow):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNoTransition), errors.Is(err, ErrTransitionRejected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CurrentUser pulls the authenticated user the auth middleware stored on the
// request context. Anonymous requests get an empty user, which the engine's
// default-deny permissions reject.
func CurrentUser(c *gin.Context) User {
	if v, ok := c.Get("user"); ok {
		if u, ok := v.(User); ok {
			return u
		}
	}
	return User{}
}
