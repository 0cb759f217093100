package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docflow/review-portal/review-portal-backend/internal/workflow"
)

var ErrDocumentNotFound = errors.New("document not found")

type Service interface {
	CreateDocument(ctx context.Context, req CreateRequest) (*Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, docType *DocumentType, status *DocumentStatus) ([]Document, error)
	UpdateDocument(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	ListVersions(ctx context.Context, id uuid.UUID) ([]DocumentVersion, error)
	GetVersion(ctx context.Context, id uuid.UUID, version int) (*DocumentVersion, error)

	// ResolveDocument adapts a stored document into the engine's view of it.
	ResolveDocument(ctx context.Context, id string) (workflow.Document, error)

	LogAccess(ctx context.Context, log *DocumentAccessLog)
}

type CreateRequest struct {
	Title        string
	Description  string
	DocumentType DocumentType
	Category     string
	Content      string
	CreatedBy    uuid.UUID
	Metadata     map[string]any
}

type UpdateRequest struct {
	Title         string
	Description   string
	Content       string
	ChangeSummary string
	UpdatedBy     uuid.UUID
}

type documentService struct {
	repo   Repository
	engine *workflow.Engine
	states workflow.StateStore
	logger *zap.Logger
}

func NewService(repo Repository, engine *workflow.Engine, states workflow.StateStore, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentService{
		repo:   repo,
		engine: engine,
		states: states,
		logger: logger,
	}
}

// CreateDocument stores the document and bootstraps its workflow. A document
// type with no active workflow is still accepted; review simply never starts.
func (s *documentService) CreateDocument(ctx context.Context, req CreateRequest) (*Document, error) {
	now := time.Now()
	meta, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	doc := &Document{
		ID:             uuid.New(),
		Title:          req.Title,
		Description:    req.Description,
		DocumentType:   req.DocumentType,
		Category:       req.Category,
		Content:        req.Content,
		CurrentVersion: 1,
		Status:         StatusDraft,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		Metadata:       meta,
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	if _, err := s.engine.InitializeWorkflow(ctx, s.engineView(doc)); err != nil {
		if errors.Is(err, workflow.ErrNoWorkflow) {
			s.logger.Info("no workflow active for document type",
				zap.String("document_id", doc.ID.String()),
				zap.String("document_type", string(doc.DocumentType)))
		} else {
			return nil, fmt.Errorf("initializing workflow: %w", err)
		}
	} else {
		doc.Status = StatusInReview
		if err := s.repo.UpdateDocument(ctx, doc); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocumentByID(ctx, id)
}

func (s *documentService) ListDocuments(ctx context.Context, docType *DocumentType, status *DocumentStatus) ([]Document, error) {
	return s.repo.ListDocuments(ctx, docType, status)
}

// UpdateDocument snapshots the current content as a version before applying
// the edit.
func (s *documentService) UpdateDocument(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	version := &DocumentVersion{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		VersionNumber: doc.CurrentVersion,
		Content:       doc.Content,
		ChangeSummary: req.ChangeSummary,
		CreatedBy:     req.UpdatedBy,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	if req.Title != "" {
		doc.Title = req.Title
	}
	if req.Description != "" {
		doc.Description = req.Description
	}
	if req.Content != "" {
		doc.Content = req.Content
	}
	doc.CurrentVersion++
	doc.UpdatedAt = time.Now()

	if err := s.repo.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes the document and any workflow state attached to it.
func (s *documentService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.states.DeleteState(ctx, id.String()); err != nil && !errors.Is(err, workflow.ErrNotFound) {
		s.logger.Warn("deleting workflow state failed", zap.String("document_id", id.String()), zap.Error(err))
	}
	return nil
}

func (s *documentService) ListVersions(ctx context.Context, id uuid.UUID) ([]DocumentVersion, error) {
	return s.repo.ListVersions(ctx, id)
}

func (s *documentService) GetVersion(ctx context.Context, id uuid.UUID, version int) (*DocumentVersion, error) {
	return s.repo.GetVersion(ctx, id, version)
}

func (s *documentService) ResolveDocument(ctx context.Context, id string) (workflow.Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return workflow.Document{}, fmt.Errorf("%w: invalid document id", workflow.ErrValidation)
	}
	doc, err := s.repo.GetDocumentByID(ctx, docID)
	if err != nil {
		return workflow.Document{}, err
	}
	if doc == nil {
		return workflow.Document{}, fmt.Errorf("%w: document %s", workflow.ErrNotFound, id)
	}
	return s.engineView(doc), nil
}

// LogAccess records an audit entry; failures are logged, never surfaced.
func (s *documentService) LogAccess(ctx context.Context, log *DocumentAccessLog) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if err := s.repo.LogAccess(ctx, log); err != nil {
		s.logger.Warn("access log write failed", zap.String("document_id", log.DocumentID.String()), zap.Error(err))
	}
}

// engineView projects a stored document into the shape the workflow engine
// consumes. Category, content presence, and creator feed rule conditions.
func (s *documentService) engineView(doc *Document) workflow.Document {
	meta := map[string]any{
		"created_by": doc.CreatedBy.String(),
		"category":   doc.Category,
		"status":     string(doc.Status),
	}
	if doc.Content != "" {
		meta["content"] = doc.Content
	}
	if len(doc.Metadata) > 0 {
		var extra map[string]any
		if err := json.Unmarshal(doc.Metadata, &extra); err == nil {
			for k, v := range extra {
				meta[k] = v
			}
		}
	}
	return workflow.Document{
		ID:       doc.ID.String(),
		Type:     string(doc.DocumentType),
		Title:    doc.Title,
		Metadata: meta,
	}
}
