package documents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docflow/review-portal/review-portal-backend/internal/workflow"
	"docflow/review-portal/review-portal-backend/internal/workflow/definitions"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateDocument(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) ListDocuments(ctx context.Context, docType *DocumentType, status *DocumentStatus) ([]Document, error) {
	args := m.Called(ctx, docType, status)
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockRepository) UpdateDocument(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CreateVersion(ctx context.Context, version *DocumentVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockRepository) ListVersions(ctx context.Context, documentID uuid.UUID) ([]DocumentVersion, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).([]DocumentVersion), args.Error(1)
}

func (m *MockRepository) GetVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*DocumentVersion, error) {
	args := m.Called(ctx, documentID, versionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentVersion), args.Error(1)
}

func (m *MockRepository) LogAccess(ctx context.Context, log *DocumentAccessLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// newWorkflowFixture builds a real engine over an in-memory state store with
// the simple approval workflow activated for memos.
func newWorkflowFixture(t *testing.T) (*workflow.Engine, workflow.StateStore) {
	t.Helper()
	ctx := context.Background()

	registry := workflow.NewRegistry(nil, nil)
	require.NoError(t, registry.Register(ctx, definitions.SimpleApproval()))
	require.NoError(t, registry.ActivateForDocumentType(ctx, "simple-approval", string(TypeMemo)))

	store := workflow.NewMemoryStateStore()
	engine := workflow.NewEngine(registry, store, workflow.NewEventBus(), nil, nil)
	return engine, store
}

func TestCreateDocumentStartsWorkflow(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	ctx := context.Background()
	mockRepo.On("CreateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)
	mockRepo.On("UpdateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)

	doc, err := service.CreateDocument(ctx, CreateRequest{
		Title:        "Travel Policy Memo",
		DocumentType: TypeMemo,
		Content:      "All travel requests require approval.",
		CreatedBy:    uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusInReview, doc.Status)
	assert.Equal(t, 1, doc.CurrentVersion)

	state, err := store.GetState(ctx, doc.ID.String())
	assert.NoError(t, err)
	assert.NotNil(t, state)
	assert.Equal(t, "draft", state.CurrentStage)

	mockRepo.AssertExpectations(t)
}

func TestCreateDocumentWithoutActiveWorkflow(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	ctx := context.Background()
	mockRepo.On("CreateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)

	// No workflow is activated for manuals, so the document stays a draft.
	doc, err := service.CreateDocument(ctx, CreateRequest{
		Title:        "Maintenance Manual",
		DocumentType: TypeManual,
		CreatedBy:    uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusDraft, doc.Status)

	state, err := store.GetState(ctx, doc.ID.String())
	assert.NoError(t, err)
	assert.Nil(t, state)

	mockRepo.AssertExpectations(t)
}

func TestUpdateDocumentSnapshotsVersion(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	ctx := context.Background()
	docID := uuid.New()
	existing := &Document{
		ID:             docID,
		Title:          "Travel Policy Memo",
		DocumentType:   TypeMemo,
		Content:        "Original content.",
		CurrentVersion: 1,
		Status:         StatusInReview,
	}

	mockRepo.On("GetDocumentByID", ctx, docID).Return(existing, nil)
	mockRepo.On("CreateVersion", ctx, mock.MatchedBy(func(v *DocumentVersion) bool {
		return v.VersionNumber == 1 && v.Content == "Original content."
	})).Return(nil)
	mockRepo.On("UpdateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)

	doc, err := service.UpdateDocument(ctx, docID, UpdateRequest{
		Content:       "Revised content.",
		ChangeSummary: "Tightened approval thresholds",
		UpdatedBy:     uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, doc.CurrentVersion)
	assert.Equal(t, "Revised content.", doc.Content)
	assert.Equal(t, "Travel Policy Memo", doc.Title)

	mockRepo.AssertExpectations(t)
}

func TestUpdateDocumentNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	ctx := context.Background()
	docID := uuid.New()
	mockRepo.On("GetDocumentByID", ctx, docID).Return(nil, nil)

	doc, err := service.UpdateDocument(ctx, docID, UpdateRequest{Content: "irrelevant"})

	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Nil(t, doc)
	mockRepo.AssertExpectations(t)
}

func TestDeleteDocumentRemovesWorkflowState(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	ctx := context.Background()
	mockRepo.On("CreateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)
	mockRepo.On("UpdateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)

	doc, err := service.CreateDocument(ctx, CreateRequest{
		Title:        "Travel Policy Memo",
		DocumentType: TypeMemo,
		CreatedBy:    uuid.New(),
	})
	require.NoError(t, err)

	mockRepo.On("GetDocumentByID", ctx, doc.ID).Return(doc, nil)
	mockRepo.On("DeleteDocument", ctx, doc.ID).Return(nil)

	assert.NoError(t, service.DeleteDocument(ctx, doc.ID))

	state, err := store.GetState(ctx, doc.ID.String())
	assert.NoError(t, err)
	assert.Nil(t, state)

	mockRepo.AssertExpectations(t)
}

func TestResolveDocumentProjectsMetadata(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	ctx := context.Background()
	docID := uuid.New()
	createdBy := uuid.New()
	stored := &Document{
		ID:           docID,
		Title:        "AFI 11-202",
		DocumentType: TypeInstruction,
		Category:     "flight_operations",
		Content:      "General flight rules.",
		Status:       StatusInReview,
		CreatedBy:    createdBy,
		Metadata:     []byte(`{"legal_approval": true}`),
	}
	mockRepo.On("GetDocumentByID", ctx, docID).Return(stored, nil)

	view, err := service.ResolveDocument(ctx, docID.String())

	assert.NoError(t, err)
	assert.Equal(t, docID.String(), view.ID)
	assert.Equal(t, "instruction", view.Type)
	assert.Equal(t, "AFI 11-202", view.Title)
	assert.Equal(t, createdBy.String(), view.Metadata["created_by"])
	assert.Equal(t, "flight_operations", view.Metadata["category"])
	assert.Equal(t, "General flight rules.", view.Metadata["content"])
	assert.Equal(t, true, view.Metadata["legal_approval"])

	mockRepo.AssertExpectations(t)
}

func TestResolveDocumentRejectsBadID(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	_, err := service.ResolveDocument(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestResolveDocumentMissing(t *testing.T) {
	mockRepo := new(MockRepository)
	engine, store := newWorkflowFixture(t)
	service := NewService(mockRepo, engine, store, nil)

	ctx := context.Background()
	docID := uuid.New()
	mockRepo.On("GetDocumentByID", ctx, docID).Return(nil, nil)

	_, err := service.ResolveDocument(ctx, docID.String())
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	mockRepo.AssertExpectations(t)
}
