package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// approvalDefinition is a minimal three-stage workflow used across the
// engine tests: draft -> review -> approved.
func approvalDefinition() *Definition {
	return &Definition{
		ID:      "test-approval",
		Name:    "Test Approval",
		Version: "1.0.0",
		Config: Config{
			Stages: []Stage{
				{
					ID:    "draft",
					Name:  "Draft",
					Type:  StageSequential,
					Order: 1,
					Actions: []StageAction{
						{ID: "submit", Label: "Submit", Type: ActionCustom, TargetStage: "review"},
					},
					AllowedRoles: []string{"author"},
				},
				{
					ID:    "review",
					Name:  "Review",
					Type:  StageApproval,
					Order: 2,
					Actions: []StageAction{
						{ID: "approve", Label: "Approve", Type: ActionApprove, TargetStage: "approved"},
						{ID: "reject", Label: "Reject", Type: ActionReject, TargetStage: "draft", RequireComment: true},
					},
					AllowedRoles: []string{"reviewer"},
				},
				{
					ID:       "approved",
					Name:     "Approved",
					Type:     StageSequential,
					Order:    3,
					Terminal: true,
				},
			},
			Transitions: []TransitionRule{
				{ID: "t1", From: "draft", To: "review", Action: "submit"},
				{ID: "t2", From: "review", To: "approved", Action: "approve"},
				{ID: "t3", From: "review", To: "draft", Action: "reject"},
			},
			Notifications: []NotificationConfig{
				{
					ID:         "n1",
					Trigger:    NotifyStageEnter,
					Stage:      "review",
					Recipients: []string{"reviewer"},
					Template:   "Ready for review: {{document.title}}",
					Channel:    "in_app",
				},
			},
			Settings: Settings{TrackHistory: true},
		},
	}
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (c *captureNotifier) Notify(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureNotifier) all() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.sent...)
}

func newTestEngine(t *testing.T, def *Definition) (*Engine, *MemoryStateStore, *captureNotifier) {
	t.Helper()
	registry := NewRegistry(nil, nil)
	require.NoError(t, registry.Register(context.Background(), def))
	require.NoError(t, registry.ActivateForDocumentType(context.Background(), def.ID, "memo"))

	store := NewMemoryStateStore()
	notifier := &captureNotifier{}
	engine := NewEngine(registry, store, NewEventBus(), notifier, nil)
	return engine, store, notifier
}

func testDoc() Document {
	return Document{
		ID:       "doc-1",
		Type:     "memo",
		Title:    "Test Memo",
		Metadata: map[string]any{"created_by": "user-1"},
	}
}

func author() User {
	return User{ID: "user-1", Name: "Author", Roles: []string{"author"}}
}

func reviewer() User {
	return User{ID: "user-2", Name: "Reviewer", Roles: []string{"reviewer"}}
}

func TestInitializeWorkflowNoDefinition(t *testing.T) {
	engine, store, _ := newTestEngine(t, approvalDefinition())

	doc := Document{ID: "doc-x", Type: "unknown-type"}
	state, err := engine.InitializeWorkflow(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNoWorkflow)
	assert.Nil(t, state)

	stored, err := store.GetState(context.Background(), "doc-x")
	require.NoError(t, err)
	assert.Nil(t, stored, "no state record should be created")
}

func TestInitializeWorkflowCreatesInitialState(t *testing.T) {
	engine, _, _ := newTestEngine(t, approvalDefinition())

	state, err := engine.InitializeWorkflow(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, "test-approval", state.WorkflowID)
	assert.Equal(t, "draft", state.CurrentStage)
	assert.Equal(t, StatusActive, state.Status)
	assert.Equal(t, int64(1), state.Version)
	require.Len(t, state.History, 1)
	assert.Equal(t, "workflow_started", state.History[0].Action)
	assert.Equal(t, "user-1", state.History[0].UserID)

	_, err = engine.InitializeWorkflow(context.Background(), testDoc())
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestProcessDocumentFullApproval(t *testing.T) {
	engine, store, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	_, err := engine.InitializeWorkflow(ctx, doc)
	require.NoError(t, err)

	result := engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	require.True(t, result.Success, "submit should succeed: %v", result.Errors)
	assert.Equal(t, "draft", result.PreviousStage)
	assert.Equal(t, "review", result.CurrentStage)
	assert.False(t, result.Completed)

	result = engine.ProcessDocument(ctx, doc, "approve", &Context{Document: doc, User: reviewer(), Action: "approve"})
	require.True(t, result.Success)
	assert.Equal(t, "review", result.PreviousStage)
	assert.Equal(t, "approved", result.CurrentStage)
	assert.True(t, result.Completed)

	state, err := store.GetState(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, "review", state.PreviousStage)
	require.NotNil(t, state.CompletedAt)
	require.Len(t, state.History, 3)
	assert.Equal(t, "approve", state.History[2].Action)
	assert.Equal(t, "user-2", state.History[2].UserID)
}

func TestProcessDocumentLazyBootstrap(t *testing.T) {
	engine, store, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	result := engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	require.True(t, result.Success)

	state, err := store.GetState(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "review", state.CurrentStage)
	assert.Len(t, state.History, 2)
}

func TestRejectRequiresComment(t *testing.T) {
	engine, store, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})

	result := engine.ProcessDocument(ctx, doc, "reject", &Context{Document: doc, User: reviewer(), Action: "reject"})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrTransitionRejected)

	result = engine.ProcessDocument(ctx, doc, "reject", &Context{
		Document: doc, User: reviewer(), Action: "reject", Comment: "needs another pass",
	})
	require.True(t, result.Success)
	assert.Equal(t, "draft", result.CurrentStage)

	state, _ := store.GetState(ctx, doc.ID)
	assert.Equal(t, "review", state.PreviousStage)
}

func TestPermissionDeniedLeavesStateUnchanged(t *testing.T) {
	engine, store, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	before, _ := store.GetState(ctx, doc.ID)

	// Author has no approve permission in review.
	result := engine.ProcessDocument(ctx, doc, "approve", &Context{Document: doc, User: author(), Action: "approve"})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrPermissionDenied)

	after, _ := store.GetState(ctx, doc.ID)
	assert.Equal(t, before.CurrentStage, after.CurrentStage)
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, after.History, len(before.History))
}

func TestProcessDocumentNoTransition(t *testing.T) {
	engine, _, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	_, err := engine.InitializeWorkflow(ctx, doc)
	require.NoError(t, err)

	result := engine.ProcessDocument(ctx, doc, "approve", &Context{Document: doc, User: reviewer(), Action: "approve"})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrNoTransition)
}

func TestCompletedWorkflowRejectsActions(t *testing.T) {
	engine, _, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	engine.ProcessDocument(ctx, doc, "approve", &Context{Document: doc, User: reviewer(), Action: "approve"})

	result := engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrInvalidState)
}

func TestAvailableActions(t *testing.T) {
	engine, _, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	_, err := engine.InitializeWorkflow(ctx, doc)
	require.NoError(t, err)

	actions, err := engine.AvailableActions(ctx, doc, author())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "submit", actions[0].ID)

	// Listing actions must not mutate anything.
	again, err := engine.AvailableActions(ctx, doc, author())
	require.NoError(t, err)
	assert.Equal(t, actions, again)

	actions, err = engine.AvailableActions(ctx, doc, reviewer())
	require.NoError(t, err)
	assert.Empty(t, actions)

	engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	engine.ProcessDocument(ctx, doc, "approve", &Context{Document: doc, User: reviewer(), Action: "approve"})

	actions, err = engine.AvailableActions(ctx, doc, reviewer())
	require.NoError(t, err)
	assert.Empty(t, actions, "completed workflows expose no actions")
}

func TestSuspendResumeCancel(t *testing.T) {
	engine, store, _ := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()
	admin := User{ID: "admin-1", Roles: []string{"admin"}}

	_, err := engine.InitializeWorkflow(ctx, doc)
	require.NoError(t, err)

	require.NoError(t, engine.SuspendWorkflow(ctx, doc.ID, "on hold", admin))
	result := engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	assert.ErrorIs(t, result.Err, ErrInvalidState)

	require.NoError(t, engine.ResumeWorkflow(ctx, doc.ID, admin))
	state, _ := store.GetState(ctx, doc.ID)
	assert.Equal(t, StatusActive, state.Status)

	require.NoError(t, engine.CancelWorkflow(ctx, doc.ID, "obsolete", admin))
	state, _ = store.GetState(ctx, doc.ID)
	assert.Equal(t, StatusCancelled, state.Status)

	// Resume only applies to suspended workflows.
	assert.ErrorIs(t, engine.ResumeWorkflow(ctx, doc.ID, admin), ErrInvalidState)
}

func TestStageEnterNotificationDispatched(t *testing.T) {
	engine, _, notifier := newTestEngine(t, approvalDefinition())
	ctx := context.Background()
	doc := testDoc()

	engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})

	sent := notifier.all()
	require.NotEmpty(t, sent)
	found := false
	for _, n := range sent {
		if n.Channel == "in_app" && len(n.Recipients) == 1 && n.Recipients[0] == "reviewer" {
			found = true
			assert.Contains(t, n.Body, "Test Memo")
		}
	}
	assert.True(t, found, "reviewer notification should be dispatched on entering review")
}

func TestTransitionConditionRejected(t *testing.T) {
	def := approvalDefinition()
	def.Config.Transitions[0].Conditions = []Condition{
		{ID: "c1", Type: ConditionField, Field: "metadata.ready", Operator: OpEquals, Value: true, Message: "document not marked ready"},
	}
	engine, store, _ := newTestEngine(t, def)
	ctx := context.Background()
	doc := testDoc()

	result := engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrTransitionRejected)
	assert.Contains(t, result.Errors[0], "not marked ready")

	state, _ := store.GetState(ctx, doc.ID)
	assert.Equal(t, "draft", state.CurrentStage, "lazy-bootstrapped state stays in the initial stage")

	result = engine.ProcessDocument(ctx, doc, "submit", &Context{
		Document: doc, User: author(), Action: "submit",
		Metadata: map[string]any{"ready": true},
	})
	require.True(t, result.Success)
	assert.Equal(t, "review", result.CurrentStage)
}

func TestBusinessRuleSetsField(t *testing.T) {
	def := approvalDefinition()
	def.Config.BusinessRules = []BusinessRule{
		{
			ID:      "br1",
			Name:    "flag urgent memos",
			Trigger: TriggerPreTransition,
			Conditions: []Condition{
				{ID: "c1", Type: ConditionField, Field: "document.metadata.urgent", Operator: OpEquals, Value: true},
			},
			Actions: []RuleAction{
				{Type: RuleSetField, Config: map[string]any{"field": "state.data.priority", "value": "high"}},
			},
		},
	}
	engine, store, _ := newTestEngine(t, def)
	ctx := context.Background()
	doc := testDoc()
	doc.Metadata["urgent"] = true

	result := engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	require.True(t, result.Success)

	state, err := store.GetState(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "high", state.Data["priority"])
}

// conflictStore fails the first UpdateState with ErrConflict, as a
// concurrent writer on another process would.
type conflictStore struct {
	*MemoryStateStore
	failed bool
}

func (s *conflictStore) UpdateState(ctx context.Context, state *State) error {
	if !s.failed {
		s.failed = true
		return ErrConflict
	}
	return s.MemoryStateStore.UpdateState(ctx, state)
}

func TestProcessDocumentVersionConflict(t *testing.T) {
	def := approvalDefinition()
	registry := NewRegistry(nil, nil)
	require.NoError(t, registry.Register(context.Background(), def))
	require.NoError(t, registry.ActivateForDocumentType(context.Background(), def.ID, "memo"))

	store := &conflictStore{MemoryStateStore: NewMemoryStateStore()}
	engine := NewEngine(registry, store, NewEventBus(), nil, nil)
	ctx := context.Background()
	doc := testDoc()

	_, err := engine.InitializeWorkflow(ctx, doc)
	require.NoError(t, err)

	result := engine.ProcessDocument(ctx, doc, "submit", &Context{Document: doc, User: author(), Action: "submit"})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrConflict)

	state, _ := store.GetState(ctx, doc.ID)
	assert.Equal(t, "draft", state.CurrentStage, "failed write must not change the stored stage")
}
