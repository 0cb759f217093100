package definitions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/review-portal/review-portal-backend/internal/workflow"
)

func TestAllDefinitionsRegister(t *testing.T) {
	registry := workflow.NewRegistry(nil, nil)
	ctx := context.Background()

	defs := All()
	require.Len(t, defs, 4)
	for _, def := range defs {
		assert.NoError(t, registry.Register(ctx, def), "definition %s should validate", def.ID)
	}

	assert.NotNil(t, registry.Definition("af-8-stage-review"))
	assert.NotNil(t, registry.Definition("af-12-stage-review"))
	assert.NotNil(t, registry.Definition("corporate-review"))
	assert.NotNil(t, registry.Definition("simple-approval"))
}

func TestAirForce8StageShape(t *testing.T) {
	def := AirForce8Stage()

	assert.Len(t, def.Config.Stages, 9)
	first := def.InitialStage()
	assert.Equal(t, "opr_draft", first.ID)

	published, ok := def.Stage("published")
	require.True(t, ok)
	assert.True(t, published.Terminal)

	// Legal approval gates the move out of legal review.
	tr, ok := def.Transition("legal_review", "approve_legal")
	require.True(t, ok)
	require.NotEmpty(t, tr.Conditions)
	assert.Equal(t, "metadata.legal_approval", tr.Conditions[0].Field)

	// Rejection from legal goes all the way back to the author.
	tr, ok = def.Transition("legal_review", "reject_legal")
	require.True(t, ok)
	assert.Equal(t, "opr_draft", tr.To)
}

func TestAirForce8StagePermissions(t *testing.T) {
	def := AirForce8Stage()

	perms := def.Config.Permissions["legal_review"]
	require.NotNil(t, perms)
	assert.Contains(t, perms["approve_legal"], "jag_attorney")
	assert.NotContains(t, perms["approve_legal"], "author")
	assert.Contains(t, perms["view"], workflow.RolePublic)
}

func TestAirForce12StageShape(t *testing.T) {
	def := AirForce12Stage()

	assert.Len(t, def.Config.Stages, 13)
	assert.Equal(t, "2.0.0", def.Version)

	// The half stages sit between their neighbors.
	_, ok := def.Stage("3.5")
	assert.True(t, ok)
	_, ok = def.Stage("5.5")
	assert.True(t, ok)

	final, ok := def.Stage("11")
	require.True(t, ok)
	assert.True(t, final.Terminal)
}

func TestCorporateReviewComplianceGate(t *testing.T) {
	def := CorporateReview()

	tr, ok := def.Transition("legal_compliance", "approve")
	require.True(t, ok)
	require.NotEmpty(t, tr.Conditions)
	assert.Equal(t, "metadata.compliance_checks.passed", tr.Conditions[0].Field)

	archived, ok := def.Stage("archived")
	require.True(t, ok)
	assert.True(t, archived.Terminal)
}

func TestSimpleApprovalDrivesEndToEnd(t *testing.T) {
	registry := workflow.NewRegistry(nil, nil)
	ctx := context.Background()
	require.NoError(t, registry.Register(ctx, SimpleApproval()))
	require.NoError(t, registry.ActivateForDocumentType(ctx, "simple-approval", "memo"))

	store := workflow.NewMemoryStateStore()
	engine := workflow.NewEngine(registry, store, workflow.NewEventBus(), nil, nil)

	doc := workflow.Document{ID: "memo-1", Type: "memo", Title: "Lunch Policy"}
	author := workflow.User{ID: "u1", Roles: []string{"author"}}
	reviewer := workflow.User{ID: "u2", Roles: []string{"reviewer"}}

	result := engine.ProcessDocument(ctx, doc, "submit", &workflow.Context{Document: doc, User: author, Action: "submit"})
	require.True(t, result.Success)
	assert.Equal(t, "review", result.CurrentStage)

	// Returning to the author needs an explanation.
	result = engine.ProcessDocument(ctx, doc, "reject", &workflow.Context{Document: doc, User: reviewer, Action: "reject"})
	assert.False(t, result.Success)

	result = engine.ProcessDocument(ctx, doc, "reject", &workflow.Context{Document: doc, User: reviewer, Action: "reject", Comment: "too short"})
	require.True(t, result.Success)
	assert.Equal(t, "draft", result.CurrentStage)

	result = engine.ProcessDocument(ctx, doc, "submit", &workflow.Context{Document: doc, User: author, Action: "submit"})
	require.True(t, result.Success)
	result = engine.ProcessDocument(ctx, doc, "approve", &workflow.Context{Document: doc, User: reviewer, Action: "approve"})
	require.True(t, result.Success)
	assert.True(t, result.Completed)

	state, err := store.GetState(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, state.Status)
	// started + submit + reject + submit + approve
	assert.Len(t, state.History, 5)
}

func TestAirForce8StageFullCoordination(t *testing.T) {
	registry := workflow.NewRegistry(nil, nil)
	ctx := context.Background()
	require.NoError(t, registry.Register(ctx, AirForce8Stage()))
	require.NoError(t, registry.ActivateForDocumentType(ctx, "af-8-stage-review", "policy"))

	store := workflow.NewMemoryStateStore()
	engine := workflow.NewEngine(registry, store, workflow.NewEventBus(), nil, nil)

	doc := workflow.Document{
		ID:    "pol-1",
		Type:  "policy",
		Title: "Flight Ops Policy",
		Metadata: map[string]any{
			"created_by": "opr-1",
			"content":    "Chapter 1. General flight operations guidance.",
		},
	}
	opr := workflow.User{ID: "opr-1", Roles: []string{"opr_staff"}}
	coordinator := workflow.User{ID: "c-1", Roles: []string{"internal_coordinator"}}
	legal := workflow.User{ID: "l-1", Roles: []string{"jag_attorney"}}

	result := engine.ProcessDocument(ctx, doc, "submit_for_review", &workflow.Context{Document: doc, User: opr, Action: "submit_for_review"})
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "internal_coordination", result.CurrentStage)

	result = engine.ProcessDocument(ctx, doc, "approve", &workflow.Context{Document: doc, User: coordinator, Action: "approve"})
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "legal_review", result.CurrentStage)

	// Legal approval flag is required to leave legal review.
	result = engine.ProcessDocument(ctx, doc, "approve_legal", &workflow.Context{Document: doc, User: legal, Action: "approve_legal"})
	assert.False(t, result.Success)

	result = engine.ProcessDocument(ctx, doc, "approve_legal", &workflow.Context{
		Document: doc, User: legal, Action: "approve_legal",
		Metadata: map[string]any{"legal_approval": true},
	})
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "o6_coordination", result.CurrentStage)
}
