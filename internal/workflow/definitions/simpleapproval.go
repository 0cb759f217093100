package definitions

import (
	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// SimpleApproval is the smallest useful workflow: draft, one review stage,
// done. Handy for memos and other documents that need a single sign-off.
func SimpleApproval() *workflow.Definition {
	return &workflow.Definition{
		ID:           "simple-approval",
		Name:         "Simple Approval",
		Version:      "1.0.0",
		Description:  "Single-reviewer approval workflow for lightweight documents",
		Organization: "Generic",
		Config: workflow.Config{
			Stages: []workflow.Stage{
				{
					ID:          "draft",
					Name:        "Draft",
					Type:        workflow.StageSequential,
					Order:       1,
					Description: "Author prepares the document",
					Required:    true,
					TimeLimit:   72,
					Actions: []workflow.StageAction{
						{ID: "submit", Label: "Submit for Review", Type: workflow.ActionCustom, TargetStage: "review"},
					},
					AllowedRoles: []string{"author"},
				},
				{
					ID:                "review",
					Name:              "Review",
					Type:              workflow.StageApproval,
					Order:             2,
					Description:       "Reviewer approves or returns the document",
					Required:          true,
					TimeLimit:         48,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "approve", Label: "Approve", Type: workflow.ActionApprove, TargetStage: "approved"},
						{ID: "reject", Label: "Return to Author", Type: workflow.ActionReject, TargetStage: "draft", RequireComment: true},
					},
					AllowedRoles: []string{"reviewer"},
				},
				{
					ID:          "approved",
					Name:        "Approved",
					Type:        workflow.StageSequential,
					Order:       3,
					Description: "Document approved",
					Required:    true,
					Terminal:    true,
					Actions:     []workflow.StageAction{},
				},
			},
			Transitions: []workflow.TransitionRule{
				{ID: "t1", From: "draft", To: "review", Action: "submit"},
				{ID: "t2", From: "review", To: "approved", Action: "approve"},
				{ID: "t3", From: "review", To: "draft", Action: "reject"},
			},
			Permissions: workflow.PermissionMatrix{
				"draft": {
					"view":   {workflow.RolePublic},
					"edit":   {"author"},
					"submit": {"author"},
				},
				"review": {
					"view":    {workflow.RolePublic},
					"approve": {"reviewer"},
					"reject":  {"reviewer"},
				},
				"approved": {
					"view": {workflow.RolePublic},
				},
			},
			Notifications: []workflow.NotificationConfig{
				{
					ID:         "n1",
					Trigger:    workflow.NotifyStageEnter,
					Stage:      "review",
					Recipients: []string{"reviewer"},
					Template:   "Document ready for review: {{document.title}}",
					Channel:    "in_app",
				},
			},
			Settings: workflow.Settings{
				TrackHistory: true,
			},
		},
	}
}

// All returns every built-in definition in registration order.
func All() []*workflow.Definition {
	return []*workflow.Definition{
		AirForce8Stage(),
		AirForce12Stage(),
		CorporateReview(),
		SimpleApproval(),
	}
}
