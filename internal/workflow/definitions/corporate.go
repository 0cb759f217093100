package definitions

import (
	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// CorporateReview is a multi-department corporate review: department heads,
// legal and compliance, then C-suite sign-off before publication.
func CorporateReview() *workflow.Definition {
	return &workflow.Definition{
		ID:           "corporate-review",
		Name:         "Corporate Document Review",
		Version:      "1.0.0",
		Description:  "Multi-department corporate document review workflow",
		Organization: "Corporate",
		Config: workflow.Config{
			Stages: []workflow.Stage{
				{
					ID:          "draft",
					Name:        "Draft Creation",
					Type:        workflow.StageSequential,
					Order:       1,
					Description: "Initial document creation",
					Required:    true,
					TimeLimit:   120,
					Actions: []workflow.StageAction{
						{ID: "submit", Label: "Submit for Department Review", Type: workflow.ActionCustom, TargetStage: "dept_review"},
					},
					AllowedRoles: []string{"author", "contributor"},
				},
				{
					ID:                "dept_review",
					Name:              "Department Review",
					Type:              workflow.StageParallel,
					Order:             2,
					Description:       "Department heads review",
					Required:          true,
					TimeLimit:         72,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "approve", Label: "Approve", Type: workflow.ActionApprove, TargetStage: "legal_compliance"},
						{ID: "request_changes", Label: "Request Changes", Type: workflow.ActionCustom, TargetStage: "draft", RequireComment: true},
					},
					AllowedRoles: []string{"department_head", "team_lead"},
				},
				{
					ID:          "legal_compliance",
					Name:        "Legal & Compliance",
					Type:        workflow.StageApproval,
					Order:       3,
					Description: "Legal and compliance review",
					Required:    true,
					TimeLimit:   48,
					Actions: []workflow.StageAction{
						{ID: "approve", Label: "Compliant", Type: workflow.ActionApprove, TargetStage: "executive_review"},
						{ID: "reject", Label: "Non-Compliant", Type: workflow.ActionReject, TargetStage: "draft", RequireComment: true, RequireAttachment: true},
					},
					AllowedRoles: []string{"legal_counsel", "compliance_officer"},
				},
				{
					ID:          "executive_review",
					Name:        "Executive Review",
					Type:        workflow.StageApproval,
					Order:       4,
					Description: "C-suite executive approval",
					Required:    true,
					TimeLimit:   24,
					Actions: []workflow.StageAction{
						{ID: "approve", Label: "Approve for Publication", Type: workflow.ActionApprove, TargetStage: "published"},
						{ID: "reject", Label: "Reject", Type: workflow.ActionReject, TargetStage: "dept_review", RequireComment: true},
						{ID: "delegate", Label: "Delegate Review", Type: workflow.ActionDelegate, RequireComment: true},
					},
					AllowedRoles: []string{"ceo", "cfo", "coo", "executive"},
				},
				{
					ID:          "published",
					Name:        "Published",
					Type:        workflow.StageSequential,
					Order:       5,
					Description: "Document published to organization",
					Required:    true,
					Actions: []workflow.StageAction{
						{ID: "archive", Label: "Archive Document", Type: workflow.ActionCustom, TargetStage: "archived"},
					},
					AllowedRoles: []string{"admin", "publisher"},
				},
				{
					ID:          "archived",
					Name:        "Archived",
					Type:        workflow.StageSequential,
					Order:       6,
					Description: "Document archived",
					Terminal:    true,
					Actions:     []workflow.StageAction{},
				},
			},
			Transitions: []workflow.TransitionRule{
				{ID: "t1", From: "draft", To: "dept_review", Action: "submit"},
				{ID: "t2", From: "dept_review", To: "legal_compliance", Action: "approve"},
				{ID: "t3", From: "dept_review", To: "draft", Action: "request_changes"},
				{
					ID: "t4", From: "legal_compliance", To: "executive_review", Action: "approve",
					Conditions: []workflow.Condition{
						{
							ID:       "compliance_passed",
							Type:     workflow.ConditionField,
							Field:    "metadata.compliance_checks.passed",
							Operator: workflow.OpEquals,
							Value:    true,
							Message:  "Compliance checks must pass before executive review",
						},
					},
				},
				{ID: "t5", From: "legal_compliance", To: "draft", Action: "reject"},
				{ID: "t6", From: "executive_review", To: "published", Action: "approve"},
				{ID: "t7", From: "executive_review", To: "dept_review", Action: "reject"},
				{ID: "t8", From: "published", To: "archived", Action: "archive"},
			},
			Permissions: workflow.PermissionMatrix{
				"draft": {
					"view":   {"author", "contributor", "department_head"},
					"edit":   {"author", "contributor"},
					"submit": {"author"},
				},
				"dept_review": {
					"view":            {workflow.RolePublic},
					"edit":            {"department_head"},
					"approve":         {"department_head", "team_lead"},
					"request_changes": {"department_head", "team_lead"},
				},
				"legal_compliance": {
					"view":    {workflow.RolePublic},
					"edit":    {"legal_counsel", "compliance_officer"},
					"approve": {"legal_counsel", "compliance_officer"},
					"reject":  {"legal_counsel", "compliance_officer"},
				},
				"executive_review": {
					"view":     {workflow.RolePublic},
					"approve":  {"ceo", "cfo", "coo", "executive"},
					"reject":   {"ceo", "cfo", "coo", "executive"},
					"delegate": {"ceo", "cfo", "coo"},
				},
				"published": {
					"view":    {workflow.RolePublic},
					"archive": {"admin", "publisher"},
				},
				"archived": {
					"view": {"admin", "executive"},
				},
			},
			Notifications: []workflow.NotificationConfig{
				{
					ID:         "n1",
					Trigger:    workflow.NotifyStageEnter,
					Stage:      "dept_review",
					Recipients: []string{"department_head"},
					Template:   "New document pending department review: {{document.title}}",
					Channel:    "email",
				},
				{
					ID:         "n2",
					Trigger:    workflow.NotifyStageEnter,
					Stage:      "legal_compliance",
					Recipients: []string{"legal_counsel"},
					Template:   "Document requires legal compliance review: {{document.title}}",
					Channel:    "email",
				},
				{
					ID:         "n3",
					Trigger:    workflow.NotifyStageEnter,
					Stage:      "executive_review",
					Recipients: []string{"ceo", "executive"},
					Template:   "Document awaiting executive approval: {{document.title}}",
					Channel:    "in_app",
				},
			},
			BusinessRules: []workflow.BusinessRule{
				{
					ID:      "br1",
					Name:    "Financial Documents Require CFO",
					Trigger: workflow.TriggerPreTransition,
					Conditions: []workflow.Condition{
						{
							ID:       "c1",
							Type:     workflow.ConditionField,
							Field:    "document.metadata.category",
							Operator: workflow.OpEquals,
							Value:    "financial",
						},
					},
					Actions: []workflow.RuleAction{
						{
							Type: workflow.RuleSetField,
							Config: map[string]any{
								"field": "state.data.required_approver",
								"value": "cfo",
							},
						},
					},
				},
			},
			Settings: workflow.Settings{
				RequireComments: true,
				TrackHistory:    true,
			},
		},
	}
}
