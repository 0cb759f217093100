// Package definitions holds the built-in workflow configurations shipped
// with the portal. Each is plain data interpreted by the shared engine, so
// a definition imported over the API behaves identically to these.
package definitions

import (
	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// AirForce8Stage is the official U.S. Air Force 8-stage document review and
// approval workflow, from OPR draft through AFDPO publication.
func AirForce8Stage() *workflow.Definition {
	return &workflow.Definition{
		ID:           "af-8-stage-review",
		Name:         "Air Force 8-Stage Document Review",
		Version:      "1.0.0",
		Description:  "Official U.S. Air Force document review and approval workflow with 8 comprehensive stages",
		Organization: "United States Air Force",
		Author:       "AFDPO",
		Config: workflow.Config{
			Stages: []workflow.Stage{
				{
					ID:          "opr_draft",
					Name:        "OPR Draft Creation",
					Type:        workflow.StageSequential,
					Order:       1,
					Description: "Office of Primary Responsibility creates initial draft",
					Required:    true,
					TimeLimit:   168,
					Actions: []workflow.StageAction{
						{ID: "submit_for_review", Label: "Submit for Review", Type: workflow.ActionCustom, TargetStage: "internal_coordination"},
						{ID: "save_draft", Label: "Save Draft", Type: workflow.ActionCustom},
					},
					AllowedRoles: []string{"author", "opr_staff", "editor"},
					ExitConditions: []workflow.Condition{
						{
							ID:       "draft_complete",
							Type:     workflow.ConditionField,
							Field:    "document.content",
							Operator: workflow.OpExists,
							Message:  "Document content cannot be empty",
						},
					},
				},
				{
					ID:                "internal_coordination",
					Name:              "Internal Coordination",
					Type:              workflow.StageParallel,
					Order:             2,
					Description:       "Internal stakeholders review and provide input",
					Required:          true,
					TimeLimit:         120,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "approve", Label: "Approve", Type: workflow.ActionApprove, TargetStage: "legal_review"},
						{ID: "request_changes", Label: "Request Changes", Type: workflow.ActionCustom, TargetStage: "opr_draft", RequireComment: true},
					},
					AllowedRoles: []string{"internal_coordinator", "section_chief"},
				},
				{
					ID:          "legal_review",
					Name:        "Legal Review",
					Type:        workflow.StageApproval,
					Order:       3,
					Description: "Judge Advocate General (JAG) legal compliance review",
					Required:    true,
					TimeLimit:   72,
					Actions: []workflow.StageAction{
						{ID: "approve_legal", Label: "Legally Sufficient", Type: workflow.ActionApprove, TargetStage: "o6_coordination"},
						{ID: "reject_legal", Label: "Legal Issues Found", Type: workflow.ActionReject, TargetStage: "opr_draft", RequireComment: true},
						{ID: "conditional_approve", Label: "Approve with Conditions", Type: workflow.ActionCustom, TargetStage: "o6_coordination", RequireComment: true},
					},
					AllowedRoles: []string{"legal_officer", "jag_attorney"},
					EntryConditions: []workflow.Condition{
						{
							ID:       "internal_complete",
							Type:     workflow.ConditionField,
							Field:    "state.current_stage",
							Operator: workflow.OpEquals,
							Value:    "internal_coordination",
						},
					},
				},
				{
					ID:                "o6_coordination",
					Name:              "O-6/GS-15 Coordination",
					Type:              workflow.StageApproval,
					Order:             4,
					Description:       "Senior officer and civilian equivalent review",
					Required:          true,
					TimeLimit:         96,
					RequiredApprovals: 2,
					Actions: []workflow.StageAction{
						{ID: "approve", Label: "Approve", Type: workflow.ActionApprove, TargetStage: "two_letter_coordination"},
						{ID: "reject", Label: "Reject", Type: workflow.ActionReject, TargetStage: "opr_update_first", RequireComment: true},
					},
					AllowedRoles: []string{"colonel", "gs15", "senior_reviewer"},
				},
				{
					ID:          "opr_update_first",
					Name:        "OPR Update (First Round)",
					Type:        workflow.StageSequential,
					Order:       5,
					Description: "OPR addresses feedback from initial reviews",
					Skippable:   true,
					TimeLimit:   72,
					Actions: []workflow.StageAction{
						{ID: "submit_updates", Label: "Submit Updates", Type: workflow.ActionCustom, TargetStage: "two_letter_coordination"},
					},
					AllowedRoles: []string{"author", "opr_staff"},
				},
				{
					ID:                "two_letter_coordination",
					Name:              "Two-Letter Coordination",
					Type:              workflow.StageApproval,
					Order:             6,
					Description:       "Two-letter general officer review",
					Required:          true,
					TimeLimit:         120,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "approve", Label: "Approve", Type: workflow.ActionApprove, TargetStage: "leadership_approval"},
						{ID: "reject", Label: "Reject", Type: workflow.ActionReject, TargetStage: "opr_update_second", RequireComment: true},
					},
					AllowedRoles: []string{"general_officer", "two_letter_coordinator"},
				},
				{
					ID:          "opr_update_second",
					Name:        "OPR Update (Second Round)",
					Type:        workflow.StageSequential,
					Order:       7,
					Description: "OPR addresses senior leadership feedback",
					Skippable:   true,
					TimeLimit:   48,
					Actions: []workflow.StageAction{
						{ID: "submit_final_updates", Label: "Submit Final Updates", Type: workflow.ActionCustom, TargetStage: "leadership_approval"},
					},
					AllowedRoles: []string{"author", "opr_staff"},
				},
				{
					ID:          "leadership_approval",
					Name:        "Leadership Approval & AFDPO Publishing",
					Type:        workflow.StageApproval,
					Order:       8,
					Description: "Final commander approval and AFDPO publication",
					Required:    true,
					TimeLimit:   72,
					Actions: []workflow.StageAction{
						{ID: "approve_publish", Label: "Approve and Publish", Type: workflow.ActionApprove, TargetStage: "published"},
						{ID: "reject_final", Label: "Reject", Type: workflow.ActionReject, TargetStage: "opr_update_second", RequireComment: true},
					},
					AllowedRoles: []string{"commander", "afdpo_analyst", "publications_office"},
				},
				{
					ID:          "published",
					Name:        "Published",
					Type:        workflow.StageSequential,
					Order:       9,
					Description: "Document is officially published",
					Required:    true,
					Terminal:    true,
					Actions:     []workflow.StageAction{},
				},
			},
			Transitions: []workflow.TransitionRule{
				{ID: "t1", From: "opr_draft", To: "internal_coordination", Action: "submit_for_review"},
				{ID: "t2", From: "internal_coordination", To: "legal_review", Action: "approve"},
				{ID: "t3", From: "internal_coordination", To: "opr_draft", Action: "request_changes"},
				{
					ID: "t4", From: "legal_review", To: "o6_coordination", Action: "approve_legal",
					Conditions: []workflow.Condition{
						{
							ID:       "legal_approved",
							Type:     workflow.ConditionField,
							Field:    "metadata.legal_approval",
							Operator: workflow.OpEquals,
							Value:    true,
							Message:  "Legal approval required before O-6 coordination",
						},
					},
				},
				{ID: "t5", From: "legal_review", To: "o6_coordination", Action: "conditional_approve"},
				{ID: "t6", From: "legal_review", To: "opr_draft", Action: "reject_legal"},
				{ID: "t7", From: "o6_coordination", To: "two_letter_coordination", Action: "approve"},
				{ID: "t8", From: "o6_coordination", To: "opr_update_first", Action: "reject"},
				{ID: "t9", From: "opr_update_first", To: "two_letter_coordination", Action: "submit_updates"},
				{ID: "t10", From: "two_letter_coordination", To: "leadership_approval", Action: "approve"},
				{ID: "t11", From: "two_letter_coordination", To: "opr_update_second", Action: "reject"},
				{ID: "t12", From: "opr_update_second", To: "leadership_approval", Action: "submit_final_updates"},
				{
					ID: "t13", From: "leadership_approval", To: "published", Action: "approve_publish",
					Conditions: []workflow.Condition{
						{
							ID:       "commander_signature",
							Type:     workflow.ConditionField,
							Field:    "metadata.signatures",
							Operator: workflow.OpContains,
							Value:    "commander",
							Message:  "Missing commander signature for publication",
						},
						{
							ID:       "afdpo_signature",
							Type:     workflow.ConditionField,
							Field:    "metadata.signatures",
							Operator: workflow.OpContains,
							Value:    "afdpo_analyst",
							Message:  "Missing AFDPO analyst signature for publication",
						},
					},
				},
				{ID: "t14", From: "leadership_approval", To: "opr_update_second", Action: "reject_final"},
			},
			Permissions: workflow.PermissionMatrix{
				"opr_draft": {
					"view":              {"author", "opr_staff", "editor", "admin"},
					"edit":              {"author", "opr_staff", "editor"},
					"submit_for_review": {"author", "opr_staff"},
				},
				"internal_coordination": {
					"view":            {workflow.RolePublic},
					"edit":            {"internal_coordinator", "section_chief"},
					"approve":         {"internal_coordinator", "section_chief"},
					"request_changes": {"internal_coordinator", "section_chief"},
				},
				"legal_review": {
					"view":                {workflow.RolePublic},
					"edit":                {"legal_officer", "jag_attorney"},
					"approve_legal":       {"legal_officer", "jag_attorney"},
					"reject_legal":        {"legal_officer", "jag_attorney"},
					"conditional_approve": {"legal_officer", "jag_attorney"},
				},
				"o6_coordination": {
					"view":    {workflow.RolePublic},
					"edit":    {"colonel", "gs15"},
					"approve": {"colonel", "gs15"},
					"reject":  {"colonel", "gs15"},
				},
				"opr_update_first": {
					"view":           {workflow.RolePublic},
					"edit":           {"author", "opr_staff"},
					"submit_updates": {"author", "opr_staff"},
				},
				"two_letter_coordination": {
					"view":    {workflow.RolePublic},
					"edit":    {"general_officer", "two_letter_coordinator"},
					"approve": {"general_officer", "two_letter_coordinator"},
					"reject":  {"general_officer", "two_letter_coordinator"},
				},
				"opr_update_second": {
					"view":                 {workflow.RolePublic},
					"edit":                 {"author", "opr_staff"},
					"submit_final_updates": {"author", "opr_staff"},
				},
				"leadership_approval": {
					"view":            {workflow.RolePublic},
					"edit":            {"commander", "afdpo_analyst"},
					"approve_publish": {"commander", "afdpo_analyst"},
					"reject_final":    {"commander"},
				},
				"published": {
					"view": {workflow.RolePublic},
				},
			},
			Notifications: []workflow.NotificationConfig{
				{
					ID:         "n1",
					Trigger:    workflow.NotifyStageEnter,
					Stage:      "internal_coordination",
					Recipients: []string{"internal_coordinator"},
					Template:   "New document ready for internal coordination: {{document.title}}",
					Channel:    "email",
				},
				{
					ID:         "n2",
					Trigger:    workflow.NotifyStageEnter,
					Stage:      "legal_review",
					Recipients: []string{"legal_officer"},
					Template:   "Document requires legal review: {{document.title}}",
					Channel:    "email",
				},
				{
					ID:         "n3",
					Trigger:    workflow.NotifyDeadlineApproaching,
					Recipients: []string{"current_assignee"},
					Template:   "Action required: {{document.title}} deadline in 24 hours",
					Channel:    "in_app",
				},
			},
			BusinessRules: []workflow.BusinessRule{
				{
					ID:      "br1",
					Name:    "Legal Review Mandatory",
					Trigger: workflow.TriggerPreTransition,
					Conditions: []workflow.Condition{
						{
							ID:       "c1",
							Type:     workflow.ConditionField,
							Field:    "document.type",
							Operator: workflow.OpIn,
							Value:    []any{"policy", "directive", "instruction"},
						},
					},
					Actions: []workflow.RuleAction{
						{
							Type: workflow.RuleSetField,
							Config: map[string]any{
								"field": "state.data.require_legal_review",
								"value": true,
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
