package definitions

import (
	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// AirForce12Stage is the hierarchical distributed variant of the Air Force
// review: gatekeepers (PCM), two coordination/collection rounds, and explicit
// ownership transfer. Stage ids are numeric, with 3.5 and 5.5 marking the
// review collection halves of each coordination round.
func AirForce12Stage() *workflow.Definition {
	return &workflow.Definition{
		ID:           "af-12-stage-review",
		Name:         "Air Force 12-Stage Hierarchical Distributed Workflow",
		Version:      "2.0.0",
		Description:  "Enhanced Air Force document review with organizational hierarchy, gatekeepers, and ownership transfer",
		Organization: "United States Air Force",
		Author:       "AFDPO",
		Config: workflow.Config{
			Stages: []workflow.Stage{
				{
					ID:          "1",
					Name:        "Initial Draft Preparation",
					Type:        workflow.StageSequential,
					Order:       1,
					Description: "Action Officer creates and refines initial draft",
					Required:    true,
					TimeLimit:   168,
					Actions: []workflow.StageAction{
						{ID: "create_draft", Label: "Create Draft", Type: workflow.ActionCustom},
						{ID: "transfer_ownership", Label: "Transfer to Another AO", Type: workflow.ActionCustom},
						{ID: "submit_to_pcm", Label: "Submit to PCM", Type: workflow.ActionCustom, TargetStage: "2"},
					},
					AllowedRoles: []string{"ACTION_OFFICER"},
				},
				{
					ID:                "2",
					Name:              "PCM Review (OPR Gatekeeper)",
					Type:              workflow.StageApproval,
					Order:             2,
					Description:       "Program Control Manager reviews before coordination",
					Required:          true,
					TimeLimit:         72,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "review", Label: "Review Document", Type: workflow.ActionCustom},
						{ID: "approve", Label: "Approve for Coordination", Type: workflow.ActionApprove, TargetStage: "3"},
						{ID: "reject", Label: "Return to AO", Type: workflow.ActionReject, TargetStage: "1", RequireComment: true},
					},
					AllowedRoles: []string{"PCM"},
				},
				{
					ID:          "3",
					Name:        "First Coordination - Distribution Phase",
					Type:        workflow.StageParallel,
					Order:       3,
					Description: "Coordinator distributes to organization reviewers",
					Required:    true,
					TimeLimit:   120,
					Actions: []workflow.StageAction{
						{ID: "distribute_to_reviewers", Label: "Distribute to Reviewers", Type: workflow.ActionCustom, TargetStage: "3.5"},
					},
					AllowedRoles: []string{"COORDINATOR"},
				},
				{
					ID:          "3.5",
					Name:        "Review Collection Phase",
					Type:        workflow.StageParallel,
					Order:       4,
					Description: "Collecting reviews from distributed reviewers",
					Required:    true,
					TimeLimit:   240,
					Actions: []workflow.StageAction{
						{ID: "submit_review", Label: "Submit Review", Type: workflow.ActionCustom, TargetStage: "3.5"},
						{ID: "complete_reviews", Label: "All Reviews Complete", Type: workflow.ActionCustom, TargetStage: "4"},
					},
					AllowedRoles: []string{"SUB_REVIEWER", "OPR", "COORDINATOR", "ACTION_OFFICER"},
				},
				{
					ID:          "4",
					Name:        "OPR Feedback Incorporation & Draft Creation",
					Type:        workflow.StageSequential,
					Order:       5,
					Description: "Action Officer combines all feedback, creates updated draft document",
					Required:    true,
					TimeLimit:   120,
					Actions: []workflow.StageAction{
						{ID: "review_feedback", Label: "Review All Feedback", Type: workflow.ActionCustom},
						{ID: "incorporate_changes", Label: "Incorporate Changes", Type: workflow.ActionCustom},
						{ID: "create_draft_document", Label: "Create Draft Document", Type: workflow.ActionCustom},
						{ID: "submit_for_second_coordination", Label: "Submit for Second Coordination", Type: workflow.ActionCustom, TargetStage: "5"},
					},
					AllowedRoles: []string{"ACTION_OFFICER", "LEADERSHIP"},
				},
				{
					ID:          "5",
					Name:        "Second Coordination - Distribution Phase",
					Type:        workflow.StageParallel,
					Order:       6,
					Description: "Coordinator distributes updated draft document to organization reviewers",
					Required:    true,
					TimeLimit:   120,
					Actions: []workflow.StageAction{
						{ID: "distribute_draft_to_reviewers", Label: "Distribute Draft to Reviewers", Type: workflow.ActionCustom, TargetStage: "5.5"},
					},
					AllowedRoles: []string{"COORDINATOR"},
				},
				{
					ID:          "5.5",
					Name:        "Second Review Collection Phase",
					Type:        workflow.StageParallel,
					Order:       7,
					Description: "Collecting reviews from distributed reviewers for the draft document",
					Required:    true,
					TimeLimit:   240,
					Actions: []workflow.StageAction{
						{ID: "submit_draft_review", Label: "Submit Draft Review", Type: workflow.ActionCustom, TargetStage: "5.5"},
						{ID: "complete_draft_reviews", Label: "All Draft Reviews Complete", Type: workflow.ActionCustom, TargetStage: "6"},
					},
					AllowedRoles: []string{"SUB_REVIEWER", "OPR", "COORDINATOR", "ACTION_OFFICER", "LEADERSHIP", "LEGAL", "LEGAL_REVIEWER"},
				},
				{
					ID:          "6",
					Name:        "Second OPR Feedback Incorporation",
					Type:        workflow.StageSequential,
					Order:       8,
					Description: "OPR incorporates second round feedback",
					Required:    true,
					TimeLimit:   72,
					Actions: []workflow.StageAction{
						{ID: "review_second_feedback", Label: "Review Second Round Feedback", Type: workflow.ActionCustom},
						{ID: "final_updates", Label: "Make Final Updates", Type: workflow.ActionCustom},
						{ID: "submit_to_legal", Label: "Submit to Legal", Type: workflow.ActionCustom, TargetStage: "7"},
					},
					AllowedRoles: []string{"ACTION_OFFICER", "OPR", "LEADERSHIP", "OPR_LEADERSHIP"},
				},
				{
					ID:                "7",
					Name:              "Legal Review & Approval",
					Type:              workflow.StageApproval,
					Order:             9,
					Description:       "Legal team reviews for compliance and regulatory issues",
					Required:          true,
					TimeLimit:         120,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "legal_review", Label: "Legal Review", Type: workflow.ActionCustom},
						{ID: "approve", Label: "Approve", Type: workflow.ActionApprove, TargetStage: "8"},
						{ID: "reject", Label: "Reject with Legal Concerns", Type: workflow.ActionReject, TargetStage: "6", RequireComment: true},
					},
					AllowedRoles: []string{"LEGAL"},
				},
				{
					ID:          "8",
					Name:        "Post-Legal OPR Update",
					Type:        workflow.StageSequential,
					Order:       10,
					Description: "Action Officer addresses any legal concerns",
					Required:    true,
					TimeLimit:   72,
					Actions: []workflow.StageAction{
						{ID: "address_legal", Label: "Address Legal Feedback", Type: workflow.ActionCustom},
						{ID: "prepare_for_leadership", Label: "Prepare for Leadership Review", Type: workflow.ActionCustom},
						{ID: "submit_to_leadership", Label: "Submit to OPR Leadership", Type: workflow.ActionCustom, TargetStage: "9"},
					},
					AllowedRoles: []string{"ACTION_OFFICER", "OPR", "LEADERSHIP"},
				},
				{
					ID:                "9",
					Name:              "OPR Leadership Final Review & Signature",
					Type:              workflow.StageApproval,
					Order:             11,
					Description:       "OPR organization leadership provides final approval and signature",
					Required:          true,
					TimeLimit:         72,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "final_review", Label: "Final Leadership Review", Type: workflow.ActionCustom},
						{ID: "sign_and_approve", Label: "Sign and Approve", Type: workflow.ActionApprove, TargetStage: "10"},
						{ID: "reject", Label: "Reject", Type: workflow.ActionReject, TargetStage: "8", RequireComment: true},
					},
					AllowedRoles: []string{"LEADERSHIP"},
				},
				{
					ID:                "10",
					Name:              "PCM Final Validation",
					Type:              workflow.StageApproval,
					Order:             12,
					Description:       "PCM performs final validation before publication",
					Required:          true,
					TimeLimit:         48,
					RequiredApprovals: 1,
					Actions: []workflow.StageAction{
						{ID: "pcm_final_review", Label: "PCM Final Review", Type: workflow.ActionCustom},
						{ID: "approve_for_publication", Label: "Approve for Publication", Type: workflow.ActionApprove, TargetStage: "11"},
						{ID: "return_to_leadership", Label: "Return to Leadership", Type: workflow.ActionReject, TargetStage: "9", RequireComment: true},
					},
					AllowedRoles: []string{"PCM"},
				},
				{
					ID:          "11",
					Name:        "AFDPO Publication",
					Type:        workflow.StageApproval,
					Order:       13,
					Description: "Final publication and distribution",
					Required:    true,
					Terminal:    true,
					TimeLimit:   168,
					Actions: []workflow.StageAction{
						{ID: "final_check", Label: "Final Publication Check", Type: workflow.ActionCustom},
						{ID: "publish", Label: "Publish Document", Type: workflow.ActionCustom},
						{ID: "archive", Label: "Archive", Type: workflow.ActionCustom},
					},
					AllowedRoles: []string{"AFDPO"},
				},
			},
			Transitions: []workflow.TransitionRule{
				{ID: "t1", From: "1", To: "2", Action: "submit_to_pcm"},
				{ID: "t2", From: "2", To: "3", Action: "approve"},
				{ID: "t3", From: "2", To: "1", Action: "reject"},
				{ID: "t4", From: "3", To: "3.5", Action: "distribute_to_reviewers"},
				{ID: "t5", From: "3.5", To: "4", Action: "complete_reviews"},
				{ID: "t6", From: "4", To: "5", Action: "submit_for_second_coordination"},
				{ID: "t7", From: "5", To: "5.5", Action: "distribute_draft_to_reviewers"},
				{ID: "t8", From: "5.5", To: "6", Action: "complete_draft_reviews"},
				{ID: "t9", From: "6", To: "7", Action: "submit_to_legal"},
				{ID: "t10", From: "7", To: "8", Action: "approve"},
				{ID: "t11", From: "7", To: "6", Action: "reject"},
				{ID: "t12", From: "8", To: "9", Action: "submit_to_leadership"},
				{ID: "t13", From: "9", To: "10", Action: "sign_and_approve"},
				{ID: "t14", From: "9", To: "8", Action: "reject"},
				{ID: "t15", From: "10", To: "11", Action: "approve_for_publication"},
				{ID: "t16", From: "10", To: "9", Action: "return_to_leadership"},
			},
			Permissions: workflow.PermissionMatrix{
				"1": {
					"view":               {"ACTION_OFFICER", "PCM"},
					"edit":               {"ACTION_OFFICER"},
					"submit_to_pcm":      {"ACTION_OFFICER"},
					"transfer_ownership": {"ACTION_OFFICER"},
				},
				"2": {
					"view":    {"PCM", "ACTION_OFFICER"},
					"edit":    {"PCM"},
					"approve": {"PCM"},
					"reject":  {"PCM"},
				},
				"3": {
					"view":                    {"COORDINATOR", "ACTION_OFFICER", "PCM"},
					"edit":                    {"COORDINATOR"},
					"distribute_to_reviewers": {"COORDINATOR"},
				},
				"3.5": {
					"view":             {"SUB_REVIEWER", "OPR", "COORDINATOR", "ACTION_OFFICER"},
					"edit":             {"SUB_REVIEWER", "OPR"},
					"submit_review":    {"SUB_REVIEWER", "OPR"},
					"complete_reviews": {"COORDINATOR", "ACTION_OFFICER"},
				},
				"4": {
					"view":                           {"ACTION_OFFICER", "PCM"},
					"edit":                           {"ACTION_OFFICER"},
					"submit_for_second_coordination": {"ACTION_OFFICER", "LEADERSHIP"},
				},
				"5": {
					"view":                          {"COORDINATOR", "ACTION_OFFICER", "PCM"},
					"edit":                          {"COORDINATOR"},
					"distribute_draft_to_reviewers": {"COORDINATOR"},
				},
				"5.5": {
					"view":                   {"SUB_REVIEWER", "OPR", "COORDINATOR", "ACTION_OFFICER", "LEADERSHIP"},
					"edit":                   {"SUB_REVIEWER", "OPR", "LEADERSHIP"},
					"submit_draft_review":    {"SUB_REVIEWER", "OPR", "LEADERSHIP"},
					"complete_draft_reviews": {"COORDINATOR", "ACTION_OFFICER"},
				},
				"6": {
					"view":            {"ACTION_OFFICER", "PCM"},
					"edit":            {"ACTION_OFFICER"},
					"submit_to_legal": {"ACTION_OFFICER", "OPR", "LEADERSHIP"},
				},
				"7": {
					"view":    {"LEGAL", "ACTION_OFFICER", "PCM"},
					"edit":    {"LEGAL"},
					"approve": {"LEGAL"},
					"reject":  {"LEGAL"},
				},
				"8": {
					"view":                 {"ACTION_OFFICER", "PCM", "OPR", "LEADERSHIP"},
					"edit":                 {"ACTION_OFFICER", "OPR", "LEADERSHIP"},
					"submit_to_leadership": {"ACTION_OFFICER", "OPR", "LEADERSHIP"},
				},
				"9": {
					"view":             {"LEADERSHIP", "ACTION_OFFICER", "PCM"},
					"edit":             {"LEADERSHIP"},
					"sign_and_approve": {"LEADERSHIP"},
					"reject":           {"LEADERSHIP"},
				},
				"10": {
					"view":                    {"PCM", "ACTION_OFFICER"},
					"edit":                    {"PCM"},
					"approve_for_publication": {"PCM"},
					"return_to_leadership":    {"PCM"},
				},
				"11": {
					"view":    {"AFDPO", "PCM", "ACTION_OFFICER"},
					"edit":    {"AFDPO"},
					"publish": {"AFDPO"},
					"archive": {"AFDPO"},
				},
			},
			Notifications: []workflow.NotificationConfig{
				{
					ID:         "stage_complete",
					Trigger:    workflow.NotifyStageExit,
					Recipients: []string{"ACTION_OFFICER", "PCM"},
					Template:   "Stage completed for {{document.title}}",
					Channel:    "email",
				},
				{
					ID:         "assignment_created",
					Trigger:    workflow.NotifyStageEnter,
					Recipients: []string{"ACTION_OFFICER"},
					Template:   "New assignment: {{document.title}} entered {{stage.name}}",
					Channel:    "email",
				},
			},
			Settings: workflow.Settings{
				TrackHistory: true,
			},
		},
	}
}
