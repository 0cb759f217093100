package workflow

import "time"

// executeStage is the single shared interpreter for entering a stage. All
// definitions, hand-authored or imported, flow through here: entry
// conditions on the destination stage gate admission, then the stage type
// decides what bookkeeping lands in the state's data bag.
func (e *Engine) executeStage(def *Definition, stage Stage, wctx *Context, state *State) StageResult {
	stageEntered := state.StartedAt
	if n := len(state.History); n > 0 {
		stageEntered = state.History[n-1].Timestamp
	}

	if ok, msg := evalConditions(stage.EntryConditions, wctx, state, stageEntered); !ok {
		return StageResult{Success: false, Errors: []string{msg}}
	}

	data := map[string]any{
		"stage_id":     stage.ID,
		"stage_name":   stage.Name,
		"completed_by": wctx.User.ID,
		"completed_at": time.Now().Format(time.RFC3339),
	}

	switch stage.Type {
	case StageApproval:
		required := stage.RequiredApprovals
		if required == 0 {
			required = 1
		}
		data["status"] = "awaiting_approval"
		data["required_approvals"] = required
	case StageParallel:
		data["status"] = "distributed"
	case StageConditional:
		data["status"] = "pending_conditions"
	case StageAutomated:
		data["status"] = "automated"
	default:
		data["status"] = "in_progress"
	}

	if stage.Terminal {
		data["status"] = "terminal"
	}

	return StageResult{Success: true, Data: data}
}
