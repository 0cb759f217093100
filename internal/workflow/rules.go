package workflow

import (
	"fmt"
	"strings"
	"time"
)

// evalConditions evaluates a conjunction: every condition must hold.
// stageEntered is the timestamp of the last history entry, used by time
// conditions to compute hours spent in the current stage.
func evalConditions(conds []Condition, wctx *Context, state *State, stageEntered time.Time) (bool, string) {
	for _, c := range conds {
		if !evalCondition(c, wctx, state, stageEntered) {
			msg := c.Message
			if msg == "" {
				msg = fmt.Sprintf("condition %s not met", c.ID)
			}
			return false, msg
		}
	}
	return true, ""
}

func evalCondition(c Condition, wctx *Context, state *State, stageEntered time.Time) bool {
	switch c.Type {
	case ConditionField:
		value := resolveField(c.Field, wctx, state)
		return compare(value, c.Operator, c.Value)
	case ConditionRole:
		role, _ := c.Value.(string)
		return wctx.User.HasRole(role)
	case ConditionTime:
		hours := time.Since(stageEntered).Hours()
		return compare(hours, c.Operator, c.Value)
	default:
		return false
	}
}

// resolveField walks a dot path rooted at the transition context. Recognized
// roots: document, user, metadata, state. "document.metadata.x" and
// "state.data.x" reach into the respective bags.
func resolveField(path string, wctx *Context, state *State) any {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return nil
	}

	var cur any
	switch parts[0] {
	case "document":
		cur = documentValue(wctx.Document, parts[1:])
		return cur
	case "user":
		return userValue(wctx.User, parts[1:])
	case "metadata":
		cur = any(wctx.Metadata)
		parts = parts[1:]
	case "state":
		return stateValue(state, parts[1:])
	default:
		cur = any(wctx.Metadata)
	}

	return walkMap(cur, parts)
}

func documentValue(doc Document, parts []string) any {
	if len(parts) == 0 {
		return doc
	}
	switch parts[0] {
	case "id":
		return doc.ID
	case "type":
		return doc.Type
	case "title":
		return doc.Title
	case "metadata":
		return walkMap(any(doc.Metadata), parts[1:])
	}
	// Anything else resolves through the document's metadata bag, so configs
	// can say "document.content" for fields the engine does not model.
	return walkMap(any(doc.Metadata), parts)
}

func userValue(u User, parts []string) any {
	if len(parts) == 0 {
		return u
	}
	switch parts[0] {
	case "id":
		return u.ID
	case "email":
		return u.Email
	case "name":
		return u.Name
	case "roles":
		return u.Roles
	}
	return nil
}

func stateValue(state *State, parts []string) any {
	if state == nil || len(parts) == 0 {
		return nil
	}
	switch parts[0] {
	case "current_stage", "currentStage":
		return state.CurrentStage
	case "previous_stage", "previousStage":
		return state.PreviousStage
	case "status":
		return string(state.Status)
	case "data":
		return walkMap(any(state.Data), parts[1:])
	}
	return nil
}

func walkMap(cur any, parts []string) any {
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func compare(value any, op Operator, target any) bool {
	switch op {
	case OpEquals:
		return equal(value, target)
	case OpNotEquals:
		return !equal(value, target)
	case OpContains:
		return contains(value, target)
	case OpGreaterThan:
		a, aok := toFloat(value)
		b, bok := toFloat(target)
		return aok && bok && a > b
	case OpLessThan:
		a, aok := toFloat(value)
		b, bok := toFloat(target)
		return aok && bok && a < b
	case OpIn:
		return memberOf(target, value)
	case OpNotIn:
		return !memberOf(target, value)
	case OpExists:
		return value != nil
	case OpNotExists:
		return value == nil
	default:
		return false
	}
}

func equal(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// contains handles both substring checks and slice membership, since JSON
// configs use it for either.
func contains(value, target any) bool {
	switch v := value.(type) {
	case string:
		t, _ := target.(string)
		return strings.Contains(v, t)
	case []string:
		for _, item := range v {
			if equal(item, target) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if equal(item, target) {
				return true
			}
		}
	}
	return false
}

// memberOf reports whether needle is an element of haystack.
func memberOf(haystack, needle any) bool {
	switch h := haystack.(type) {
	case []any:
		for _, item := range h {
			if equal(item, needle) {
				return true
			}
		}
	case []string:
		for _, item := range h {
			if equal(item, needle) {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// setField writes a value at a dot path inside a data bag, creating
// intermediate maps as needed.
func setField(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := data
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
}
