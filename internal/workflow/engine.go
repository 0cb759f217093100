package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers generated notifications. Delivery is best-effort from the
// engine's point of view: a failing notifier never fails a transition.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Engine drives a document's state machine one transition at a time. It is
// stateless itself: all mutable state lives in the StateStore. Transitions
// for the same document are serialized through a per-document mutex, and the
// store's version check catches writers on other processes.
type Engine struct {
	registry *Registry
	store    StateStore
	events   *EventBus
	notifier Notifier
	client   *http.Client
	logger   *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine wires the engine to its collaborators. notifier may be nil.
func NewEngine(registry *Registry, store StateStore, events *EventBus, notifier Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NewEventBus()
	}
	return &Engine{
		registry: registry,
		store:    store,
		events:   events,
		notifier: notifier,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Events exposes the engine's event bus for subscribers.
func (e *Engine) Events() *EventBus {
	return e.events
}

// InitializeWorkflow bootstraps workflow state for a document. It fails with
// ErrNoWorkflow when no definition is active for the document type and with
// ErrDuplicate when state already exists; neither case creates a record.
func (e *Engine) InitializeWorkflow(ctx context.Context, doc Document) (*State, error) {
	unlock := e.lockDocument(doc.ID)
	defer unlock()
	return e.initialize(ctx, doc)
}

// initialize assumes the document lock is held.
func (e *Engine) initialize(ctx context.Context, doc Document) (*State, error) {
	def := e.registry.DefinitionForDocument(doc)
	if def == nil {
		return nil, fmt.Errorf("%w for document type %q", ErrNoWorkflow, doc.Type)
	}

	existing, err := e.store.GetState(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: workflow state for document %s", ErrDuplicate, doc.ID)
	}

	first := def.InitialStage()
	now := time.Now()
	startedBy := "system"
	if v, ok := doc.Metadata["created_by"].(string); ok && v != "" {
		startedBy = v
	}

	state := &State{
		WorkflowID:   def.ID,
		DocumentID:   doc.ID,
		CurrentStage: first.ID,
		Status:       StatusActive,
		StartedAt:    now,
		UpdatedAt:    now,
		Data:         map[string]any{},
		History: []HistoryEntry{{
			ID:        uuid.NewString(),
			Timestamp: now,
			StageID:   first.ID,
			Action:    "workflow_started",
			UserID:    startedBy,
			Comment:   "Workflow initialized",
		}},
	}

	if err := e.store.CreateState(ctx, state); err != nil {
		return nil, fmt.Errorf("creating state: %w", err)
	}

	e.events.Publish(Event{
		Type:       EventStarted,
		DocumentID: doc.ID,
		WorkflowID: def.ID,
		To:         first.ID,
	})

	wctx := &Context{Document: doc, User: User{ID: startedBy, Roles: []string{"system"}}, Action: "initialize"}
	e.runStageHook(ctx, def, first, wctx, stageEnter)
	e.dispatchStageNotifications(ctx, def, NotifyStageEnter, first.ID, wctx)

	return state, nil
}

// ProcessDocument runs the full transition pipeline. Business-level failures
// come back as a Result with Success=false and Err set to the matching
// sentinel; the only persisted mutation is the single state write after every
// validation step has passed.
func (e *Engine) ProcessDocument(ctx context.Context, doc Document, action string, wctx *Context) *Result {
	unlock := e.lockDocument(doc.ID)
	defer unlock()

	result, err := e.process(ctx, doc, action, wctx)
	if err == nil {
		return result
	}

	e.logger.Warn("workflow transition failed",
		zap.String("document_id", doc.ID),
		zap.String("action", action),
		zap.Error(err))

	e.events.Publish(Event{
		Type:       EventError,
		DocumentID: doc.ID,
		Action:     action,
		Error:      err.Error(),
	})

	if def := e.registry.DefinitionForDocument(doc); def != nil && def.Hooks != nil && def.Hooks.OnError != nil {
		if hookErr := def.Hooks.OnError(ctx, err, wctx); hookErr != nil {
			e.logger.Warn("workflow error hook failed", zap.Error(hookErr))
		}
	}

	current := ""
	if state, stateErr := e.store.GetState(ctx, doc.ID); stateErr == nil && state != nil {
		current = state.CurrentStage
	}
	return &Result{
		Success:       false,
		DocumentID:    doc.ID,
		PreviousStage: current,
		CurrentStage:  current,
		Action:        action,
		Timestamp:     time.Now(),
		Errors:        []string{err.Error()},
		Err:           err,
	}
}

func (e *Engine) process(ctx context.Context, doc Document, action string, wctx *Context) (*Result, error) {
	def := e.registry.DefinitionForDocument(doc)
	if def == nil {
		return nil, fmt.Errorf("%w for document type %q", ErrNoWorkflow, doc.Type)
	}

	state, err := e.store.GetState(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if state == nil {
		// Lazy bootstrap on first transition; the document lock is held.
		state, err = e.initialize(ctx, doc)
		if err != nil {
			return nil, err
		}
	}

	if state.Status != StatusActive {
		return nil, fmt.Errorf("%w: workflow is %s", ErrInvalidState, state.Status)
	}

	transition, ok := def.Transition(state.CurrentStage, action)
	if !ok {
		return nil, fmt.Errorf("%w from stage %q with action %q", ErrNoTransition, state.CurrentStage, action)
	}

	fromStage, _ := def.Stage(state.CurrentStage)
	toStage, ok := def.Stage(transition.To)
	if !ok {
		return nil, fmt.Errorf("%w: transition target %q missing", ErrStageExecution, transition.To)
	}

	stageEntered := state.StartedAt
	if n := len(state.History); n > 0 {
		stageEntered = state.History[n-1].Timestamp
	}

	if ok, msg := evalConditions(transition.Conditions, wctx, state, stageEntered); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransitionRejected, msg)
	}

	if ok, msg := evalConditions(fromStage.ExitConditions, wctx, state, stageEntered); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransitionRejected, msg)
	}

	if act, found := fromStage.Action(action); found && act.RequireComment && strings.TrimSpace(wctx.Comment) == "" {
		return nil, fmt.Errorf("%w: action %q requires a comment", ErrTransitionRejected, action)
	}

	if !e.allowed(def, state.CurrentStage, action, wctx.User) {
		return nil, fmt.Errorf("%w: action %q in stage %q", ErrPermissionDenied, action, state.CurrentStage)
	}

	pending := &pendingEffects{}
	if err := e.runBusinessRules(ctx, def, TriggerPreTransition, wctx, state, stageEntered, pending); err != nil {
		return nil, err
	}

	e.runStageHook(ctx, def, fromStage, wctx, stageExit)

	stageResult := e.executeStage(def, toStage, wctx, state)
	if !stageResult.Success {
		return nil, fmt.Errorf("%w: %s", ErrStageExecution, strings.Join(stageResult.Errors, "; "))
	}

	now := time.Now()
	newState := cloneState(state)
	newState.PreviousStage = state.CurrentStage
	newState.CurrentStage = toStage.ID
	newState.UpdatedAt = now
	newState.History = append(newState.History, HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		StageID:   toStage.ID,
		Action:    action,
		UserID:    wctx.User.ID,
		UserName:  wctx.User.Name,
		Comment:   wctx.Comment,
		Duration:  now.Sub(stageEntered),
		Metadata:  wctx.Metadata,
	})
	if newState.Data == nil {
		newState.Data = map[string]any{}
	}
	for k, v := range stageResult.Data {
		newState.Data[k] = v
	}
	for k, v := range pending.fields {
		setField(newState.Data, k, v)
	}

	completed := toStage.Terminal
	if completed {
		newState.Status = StatusCompleted
		newState.CompletedAt = &now
	}

	if err := e.store.UpdateState(ctx, newState); err != nil {
		return nil, fmt.Errorf("persisting state: %w", err)
	}

	e.runStageHook(ctx, def, toStage, wctx, stageEnter)

	post := &pendingEffects{}
	if err := e.runBusinessRules(ctx, def, TriggerPostTransition, wctx, newState, now, post); err != nil {
		e.logger.Warn("post-transition rules failed", zap.String("document_id", doc.ID), zap.Error(err))
	} else if len(post.fields) > 0 {
		for k, v := range post.fields {
			setField(newState.Data, k, v)
		}
		if err := e.store.UpdateState(ctx, newState); err != nil {
			e.logger.Warn("persisting post-transition fields failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}

	notifications := e.buildNotifications(def, transition, toStage, wctx)
	notifications = append(notifications, pending.notifications...)
	notifications = append(notifications, post.notifications...)
	for _, n := range notifications {
		e.dispatch(ctx, n)
	}

	e.events.Publish(Event{
		Type:       EventTransition,
		DocumentID: doc.ID,
		WorkflowID: def.ID,
		From:       state.CurrentStage,
		To:         toStage.ID,
		Action:     action,
		UserID:     wctx.User.ID,
	})

	if completed {
		e.events.Publish(Event{
			Type:       EventCompleted,
			DocumentID: doc.ID,
			WorkflowID: def.ID,
			To:         toStage.ID,
			Data:       map[string]any{"duration": now.Sub(newState.StartedAt).String()},
		})
		if def.Hooks != nil && def.Hooks.OnComplete != nil {
			if err := def.Hooks.OnComplete(ctx, wctx); err != nil {
				e.logger.Warn("completion hook failed", zap.Error(err))
			}
		}
	}

	return &Result{
		Success:       true,
		DocumentID:    doc.ID,
		PreviousStage: state.CurrentStage,
		CurrentStage:  toStage.ID,
		Action:        action,
		Timestamp:     now,
		Completed:     completed,
		Notifications: notifications,
		Data:          stageResult.Data,
	}, nil
}

// AvailableActions returns the current stage's actions the user may take,
// in definition order.
func (e *Engine) AvailableActions(ctx context.Context, doc Document, user User) ([]StageAction, error) {
	def := e.registry.DefinitionForDocument(doc)
	if def == nil {
		return nil, fmt.Errorf("%w for document type %q", ErrNoWorkflow, doc.Type)
	}
	state, err := e.store.GetState(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Status != StatusActive {
		return []StageAction{}, nil
	}
	stage, ok := def.Stage(state.CurrentStage)
	if !ok {
		return []StageAction{}, nil
	}
	var out []StageAction
	for _, a := range stage.Actions {
		if e.allowed(def, stage.ID, a.ID, user) {
			out = append(out, a)
		}
	}
	if out == nil {
		out = []StageAction{}
	}
	return out, nil
}

// State returns the live workflow state for a document, nil when none exists.
func (e *Engine) State(ctx context.Context, documentID string) (*State, error) {
	return e.store.GetState(ctx, documentID)
}

// History returns the append-only history log for a document.
func (e *Engine) History(ctx context.Context, documentID string) ([]HistoryEntry, error) {
	state, err := e.store.GetState(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, notFoundErrorf("state for document %s", documentID)
	}
	return state.History, nil
}

// CancelWorkflow is an administrative override that bypasses the transition
// pipeline entirely.
func (e *Engine) CancelWorkflow(ctx context.Context, documentID, reason string, user User) error {
	return e.adminTransition(ctx, documentID, "cancel", reason, user, func(s *State) error {
		s.Status = StatusCancelled
		return nil
	}, EventCancelled)
}

// SuspendWorkflow pauses a workflow until resumed.
func (e *Engine) SuspendWorkflow(ctx context.Context, documentID, reason string, user User) error {
	return e.adminTransition(ctx, documentID, "suspend", reason, user, func(s *State) error {
		s.Status = StatusSuspended
		return nil
	}, EventSuspended)
}

// ResumeWorkflow reactivates a suspended workflow.
func (e *Engine) ResumeWorkflow(ctx context.Context, documentID string, user User) error {
	return e.adminTransition(ctx, documentID, "resume", "Workflow resumed", user, func(s *State) error {
		if s.Status != StatusSuspended {
			return fmt.Errorf("%w: workflow is %s, not suspended", ErrInvalidState, s.Status)
		}
		s.Status = StatusActive
		return nil
	}, EventResumed)
}

func (e *Engine) adminTransition(ctx context.Context, documentID, action, comment string, user User, mutate func(*State) error, event EventType) error {
	unlock := e.lockDocument(documentID)
	defer unlock()

	state, err := e.store.GetState(ctx, documentID)
	if err != nil {
		return err
	}
	if state == nil {
		return notFoundErrorf("state for document %s", documentID)
	}
	if err := mutate(state); err != nil {
		return err
	}
	now := time.Now()
	state.UpdatedAt = now
	state.History = append(state.History, HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		StageID:   state.CurrentStage,
		Action:    action,
		UserID:    user.ID,
		UserName:  user.Name,
		Comment:   comment,
	})
	if err := e.store.UpdateState(ctx, state); err != nil {
		return err
	}
	e.events.Publish(Event{
		Type:       event,
		DocumentID: documentID,
		WorkflowID: state.WorkflowID,
		Action:     action,
		UserID:     user.ID,
	})
	return nil
}

// allowed resolves permissions default-deny: an explicit matrix entry wins,
// otherwise the stage's allowed roles apply. The RolePublic marker opens an
// action to everyone.
func (e *Engine) allowed(def *Definition, stageID, action string, user User) bool {
	roles := def.Config.Permissions[stageID][action]
	if len(roles) == 0 {
		if stage, ok := def.Stage(stageID); ok {
			roles = stage.AllowedRoles
		}
	}
	if len(roles) == 0 {
		return false
	}
	for _, r := range roles {
		if r == RolePublic || user.HasRole(r) {
			return true
		}
	}
	return false
}

type pendingEffects struct {
	fields        map[string]any
	notifications []Notification
}

func (p *pendingEffects) setField(path string, value any) {
	if p.fields == nil {
		p.fields = make(map[string]any)
	}
	p.fields[path] = value
}

// runBusinessRules evaluates every rule on the given trigger. All conditions
// must hold for a rule's actions to fire.
func (e *Engine) runBusinessRules(ctx context.Context, def *Definition, trigger RuleTrigger, wctx *Context, state *State, stageEntered time.Time, out *pendingEffects) error {
	for _, rule := range def.Config.BusinessRules {
		if rule.Trigger != trigger {
			continue
		}
		met, _ := evalConditions(rule.Conditions, wctx, state, stageEntered)
		if !met {
			continue
		}
		for _, action := range rule.Actions {
			if err := e.applyRuleAction(ctx, action, wctx, out); err != nil {
				return fmt.Errorf("business rule %s: %w", rule.ID, err)
			}
		}
	}
	return nil
}

func (e *Engine) applyRuleAction(ctx context.Context, action RuleAction, wctx *Context, out *pendingEffects) error {
	switch action.Type {
	case RuleSetField:
		field, _ := action.Config["field"].(string)
		if field == "" {
			return fmt.Errorf("set_field requires a field path")
		}
		out.setField(strings.TrimPrefix(field, "state.data."), action.Config["value"])

	case RuleSendNotification:
		n := Notification{
			Recipients: stringSlice(action.Config["recipients"]),
			Channel:    stringOr(action.Config["channel"], "in_app"),
			Subject:    stringOr(action.Config["subject"], "Workflow notification"),
			Body:       stringOr(action.Config["template"], stringOr(action.Config["body"], "")),
			Data:       map[string]any{"document_id": wctx.Document.ID},
		}
		out.notifications = append(out.notifications, n)

	case RuleCallAPI:
		url, _ := action.Config["url"].(string)
		if url == "" {
			return fmt.Errorf("call_api requires a url")
		}
		payload := map[string]any{
			"document_id": wctx.Document.ID,
			"action":      wctx.Action,
			"user_id":     wctx.User.ID,
		}
		if extra, ok := action.Config["payload"].(map[string]any); ok {
			for k, v := range extra {
				payload[k] = v
			}
		}
		body, _ := json.Marshal(payload)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := e.client.Do(req)
		if err != nil {
			e.logger.Warn("call_api webhook failed", zap.String("url", url), zap.Error(err))
			return nil
		}
		resp.Body.Close()

	case RuleTriggerWorkflow:
		docID := stringOr(action.Config["document_id"], "")
		docType := stringOr(action.Config["document_type"], "")
		if docID == "" || docType == "" {
			return fmt.Errorf("trigger_workflow requires document_id and document_type")
		}
		target := Document{ID: docID, Type: docType, Title: stringOr(action.Config["title"], "")}
		go func() {
			if _, err := e.InitializeWorkflow(context.Background(), target); err != nil {
				e.logger.Warn("trigger_workflow failed", zap.String("document_id", docID), zap.Error(err))
			}
		}()
	}
	return nil
}

// buildNotifications collects configured notifications for an accepted
// transition: action_taken configs bound to the destination stage, plus
// stage_enter configs for the stage just entered.
func (e *Engine) buildNotifications(def *Definition, transition TransitionRule, toStage Stage, wctx *Context) []Notification {
	var out []Notification
	for _, cfg := range def.Config.Notifications {
		match := (cfg.Trigger == NotifyActionTaken || cfg.Trigger == NotifyStageEnter) &&
			(cfg.Stage == "" || cfg.Stage == toStage.ID)
		if !match {
			continue
		}
		out = append(out, Notification{
			Recipients: cfg.Recipients,
			Channel:    cfg.Channel,
			Subject:    fmt.Sprintf("Document moved to %s", toStage.Name),
			Body:       renderTemplate(cfg.Template, wctx, toStage),
			Priority:   "normal",
			Data: map[string]any{
				"document_id": wctx.Document.ID,
				"from_stage":  transition.From,
				"to_stage":    transition.To,
				"action":      wctx.Action,
				"user_id":     wctx.User.ID,
			},
		})
	}
	return out
}

func (e *Engine) dispatchStageNotifications(ctx context.Context, def *Definition, trigger NotificationTrigger, stageID string, wctx *Context) {
	stage, _ := def.Stage(stageID)
	for _, cfg := range def.Config.Notifications {
		if cfg.Trigger != trigger || (cfg.Stage != "" && cfg.Stage != stageID) {
			continue
		}
		e.dispatch(ctx, Notification{
			Recipients: cfg.Recipients,
			Channel:    cfg.Channel,
			Subject:    fmt.Sprintf("Document entered %s", stage.Name),
			Body:       renderTemplate(cfg.Template, wctx, stage),
			Data:       map[string]any{"document_id": wctx.Document.ID, "stage": stageID},
		})
	}
}

func (e *Engine) dispatch(ctx context.Context, n Notification) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("notification dispatch failed", zap.String("channel", n.Channel), zap.Error(err))
	}
}

// renderTemplate substitutes the handful of placeholders the built-in
// definitions use.
func renderTemplate(tmpl string, wctx *Context, stage Stage) string {
	r := strings.NewReplacer(
		"{{document.title}}", wctx.Document.Title,
		"{{document.id}}", wctx.Document.ID,
		"{{stage.name}}", stage.Name,
		"{{user.name}}", wctx.User.Name,
	)
	return r.Replace(tmpl)
}

type stageHookKind int

const (
	stageEnter stageHookKind = iota
	stageExit
)

func (e *Engine) runStageHook(ctx context.Context, def *Definition, stage Stage, wctx *Context, kind stageHookKind) {
	if def.Hooks == nil {
		return
	}
	var fn func(context.Context, Stage, *Context) error
	if kind == stageEnter {
		fn = def.Hooks.OnStageEnter
	} else {
		fn = def.Hooks.OnStageExit
	}
	if fn == nil {
		return
	}
	if err := fn(ctx, stage, wctx); err != nil {
		e.logger.Warn("stage hook failed",
			zap.String("definition_id", def.ID),
			zap.String("stage", stage.ID),
			zap.Error(err))
	}
}

func (e *Engine) lockDocument(documentID string) func() {
	e.locksMu.Lock()
	mu, ok := e.locks[documentID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[documentID] = mu
	}
	e.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
