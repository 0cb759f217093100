package workflow

import (
	"context"
	"time"
)

// StageType classifies how a stage behaves when the engine executes it.
type StageType string

const (
	StageSequential  StageType = "sequential"
	StageParallel    StageType = "parallel"
	StageConditional StageType = "conditional"
	StageApproval    StageType = "approval"
	StageAutomated   StageType = "automated"
)

// ActionType tags the intent of a stage action.
type ActionType string

const (
	ActionApprove  ActionType = "approve"
	ActionReject   ActionType = "reject"
	ActionComment  ActionType = "comment"
	ActionDelegate ActionType = "delegate"
	ActionCustom   ActionType = "custom"
)

// Status is the lifecycle status of a workflow state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusSuspended Status = "suspended"
	StatusError     Status = "error"
)

// RolePublic marks an action as intentionally open to every authenticated
// user. Anything else resolves through the permission matrix or the stage's
// allowed roles, and an empty result denies.
const RolePublic = "all"

// StageAction is an action a user can take while a document sits in a stage.
type StageAction struct {
	ID                string     `json:"id"`
	Label             string     `json:"label"`
	Type              ActionType `json:"type"`
	TargetStage       string     `json:"target_stage,omitempty"`
	RequireComment    bool       `json:"require_comment,omitempty"`
	RequireAttachment bool       `json:"require_attachment,omitempty"`
}

// Stage is a named state in a document's approval lifecycle.
type Stage struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        StageType `json:"type"`
	Order       int       `json:"order"`
	Description string    `json:"description,omitempty"`

	Required   bool `json:"required"`
	Skippable  bool `json:"skippable,omitempty"`
	Repeatable bool `json:"repeatable,omitempty"`

	// Terminal marks the end of a workflow. Registration cross-checks it
	// against the transition table so a missing transition cannot silently
	// complete a document.
	Terminal bool `json:"terminal,omitempty"`

	// TimeLimit is the number of hours a document may sit in this stage
	// before the deadline scheduler starts escalating.
	TimeLimit int `json:"time_limit,omitempty"`

	Actions           []StageAction `json:"actions"`
	AllowedRoles      []string      `json:"allowed_roles"`
	RequiredApprovals int           `json:"required_approvals,omitempty"`

	EntryConditions []Condition `json:"entry_conditions,omitempty"`
	ExitConditions  []Condition `json:"exit_conditions,omitempty"`
}

// Action looks up a stage action by id.
func (s Stage) Action(id string) (StageAction, bool) {
	for _, a := range s.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return StageAction{}, false
}

// TransitionRule is a directed edge between stages, keyed by action id.
// A (From, Action) pair maps to exactly one destination.
type TransitionRule struct {
	ID         string      `json:"id"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Action     string      `json:"action"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// PermissionMatrix maps stage id -> action id -> allowed role names.
type PermissionMatrix map[string]map[string][]string

// ConditionType selects the evaluation strategy for a condition.
type ConditionType string

const (
	ConditionField ConditionType = "field"
	ConditionRole  ConditionType = "role"
	ConditionTime  ConditionType = "time"
)

// Operator compares a resolved value against a condition target.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "not_exists"
)

// Condition is a single predicate. Field conditions resolve a dot path into
// the transition context; role conditions test the acting user's roles; time
// conditions compare hours elapsed in the current stage.
type Condition struct {
	ID       string        `json:"id"`
	Type     ConditionType `json:"type"`
	Field    string        `json:"field,omitempty"`
	Operator Operator      `json:"operator"`
	Value    any           `json:"value,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// RuleTrigger says when a business rule fires relative to a transition.
type RuleTrigger string

const (
	TriggerPreTransition  RuleTrigger = "pre_transition"
	TriggerPostTransition RuleTrigger = "post_transition"
)

// RuleActionType enumerates the effects a business rule may request.
// execute_script is deliberately unsupported and rejected at registration.
type RuleActionType string

const (
	RuleSetField         RuleActionType = "set_field"
	RuleSendNotification RuleActionType = "send_notification"
	RuleCallAPI          RuleActionType = "call_api"
	RuleTriggerWorkflow  RuleActionType = "trigger_workflow"
)

// RuleAction is one effect of a matched business rule.
type RuleAction struct {
	Type   RuleActionType `json:"type"`
	Config map[string]any `json:"config"`
}

// BusinessRule pairs a condition conjunction with a list of effects.
type BusinessRule struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Trigger    RuleTrigger  `json:"trigger"`
	Conditions []Condition  `json:"conditions"`
	Actions    []RuleAction `json:"actions"`
}

// NotificationTrigger says when a configured notification fires.
type NotificationTrigger string

const (
	NotifyStageEnter          NotificationTrigger = "stage_enter"
	NotifyStageExit           NotificationTrigger = "stage_exit"
	NotifyActionTaken         NotificationTrigger = "action_taken"
	NotifyDeadlineApproaching NotificationTrigger = "deadline_approaching"
	NotifyDeadlinePassed      NotificationTrigger = "deadline_passed"
)

// NotificationConfig declares a notification to generate on a trigger.
type NotificationConfig struct {
	ID         string              `json:"id"`
	Trigger    NotificationTrigger `json:"trigger"`
	Stage      string              `json:"stage,omitempty"`
	Recipients []string            `json:"recipients"`
	Template   string              `json:"template"`
	Channel    string              `json:"channel"`
}

// Settings are definition-wide toggles.
type Settings struct {
	AllowSkipStages bool `json:"allow_skip_stages"`
	RequireComments bool `json:"require_comments"`
	AutoAdvance     bool `json:"auto_advance"`
	TrackHistory    bool `json:"track_history"`
}

// Config is the complete declarative description of one workflow variant.
// It is pure data: a single shared interpreter gives hand-authored and
// imported configurations identical semantics.
type Config struct {
	Stages        []Stage              `json:"stages"`
	Transitions   []TransitionRule     `json:"transitions"`
	Permissions   PermissionMatrix     `json:"permissions"`
	Notifications []NotificationConfig `json:"notifications,omitempty"`
	BusinessRules []BusinessRule       `json:"business_rules,omitempty"`
	Settings      Settings             `json:"settings"`
}

// Hooks are optional best-effort callbacks. They never influence whether a
// transition is accepted; failures are logged and swallowed.
type Hooks struct {
	OnInstall    func(ctx context.Context) error
	OnUninstall  func(ctx context.Context) error
	OnEnable     func(ctx context.Context) error
	OnDisable    func(ctx context.Context) error
	OnStageEnter func(ctx context.Context, stage Stage, wctx *Context) error
	OnStageExit  func(ctx context.Context, stage Stage, wctx *Context) error
	OnComplete   func(ctx context.Context, wctx *Context) error
	OnError      func(ctx context.Context, err error, wctx *Context) error
}

// Definition is a registered workflow variant: identity plus config.
// Immutable once registered.
type Definition struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	Description  string `json:"description"`
	Organization string `json:"organization"`
	Author       string `json:"author,omitempty"`

	Config Config `json:"config"`
	Hooks  *Hooks `json:"-"`
}

// Metadata is the identity half of a Definition, used for listings and import.
type Metadata struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	Description  string `json:"description"`
	Organization string `json:"organization"`
	Author       string `json:"author,omitempty"`
}

// Stages returns the ordered stage list.
func (d *Definition) Stages() []Stage {
	return d.Config.Stages
}

// Stage looks up a stage by id.
func (d *Definition) Stage(id string) (Stage, bool) {
	for _, s := range d.Config.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// Transition finds the rule matching (from, action).
func (d *Definition) Transition(from, action string) (TransitionRule, bool) {
	for _, t := range d.Config.Transitions {
		if t.From == from && t.Action == action {
			return t, true
		}
	}
	return TransitionRule{}, false
}

// InitialStage picks the stage with order 1, falling back to the first stage.
func (d *Definition) InitialStage() Stage {
	for _, s := range d.Config.Stages {
		if s.Order == 1 {
			return s
		}
	}
	return d.Config.Stages[0]
}

// Meta returns the definition's identity.
func (d *Definition) Meta() Metadata {
	return Metadata{
		ID:           d.ID,
		Name:         d.Name,
		Version:      d.Version,
		Description:  d.Description,
		Organization: d.Organization,
		Author:       d.Author,
	}
}

// Document is the engine's view of a document under review. Content lives
// elsewhere; the engine only needs identity and type.
type Document struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// User is the acting principal for a transition.
type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the user holds the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Context carries everything a transition needs to evaluate conditions and
// record history.
type Context struct {
	Document Document       `json:"document"`
	User     User           `json:"user"`
	Action   string         `json:"action"`
	Comment  string         `json:"comment,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HistoryEntry is an append-only record of one workflow event.
type HistoryEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	StageID   string         `json:"stage_id"`
	Action    string         `json:"action"`
	UserID    string         `json:"user_id"`
	UserName  string         `json:"user_name,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// State is the live per-document workflow record. Version is an optimistic
// concurrency counter: every accepted update increments it, and stores reject
// writes whose version does not match what they hold.
type State struct {
	WorkflowID    string         `json:"workflow_id"`
	DocumentID    string         `json:"document_id"`
	CurrentStage  string         `json:"current_stage"`
	PreviousStage string         `json:"previous_stage,omitempty"`
	Status        Status         `json:"status"`
	Version       int64          `json:"version"`
	StartedAt     time.Time      `json:"started_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	History       []HistoryEntry `json:"history"`
}

// Terminal reports whether the state accepts no further transitions.
func (s *State) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

// Notification is a generated message for dispatch by a Notifier.
type Notification struct {
	Recipients []string       `json:"recipients"`
	Channel    string         `json:"channel"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	Priority   string         `json:"priority,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Result is the outcome of a ProcessDocument call. Business-level failures
// are reported here with Success=false rather than as errors.
type Result struct {
	Success       bool           `json:"success"`
	DocumentID    string         `json:"document_id"`
	PreviousStage string         `json:"previous_stage"`
	CurrentStage  string         `json:"current_stage"`
	Action        string         `json:"action"`
	Timestamp     time.Time      `json:"timestamp"`
	Completed     bool           `json:"completed,omitempty"`
	Errors        []string       `json:"errors,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	Data          map[string]any `json:"data,omitempty"`

	// Err carries the sentinel for failed results so callers can map the
	// failure to a transport status. Never serialized.
	Err error `json:"-"`
}

// StageResult is what the interpreter reports after executing a stage.
type StageResult struct {
	Success bool           `json:"success"`
	Errors  []string       `json:"errors,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Statistics summarizes states across one workflow definition.
type Statistics struct {
	Total                 int            `json:"total"`
	ByStatus              map[Status]int `json:"by_status"`
	ByStage               map[string]int `json:"by_stage"`
	AverageCompletionTime time.Duration  `json:"average_completion_time"`
}
