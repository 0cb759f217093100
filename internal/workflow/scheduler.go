package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DeadlineScheduler periodically sweeps active workflow states and escalates
// documents that sit in a time-limited stage for too long. One warning and
// one escalation are sent per stage visit; moving the document resets both.
type DeadlineScheduler struct {
	registry *Registry
	store    StateStore
	events   *EventBus
	notifier Notifier
	logger   *zap.Logger
	cron     *cron.Cron

	mu       sync.Mutex
	notified map[string]*stageMarks
}

// stageMarks remembers which alerts went out for a document's current stage.
type stageMarks struct {
	stage string
	kinds map[string]bool
}

func NewDeadlineScheduler(registry *Registry, store StateStore, events *EventBus, notifier Notifier, logger *zap.Logger) *DeadlineScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineScheduler{
		registry: registry,
		store:    store,
		events:   events,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(),
		notified: make(map[string]*stageMarks),
	}
}

// Start registers the sweep on the given cron spec and begins scheduling.
func (s *DeadlineScheduler) Start(spec string) error {
	if spec == "" {
		spec = "@every 15m"
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("deadline scheduler started", zap.String("spec", spec))
	return nil
}

func (s *DeadlineScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("deadline scheduler stopped")
}

// Sweep examines every active state once. Exported so operators can trigger
// a check outside the cron cadence.
func (s *DeadlineScheduler) Sweep(ctx context.Context) {
	states, err := s.store.ListByStatus(ctx, StatusActive)
	if err != nil {
		s.logger.Error("deadline sweep: listing active states failed", zap.Error(err))
		return
	}
	now := time.Now()
	for _, state := range states {
		s.check(ctx, state, now)
	}
}

func (s *DeadlineScheduler) check(ctx context.Context, state *State, now time.Time) {
	def := s.registry.Definition(state.WorkflowID)
	if def == nil {
		return
	}
	stage, ok := def.Stage(state.CurrentStage)
	if !ok || stage.TimeLimit <= 0 {
		return
	}

	entered := state.StartedAt
	if n := len(state.History); n > 0 {
		entered = state.History[n-1].Timestamp
	}
	limit := time.Duration(stage.TimeLimit) * time.Hour
	elapsed := now.Sub(entered)

	switch {
	case elapsed >= limit:
		if s.once(state.DocumentID, state.CurrentStage, "passed") {
			s.escalate(ctx, def, stage, state, elapsed, limit)
		}
	case elapsed >= limit*4/5:
		if s.once(state.DocumentID, state.CurrentStage, "approaching") {
			s.warn(ctx, def, stage, state, limit-elapsed)
		}
	}
}

// once records that a notification kind was sent for a document's current
// stage visit. Entering a new stage discards the previous stage's marks.
func (s *DeadlineScheduler) once(documentID, stageID, kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	marks := s.notified[documentID]
	if marks == nil || marks.stage != stageID {
		marks = &stageMarks{stage: stageID, kinds: make(map[string]bool)}
		s.notified[documentID] = marks
	}
	if marks.kinds[kind] {
		return false
	}
	marks.kinds[kind] = true
	return true
}

func (s *DeadlineScheduler) warn(ctx context.Context, def *Definition, stage Stage, state *State, remaining time.Duration) {
	s.logger.Info("stage deadline approaching",
		zap.String("document_id", state.DocumentID),
		zap.String("workflow_id", def.ID),
		zap.String("stage", stage.ID),
		zap.Duration("remaining", remaining))
	s.send(ctx, def, stage, state, NotifyDeadlineApproaching,
		fmt.Sprintf("Document %s is approaching its deadline in stage %s (%s remaining)",
			state.DocumentID, stage.Name, remaining.Round(time.Minute)))
}

func (s *DeadlineScheduler) escalate(ctx context.Context, def *Definition, stage Stage, state *State, elapsed, limit time.Duration) {
	s.logger.Warn("stage deadline passed",
		zap.String("document_id", state.DocumentID),
		zap.String("workflow_id", def.ID),
		zap.String("stage", stage.ID),
		zap.Duration("elapsed", elapsed),
		zap.Duration("limit", limit))
	s.send(ctx, def, stage, state, NotifyDeadlinePassed,
		fmt.Sprintf("Document %s has exceeded the %s time limit for stage %s",
			state.DocumentID, limit, stage.Name))
	if s.events != nil {
		s.events.Publish(Event{
			Type:       EventEscalated,
			WorkflowID: def.ID,
			DocumentID: state.DocumentID,
			To:         stage.ID,
			Data: map[string]any{
				"time_limit_hours": stage.TimeLimit,
				"elapsed_hours":    elapsed.Hours(),
			},
		})
	}
}

func (s *DeadlineScheduler) send(ctx context.Context, def *Definition, stage Stage, state *State, trigger NotificationTrigger, body string) {
	if s.notifier == nil {
		return
	}
	sent := false
	for _, nc := range def.Config.Notifications {
		if nc.Trigger != trigger {
			continue
		}
		if nc.Stage != "" && nc.Stage != stage.ID {
			continue
		}
		n := Notification{
			Recipients: nc.Recipients,
			Channel:    nc.Channel,
			Subject:    fmt.Sprintf("Deadline alert: %s", stage.Name),
			Body:       body,
			Priority:   "high",
			Data:       map[string]any{"document_id": state.DocumentID, "stage": stage.ID},
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("deadline notification failed", zap.String("document_id", state.DocumentID), zap.Error(err))
		}
		sent = true
	}
	if sent {
		return
	}
	// No configured deadline notification: fall back to the stage's roles.
	recipients := stage.AllowedRoles
	if len(recipients) == 0 {
		return
	}
	n := Notification{
		Recipients: recipients,
		Channel:    "in_app",
		Subject:    fmt.Sprintf("Deadline alert: %s", stage.Name),
		Body:       body,
		Priority:   "high",
		Data:       map[string]any{"document_id": state.DocumentID, "stage": stage.ID},
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("deadline notification failed", zap.String("document_id", state.DocumentID), zap.Error(err))
	}
}
