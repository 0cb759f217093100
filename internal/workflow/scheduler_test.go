package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timedDefinition puts a 10 hour limit on draft so sweeps have
// something to alert on.
func timedDefinition() *Definition {
	def := approvalDefinition()
	def.Config.Stages[0].TimeLimit = 10
	return def
}

func newTestScheduler(t *testing.T, def *Definition) (*DeadlineScheduler, *MemoryStateStore, *captureNotifier, *EventBus) {
	t.Helper()
	registry := NewRegistry(nil, nil)
	require.NoError(t, registry.Register(context.Background(), def))

	store := NewMemoryStateStore()
	notifier := &captureNotifier{}
	events := NewEventBus()
	return NewDeadlineScheduler(registry, store, events, notifier, nil), store, notifier, events
}

// seedState stores an active state whose last history entry is `age` old.
func seedState(t *testing.T, store *MemoryStateStore, docID string, age time.Duration) {
	t.Helper()
	entered := time.Now().Add(-age)
	state := &State{
		WorkflowID:   "test-approval",
		DocumentID:   docID,
		CurrentStage: "draft",
		Status:       StatusActive,
		StartedAt:    entered,
		UpdatedAt:    entered,
		History: []HistoryEntry{{
			ID:        "h1",
			Timestamp: entered,
			StageID:   "draft",
			Action:    "workflow_started",
		}},
	}
	require.NoError(t, store.CreateState(context.Background(), state))
}

func TestSweepWarnsAtEightyPercent(t *testing.T) {
	scheduler, store, notifier, _ := newTestScheduler(t, timedDefinition())
	seedState(t, store, "doc-1", 9*time.Hour) // 90% of the 10h limit

	scheduler.Sweep(context.Background())

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "approaching its deadline")
	assert.Equal(t, "high", sent[0].Priority)
	// Stage has no deadline notification config, so the fallback goes to
	// the stage's roles.
	assert.Equal(t, []string{"author"}, sent[0].Recipients)
}

func TestSweepEscalatesPastLimit(t *testing.T) {
	scheduler, store, notifier, events := newTestScheduler(t, timedDefinition())
	seedState(t, store, "doc-1", 12*time.Hour)

	var mu sync.Mutex
	var escalations []Event
	events.Subscribe(EventEscalated, func(e Event) {
		mu.Lock()
		escalations = append(escalations, e)
		mu.Unlock()
	})

	scheduler.Sweep(context.Background())

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "exceeded")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, escalations, 1)
	assert.Equal(t, "doc-1", escalations[0].DocumentID)
	assert.Equal(t, "draft", escalations[0].To)
}

func TestSweepAlertsOncePerStageVisit(t *testing.T) {
	scheduler, store, notifier, _ := newTestScheduler(t, timedDefinition())
	seedState(t, store, "doc-1", 12*time.Hour)

	scheduler.Sweep(context.Background())
	scheduler.Sweep(context.Background())
	scheduler.Sweep(context.Background())

	assert.Len(t, notifier.all(), 1, "repeated sweeps must not re-alert the same stage visit")
}

func TestSweepResetsWhenStageChanges(t *testing.T) {
	scheduler, store, notifier, _ := newTestScheduler(t, timedDefinition())
	seedState(t, store, "doc-1", 12*time.Hour)
	ctx := context.Background()

	scheduler.Sweep(ctx)
	require.Len(t, notifier.all(), 1)

	// Document moves on, then comes back to draft late again.
	state, _ := store.GetState(ctx, "doc-1")
	entered := time.Now().Add(-11 * time.Hour)
	state.CurrentStage = "review"
	state.History = append(state.History, HistoryEntry{ID: "h2", Timestamp: entered, StageID: "review", Action: "submit"})
	require.NoError(t, store.UpdateState(ctx, state))

	state, _ = store.GetState(ctx, "doc-1")
	state.CurrentStage = "draft"
	state.History = append(state.History, HistoryEntry{ID: "h3", Timestamp: entered, StageID: "draft", Action: "reject"})
	require.NoError(t, store.UpdateState(ctx, state))

	scheduler.Sweep(ctx)
	assert.Len(t, notifier.all(), 2, "re-entering the stage arms the alert again")
}

func TestSweepIgnoresStagesWithoutTimeLimit(t *testing.T) {
	scheduler, store, notifier, _ := newTestScheduler(t, approvalDefinition())
	seedState(t, store, "doc-1", 200*time.Hour)

	scheduler.Sweep(context.Background())
	assert.Empty(t, notifier.all())
}

func TestSweepUsesConfiguredDeadlineNotification(t *testing.T) {
	def := timedDefinition()
	def.Config.Notifications = append(def.Config.Notifications, NotificationConfig{
		ID:         "n-deadline",
		Trigger:    NotifyDeadlinePassed,
		Stage:      "draft",
		Recipients: []string{"current_assignee"},
		Channel:    "email",
	})
	scheduler, store, notifier, _ := newTestScheduler(t, def)
	seedState(t, store, "doc-1", 12*time.Hour)

	scheduler.Sweep(context.Background())

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "email", sent[0].Channel)
	assert.Equal(t, []string{"current_assignee"}, sent[0].Recipients)
}
