package workflow

import (
	"context"
	"sync"
	"time"
)

// StateStore persists per-document workflow state. UpdateState must perform a
// compare-and-swap on State.Version: the caller passes the state with the
// version it read, the store verifies it still matches, then increments it.
// A mismatch returns ErrConflict.
type StateStore interface {
	CreateState(ctx context.Context, state *State) error
	GetState(ctx context.Context, documentID string) (*State, error)
	UpdateState(ctx context.Context, state *State) error
	DeleteState(ctx context.Context, documentID string) error

	ListByWorkflow(ctx context.Context, workflowID string) ([]*State, error)
	ListByStatus(ctx context.Context, status Status) ([]*State, error)
	ListByStage(ctx context.Context, workflowID, stageID string) ([]*State, error)

	// ListOverdue returns active states not updated since the cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time) ([]*State, error)

	// CleanupStale removes terminal states older than the cutoff and
	// returns how many were deleted.
	CleanupStale(ctx context.Context, cutoff time.Time) (int, error)

	Statistics(ctx context.Context, workflowID string) (*Statistics, error)
}

// RegistryStore is the durable side of the registry. Persistence is
// best-effort: the in-memory registry stays authoritative when a store call
// fails.
type RegistryStore interface {
	SaveDefinition(ctx context.Context, def *Definition) error
	DeleteDefinition(ctx context.Context, id string) error
	SaveActivation(ctx context.Context, documentType, definitionID string) error
	DeleteActivation(ctx context.Context, documentType string) error
	LoadActivations(ctx context.Context) (map[string]string, error)
}

// MemoryStateStore is a map-backed StateStore used in tests and as the
// default when no database is configured.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]*State)}
}

func (m *MemoryStateStore) CreateState(_ context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[state.DocumentID]; ok {
		return ErrDuplicate
	}
	state.Version = 1
	m.states[state.DocumentID] = cloneState(state)
	return nil
}

func (m *MemoryStateStore) GetState(_ context.Context, documentID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[documentID]
	if !ok {
		return nil, nil
	}
	return cloneState(s), nil
}

func (m *MemoryStateStore) UpdateState(_ context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.states[state.DocumentID]
	if !ok {
		return notFoundErrorf("state for document %s", state.DocumentID)
	}
	if cur.Version != state.Version {
		return ErrConflict
	}
	state.Version++
	m.states[state.DocumentID] = cloneState(state)
	return nil
}

func (m *MemoryStateStore) DeleteState(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[documentID]; !ok {
		return notFoundErrorf("state for document %s", documentID)
	}
	delete(m.states, documentID)
	return nil
}

func (m *MemoryStateStore) ListByWorkflow(_ context.Context, workflowID string) ([]*State, error) {
	return m.filter(func(s *State) bool { return s.WorkflowID == workflowID }), nil
}

func (m *MemoryStateStore) ListByStatus(_ context.Context, status Status) ([]*State, error) {
	return m.filter(func(s *State) bool { return s.Status == status }), nil
}

func (m *MemoryStateStore) ListByStage(_ context.Context, workflowID, stageID string) ([]*State, error) {
	return m.filter(func(s *State) bool {
		return s.WorkflowID == workflowID && s.CurrentStage == stageID
	}), nil
}

func (m *MemoryStateStore) ListOverdue(_ context.Context, cutoff time.Time) ([]*State, error) {
	return m.filter(func(s *State) bool {
		return s.Status == StatusActive && s.UpdatedAt.Before(cutoff)
	}), nil
}

func (m *MemoryStateStore) CleanupStale(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.states {
		if s.Terminal() && s.UpdatedAt.Before(cutoff) {
			delete(m.states, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStateStore) Statistics(_ context.Context, workflowID string) (*Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &Statistics{
		ByStatus: make(map[Status]int),
		ByStage:  make(map[string]int),
	}
	var completed int
	var totalCompletion time.Duration
	for _, s := range m.states {
		if s.WorkflowID != workflowID {
			continue
		}
		stats.Total++
		stats.ByStatus[s.Status]++
		stats.ByStage[s.CurrentStage]++
		if s.Status == StatusCompleted && s.CompletedAt != nil {
			completed++
			totalCompletion += s.CompletedAt.Sub(s.StartedAt)
		}
	}
	if completed > 0 {
		stats.AverageCompletionTime = totalCompletion / time.Duration(completed)
	}
	return stats, nil
}

func (m *MemoryStateStore) filter(keep func(*State) bool) []*State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*State
	for _, s := range m.states {
		if keep(s) {
			out = append(out, cloneState(s))
		}
	}
	return out
}

func cloneState(s *State) *State {
	c := *s
	c.History = append([]HistoryEntry(nil), s.History...)
	if s.Data != nil {
		c.Data = make(map[string]any, len(s.Data))
		for k, v := range s.Data {
			c.Data[k] = v
		}
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
