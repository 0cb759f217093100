package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const stateCachePrefix = "workflow:state:"

// CachedStateStore is a read-through Redis cache in front of a durable
// StateStore. Cache failures are logged and never surfaced; the inner
// store stays authoritative.
type CachedStateStore struct {
	inner  StateStore
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStateStore(inner StateStore, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedStateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStateStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CachedStateStore) CreateState(ctx context.Context, state *State) error {
	if err := c.inner.CreateState(ctx, state); err != nil {
		return err
	}
	c.set(ctx, state)
	return nil
}

func (c *CachedStateStore) GetState(ctx context.Context, documentID string) (*State, error) {
	raw, err := c.client.Get(ctx, stateCachePrefix+documentID).Bytes()
	if err == nil {
		var state State
		if jsonErr := json.Unmarshal(raw, &state); jsonErr == nil {
			return &state, nil
		}
		c.invalidate(ctx, documentID)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("state cache read failed", zap.String("document_id", documentID), zap.Error(err))
	}

	state, err := c.inner.GetState(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		c.set(ctx, state)
	}
	return state, nil
}

func (c *CachedStateStore) UpdateState(ctx context.Context, state *State) error {
	if err := c.inner.UpdateState(ctx, state); err != nil {
		if errors.Is(err, ErrConflict) {
			c.invalidate(ctx, state.DocumentID)
		}
		return err
	}
	c.set(ctx, state)
	return nil
}

func (c *CachedStateStore) DeleteState(ctx context.Context, documentID string) error {
	if err := c.inner.DeleteState(ctx, documentID); err != nil {
		return err
	}
	c.invalidate(ctx, documentID)
	return nil
}

func (c *CachedStateStore) ListByWorkflow(ctx context.Context, workflowID string) ([]*State, error) {
	return c.inner.ListByWorkflow(ctx, workflowID)
}

func (c *CachedStateStore) ListByStatus(ctx context.Context, status Status) ([]*State, error) {
	return c.inner.ListByStatus(ctx, status)
}

func (c *CachedStateStore) ListByStage(ctx context.Context, workflowID, stageID string) ([]*State, error) {
	return c.inner.ListByStage(ctx, workflowID, stageID)
}

func (c *CachedStateStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]*State, error) {
	return c.inner.ListOverdue(ctx, cutoff)
}

func (c *CachedStateStore) CleanupStale(ctx context.Context, cutoff time.Time) (int, error) {
	return c.inner.CleanupStale(ctx, cutoff)
}

func (c *CachedStateStore) Statistics(ctx context.Context, workflowID string) (*Statistics, error) {
	return c.inner.Statistics(ctx, workflowID)
}

func (c *CachedStateStore) set(ctx context.Context, state *State) {
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, stateCachePrefix+state.DocumentID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("state cache write failed", zap.String("document_id", state.DocumentID), zap.Error(err))
	}
}

func (c *CachedStateStore) invalidate(ctx context.Context, documentID string) {
	if err := c.client.Del(ctx, stateCachePrefix+documentID).Err(); err != nil {
		c.logger.Warn("state cache invalidate failed", zap.String("document_id", documentID), zap.Error(err))
	}
}
