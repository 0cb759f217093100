package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("stats:wf-1", 42)

	v, ok := c.Get("stats:wf-1")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, c.Size())

	c.Delete("stats:wf-1")
	_, ok = c.Get("stats:wf-1")
	assert.False(t, ok)
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Stop()

	c.Set("stats:wf-1", 42)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("stats:wf-1")
	assert.False(t, ok)
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	calls := 0
	compute := func() (any, error) {
		calls++
		return "workbook", nil
	}

	v, err := c.GetOrCompute("k", compute)
	assert.NoError(t, err)
	assert.Equal(t, "workbook", v)

	v, err = c.GetOrCompute("k", compute)
	assert.NoError(t, err)
	assert.Equal(t, "workbook", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	calls := 0
	boom := errors.New("query failed")
	compute := func() (any, error) {
		calls++
		return nil, boom
	}

	_, err := c.GetOrCompute("k", compute)
	assert.ErrorIs(t, err, boom)

	_, err = c.GetOrCompute("k", compute)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
