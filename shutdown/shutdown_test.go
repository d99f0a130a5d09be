package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFiresAfterDelay(t *testing.T) {
	reg := NewRegistry()
	var fired atomic.Bool
	reg.Schedule(context.Background(), "x", 10*time.Millisecond, func(context.Context) {
		fired.Store(true)
	})
	require.True(t, reg.Pending("x"))
	assert.Eventually(t, fired.Load, time.Second, time.Millisecond)
	assert.False(t, reg.Pending("x"))
}

func TestCancelPreventsFire(t *testing.T) {
	reg := NewRegistry()
	var fired atomic.Bool
	reg.Schedule(context.Background(), "x", 20*time.Millisecond, func(context.Context) {
		fired.Store(true)
	})
	assert.True(t, reg.Cancel("x"))
	time.Sleep(40 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.False(t, reg.Pending("x"))
}

func TestCancelWithoutPendingReturnsFalse(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Cancel("nonexistent"))
}

func TestRemaining(t *testing.T) {
	reg := NewRegistry()
	reg.Schedule(context.Background(), "x", time.Minute, func(context.Context) {})
	remaining, ok := reg.Remaining("x")
	require.True(t, ok)
	assert.Greater(t, remaining, 30*time.Second)

	_, ok = reg.Remaining("nonexistent")
	assert.False(t, ok)
}
