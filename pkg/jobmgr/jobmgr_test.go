package jobmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterRunsOnce(t *testing.T) {
	m := NewManager(nil)
	var calls atomic.Int32
	done := make(chan struct{})

	require.NoError(t, m.After("job", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	assert.Eventually(t, func() bool { return len(m.List()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDuplicateNameRejected(t *testing.T) {
	m := NewManager(nil)
	defer m.StopAll()

	require.NoError(t, m.After("dup", time.Hour, func(ctx context.Context) error { return nil }))
	err := m.After("dup", time.Hour, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, []string{"dup"}, m.List())
}

func TestStopAllCancelsPending(t *testing.T) {
	var (
		mu      sync.Mutex
		reports []string
	)
	m := NewManager(func(s string) {
		mu.Lock()
		reports = append(reports, s)
		mu.Unlock()
	})

	var ran atomic.Bool
	require.NoError(t, m.After("a", time.Hour, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))
	require.NoError(t, m.After("b", time.Hour, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))

	m.StopAll()

	assert.False(t, ran.Load())
	assert.Empty(t, m.List())
	assert.Equal(t, "No jobs are running.", m.Status())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, reports, "cancelled:a")
	assert.Contains(t, reports, "cancelled:b")
}

func TestStopUnknownJob(t *testing.T) {
	m := NewManager(nil)
	assert.Error(t, m.Stop("missing"))
}
