package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

func TestMutex_LockUnlock(t *testing.T) {
	mr, client := newMiniClient(t)
	ctx := context.Background()

	m := NewMutex(client, "doc-1", nil, WithLockTTL(time.Second))
	require.NoError(t, m.Lock(ctx))
	assert.True(t, mr.Exists("docrev:lock:doc-1"))

	ttl, err := m.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, m.Unlock(ctx))
	assert.False(t, mr.Exists("docrev:lock:doc-1"))

	assert.ErrorIs(t, m.Unlock(ctx), ErrLockNotHeld)
}

func TestMutex_Contention(t *testing.T) {
	_, client := newMiniClient(t)
	ctx := context.Background()

	first := NewMutex(client, "doc-1", nil, WithRetryCount(1), WithRetryDelay(5*time.Millisecond))
	second := NewMutex(client, "doc-1", nil, WithRetryCount(2), WithRetryDelay(5*time.Millisecond))

	require.NoError(t, first.Lock(ctx))
	assert.ErrorIs(t, second.Lock(ctx), ErrLockNotAcquired)

	require.NoError(t, first.Unlock(ctx))
	require.NoError(t, second.Lock(ctx))
	require.NoError(t, second.Unlock(ctx))
}

func TestMutex_ForeignTokenCannotUnlock(t *testing.T) {
	mr, client := newMiniClient(t)
	ctx := context.Background()

	owner := NewMutex(client, "doc-1", nil)
	intruder := NewMutex(client, "doc-1", nil)
	require.NoError(t, owner.Lock(ctx))

	assert.ErrorIs(t, intruder.Unlock(ctx), ErrLockNotHeld)
	assert.True(t, mr.Exists("docrev:lock:doc-1"))

	ok, err := intruder.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutex_ContextCancelled(t *testing.T) {
	_, client := newMiniClient(t)

	holder := NewMutex(client, "doc-1", nil)
	require.NoError(t, holder.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewMutex(client, "doc-1", nil, WithRetryDelay(5*time.Millisecond)).Lock(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChainLocked))
}

func TestMutex_CancelledDuringAttempt(t *testing.T) {
	_, client := newMiniClient(t)

	holder := NewMutex(client, "doc-1", nil)
	require.NoError(t, holder.Lock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMutex(client, "doc-1", nil).Lock(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChainLocked))
	assert.False(t, errors.IsCode(err, errors.ErrCodeCacheError))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMutex_WatchdogStartsAndStops(t *testing.T) {
	_, client := newMiniClient(t)
	ctx := context.Background()

	m := NewMutex(client, "doc-1", nil, WithLockTTL(300*time.Millisecond), WithWatchdog(true))
	require.NoError(t, m.Lock(ctx))
	assert.NotNil(t, m.watchdogCancel)

	require.NoError(t, m.Unlock(ctx))
	assert.Nil(t, m.watchdogCancel)
}

func TestChainLocker_SerialisesWriters(t *testing.T) {
	_, client := newMiniClient(t)
	locker := NewChainLocker(client, logging.NewNopLogger(), WithRetryDelay(2*time.Millisecond))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "chain-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

//Personal.AI order the ending
