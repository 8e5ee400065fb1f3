package session

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func TestLocalLockerQueueSerializes(t *testing.T) {
	locker := NewLocalLocker(LockModeQueue)
	var active, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "s1")
			require.NoError(t, err)
			defer release()

			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak)
	assert.Zero(t, locker.held())
}

func TestLocalLockerRejectMode(t *testing.T) {
	locker := NewLocalLocker(LockModeReject)

	release, err := locker.Acquire(context.Background(), "s1")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionBusy)

	other, err := locker.Acquire(context.Background(), "s2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := locker.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	again()
	assert.Zero(t, locker.held())
}

func TestLocalLockerQueueHonoursCancellation(t *testing.T) {
	locker := NewLocalLocker(LockModeQueue)
	release, err := locker.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseLockMode(t *testing.T) {
	mode, err := ParseLockMode("reject")
	require.NoError(t, err)
	assert.Equal(t, LockModeReject, mode)

	_, err = ParseLockMode("drop")
	assert.Error(t, err)
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	sessionId := uuid.NewString()
	locker := NewRedisLocker(rdb, LockModeReject, time.Minute)

	release, err := locker.Acquire(context.Background(), sessionId)
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), sessionId)
	assert.ErrorIs(t, err, ErrSessionBusy)

	release()
	again, err := locker.Acquire(context.Background(), sessionId)
	require.NoError(t, err)
	again()
}
