package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/drawbot/internal/ports"
)

func TestMemory_AcquireRelease(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "event:e1", time.Minute)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, "event:e1", time.Minute)
	assert.ErrorIs(t, err, ports.ErrLockHeld)

	// otra clave no se ve afectada
	other, err := m.Acquire(ctx, "event:e2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "release is idempotent")

	again, err := m.Acquire(ctx, "event:e1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestMemory_ExpiredLockCanBeTaken(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := m.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	// el dueño viejo no puede liberar el lock nuevo
	require.NoError(t, stale(ctx))
	_, err = m.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ports.ErrLockHeld)

	require.NoError(t, fresh(ctx))
}

func TestMemory_SingleWinnerUnderContention(t *testing.T) {
	m := NewMemory()
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(context.Background(), "hot", time.Minute); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRedis_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, err := NewRedis(client, "drawbot:").Acquire(context.Background(), "event:e1", time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrLockHeld)
	assert.Contains(t, err.Error(), "drawbot:event:e1")
}
