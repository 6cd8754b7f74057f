package refreshstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
	"github.com/veraxlabs/go-access-server/token/refreshstore"
)

func testRecord(tokenStr string) *refreshstore.Record {
	now := time.Now()
	return &refreshstore.Record{
		Token:      tokenStr,
		UserAgent:  "test-agent",
		IP:         "127.0.0.1",
		CreatedAt:  now,
		LastUsedAt: now,
	}
}

func TestInMemoryPutAndTake(t *testing.T) {
	ctx := context.Background()
	store := refreshstore.NewInMemoryStore()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))

	record, err := store.TakeIfPresent(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", record.Token)
	assert.Equal(t, "test-agent", record.UserAgent)

	// Consumed exactly once: the second take observes absence.
	_, err = store.TakeIfPresent(ctx, "u1", "t1")
	require.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestInMemoryTakeAbsent(t *testing.T) {
	store := refreshstore.NewInMemoryStore()
	_, err := store.TakeIfPresent(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestInMemoryExpiredEntryIsAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	current := now
	store := refreshstore.NewInMemoryStore(
		refreshstore.WithInMemoryNowFunc(func() time.Time { return current }),
	)

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Minute))

	current = now.Add(2 * time.Minute)
	_, err := store.TakeIfPresent(ctx, "u1", "t1")
	require.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestInMemoryDeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	store := refreshstore.NewInMemoryStore()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))
	require.NoError(t, store.Put(ctx, "u1", "t2", testRecord("tok-2"), time.Hour))
	require.NoError(t, store.Put(ctx, "u2", "t3", testRecord("tok-3"), time.Hour))

	count, err := store.DeleteAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Idempotent: a second bulk delete is a no-op.
	count, err = store.DeleteAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The other user's entry survives.
	exists, err := store.Exists(ctx, "u2", "t3")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInMemoryExistsDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	store := refreshstore.NewInMemoryStore()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))

	exists, err := store.Exists(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Still takeable afterwards.
	_, err = store.TakeIfPresent(ctx, "u1", "t1")
	require.NoError(t, err)
}

func TestInMemoryConcurrentTakeSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := refreshstore.NewInMemoryStore()
	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))

	const callers = 32
	var (
		wg      sync.WaitGroup
		winners int64
		mu      sync.Mutex
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := store.TakeIfPresent(ctx, "u1", "t1"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), winners, "exactly one caller may observe the record")
}
