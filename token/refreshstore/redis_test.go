package refreshstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
	"github.com/veraxlabs/go-access-server/token/refreshstore"
)

// setupRedisStoreTest creates a miniredis instance and returns the store and
// a cleanup function.
func setupRedisStoreTest(t *testing.T) (*refreshstore.RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := refreshstore.NewRedisStoreWithClient(client)

	cleanup := func() {
		store.Close()
		mr.Close()
	}
	return store, mr, cleanup
}

func TestRedisPutAndTake(t *testing.T) {
	store, _, cleanup := setupRedisStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))

	record, err := store.TakeIfPresent(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", record.Token)
	assert.Equal(t, "127.0.0.1", record.IP)

	_, err = store.TakeIfPresent(ctx, "u1", "t1")
	require.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestRedisTakeAbsent(t *testing.T) {
	store, _, cleanup := setupRedisStoreTest(t)
	defer cleanup()

	_, err := store.TakeIfPresent(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestRedisEntryExpires(t *testing.T) {
	store, mr, cleanup := setupRedisStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.TakeIfPresent(ctx, "u1", "t1")
	require.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestRedisDeleteAllForUser(t *testing.T) {
	store, _, cleanup := setupRedisStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))
	require.NoError(t, store.Put(ctx, "u1", "t2", testRecord("tok-2"), time.Hour))
	require.NoError(t, store.Put(ctx, "u2", "t3", testRecord("tok-3"), time.Hour))

	count, err := store.DeleteAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.DeleteAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	exists, err := store.Exists(ctx, "u2", "t3")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisExistsDoesNotConsume(t *testing.T) {
	store, _, cleanup := setupRedisStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))

	exists, err := store.Exists(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.TakeIfPresent(ctx, "u1", "t1")
	require.NoError(t, err)
}

func TestRedisStorageUnavailable(t *testing.T) {
	store, mr, cleanup := setupRedisStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	mr.Close()

	err := store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour)
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	_, err = store.TakeIfPresent(ctx, "u1", "t1")
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	_, err = store.DeleteAllForUser(ctx, "u1")
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestRedisConcurrentTakeSingleWinner(t *testing.T) {
	store, _, cleanup := setupRedisStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "t1", testRecord("tok-1"), time.Hour))

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
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

	assert.Equal(t, 1, winners)
}
