package refreshstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
)

var _ Store = (*RedisStore)(nil)

// takeScript reads and deletes a key in a single script invocation. Redis
// executes scripts atomically, so of N concurrent callers on the same key
// exactly one receives the value and the rest receive nil.
var takeScript = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if value then
	redis.call('DEL', KEYS[1])
end
return value
`)

// RedisStore is the networked Store implementation, for deployments where
// multiple server processes share refresh token state.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisStore{
		client: client,
		prefix: "refresh",
	}, nil
}

// NewRedisStoreWithClient wraps an existing client (used in tests).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "refresh",
	}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Put(ctx context.Context, userID, tokenID string, record *Record, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "RedisStore.Put marshal")
	}
	if err := s.client.Set(ctx, s.key(userID, tokenID), data, ttl).Err(); err != nil {
		return apperrors.Wrapf(apperrors.ErrStorageUnavailable, "RedisStore.Put: %v", err)
	}
	return nil
}

func (s *RedisStore) TakeIfPresent(ctx context.Context, userID, tokenID string) (*Record, error) {
	result, err := takeScript.Run(ctx, s.client, []string{s.key(userID, tokenID)}).Result()
	if err == redis.Nil {
		return nil, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStorageUnavailable, "RedisStore.TakeIfPresent: %v", err)
	}

	raw, ok := result.(string)
	if !ok {
		return nil, apperrors.ErrRecordNotFound
	}
	record := &Record{}
	if err := json.Unmarshal([]byte(raw), record); err != nil {
		return nil, errors.Wrap(err, "RedisStore.TakeIfPresent unmarshal")
	}
	return record, nil
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	pattern := fmt.Sprintf("%s:%s:*", s.prefix, userID)

	deleted := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, apperrors.Wrapf(apperrors.ErrStorageUnavailable, "RedisStore.DeleteAllForUser scan: %v", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, apperrors.Wrapf(apperrors.ErrStorageUnavailable, "RedisStore.DeleteAllForUser del: %v", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

func (s *RedisStore) Exists(ctx context.Context, userID, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(userID, tokenID)).Result()
	if err != nil {
		return false, apperrors.Wrapf(apperrors.ErrStorageUnavailable, "RedisStore.Exists: %v", err)
	}
	return n > 0, nil
}

// key builds "refresh:{userID}:{tokenID}". User and token IDs are UUIDs, so
// the separator never appears inside a component.
func (s *RedisStore) key(userID, tokenID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, userID, tokenID)
}
