package refreshstore

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a mutex-guarded map implementation for tests and
// single-process deployments. Expired entries are treated as absent on read
// and reaped lazily.
type InMemoryStore struct {
	entries map[string]*memoryEntry
	lock    sync.Mutex
	nowFunc func() time.Time
}

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithInMemoryNowFunc overrides the clock (for expiry tests).
func WithInMemoryNowFunc(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.nowFunc = now
	}
}

func NewInMemoryStore(options ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]*memoryEntry),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Put(_ context.Context, userID, tokenID string, record *Record, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entries[memoryKey(userID, tokenID)] = &memoryEntry{
		record:    *record,
		expiresAt: s.nowFunc().Add(ttl),
	}
	return nil
}

// TakeIfPresent holds the lock across read and delete, so concurrent callers
// on the same key serialize and at most one observes the record.
func (s *InMemoryStore) TakeIfPresent(_ context.Context, userID, tokenID string) (*Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := memoryKey(userID, tokenID)
	entry, ok := s.entries[key]
	if !ok {
		return nil, apperrors.ErrRecordNotFound
	}
	delete(s.entries, key)

	if s.nowFunc().After(entry.expiresAt) {
		return nil, apperrors.ErrRecordNotFound
	}
	record := entry.record
	return &record, nil
}

func (s *InMemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	prefix := userID + keySeparator
	now := s.nowFunc()
	deleted := 0
	for key, entry := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		live := !now.After(entry.expiresAt)
		delete(s.entries, key)
		if live {
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) Exists(_ context.Context, userID, tokenID string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	entry, ok := s.entries[memoryKey(userID, tokenID)]
	if !ok {
		return false, nil
	}
	if s.nowFunc().After(entry.expiresAt) {
		delete(s.entries, memoryKey(userID, tokenID))
		return false, nil
	}
	return true, nil
}

const keySeparator = "\x00"

func memoryKey(userID, tokenID string) string {
	return userID + keySeparator + tokenID
}
