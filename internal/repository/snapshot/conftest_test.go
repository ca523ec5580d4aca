package snapshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/db"
)

// mockKVStore is an in-memory store for tests.
type mockKVStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	delErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockKVStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(ms, "metasearch:", time.Minute, zap.NewNop()), ms
}
