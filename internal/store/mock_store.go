// ABOUTME: Mock Storage implementation for testing
// ABOUTME: In-memory slots with fault injection for read/write failures and quota limits

package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// MockStore is an in-memory Storage implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	slots      map[string]string
	quotaBytes int64
	failReads  error
	failWrites error
	writes     int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		slots: make(map[string]string),
	}
}

// SetQuota limits total stored bytes; zero disables the limit.
func (m *MockStore) SetQuota(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotaBytes = bytes
}

// FailReads makes every GetItem and Keys call return err until reset with nil.
func (m *MockStore) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = err
}

// FailWrites makes every SetItem and RemoveItem call return err until reset with nil.
func (m *MockStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

// Writes reports how many successful SetItem calls have been made.
func (m *MockStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// GetItem returns a stored slot.
func (m *MockStore) GetItem(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failReads != nil {
		return "", m.failReads
	}
	v, ok := m.slots[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// SetItem stores a slot, enforcing the quota if one is set.
func (m *MockStore) SetItem(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites != nil {
		return m.failWrites
	}
	if m.quotaBytes > 0 {
		var used int64
		for k, v := range m.slots {
			if k == key {
				continue
			}
			used += int64(len(k) + len(v))
		}
		if used+int64(len(key)+len(value)) > m.quotaBytes {
			return ErrQuotaExceeded
		}
	}
	m.slots[key] = value
	m.writes++
	return nil
}

// RemoveItem deletes a slot.
func (m *MockStore) RemoveItem(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites != nil {
		return m.failWrites
	}
	delete(m.slots, key)
	return nil
}

// Keys lists slot keys with the given prefix.
func (m *MockStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failReads != nil {
		return nil, m.failReads
	}
	var keys []string
	for k := range m.slots {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}

// ErrStorageDisabled simulates storage that refuses all access.
var ErrStorageDisabled = errors.New("storage disabled")

// Ensure MockStore implements Storage interface
var _ Storage = (*MockStore)(nil)
