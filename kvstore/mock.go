package kvstore

import (
	"context"
	"errors"
	"sync"
)

// ErrMockFailure is returned by a MockStore configured to fail.
var ErrMockFailure = errors.New("kvstore: mock failure")

// MockStore is an in-memory Store for tests. Reads and writes can be made
// to fail independently.
type MockStore struct {
	mtx        sync.Mutex
	data       map[string]string
	FailReads  bool
	FailWrites bool
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]string)}
}

// Get returns the value for key.
func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.FailReads {
		return "", false, ErrMockFailure
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MockStore) Set(ctx context.Context, key, value string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.FailWrites {
		return ErrMockFailure
	}
	m.data[key] = value
	return nil
}

// Delete removes key.
func (m *MockStore) Delete(ctx context.Context, key string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.FailWrites {
		return ErrMockFailure
	}
	delete(m.data, key)
	return nil
}

// SetFailures toggles read and write failures.
func (m *MockStore) SetFailures(reads, writes bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.FailReads = reads
	m.FailWrites = writes
}
