package mobile

import (
	"context"
	"github.com/assettrack/notifsync/kvstore"
)

// StorageHost is implemented by the native side to persist small string
// values, typically in the platform's key-value preferences.
type StorageHost interface {
	// Get returns the stored value, or nil if key is not set.
	Get(key string) (*StoredValue, error)

	// Set stores value under key.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// StoredValue is the result of a StorageHost lookup. A nil StoredValue
// means the key was not found.
type StoredValue struct {
	Value string
}

// hostStore adapts a StorageHost to kvstore.Store.
type hostStore struct {
	host StorageHost
}

var _ kvstore.Store = (*hostStore)(nil)

func (s *hostStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := s.host.Get(key)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return v.Value, true, nil
}

func (s *hostStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.host.Set(key, value)
}

func (s *hostStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.host.Delete(key)
}
