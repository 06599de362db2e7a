// Package kvstore holds the persistent string key-value store the engine
// uses to survive restarts.
package kvstore

import (
	"context"
	"errors"
	"github.com/assettrack/notifsync/database"
	"github.com/assettrack/notifsync/models"
	"gorm.io/gorm"
	"time"
)

// Store is an async-capable string key-value store. Callers treat every
// operation as best-effort.
type Store interface {
	// Get returns the value for key. The bool is false if the key is unset.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an unset key is not an error.
	Delete(ctx context.Context, key string) error
}

// SQLStore is a Store backed by the local sqlite database.
type SQLStore struct {
	db database.Database
}

// NewSQLStore returns a Store persisting to db. The KVEntry table must
// already be migrated.
func NewSQLStore(db database.Database) *SQLStore {
	return &SQLStore{db: db}
}

// Get returns the value for key.
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var entry models.KVEntry
	err := s.db.View(func(tx database.Tx) error {
		return tx.Read().Where("entry_key = ?", key).First(&entry).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set stores value under key.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx database.Tx) error {
		return tx.Save(&models.KVEntry{
			Key:       key,
			Value:     value,
			UpdatedAt: time.Now(),
		})
	})
}

// Delete removes key.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx database.Tx) error {
		return tx.Delete("entry_key", key, &models.KVEntry{})
	})
}
