package models

import "time"

// KVEntry is a row in the local key-value table. It backs the small amount
// of state the engine keeps across restarts.
type KVEntry struct {
	Key       string `gorm:"primaryKey;column:entry_key"`
	Value     string
	UpdatedAt time.Time
}
