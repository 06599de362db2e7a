package database

import "gorm.io/gorm"

// Tx represents a database transaction. It can either by read-only or
// read-write.
//
// As would be expected with a transaction, no changes will be saved to the
// database until it has been committed. Transactions should not be long
// running operations.
type Tx interface {
	// Commit commits all changes that have been made to the db. Calling this
	// function on a managed transaction will result in a panic.
	Commit() error

	// Rollback undoes all changes that have been made to the db. Calling
	// this function on a managed transaction will result in a panic.
	Rollback() error

	// Read returns the underlying sql database so that queries can be made
	// against it.
	Read() *gorm.DB

	// Save will save the passed in model to the database. If it already exists
	// it will be overridden.
	Save(i interface{}) error

	// Delete will delete all models of the given type from the database where
	// key == value.
	Delete(key string, value interface{}, model interface{}) error

	// Migrate will auto-migrate the database from any previous schema for this
	// model to the current schema.
	Migrate(model interface{}) error
}

// Database is an interface which exposes a minimal amount of functions
// needed to atomically read and write to the database.
type Database interface {
	// View invokes the passed function in the context of a managed
	// read-only transaction. Any errors returned from the user-supplied
	// function are returned from this function.
	View(fn func(tx Tx) error) error

	// Update invokes the passed function in the context of a managed
	// read-write transaction. Any errors returned from the user-supplied
	// function will cause the transaction to be rolled back and are
	// returned from this function. Otherwise, the transaction is committed
	// when the user-supplied function returns a nil error.
	Update(fn func(tx Tx) error) error

	// Close cleanly shuts down the database. It will block until all
	// database transactions have been finalized.
	Close() error
}
