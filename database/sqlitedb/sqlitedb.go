package sqlitedb

import (
	"errors"
	"fmt"
	"github.com/assettrack/notifsync/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"os"
	"path"
	"sync"
)

const dbName = "notifsync.db"

// ErrReadOnly is returned when a write is attempted on a View transaction.
var ErrReadOnly = errors.New("tx is read only")

// DB is an implementation of the Database interface using gorm and sqlite.
type DB struct {
	db  *gorm.DB
	mtx sync.Mutex
}

// NewSqliteDB opens (creating if necessary) the database file in dataDir.
func NewSqliteDB(dataDir string) (database.Database, error) {
	if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
		return nil, err
	}
	return open(path.Join(dataDir, dbName))
}

// NewMemoryDB returns a database held entirely in memory.
func NewMemoryDB() (database.Database, error) {
	return open(":memory:")
}

func open(dsn string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	return &DB{db: db}, nil
}

// View invokes the passed function in the context of a managed
// read-only transaction. Any errors returned from the user-supplied
// function are returned from this function.
func (sdb *DB) View(fn func(tx database.Tx) error) error {
	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()

	t := readTx(sdb.db)
	if err := fn(t); err != nil {
		t.Rollback()
		return err
	}
	return t.Commit()
}

// Update invokes the passed function in the context of a managed
// read-write transaction. Any errors returned from the user-supplied
// function will cause the transaction to be rolled back and are
// returned from this function. Otherwise, the transaction is committed
// when the user-supplied function returns a nil error.
func (sdb *DB) Update(fn func(tx database.Tx) error) error {
	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()

	t := writeTx(sdb.db)
	if err := fn(t); err != nil {
		t.Rollback()
		return err
	}
	return t.Commit()
}

// Close cleanly shuts down the database.
func (sdb *DB) Close() error {
	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()

	sqlDB, err := sdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type tx struct {
	dbtx *gorm.DB

	closed      bool
	isForWrites bool
}

func writeTx(db *gorm.DB) *tx {
	return &tx{dbtx: db.Begin(), isForWrites: true}
}

func readTx(db *gorm.DB) *tx {
	return &tx{dbtx: db, isForWrites: false}
}

// Commit commits all changes that have been made to the db.
func (t *tx) Commit() error {
	if t.closed {
		panic("tx already closed")
	}

	defer func() { t.closed = true }()

	if !t.isForWrites {
		return nil
	}
	return t.dbtx.Commit().Error
}

// Rollback undoes all changes that have been made to the db.
func (t *tx) Rollback() error {
	if t.closed {
		panic("tx already closed")
	}

	defer func() { t.closed = true }()

	if !t.isForWrites {
		return nil
	}
	return t.dbtx.Rollback().Error
}

// Read returns the underlying sql database so that queries can be made
// against it.
func (t *tx) Read() *gorm.DB {
	return t.dbtx
}

// Save will save the passed in model to the database. If it already exists
// it will be overridden.
func (t *tx) Save(model interface{}) error {
	if !t.isForWrites {
		return ErrReadOnly
	}
	return t.dbtx.Save(model).Error
}

// Delete will delete all models of the given type from the database where
// key == value.
func (t *tx) Delete(key string, value interface{}, model interface{}) error {
	if !t.isForWrites {
		return ErrReadOnly
	}
	return t.dbtx.Where(fmt.Sprintf("%s = ?", key), value).Delete(model).Error
}

// Migrate will auto-migrate the database from any previous schema for this
// model to the current schema.
func (t *tx) Migrate(model interface{}) error {
	if !t.isForWrites {
		return ErrReadOnly
	}
	return t.dbtx.AutoMigrate(model)
}
