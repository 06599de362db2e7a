package repo

import (
	"github.com/assettrack/notifsync/database"
	"github.com/assettrack/notifsync/database/sqlitedb"
	"io/ioutil"
)

// MockDB returns a migrated in-memory sqlite db.
func MockDB() (database.Database, error) {
	db, err := sqlitedb.NewMemoryDB()
	if err != nil {
		return nil, err
	}
	if err := autoMigrateDatabase(db); err != nil {
		return nil, err
	}
	return db, nil
}

// MockRepo returns a repo which uses a tmp data directory
// and in-memory database.
func MockRepo() (*Repo, error) {
	dataDir, err := ioutil.TempDir("", "notifsync-test")
	if err != nil {
		return nil, err
	}
	return newRepo(dataDir, true)
}
