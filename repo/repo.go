// Package repo manages the notifsync data directory: the config file, the
// log directory and the sqlite database backing the key-value store.
package repo

import (
	"fmt"
	"github.com/assettrack/notifsync/database"
	"github.com/assettrack/notifsync/database/sqlitedb"
	"github.com/assettrack/notifsync/models"
	"github.com/op/go-logging"
	"io/ioutil"
	"os"
	"path"
	"strconv"
	"strings"
)

const (
	// defaultRepoVersion is the current repo version used for migrations.
	defaultRepoVersion = 1

	// versionFileName is the name of the version file.
	versionFileName = "version"
)

var log = logging.MustGetLogger("REPO")

// ErrRepoTooNew is returned when the data directory was written by a newer
// version of notifsync.
var ErrRepoTooNew = fmt.Errorf("repo version is newer than %d", defaultRepoVersion)

// Repo is a representation of a notifsync data directory.
// In this we store:
// - The notifsync.conf file
// - The logs directory
// - The sqlite database holding the preference cache and token bookkeeping
type Repo struct {
	db      database.Database
	dataDir string
}

// NewRepo returns a new Repo for the given data directory. It will
// be initialized if it is not already.
func NewRepo(dataDir string) (*Repo, error) {
	return newRepo(dataDir, false)
}

// DB returns the database implementation.
func (r *Repo) DB() database.Database {
	return r.db
}

// DataDir returns the data directory associated with this repo.
func (r *Repo) DataDir() string {
	return r.dataDir
}

// Close will close the repo and associated databases.
func (r *Repo) Close() error {
	return r.db.Close()
}

// DestroyRepo deletes the entire directory. Do NOT use this unless you are
// positive you want to wipe all data.
func (r *Repo) DestroyRepo() error {
	if err := r.db.Close(); err != nil {
		return err
	}
	return os.RemoveAll(r.dataDir)
}

// Version returns the repo version recorded on disk, or zero if none was.
func (r *Repo) Version() (int, error) {
	b, err := ioutil.ReadFile(path.Join(r.dataDir, versionFileName))
	if os.IsNotExist(err) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

// writeVersion writes the version number to file.
func (r *Repo) writeVersion(version int) error {
	versionStr := strconv.Itoa(version)
	return ioutil.WriteFile(path.Join(r.dataDir, versionFileName), []byte(versionStr), 0600)
}

func newRepo(dataDir string, inMemoryDB bool) (*Repo, error) {
	if err := checkWriteable(dataDir); err != nil {
		return nil, err
	}

	var (
		db  database.Database
		err error
	)
	if inMemoryDB {
		db, err = sqlitedb.NewMemoryDB()
	} else {
		db, err = sqlitedb.NewSqliteDB(dataDir)
	}
	if err != nil {
		return nil, err
	}

	r := &Repo{
		db:      db,
		dataDir: dataDir,
	}

	v, err := r.Version()
	if err != nil {
		db.Close()
		return nil, err
	}
	if v > defaultRepoVersion {
		db.Close()
		return nil, ErrRepoTooNew
	}

	if err := autoMigrateDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	if v != defaultRepoVersion {
		log.Infof("Initialized repo version %d at %s", defaultRepoVersion, dataDir)
		if err := r.writeVersion(defaultRepoVersion); err != nil {
			db.Close()
			return nil, err
		}
	}
	return r, nil
}

func checkWriteable(dir string) error {
	_, err := os.Stat(dir)
	if err == nil {
		// Directory exists, make sure we can write to it
		testfile := path.Join(dir, "test")
		fi, err := os.Create(testfile)
		if err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%s is not writeable by the current user", dir)
			}
			return fmt.Errorf("unexpected error while checking writeablility of repo root: %s", err)
		}
		fi.Close()
		return os.Remove(testfile)
	}

	if os.IsNotExist(err) {
		// Directory does not exist, check that we can create it
		return os.MkdirAll(dir, 0775)
	}

	if os.IsPermission(err) {
		return fmt.Errorf("cannot write to %s, incorrect permissions", err)
	}

	return err
}

func autoMigrateDatabase(db database.Database) error {
	dbModels := []interface{}{
		&models.KVEntry{},
	}

	return db.Update(func(tx database.Tx) error {
		for _, m := range dbModels {
			if err := tx.Migrate(m); err != nil {
				return err
			}
		}
		return nil
	})
}
