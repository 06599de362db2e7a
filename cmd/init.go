package cmd

import (
	"errors"
	"github.com/assettrack/notifsync/repo"
	"os"
	"path/filepath"
)

// Init initializes a new notifsync data directory.
type Init struct {
	DataDir string `short:"d" long:"datadir" description:"Directory to store data"`
	Force   bool   `short:"f" long:"force" description:"Force overwrite existing repo (dangerous!)"`
}

// Execute creates the data directory, config file and database.
func (x *Init) Execute(args []string) error {
	if x.DataDir == "" {
		x.DataDir = repo.DefaultHomeDir
	}

	if _, err := os.Stat(filepath.Join(x.DataDir, "version")); err == nil {
		if !x.Force {
			return errors.New("data directory is already initialized")
		}
		if err := os.RemoveAll(x.DataDir); err != nil {
			return err
		}
	}

	cfg, _, err := repo.LoadConfig()
	if err != nil {
		return err
	}

	r, err := repo.NewRepo(cfg.DataDir)
	if err != nil {
		return err
	}
	log.Infof("Initialized data directory at %s", r.DataDir())
	return r.Close()
}
