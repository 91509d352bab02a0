package config

import (
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
	"github.com/relloyd/pgmirror/constants"
)

// mustGetConfigHomeDir returns the full path to the home directory that stores all config files.
func mustGetConfigHomeDir() string {
	if pgmirrorHomeDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		pgmirrorHomeDir = path.Join(home, constants.ConfigDirName)
	}
	return pgmirrorHomeDir
}

// makeDir wll make the given directory if it does not already exist.
// An error is returned if there is a problem creating the dir.
func makeDir(dir string) error {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) { // if it doesn't exist...
		if err = os.MkdirAll(dir, 0755); err != nil { // if the dir was NOT created...
			return fmt.Errorf("error creating directory %v", dir)
		}
	} else if err != nil {
		return err
	}
	return nil
}
