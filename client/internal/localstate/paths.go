package localstate

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envHome    = "MEETUPZ_HOME" // override for tests
	dirName    = ".meetupz"     // default under $HOME
	dbFilename = "meetupz.db"
)

// DataDir returns the directory holding client-local state. An explicit dir
// wins, then $MEETUPZ_HOME, then ~/.meetupz. The directory is created with
// 0700 permissions if missing.
func DataDir(dir string) (string, error) {
	if dir == "" {
		dir = os.Getenv(envHome)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPath returns the path of the SQLite file inside DataDir(dir).
func DBPath(dir string) (string, error) {
	d, err := DataDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(d, dbFilename), nil
}
