package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName    = ".tchat"
	cookieDBName   = "cookies.db"
	configFileName = "config.toml"
)

// DataPaths holds the local paths the client reads and writes
type DataPaths struct {
	Dir        string // base data directory (~/.tchat)
	CookieDB   string // sqlite cookie jar
	ConfigFile string // optional TOML configuration
}

// DetectDataPaths resolves the data directory. An empty override means ~/.tchat.
func DetectDataPaths(override string) (DataPaths, error) {
	dir := override
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DataPaths{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, dataDirName)
	}
	return PathsIn(dir), nil
}

// PathsIn returns the layout rooted at dir
func PathsIn(dir string) DataPaths {
	return DataPaths{
		Dir:        dir,
		CookieDB:   filepath.Join(dir, cookieDBName),
		ConfigFile: filepath.Join(dir, configFileName),
	}
}

// CookieDBExists checks if the cookie database has been created
func (p DataPaths) CookieDBExists() bool {
	_, err := os.Stat(p.CookieDB)
	return err == nil
}

// ConfigFileExists checks if a configuration file is present
func (p DataPaths) ConfigFileExists() bool {
	info, err := os.Stat(p.ConfigFile)
	return err == nil && !info.IsDir()
}
