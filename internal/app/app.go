// Package app holds application-wide identity shared by the config, storage
// and logging packages.
package app

import (
	"path/filepath"

	"github.com/xolan/hark/internal/osutil"
)

// Name is the application name used for the config directory
const Name = "hark"

// Dir returns the per-user application directory, creating it if needed.
// Uses os.UserConfigDir() for cross-platform XDG-compliant placement.
func Dir() (string, error) {
	configDir, err := osutil.Provider.UserConfigDir()
	if err != nil {
		return "", err
	}

	appDir := filepath.Join(configDir, Name)
	if err := osutil.Provider.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}
	return appDir, nil
}

// Path returns the path of a file inside the application directory.
func Path(file string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}
