package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dotConfig  = ".config"
	appName    = "withings-sync"
	configName = ".withings_user.json"
	dbName     = "withings-sync.db"
	fitName    = "withings.fit"
)

// Dir returns override when set, otherwise ~/.config/withings-sync.
func Dir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dotConfig, appName), nil
}

func EnsureDir(override string) (string, error) {
	dir, err := Dir(override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", appName, err)
	}
	return dir, nil
}

// Credentials is the persistent credential document.
func Credentials(dir string) string {
	return filepath.Join(dir, configName)
}

func DB(dir string) string {
	return filepath.Join(dir, dbName)
}

// FIT names a debug copy of an encoded file: withings_weight.fit, withings_blood_pressure.fit.
func FIT(dir string, kind string) string {
	ext := filepath.Ext(fitName)
	return filepath.Join(dir, fitName[:len(fitName)-len(ext)]+"_"+kind+ext)
}
