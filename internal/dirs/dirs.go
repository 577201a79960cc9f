// Package dirs resolves the per-user directories tgvidbot keeps its
// configuration, database and download scratch space in.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "tgvidbot"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// xdgDir resolves an XDG base directory on Linux: $env/tgvidbot or
// ~/<fallback...>/tgvidbot.
func xdgDir(env string, fallback ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

func macDir(sub ...string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home, "Library"}, sub...)
	return filepath.Join(append(parts, appName)...), nil
}

// ConfigDir holds config.{yaml,json,toml}.
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return macDir("Application Support")
	case "linux":
		return xdgDir("XDG_CONFIG_HOME", ".config")
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, appName), nil
	}
}

// DataDir holds the sqlite database.
func DataDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return macDir("Application Support")
	case "linux":
		return xdgDir("XDG_DATA_HOME", ".local", "share")
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, appName), nil
	}
}

// CacheDir holds download work directories.
func CacheDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return macDir("Caches")
	case "linux":
		return xdgDir("XDG_CACHE_HOME", ".cache")
	default:
		c, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(c, appName), nil
	}
}

// DatabasePath is the default location of the bot database.
func DatabasePath() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, appName+".db"), nil
}

// TempBaseDir is the parent of per-job download directories.
func TempBaseDir() (string, error) {
	c, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(c, "jobs"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll creates the config, data and cache directories.
func EnsureAll() error {
	for _, fn := range []func() (string, error){ConfigDir, DataDir, CacheDir} {
		p, err := fn()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
