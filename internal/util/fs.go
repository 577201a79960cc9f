package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MakeJobDir creates base/<id> for one download job, where id is a fresh
// UUID unless given. The caller removes it when done.
func MakeJobDir(base, id string) (string, error) {
	if base == "" {
		base = filepath.Join(os.TempDir(), "tgvidbot")
	}
	if id == "" {
		id = uuid.NewString()
	}
	dir := filepath.Join(base, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// RemoveAll deletes dir and everything under it; a missing dir is fine.
func RemoveAll(dir string) error {
	if dir == "" || dir == "/" || dir == "." {
		return fmt.Errorf("refusing to remove %q", dir)
	}
	return os.RemoveAll(dir)
}

const maxNameRunes = 120

// SanitizeFilename turns a video title into a safe file name: separators
// and shell-special characters become underscores, runs collapse and the
// result is cut to a bounded number of runes.
func SanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == ' ', r < 0x20:
			return '_'
		case strings.ContainsRune(`[]/\:*?"<>|#%{}$!@+^~`+"`"+`=&;'`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "._-")

	if utf8.RuneCountInString(s) > maxNameRunes {
		s = string([]rune(s)[:maxNameRunes])
		s = strings.TrimRight(s, "._-")
	}
	if s == "" {
		return "video"
	}
	return s
}
