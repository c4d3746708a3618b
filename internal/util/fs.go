package util

import (
	"errors"
	"os"
	"strings"
)

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

var titleReplacer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeTitle replaces characters that are invalid in Windows file names.
// It predicts the name yt-dlp gives the file, so nothing else is changed.
func SanitizeTitle(s string) string {
	return titleReplacer.Replace(s)
}
