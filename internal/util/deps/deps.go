package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrNotFound is wrapped by every lookup failure.
var ErrNotFound = errors.New("executable not found")

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// BundledDownloader is where a bundled yt-dlp lives under toolsDir.
func BundledDownloader(toolsDir string) string {
	return filepath.Join(toolsDir, "yt-dlp", exeName("yt-dlp"))
}

// BundledFFmpeg is where a bundled ffmpeg lives under toolsDir.
func BundledFFmpeg(toolsDir string) string {
	return filepath.Join(toolsDir, "ffmpeg", exeName("ffmpeg"))
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// FindDownloader returns the path to yt-dlp.
// Search order: customPath (file or PATH name), the bundled copy under
// toolsDir, then yt-dlp and youtube-dl in PATH.
func FindDownloader(customPath, toolsDir string) (string, error) {
	if customPath != "" {
		if isFile(customPath) {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find downloader at %q: %w", customPath, ErrNotFound)
	}
	if toolsDir != "" {
		if p := BundledDownloader(toolsDir); isFile(p) {
			return p, nil
		}
	}
	if p, err := exec.LookPath("yt-dlp"); err == nil {
		return p, nil
	}
	if p, err := exec.LookPath("youtube-dl"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("yt-dlp not found in %s or PATH, place it in the tools/yt-dlp folder or install it: %w",
		filepath.Join(toolsDir, "yt-dlp"), ErrNotFound)
}

// FindBundledFFmpeg returns the directory holding the bundled ffmpeg, the
// value yt-dlp expects for --ffmpeg-location.
func FindBundledFFmpeg(toolsDir string) (string, bool) {
	if toolsDir == "" {
		return "", false
	}
	p := BundledFFmpeg(toolsDir)
	if !isFile(p) {
		return "", false
	}
	return filepath.Dir(p), true
}

// FindFFmpeg returns the ffmpeg binary, bundled first, then PATH.
func FindFFmpeg(toolsDir string) (string, error) {
	if dir, ok := FindBundledFFmpeg(toolsDir); ok {
		return filepath.Join(dir, exeName("ffmpeg")), nil
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find ffmpeg in %s or PATH: %w", filepath.Join(toolsDir, "ffmpeg"), ErrNotFound)
}
