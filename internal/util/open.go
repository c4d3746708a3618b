package util

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Opener hands a URL or path to the desktop environment.
type Opener interface {
	OpenURL(u string) error
	RevealFile(path string) error
}

// SystemOpener uses the platform's default handlers.
type SystemOpener struct{}

// OpenURL opens u in the default browser.
func (SystemOpener) OpenURL(u string) error {
	return startDetached(openCommand(u))
}

// RevealFile opens the folder containing path in the file manager,
// selecting the file where the platform supports it.
func (SystemOpener) RevealFile(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return startDetached(exec.Command("open", "-R", path))
	case "windows":
		return startDetached(exec.Command("explorer", "/select,", path))
	default:
		return startDetached(exec.Command("xdg-open", filepath.Dir(path)))
	}
}

func openCommand(target string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", target)
	default:
		return exec.Command("xdg-open", target)
	}
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Path, err)
	}
	// Reap in the background; opener exit codes are not meaningful.
	go func() { _ = cmd.Wait() }()
	return nil
}
