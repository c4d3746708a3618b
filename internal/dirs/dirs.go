// Package dirs resolves the per-user folders ClipPilot reads and writes.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "clippilot"

// location says where one kind of folder lives on each platform.
type location struct {
	xdgEnv    string   // linux override, e.g. XDG_CONFIG_HOME
	linuxHome []string // linux fallback under $HOME
	darwin    []string // under $HOME, app name appended
	darwinSub string   // appended after the app name on macOS
	windows   string   // env var on Windows; empty uses os.UserConfigDir
	winSub    string
}

var (
	configLoc = location{
		xdgEnv:    "XDG_CONFIG_HOME",
		linuxHome: []string{".config"},
		darwin:    []string{"Library", "Application Support"},
	}
	stateLoc = location{
		xdgEnv:    "XDG_STATE_HOME",
		linuxHome: []string{".local", "state"},
		darwin:    []string{"Library", "Application Support"},
		darwinSub: "state",
		windows:   "LOCALAPPDATA",
		winSub:    "state",
	}
)

func (l location) resolve() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv(l.xdgEnv); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, l.linuxHome...), appName)...), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, l.darwin...), appName, l.darwinSub)...), nil
	default:
		if l.windows != "" {
			if base := os.Getenv(l.windows); base != "" {
				return filepath.Join(base, appName, l.winSub), nil
			}
		}
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, appName, l.winSub), nil
	}
}

// ConfigDir holds settings.json and the optional config file.
// Linux: $XDG_CONFIG_HOME/clippilot or ~/.config/clippilot.
// macOS: ~/Library/Application Support/clippilot. Windows: %AppData%/clippilot.
func ConfigDir() (string, error) { return configLoc.resolve() }

// StateDir holds runtime state such as logs.
// Linux: $XDG_STATE_HOME/clippilot or ~/.local/state/clippilot.
// macOS: the config dir plus /state. Windows: %LocalAppData%/clippilot/state.
func StateDir() (string, error) { return stateLoc.resolve() }

// LogDir returns where dated log files are written (state dir + /logs).
func LogDir() (string, error) {
	s, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(s, "logs"), nil
}

// SettingsPath returns the fixed location of settings.json.
func SettingsPath() (string, error) {
	c, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(c, "settings.json"), nil
}

// ToolsDir returns the bundled tools folder next to the executable.
func ToolsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "tools"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "tools")
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll creates the config, state and log dirs.
func EnsureAll() error {
	for _, fn := range []func() (string, error){ConfigDir, StateDir, LogDir} {
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
