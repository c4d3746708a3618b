package dirs

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestLinuxXDGOverrides(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is linux only")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "cfg"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"config", ConfigDir, filepath.Join(base, "cfg", "clippilot")},
		{"state", StateDir, filepath.Join(base, "state", "clippilot")},
		{"logs", LogDir, filepath.Join(base, "state", "clippilot", "logs")},
		{"settings", SettingsPath, filepath.Join(base, "cfg", "clippilot", "settings.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolsDirNextToExecutable(t *testing.T) {
	if filepath.Base(ToolsDir()) != "tools" {
		t.Errorf("ToolsDir() = %q, want a tools folder", ToolsDir())
	}
}
