//go:build !windows

package util

import (
	"os"
	"os/exec"
	"syscall"
)

// yt-dlp spawns ffmpeg as a child. Starting it in its own process group
// lets a single signal reach both.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(p *os.Process) error {
	pgid, err := syscall.Getpgid(p.Pid)
	if err != nil {
		return p.Signal(syscall.SIGTERM)
	}
	return syscall.Kill(-pgid, syscall.SIGTERM)
}
