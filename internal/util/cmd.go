package util

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// CmdSpec describes a subprocess to run.
type CmdSpec struct {
	Path string   // Binary path
	Args []string // Arguments
	Env  []string // Optional environment variables (KEY=VALUE). If nil, inherit.
	Dir  string   // Working directory; empty = inherit.

	// Called for each stdout/stderr line (if non-nil). Lines are split on
	// \n and \r since yt-dlp redraws its progress line with carriage returns.
	StdoutLine func(string)
	StderrLine func(string)
}

// Exit is the final state of a finished process.
type Exit struct {
	Code   int
	Killed bool // terminated by a signal or by Process.Kill
	Err    error
}

// Process is a started child.
type Process interface {
	// Wait blocks until the process exits and its output is drained.
	// It may be called any number of times.
	Wait() Exit
	// Kill asks the process (and its children where supported) to stop.
	// It does not wait for the exit.
	Kill() error
	Pid() int
}

// Runner starts processes. Tests swap it for a fake.
type Runner interface {
	Start(spec CmdSpec) (Process, error)
}

// ExecRunner starts real OS processes.
type ExecRunner struct{}

// NewDefaultRunner returns the os/exec backed runner.
func NewDefaultRunner() Runner { return ExecRunner{} }

type execProcess struct {
	cmd    *exec.Cmd
	done   chan struct{}
	exit   Exit
	killed atomic.Bool
}

// Start launches spec without waiting for it. Output lines are delivered
// on two reader goroutines, one per stream.
func (ExecRunner) Start(spec CmdSpec) (Process, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	setProcAttr(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdoutPipe, spec.StdoutLine)
	}()
	go func() {
		defer wg.Done()
		scanLines(stderrPipe, spec.StderrLine)
	}()

	go func() {
		// Readers must drain before Wait closes the pipes.
		wg.Wait()
		waitErr := cmd.Wait()
		p.exit = exitFrom(waitErr)
		if p.killed.Load() && p.exit.Code != 0 {
			p.exit.Killed = true
		}
		close(p.done)
	}()
	return p, nil
}

func (p *execProcess) Wait() Exit {
	<-p.done
	return p.exit
}

func (p *execProcess) Kill() error {
	p.killed.Store(true)
	if p.cmd.Process == nil {
		return errors.New("process not started")
	}
	return terminate(p.cmd.Process)
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func exitFrom(waitErr error) Exit {
	if waitErr == nil {
		return Exit{}
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		// -1 means the process was terminated by a signal.
		return Exit{Code: code, Killed: code == -1, Err: waitErr}
	}
	return Exit{Code: -1, Err: waitErr}
}

func scanLines(r io.Reader, fn func(string)) {
	sc := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024 // 1 MB
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, maxCapacity)
	sc.Split(splitLines)
	for sc.Scan() {
		if fn == nil {
			continue
		}
		line := strings.TrimRight(sc.Text(), " ")
		if line == "" {
			continue
		}
		fn(line)
	}
	// Keep draining after a scan error so the child never blocks on a full pipe.
	if sc.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

// splitLines is bufio.ScanLines that also treats a lone \r as a terminator.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		adv := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			adv++
		}
		return adv, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
	Err    error
}

// Run executes the command to completion, capturing both streams.
// On non-zero exit, returns an error describing the exit code, while also
// populating CmdResult.Code and captured buffers.
func Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	waitErr := cmd.Run()
	ex := exitFrom(waitErr)
	res := CmdResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
		Code:   ex.Code,
		Err:    waitErr,
	}
	if waitErr != nil {
		return res, fmt.Errorf("command failed (exit %d): %w", ex.Code, waitErr)
	}
	return res, nil
}

// ShellQuote returns a printable shell-like command string for logging.
func ShellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
