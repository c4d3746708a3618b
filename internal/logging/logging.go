package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Options controls where log records go.
type Options struct {
	Dir     string    // directory for the dated log file; empty disables the file
	Verbose bool      // debug level when true
	Console io.Writer // optional extra sink, typically os.Stderr
	Now     func() time.Time
}

// FileName returns the log file name for day t.
func FileName(t time.Time) string {
	return "clippilot-" + t.Format("2006-01-02") + ".log"
}

// Setup builds the process logger and installs it as slog's default.
// The returned closer flushes and closes the log file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, FileName(now())), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if opts.Console != nil {
		writers = append(writers, opts.Console)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Tool describes one external executable for the startup banner.
type Tool struct {
	Name string
	Path string
	Err  error
}

// Banner logs the startup header: version, platform, tool paths and
// whether an API key is configured. The key itself is never logged.
func Banner(logger *slog.Logger, version string, hasAPIKey bool, tools ...Tool) {
	logger.Info("clippilot starting",
		slog.String("version", version),
		slog.String("platform", runtime.GOOS+"/"+runtime.GOARCH),
		slog.String("go", runtime.Version()),
		slog.Bool("api_key", hasAPIKey),
	)
	for _, t := range tools {
		if t.Err != nil {
			logger.Warn("tool missing", slog.String("tool", t.Name), slog.String("err", t.Err.Error()))
			continue
		}
		logger.Info("tool found", slog.String("tool", t.Name), slog.String("path", t.Path))
	}
}
