package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ronled86/ClipPilot/internal/app"
	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/logging"
	"github.com/ronled86/ClipPilot/internal/util/deps"
)

// session is the wired application for one command invocation.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	app    *app.App
	closer io.Closer
}

// openSession resolves the config, opens the log file and builds the app.
// With console set, verbose logging is mirrored to stderr; the TUI passes
// false since it owns the terminal.
func openSession(cmd *cobra.Command, console bool, opts ...app.Option) (*session, error) {
	cfg := config.Load()

	var sink io.Writer
	if console && cfg.Verbose {
		sink = cmd.ErrOrStderr()
	}
	logger, closer, err := logging.Setup(logging.Options{Dir: cfg.LogDir, Verbose: cfg.Verbose, Console: sink})
	if err != nil {
		// An unwritable log dir must not stop the CLI.
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		if logger, closer, err = logging.Setup(logging.Options{Verbose: cfg.Verbose, Console: sink}); err != nil {
			return nil, &ExitError{Code: ExitCLIError, Err: err}
		}
	}

	dl, dlErr := deps.FindDownloader(cfg.DLBinary, cfg.ToolsDir)
	ff, ffErr := deps.FindFFmpeg(cfg.ToolsDir)

	a := app.New(cfg, append([]app.Option{app.WithLogger(logger)}, opts...)...)
	logging.Banner(logger, Version, a.APIKey() != "",
		logging.Tool{Name: "yt-dlp", Path: dl, Err: dlErr},
		logging.Tool{Name: "ffmpeg", Path: ff, Err: ffErr},
	)
	logger.Debug("config",
		slog.String("settings", cfg.SettingsPath),
		slog.String("log_dir", cfg.LogDir),
		slog.String("tools_dir", cfg.ToolsDir),
	)
	return &session{cfg: cfg, logger: logger, app: a, closer: closer}, nil
}

// Close cancels running downloads and flushes the log.
func (s *session) Close() {
	s.app.Close()
	_ = s.closer.Close()
}
