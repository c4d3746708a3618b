package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/server"
	"github.com/ronled86/ClipPilot/internal/settings"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "1.0.10"

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitMissingDep    = 2
	ExitDownloadError = 3
	ExitCancelled     = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clippilot",
		Short: "Search YouTube and save audio or video with yt-dlp",
		Long: "ClipPilot searches YouTube, shows trending videos and downloads them as MP3 audio or MP4 video " +
			"through yt-dlp, with live progress. Run it without a subcommand in a terminal for the interactive UI.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal() {
				return cmd.Help()
			}
			return runTUI(cmd, "")
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().BoolP("verbose", "v", false, "Debug logging, mirrored to stderr outside the TUI")
	root.PersistentFlags().String("dl-binary", "", "Path to yt-dlp")
	root.PersistentFlags().String("tools-dir", "", "Folder holding bundled yt-dlp and ffmpeg")
	root.PersistentFlags().String("api-key", "", "YouTube Data API key (overrides the saved key)")
	root.PersistentFlags().String("settings", "", "Path to settings.json")

	root.AddCommand(newSearchCmd())
	root.AddCommand(newTrendingCmd())
	root.AddCommand(newCategoriesCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newSettingsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	server.Version = Version
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := config.Init(root); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return root.ExecuteContext(ctx)
}

// exitFor attaches the exit code that matches a domain error.
func exitFor(err error) error {
	var ee *ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ee):
		return err
	case errors.Is(err, downloader.ErrDownloaderMissing):
		return &ExitError{Code: ExitMissingDep, Err: err}
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: ExitCancelled, Err: err}
	case errors.Is(err, youtube.ErrEmptyQuery),
		errors.Is(err, downloader.ErrVideoNotFound),
		errors.Is(err, downloader.ErrNoTarget),
		errors.Is(err, settings.ErrInvalid),
		errors.Is(err, settings.ErrUnknownKey):
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("unexpected: %w", err)}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
