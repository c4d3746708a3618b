package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/settings"
	"github.com/ronled86/ClipPilot/internal/util"
	"github.com/ronled86/ClipPilot/internal/util/deps"
	"github.com/ronled86/ClipPilot/internal/util/format"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose external dependencies (yt-dlp, ffmpeg) and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			out := cmd.OutOrStdout()

			dl, derr := deps.FindDownloader(cfg.DLBinary, cfg.ToolsDir)
			if derr != nil {
				fmt.Fprintf(out, "Downloader: missing (%v)\n", derr)
			} else {
				fmt.Fprintf(out, "Downloader: %s%s\n", dl, fileSize(dl))
				if v := toolVersion(cmd.Context(), dl, "--version"); v != "" {
					fmt.Fprintf(out, "            version %s\n", v)
				}
			}

			if ff, ferr := deps.FindFFmpeg(cfg.ToolsDir); ferr != nil {
				// Audio extraction and merging need ffmpeg; plain downloads don't.
				fmt.Fprintf(out, "FFmpeg:     missing (%v)\n", ferr)
			} else {
				fmt.Fprintf(out, "FFmpeg:     %s%s\n", ff, fileSize(ff))
			}

			printConfig(out, cfg)

			if derr != nil {
				return &ExitError{Code: ExitMissingDep, Err: derr}
			}
			return nil
		},
	}
}

func printConfig(out io.Writer, cfg config.Config) {
	s := settings.New(cfg.SettingsPath).Current()
	key := "not set"
	switch {
	case cfg.APIKey != "":
		key = "set (flag/env/config)"
	case strings.TrimSpace(s.YouTubeAPIKey) != "":
		key = "set (settings)"
	}
	fmt.Fprintf(out, "Tools dir:  %s\n", cfg.ToolsDir)
	fmt.Fprintf(out, "Settings:   %s\n", cfg.SettingsPath)
	fmt.Fprintf(out, "Logs:       %s\n", cfg.LogDir)
	fmt.Fprintf(out, "Downloads:  %s\n", s.DownloadFolder)
	fmt.Fprintf(out, "API key:    %s\n", key)
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return ""
	}
	return " (" + format.HumanizeBytes(fi.Size()) + ")"
}

func toolVersion(ctx context.Context, path string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	res, err := util.Run(ctx, util.CmdSpec{Path: path, Args: args})
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	return line
}
