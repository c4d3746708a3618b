package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ronled86/ClipPilot/internal/ui"
)

func newTuiCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive search, trending and downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal() {
				return &ExitError{Code: ExitCLIError, Err: errors.New("tui needs an interactive terminal")}
			}
			return runTUI(cmd, category)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Trending category shown first")
	return cmd
}

func runTUI(cmd *cobra.Command, category string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if category == "" {
		category = s.cfg.TrendingCategory
	}
	err = ui.Run(cmd.Context(), s.app, category)
	if cmd.Context().Err() != nil {
		return &ExitError{Code: ExitCancelled, Err: errors.New("interrupted")}
	}
	if err != nil {
		return &ExitError{Code: ExitDownloadError, Err: err}
	}
	return nil
}
