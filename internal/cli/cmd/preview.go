package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <video-id>",
		Short: "Open a video in the default browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			// Preview only knows cached videos; a lookup fills the cache.
			s.app.Lookup(cmd.Context(), args[0])
			p, err := s.app.Preview(args[0])
			if err != nil {
				return exitFor(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n%s\n", p.Title, p.Duration, p.URL)
			return nil
		},
	}
}
