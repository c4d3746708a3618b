package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change saved download settings",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newSettingsShowCmd(), newSettingsSetCmd(), newSettingsPathCmd())
	return cmd
}

// The settings commands touch only the file, so they skip the full session.
func settingsStore() *settings.Store {
	return settings.New(config.Load().SettingsPath)
}

func newSettingsShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:       "show [key]",
		Short:     "Print the settings, or a single key",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: settings.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := settingsStore().Current()
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				val, ok := settings.Get(v, args[0])
				if !ok {
					return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("%w: %q (valid: %s)", settings.ErrUnknownKey, args[0], strings.Join(settings.Keys(), ", "))}
				}
				fmt.Fprintln(out, val)
				return nil
			}
			v.YouTubeAPIKey = settings.MaskKey(v.YouTubeAPIKey)
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, k := range settings.Keys() {
				val, _ := settings.Get(v, k)
				fmt.Fprintf(tw, "%s\t%s\n", k, val)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change one setting",
		Example:   "  clippilot settings set defaultFormat mp3\n  clippilot settings set audioBitrate 320k",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settings.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := settingsStore().Set(args[0], args[1]); err != nil {
				return exitFor(err)
			}
			shown := args[1]
			if args[0] == "youtubeApiKey" {
				shown = settings.MaskKey(shown)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], shown)
			return nil
		},
	}
}

func newSettingsPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), settingsStore().Path())
			return nil
		},
	}
}
