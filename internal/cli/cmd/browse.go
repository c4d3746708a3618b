package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

func newSearchCmd() *cobra.Command {
	var (
		pageToken string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search YouTube videos",
		Example: `  clippilot search lofi hip hop
  clippilot search lofi --page-token CAwQAA`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			q := strings.Join(args, " ")
			var page youtube.Page
			if pageToken != "" {
				page, err = s.app.SearchMore(cmd.Context(), q, pageToken)
			} else {
				page, err = s.app.Search(cmd.Context(), q)
			}
			if err != nil {
				return exitFor(err)
			}
			return printPage(cmd.OutOrStdout(), cmd.ErrOrStderr(), page, asJSON)
		},
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Continue from a previous page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}

func newTrendingCmd() *cobra.Command {
	var (
		category  string
		pageToken string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "List trending videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			var page youtube.Page
			if pageToken != "" {
				page, err = s.app.MoreTrending(cmd.Context(), category, pageToken)
			} else {
				page, err = s.app.Trending(cmd.Context(), category)
			}
			if err != nil {
				return exitFor(err)
			}
			return printPage(cmd.OutOrStdout(), cmd.ErrOrStderr(), page, asJSON)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category ID (see 'clippilot categories'); 0 for all")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Continue from a previous page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List trending categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, c := range youtube.Categories() {
				fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
			}
			return tw.Flush()
		},
	}
}

func printPage(out, errOut io.Writer, page youtube.Page, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}
	if n := page.Notice; n != nil {
		fmt.Fprintf(errOut, "note: %s\n", noticeText(n))
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDURATION\tLICENSE\tPUBLISHED\tCHANNEL\tTITLE")
	for _, r := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Duration, licenseLabel(r.License), r.PublishedAt, r.Channel, r.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.NextPageToken != "" {
		fmt.Fprintf(out, "\nMore results: --page-token %s\n", page.NextPageToken)
	}
	return nil
}

func noticeText(n *youtube.Notice) string {
	switch n.Kind {
	case youtube.NoticeNoAPIKey:
		return "no YouTube API key configured, showing sample results (set one with --api-key or 'clippilot settings set youtubeApiKey <key>')"
	case youtube.NoticeQuotaExceeded:
		return "YouTube API quota exceeded, try again after the daily reset"
	}
	if n.Message != "" {
		return "YouTube API error: " + n.Message
	}
	return "YouTube API error, showing sample results"
}

func licenseLabel(l model.License) string {
	switch l {
	case model.LicenseCC:
		return "CC"
	case model.LicenseMine:
		return "mine"
	}
	return "-"
}
