package main

import (
	"fmt"
	"os"

	"github.com/okian/fairway/internal/adapters/feed"
	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/report"
	"github.com/spf13/cobra"
)

func newRankCmd(c *cli) *cobra.Command {
	var (
		feeds     feedFlags
		tmpl      templateFlags
		limit     int
		out       string
		showFeeds bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank a field from round and approach statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rounds, approach, reports, err := feeds.stats(ctx)
			if err != nil {
				return err
			}
			svc, closeFn, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.Rank(ctx, service.RankRequest{
				EventID:  feeds.event(rounds),
				Template: tmpl.query(),
				Rounds:   rounds,
				Approach: approach,
			})
			if err != nil {
				return fmt.Errorf("rank: %w", err)
			}

			w := cmd.OutOrStdout()
			if showFeeds {
				if err := report.PrintFeeds(w, reports...); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "run %s  template %s v%d (%s)  competitors %d\n",
				resp.RunID, resp.Template.ID, resp.Template.Version, resp.Template.Strategy, len(resp.Entries))
			if err := report.PrintRanking(w, resp.Entries, limit); err != nil {
				return err
			}
			if out == "" {
				return nil
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			return feed.WriteRanking(f, resp.Entries)
		},
	}
	feeds.register(cmd, false)
	tmpl.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "entries to print; 0 prints all")
	cmd.Flags().StringVar(&out, "out", "", "write the full ranking as CSV to this file")
	cmd.Flags().BoolVar(&showFeeds, "show-feeds", false, "print how feed columns were resolved")
	return cmd
}
