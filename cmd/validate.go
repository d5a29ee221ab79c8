package main

import (
	"fmt"

	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/report"
	"github.com/spf13/cobra"
)

func newValidateCmd(c *cli) *cobra.Command {
	var (
		feeds feedFlags
		tmpl  templateFlags
		runID string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compare a ranking with the realized results",
		Long:  "Validate a stored ranking (--run) or rank the given feeds first and validate that ranking.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			results, err := feeds.readResults(ctx)
			if err != nil {
				return err
			}
			svc, closeFn, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if runID == "" {
				rounds, approach, _, err := feeds.stats(ctx)
				if err != nil {
					return err
				}
				ranked, err := svc.Rank(ctx, service.RankRequest{
					EventID:  feeds.event(rounds),
					Template: tmpl.query(),
					Rounds:   rounds,
					Approach: approach,
				})
				if err != nil {
					return fmt.Errorf("rank: %w", err)
				}
				runID = ranked.RunID
			}

			resp, err := svc.Validate(ctx, service.ValidateRequest{
				EventID:      feeds.eventID,
				RankingRunID: runID,
				Results:      results,
			})
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s  ranking %s  event %s\n", resp.RunID, resp.RankingRunID, resp.Report.EventID)
			return report.PrintValidation(w, resp.Report)
		},
	}
	feeds.register(cmd, true)
	tmpl.register(cmd)
	cmd.Flags().StringVar(&runID, "run", "", "stored ranking run id")
	return cmd
}
