package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/report"
	"github.com/spf13/cobra"
)

func newOptimizeCmd(c *cli) *cobra.Command {
	var (
		feeds       feedFlags
		tmpl        templateFlags
		seeds       int
		iterations  int
		checkpoints string
		resume      string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for weights that predict the results better",
		Long: "Run seeded weight searches against one event. Interrupting the command " +
			"(Ctrl+C) stops the searches; with --checkpoints the unfinished seeds are " +
			"saved and --resume continues them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			results, err := feeds.readResults(ctx)
			if err != nil {
				return err
			}
			rounds, approach, _, err := feeds.stats(ctx)
			if err != nil {
				return err
			}

			req := service.OptimizeRequest{
				EventID:  feeds.event(rounds),
				Template: tmpl.query(),
				Rounds:   rounds,
				Approach: approach,
				Results:  results,
			}
			if resume != "" {
				err := withFile(resume, func(r io.Reader) error {
					return json.NewDecoder(r).Decode(&req.Checkpoints)
				})
				if err != nil {
					return err
				}
			}

			var extra []service.Option
			if seeds > 0 {
				extra = append(extra, service.WithSeeds(seeds))
			}
			if iterations > 0 {
				extra = append(extra, service.WithOptimizerOptions(optimizer.WithIterations(iterations)))
			}
			svc, closeFn, err := c.openService(ctx, extra...)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.Optimize(ctx, req)
			if err != nil {
				return fmt.Errorf("optimize: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s  template %s v%d (%s)\n", resp.RunID, resp.Template.ID, resp.Template.Version, resp.Template.Strategy)
			for _, f := range resp.Failed {
				fmt.Fprintf(w, "seed %d failed: %s\n", f.Seed, f.Error)
			}
			if err := report.PrintRecommendation(w, resp.Recommendation); err != nil {
				return err
			}
			if len(resp.Checkpoints) == 0 {
				return nil
			}
			fmt.Fprintf(w, "%d seeds interrupted\n", len(resp.Checkpoints))
			if checkpoints == "" {
				return nil
			}
			return writeCheckpoints(checkpoints, resp.Checkpoints)
		},
	}
	feeds.register(cmd, true)
	tmpl.register(cmd)
	fl := cmd.Flags()
	fl.IntVar(&seeds, "seeds", 0, "number of seeds (default optimizer.seeds)")
	fl.IntVar(&iterations, "iterations", 0, "iterations per seed (default optimizer.iterations)")
	fl.StringVar(&checkpoints, "checkpoints", "", "write checkpoints of interrupted seeds to this file")
	fl.StringVar(&resume, "resume", "", "resume the seeds saved in this checkpoint file")
	return cmd
}

func writeCheckpoints(path string, cps []optimizer.Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cps); err != nil {
		_ = f.Close()
		return fmt.Errorf("write checkpoints: %w", err)
	}
	return f.Close()
}
