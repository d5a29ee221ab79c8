package main

import (
	"github.com/okian/fairway/internal/report"
	"github.com/spf13/cobra"
)

func newTemplatesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List weight templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := c.loadTemplates(cmd.Context())
			if err != nil {
				return err
			}
			return report.PrintTemplates(cmd.OutOrStdout(), ts.List())
		},
	}

	var version int
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one template's groups and metric weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := c.loadTemplates(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := ts.Get(args[0])
			if version > 0 {
				cfg, err = ts.GetVersion(args[0], version)
			}
			if err != nil {
				return err
			}
			return report.PrintTemplate(cmd.OutOrStdout(), cfg)
		},
	}
	show.Flags().IntVar(&version, "version", 0, "template version (default latest)")
	cmd.AddCommand(show)
	return cmd
}
