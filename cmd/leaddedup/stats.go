package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatsCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show lead and merge totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := flags.context(cmd)
			defer cancel()

			s, err := flags.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			metrics, err := s.handle.Repo.GetMetrics(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, metrics)
			}
			bold := color.New(color.Bold).SprintFunc()
			fmt.Fprintf(out, "%s %d\n", bold("leads:"), metrics.TotalLeads)
			fmt.Fprintf(out, "%s %d (%d lead(s) folded)\n", bold("merges:"), metrics.Merges, metrics.MergedLeads)
			if metrics.FailedDeletes > 0 {
				fmt.Fprintf(out, "%s %d\n", color.RedString("merged but not deleted:"), metrics.FailedDeletes)
			}
			if metrics.OrphanedRelations > 0 {
				fmt.Fprintf(out, "%s %d\n", color.YellowString("orphaned orders/activities:"), metrics.OrphanedRelations)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the totals as JSON")
	return cmd
}
