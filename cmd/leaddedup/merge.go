package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"crm_backend/internal/leads/merge"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMergeCmd(flags *globalFlags) *cobra.Command {
	var (
		req    merge.Request
		dryRun bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Fold duplicates into a master lead",
		Long: `Merge duplicate leads into a master.

Empty master fields are filled from the duplicates in order, orders and
activities are moved to the master, then the duplicates are deleted.

Examples:
  leaddedup merge --master 1f2e... --duplicates 3a4b...,5c6d...
  leaddedup merge --master 1f2e... --duplicates 3a4b... --status won
  leaddedup merge --master 1f2e... --duplicates 3a4b... --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := flags.context(cmd)
			defer cancel()

			s, err := flags.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if dryRun {
				preview, err := s.svc.Preview(ctx, req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, preview)
				}
				printPreview(out, preview, flags.region)
				return nil
			}

			outcome, err := s.svc.Merge(ctx, req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, outcome)
			}
			printOutcome(out, outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.MasterID, "master", "", "id of the lead that survives")
	cmd.Flags().StringSliceVar(&req.DuplicateIDs, "duplicates", nil, "comma-separated ids to fold into the master")
	cmd.Flags().StringVar(&req.SelectedStatus, "status", "", "status to keep (must be held by a lead in the group)")
	cmd.Flags().StringVar(&req.SelectedAssigneeID, "assignee", "", "assignee to keep (must be assigned in the group)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the consolidated master without writing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("master")
	_ = cmd.MarkFlagRequired("duplicates")
	return cmd
}

func printOutcome(w io.Writer, o merge.Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "%s merged %d of %d lead(s) into %s\n", green("✓"), o.MergedCount, o.Requested, o.MergedLeadID)
	fmt.Fprintf(w, "  orders: %d, activities: %d\n", o.PreservedRelations.Orders, o.PreservedRelations.Activities)
	if len(o.SkippedIDs) > 0 {
		fmt.Fprintf(w, "  %s %v\n", yellow("skipped (unreadable):"), o.SkippedIDs)
	}
	if len(o.FailedDeleteIDs) > 0 {
		fmt.Fprintf(w, "  %s %v\n", yellow("merged but not deleted:"), o.FailedDeleteIDs)
	}
}

func printPreview(w io.Writer, p merge.Preview, region string) {
	fmt.Fprintf(w, "%s\n", color.YellowString("DRY RUN - nothing will be written"))
	fmt.Fprintf(w, "master %s: %s\n", p.Master.ID, describe(p.Master.Name, p.Master.Phone, region))
	keys := make([]string, 0, len(p.Master.Attributes))
	for k := range p.Master.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, p.Master.Attributes[k])
	}
	fmt.Fprintf(w, "orders: %d, activities: %d, attachments: %d\n",
		p.PreservedRelations.Orders, p.PreservedRelations.Activities, p.Attachments.TotalCount)
	if p.StateConflict {
		fmt.Fprintf(w, "status conflict, choose one with --status: %v\n", p.States)
	}
	if p.AssigneeConflict {
		fmt.Fprintf(w, "assignee conflict, choose one with --assignee: %v\n", p.Assignees)
	}
	if len(p.SkippedIDs) > 0 {
		fmt.Fprintf(w, "unreadable: %v\n", p.SkippedIDs)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
