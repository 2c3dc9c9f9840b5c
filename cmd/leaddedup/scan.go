package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"crm_backend/internal/leads/dedup"
	"crm_backend/internal/leads/detection"
	"crm_backend/platform/phone"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newScanCmd(flags *globalFlags) *cobra.Command {
	var (
		threshold float64
		exactOnly bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List duplicate groups",
		Long: `Scan every lead and print the duplicate groups found.

Each group is a master (the oldest lead) and the leads judged to duplicate it.

Examples:
  leaddedup scan                      # fuzzy matching at 0.85
  leaddedup scan --threshold 0.7      # looser fuzzy matching
  leaddedup scan --exact-only --json  # equal name and phone only, as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := flags.context(cmd)
			defer cancel()

			s, err := flags.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := s.svc.Scan(ctx, dedup.Options{Threshold: threshold, ExactOnly: exactOnly})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report, flags.region)
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", envFloat("DEDUP_THRESHOLD", dedup.DefaultThreshold), "similarity threshold in [0,1]")
	cmd.Flags().BoolVar(&exactOnly, "exact-only", false, "link only equal names with equal phones")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, report detection.Report, region string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "%s %d group(s) across %d lead(s)\n", cyan("Duplicates:"), report.Count, report.TotalLeads)
	for _, g := range report.Duplicates {
		fmt.Fprintf(w, "\n%s %s  %s  (%s)\n", cyan("master"), g.MasterID, describe(g.MasterLead.Name, g.MasterLead.Phone, region),
			yellow(fmt.Sprintf("%.0f%%", g.Similarity*100)))
		for _, d := range g.DuplicateLeads {
			fmt.Fprintf(w, "  - %s  %s\n", d.ID, describe(d.Name, d.Phone, region))
		}
	}
	if report.Count > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Merge a group with: leaddedup merge --master <id> --duplicates <id,id>")
	}
}

// describe renders a lead as "name / phone" with the phone in E.164 when it parses.
func describe(name, rawPhone, region string) string {
	parts := make([]string, 0, 2)
	if name != "" {
		parts = append(parts, name)
	}
	if p := phone.NormalizeE164InRegion(rawPhone, region); p != "" {
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "(no name, no phone)"
	}
	return strings.Join(parts, " / ")
}
