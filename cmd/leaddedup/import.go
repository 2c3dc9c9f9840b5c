package main

import (
	"encoding/json"
	"fmt"
	"os"

	"crm_backend/internal/leads/domain"
	"crm_backend/platform/sanitize"

	"github.com/spf13/cobra"
)

func newImportCmd(flags *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load leads from a JSON array",
		Long: `Insert the leads of a JSON file (an array of lead objects) into the store.

Names, phones and attributes are stripped of markup and extra whitespace.
Useful to seed a local sqlite store from an export before scanning it.

Example:
  leaddedup --sqlite leads.db import --file export.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var items []domain.Lead
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}

			ctx, cancel := flags.context(cmd)
			defer cancel()

			s, err := flags.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			for i, l := range items {
				l.Name = sanitize.Text(l.Name)
				l.Phone = sanitize.Text(l.Phone)
				l.Attributes = sanitize.Map(l.Attributes)
				if _, err := s.handle.Repo.CreateLead(ctx, l); err != nil {
					return fmt.Errorf("lead %d (%s): %w", i, l.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d lead(s)\n", len(items))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
