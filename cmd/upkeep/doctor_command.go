package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"upkeep/internal/deps"
)

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools upkeep relies on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := deps.CheckBinaries(deps.Requirements())

			rows := make([][]string, 0, len(statuses))
			missingRequired := 0
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
					if status.Optional {
						state = "missing (optional)"
					} else {
						missingRequired++
					}
				}
				rows = append(rows, []string{status.Name, state, status.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Status", "Purpose"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if missingRequired > 0 {
				return fmt.Errorf("%d required tools missing", missingRequired)
			}
			return nil
		},
	}
}
