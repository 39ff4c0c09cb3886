package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vopt/internal/deps"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the external tools vopt depends on are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(results))
			missing := false
			for _, status := range results {
				state := "ok"
				detail := status.Command
				if !status.Available {
					state = "missing"
					detail = status.Detail
					missing = true
				}
				rows = append(rows, []string{status.Name, state, detail, status.Description})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Status", "Detail", "Purpose"},
				rows,
			))
			if missing {
				return errors.New("one or more required tools are missing")
			}
			return nil
		},
	}
}
