package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"vopt/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <input-dir>",
		Short: "List the files recorded as processed for a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			inputDir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			led, err := ledger.Load(inputDir)
			if err != nil {
				return err
			}
			defer led.Close()

			out := cmd.OutOrStdout()
			for _, entry := range led.Entries() {
				fmt.Fprintln(out, entry)
			}
			fmt.Fprintf(out, "%d entries in %s\n", led.Len(), led.Path())
			return nil
		},
	}
}
