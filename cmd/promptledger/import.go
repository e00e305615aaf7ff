package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llmbuddy/promptledger/internal/config"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Reconcile the capture file and relational store into the primary ledger",
	Long: `Merge records from the shared capture file and the relational store
into the primary JSON ledger. Records are merged by ID with the
earliest-seen copy winning, so re-running the import never duplicates
or overwrites existing prompts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openLedger()
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Fprintf(cmd.OutOrStdout(), "ledger: %d prompts (%s)\n", svc.Count(), config.RecordsPath())
		return nil
	},
}
