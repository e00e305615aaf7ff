package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	recordLLM         string
	recordModel       string
	recordDescription string
	recordURL         string
)

var recordCmd = &cobra.Command{
	Use:   "record <prompt text>",
	Short: "Record a prompt and make it the active prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openLedger()
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := svc.RecordPrompt(strings.Join(args, " "), recordLLM, recordDescription)
		if err != nil {
			return err
		}
		if recordModel != "" || recordURL != "" {
			if err := svc.Annotate(rec.ID, recordModel, recordURL); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordLLM, "llm", "Claude", "LLM the prompt was sent to")
	recordCmd.Flags().StringVar(&recordModel, "model", "", "model name, if known")
	recordCmd.Flags().StringVar(&recordDescription, "description", "", "short description of the prompt")
	recordCmd.Flags().StringVar(&recordURL, "url", "", "page URL the prompt was captured from")
}
