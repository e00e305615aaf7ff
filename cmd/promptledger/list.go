package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmbuddy/promptledger/pkg/models"
)

var (
	listFile   string
	listSearch string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded prompts, newest first",
	Long: `List recorded prompts, newest first.

Examples:
  promptledger list
  promptledger list --file src/main.go    # prompts associated with a file
  promptledger list --search "refactor"   # substring search`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openLedger()
		if err != nil {
			return err
		}
		defer cleanup()

		var recs []*models.PromptRecord
		switch {
		case listSearch != "":
			recs = svc.Search(listSearch, listLimit)
		case listFile != "":
			recs = svc.ForFile(listFile)
		default:
			recs = svc.RecordsByTimeDesc()
			if listLimit > 0 && len(recs) > listLimit {
				recs = recs[:listLimit]
			}
		}

		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no prompts recorded")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tSOURCE\tFILES\tPROMPT")
		for _, rec := range recs {
			id := rec.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				id,
				rec.Timestamp.Format(time.DateTime),
				rec.EffectiveSource(),
				len(rec.AssociatedFiles),
				truncate(rec.PromptText, 60))
		}
		return w.Flush()
	},
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	listCmd.Flags().StringVar(&listFile, "file", "", "only prompts associated with this file path")
	listCmd.Flags().StringVar(&listSearch, "search", "", "substring to search prompt text and descriptions for")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum number of prompts to show")
}
