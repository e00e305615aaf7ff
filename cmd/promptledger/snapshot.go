package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llmbuddy/promptledger/internal/snapshot"
	"github.com/llmbuddy/promptledger/internal/tokens"
)

var (
	snapshotOutput string
	snapshotHeader string
	snapshotFooter string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <file>...",
	Short: "Encode files into a single markdown snapshot",
	Long: `Encode one or more files into a single markdown document with a
"### <path>" section per file. The document can later be restored or
diffed with the restore command.

Examples:
  promptledger snapshot src/a.go src/b.go -o combined.md
  promptledger snapshot src/*.go --header "Release 1.2 sources"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []snapshot.File
		total := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			files = append(files, snapshot.File{Path: path, Content: string(data)})
			total += tokens.Count(string(data))
		}

		doc := snapshot.Encode(files, snapshotHeader, snapshotFooter)
		if snapshotOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), doc)
		} else {
			if err := os.WriteFile(snapshotOutput, []byte(doc), 0600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d files, %d tokens\n", snapshotOutput, len(files), total)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "write the snapshot to this file instead of stdout")
	snapshotCmd.Flags().StringVar(&snapshotHeader, "header", "", "text placed before the first file section")
	snapshotCmd.Flags().StringVar(&snapshotFooter, "footer", "", "text placed after the last file section")
}
