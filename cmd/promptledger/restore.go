package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/llmbuddy/promptledger/internal/snapshot"
)

var restoreDiff bool

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot> [path...]",
	Short: "Restore files from a markdown snapshot, or diff them against disk",
	Long: `Restore files from a snapshot or auto-backup document. With no paths,
every file in the snapshot is restored. Each path is restored
independently; a failure on one does not abort the others.

With --diff, nothing is written: a unified diff between each snapshot
section and the file currently on disk is printed instead.

Examples:
  promptledger restore backups/auto_backup_20260826_120000_2files_80tokens.md
  promptledger restore combined.md src/a.go --diff`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		files := snapshot.Parse(string(data))
		if len(files) == 0 {
			return fmt.Errorf("no file sections found in %s", args[0])
		}

		paths := args[1:]
		if len(paths) == 0 {
			for path := range files {
				paths = append(paths, path)
			}
			sort.Strings(paths)
		}

		if restoreDiff {
			for _, path := range paths {
				content, ok := files[path]
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not in snapshot\n", path)
					continue
				}
				diff, err := snapshot.Diff(path, content)
				if err != nil {
					return err
				}
				if diff == "" {
					diff = "no changes\n"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "--- %s ---\n%s", path, diff)
			}
			return nil
		}

		failed := 0
		for _, res := range snapshot.Restore(files, paths) {
			if res.Succeeded() {
				fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", res.Path)
			} else {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", res.Path, res.Err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to restore", failed, len(paths))
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreDiff, "diff", false, "print diffs instead of writing files")
}
