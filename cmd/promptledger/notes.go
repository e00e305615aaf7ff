package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llmbuddy/promptledger/internal/config"
	"github.com/llmbuddy/promptledger/internal/notes"
)

var notesProject string

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage the decision journal",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := notes.NewJournal(config.NotesPath()).Load()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no notes")
			return nil
		}
		for i, n := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s (%s)\n    %s\n", i, n.Timestamp, n.Project, n.Note)
		}
		return nil
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Append a journal entry",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return notes.NewJournal(config.NotesPath()).Append(notesProject, strings.Join(args, " "))
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <index>",
	Short: "Delete the journal entry at the given index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index must be a number: %q", args[0])
		}
		removed, err := notes.NewJournal(config.NotesPath()).Delete(index)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(cmd.OutOrStdout(), "no note at index %d\n", index)
		}
		return nil
	},
}

func init() {
	notesAddCmd.Flags().StringVar(&notesProject, "project", "", "project the note belongs to")
	notesCmd.AddCommand(notesListCmd, notesAddCmd, notesDeleteCmd)
}
