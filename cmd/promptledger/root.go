package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/llmbuddy/promptledger/internal/config"
)

const version = "0.3.0"

var (
	dataDir string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "promptledger",
	Short: "Prompt-to-file association ledger for LLM-assisted work",
	Long: `promptledger records the prompts you send to LLMs, watches your working
files, and keeps track of which prompt drove which file change.

Prompts arrive through several channels (an HTTP capture server, a shared
JSON capture file written by desktop recorders, a SQLite database written
by a proxy) and are reconciled into one canonical ledger. While a prompt
is active, significant file changes are associated with it and snapshotted
into restorable auto backups.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dataDir, "data-dir", "", "data directory (default: ~/.promptledger)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&debug, "debug", false, "enable debug logging",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if dataDir != "" {
			os.Setenv("PROMPTLEDGER_DATA_DIR", dataDir)
		}

		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

		return config.EnsureAll()
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(notesCmd)
}
