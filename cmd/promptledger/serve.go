package main

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/llmbuddy/promptledger/internal/config"
	"github.com/llmbuddy/promptledger/internal/monitor"
	"github.com/llmbuddy/promptledger/internal/notes"
	"github.com/llmbuddy/promptledger/internal/poller"
	"github.com/llmbuddy/promptledger/internal/server"
	"github.com/llmbuddy/promptledger/internal/session"
	"github.com/llmbuddy/promptledger/internal/snapshot"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture server, file monitor, and capture-file poller",
	Long: `Start the long-running session: the HTTP capture server that external
recorders push prompts to, the filesystem monitor that associates file
changes with the active prompt and writes auto backups, and the poller
that picks up records written to the shared capture file by other
processes.

Examples:
  promptledger serve                 # listen on the configured port
  promptledger serve --port 5050     # override the port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		svc, cleanup, err := openLedger()
		if err != nil {
			return err
		}
		defer cleanup()

		httpSvc := server.New(svc, version)

		detector := monitor.NewDetector(cfg.MonitorFolders, cfg.MonitorFiles, cfg.IgnorePatterns, cfg.TokenThreshold)
		runner := &session.Runner{
			Ledger:           svc,
			Detector:         detector,
			Gate:             monitor.NewCooldownGate(time.Duration(cfg.CooldownMinutes) * time.Minute),
			Backups:          snapshot.NewBackupWriter(config.BackupDir(), cfg.MaxBackups),
			Journal:          notes.NewJournal(config.NotesPath()),
			SnapshotsEnabled: cfg.SnapshotsEnabled,
			Broadcast:        httpSvc.Broadcaster().Broadcast,
		}

		// Nil channels block forever in the runner's select, so disabled
		// components simply never fire.
		var batches <-chan monitor.Batch
		var mon *monitor.Monitor
		if cfg.MonitorEnabled && (len(cfg.MonitorFolders) > 0 || len(cfg.MonitorFiles) > 0) {
			mon, err = monitor.New(detector, cfg.MonitorFolders, cfg.MonitorFiles, time.Second)
			if err != nil {
				return err
			}
			if err := mon.Start(); err != nil {
				return err
			}
			batches = mon.C
		}

		poll := poller.New(config.CapturePath(), time.Duration(cfg.PollSeconds)*time.Second)
		poll.Start()

		port := servePort
		if port == 0 {
			port = config.GetServerPort()
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return httpSvc.ListenAndServe(ctx, port)
		})
		g.Go(func() error {
			runner.Run(ctx, batches, poll.C)
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			if mon != nil {
				if err := mon.Stop(); err != nil {
					return err
				}
			}
			poll.Stop()
			return nil
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default: configured port)")
}
