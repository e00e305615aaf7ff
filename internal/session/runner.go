// Package session ties the background detectors to the ledger: it is the
// single owner of canonical state mutation while a session runs. Monitors
// and pollers only send; the runner receives and applies.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmbuddy/promptledger/internal/ledger"
	"github.com/llmbuddy/promptledger/internal/monitor"
	"github.com/llmbuddy/promptledger/internal/notes"
	"github.com/llmbuddy/promptledger/internal/snapshot"
)

// Runner applies change batches and capture-file signals to the ledger.
type Runner struct {
	Ledger   *ledger.Service
	Detector *monitor.Detector
	Gate     *monitor.CooldownGate
	Backups  *snapshot.BackupWriter
	Journal  *notes.Journal // optional

	SnapshotsEnabled bool

	// Broadcast pushes an event to connected clients; may be nil.
	Broadcast func(event string, data any)
}

// Run consumes batches and capture signals until ctx is cancelled. Closed
// channels are tolerated so senders can be stopped in any order.
func (r *Runner) Run(ctx context.Context, batches <-chan monitor.Batch, captureSignals <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				batches = nil
				continue
			}
			r.HandleBatch(batch)
		case _, ok := <-captureSignals:
			if !ok {
				captureSignals = nil
				continue
			}
			r.HandleCaptureChange()
		}
	}
}

// HandleBatch evaluates one debounced batch of changed paths. Every path is
// associated with the active prompt regardless of significance; a snapshot
// is written only when at least one change is significant and the cooldown
// allows it. The cooldown is checked once for the whole batch.
func (r *Runner) HandleBatch(batch monitor.Batch) {
	changes := make(map[string]int)
	for _, path := range batch.Paths {
		verdict, err := r.Detector.Evaluate(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cannot evaluate change")
			continue
		}

		// Association with the active prompt is decoupled from the
		// snapshot decision.
		if r.Ledger.RecordAssociation(path, verdict.TokenDelta) {
			log.Debug().Str("path", path).Int("delta", verdict.TokenDelta).Msg("associated with active prompt")
		}

		if verdict.Significant {
			changes[path] = verdict.TokenDelta
		}
	}

	if len(changes) == 0 || !r.SnapshotsEnabled {
		return
	}

	now := batch.At
	if now.IsZero() {
		now = time.Now()
	}
	if !r.Gate.Allow(now) {
		log.Info().
			Int("changes", len(changes)).
			Dur("retry_in", r.Gate.Remaining(now)).
			Msg("snapshot suppressed by cooldown")
		return
	}

	paths := make([]string, 0, len(changes))
	for p := range changes {
		paths = append(paths, p)
	}

	info, err := r.Backups.Write(paths, changes, r.promptContext())
	if err != nil {
		log.Error().Err(err).Msg("auto backup failed")
		return
	}
	r.Gate.Mark(now)

	if r.Journal != nil {
		note := fmt.Sprintf("Auto-Backup Created: %s\n\nFiles: %d, Token changes: %d",
			info.Path, info.Files, info.TokenChange)
		if err := r.Journal.Append("promptledger", note); err != nil {
			log.Warn().Err(err).Msg("journal append failed")
		}
	}
	if r.Broadcast != nil {
		r.Broadcast("backup_created", map[string]any{
			"path":         info.Path,
			"files":        info.Files,
			"token_change": info.TokenChange,
		})
	}
}

// HandleCaptureChange reloads the ledger after another process wrote the
// capture file.
func (r *Runner) HandleCaptureChange() {
	if err := r.Ledger.Load(); err != nil {
		log.Warn().Err(err).Msg("reload after capture change failed")
		return
	}
	if r.Broadcast != nil {
		r.Broadcast("prompts_updated", map[string]any{"count": r.Ledger.Count()})
	}
}

// promptContext renders the active prompt into a backup header fragment.
func (r *Runner) promptContext() string {
	id := r.Ledger.ActiveID()
	if id == "" {
		return ""
	}
	rec := r.Ledger.Get(id)
	if rec == nil {
		return ""
	}
	desc := rec.Description
	if desc == "" {
		desc = "Untitled"
	}
	return fmt.Sprintf("Active Prompt: %s (%s)\n\nPrompt Text:\n%s", desc, rec.LLMUsed, rec.PromptText)
}
