package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/llmbuddy/promptledger/internal/ledger"
	"github.com/llmbuddy/promptledger/internal/monitor"
	"github.com/llmbuddy/promptledger/internal/notes"
	"github.com/llmbuddy/promptledger/internal/snapshot"
	"github.com/llmbuddy/promptledger/internal/store/jsonstore"
)

type RunnerSuite struct {
	suite.Suite
	work      string
	backups   string
	svc       *ledger.Service
	runner    *Runner
	counts    map[string]int
	detector  *monitor.Detector
	emitted   []string
	emitPaths []string
}

func (s *RunnerSuite) SetupTest() {
	s.work = s.T().TempDir()
	s.backups = s.T().TempDir()
	s.counts = make(map[string]int)
	s.emitted = nil
	s.emitPaths = nil

	primary := jsonstore.New(filepath.Join(s.T().TempDir(), "prompt_database.json"))
	s.svc = ledger.NewService(primary, nil, "")
	s.Require().NoError(s.svc.Load())

	s.detector = monitor.NewDetector([]string{s.work}, nil, nil, 50)
	s.detector.SetTokenCounter(func(path string, _ []byte) int { return s.counts[path] })

	s.runner = &Runner{
		Ledger:           s.svc,
		Detector:         s.detector,
		Gate:             monitor.NewCooldownGate(5 * time.Minute),
		Backups:          snapshot.NewBackupWriter(s.backups, 10),
		Journal:          notes.NewJournal(filepath.Join(s.T().TempDir(), "notes.json")),
		SnapshotsEnabled: true,
		Broadcast: func(event string, data any) {
			s.emitted = append(s.emitted, event)
		},
	}
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerSuite))
}

func (s *RunnerSuite) write(name, content string, tokens int) string {
	path := filepath.Join(s.work, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0600))
	s.counts[path] = tokens
	return path
}

func (s *RunnerSuite) backupCount() int {
	entries, err := os.ReadDir(s.backups)
	s.Require().NoError(err)
	return len(entries)
}

func (s *RunnerSuite) TestSignificantChangeTriggersBackup() {
	path := s.write("a.go", "package a", 120)

	s.runner.HandleBatch(monitor.Batch{Paths: []string{path}, At: time.Now()})

	// First observation is significant, so a backup was written with the
	// matching journal note and broadcast.
	s.Equal(1, s.backupCount())
	s.Contains(s.emitted, "backup_created")

	journal, err := s.runner.Journal.Load()
	s.Require().NoError(err)
	s.Require().Len(journal, 1)
	s.Contains(journal[0].Note, "Auto-Backup Created")
}

func (s *RunnerSuite) TestCooldownSuppressesWholeBatch() {
	a := s.write("a.go", "v1", 100)
	b := s.write("b.go", "v1", 100)

	now := time.Now()
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a}, At: now})
	s.Equal(1, s.backupCount())

	// Both files change significantly 10 seconds later; the batch is
	// suppressed as a whole.
	s.write("a.go", "v2", 200)
	s.write("b.go", "v2", 300)
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a, b}, At: now.Add(10 * time.Second)})
	s.Equal(1, s.backupCount())

	// The same scenario past the cooldown window is allowed.
	s.write("a.go", "v3", 300)
	s.write("b.go", "v3", 400)
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a, b}, At: now.Add(6 * time.Minute)})
	s.Equal(2, s.backupCount())
}

func (s *RunnerSuite) TestSuppressedChangeCannotRetrigger() {
	a := s.write("a.go", "v1", 100)
	now := time.Now()
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a}, At: now})
	s.Equal(1, s.backupCount())

	// Significant change during cooldown: suppressed, but the baseline
	// advanced, so replaying the same content produces nothing new.
	s.write("a.go", "v2", 200)
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a}, At: now.Add(time.Second)})
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a}, At: now.Add(10 * time.Minute)})
	s.Equal(1, s.backupCount())
}

func (s *RunnerSuite) TestAssociationDecoupledFromSnapshot() {
	rec, err := s.svc.RecordPrompt("active work", "Claude", "")
	s.Require().NoError(err)

	a := s.write("a.go", "v1", 100)
	now := time.Now()
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a}, At: now})

	// During cooldown a sub-threshold change still associates with the
	// active prompt even though no snapshot is taken.
	s.write("a.go", "v2", 110)
	s.runner.HandleBatch(monitor.Batch{Paths: []string{a}, At: now.Add(time.Second)})

	stored := s.svc.Get(rec.ID)
	s.True(stored.HasFile(a))
	s.Equal(10, stored.FileChanges[a])
	s.Equal(1, s.backupCount())
}

func (s *RunnerSuite) TestSnapshotsDisabled() {
	s.runner.SnapshotsEnabled = false
	path := s.write("a.go", "package a", 500)

	s.runner.HandleBatch(monitor.Batch{Paths: []string{path}, At: time.Now()})
	s.Equal(0, s.backupCount())
}

func (s *RunnerSuite) TestBackupHeaderCarriesActivePrompt() {
	_, err := s.svc.RecordPrompt("make the cache bounded", "Claude", "cache work")
	s.Require().NoError(err)

	path := s.write("cache.go", "package cache", 200)
	s.runner.HandleBatch(monitor.Batch{Paths: []string{path}, At: time.Now()})

	entries, err := os.ReadDir(s.backups)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	data, err := os.ReadFile(filepath.Join(s.backups, entries[0].Name()))
	s.Require().NoError(err)
	s.Contains(string(data), "Active Prompt: cache work (Claude)")
	s.Contains(string(data), "make the cache bounded")
}

func (s *RunnerSuite) TestUnreadablePathSkipped() {
	gone := filepath.Join(s.work, "gone.go")
	s.runner.HandleBatch(monitor.Batch{Paths: []string{gone}, At: time.Now()})
	s.Equal(0, s.backupCount())
}
