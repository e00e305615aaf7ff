package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Batch is one debounced set of in-scope changed paths, deduplicated.
type Batch struct {
	Paths []string
	At    time.Time
}

// Monitor watches the configured folders and files and emits debounced
// change batches on C. It only detects; the receiving goroutine owns all
// state mutation.
type Monitor struct {
	C <-chan Batch

	detector *Detector
	folders  []string
	files    []string
	debounce time.Duration

	out     chan Batch
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// New creates a monitor over the detector's scope. The debounce window
// collapses event bursts on the same paths into one batch.
func New(detector *Detector, folders, files []string, debounce time.Duration) (*Monitor, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Batch, 8)
	return &Monitor{
		C:        out,
		detector: detector,
		folders:  folders,
		files:    files,
		debounce: debounce,
		out:      out,
		watcher:  fsw,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Paths that cannot be watched are logged and
// skipped; monitoring starts with whatever scope is available.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.mu.Unlock()

	for _, folder := range m.folders {
		if err := m.watcher.Add(folder); err != nil {
			log.Warn().Err(err).Str("path", folder).Msg("cannot watch folder")
		}
	}
	// fsnotify watches directories, so individual files go in via their
	// parent directory.
	seen := make(map[string]bool)
	for _, f := range m.files {
		dir := filepath.Dir(f)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if _, err := os.Stat(dir); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("cannot watch file parent")
			continue
		}
		if err := m.watcher.Add(dir); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("cannot watch file parent")
		}
	}

	go m.loop()
	log.Info().Int("folders", len(m.folders)).Int("files", len(m.files)).Msg("file monitor started")
	return nil
}

// Stop halts the monitor and waits for the event loop to drain, so no
// batch can arrive after Stop returns.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	m.cancel()
	err := m.watcher.Close()
	<-m.done
	return err
}

func (m *Monitor) loop() {
	defer close(m.done)
	defer close(m.out)

	pending := make(map[string]bool)
	var flush *time.Timer
	var flushC <-chan time.Time

	emit := func() {
		if len(pending) == 0 {
			return
		}
		batch := Batch{At: time.Now()}
		for p := range pending {
			batch.Paths = append(batch.Paths, p)
		}
		pending = make(map[string]bool)
		select {
		case m.out <- batch:
		case <-m.ctx.Done():
		}
	}

	for {
		select {
		case <-m.ctx.Done():
			if flush != nil {
				flush.Stop()
			}
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path := filepath.Clean(event.Name)
			if !m.detector.ShouldMonitor(path) {
				continue
			}
			pending[path] = true
			if flush == nil {
				flush = time.NewTimer(m.debounce)
				flushC = flush.C
			} else {
				if !flush.Stop() {
					select {
					case <-flush.C:
					default:
					}
				}
				flush.Reset(m.debounce)
			}

		case <-flushC:
			emit()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}
