// Package poller watches the shared capture file for changes written by
// other processes. The file has no notification channel of its own, so a
// fixed-period stat is the contract.
package poller

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller emits a signal on C whenever the watched file's size or
// modification time moves. It only detects; the receiver decides what to
// reload.
type Poller struct {
	C <-chan struct{}

	path     string
	interval time.Duration

	out    chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	active bool
}

// New creates a poller for path with the given interval.
func New(path string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan struct{}, 1)
	return &Poller{
		C:        out,
		path:     path,
		interval: interval,
		out:      out,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins polling. The current file state becomes the baseline, so
// only changes after Start signal.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	p.active = true
	p.mu.Unlock()

	go p.loop()
	log.Info().Str("path", p.path).Dur("interval", p.interval).Msg("capture poller started")
}

// Stop halts polling and waits for the loop to exit, so no signal arrives
// after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.mu.Unlock()

	p.cancel()
	<-p.done
}

func (p *Poller) loop() {
	defer close(p.done)
	defer close(p.out)

	lastSize, lastMod := p.stat()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			size, mod := p.stat()
			if size == lastSize && mod.Equal(lastMod) {
				continue
			}
			lastSize, lastMod = size, mod
			// Non-blocking: a signal already pending covers this change.
			select {
			case p.out <- struct{}{}:
			default:
			}
		}
	}
}

// stat returns the file's size and mtime, zero values when absent.
func (p *Poller) stat() (int64, time.Time) {
	info, err := os.Stat(p.path)
	if err != nil {
		return 0, time.Time{}
	}
	return info.Size(), info.ModTime()
}
