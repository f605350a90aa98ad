package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper is the single process-wide reclamation task. It sweeps the uploads root on a
// fixed interval and whenever it is nudged; nudges that arrive during a sweep coalesce
// into one follow-up sweep.
type Reaper struct {
	m        *Manager
	interval time.Duration

	trigger chan struct{}
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewReaper creates the reaper for m and registers it, so that EnsureSession nudges it.
func (m *Manager) NewReaper(interval time.Duration) *Reaper {
	r := &Reaper{
		m:        m,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	m.setReaper(r)
	return r
}

// Start launches the sweep goroutine. Calling Start more than once has no effect.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	go r.run()
}

// Stop ends the sweep goroutine and waits for it to exit. A sweep in progress finishes first.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	close(r.stop)
	r.mu.Unlock()

	r.m.setReaper(nil)
	if started {
		<-r.done
	}
}

// Trigger requests a sweep without blocking.
func (r *Reaper) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Reaper) run() {
	defer close(r.done)
	logger := log.With().Str("component", "reaper").Logger()
	ctx := logger.WithContext(context.Background())

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	logger.Info().Dur("interval", r.interval).Dur("retention", r.m.retention).Msg("reaper started")
	for {
		select {
		case <-r.stop:
			logger.Info().Msg("reaper stopped")
			return
		case <-tick:
		case <-r.trigger:
		}
		r.m.Reclaim(ctx, r.m.now())
	}
}
